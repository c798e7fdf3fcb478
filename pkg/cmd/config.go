package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chronoagent/authctl/pkg/config"
	"github.com/chronoagent/authctl/pkg/output"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage authctl configuration",
	}
	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigViewCommand(),
	)
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		clientID string
		tenant   string
		issuer   string
		scopes   []string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			cfg := config.DefaultConfig()
			cfg.ClientID = clientID
			if tenant != "" {
				cfg.Tenant = tenant
			}
			cfg.Issuer = issuer
			cfg.Scopes = scopes
			if err := cfg.Validate(); err != nil {
				return err
			}
			path := rt.configPathValue()
			if err := config.Save(path, &cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "Public client id (required)")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Entra ID tenant (default common)")
	cmd.Flags().StringVar(&issuer, "issuer", "", "OIDC issuer for endpoint discovery")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "Requested scopes")
	_ = cmd.MarkFlagRequired("client-id")

	return cmd
}

func newConfigViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			format, err := rt.OutputFormat()
			if err != nil {
				return err
			}
			if format == output.FormatText {
				format = output.FormatYAML
			}
			return output.WriteObject(rt.Writer(), format, rt.cfg)
		},
	}
}
