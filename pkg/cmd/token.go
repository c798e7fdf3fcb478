package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chronoagent/authctl/pkg/auth"
)

func NewTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a valid access token, starting a login when needed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			manager, err := rt.buildManager()
			if err != nil {
				return err
			}
			token, err := manager.GetValidAccessToken(cmd.Context())
			if err != nil {
				var required *auth.AuthRequired
				if errors.As(err, &required) {
					writePrompt(rt.Writer(), loginPrompt{
						UserCode:                required.UserCode,
						VerificationURI:         required.VerificationURI,
						VerificationURIComplete: required.VerificationURIComplete,
						ExpiresAt:               required.ExpiresAt,
						IntervalSeconds:         required.IntervalSeconds,
						Message:                 required.Message,
					})
					_, _ = fmt.Fprintf(rt.Writer(), "Run the command again in %s once the code is entered\n",
						time.Duration(required.IntervalSeconds)*time.Second)
				}
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), token)
			return nil
		},
	}
}
