package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chronoagent/authctl/pkg/auth"
	"github.com/chronoagent/authctl/pkg/config"
	"github.com/chronoagent/authctl/pkg/output"
	"github.com/chronoagent/authctl/pkg/store"
)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
}

type runtimeState struct {
	configPath       string
	cfg              *config.Config
	stateDirOverride string
	storageOverride  string
	outputFormat     string
	verbose          bool
	writer           io.Writer
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{configPath: cfg.ConfigPath, writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:   "authctl",
		Short: "Device-grant credential manager",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath()
			}
			if rt.stateDirOverride == "" {
				rt.stateDirOverride = os.Getenv("AUTHCTL_STATE_DIR")
			}
			if rt.storageOverride == "" {
				rt.storageOverride = os.Getenv("AUTHCTL_TOKEN_STORAGE")
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("AUTHCTL_OUTPUT")
			}
			if !rt.verbose {
				rt.verbose = strings.EqualFold(os.Getenv("AUTHCTL_VERBOSE"), "true")
			}

			// Skip config loading for commands that don't need it
			if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
				return nil
			}
			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}

			loaded, err := config.Load(rt.configPath)
			if err != nil {
				return err
			}
			rt.cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().StringVar(&rt.stateDirOverride, "state-dir", "", "Credential state directory override")
	root.PersistentFlags().StringVar(&rt.storageOverride, "token-storage", "", "Token storage backend: file or keychain")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: text, json, yaml")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Enable verbose logging")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewConfigCommand(),
		NewAuthCommand(),
		NewTokenCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) OutputFormat() (output.Format, error) {
	return output.ParseFormat(rt.outputFormat)
}

func (rt *runtimeState) stateDir() string {
	if rt.stateDirOverride != "" {
		return rt.stateDirOverride
	}
	if rt.cfg != nil && rt.cfg.StateDir != "" {
		return rt.cfg.StateDir
	}
	return config.DefaultStateDir()
}

func (rt *runtimeState) tokenStorage() string {
	if rt.storageOverride != "" {
		return rt.storageOverride
	}
	if rt.cfg != nil && rt.cfg.TokenStorage != "" {
		return rt.cfg.TokenStorage
	}
	return config.StorageFile
}

func (rt *runtimeState) configPathValue() string {
	if rt.configPath == "" {
		return config.DefaultConfigPath()
	}
	return rt.configPath
}

func (rt *runtimeState) buildManager() (*auth.Manager, error) {
	if rt.cfg == nil {
		return nil, errors.New("config not loaded")
	}
	if err := rt.cfg.Validate(); err != nil {
		return nil, err
	}
	var persistence store.Store
	switch rt.tokenStorage() {
	case config.StorageKeychain:
		persistence = store.NewKeyringStore("authctl:" + rt.cfg.ClientID)
	default:
		persistence = store.NewFileStore(rt.stateDir())
	}
	var endpoints *auth.Endpoints
	if rt.cfg.DeviceEndpoint != "" && rt.cfg.TokenEndpoint != "" {
		endpoints = &auth.Endpoints{DeviceAuth: rt.cfg.DeviceEndpoint, Token: rt.cfg.TokenEndpoint}
	}
	logger := zap.NewNop()
	if rt.verbose {
		if dev, err := zap.NewDevelopment(); err == nil {
			logger = dev
		}
	}
	return auth.NewManager(auth.Options{
		ClientID:  rt.cfg.ClientID,
		Tenant:    rt.cfg.Tenant,
		Issuer:    rt.cfg.Issuer,
		Scopes:    rt.cfg.Scopes,
		Endpoints: endpoints,
		Store:     persistence,
		Timeout:   time.Duration(rt.cfg.HTTPTimeoutSeconds) * time.Second,
		Logger:    logger,
	})
}
