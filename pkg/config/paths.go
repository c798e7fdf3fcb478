package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigDirName = "authctl"
	defaultConfigFile    = "config.yaml"
	defaultStateDirName  = "state"
)

func DefaultConfigPath() string {
	if env := os.Getenv("AUTHCTL_CONFIG"); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultConfigFile)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".authctl", defaultConfigFile)
}

func DefaultStateDir() string {
	if env := os.Getenv("AUTHCTL_STATE_DIR"); env != "" {
		return env
	}
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName, defaultStateDirName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".authctl", defaultStateDirName)
}
