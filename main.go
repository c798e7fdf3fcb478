package main

import (
	"errors"
	"os"

	"github.com/chronoagent/authctl/pkg/auth"
	"github.com/chronoagent/authctl/pkg/cmd"
)

func main() {
	root := cmd.NewRootCommand(cmd.DefaultConfig())
	if err := root.Execute(); err != nil {
		// A required login is signalled, not failed: give scripts a
		// distinct exit code so they can re-invoke after the user acts.
		var required *auth.AuthRequired
		if errors.As(err, &required) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
