// Package cmd implements the cobra command tree for the authctl CLI,
// including subcommands for starting and advancing device-code logins,
// token retrieval, configuration, and shell completion.
package cmd
