package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/chronoagent/authctl/pkg/auth"
	"github.com/chronoagent/authctl/pkg/output"
)

func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the device-code login",
	}
	cmd.AddCommand(
		newAuthLoginCommand(),
		newAuthPollCommand(),
		newAuthStatusCommand(),
		newAuthLogoutCommand(),
	)
	return cmd
}

// loginPrompt is what gets shown to the user; it deliberately omits the
// device code, which is the client's secret half of the flow.
type loginPrompt struct {
	UserCode                string    `json:"userCode"`
	VerificationURI         string    `json:"verificationUri"`
	VerificationURIComplete string    `json:"verificationUriComplete,omitempty"`
	ExpiresAt               time.Time `json:"expiresAt"`
	IntervalSeconds         int       `json:"intervalSeconds"`
	Message                 string    `json:"message,omitempty"`
}

func newAuthLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Start a fresh device-code login",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			manager, err := rt.buildManager()
			if err != nil {
				return err
			}
			flow, err := manager.StartLogin(cmd.Context())
			if err != nil {
				return err
			}
			prompt := loginPrompt{
				UserCode:                flow.UserCode,
				VerificationURI:         flow.VerificationURI,
				VerificationURIComplete: flow.VerificationURIComplete,
				ExpiresAt:               flow.ExpiresAt,
				IntervalSeconds:         flow.IntervalSeconds,
				Message:                 flow.Message,
			}
			format, err := rt.OutputFormat()
			if err != nil {
				return err
			}
			if format != output.FormatText {
				return output.WriteObject(rt.Writer(), format, prompt)
			}
			writePrompt(rt.Writer(), prompt)
			return nil
		},
	}
}

func writePrompt(w io.Writer, prompt loginPrompt) {
	if prompt.Message != "" {
		_, _ = fmt.Fprintln(w, prompt.Message)
	} else {
		_, _ = fmt.Fprintf(w, "Visit %s and enter code: %s\n", prompt.VerificationURI, prompt.UserCode)
	}
	_, _ = fmt.Fprintf(w, "The code expires at %s\n", prompt.ExpiresAt.UTC().Format(time.RFC3339))
}

func newAuthPollCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Check the pending login once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			manager, err := rt.buildManager()
			if err != nil {
				return err
			}
			result, err := manager.CheckPendingLogin(cmd.Context())
			if err != nil {
				return err
			}
			format, err := rt.OutputFormat()
			if err != nil {
				return err
			}
			if format != output.FormatText {
				return output.WriteObject(rt.Writer(), format, result)
			}
			w := rt.Writer()
			switch result.Status {
			case auth.PollCompleted:
				_, _ = fmt.Fprintln(w, "Login complete")
			case auth.PollPending:
				_, _ = fmt.Fprintf(w, "Authorization pending, poll again in %ds\n", result.NextPollInSeconds)
			case auth.PollDeclined:
				_, _ = fmt.Fprintf(w, "Login declined: %s\n", result.Reason)
			case auth.PollExpired:
				_, _ = fmt.Fprintf(w, "Login expired: %s\n", result.Reason)
			default:
				_, _ = fmt.Fprintf(w, "Login failed: %s\n", result.Reason)
			}
			return nil
		},
	}
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cached credential state without contacting the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			manager, err := rt.buildManager()
			if err != nil {
				return err
			}
			status := manager.Status()
			format, err := rt.OutputFormat()
			if err != nil {
				return err
			}
			if format != output.FormatText {
				return output.WriteObject(rt.Writer(), format, status)
			}
			w := rt.Writer()
			switch {
			case status.AccessTokenUsable:
				_, _ = fmt.Fprintf(w, "Authenticated. Token expires at %s\n", status.AccessTokenExpiresAt.UTC().Format(time.RFC3339))
			case status.HasRefreshToken:
				_, _ = fmt.Fprintln(w, "Access token expired, refresh token available")
			case status.PendingLogin != nil:
				_, _ = fmt.Fprintf(w, "Login in progress, code %s expires at %s\n",
					status.PendingLogin.UserCode, status.PendingLogin.ExpiresAt.UTC().Format(time.RFC3339))
			default:
				_, _ = fmt.Fprintln(w, "Not authenticated")
			}
			return nil
		},
	}
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove cached credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			manager, err := rt.buildManager()
			if err != nil {
				return err
			}
			if err := manager.Logout(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), "Logged out")
			return nil
		},
	}
}
