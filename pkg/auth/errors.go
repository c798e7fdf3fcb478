package auth

import (
	"fmt"
	"time"
)

// AuthRequired signals that a human must complete the verification step
// before a token can be issued. It is a control-flow result, not a fault:
// callers render the code and URI, then retry later.
type AuthRequired struct {
	UserCode                string
	VerificationURI         string
	VerificationURIComplete string
	ExpiresAt               time.Time
	IntervalSeconds         int
	Message                 string
}

func (e *AuthRequired) Error() string {
	return fmt.Sprintf("authentication required: visit %s and enter code %s", e.VerificationURI, e.UserCode)
}

// ServerError reports that the authorization server rejected a request
// outside the expected pending/declined/expired vocabulary, or that the
// request never completed at the transport level.
type ServerError struct {
	Op     string
	Detail string
	Err    error
}

func (e *ServerError) Error() string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return fmt.Sprintf("%s failed: %s: %v", e.Op, e.Detail, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s failed: %s", e.Op, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return e.Op + " failed"
}

func (e *ServerError) Unwrap() error { return e.Err }

// ConfigError reports missing or invalid configuration. It is raised
// before any network or storage access.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "configuration error: " + e.Reason }
