package auth

import (
	"context"
	"time"
)

const defaultPollIntervalSeconds = 5

// PendingFlow describes a device-code authorization that has been started
// but not yet confirmed, declined, or expired. It is persisted so a later
// invocation can resume polling with the same device code.
type PendingFlow struct {
	DeviceCode              string    `json:"device_code"`
	UserCode                string    `json:"user_code"`
	VerificationURI         string    `json:"verification_uri"`
	VerificationURIComplete string    `json:"verification_uri_complete,omitempty"`
	IntervalSeconds         int       `json:"interval_seconds"`
	ExpiresAt               time.Time `json:"expires_at"`
	Message                 string    `json:"message,omitempty"`
}

// Expired reports whether the flow has passed its absolute expiry. An
// expired flow must be cleared, never polled.
func (f *PendingFlow) Expired(now time.Time) bool {
	return !now.Before(f.ExpiresAt)
}

func (f *PendingFlow) authRequired(nextPollSeconds int) *AuthRequired {
	return &AuthRequired{
		UserCode:                f.UserCode,
		VerificationURI:         f.VerificationURI,
		VerificationURIComplete: f.VerificationURIComplete,
		ExpiresAt:               f.ExpiresAt,
		IntervalSeconds:         nextPollSeconds,
		Message:                 f.Message,
	}
}

// PollStatus tags the outcome of a single device-code poll.
type PollStatus string

const (
	PollPending   PollStatus = "pending"
	PollCompleted PollStatus = "completed"
	PollDeclined  PollStatus = "declined"
	PollExpired   PollStatus = "expired"
	PollError     PollStatus = "error"
)

// PollResult is the outcome of one poll against the token endpoint.
// NextPollInSeconds is set only for the pending status.
type PollResult struct {
	Status            PollStatus `json:"status"`
	AccessToken       string     `json:"accessToken,omitempty"`
	NextPollInSeconds int        `json:"nextPollInSeconds,omitempty"`
	Reason            string     `json:"reason,omitempty"`
}

// startFlow requests a fresh device code and persists it as the pending
// flow, replacing any previous one. Exactly one outbound call, exactly one
// store write.
func (m *Manager) startFlow(ctx context.Context) (*PendingFlow, error) {
	endpoints, err := m.resolveEndpoints(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := m.requestDeviceCode(ctx, endpoints)
	if err != nil {
		return nil, err
	}
	interval := resp.Interval
	if interval <= 0 {
		interval = defaultPollIntervalSeconds
	}
	flow := &PendingFlow{
		DeviceCode:              resp.DeviceCode,
		UserCode:                resp.UserCode,
		VerificationURI:         resp.VerificationURI,
		VerificationURIComplete: resp.VerificationURIComplete,
		IntervalSeconds:         interval,
		ExpiresAt:               time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		Message:                 resp.Message,
	}
	if err := m.savePendingFlow(flow); err != nil {
		return nil, err
	}
	return flow, nil
}

// pollFlow performs exactly one poll for the given flow. Completion
// persists the token pair and clears the pending state before returning;
// terminal provider outcomes clear the pending state so the next call can
// start over. A pending outcome leaves the stored flow untouched.
func (m *Manager) pollFlow(ctx context.Context, flow *PendingFlow) (*PollResult, error) {
	endpoints, err := m.resolveEndpoints(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := m.postTokenGrant(ctx, endpoints.Token, map[string]string{
		"grant_type":  deviceCodeGrantType,
		"client_id":   m.clientID,
		"device_code": flow.DeviceCode,
	})
	if err != nil {
		return nil, err
	}
	// A token in the body wins over whatever the error field says.
	if resp.AccessToken != "" {
		if err := m.saveTokens(resp.AccessToken, resp.RefreshToken); err != nil {
			return nil, err
		}
		if err := m.clearPendingFlow(); err != nil {
			return nil, err
		}
		return &PollResult{Status: PollCompleted, AccessToken: resp.AccessToken}, nil
	}
	switch resp.Error {
	case errorAuthorizationPending:
		return &PollResult{Status: PollPending, NextPollInSeconds: flow.IntervalSeconds}, nil
	case errorSlowDown:
		return &PollResult{Status: PollPending, NextPollInSeconds: flow.IntervalSeconds + 5}, nil
	case errorExpiredToken:
		if err := m.clearPendingFlow(); err != nil {
			return nil, err
		}
		return &PollResult{Status: PollExpired, Reason: resp.reason()}, nil
	case errorAuthorizationDeclined:
		if err := m.clearPendingFlow(); err != nil {
			return nil, err
		}
		return &PollResult{Status: PollDeclined, Reason: resp.reason()}, nil
	default:
		if err := m.clearPendingFlow(); err != nil {
			return nil, err
		}
		return &PollResult{Status: PollError, Reason: resp.reason()}, nil
	}
}
