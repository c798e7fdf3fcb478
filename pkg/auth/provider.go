package auth

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	deviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"
	refreshGrantType    = "refresh_token"
)

// Provider error codes the poll operation recognizes. Anything else maps
// to the generic error outcome.
const (
	errorAuthorizationPending  = "authorization_pending"
	errorSlowDown              = "slow_down"
	errorExpiredToken          = "expired_token"
	errorAuthorizationDeclined = "authorization_declined"
)

type deviceCodeResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete,omitempty"`
	ExpiresIn               int    `json:"expires_in"`
	Interval                int    `json:"interval,omitempty"`
	Message                 string `json:"message,omitempty"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorDesc    string `json:"error_description,omitempty"`
}

func (r *tokenResponse) reason() string {
	if r.ErrorDesc != "" {
		return r.ErrorDesc
	}
	return r.Error
}

func (m *Manager) requestDeviceCode(ctx context.Context, endpoints Endpoints) (*deviceCodeResponse, error) {
	requestID := uuid.NewString()
	m.log.Debug("requesting device code",
		zap.String("endpoint", endpoints.DeviceAuth),
		zap.String("requestId", requestID))
	resp, err := m.rest.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", requestID).
		SetFormData(map[string]string{
			"client_id": m.clientID,
			"scope":     m.scopeString(),
		}).
		Post(endpoints.DeviceAuth)
	if err != nil {
		return nil, &ServerError{Op: "device authorization", Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &ServerError{Op: "device authorization", Detail: providerErrorText(resp.Body())}
	}
	payload := &deviceCodeResponse{}
	if err := json.Unmarshal(resp.Body(), payload); err != nil {
		return nil, &ServerError{Op: "device authorization", Detail: "malformed response", Err: err}
	}
	if payload.DeviceCode == "" || payload.UserCode == "" {
		return nil, &ServerError{Op: "device authorization", Detail: "response carries no device code"}
	}
	return payload, nil
}

// postTokenGrant sends one form-encoded grant to the token endpoint and
// decodes the body regardless of HTTP status, since the server reports
// expected conditions like authorization_pending as non-2xx JSON.
func (m *Manager) postTokenGrant(ctx context.Context, endpoint string, form map[string]string) (*tokenResponse, error) {
	requestID := uuid.NewString()
	m.log.Debug("token grant",
		zap.String("grantType", form["grant_type"]),
		zap.String("requestId", requestID))
	resp, err := m.rest.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", requestID).
		SetFormData(form).
		Post(endpoint)
	if err != nil {
		return nil, &ServerError{Op: "token grant", Err: err}
	}
	payload := &tokenResponse{}
	if err := json.Unmarshal(resp.Body(), payload); err != nil {
		return nil, &ServerError{Op: "token grant", Detail: providerErrorText(resp.Body()), Err: err}
	}
	return payload, nil
}

func providerErrorText(body []byte) string {
	var payload struct {
		Error     string `json:"error"`
		ErrorDesc string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		if payload.ErrorDesc != "" {
			return payload.Error + ": " + payload.ErrorDesc
		}
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
