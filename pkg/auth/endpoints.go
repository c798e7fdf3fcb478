package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Endpoints holds the two authorization server URLs the device grant
// needs.
type Endpoints struct {
	DeviceAuth string
	Token      string
}

// MicrosoftEndpoints returns the v2.0 endpoints for an Entra ID tenant.
// An empty tenant selects the "common" multi-tenant authority.
func MicrosoftEndpoints(tenant string) Endpoints {
	if tenant == "" {
		tenant = "common"
	}
	base := "https://login.microsoftonline.com/" + tenant + "/oauth2/v2.0"
	return Endpoints{
		DeviceAuth: base + "/devicecode",
		Token:      base + "/token",
	}
}

// DiscoverEndpoints resolves the device-authorization and token endpoints
// from the issuer's OIDC discovery document.
func DiscoverEndpoints(ctx context.Context, client *http.Client, issuer string) (Endpoints, error) {
	if client != nil {
		ctx = oidc.ClientContext(ctx, client)
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return Endpoints{}, &ServerError{Op: "endpoint discovery", Err: err}
	}
	endpoint := provider.Endpoint()
	if endpoint.DeviceAuthURL == "" {
		return Endpoints{}, errors.New("device authorization endpoint not advertised")
	}
	if endpoint.TokenURL == "" {
		return Endpoints{}, errors.New("token endpoint not advertised")
	}
	return Endpoints{DeviceAuth: endpoint.DeviceAuthURL, Token: endpoint.TokenURL}, nil
}
