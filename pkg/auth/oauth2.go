package auth

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSource adapts the manager to golang.org/x/oauth2, so resource API
// clients can be assembled with oauth2.NewClient. When user action is
// needed the source fails with *AuthRequired, which callers unwrap with
// errors.As.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managerTokenSource{ctx: ctx, manager: m}
}

type managerTokenSource struct {
	ctx     context.Context
	manager *Manager
}

func (s *managerTokenSource) Token() (*oauth2.Token, error) {
	access, err := s.manager.GetValidAccessToken(s.ctx)
	if err != nil {
		return nil, err
	}
	token := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if expiry, ok := Expiry(access); ok {
		token.Expiry = expiry
	}
	return token, nil
}
