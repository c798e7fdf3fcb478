package auth

import (
	"context"

	"go.uber.org/zap"
)

// refreshTokens exchanges the stored refresh token for a new pair. The
// empty return with a nil error means the provider rejected the refresh;
// both persisted tokens are cleared in that case, since a rejected refresh
// is treated as revocation and retaining state would mask it indefinitely.
// Transport failures return a *ServerError and leave stored tokens alone.
//
// The server may rotate the refresh token on each exchange. The new value
// is persisted before the paired access token is validated, so a later
// failure can never resurrect the discarded one. One retry is made, and
// only when a rotation happened and the rotated-in access token fails
// local validation; a hard provider error aborts immediately.
func (m *Manager) refreshTokens(ctx context.Context, refreshToken string) (string, error) {
	endpoints, err := m.resolveEndpoints(ctx)
	if err != nil {
		return "", err
	}
	current := refreshToken
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := m.postTokenGrant(ctx, endpoints.Token, map[string]string{
			"grant_type":    refreshGrantType,
			"client_id":     m.clientID,
			"refresh_token": current,
			"scope":         m.scopeString(),
		})
		if err != nil {
			return "", err
		}
		if resp.Error != "" || resp.AccessToken == "" {
			m.log.Debug("refresh rejected", zap.String("error", resp.Error))
			break
		}
		next := current
		if resp.RefreshToken != "" {
			next = resp.RefreshToken
		}
		if err := m.saveTokens(resp.AccessToken, next); err != nil {
			return "", err
		}
		if Usable(resp.AccessToken, m.skew) {
			return resp.AccessToken, nil
		}
		if next == current {
			// Nothing rotated; repeating the same exchange cannot
			// produce a different token.
			break
		}
		m.log.Debug("refresh token rotated but access token unusable, retrying once")
		current = next
	}
	if err := m.clearTokens(); err != nil {
		return "", err
	}
	return "", nil
}
