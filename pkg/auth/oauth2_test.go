package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronoagent/authctl/pkg/store"
)

func TestTokenSource(t *testing.T) {
	st := store.NewMemStore()
	expiresAt := time.Now().Add(time.Hour)
	access := testToken(t, expiresAt)
	require.NoError(t, st.Set(recordAccessToken, []byte(access)))

	manager := newTestManager(t, st, Endpoints{})
	source := manager.TokenSource(context.Background())

	token, err := source.Token()
	require.NoError(t, err)
	assert.Equal(t, access, token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.WithinDuration(t, expiresAt, token.Expiry, time.Second)
}

func TestTokenSource_AuthRequired(t *testing.T) {
	idp := newFakeIdP(t)
	idp.device = deviceCodeHandler("device-abc", "ABCD1234", 900)

	manager := newTestManager(t, store.NewMemStore(), idp.endpoints())
	source := manager.TokenSource(context.Background())

	_, err := source.Token()
	require.Error(t, err)
	var required *AuthRequired
	assert.True(t, errors.As(err, &required))
}
