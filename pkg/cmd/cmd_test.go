package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronoagent/authctl/pkg/auth"
	"github.com/chronoagent/authctl/pkg/config"
)

// fakeIdP is a minimal device-grant provider for CLI-level tests. Handlers
// are swappable per test step so one server can walk a flow from pending
// to completed.
type fakeIdP struct {
	server *httptest.Server

	mu     sync.Mutex
	device http.HandlerFunc
	token  http.HandlerFunc
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	idp := &fakeIdP{}
	mux := http.NewServeMux()
	mux.HandleFunc("/devicecode", func(w http.ResponseWriter, r *http.Request) {
		idp.mu.Lock()
		handler := idp.device
		idp.mu.Unlock()
		if handler == nil {
			t.Error("unexpected device code request")
			http.Error(w, "unexpected", http.StatusInternalServerError)
			return
		}
		handler(w, r)
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		idp.mu.Lock()
		handler := idp.token
		idp.mu.Unlock()
		if handler == nil {
			t.Error("unexpected token request")
			http.Error(w, "unexpected", http.StatusInternalServerError)
			return
		}
		handler(w, r)
	})
	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

func (f *fakeIdP) setToken(handler http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = handler
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user@example.com",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

// writeTestConfig writes a config pointing at the fake IdP and an isolated
// state directory, and returns the config path.
func writeTestConfig(t *testing.T, idp *fakeIdP) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.ClientID = "test-client"
	cfg.StateDir = filepath.Join(dir, "state")
	cfg.DeviceEndpoint = idp.server.URL + "/devicecode"
	cfg.TokenEndpoint = idp.server.URL + "/token"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(path, &cfg))
	return path
}

func runCommand(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	root := NewRootCommand(Config{ConfigPath: configPath, OutputWriter: buf})
	root.SetArgs(args)
	root.SetOut(buf)
	root.SetErr(buf)
	err := root.Execute()
	return buf.String(), err
}

func TestAuthLoginPollAndToken(t *testing.T) {
	idp := newFakeIdP(t)
	idp.device = func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "test-client", r.PostForm.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"device_code":      "device-abc",
			"user_code":        "ABCD1234",
			"verification_uri": "https://idp.example/device",
			"expires_in":       900,
			"interval":         5,
		})
	}
	configPath := writeTestConfig(t, idp)

	out, err := runCommand(t, configPath, "auth", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "ABCD1234")
	assert.Contains(t, out, "https://idp.example/device")

	// First poll: still pending.
	idp.setToken(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "authorization_pending"})
	})
	out, err = runCommand(t, configPath, "auth", "poll")
	require.NoError(t, err)
	assert.Contains(t, out, "Authorization pending")

	// User approved: poll completes and caches the tokens.
	access := signedToken(t, time.Now().Add(time.Hour))
	idp.setToken(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "device-abc", r.PostForm.Get("device_code"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  access,
			"refresh_token": "refresh-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})
	out, err = runCommand(t, configPath, "auth", "poll")
	require.NoError(t, err)
	assert.Contains(t, out, "Login complete")

	// Token now comes from the cache with no provider calls.
	idp.setToken(nil)
	out, err = runCommand(t, configPath, "token")
	require.NoError(t, err)
	assert.Contains(t, out, access)

	out, err = runCommand(t, configPath, "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Authenticated")

	out, err = runCommand(t, configPath, "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	out, err = runCommand(t, configPath, "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Not authenticated")
}

func TestTokenStartsLoginWhenUnauthenticated(t *testing.T) {
	idp := newFakeIdP(t)
	idp.device = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"device_code":      "device-xyz",
			"user_code":        "WXYZ9876",
			"verification_uri": "https://idp.example/device",
			"expires_in":       900,
			"interval":         5,
		})
	}
	configPath := writeTestConfig(t, idp)

	out, err := runCommand(t, configPath, "token")
	require.Error(t, err)
	var required *auth.AuthRequired
	assert.True(t, errors.As(err, &required))
	assert.Contains(t, out, "WXYZ9876")
	assert.Contains(t, out, "Run the command again")
}

func TestAuthLoginJSONOutput(t *testing.T) {
	idp := newFakeIdP(t)
	idp.device = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"device_code":      "device-json",
			"user_code":        "JSON0001",
			"verification_uri": "https://idp.example/device",
			"expires_in":       900,
			"interval":         5,
		})
	}
	configPath := writeTestConfig(t, idp)

	out, err := runCommand(t, configPath, "auth", "login", "-o", "json")
	require.NoError(t, err)

	var prompt map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &prompt))
	assert.Equal(t, "JSON0001", prompt["userCode"])
	// The device code is the client's secret; it never reaches the output.
	assert.NotContains(t, out, "device-json")
}

func TestAuthPollWithoutPendingLogin(t *testing.T) {
	idp := newFakeIdP(t)
	configPath := writeTestConfig(t, idp)

	_, err := runCommand(t, configPath, "auth", "poll")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNoPendingLogin)
}

func TestConfigInitAndView(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	out, err := runCommand(t, configPath, "config", "init",
		"--client-id", "my-client", "--tenant", "contoso.onmicrosoft.com")
	require.NoError(t, err)
	assert.Contains(t, out, configPath)

	out, err = runCommand(t, configPath, "config", "view")
	require.NoError(t, err)
	assert.Contains(t, out, "client-id: my-client")
	assert.Contains(t, out, "tenant: contoso.onmicrosoft.com")
}

func TestConfigInitRequiresClientID(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	_, err := runCommand(t, configPath, "config", "init")
	require.Error(t, err)
}

func TestCommandsFailWithoutConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "missing.yaml")
	_, err := runCommand(t, configPath, "auth", "status")
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, filepath.Join(t.TempDir(), "unused.yaml"), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "authctl")
}

func TestCompletionCommand(t *testing.T) {
	out, err := runCommand(t, filepath.Join(t.TempDir(), "unused.yaml"), "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "authctl")

	_, err = runCommand(t, filepath.Join(t.TempDir(), "unused.yaml"), "completion", "tcsh")
	require.Error(t, err)
}

func TestUnknownOutputFormat(t *testing.T) {
	idp := newFakeIdP(t)
	configPath := writeTestConfig(t, idp)

	_, err := runCommand(t, configPath, "auth", "status", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
