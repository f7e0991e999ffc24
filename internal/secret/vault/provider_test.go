package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/llmcoach/internal/secret"
)

func newVaultServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/v1/auth/approle/login":
			_, _ = w.Write([]byte(`{"auth":{"client_token":"s.approle","renewable":false,"lease_duration":3600}}`))
		case r.URL.Path == "/v1/secret/data/coach":
			if r.Header.Get("X-Vault-Token") == "" {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
				return
			}
			_, _ = w.Write([]byte(`{"data":{"data":{"openai_api_key":"sk-vault","value":"default"},"metadata":{"version":1}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProvider_TokenAuth(t *testing.T) {
	srv := newVaultServer(t)
	p, err := New(context.Background(), Config{Address: srv.URL, AuthMethod: AuthToken, Token: "s.root"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	v, err := p.Get(context.Background(), "secret/data/coach#openai_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-vault", v)

	v, err = p.Get(context.Background(), "secret/data/coach")
	require.NoError(t, err)
	assert.Equal(t, "default", v)

	_, err = p.Get(context.Background(), "secret/data/coach#missing")
	assert.ErrorIs(t, err, secret.ErrNotFound)

	_, err = p.Get(context.Background(), "secret/data/absent")
	assert.ErrorIs(t, err, secret.ErrNotFound)
}

func TestProvider_AppRoleLogin(t *testing.T) {
	srv := newVaultServer(t)
	p, err := New(context.Background(), Config{Address: srv.URL, AuthMethod: AuthAppRole, RoleID: "role", SecretID: "sid"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	v, err := p.Get(context.Background(), "secret/data/coach#openai_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-vault", v)
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New(context.Background(), Config{Address: "http://127.0.0.1:1", AuthMethod: AuthToken}, nil)
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Address: "http://127.0.0.1:1", AuthMethod: "kerberos"}, nil)
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Address: "http://127.0.0.1:1"}, nil)
	assert.Error(t, err)
}
