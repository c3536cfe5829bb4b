package auth0

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/grafana-sync/pkg/httputil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTenant struct {
	server      *httptest.Server
	tokenCalls  int32
	token       string
	rejectToken bool
	searches    []string
	status      int
	users       []User
}

func newFakeTenant(t *testing.T) *fakeTenant {
	t.Helper()
	ft := &fakeTenant{token: "tok-1", status: http.StatusOK}

	r := mux.NewRouter()
	r.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&ft.tokenCalls, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "id", r.Form.Get("client_id"))
		assert.Equal(t, "secret", r.Form.Get("client_secret"))
		assert.Equal(t, ft.server.URL+"/api/v2/", r.Form.Get("audience"))

		if ft.rejectToken {
			httputil.WriteErrorMessage(w, http.StatusUnauthorized, "access_denied")
			return
		}
		_ = httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"access_token": ft.token,
			"token_type":   "Bearer",
			"expires_in":   86400,
		})
	}).Methods(http.MethodPost)

	r.HandleFunc("/api/v2/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+ft.token, r.Header.Get("Authorization"))
		ft.searches = append(ft.searches, r.URL.Query().Get("q"))
		if ft.status != http.StatusOK {
			httputil.WriteErrorMessage(w, ft.status, "failed")
			return
		}
		_ = httputil.WriteJSON(w, http.StatusOK, ft.users)
	}).Methods(http.MethodGet)

	ft.server = httptest.NewServer(r)
	t.Cleanup(ft.server.Close)
	return ft
}

func (ft *fakeTenant) provider() *Provider {
	return NewProvider(Config{
		Domain:       ft.server.URL + "/",
		ClientID:     "id",
		ClientSecret: "secret",
	})
}

func TestProvider_Authenticate(t *testing.T) {
	ft := newFakeTenant(t)
	ft.users = []User{{Username: "bob", Email: "bob@x.com"}}

	client, err := ft.provider().Authenticate(context.Background())
	require.NoError(t, err)
	assert.False(t, client.Expiry().IsZero())

	users, err := client.SearchUsers(context.Background(), NicknameQuery("bob"))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "bob@x.com", users[0].Email)
	assert.Equal(t, []string{`nickname:"bob"`}, ft.searches)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ft.tokenCalls))
}

func TestProvider_AuthenticateRejected(t *testing.T) {
	ft := newFakeTenant(t)
	ft.rejectToken = true

	_, err := ft.provider().Authenticate(context.Background())
	require.Error(t, err)

	httpErr, ok := httputil.AsError(err)
	require.True(t, ok)
	assert.Equal(t, ServiceName, httpErr.Service)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Equal(t, httputil.KindAuthorization, httpErr.Kind)
}

func TestProvider_TokenURL(t *testing.T) {
	p := NewProvider(Config{Domain: "https://tenant.auth0.com/"})
	assert.Equal(t, "https://tenant.auth0.com/oauth/token", p.TokenURL())
	assert.Equal(t, "https://tenant.auth0.com/api/v2/", p.config.Audience)
}

func TestClient_SearchUsersErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   httputil.Kind
	}{
		{"expired token", http.StatusUnauthorized, httputil.KindAuthorization},
		{"rate limited", http.StatusTooManyRequests, httputil.KindRateLimit},
		{"bad query", http.StatusBadRequest, httputil.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := newFakeTenant(t)
			client, err := ft.provider().Authenticate(context.Background())
			require.NoError(t, err)

			ft.status = tt.status
			_, err = client.SearchUsers(context.Background(), EmailQuery("bob@x.com"))
			require.Error(t, err)
			assert.True(t, httputil.IsServiceKind(err, ServiceName, tt.kind))
		})
	}
}

func TestQueries(t *testing.T) {
	assert.Equal(t, `email:"bob@x.com"`, EmailQuery("bob@x.com"))
	assert.Equal(t, `nickname:"bob"`, NicknameQuery("bob"))
}
