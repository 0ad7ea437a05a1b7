package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeProvider serves a token endpoint plus the given admin API handler.
// The returned counter tracks how many token requests were made.
func newFakeProvider(t *testing.T, admin http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var tokenHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		n := tokenHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"Bearer","expires_in":3600}`, n)
	})
	mux.HandleFunc("/admin/", admin)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &tokenHits
}

func newTestClient(srv *httptest.Server) Client {
	return NewClient(Config{
		ApiURL:       srv.URL + "/admin",
		TokenURL:     srv.URL + "/oauth/token",
		ClientID:     "classdesk-gateway",
		ClientSecret: "test-secret",
	})
}

func TestCreateUser(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var gotPayload providerUser
		srv, _ := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "/admin/users", r.URL.Path)
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
			w.Header().Set("Location", "http://"+r.Host+"/admin/users/3f1e9a")
			w.WriteHeader(http.StatusCreated)
		})

		u, err := newTestClient(srv).CreateUser(context.Background(), "class-1", "abc-123", "S3cret!password")
		require.NoError(t, err)
		assert.Equal(t, "3f1e9a", u.ID)
		assert.Equal(t, "abc-123", u.Username)
		assert.Equal(t, "class-1", u.Tenant)

		assert.Equal(t, "abc-123", gotPayload.Username)
		assert.True(t, gotPayload.Enabled)
		assert.Equal(t, []string{"class-1"}, gotPayload.Attributes["tenant"])
		require.Len(t, gotPayload.Credentials, 1)
		assert.Equal(t, "S3cret!password", gotPayload.Credentials[0].Value)
		assert.False(t, gotPayload.Credentials[0].Temporary)
	})

	t.Run("duplicate username", func(t *testing.T) {
		srv, _ := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		})
		_, err := newTestClient(srv).CreateUser(context.Background(), "class-1", "taken", "pw")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unexpected status", func(t *testing.T) {
		srv, _ := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "busted", http.StatusBadGateway)
		})
		_, err := newTestClient(srv).CreateUser(context.Background(), "class-1", "student", "pw")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})
}

func TestGetUser(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		srv, _ := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/admin/users/3f1e9a", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"3f1e9a","username":"abc-123","attributes":{"tenant":["class-1"]}}`)
		})
		u, err := newTestClient(srv).GetUser(context.Background(), "3f1e9a")
		require.NoError(t, err)
		assert.Equal(t, &User{ID: "3f1e9a", Username: "abc-123", Tenant: "class-1"}, u)
	})

	t.Run("not found", func(t *testing.T) {
		srv, _ := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := newTestClient(srv).GetUser(context.Background(), "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDeleteUser(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		srv, _ := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "DELETE", r.Method)
			w.WriteHeader(http.StatusNoContent)
		})
		assert.NoError(t, newTestClient(srv).DeleteUser(context.Background(), "3f1e9a"))
	})

	t.Run("already deleted", func(t *testing.T) {
		srv, _ := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		err := newTestClient(srv).DeleteUser(context.Background(), "3f1e9a")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSetUserPassword(t *testing.T) {
	srv, _ := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PUT", r.Method)
		assert.Equal(t, "/admin/users/3f1e9a/reset-password", r.URL.Path)
		var cred providerCredential
		require.NoError(t, json.NewDecoder(r.Body).Decode(&cred))
		assert.Equal(t, "password", cred.Type)
		assert.Equal(t, "N3w!password", cred.Value)
		assert.False(t, cred.Temporary)
		w.WriteHeader(http.StatusNoContent)
	})
	assert.NoError(t, newTestClient(srv).SetUserPassword(context.Background(), "3f1e9a", "N3w!password"))
}

func TestListUsers(t *testing.T) {
	t.Run("scoped query", func(t *testing.T) {
		srv, _ := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/admin/users", r.URL.Path)
			assert.Equal(t, "tenant:class-1", r.URL.Query().Get("q"))
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `[
				{"id":"u1","username":"student-a","attributes":{"tenant":["class-1"]}},
				{"id":"u2","username":"student-b","attributes":{"tenant":["class-1"]}}
			]`)
		})
		users, err := newTestClient(srv).ListUsers(context.Background(), "class-1")
		require.NoError(t, err)
		assert.Equal(t, []User{
			{ID: "u1", Username: "student-a", Tenant: "class-1"},
			{ID: "u2", Username: "student-b", Tenant: "class-1"},
		}, users)
	})

	t.Run("empty result", func(t *testing.T) {
		srv, _ := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[]`)
		})
		users, err := newTestClient(srv).ListUsers(context.Background(), "class-1")
		require.NoError(t, err)
		require.NotNil(t, users)
		assert.Empty(t, users)
	})
}

func TestCountUsers(t *testing.T) {
	srv, _ := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/users/count", r.URL.Path)
		assert.Equal(t, "tenant:class-1", r.URL.Query().Get("q"))
		fmt.Fprint(w, `5`)
	})
	count, err := newTestClient(srv).CountUsers(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestTokenReuse(t *testing.T) {
	srv, tokenHits := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"u1","username":"student-a","attributes":{"tenant":["class-1"]}}`)
	})
	client := newTestClient(srv)

	for i := 0; i < 3; i++ {
		_, err := client.GetUser(context.Background(), "u1")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), tokenHits.Load(), "a cached token must be reused until expiry")
}

func TestStaleTokenRetry(t *testing.T) {
	var adminHits atomic.Int32
	srv, tokenHits := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		// first token is treated as revoked by the provider
		if r.Header.Get("Authorization") == "Bearer tok-1" {
			adminHits.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		adminHits.Add(1)
		fmt.Fprint(w, `{"id":"u1","username":"student-a","attributes":{"tenant":["class-1"]}}`)
	})
	client := newTestClient(srv)

	u, err := client.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, int32(2), tokenHits.Load(), "a 401 must trigger exactly one token refresh")
	assert.Equal(t, int32(2), adminHits.Load(), "the request must be retried exactly once")
}

func TestTokenSingleFlight(t *testing.T) {
	var tokenHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		tokenHits.Add(1)
		time.Sleep(50 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok-shared","token_type":"Bearer","expires_in":3600}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	ts := newTokenSource(srv.URL+"/oauth/token", "classdesk-gateway", "test-secret")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := ts.Token(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "tok-shared", tok)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), tokenHits.Load(), "concurrent refreshes must collapse into one token request")
}
