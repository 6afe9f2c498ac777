package social

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auth "github.com/webfolio/go-portfolio-auth"
)

type stubSessionWriter struct {
	user *auth.User
	err  error
}

func (s *stubSessionWriter) SetUserFromOAuth(_ context.Context, user *auth.User) (*auth.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.user = user
	return user, nil
}

func TestReconcileEmbeddedUserSkipsEndpoint(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	session := &stubSessionWriter{}
	reconciler := NewReconciler(server.URL, session, auth.NewMemoryStore())

	embedded := url.QueryEscape(`{"id":1,"fullName":"Ada Lovelace","email":"ada@example.com","role":"USER"}`)

	user, err := reconciler.Reconcile(context.Background(), embedded)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "ada@example.com", user.Email)

	assert.Zero(t, hits, "embedded payload must not trigger the fallback")
	assert.Equal(t, user, session.user)
}

func TestReconcileEmbeddedParseErrorDoesNotFallThrough(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	session := &stubSessionWriter{}
	reconciler := NewReconciler(server.URL, session, auth.NewMemoryStore())

	_, err := reconciler.Reconcile(context.Background(), "{definitely not json")
	require.Error(t, err)
	assert.Equal(t, TextCodeParseError, RedirectCode(err))

	assert.Zero(t, hits, "a malformed embedded payload must not fall back to the endpoint")
	assert.Nil(t, session.user)
}

func TestReconcileEmbeddedBadEscapingIsParseError(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	session := &stubSessionWriter{}
	reconciler := NewReconciler(server.URL, session, auth.NewMemoryStore())

	// %zz is not valid percent-encoding.
	_, err := reconciler.Reconcile(context.Background(), `%zz{"id":1}`)
	require.Error(t, err)
	assert.Equal(t, TextCodeParseError, RedirectCode(err))

	assert.Zero(t, hits)
	assert.Nil(t, session.user)
}

func TestReconcileFallbackSuccess(t *testing.T) {
	ctx := context.Background()
	store := auth.NewMemoryStore()
	require.NoError(t, store.SetToken(ctx, "t1"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/oauth/success", r.URL.Path)
		require.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"user":  map[string]any{"id": 4, "email": "oauth@example.com"},
			"token": "t2",
		})
	}))
	defer server.Close()

	session := &stubSessionWriter{}
	reconciler := NewReconciler(server.URL, session, store)

	user, err := reconciler.Reconcile(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), user.ID)

	// The refreshed token from the exchange replaces the stored one.
	token, ok := store.Token(ctx)
	require.True(t, ok)
	assert.Equal(t, "t2", token)
}

func TestReconcileFallbackRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	reconciler := NewReconciler(server.URL, &stubSessionWriter{}, auth.NewMemoryStore())

	_, err := reconciler.Reconcile(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, TextCodeOAuthFailed, RedirectCode(err))
}

func TestReconcileFallbackNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listening anymore

	reconciler := NewReconciler(server.URL, &stubSessionWriter{}, auth.NewMemoryStore())

	_, err := reconciler.Reconcile(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, TextCodeNetworkError, RedirectCode(err))
}

func TestReconcileFallbackMissingUserIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token": "t2"})
	}))
	defer server.Close()

	reconciler := NewReconciler(server.URL, &stubSessionWriter{}, auth.NewMemoryStore())

	_, err := reconciler.Reconcile(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, TextCodeOAuthFailed, RedirectCode(err))
}

func TestReconcileFallbackSuccessFalseIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"user":    map[string]any{"id": 7, "role": "ADMIN"},
		})
	}))
	defer server.Close()

	session := &stubSessionWriter{}
	reconciler := NewReconciler(server.URL, session, auth.NewMemoryStore())

	_, err := reconciler.Reconcile(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, TextCodeOAuthFailed, RedirectCode(err))
	assert.Nil(t, session.user, "a failed exchange must not install a user")
}

func TestRedirectCodeCollapsesUnknownErrors(t *testing.T) {
	assert.Equal(t, "", RedirectCode(nil))
	assert.Equal(t, TextCodeOAuthFailed, RedirectCode(assert.AnError))
	assert.Equal(t, TextCodeParseError, RedirectCode(ErrParse))
	assert.Equal(t, TextCodeNetworkError, RedirectCode(ErrNetwork))
}
