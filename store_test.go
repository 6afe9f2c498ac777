package auth_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auth "github.com/webfolio/go-portfolio-auth"
)

func TestMemoryStoreUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := auth.NewMemoryStore()

	user, err := store.GetCurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)

	want := &auth.User{ID: 7, FullName: "Ada Lovelace", Email: "ada@example.com", Role: "ADMIN"}
	require.NoError(t, store.SetUser(ctx, want))

	got, err := store.GetCurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Email, got.Email)
}

func TestMemoryStoreMalformedUserTreatedAsAbsent(t *testing.T) {
	ctx := context.Background()
	store := auth.NewMemoryStore()

	require.NoError(t, store.SetString(ctx, auth.KeyUser, "{not json"))

	user, err := store.GetCurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestMemoryStoreLogoutClearsSessionKeysOnly(t *testing.T) {
	ctx := context.Background()
	store := auth.NewMemoryStore()

	require.NoError(t, store.SetToken(ctx, "t1"))
	require.NoError(t, store.SetUser(ctx, &auth.User{ID: 1}))
	require.NoError(t, store.SetString(ctx, auth.KeyRememberMe, "true"))
	require.NoError(t, store.SetString(ctx, auth.KeySavedEmail, "ada@example.com"))
	require.NoError(t, store.SetString(ctx, auth.KeyTheme, "dark"))

	require.NoError(t, store.Logout(ctx))

	_, ok := store.Token(ctx)
	assert.False(t, ok)
	user, err := store.GetCurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)
	_, ok = store.GetString(ctx, auth.KeyRememberMe)
	assert.False(t, ok)
	_, ok = store.GetString(ctx, auth.KeySavedEmail)
	assert.False(t, ok)

	// Preferences survive a logout.
	theme, ok := store.GetString(ctx, auth.KeyTheme)
	assert.True(t, ok)
	assert.Equal(t, "dark", theme)

	// A second logout with nothing left is a no-op.
	require.NoError(t, store.Logout(ctx))
}

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	db, err := auth.OpenDefaultDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	store, err := auth.NewSessionStore(db, "http://localhost:8080")
	require.NoError(t, err)
	require.NoError(t, store.Init(ctx))

	_, ok := store.Token(ctx)
	assert.False(t, ok)

	require.NoError(t, store.SetToken(ctx, "t1"))
	token, ok := store.Token(ctx)
	require.True(t, ok)
	assert.Equal(t, "t1", token)

	// Upsert replaces in place.
	require.NoError(t, store.SetToken(ctx, "t2"))
	token, ok = store.Token(ctx)
	require.True(t, ok)
	assert.Equal(t, "t2", token)

	require.NoError(t, store.SetUser(ctx, &auth.User{ID: 3, Email: "ada@example.com"}))
	user, err := store.GetCurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(3), user.ID)

	require.NoError(t, store.Logout(ctx))
	_, ok = store.Token(ctx)
	assert.False(t, ok)
}

func TestSessionStoreNamespacesByOrigin(t *testing.T) {
	ctx := context.Background()

	db, err := auth.OpenDefaultDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	local, err := auth.NewSessionStore(db, "http://localhost:8080")
	require.NoError(t, err)
	require.NoError(t, local.Init(ctx))

	prod, err := auth.NewSessionStore(db, "https://api.example.com")
	require.NoError(t, err)

	require.NoError(t, local.SetToken(ctx, "local-token"))

	_, ok := prod.Token(ctx)
	assert.False(t, ok, "token must not leak across backend origins")
}

func TestSessionStoreSealedToken(t *testing.T) {
	ctx := context.Background()

	db, err := auth.OpenDefaultDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	key := bytes.Repeat([]byte{0x42}, 32)
	sealer, err := auth.NewTokenSealer(key)
	require.NoError(t, err)

	store, err := auth.NewSessionStore(db, "http://localhost:8080",
		auth.WithStoreSealer(sealer),
	)
	require.NoError(t, err)
	require.NoError(t, store.Init(ctx))

	require.NoError(t, store.SetToken(ctx, "secret-token"))

	token, ok := store.Token(ctx)
	require.True(t, ok)
	assert.Equal(t, "secret-token", token)

	// The raw stored value must not be the plaintext token.
	raw, ok := store.GetString(ctx, auth.KeyToken)
	require.True(t, ok)
	assert.NotEqual(t, "secret-token", raw)
}

func TestTokenSealerRejectsBadKeyAndPayload(t *testing.T) {
	_, err := auth.NewTokenSealer([]byte("short"))
	assert.Error(t, err)

	sealer, err := auth.NewTokenSealer(bytes.Repeat([]byte{0x01}, 32))
	require.NoError(t, err)

	sealed, err := sealer.Seal([]byte("hello"))
	require.NoError(t, err)

	plain, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), plain)

	_, err = sealer.Open([]byte("too-short"))
	assert.Error(t, err)

	// Tampering breaks the seal.
	sealed[len(sealed)-1] ^= 0xff
	_, err = sealer.Open(sealed)
	assert.Error(t, err)
}

func TestPendingActionConsumedOnce(t *testing.T) {
	ctx := context.Background()
	store := auth.NewMemoryStore()

	_, ok := auth.ConsumePendingAction(ctx, store)
	assert.False(t, ok)

	require.NoError(t, auth.RecordPendingAction(ctx, store, auth.ActionDownloadCV))

	action, ok := auth.ConsumePendingAction(ctx, store)
	require.True(t, ok)
	assert.Equal(t, auth.ActionDownloadCV, action)

	_, ok = auth.ConsumePendingAction(ctx, store)
	assert.False(t, ok, "pending action must be consumed at most once")
}

func TestRecordPendingActionIgnoresEmpty(t *testing.T) {
	ctx := context.Background()
	store := auth.NewMemoryStore()

	require.NoError(t, auth.RecordPendingAction(ctx, store, ""))

	_, ok := store.GetString(ctx, auth.KeyPendingAction)
	assert.False(t, ok)
}
