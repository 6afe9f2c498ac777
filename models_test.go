package auth_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auth "github.com/webfolio/go-portfolio-auth"
)

func TestNormalizedRoleDefaultsToUser(t *testing.T) {
	var nilUser *auth.User
	assert.Equal(t, auth.RoleUser, nilUser.NormalizedRole())

	assert.Equal(t, auth.RoleUser, (&auth.User{}).NormalizedRole())
	assert.Equal(t, auth.RoleAdmin, (&auth.User{Role: "admin"}).NormalizedRole())
	assert.Equal(t, auth.RoleAdmin, (&auth.User{Role: "ADMIN"}).NormalizedRole())
}

func TestHasRoleIsCaseInsensitive(t *testing.T) {
	user := &auth.User{Role: "Admin"}

	assert.True(t, user.HasRole("admin"))
	assert.True(t, user.HasRole("ADMIN"))
	assert.False(t, user.HasRole("user"))

	var nilUser *auth.User
	assert.False(t, nilUser.HasRole("admin"))
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, (&auth.User{Role: "admin"}).IsAdmin())
	assert.False(t, (&auth.User{Role: "USER"}).IsAdmin())
	assert.False(t, (&auth.User{}).IsAdmin())
}

func TestUserUnmarshalsBackendPayload(t *testing.T) {
	payload := `{"id":1,"fullName":"Ada Lovelace","email":"ada@example.com","role":"ADMIN","enabled":true}`

	user := &auth.User{}
	require.NoError(t, json.Unmarshal([]byte(payload), user))

	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "Ada Lovelace", user.FullName)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.True(t, user.IsAdmin())
	assert.True(t, user.Enabled)
}

func TestParseRole(t *testing.T) {
	role, ok := auth.ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleAdmin, role)

	role, ok = auth.ParseRole("")
	assert.False(t, ok)
	assert.Equal(t, auth.RoleUser, role)

	role, ok = auth.ParseRole("superuser")
	assert.False(t, ok)
	assert.Equal(t, auth.RoleUser, role)
}
