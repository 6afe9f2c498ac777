package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auth "github.com/webfolio/go-portfolio-auth"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	cfg, err := auth.ConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.GetBaseURL())
	assert.Equal(t, "/login", cfg.GetLoginRoute())
	assert.Equal(t, "/", cfg.GetHomeRoute())
	assert.Equal(t, "/profile", cfg.GetProfileRoute())
	assert.Equal(t, "loading", cfg.GetLoadingView())
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("PORTFOLIO_API_URL", "https://api.example.com")
	t.Setenv("PORTFOLIO_LOGIN_ROUTE", "/signin")
	t.Setenv("PORTFOLIO_JWKS_ENDPOINT", "https://api.example.com/.well-known/jwks.json")

	cfg, err := auth.ConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.GetBaseURL())
	assert.Equal(t, "/signin", cfg.GetLoginRoute())
	assert.Equal(t, "https://api.example.com/.well-known/jwks.json", cfg.GetJWKSEndpoint())
}
