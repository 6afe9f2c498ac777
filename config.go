package auth

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// SimpleConfig is the plain-struct Config implementation. Fields are
// env-taggable so deployments can configure the client without code.
type SimpleConfig struct {
	BaseURL      string `env:"PORTFOLIO_API_URL" envDefault:"http://localhost:8080"`
	LoginRoute   string `env:"PORTFOLIO_LOGIN_ROUTE" envDefault:"/login"`
	HomeRoute    string `env:"PORTFOLIO_HOME_ROUTE" envDefault:"/"`
	ProfileRoute string `env:"PORTFOLIO_PROFILE_ROUTE" envDefault:"/profile"`
	LoadingView  string `env:"PORTFOLIO_LOADING_VIEW" envDefault:"loading"`
	JWKSEndpoint string `env:"PORTFOLIO_JWKS_ENDPOINT"`
}

var _ Config = (*SimpleConfig)(nil)

// ConfigFromEnv builds a SimpleConfig from the process environment.
func ConfigFromEnv() (*SimpleConfig, error) {
	cfg := &SimpleConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing auth config from env: %w", err)
	}
	return cfg, nil
}

func (c *SimpleConfig) GetBaseURL() string      { return c.BaseURL }
func (c *SimpleConfig) GetLoginRoute() string   { return c.LoginRoute }
func (c *SimpleConfig) GetHomeRoute() string    { return c.HomeRoute }
func (c *SimpleConfig) GetProfileRoute() string { return c.ProfileRoute }
func (c *SimpleConfig) GetLoadingView() string  { return c.LoadingView }
func (c *SimpleConfig) GetJWKSEndpoint() string { return c.JWKSEndpoint }
