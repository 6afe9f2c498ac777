package auth

import (
	"context"
	"fmt"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims the backend embeds in its bearer tokens.
type TokenClaims struct {
	jwt.RegisteredClaims
	UID  string `json:"uid,omitempty"`
	Role string `json:"role,omitempty"`
}

// TokenValidator verifies a stored bearer token without tying callers to a
// specific signing setup. Used by Manager.Start when eager validation is on.
type TokenValidator interface {
	Validate(ctx context.Context, tokenString string) (*TokenClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(ctx context.Context, tokenString string) (*TokenClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(ctx context.Context, tokenString string) (*TokenClaims, error) {
	if f == nil {
		return nil, fmt.Errorf("no token validator configured")
	}
	return f(ctx, tokenString)
}

// PeekClaims decodes claims WITHOUT verifying the signature. Useful for
// reading the expiry or subject of a token the backend already vouched for;
// never use it as an authentication check.
func PeekClaims(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// JWKSValidator verifies tokens against the backend's published JWK Set.
type JWKSValidator struct {
	jwks *keyfunc.JWKS
}

var _ TokenValidator = (*JWKSValidator)(nil)

// NewJWKSValidator fetches the JWK Set from the given endpoint. The set is
// cached for the lifetime of the validator.
func NewJWKSValidator(jwksURL string) (*JWKSValidator, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to get JWK Set from %s: %w", jwksURL, err)
	}
	return &JWKSValidator{jwks: jwks}, nil
}

func (v *JWKSValidator) Validate(_ context.Context, tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.jwks.Keyfunc)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}

// HMACValidator verifies tokens signed with a shared secret.
type HMACValidator struct {
	secret []byte
}

var _ TokenValidator = (*HMACValidator)(nil)

func NewHMACValidator(secret []byte) *HMACValidator {
	return &HMACValidator{secret: secret}
}

func (v *HMACValidator) Validate(_ context.Context, tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}
