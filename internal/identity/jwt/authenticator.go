// Package jwt issues and validates HS256 access tokens.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/comment-notifications/internal/domain"
	"github.com/bissquit/comment-notifications/internal/identity"
	"github.com/bissquit/comment-notifications/internal/pkg/httputil"
	gojwt "github.com/golang-jwt/jwt/v5"
)

const issuer = "comment-notifications"

// Config holds token settings.
type Config struct {
	Secret              string
	AccessTokenDuration time.Duration
}

type claims struct {
	Role domain.Role `json:"role"`
	gojwt.RegisteredClaims
}

// Authenticator implements identity.Authenticator with signed JWTs.
type Authenticator struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

var _ identity.Authenticator = (*Authenticator)(nil)

// NewAuthenticator creates a new JWT authenticator.
func NewAuthenticator(cfg Config) (*Authenticator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret is required")
	}
	if cfg.AccessTokenDuration <= 0 {
		cfg.AccessTokenDuration = 24 * time.Hour
	}
	return &Authenticator{
		secret:   []byte(cfg.Secret),
		duration: cfg.AccessTokenDuration,
		now:      time.Now,
	}, nil
}

// GenerateToken issues an access token for user.
func (a *Authenticator) GenerateToken(_ context.Context, user *domain.User) (string, error) {
	now := a.now()
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims{
		Role: user.Role,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(a.duration)),
		},
	})

	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks the signature and expiry of token.
// Expired tokens yield httputil.ErrTokenExpired, other failures identity.ErrInvalidToken.
func (a *Authenticator) ValidateToken(_ context.Context, token string) (string, domain.Role, error) {
	var c claims
	_, err := gojwt.ParseWithClaims(token, &c, func(*gojwt.Token) (any, error) {
		return a.secret, nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithIssuer(issuer),
		gojwt.WithTimeFunc(a.now),
	)
	if err != nil {
		if errors.Is(err, gojwt.ErrTokenExpired) {
			return "", "", httputil.ErrTokenExpired
		}
		return "", "", fmt.Errorf("%w: %v", identity.ErrInvalidToken, err)
	}

	if c.Subject == "" {
		return "", "", identity.ErrInvalidToken
	}
	return c.Subject, c.Role, nil
}
