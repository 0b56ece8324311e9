// Package session keeps short lived per-visitor flags, such as one-shot
// confirmation messages shown after a redirect.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Store keeps string flags per session. A flag is removed by the first
// PopFlag that reads it, or when its TTL runs out.
type Store interface {
	SetFlag(ctx context.Context, sessionID, key, value string, ttl time.Duration) error
	PopFlag(ctx context.Context, sessionID, key string) (value string, ok bool, err error)
}

// CookieConfig controls the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	Domain string
}

type ctxKey struct{}

// Middleware makes sure every request has a session id, issuing a cookie
// for visitors that do not have one yet.
func Middleware(cfg CookieConfig) func(http.Handler) http.Handler {
	if cfg.Name == "" {
		cfg.Name = "session_id"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if cookie, err := r.Cookie(cfg.Name); err == nil {
				if _, err := uuid.Parse(cookie.Value); err == nil {
					id = cookie.Value
				}
			}

			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.Name,
					Value:    id,
					Path:     "/",
					Domain:   cfg.Domain,
					Secure:   cfg.Secure,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}

// WithID stores the session id in ctx.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IDFromContext returns the session id, or "" outside the middleware.
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
