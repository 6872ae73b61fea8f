package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/AnshRaj112/visited-regions-backend/internal/models"
)

type contextKey string

const (
	sessionKey contextKey = "session"
	tokenKey   contextKey = "session_token"
)

// SessionResolver turns a bearer token into a session; nil means anonymous.
type SessionResolver interface {
	CurrentSession(ctx context.Context, token string) (*models.Session, error)
}

// Session loads the caller's session into the request context. The token is
// read from "Authorization: Bearer <token>", falling back to ?token= for
// browser WebSocket clients. Requests without a valid token pass through
// anonymously.
func Session(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			sess, err := resolver.CurrentSession(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusServiceUnavailable, "Session store unavailable. Please try again.")
				return
			}
			ctx := context.WithValue(r.Context(), tokenKey, token)
			if sess != nil {
				ctx = context.WithValue(ctx, sessionKey, sess)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Please sign in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with 401 and non-admins with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "Please sign in")
			return
		}
		if !sess.IsAdmin {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFromContext returns the caller's session, or nil for anonymous requests.
func SessionFromContext(ctx context.Context) *models.Session {
	sess, _ := ctx.Value(sessionKey).(*models.Session)
	return sess
}

// TokenFromContext returns the raw token the session was loaded from.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// WithSession stores sess in ctx. Used by tests and background jobs.
func WithSession(ctx context.Context, sess *models.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// BearerToken extracts the session token from the request.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
