package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"zoom-meetings-api/internal/logging"
	"zoom-meetings-api/internal/tokencache"
)

type ctxKey string

const (
	UserIDKey ctxKey = "uid"
	TokenKey  ctxKey = "zoom_token"
)

// LoginPath is where unauthorized requests are sent to start the OAuth flow.
const LoginPath = "/zoom/login"

// Sessions resolves the signed-in user of a request.
type Sessions interface {
	UserID(r *http.Request) (string, bool)
}

// RequireZoomToken lets a request through only when its user has a cached
// Zoom token; otherwise it redirects to LoginPath without calling next.
// The user id and token are put in the request context.
func RequireZoomToken(sess Sessions, cache tokencache.Cache, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, ok := sess.UserID(r)
			if !ok {
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}

			tok, err := cache.Get(r.Context(), uid)
			if err != nil {
				if !errors.Is(err, tokencache.ErrNotFound) {
					logger.Error("token cache read failed", logging.UserID(uid), logging.Err(err))
				}
				http.Redirect(w, r, LoginPath, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, uid)
			ctx = context.WithValue(ctx, TokenKey, tok)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID returns the user id stored by RequireZoomToken.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// Token returns the Zoom token stored by RequireZoomToken.
func Token(ctx context.Context) *oauth2.Token {
	tok, _ := ctx.Value(TokenKey).(*oauth2.Token)
	return tok
}
