package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/foodgram/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
//
// A package-private key type means no other package can read or shadow the
// user id stored here, even by guessing the string.
type contextKey string

const userIDKey contextKey = "userID"

// CookieName is the cookie the GitHub sign-in flow stores the token in.
const CookieName = "token"

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the token (see TokenFromRequest), validates it and stores the user
// id in the request context. A missing or invalid token stops the chain with
// 401 Unauthorized.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware takes an http.Handler and returns a new one that wraps it.
// Chi applies them in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"authentication credentials were not provided or are invalid"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// OptionalAuth extracts the user identity if a valid token is present, but
// never blocks the request. Public reads (recipe lists, profiles) use it so
// logged-in viewers get their is_favorited / is_subscribed flags.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, tokens); err == nil {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context. Returns (0, false) for anonymous requests.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id != model.Anonymous
}

// Actor returns the acting user id, or model.Anonymous.
func Actor(ctx context.Context) int64 {
	id, _ := UserIDFromContext(ctx)
	return id
}

// TokenFromRequest finds a token in, by priority:
//
//	Authorization: Token <jwt>
//	Authorization: Bearer <jwt>
//	Cookie: token=<jwt>
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
		if ok && (strings.EqualFold(scheme, "Token") || strings.EqualFold(scheme, "Bearer")) {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func extractUserID(r *http.Request, tokens *TokenService) (int64, error) {
	return tokens.Validate(TokenFromRequest(r))
}
