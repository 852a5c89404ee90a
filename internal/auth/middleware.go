package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// TokenCookieName is the HttpOnly cookie the browser session carries its JWT in.
const TokenCookieName = "token"

// Messages returned in the {"error": ...} body of a 401.
const (
	MsgNoToken      = "No authentication token, access denied"
	MsgInvalidToken = "Token is not valid"
)

// contextKey is package-private so no other package can read or shadow
// the values stored under it.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// The token is read from "Authorization: Bearer <jwt>" first, then from the
// "token" cookie. A missing token and a token that fails validation (bad
// signature, expired, unknown issuer) both stop the chain with a 401, but with
// different messages so clients can tell "not logged in" from "log in again".
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := TokenFromRequest(r)
			if raw == "" {
				writeUnauthorized(w, MsgNoToken)
				return
			}

			userID, err := tokens.Validate(raw)
			if err != nil {
				writeUnauthorized(w, MsgInvalidToken)
				return
			}

			ctx := WithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest returns the bearer token from the Authorization header,
// falling back to the token cookie when the header is absent or carries an
// empty bearer value. It returns "" when neither yields a token.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if token = strings.TrimSpace(token); token != "" {
				return token
			}
		}
	}

	if cookie, err := r.Cookie(TokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// WithUserID returns a copy of ctx carrying the authenticated user ID.
// Handler tests use it to skip the middleware.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext retrieves the authenticated user's ID from the request context.
// Returns ("", false) outside of RequireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
