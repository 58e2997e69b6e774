package httpx

import (
	"context"
	"net/http"
	"strings"
)

// The gateway authenticates callers and forwards who they are in these
// headers; they are trusted as-is.
const (
	HeaderUserID = "X-User-ID"
	HeaderRole   = "X-User-Role"

	RoleAdmin = "admin"
)

type Principal struct {
	UserID string
	Role   string
}

func (p Principal) Admin() bool { return p.Role == RoleAdmin }

type principalKey struct{}

func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := Principal{
			UserID: strings.TrimSpace(r.Header.Get(HeaderUserID)),
			Role:   strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderRole))),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

func PrincipalFrom(ctx context.Context) Principal {
	p, _ := ctx.Value(principalKey{}).(Principal)
	return p
}

func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFrom(r.Context()).UserID == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing " + HeaderUserID})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !PrincipalFrom(r.Context()).Admin() {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "admin role required"})
			return
		}
		next.ServeHTTP(w, r)
	}))
}
