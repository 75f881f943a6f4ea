// Package api implements the read-only inspection API of the store using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenQueryParam carries the token for clients that cannot set headers,
// such as browser EventSource streams.
const TokenQueryParam = "access_token"

// AuthMiddleware rejects requests without the bearer token when enabled.
// The token is read from the Authorization header, or from TokenQueryParam
// on requests accepting text/event-stream.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			if subtle.ConstantTimeCompare([]byte(requestToken(r)), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="notestore"`)
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestToken(r *http.Request) string {
	if got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return got
	}
	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		return r.URL.Query().Get(TokenQueryParam)
	}
	return ""
}
