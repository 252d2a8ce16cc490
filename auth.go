package main

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// checkAuth accepts the request when no token is configured, or when the
// token arrives as a bearer header or a "token" query parameter (browser
// websocket clients cannot set headers).
func checkAuth(r *http.Request, token string) bool {
	if token == "" {
		return true
	}
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && tokenEqual(bearer, token) {
		return true
	}
	return tokenEqual(r.URL.Query().Get("token"), token)
}

func tokenEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
