package auth

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
)

// AuthMiddleware creates HTTP middleware for authentication
type AuthMiddleware struct {
	verifier Verifier
	logger   *log.Logger
}

// NewAuthMiddleware creates a new authentication middleware. A nil verifier
// lets every request through.
func NewAuthMiddleware(verifier Verifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   log.New(os.Stderr, "[auth] ", log.LstdFlags),
	}
}

// Enabled reports whether requests are checked
func (m *AuthMiddleware) Enabled() bool {
	return m.verifier != nil
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS preflight
		if r.Method == http.MethodOptions || m.verifier == nil {
			next.ServeHTTP(w, r)
			return
		}

		token := ExtractTokenFromHeader(r)
		if token == "" {
			token = ExtractTokenFromQuery(r)
		}
		if token == "" {
			http.Error(w, "Unauthorized: missing authentication token", http.StatusUnauthorized)
			return
		}

		caller, err := m.verifier.VerifyToken(token)
		if err != nil {
			m.logger.Printf("rejected %s %s from %s: %v", r.Method, r.URL.Path, r.RemoteAddr, err)
			http.Error(w, fmt.Sprintf("Unauthorized: %v", err), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), CallerContextKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HandlerFunc wraps an HTTP handler function with authentication
func (m *AuthMiddleware) HandlerFunc(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.Handler(next).ServeHTTP(w, r)
	}
}
