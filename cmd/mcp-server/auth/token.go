package auth

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

// CallerContextKey holds the authenticated *Caller on request contexts
const CallerContextKey contextKey = "caller"

// Caller identifies who made an authenticated request
type Caller struct {
	Subject string
	Service bool // authenticated with the static service token
}

// Verifier checks a bearer token
type Verifier interface {
	VerifyToken(token string) (*Caller, error)
}

// JWTVerifier validates HS256 tokens signed with a shared secret
type JWTVerifier struct {
	secret   []byte
	audience string
}

// NewJWTVerifier creates a verifier; an empty audience skips the aud check
func NewJWTVerifier(secret, audience string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), audience: audience}
}

// VerifyToken verifies signature, expiry and audience
func (v *JWTVerifier) VerifyToken(tokenString string) (*Caller, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("missing subject")
	}

	return &Caller{Subject: claims.Subject}, nil
}

// ServiceTokenVerifier compares a static token against its bcrypt hash
type ServiceTokenVerifier struct {
	hash []byte
}

// NewServiceTokenVerifier creates a verifier for a bcrypt hash
func NewServiceTokenVerifier(hash string) *ServiceTokenVerifier {
	return &ServiceTokenVerifier{hash: []byte(hash)}
}

// VerifyToken checks token against the stored hash
func (v *ServiceTokenVerifier) VerifyToken(token string) (*Caller, error) {
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(token)); err != nil {
		return nil, fmt.Errorf("service token mismatch")
	}
	return &Caller{Subject: "service_account", Service: true}, nil
}

// Chain tries each verifier in order and returns the first success
type Chain []Verifier

// VerifyToken returns the last error when no verifier accepts the token
func (c Chain) VerifyToken(token string) (*Caller, error) {
	err := fmt.Errorf("no verifier configured")
	for _, v := range c {
		caller, verr := v.VerifyToken(token)
		if verr == nil {
			return caller, nil
		}
		err = verr
	}
	return nil, err
}

// VerifierFromEnv builds verifiers from MCP_JWT_SECRET, MCP_JWT_AUDIENCE and
// MCP_SERVICE_TOKEN_HASH. It returns nil when none are set.
func VerifierFromEnv() Verifier {
	var chain Chain
	if hash := os.Getenv("MCP_SERVICE_TOKEN_HASH"); hash != "" {
		chain = append(chain, NewServiceTokenVerifier(hash))
	}
	if secret := os.Getenv("MCP_JWT_SECRET"); secret != "" {
		chain = append(chain, NewJWTVerifier(secret, os.Getenv("MCP_JWT_AUDIENCE")))
	}
	if len(chain) == 0 {
		return nil
	}
	return chain
}

// CallerFromContext extracts the authenticated caller
func CallerFromContext(ctx context.Context) (*Caller, bool) {
	caller, ok := ctx.Value(CallerContextKey).(*Caller)
	return caller, ok
}

// ExtractTokenFromHeader extracts the bearer token from the Authorization header
func ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// ExtractTokenFromQuery extracts the token query parameter (EventSource cannot set headers)
func ExtractTokenFromQuery(r *http.Request) string {
	return r.URL.Query().Get("token")
}
