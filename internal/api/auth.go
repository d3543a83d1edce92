package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

type contextKey string

const callerKey contextKey = "api_caller"

// APIKeyLookup checks a sha256 key hash against the key store.
type APIKeyLookup func(ctx context.Context, keyHash string) (ok bool, err error)

// AuthMiddleware authenticates control-plane requests by API key header or
// bearer JWT. The resolved caller identity (key hash or JWT subject) scopes
// pipeline access.
type AuthMiddleware struct {
	jwtSecret    []byte
	apiKeyLookup APIKeyLookup
}

func NewAuthMiddleware(jwtSecret string, apiKeyLookup APIKeyLookup) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret:    []byte(jwtSecret),
		apiKeyLookup: apiKeyLookup,
	}
}

// ExtractCaller resolves the request's identity. API key wins over JWT.
func (a *AuthMiddleware) ExtractCaller(r *http.Request) (string, error) {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		if a.apiKeyLookup == nil {
			return "", fmt.Errorf("API key auth not configured")
		}
		hash := sha256.Sum256([]byte(apiKey))
		keyHash := hex.EncodeToString(hash[:])
		ok, err := a.apiKeyLookup(r.Context(), keyHash)
		if err != nil {
			return "", fmt.Errorf("API key lookup failed: %w", err)
		}
		if !ok {
			return "", fmt.Errorf("invalid API key")
		}
		return keyHash, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing Authorization header or X-API-Key")
	}
	tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

	token, err := jwtlib.Parse(tokenStr, func(token *jwtlib.Token) (any, error) {
		if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid JWT: %w", err)
	}
	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid JWT claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("JWT missing sub claim")
	}
	return sub, nil
}

// Middleware wraps handlers that require authentication.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		caller, err := a.ExtractCaller(r)
		if err != nil {
			http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), callerKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerFromContext returns the authenticated caller id, or "".
func CallerFromContext(ctx context.Context) string {
	v, _ := ctx.Value(callerKey).(string)
	return v
}
