package server

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/stayops-systems/sentinel/internal/httputil"
	"github.com/stayops-systems/sentinel/pkg/tokens"
)

type contextKey string

// SubjectKey is the request context key for the authenticated subject.
const SubjectKey contextKey = "subject"

// AuthMiddleware validates bearer JWTs and exchanges API keys for them.
// When disabled it passes every request through, which is the default
// for single-host deployments behind the platform's own gateway.
type AuthMiddleware struct {
	enabled      bool
	generator    *tokens.TokenGenerator
	apiKeyHashes []string
}

// NewAuthMiddleware builds the middleware. apiKeyHashes are bcrypt
// hashes of the accepted machine keys.
func NewAuthMiddleware(enabled bool, generator *tokens.TokenGenerator, apiKeyHashes []string) *AuthMiddleware {
	return &AuthMiddleware{
		enabled:      enabled,
		generator:    generator,
		apiKeyHashes: apiKeyHashes,
	}
}

// RequireAuth wraps a handler with bearer token validation.
func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		claims, err := m.generator.Validate(parts[1])
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), SubjectKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// IssueToken exchanges a valid API key for a short-lived JWT.
// POST /api/v1/auth/token {"api_key": "...", "subject": "..."}
func (m *AuthMiddleware) IssueToken(w http.ResponseWriter, r *http.Request) {
	if !m.enabled {
		httputil.WriteError(w, http.StatusNotFound, "authentication is disabled")
		return
	}

	var body struct {
		APIKey  string `json:"api_key"`
		Subject string `json:"subject"`
	}
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}
	if body.APIKey == "" {
		httputil.WriteError(w, http.StatusBadRequest, "api_key is required")
		return
	}

	if !m.keyAccepted(body.APIKey) {
		// Constant response regardless of which check failed.
		httputil.WriteError(w, http.StatusUnauthorized, "invalid api key")
		return
	}

	subject := body.Subject
	if subject == "" {
		subject = "api-client"
	}
	token, err := m.generator.Generate(subject, []string{"operator"})
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_in": int(m.generator.TTL().Seconds()),
	})
}

func (m *AuthMiddleware) keyAccepted(key string) bool {
	for _, hash := range m.apiKeyHashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil {
			return true
		}
	}
	return false
}
