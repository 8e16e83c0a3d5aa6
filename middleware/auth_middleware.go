package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/upb/audio-upload-service/models"
	"github.com/upb/audio-upload-service/services"
	"github.com/upb/audio-upload-service/utils"
	"go.uber.org/zap"
)

const credentialsMessage = "Could not validate credentials"

// Authenticator resolves an access token to the principal it was issued for
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// AuthMiddleware guards routes behind a bearer access token
type AuthMiddleware struct {
	authenticator Authenticator
	logger        *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(authenticator Authenticator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
		logger:        logger,
	}
}

// RequireAuth is a middleware that requires a valid access token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractBearerToken(r)
		if token == "" {
			m.logger.Debug("missing bearer token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, credentialsMessage)
			return
		}

		user, err := m.authenticator.Authenticate(ctx, token)
		if err != nil {
			if services.IsUnauthorizedError(err) {
				m.logger.Debug("token rejected",
					zap.String("request_id", requestID),
					zap.Error(err))
				_ = utils.WriteUnauthorized(w, credentialsMessage)
				return
			}
			m.logger.Error("failed to resolve principal",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.Int64("user_id", user.ID))

		next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
	})
}

// RequireSuperuser is a middleware that admits only superusers.
// It must run after RequireAuth.
func (m *AuthMiddleware) RequireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		user := GetUserFromContext(ctx)
		if user == nil {
			m.logger.Error("principal not found in context",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, credentialsMessage)
			return
		}

		if !user.IsSuperuser {
			m.logger.Warn("insufficient permissions",
				zap.String("request_id", requestID),
				zap.Int64("user_id", user.ID))
			_ = utils.WriteForbidden(w, services.ErrForbidden.Message)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
