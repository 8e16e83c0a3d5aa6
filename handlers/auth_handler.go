package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/audio-upload-service/middleware"
	"github.com/upb/audio-upload-service/tokens"
	"github.com/upb/audio-upload-service/utils"
	"go.uber.org/zap"
)

const maxJSONBodyBytes = 1 << 20

// RefreshRequest is the body of POST /api/v1/auth/token/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// SessionIssuer runs the provider login flow and token refresh
type SessionIssuer interface {
	AuthorizeURL(providerName string) (string, error)
	CompleteLogin(ctx context.Context, providerName, code string) (*tokens.Pair, error)
	Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error)
}

// AuthHandler handles login and token HTTP requests
type AuthHandler struct {
	sessions SessionIssuer
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(sessions SessionIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// HandleLogin handles GET /api/v1/auth/{provider}/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	target, err := h.sessions.AuthorizeURL(provider)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("redirecting to identity provider",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("provider", provider))

	http.Redirect(w, r, target, http.StatusFound)
}

// HandleCallback handles GET /api/v1/auth/{provider}/callback
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := chi.URLParam(r, "provider")
	query := r.URL.Query()

	if providerErr := query.Get("error"); providerErr != "" {
		h.logger.Warn("provider returned an error to the callback",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.String("provider", provider),
			zap.String("error", providerErr),
			zap.String("error_description", query.Get("error_description")))
	}

	pair, err := h.sessions.CompleteLogin(ctx, provider, query.Get("code"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, pair); err != nil {
		h.logger.Error("failed to write token response", zap.Error(err))
	}
}

// HandleRefresh handles POST /api/v1/auth/token/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, pair); err != nil {
		h.logger.Error("failed to write token response", zap.Error(err))
	}
}
