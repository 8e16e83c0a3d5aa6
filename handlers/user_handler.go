package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/upb/audio-upload-service/middleware"
	"github.com/upb/audio-upload-service/models"
	"github.com/upb/audio-upload-service/utils"
	"go.uber.org/zap"
)

// UserManager defines the user operations exposed over HTTP
type UserManager interface {
	UpdateProfile(ctx context.Context, user *models.User, update models.ProfileUpdate) (*models.User, error)
	Delete(ctx context.Context, id int64) (*models.User, error)
}

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	users  UserManager
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserManager, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// HandleGetMe handles GET /api/v1/users/me
func (h *UserHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	if err := utils.WriteOK(w, user); err != nil {
		h.logger.Error("failed to write user response", zap.Error(err))
	}
}

// HandleUpdateMe handles PATCH /api/v1/users/me
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.GetUserFromContext(ctx)
	if user == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var update models.ProfileUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&update); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&update); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	updated, err := h.users.UpdateProfile(ctx, user, update)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("profile updated",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.Int64("user_id", updated.ID))

	if err := utils.WriteOK(w, updated); err != nil {
		h.logger.Error("failed to write user response", zap.Error(err))
	}
}

// HandleDeleteUser handles DELETE /api/v1/users/{user_id}. Superuser only.
func (h *UserHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid user ID", nil)
		return
	}

	deleted, err := h.users.Delete(ctx, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	actor := middleware.GetUserFromContext(ctx)
	fields := []zap.Field{
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.Int64("user_id", deleted.ID),
	}
	if actor != nil {
		fields = append(fields, zap.Int64("deleted_by", actor.ID))
	}
	h.logger.Info("user deleted by superuser", fields...)

	if err := utils.WriteOK(w, deleted); err != nil {
		h.logger.Error("failed to write user response", zap.Error(err))
	}
}
