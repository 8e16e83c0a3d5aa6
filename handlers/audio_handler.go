package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/upb/audio-upload-service/middleware"
	"github.com/upb/audio-upload-service/models"
	"github.com/upb/audio-upload-service/services"
	"github.com/upb/audio-upload-service/utils"
	"go.uber.org/zap"
)

const (
	// multipartMemory is how much of a multipart body is kept in memory
	// before spilling to temporary files
	multipartMemory = 8 << 20

	// multipartOverhead allows room for the form fields next to the file
	multipartOverhead = 1 << 20

	maxFilenameLength = 255
)

// AudioManager defines the audio operations exposed over HTTP
type AudioManager interface {
	Upload(ctx context.Context, owner *models.User, in services.UploadInput) (*models.AudioFile, error)
	List(ctx context.Context, ownerID int64, skip, limit int) ([]models.AudioFileInfo, error)
}

// AudioHandler handles audio upload and listing HTTP requests
type AudioHandler struct {
	audio          AudioManager
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewAudioHandler creates a new AudioHandler
func NewAudioHandler(audio AudioManager, maxUploadBytes int64, logger *zap.Logger) *AudioHandler {
	return &AudioHandler{
		audio:          audio,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// HandleUpload handles POST /api/v1/audio/upload
// Expects a multipart form with a "filename" field and a "file" part.
func (h *AudioHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	user := middleware.GetUserFromContext(ctx)
	if user == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = utils.WriteError(w, http.StatusRequestEntityTooLarge, "File exceeds the upload size limit", nil)
			return
		}
		_ = utils.WriteBadRequest(w, "Invalid multipart form", nil)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	filename := r.FormValue("filename")
	if err := utils.ValidateRequired(filename, "filename"); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	if err := utils.ValidateStringLength(filename, "filename", 1, maxFilenameLength); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = utils.WriteBadRequest(w, "file is required", nil)
		return
	}
	defer file.Close()

	h.logger.Debug("receiving upload",
		zap.String("request_id", requestID),
		zap.Int64("user_id", user.ID),
		zap.String("original_name", header.Filename),
		zap.Int64("size", header.Size))

	audioFile, err := h.audio.Upload(ctx, user, services.UploadInput{
		Filename:            filename,
		OriginalName:        header.Filename,
		DeclaredContentType: header.Header.Get("Content-Type"),
		Body:                file,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, audioFile); err != nil {
		h.logger.Error("failed to write upload response", zap.Error(err))
	}
}

// HandleList handles GET /api/v1/audio?skip=&limit=
func (h *AudioHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.GetUserFromContext(ctx)
	if user == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		HandleServiceError(w, services.ErrInvalidPageParam, h.logger)
		return
	}
	limit, err := queryInt(r, "limit", services.DefaultListLimit)
	if err != nil {
		HandleServiceError(w, services.ErrInvalidPageParam, h.logger)
		return
	}

	files, err := h.audio.List(ctx, user.ID, skip, limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, files); err != nil {
		h.logger.Error("failed to write audio list response", zap.Error(err))
	}
}

// queryInt reads an integer query parameter, returning def when it is absent
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
