package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/upb/audio-upload-service/models"
	"github.com/upb/audio-upload-service/repositories"
	"github.com/upb/audio-upload-service/storage"
	"go.uber.org/zap"
)

const (
	// DefaultListLimit is the page size used when none is given
	DefaultListLimit = 100

	// MaxListLimit caps the page size
	MaxListLimit = 1000

	defaultAudioExt = ".mp3"
)

// UploadInput is one audio upload
type UploadInput struct {
	Filename            string // name chosen by the user
	OriginalName        string // client-side file name, used for the extension
	DeclaredContentType string
	Body                io.Reader
}

// AudioService handles audio uploads and listings
type AudioService struct {
	audio  repositories.AudioRepository
	store  storage.Store
	logger *zap.Logger
}

// NewAudioService creates a new audio service
func NewAudioService(audio repositories.AudioRepository, store storage.Store, logger *zap.Logger) *AudioService {
	return &AudioService{
		audio:  audio,
		store:  store,
		logger: logger,
	}
}

// Upload stores the file and records it for owner. The declared content type
// must be audio/*; it is checked before anything is written.
func (s *AudioService) Upload(ctx context.Context, owner *models.User, in UploadInput) (*models.AudioFile, error) {
	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		return nil, ErrEmptyFilename
	}
	if !isAudio(in.DeclaredContentType) {
		return nil, NewDomainError(ErrInvalidFileType.Type, ErrInvalidFileType.Message, nil).
			WithDetail("content_type", in.DeclaredContentType)
	}

	ext := filepath.Ext(in.OriginalName)
	if ext == "" {
		ext = defaultAudioExt
	}

	stored, err := s.store.Save(ctx, ext, in.Body)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, Wrap(ErrFileTooLarge, err)
		}
		return nil, Wrap(ErrStorageError, err)
	}

	contentType := in.DeclaredContentType
	if isAudio(stored.ContentType) {
		contentType = stored.ContentType
	} else {
		s.logger.Debug("sniffed content type is not audio",
			zap.String("declared", in.DeclaredContentType),
			zap.String("sniffed", stored.ContentType),
		)
	}

	file := models.NewAudioFile(owner.ID, filename, stored.Path, contentType, stored.Size)
	if err := s.audio.Create(ctx, file); err != nil {
		if rmErr := s.store.Remove(ctx, stored.Path); rmErr != nil {
			s.logger.Error("failed to remove orphaned upload",
				zap.String("path", stored.Path),
				zap.Error(rmErr),
			)
		}
		return nil, Wrap(ErrDatabaseError, err)
	}

	s.logger.Info("audio file uploaded",
		zap.Int64("id", file.ID),
		zap.Int64("owner_id", owner.ID),
		zap.Int64("size", file.SizeBytes),
		zap.String("content_type", file.ContentType),
	)
	return file, nil
}

// List returns a page of the owner's files, newest first
func (s *AudioService) List(ctx context.Context, ownerID int64, skip, limit int) ([]models.AudioFileInfo, error) {
	if skip < 0 || limit < 0 {
		return nil, ErrInvalidPageParam
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	files, err := s.audio.ListByOwner(ctx, ownerID, limit, skip)
	if err != nil {
		return nil, Wrap(ErrDatabaseError, err)
	}

	infos := make([]models.AudioFileInfo, 0, len(files))
	for _, f := range files {
		infos = append(infos, f.Info())
	}
	return infos, nil
}

func isAudio(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "audio/")
}
