package postgres

import (
	"context"
	"fmt"

	"github.com/upb/audio-upload-service/models"
	"github.com/upb/audio-upload-service/repositories"
	"go.uber.org/zap"
)

// AudioRepository implements the repositories.AudioRepository interface
type AudioRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAudioRepository creates a new audio file repository
func NewAudioRepository(db *DB, logger *zap.Logger) repositories.AudioRepository {
	return &AudioRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the record and fills in its ID and creation time
func (r *AudioRepository) Create(ctx context.Context, file *models.AudioFile) error {
	query := `
		INSERT INTO audio_files (filename, filepath, content_type, size_bytes, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		file.Filename,
		file.Filepath,
		file.ContentType,
		file.SizeBytes,
		file.OwnerID,
	).Scan(&file.ID, &file.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("audio file %s: %w", file.Filepath, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create audio file: %w", err)
	}

	r.logger.Debug("audio file created",
		zap.Int64("id", file.ID),
		zap.Int64("owner_id", file.OwnerID),
		zap.String("filepath", file.Filepath),
	)
	return nil
}

// ListByOwner retrieves a user's audio files, newest first
func (r *AudioRepository) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*models.AudioFile, error) {
	query := `
		SELECT id, filename, filepath, content_type, size_bytes, owner_id, created_at
		FROM audio_files
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query audio files: %w", err)
	}
	defer rows.Close()

	files := make([]*models.AudioFile, 0)
	for rows.Next() {
		file := &models.AudioFile{}
		err := rows.Scan(
			&file.ID,
			&file.Filename,
			&file.Filepath,
			&file.ContentType,
			&file.SizeBytes,
			&file.OwnerID,
			&file.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audio file: %w", err)
		}
		files = append(files, file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audio file rows: %w", err)
	}

	return files, nil
}

// DeleteByOwner deletes all rows of the owner and returns their stored paths
func (r *AudioRepository) DeleteByOwner(ctx context.Context, ownerID int64) ([]string, error) {
	query := `DELETE FROM audio_files WHERE owner_id = $1 RETURNING filepath`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete audio files: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan audio file path: %w", err)
		}
		paths = append(paths, path)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audio file rows: %w", err)
	}

	r.logger.Debug("audio files deleted", zap.Int64("owner_id", ownerID), zap.Int("count", len(paths)))
	return paths, nil
}
