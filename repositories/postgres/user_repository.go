package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/audio-upload-service/models"
	"github.com/upb/audio-upload-service/repositories"
	"go.uber.org/zap"
)

const userColumns = `id, external_id, email, first_name, last_name, display_name, is_superuser, created_at, updated_at`

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.ExternalID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.DisplayName,
		&user.IsSuperuser,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByExternalID retrieves a user by provider identity key
func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE external_id = $1`

	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user for external_id %s: %w", externalID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// UpsertFromLogin inserts the user or, when external_id already exists,
// re-synchronises is_superuser and fills names that are still NULL.
// Email and names set earlier are kept.
func (r *UserRepository) UpsertFromLogin(ctx context.Context, attrs repositories.LoginAttributes) (*models.User, error) {
	query := `
		INSERT INTO users (external_id, email, first_name, last_name, display_name, is_superuser, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (external_id) DO UPDATE
		SET is_superuser = EXCLUDED.is_superuser,
		    first_name = COALESCE(users.first_name, EXCLUDED.first_name),
		    last_name = COALESCE(users.last_name, EXCLUDED.last_name),
		    display_name = COALESCE(users.display_name, EXCLUDED.display_name),
		    updated_at = NOW()
		RETURNING ` + userColumns

	candidate := models.NewUser(attrs.ExternalID, attrs.Email, attrs.FirstName, attrs.LastName, attrs.DisplayName, attrs.IsSuperuser)

	executor := GetExecutor(ctx, r.db)
	user, err := scanUser(executor.QueryRowContext(ctx, query,
		candidate.ExternalID,
		candidate.Email,
		candidate.FirstName,
		candidate.LastName,
		candidate.DisplayName,
		candidate.IsSuperuser,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("upsert user %s: %w", attrs.ExternalID, repositories.ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	r.logger.Debug("user upserted",
		zap.Int64("id", user.ID),
		zap.String("external_id", user.ExternalID),
		zap.Bool("is_superuser", user.IsSuperuser),
	)
	return user, nil
}

// UpdateProfile persists first_name, last_name and display_name
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET first_name = $2,
		    last_name = $3,
		    display_name = $4,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		user.ID,
		user.FirstName,
		user.LastName,
		user.DisplayName,
	).Scan(&user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %d: %w", user.ID, repositories.ErrNotFound)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	r.logger.Debug("user updated", zap.Int64("id", user.ID))
	return nil
}

// Delete deletes a user
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM users WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, repositories.ErrNotFound)
	}

	r.logger.Debug("user deleted", zap.Int64("id", id))
	return nil
}
