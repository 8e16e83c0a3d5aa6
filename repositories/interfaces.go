package repositories

import (
	"context"
	"errors"

	"github.com/upb/audio-upload-service/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a write violates a unique constraint
	ErrDuplicate = errors.New("duplicate record")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// LoginAttributes are the principal attributes reported by the identity
// provider on a successful login
type LoginAttributes struct {
	ExternalID  string
	Email       string
	FirstName   string
	LastName    string
	DisplayName string
	IsSuperuser bool
}

// UserRepository handles user data operations
type UserRepository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByExternalID retrieves a user by provider identity key
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)

	// UpsertFromLogin creates the user on first login or re-synchronises the
	// superuser flag of an existing user, in a single statement
	UpsertFromLogin(ctx context.Context, attrs LoginAttributes) (*models.User, error)

	// UpdateProfile persists the self-editable profile fields of the user
	UpdateProfile(ctx context.Context, user *models.User) error

	// Delete deletes a user
	Delete(ctx context.Context, id int64) error
}

// AudioRepository handles audio file data operations
type AudioRepository interface {
	// Create creates a new audio file record
	Create(ctx context.Context, file *models.AudioFile) error

	// ListByOwner retrieves a user's audio files, newest first, with pagination
	ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*models.AudioFile, error)

	// DeleteByOwner deletes all audio file records of a user and returns the
	// stored paths of the deleted rows
	DeleteByOwner(ctx context.Context, ownerID int64) ([]string, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users      UserRepository
	AudioFiles AudioRepository
}
