package services

import (
	"context"
	"errors"

	"github.com/upb/audio-upload-service/models"
	"github.com/upb/audio-upload-service/repositories"
	"github.com/upb/audio-upload-service/storage"
	"go.uber.org/zap"
)

// UserService handles profile edits and administrative deletion
type UserService struct {
	users  repositories.UserRepository
	audio  repositories.AudioRepository
	txMgr  repositories.TransactionManager
	store  storage.Store
	logger *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	users repositories.UserRepository,
	audio repositories.AudioRepository,
	txMgr repositories.TransactionManager,
	store storage.Store,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		users:  users,
		audio:  audio,
		txMgr:  txMgr,
		store:  store,
		logger: logger,
	}
}

// UpdateProfile applies the set fields of update to the user and persists them
func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, update models.ProfileUpdate) (*models.User, error) {
	if update.IsEmpty() {
		return user, nil
	}

	updated := *user
	update.Apply(&updated)

	if err := s.users.UpdateProfile(ctx, &updated); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, Wrap(ErrUserNotFound, err)
		}
		return nil, Wrap(ErrDatabaseError, err)
	}
	return &updated, nil
}

// Delete removes a user and their audio records in one transaction, then
// removes the stored files. File removal failures are logged, not returned.
func (s *UserService) Delete(ctx context.Context, id int64) (*models.User, error) {
	var (
		deleted *models.User
		paths   []string
	)

	err := s.txMgr.InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) error {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return err
		}

		paths, err = s.audio.DeleteByOwner(ctx, id)
		if err != nil {
			return err
		}

		if err := s.users.Delete(ctx, id); err != nil {
			return err
		}
		deleted = user
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, Wrap(ErrUserNotFound, err)
		}
		return nil, Wrap(ErrDatabaseError, err)
	}

	for _, path := range paths {
		if err := s.store.Remove(ctx, path); err != nil {
			s.logger.Warn("failed to remove stored file of deleted user",
				zap.Int64("user_id", id),
				zap.String("path", path),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("user deleted", zap.Int64("user_id", id), zap.Int("files", len(paths)))
	return deleted, nil
}
