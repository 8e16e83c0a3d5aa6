package services

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
	"github.com/upb/audio-upload-service/identity"
	"github.com/upb/audio-upload-service/models"
	"github.com/upb/audio-upload-service/repositories"
	"github.com/upb/audio-upload-service/storage"
)

// MockProvider is a mock implementation of identity.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	return "yandex"
}

func (m *MockProvider) AuthorizeURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) FetchProfile(ctx context.Context, accessToken string) (*identity.Profile, error) {
	args := m.Called(ctx, accessToken)
	if p := args.Get(0); p != nil {
		return p.(*identity.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	args := m.Called(ctx, externalID)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) UpsertFromLogin(ctx context.Context, attrs repositories.LoginAttributes) (*models.User, error) {
	args := m.Called(ctx, attrs)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockAudioRepository is a mock implementation of repositories.AudioRepository
type MockAudioRepository struct {
	mock.Mock
}

func (m *MockAudioRepository) Create(ctx context.Context, file *models.AudioFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockAudioRepository) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*models.AudioFile, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if f := args.Get(0); f != nil {
		return f.([]*models.AudioFile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAudioRepository) DeleteByOwner(ctx context.Context, ownerID int64) ([]string, error) {
	args := m.Called(ctx, ownerID)
	if p := args.Get(0); p != nil {
		return p.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTransactionManager runs the function inline and records the outcome
type MockTransactionManager struct {
	mock.Mock
	committed  bool
	rolledback bool
}

func (m *MockTransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	if err := fn(ctx, nil); err != nil {
		m.rolledback = true
		return err
	}
	m.committed = true
	return nil
}

// MockStore is a mock implementation of storage.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Save(ctx context.Context, ext string, r io.Reader) (*storage.StoredFile, error) {
	args := m.Called(ctx, ext, r)
	if f := args.Get(0); f != nil {
		return f.(*storage.StoredFile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) Remove(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}
