package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/upb/audio-upload-service/middleware"
	"github.com/upb/audio-upload-service/models"
	"github.com/upb/audio-upload-service/services"
	"github.com/upb/audio-upload-service/tokens"
)

// MockSessionIssuer is a mock implementation of SessionIssuer
type MockSessionIssuer struct {
	mock.Mock
}

func (m *MockSessionIssuer) AuthorizeURL(providerName string) (string, error) {
	args := m.Called(providerName)
	return args.String(0), args.Error(1)
}

func (m *MockSessionIssuer) CompleteLogin(ctx context.Context, providerName, code string) (*tokens.Pair, error) {
	args := m.Called(ctx, providerName, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tokens.Pair), args.Error(1)
}

func (m *MockSessionIssuer) Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tokens.Pair), args.Error(1)
}

// MockUserManager is a mock implementation of UserManager
type MockUserManager struct {
	mock.Mock
}

func (m *MockUserManager) UpdateProfile(ctx context.Context, user *models.User, update models.ProfileUpdate) (*models.User, error) {
	args := m.Called(ctx, user, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserManager) Delete(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockAudioManager is a mock implementation of AudioManager
type MockAudioManager struct {
	mock.Mock
}

func (m *MockAudioManager) Upload(ctx context.Context, owner *models.User, in services.UploadInput) (*models.AudioFile, error) {
	args := m.Called(ctx, owner, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AudioFile), args.Error(1)
}

func (m *MockAudioManager) List(ctx context.Context, ownerID int64, skip, limit int) ([]models.AudioFileInfo, error) {
	args := m.Called(ctx, ownerID, skip, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AudioFileInfo), args.Error(1)
}

// withURLParams attaches chi route parameters to the request
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// asUser attaches an authenticated principal to the request
func asUser(r *http.Request, user *models.User) *http.Request {
	return r.WithContext(middleware.WithUser(r.Context(), user))
}
