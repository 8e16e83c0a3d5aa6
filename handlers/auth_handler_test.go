package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/audio-upload-service/identity"
	"github.com/upb/audio-upload-service/services"
	"github.com/upb/audio-upload-service/tokens"
	"github.com/upb/audio-upload-service/utils"
	"go.uber.org/zap"
)

var testPair = &tokens.Pair{AccessToken: "access", RefreshToken: "refresh", TokenType: "bearer"}

func TestHandleLogin(t *testing.T) {
	logger := zap.NewNop()

	t.Run("redirects to the provider", func(t *testing.T) {
		sessions := new(MockSessionIssuer)
		sessions.On("AuthorizeURL", "yandex").
			Return("https://oauth.yandex.ru/authorize?response_type=code&client_id=abc", nil)
		handler := NewAuthHandler(sessions, logger)

		req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/auth/yandex/login", nil),
			map[string]string{"provider": "yandex"})
		w := httptest.NewRecorder()

		handler.HandleLogin(w, req)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://oauth.yandex.ru/authorize?response_type=code&client_id=abc", w.Header().Get("Location"))
		sessions.AssertExpectations(t)
	})

	t.Run("unknown provider is not found", func(t *testing.T) {
		sessions := new(MockSessionIssuer)
		sessions.On("AuthorizeURL", "github").
			Return("", services.Wrap(services.ErrUnknownProvider, identity.ErrUnknownProvider))
		handler := NewAuthHandler(sessions, logger)

		req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/auth/github/login", nil),
			map[string]string{"provider": "github"})
		w := httptest.NewRecorder()

		handler.HandleLogin(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleCallback(t *testing.T) {
	logger := zap.NewNop()

	t.Run("returns the token pair", func(t *testing.T) {
		sessions := new(MockSessionIssuer)
		sessions.On("CompleteLogin", mock.Anything, "yandex", "auth-code").Return(testPair, nil)
		handler := NewAuthHandler(sessions, logger)

		req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/auth/yandex/callback?code=auth-code", nil),
			map[string]string{"provider": "yandex"})
		w := httptest.NewRecorder()

		handler.HandleCallback(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"access_token":"access","refresh_token":"refresh","token_type":"bearer"}`, w.Body.String())
		sessions.AssertExpectations(t)
	})

	t.Run("missing code is a bad request", func(t *testing.T) {
		sessions := new(MockSessionIssuer)
		sessions.On("CompleteLogin", mock.Anything, "yandex", "").Return(nil, services.ErrMissingCode)
		handler := NewAuthHandler(sessions, logger)

		req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/auth/yandex/callback", nil),
			map[string]string{"provider": "yandex"})
		w := httptest.NewRecorder()

		handler.HandleCallback(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("provider failure is a generic bad request", func(t *testing.T) {
		sessions := new(MockSessionIssuer)
		sessions.On("CompleteLogin", mock.Anything, "yandex", "stale").
			Return(nil, services.Wrap(services.ErrProviderAuthFailed, errors.New("invalid_grant: Code has expired")))
		handler := NewAuthHandler(sessions, logger)

		req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/auth/yandex/callback?code=stale", nil),
			map[string]string{"provider": "yandex"})
		w := httptest.NewRecorder()

		handler.HandleCallback(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "Could not authenticate with provider", body.Message)
		assert.NotContains(t, body.Message, "invalid_grant")
	})

	t.Run("provider error parameter still reaches the service", func(t *testing.T) {
		sessions := new(MockSessionIssuer)
		sessions.On("CompleteLogin", mock.Anything, "yandex", "").Return(nil, services.ErrMissingCode)
		handler := NewAuthHandler(sessions, logger)

		req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/auth/yandex/callback?error=access_denied", nil),
			map[string]string{"provider": "yandex"})
		w := httptest.NewRecorder()

		handler.HandleCallback(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		sessions.AssertExpectations(t)
	})
}

func TestHandleRefresh(t *testing.T) {
	logger := zap.NewNop()

	t.Run("returns a new pair", func(t *testing.T) {
		sessions := new(MockSessionIssuer)
		sessions.On("Refresh", mock.Anything, "refresh-token").Return(testPair, nil)
		handler := NewAuthHandler(sessions, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token/refresh",
			strings.NewReader(`{"refresh_token":"refresh-token"}`))
		w := httptest.NewRecorder()

		handler.HandleRefresh(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var pair tokens.Pair
		require.NoError(t, json.NewDecoder(w.Body).Decode(&pair))
		assert.Equal(t, *testPair, pair)
	})

	t.Run("invalid token is unauthorized with challenge", func(t *testing.T) {
		sessions := new(MockSessionIssuer)
		sessions.On("Refresh", mock.Anything, "access-token").
			Return(nil, services.Wrap(services.ErrUnauthorized, tokens.ErrInvalidToken))
		handler := NewAuthHandler(sessions, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token/refresh",
			strings.NewReader(`{"refresh_token":"access-token"}`))
		w := httptest.NewRecorder()

		handler.HandleRefresh(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	})

	t.Run("missing field fails validation", func(t *testing.T) {
		sessions := new(MockSessionIssuer)
		handler := NewAuthHandler(sessions, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token/refresh", strings.NewReader(`{}`))
		w := httptest.NewRecorder()

		handler.HandleRefresh(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "refresh_token is required", body.Details["refresh_token"])
		sessions.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		sessions := new(MockSessionIssuer)
		handler := NewAuthHandler(sessions, logger)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token/refresh", strings.NewReader(`{`))
		w := httptest.NewRecorder()

		handler.HandleRefresh(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
