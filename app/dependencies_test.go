package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/audio-upload-service/config"
	"github.com/upb/audio-upload-service/repositories/postgres"
	"go.uber.org/zap/zaptest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Database: config.DatabaseConfig{
			Host:            "127.0.0.1",
			Port:            1,
			User:            "audio",
			Password:        "audio",
			Database:        "audio_test",
			SSLMode:         "disable",
			MaxOpenConns:    2,
			MaxIdleConns:    1,
			ConnMaxLifetime: time.Minute,
		},
		Auth: config.AuthConfig{
			SecretKey:       "test-secret",
			Algorithm:       "HS256",
			AccessTokenTTL:  30 * time.Minute,
			RefreshTokenTTL: 24 * time.Hour,
		},
		Storage: config.StorageConfig{
			UploadsDir:     filepath.Join(t.TempDir(), "uploads"),
			MaxUploadBytes: 1 << 20,
		},
		RateLimit:     config.RateLimitConfig{AuthRequestsPerMinute: 30},
		Observability: config.ObservabilityConfig{LogLevel: "error", LogFormat: "json"},
	}
}

func newMockDB(t *testing.T) (*postgres.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return postgres.Wrap(sqlDB, zaptest.NewLogger(t)), mock
}

func TestNewDependenciesWithDB(t *testing.T) {
	ctx := context.Background()

	t.Run("wires every component", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))

		deps, err := NewDependenciesWithDB(ctx, testConfig(t), db, zaptest.NewLogger(t))
		require.NoError(t, err)

		assert.Same(t, db, deps.DB)
		assert.NotNil(t, deps.Users)
		assert.NotNil(t, deps.AudioFiles)
		assert.NotNil(t, deps.TxManager)
		assert.NotNil(t, deps.Tokens)
		assert.NotNil(t, deps.Store)
		assert.NotNil(t, deps.Sessions)
		assert.NotNil(t, deps.UserService)
		assert.NotNil(t, deps.AudioService)
		assert.NotNil(t, deps.AuthMiddleware)
		assert.NotNil(t, deps.AuthHandler)
		assert.NotNil(t, deps.UserHandler)
		assert.NotNil(t, deps.AudioHandler)
		assert.NotNil(t, deps.HealthHandler)
		assert.Equal(t, 0, deps.Providers.Count())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("registers yandex when configured", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))

		cfg := testConfig(t)
		cfg.Yandex = config.OAuthProviderConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURI:  "http://localhost:8000/api/v1/auth/yandex/callback",
			AuthURL:      "https://oauth.yandex.ru/authorize",
			TokenURL:     "https://oauth.yandex.ru/token",
			UserInfoURL:  "https://login.yandex.ru/info",
			HTTPTimeout:  time.Second,
		}

		deps, err := NewDependenciesWithDB(ctx, cfg, db, zaptest.NewLogger(t))
		require.NoError(t, err)

		assert.Equal(t, 1, deps.Providers.Count())
		_, err = deps.Providers.Get(YandexProviderName)
		assert.NoError(t, err)
	})

	t.Run("schema failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("permission denied"))

		deps, err := NewDependenciesWithDB(ctx, testConfig(t), db, zaptest.NewLogger(t))
		require.Error(t, err)
		assert.Nil(t, deps)
		assert.Contains(t, err.Error(), "failed to initialize database")
	})

	t.Run("unsupported token algorithm", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))

		cfg := testConfig(t)
		cfg.Auth.Algorithm = "none"

		_, err := NewDependenciesWithDB(ctx, cfg, db, zaptest.NewLogger(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize tokens")
	})
}

func TestNewDependencies_DatabaseUnavailable(t *testing.T) {
	deps, err := NewDependencies(context.Background(), testConfig(t), zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Nil(t, deps)
	assert.Contains(t, err.Error(), "failed to initialize database")
}

func TestDependencies_Close(t *testing.T) {
	t.Run("closes the pool", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectClose()

		deps, err := NewDependenciesWithDB(context.Background(), testConfig(t), db, zaptest.NewLogger(t))
		require.NoError(t, err)

		assert.NoError(t, deps.Close(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports close errors", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectClose().WillReturnError(errors.New("broken pipe"))

		deps, err := NewDependenciesWithDB(context.Background(), testConfig(t), db, zaptest.NewLogger(t))
		require.NoError(t, err)

		err = deps.Close(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to close database")
	})

	t.Run("empty dependencies", func(t *testing.T) {
		deps := &Dependencies{Logger: zaptest.NewLogger(t)}
		assert.NoError(t, deps.Close(context.Background()))
	})
}
