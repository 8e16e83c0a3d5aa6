package app

import (
	"context"
	"fmt"

	"github.com/upb/audio-upload-service/config"
	"github.com/upb/audio-upload-service/handlers"
	"github.com/upb/audio-upload-service/identity"
	"github.com/upb/audio-upload-service/middleware"
	"github.com/upb/audio-upload-service/repositories"
	"github.com/upb/audio-upload-service/repositories/postgres"
	"github.com/upb/audio-upload-service/services"
	"github.com/upb/audio-upload-service/storage"
	"github.com/upb/audio-upload-service/tokens"
	"go.uber.org/zap"
)

// YandexProviderName is the route segment the Yandex ID provider is served under
const YandexProviderName = "yandex"

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users      repositories.UserRepository
	AudioFiles repositories.AudioRepository
	TxManager  repositories.TransactionManager

	// Sessions and identity
	Tokens    *tokens.Codec
	Providers *identity.Registry

	// Upload storage
	Store *storage.LocalStore

	// Services
	Sessions     *services.SessionService
	UserService  *services.UserService
	AudioService *services.AudioService

	// HTTP
	AuthMiddleware *middleware.AuthMiddleware
	AuthHandler    *handlers.AuthHandler
	UserHandler    *handlers.UserHandler
	AudioHandler   *handlers.AudioHandler
	HealthHandler  *handlers.HealthHandler
}

// NewDependencies connects to the database and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := newDependencies(ctx, cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesWithDB wires up all application dependencies over an open connection pool
func NewDependenciesWithDB(ctx context.Context, cfg *config.Config, db *postgres.DB, logger *zap.Logger) (*Dependencies, error) {
	return newDependencies(ctx, cfg, postgres.NewRepositoryFactoryWithDB(db, logger), logger)
}

func newDependencies(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initTokens(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize tokens: %w", err)
	}

	deps.initProviders(cfg)

	if err := deps.initStorage(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	deps.initServices(cfg)
	deps.initHTTP(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase creates the schema on the connected database
func (d *Dependencies) initDatabase(ctx context.Context) error {
	if err := d.RepoFactory.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Logger.Info("database ready",
		zap.String("connection", d.Config.Database.LogString()))
	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Users = repos.Users
	d.AudioFiles = repos.AudioFiles
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initTokens(cfg *config.Config) error {
	codec, err := tokens.NewCodec(tokens.Config{
		Secret:     cfg.Auth.SecretKey,
		Algorithm:  cfg.Auth.Algorithm,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		return err
	}
	d.Tokens = codec
	return nil
}

// initProviders registers the configured identity providers
func (d *Dependencies) initProviders(cfg *config.Config) {
	registry := identity.NewRegistry(d.Logger)

	if cfg.YandexConfigured() {
		registry.Register(identity.NewOAuthProvider(identity.Config{
			Name:         YandexProviderName,
			ClientID:     cfg.Yandex.ClientID,
			ClientSecret: cfg.Yandex.ClientSecret,
			RedirectURI:  cfg.Yandex.RedirectURI,
			AuthURL:      cfg.Yandex.AuthURL,
			TokenURL:     cfg.Yandex.TokenURL,
			UserInfoURL:  cfg.Yandex.UserInfoURL,
			Timeout:      cfg.Yandex.HTTPTimeout,
		}))
	}

	if registry.Count() == 0 {
		d.Logger.Warn("no identity providers configured, login endpoints will return 404")
	}

	d.Providers = registry
}

func (d *Dependencies) initStorage(cfg *config.Config) error {
	store, err := storage.NewLocalStore(cfg.Storage.UploadsDir, cfg.Storage.MaxUploadBytes, d.Logger)
	if err != nil {
		return err
	}
	d.Store = store
	return nil
}

func (d *Dependencies) initServices(cfg *config.Config) {
	if cfg.Auth.FirstSuperuserExternalID == "" {
		d.Logger.Warn("no bootstrap superuser configured")
	}

	d.Sessions = services.NewSessionService(d.Providers, d.Users, d.Tokens, cfg.Auth.FirstSuperuserExternalID, d.Logger)
	d.UserService = services.NewUserService(d.Users, d.AudioFiles, d.TxManager, d.Store, d.Logger)
	d.AudioService = services.NewAudioService(d.AudioFiles, d.Store, d.Logger)
}

func (d *Dependencies) initHTTP(cfg *config.Config) {
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Sessions, d.Logger)
	d.AuthHandler = handlers.NewAuthHandler(d.Sessions, d.Logger)
	d.UserHandler = handlers.NewUserHandler(d.UserService, d.Logger)
	d.AudioHandler = handlers.NewAudioHandler(d.AudioService, cfg.Storage.MaxUploadBytes, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB, d.Providers, d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
