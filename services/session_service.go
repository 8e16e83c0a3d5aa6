package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/upb/audio-upload-service/identity"
	"github.com/upb/audio-upload-service/models"
	"github.com/upb/audio-upload-service/repositories"
	"github.com/upb/audio-upload-service/tokens"
	"go.uber.org/zap"
)

// ProviderLookup resolves identity providers by route name
type ProviderLookup interface {
	Get(name string) (identity.Provider, error)
}

// TokenCodec mints and verifies session tokens
type TokenCodec interface {
	MintPair(subject string) (*tokens.Pair, error)
	Verify(token string, expected tokens.Type) (*tokens.Payload, error)
}

// SessionService turns external logins into session token pairs and resolves
// bearer tokens back to principals
type SessionService struct {
	providers           ProviderLookup
	users               repositories.UserRepository
	codec               TokenCodec
	superuserExternalID string
	logger              *zap.Logger
}

// NewSessionService creates a new session service. Logins whose external ID
// equals superuserExternalID are granted the superuser flag; an empty value
// grants it to nobody.
func NewSessionService(
	providers ProviderLookup,
	users repositories.UserRepository,
	codec TokenCodec,
	superuserExternalID string,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		providers:           providers,
		users:               users,
		codec:               codec,
		superuserExternalID: superuserExternalID,
		logger:              logger,
	}
}

// AuthorizeURL returns the consent URL of the named provider
func (s *SessionService) AuthorizeURL(providerName string) (string, error) {
	provider, err := s.providers.Get(providerName)
	if err != nil {
		return "", Wrap(ErrUnknownProvider, err)
	}
	return provider.AuthorizeURL(), nil
}

// CompleteLogin exchanges the authorization code, upserts the principal and
// mints a token pair for it. Nothing is written unless the provider exchange
// and profile fetch both succeed.
func (s *SessionService) CompleteLogin(ctx context.Context, providerName, code string) (*tokens.Pair, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	provider, err := s.providers.Get(providerName)
	if err != nil {
		return nil, Wrap(ErrUnknownProvider, err)
	}

	providerToken, err := provider.ExchangeCode(ctx, code)
	if err != nil {
		s.logger.Warn("provider code exchange failed",
			zap.String("provider", providerName),
			zap.Error(err),
		)
		return nil, Wrap(ErrProviderAuthFailed, err)
	}

	profile, err := provider.FetchProfile(ctx, providerToken)
	if err != nil {
		s.logger.Warn("provider profile fetch failed",
			zap.String("provider", providerName),
			zap.Error(err),
		)
		return nil, Wrap(ErrProviderAuthFailed, err)
	}

	user, err := s.users.UpsertFromLogin(ctx, repositories.LoginAttributes{
		ExternalID:  profile.ExternalID,
		Email:       profile.Email,
		FirstName:   profile.FirstName,
		LastName:    profile.LastName,
		DisplayName: profile.DisplayName,
		IsSuperuser: s.isBootstrapSuperuser(profile.ExternalID),
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, Wrap(ErrDuplicateEmail, err)
		}
		return nil, Wrap(ErrDatabaseError, err)
	}

	pair, err := s.codec.MintPair(subjectOf(user))
	if err != nil {
		return nil, WrapInternal("failed to mint tokens", err)
	}

	s.logger.Info("login completed",
		zap.String("provider", providerName),
		zap.Int64("user_id", user.ID),
		zap.Bool("is_superuser", user.IsSuperuser),
	)
	return pair, nil
}

// Refresh mints a new pair from a valid refresh token. The presented token
// stays valid until it expires.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	user, err := s.resolve(ctx, refreshToken, tokens.TypeRefresh)
	if err != nil {
		return nil, err
	}

	pair, err := s.codec.MintPair(subjectOf(user))
	if err != nil {
		return nil, WrapInternal("failed to mint tokens", err)
	}
	return pair, nil
}

// Authenticate resolves an access token to its principal
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	return s.resolve(ctx, accessToken, tokens.TypeAccess)
}

func (s *SessionService) resolve(ctx context.Context, token string, expected tokens.Type) (*models.User, error) {
	payload, err := s.codec.Verify(token, expected)
	if err != nil {
		return nil, Wrap(ErrUnauthorized, err)
	}

	id, err := strconv.ParseInt(payload.Subject, 10, 64)
	if err != nil {
		return nil, Wrap(ErrUnauthorized, err)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, Wrap(ErrUnauthorized, err)
		}
		return nil, Wrap(ErrDatabaseError, err)
	}
	return user, nil
}

func (s *SessionService) isBootstrapSuperuser(externalID string) bool {
	return s.superuserExternalID != "" && externalID == s.superuserExternalID
}

func subjectOf(user *models.User) string {
	return strconv.FormatInt(user.ID, 10)
}
