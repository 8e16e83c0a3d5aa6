package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrExchangeFailed is returned when the authorization code cannot be
	// exchanged for a provider access token
	ErrExchangeFailed = errors.New("provider code exchange failed")

	// ErrProfileFailed is returned when the provider profile cannot be fetched
	// or lacks an identity key
	ErrProfileFailed = errors.New("provider profile fetch failed")

	// ErrUnknownProvider is returned by the registry for unregistered names
	ErrUnknownProvider = errors.New("unknown identity provider")
)

// maxProfileBytes bounds the userinfo response body
const maxProfileBytes = 1 << 20

// Provider performs the OAuth2 authorization-code flow against an external
// identity service
type Provider interface {
	// Name is the route segment the provider is served under
	Name() string

	// AuthorizeURL builds the redirect URL for the provider consent screen
	AuthorizeURL() string

	// ExchangeCode trades an authorization code for a provider access token
	ExchangeCode(ctx context.Context, code string) (string, error)

	// FetchProfile retrieves the authenticated principal's attributes
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}

// Profile holds the attributes the provider reports for a principal
type Profile struct {
	ExternalID  string
	Email       string
	FirstName   string
	LastName    string
	DisplayName string
}

// Config holds the client registration for one OAuth2 provider
type Config struct {
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
	Timeout      time.Duration
}

// OAuthProvider is a Provider for services speaking the Yandex ID flavour of
// OAuth2: client credentials in the token request body and an
// "Authorization: OAuth <token>" userinfo endpoint
type OAuthProvider struct {
	name        string
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewOAuthProvider creates a provider from its client registration
func NewOAuthProvider(cfg Config) *OAuthProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &OAuthProvider{
		name: cfg.Name,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the provider name
func (p *OAuthProvider) Name() string {
	return p.name
}

// AuthorizeURL returns the consent URL carrying response_type, client_id and redirect_uri
func (p *OAuthProvider) AuthorizeURL() string {
	return p.oauth.AuthCodeURL("")
}

// ExchangeCode performs a single round-trip to the token endpoint. It is not retried.
func (p *OAuthProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("%w: empty authorization code", ErrExchangeFailed)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return "", fmt.Errorf("%w: status %d, body: %s",
				ErrExchangeFailed, retrieveErr.Response.StatusCode, string(retrieveErr.Body))
		}
		return "", fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: no access_token in response", ErrExchangeFailed)
	}
	return token.AccessToken, nil
}

// userInfo is the userinfo response body
type userInfo struct {
	ID           flexibleID `json:"id"`
	DefaultEmail string     `json:"default_email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	DisplayName  string     `json:"display_name"`
}

// FetchProfile performs a single round-trip to the userinfo endpoint
func (p *OAuthProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	endpoint, err := url.Parse(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid userinfo url: %v", ErrProfileFailed, err)
	}
	query := endpoint.Query()
	query.Set("format", "json")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrProfileFailed, err)
	}
	req.Header.Set("Authorization", "OAuth "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrProfileFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrProfileFailed, resp.StatusCode, string(body))
	}

	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrProfileFailed, err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("%w: response missing id", ErrProfileFailed)
	}

	return &Profile{
		ExternalID:  string(info.ID),
		Email:       info.DefaultEmail,
		FirstName:   info.FirstName,
		LastName:    info.LastName,
		DisplayName: info.DisplayName,
	}, nil
}

// flexibleID accepts an identity key encoded as either a JSON string or number
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("identity key is not an integer: %s", n)
	}
	*f = flexibleID(n.String())
	return nil
}
