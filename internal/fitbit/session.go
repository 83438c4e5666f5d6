package fitbit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"

	"github.com/erika-dike/fitbit-uploader/internal/config"
)

// ErrNoToken indicates that no credential file exists yet. Callers should
// tell the user to run the auth flow first.
var ErrNoToken = errors.New("no stored Fitbit credentials")

// Session issues authenticated requests against the Fitbit API. Before each
// request it checks whether the cached access token has expired and, if so,
// refreshes it with the refresh token and rewrites the credential file.
type Session struct {
	oauth     *oauth2.Config
	token     *oauth2.Token
	tokenFile string
	client    *http.Client
}

func oauthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.FitbitClientID,
		ClientSecret: cfg.FitbitClientSecret,
		RedirectURL:  config.OAuthRedirectURL,
		Scopes:       config.FitbitScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  config.FitbitAuthURL,
			TokenURL: config.FitbitTokenURL,
		},
	}
}

// LoadSession reads the persisted token and returns a request-issuing
// session. Returns ErrNoToken when the credential file does not exist.
func LoadSession(cfg *config.Config) (*Session, error) {
	tok, err := loadToken(cfg.TokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file %s: %w", cfg.TokenFile, err)
	}

	return &Session{
		oauth:     oauthConfig(cfg),
		token:     tok,
		tokenFile: cfg.TokenFile,
		client:    http.DefaultClient,
	}, nil
}

// Get issues an authenticated GET to the given URL, refreshing the access
// token first if it has expired.
func (s *Session) Get(ctx context.Context, url string) (*http.Response, error) {
	if err := s.refreshIfNeeded(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)

	return s.client.Do(req)
}

// refreshIfNeeded exchanges the refresh token for a new token pair when the
// current access token is expired, and persists the replacement.
func (s *Session) refreshIfNeeded(ctx context.Context) error {
	if s.token.Valid() {
		return nil
	}

	tok, err := s.oauth.TokenSource(ctx, s.token).Token()
	if err != nil {
		return fmt.Errorf("refreshing access token: %w", err)
	}

	s.token = tok
	if err := saveToken(s.tokenFile, tok); err != nil {
		return fmt.Errorf("saving refreshed token: %w", err)
	}
	return nil
}
