// ABOUTME: Gmail OAuth credentials, token persistence and service construction
// ABOUTME: Refreshed access tokens are written back so restarts keep working
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Environment variables holding the OAuth client.
const (
	EnvClientID     = "GOOGLE_CLIENT_ID"
	EnvClientSecret = "GOOGLE_CLIENT_SECRET"
)

// RedirectURL is where the local callback server listens during auth.
const RedirectURL = "http://localhost:8080/oauth/callback"

// ErrNoCredentials means the OAuth client is not configured.
var ErrNoCredentials = errors.New("google OAuth credentials not configured, set " + EnvClientID + " and " + EnvClientSecret)

// OAuthConfig builds the client config for reading, labelling and sending mail.
func OAuthConfig() (*oauth2.Config, error) {
	cfg := &oauth2.Config{
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		RedirectURL:  RedirectURL,
		Scopes:       []string{gmail.GmailModifyScope, gmail.GmailSendScope},
		Endpoint:     google.Endpoint,
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrNoCredentials
	}
	return cfg, nil
}

// TokenStore keeps the OAuth token as a JSON file readable only by the owner.
type TokenStore struct {
	Path string
}

// DefaultTokenStore stores the token under the XDG data directory.
func DefaultTokenStore() *TokenStore {
	return &TokenStore{Path: filepath.Join(xdg.DataHome, "kontakt", "google-credentials.json")}
}

// Load reads the stored token.
func (s *TokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	if token.RefreshToken == "" && token.AccessToken == "" {
		return nil, fmt.Errorf("token file %s holds no token", s.Path)
	}
	return &token, nil
}

// Save writes the token atomically.
func (s *TokenStore) Save(token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// savingSource hands out tokens from base and persists each new access
// token. Callers serialize access through oauth2.ReuseTokenSource.
type savingSource struct {
	base  oauth2.TokenSource
	store *TokenStore
	last  string
	log   *zap.Logger
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if err := s.store.Save(token); err != nil {
			s.log.Warn("failed to persist refreshed token", zap.Error(err))
		}
	}
	return token, nil
}

// NewGmailService returns a Gmail client authorized with the stored token.
func NewGmailService(ctx context.Context, cfg *oauth2.Config, store *TokenStore, log *zap.Logger) (*gmail.Service, error) {
	if log == nil {
		log = zap.NewNop()
	}
	token, err := store.Load()
	if err != nil {
		return nil, err
	}

	src := &savingSource{
		base:  cfg.TokenSource(ctx, token),
		store: store,
		last:  token.AccessToken,
		log:   log.With(zap.String("component", "gmail-auth")),
	}
	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, src))

	service, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return service, nil
}
