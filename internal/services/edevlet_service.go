package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/randevuhub/randevu-backend/internal/config"
	"golang.org/x/oauth2"
)

// ProviderEdevlet is the provider name recorded on e-Devlet identity links.
const ProviderEdevlet = "EDEVLET"

// ErrEdevletConfig is returned when the e-Devlet settings are set but
// incomplete. Incomplete configuration is fatal at startup, not per-request.
var ErrEdevletConfig = errors.New("incomplete e-Devlet oauth configuration")

type edevletUserInfo struct {
	Sub        string `json:"sub"`
	ID         string `json:"id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
}

// EdevletService drives the authorization-code exchange with the e-Devlet
// identity provider and normalizes its userinfo payload.
type EdevletService struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

func NewEdevletService(cfg *config.Config) (*EdevletService, error) {
	if cfg.EdevletAuthURL == "" || cfg.EdevletTokenURL == "" ||
		cfg.EdevletClientID == "" || cfg.EdevletClientSecret == "" ||
		cfg.EdevletCallbackURL == "" {
		return nil, ErrEdevletConfig
	}

	return &EdevletService{
		oauth: &oauth2.Config{
			ClientID:     cfg.EdevletClientID,
			ClientSecret: cfg.EdevletClientSecret,
			RedirectURL:  cfg.EdevletCallbackURL,
			Scopes:       cfg.EdevletScopes(),
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.EdevletAuthURL,
				TokenURL: cfg.EdevletTokenURL,
			},
		},
		userInfoURL: cfg.EdevletUserInfoURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// NewStateToken draws a random state value for CSRF protection of the
// redirect/callback pair.
func NewStateToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// AuthCodeURL builds the provider redirect URL for the given state.
func (s *EdevletService) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// Exchange trades the callback code for a provider token.
func (s *EdevletService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("e-Devlet code exchange failed: %w", err)
	}
	return token, nil
}

// FetchProfile resolves the provider token to a normalized profile. Without
// a stable identifier no durable link can be established, so the profile is
// rejected as an authentication failure.
func (s *EdevletService) FetchProfile(ctx context.Context, token *oauth2.Token) (*OAuthProfile, error) {
	if s.userInfoURL == "" {
		return profileFromTokenExtras(token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("e-Devlet userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("e-Devlet userinfo returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("e-Devlet userinfo read failed: %w", err)
	}

	var info edevletUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("e-Devlet userinfo decode failed: %w", err)
	}

	id := info.Sub
	if id == "" {
		id = info.ID
	}
	if id == "" {
		return nil, ErrOAuthProfile
	}

	firstName := info.GivenName
	if firstName == "" {
		firstName = info.FirstName
	}
	lastName := info.FamilyName
	if lastName == "" {
		lastName = info.LastName
	}

	return &OAuthProfile{
		ID:        id,
		Email:     info.Email,
		FirstName: firstName,
		LastName:  lastName,
		Raw:       body,
	}, nil
}

func profileFromTokenExtras(token *oauth2.Token) (*OAuthProfile, error) {
	id, _ := token.Extra("sub").(string)
	if id == "" {
		id, _ = token.Extra("id").(string)
	}
	if id == "" {
		return nil, ErrOAuthProfile
	}
	email, _ := token.Extra("email").(string)
	return &OAuthProfile{ID: id, Email: email}, nil
}
