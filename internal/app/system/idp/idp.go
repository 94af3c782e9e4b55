// Package idp is the HTTP client for the external identity provider.
//
// The provider owns accounts, credentials, and email confirmation; Comptoir
// only keeps role assignments for the ids the provider issues. Two call
// surfaces exist:
//
//   - UserFromToken exchanges a caller's bearer token for their identity.
//   - The admin API (CreateUser, ListUsers, DeleteUser) is authorized with a
//     service-level credential: an OAuth2 client-credentials grant when a
//     client id/secret pair is configured, otherwise a static service key.
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrUnauthorized is returned when the provider rejects a credential.
var ErrUnauthorized = errors.New("identity provider rejected the credential")

// ErrNotFound is returned when the provider has no user with the given id.
var ErrNotFound = errors.New("identity provider: user not found")

// Identity is an account as the provider reports it.
type Identity struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
}

// Confirmed reports whether the identity has confirmed its email address.
func (i Identity) Confirmed() bool { return i.EmailConfirmedAt != nil }

// Config holds connection settings for the provider.
type Config struct {
	// BaseURL of the provider, without trailing slash.
	BaseURL string

	// ServiceKey is the static service-level credential for the admin API.
	// Also sent as the apikey header on every call.
	ServiceKey string

	// ClientID/ClientSecret/TokenURL enable the OAuth2 client-credentials
	// grant for the admin API instead of the static key.
	ClientID     string
	ClientSecret string
	TokenURL     string

	// HTTPClient overrides the transport (custom CA, test server). Optional.
	HTTPClient *http.Client
}

// Client talks to the identity provider.
type Client struct {
	baseURL    string
	serviceKey string

	// userHTTP carries end-user tokens; adminHTTP carries the service
	// credential (possibly via an oauth2 token source).
	userHTTP  *http.Client
	adminHTTP *http.Client

	// adminBearer is the static admin credential; empty when the oauth2
	// transport injects tokens itself.
	adminBearer string

	log *zap.Logger
}

// New builds a provider client from config.
func New(cfg Config, logger *zap.Logger) *Client {
	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		serviceKey:  cfg.ServiceKey,
		userHTTP:    base,
		adminHTTP:   base,
		adminBearer: cfg.ServiceKey,
		log:         logger,
	}

	if cfg.ClientID != "" && cfg.ClientSecret != "" && cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		ctx := context.Background()
		if cfg.HTTPClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
		}
		c.adminHTTP = cc.Client(ctx)
		c.adminBearer = ""
		logger.Info("identity provider admin auth via client credentials",
			zap.String("token_url", cfg.TokenURL))
	}

	return c
}

// UserFromToken resolves the identity behind a caller's bearer token.
// Returns ErrUnauthorized when the token is rejected.
func (c *Client) UserFromToken(ctx context.Context, token string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	c.setAPIKey(req)

	resp, err := c.userHTTP.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("identity lookup: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var id Identity
		if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
			return Identity{}, fmt.Errorf("identity lookup: decode: %w", err)
		}
		return id, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Identity{}, ErrUnauthorized
	default:
		return Identity{}, fmt.Errorf("identity lookup: provider returned %d: %s",
			resp.StatusCode, readBody(resp.Body))
	}
}

// CreateUserParams are the fields for a provider-side account.
type CreateUserParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`

	// EmailConfirm pre-confirms the address so the user can sign in
	// immediately, without a confirmation round-trip.
	EmailConfirm bool `json:"email_confirm"`
}

// CreateUser creates an account via the admin API.
func (c *Client) CreateUser(ctx context.Context, p CreateUserParams) (Identity, error) {
	var id Identity
	err := c.adminDo(ctx, http.MethodPost, "/auth/v1/admin/users", p, &id)
	if err != nil {
		return Identity{}, err
	}
	c.log.Info("identity created", zap.String("user_id", id.ID), zap.String("email", id.Email))
	return id, nil
}

// ListUsers returns every account the provider knows.
func (c *Client) ListUsers(ctx context.Context) ([]Identity, error) {
	var out struct {
		Users []Identity `json:"users"`
	}
	if err := c.adminDo(ctx, http.MethodGet, "/auth/v1/admin/users", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// DeleteUser removes an account by provider id.
// Returns ErrNotFound when the id does not exist.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	err := c.adminDo(ctx, http.MethodDelete, "/auth/v1/admin/users/"+userID, nil, nil)
	if err != nil {
		return err
	}
	c.log.Info("identity deleted", zap.String("user_id", userID))
	return nil
}

// adminDo runs one admin API call and decodes the response into target
// (target may be nil for calls without a response body).
func (c *Client) adminDo(ctx context.Context, method, path string, body, target any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("admin api: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if c.adminBearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.adminBearer)
	}
	c.setAPIKey(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.adminHTTP.Do(req)
	if err != nil {
		return fmt.Errorf("admin api: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if target == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("admin api: decode response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("admin api: %w", ErrUnauthorized)
	default:
		return fmt.Errorf("admin api: provider returned %d: %s",
			resp.StatusCode, readBody(resp.Body))
	}
}

func (c *Client) setAPIKey(req *http.Request) {
	if c.serviceKey != "" {
		req.Header.Set("apikey", c.serviceKey)
	}
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4<<10))
	return strings.TrimSpace(string(b))
}
