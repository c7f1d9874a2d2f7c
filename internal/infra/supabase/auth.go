// Package supabase resolves access tokens against Supabase Auth.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	auth "github.com/supabase-community/auth-go"
)

// ErrUnauthorized is returned when Supabase rejects the access token.
var ErrUnauthorized = errors.New("supabase: invalid or expired token")

type Config struct {
	URL     string
	AnonKey string
	Timeout time.Duration
}

type AuthClient struct {
	client auth.Client
}

type User struct {
	ID    string
	Email string
	Role  string
}

func NewAuthClient(cfg Config) (*AuthClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("AnonKey is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	// The project ref is unused once a custom auth URL is set; self-hosted
	// and local instances have none.
	client := auth.New("", cfg.AnonKey).
		WithCustomAuthURL(strings.TrimSuffix(cfg.URL, "/") + "/auth/v1").
		WithClient(http.Client{Timeout: timeout})

	return &AuthClient{client: client}, nil
}

// GetUser exchanges an access token for the user it was issued to.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := a.client.WithToken(accessToken).GetUser()
	if err != nil {
		if rejected(err) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("supabase get user: %w", err)
	}
	if resp == nil || resp.ID == uuid.Nil {
		return nil, ErrUnauthorized
	}

	return &User{ID: resp.ID.String(), Email: resp.Email, Role: resp.Role}, nil
}

// rejected reports whether auth-go surfaced a 401 or 403. The library only
// exposes the status code inside its error text.
func rejected(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "status code 401") || strings.Contains(msg, "status code 403")
}
