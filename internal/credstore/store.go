// Package credstore persists the credential set (access token, refresh
// token, cached account profile) behind a single key-value contract with
// interchangeable backings: the browser cookie jar for a request in
// flight, an in-process map, or Redis for a shared mirror.
package credstore

import (
	"context"
	"fmt"
	"time"

	"github.com/tabletap/gateway/internal/models"
	"github.com/tabletap/gateway/internal/token"
)

// Storage keys, shared with the browser cookie names
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyAccount      = "account"

	// KeySessionID is the gateway's own session cookie, keying the
	// server-side credential mirror
	KeySessionID = "sid"
)

// Store is one credential backing. Get returns "" without error for a
// missing or expired key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiry time.Time) error
	Remove(ctx context.Context, key string) error
}

// Load reads the full credential set from the store
func Load(ctx context.Context, s Store) (models.Credentials, error) {
	var creds models.Credentials
	var err error

	if creds.AccessToken, err = s.Get(ctx, KeyAccessToken); err != nil {
		return models.Credentials{}, fmt.Errorf("read access token: %w", err)
	}
	if creds.RefreshToken, err = s.Get(ctx, KeyRefreshToken); err != nil {
		return models.Credentials{}, fmt.Errorf("read refresh token: %w", err)
	}
	if creds.Account, err = s.Get(ctx, KeyAccount); err != nil {
		return models.Credentials{}, fmt.Errorf("read account: %w", err)
	}

	return creds, nil
}

// SetSession writes the credential set in one synchronous turn: both
// tokens are always replaced together. Entry expiries are taken from the
// token payloads themselves; an undecodable token gets no expiry.
func SetSession(ctx context.Context, s Store, creds models.Credentials) error {
	var accessExp, refreshExp time.Time
	if p := token.Decode(creds.AccessToken); p != nil {
		accessExp = time.Unix(p.ExpiresAt, 0)
	}
	if p := token.Decode(creds.RefreshToken); p != nil {
		refreshExp = time.Unix(p.ExpiresAt, 0)
	}

	if err := s.Set(ctx, KeyAccessToken, creds.AccessToken, accessExp); err != nil {
		return fmt.Errorf("write access token: %w", err)
	}
	if err := s.Set(ctx, KeyRefreshToken, creds.RefreshToken, refreshExp); err != nil {
		return fmt.Errorf("write refresh token: %w", err)
	}

	if creds.Account != "" {
		if err := s.Set(ctx, KeyAccount, creds.Account, refreshExp); err != nil {
			return fmt.Errorf("write account: %w", err)
		}
	}

	return nil
}

// ClearSession removes the whole credential set
func ClearSession(ctx context.Context, s Store) error {
	for _, key := range []string{KeyAccessToken, KeyRefreshToken, KeyAccount} {
		if err := s.Remove(ctx, key); err != nil {
			return fmt.Errorf("remove %s: %w", key, err)
		}
	}
	return nil
}
