// Package handlers is the gateway's own HTTP surface: auth endpoints
// the frontend calls instead of talking to the upstream API directly,
// the order views, and the page middleware realizing guard decisions.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tabletap/gateway/internal/apperrors"
	"github.com/tabletap/gateway/internal/credstore"
	"github.com/tabletap/gateway/internal/handlers/render"
	"github.com/tabletap/gateway/internal/models"
	"github.com/tabletap/gateway/internal/token"
	"github.com/tabletap/gateway/internal/upstream"
)

// sessionRegistry is the slice of session.Manager the handlers need
type sessionRegistry interface {
	StoreFor(sid string) credstore.Store
	Track(sid string)
	Forget(ctx context.Context, sid string)
}

// MessageResponse is the plain success shape
type MessageResponse struct {
	Message string `json:"message"`
}

// establishSession stores a fresh credential set in both the browser
// jar and the server-side mirror and registers the session for
// background sweeping. Returns the new session id.
func establishSession(
	ctx context.Context,
	jar *credstore.CookieStore,
	sessions sessionRegistry,
	pair models.TokenPair,
	account any,
) (string, error) {
	sid := uuid.NewString()

	accountJSON, err := json.Marshal(account)
	if err != nil {
		return "", err
	}

	store := credstore.Fanout(jar, sessions.StoreFor(sid))
	creds := models.Credentials{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		Account:      string(accountJSON),
	}
	if err := credstore.SetSession(ctx, store, creds); err != nil {
		return "", err
	}

	// The sid cookie lives exactly as long as the refresh token
	var sidExpiry time.Time
	if payload := token.Decode(pair.Refresh); payload != nil {
		sidExpiry = time.Unix(payload.ExpiresAt, 0)
	}
	if err := jar.Set(ctx, credstore.KeySessionID, sid, sidExpiry); err != nil {
		return "", err
	}

	sessions.Track(sid)
	return sid, nil
}

// dropSession removes everything tied to the calling browser: cookies,
// mirror, registration
func dropSession(ctx context.Context, jar *credstore.CookieStore, sessions sessionRegistry, sid string) error {
	var store credstore.Store = jar
	if sid != "" {
		store = credstore.Fanout(jar, sessions.StoreFor(sid))
		sessions.Forget(ctx, sid)
	}

	if err := credstore.ClearSession(ctx, store); err != nil {
		return err
	}
	return jar.Remove(ctx, credstore.KeySessionID)
}

// renderUpstreamError maps upstream failures onto the gateway's own
// responses. Field errors pass through unchanged.
func renderUpstreamError(w http.ResponseWriter, err error, unauthorizedMessage string) {
	var validation *upstream.ValidationError

	switch {
	case errors.As(err, &validation):
		fields := make([]render.FieldError, 0, len(validation.Fields))
		for _, f := range validation.Fields {
			fields = append(fields, render.FieldError{Field: f.Field, Message: f.Message})
		}
		render.FieldErrors(w, fields)

	case errors.Is(err, apperrors.ErrUnauthorized):
		render.ServiceError(w, unauthorizedMessage, http.StatusUnauthorized)

	case errors.Is(err, apperrors.ErrUpstreamUnavailable):
		render.ServiceError(w, "Upstream service unavailable", http.StatusBadGateway)

	default:
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}
