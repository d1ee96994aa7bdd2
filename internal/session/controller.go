// Package session decides when a credential pair needs silent renewal
// and performs it against the upstream auth API, at most one in-flight
// exchange per refresh token process-wide.
package session

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tabletap/gateway/internal/apperrors"
	"github.com/tabletap/gateway/internal/credstore"
	"github.com/tabletap/gateway/internal/logger"
	"github.com/tabletap/gateway/internal/metrics"
	"github.com/tabletap/gateway/internal/models"
	"github.com/tabletap/gateway/internal/token"
)

// Safety margin when judging refresh token expiry, to avoid racing the
// clock against the upstream's own check
const expiryMargin = time.Second

// Outcome of one check
type Outcome int

const (
	// OutcomeNoop: nothing to do. Tokens absent or malformed, access
	// token still fresh enough, or a retryable network failure.
	OutcomeNoop Outcome = iota

	// OutcomeRefreshed: the stored pair was replaced with a new one
	OutcomeRefreshed

	// OutcomeFailed: terminal. The credential set has been cleared.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoop:
		return "noop"
	case OutcomeRefreshed:
		return "refreshed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Hooks let the caller react to terminal transitions: tearing down a
// push connection, redirecting to login, reconnecting a socket.
type Hooks struct {
	OnRefreshed func(pair models.TokenPair)
	OnFailed    func()
}

type refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
	GuestRefresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
}

type Controller struct {
	upstream refresher
	group    singleflight.Group
	logger   logger.Logger

	// now is swappable in tests
	now func() time.Time
}

func NewController(upstream refresher, log logger.Logger) *Controller {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Controller{
		upstream: upstream,
		logger:   log,
		now:      time.Now,
	}
}

// needsRenewal reports whether the access token has crossed the renewal
// threshold: less than one third of its total lifetime remaining. Late
// enough to keep refresh traffic low, early enough that requests rarely
// go out with an already-expired token.
func needsRenewal(access *token.Payload, now time.Time) bool {
	return access.Remaining(now) < access.Lifetime()/3
}

// CheckAndRefresh inspects the stored credential pair and renews it when
// due (or when forced). Terminal failures clear the store and fire
// hooks.OnFailed; retryable network failures leave the store untouched
// so a later check can try again.
//
// Concurrent calls for the same refresh token share a single upstream
// exchange: most refresh-token implementations invalidate the old token
// on use, so a duplicate call would race and one caller would observe a
// spurious rejection.
func (c *Controller) CheckAndRefresh(ctx context.Context, store credstore.Store, force bool, hooks Hooks) (Outcome, error) {
	creds, err := credstore.Load(ctx, store)
	if err != nil {
		c.logger.Error("credential store read failed", "error", err.Error())
		return OutcomeNoop, err
	}
	if !creds.Complete() {
		return OutcomeNoop, nil
	}

	access := token.Decode(creds.AccessToken)
	refresh := token.Decode(creds.RefreshToken)
	// Malformed is treated exactly like absent
	if access == nil || refresh == nil {
		return OutcomeNoop, nil
	}

	now := c.now()

	if refresh.Expired(now, expiryMargin) {
		c.teardown(ctx, store, hooks)
		metrics.RefreshOutcomes.WithLabelValues("expired").Inc()
		return OutcomeFailed, apperrors.ErrRefreshTokenExpired
	}

	if !force && !needsRenewal(access, now) {
		return OutcomeNoop, nil
	}

	result, err, _ := c.group.Do(creds.RefreshToken, func() (any, error) {
		if refresh.Role == models.RoleGuest {
			return c.upstream.GuestRefresh(ctx, creds.RefreshToken)
		}
		return c.upstream.Refresh(ctx, creds.RefreshToken)
	})

	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			c.logger.Warn("upstream rejected refresh token", "subject", refresh.SubjectID)
			c.teardown(ctx, store, hooks)
			metrics.RefreshOutcomes.WithLabelValues("rejected").Inc()
			return OutcomeFailed, err
		}

		// Connectivity failure: keep the pair, the next check retries
		c.logger.Warn("token refresh attempt failed", "error", err.Error())
		metrics.RefreshOutcomes.WithLabelValues("unavailable").Inc()
		return OutcomeNoop, err
	}

	pair := result.(models.TokenPair)
	err = credstore.SetSession(ctx, store, models.Credentials{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		Account:      creds.Account,
	})
	if err != nil {
		c.logger.Error("storing refreshed pair failed", "error", err.Error())
		return OutcomeNoop, err
	}

	if hooks.OnRefreshed != nil {
		hooks.OnRefreshed(pair)
	}
	metrics.RefreshOutcomes.WithLabelValues("refreshed").Inc()
	return OutcomeRefreshed, nil
}

// teardown destroys the credential set and notifies the caller. The
// pair is gone for good: both tokens go together, never one alone.
func (c *Controller) teardown(ctx context.Context, store credstore.Store, hooks Hooks) {
	if err := credstore.ClearSession(ctx, store); err != nil {
		c.logger.Error("clearing credential set failed", "error", err.Error())
	}
	if hooks.OnFailed != nil {
		hooks.OnFailed()
	}
}
