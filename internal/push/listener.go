// Package push maintains the event channel to the upstream API. The
// channel is authenticated with the current access token at open time;
// two event types matter to the gateway: a forced token refresh and a
// forced logout.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/tabletap/gateway/internal/logger"
	"github.com/tabletap/gateway/internal/metrics"
)

// Event types sent by the upstream
const (
	EventRefreshToken = "refresh-token"
	EventLogout       = "logout"
)

const handshakeTimeout = 10 * time.Second

type event struct {
	Event string `json:"event"`
}

type Config struct {
	// URL of the upstream event channel (ws:// or wss://)
	URL string

	// AccessToken supplies the current access token each time the
	// channel is (re)opened
	AccessToken func(ctx context.Context) (string, error)

	OnForceRefresh func(ctx context.Context)
	OnForceLogout  func(ctx context.Context)

	Logger logger.Logger
}

type Listener struct {
	cfg    Config
	dialer *websocket.Dialer
}

func NewListener(cfg Config) (*Listener, error) {
	if cfg.URL == "" {
		return nil, errors.New("push channel url must not be empty")
	}
	if cfg.AccessToken == nil {
		return nil, errors.New("access token supplier must not be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOp()
	}

	return &Listener{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}, nil
}

// Run keeps the channel open until the context is cancelled,
// reconnecting with capped exponential backoff after failures
func (l *Listener) Run(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0 // reconnect forever

	connect := func() error {
		if err := l.listenOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			l.cfg.Logger.Warn("push channel dropped", "error", err.Error())
			return err
		}
		return nil
	}

	return backoff.Retry(connect, backoff.WithContext(policy, ctx))
}

// listenOnce opens the channel and pumps events until it breaks
func (l *Listener) listenOnce(ctx context.Context) error {
	accessToken, err := l.cfg.AccessToken(ctx)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+accessToken)

	conn, resp, err := l.dialer.DialContext(ctx, l.cfg.URL, header)
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close() // nolint:errcheck

	l.cfg.Logger.Info("push channel connected", "url", l.cfg.URL)

	// Unblock the read loop when the context goes away
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ev event
		if err := json.Unmarshal(payload, &ev); err != nil {
			l.cfg.Logger.Warn("undecodable push event", "error", err.Error())
			continue
		}

		l.dispatch(ctx, ev.Event)
	}
}

func (l *Listener) dispatch(ctx context.Context, name string) {
	metrics.PushEvents.WithLabelValues(name).Inc()

	switch name {
	case EventRefreshToken:
		l.cfg.Logger.Info("upstream requested token refresh")
		if l.cfg.OnForceRefresh != nil {
			l.cfg.OnForceRefresh(ctx)
		}
	case EventLogout:
		l.cfg.Logger.Info("upstream requested logout")
		if l.cfg.OnForceLogout != nil {
			l.cfg.OnForceLogout(ctx)
		}
	default:
		// Order events and the like are for the dashboard frontend,
		// not the gateway
		l.cfg.Logger.Debug("ignoring push event", "event", name)
	}
}
