package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/tabletap/gateway/internal/credstore"
	"github.com/tabletap/gateway/internal/handlers"
	"github.com/tabletap/gateway/internal/handlers/middleware"
	"github.com/tabletap/gateway/internal/logger"
	"github.com/tabletap/gateway/internal/models"
	"github.com/tabletap/gateway/internal/push"
	"github.com/tabletap/gateway/internal/session"
	"github.com/tabletap/gateway/internal/upstream"
)

// serviceSID keys the gateway's own upstream session in the credential
// mirror, so the sweeper renews its pair like any browser's
const serviceSID = "service"

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	manager  *session.Manager
	listener *push.Listener // nil when the push channel is disabled
	logger   logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	upstreamClient, err := upstream.New(upstream.Config{BaseURL: c.UpstreamURL, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("error while creating upstream client: %w", err)
	}

	// Credential mirror backing: Redis when configured, otherwise in
	// process memory
	var backing credstore.Store = credstore.NewMemory()
	if c.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("error while connecting to redis: %w", err)
		}

		backing = credstore.NewRedis(client)
	}

	ctrl := session.NewController(upstreamClient, log)
	manager := session.NewManager(ctrl, backing, log)

	var listener *push.Listener
	if c.PushURL != "" {
		if c.ServiceEmail == "" || c.ServicePassword == "" {
			return nil, errors.New("push channel needs service account credentials")
		}

		manager.Track(serviceSID)
		listener, err = push.NewListener(push.Config{
			URL: c.PushURL,
			AccessToken: serviceTokenSupplier(
				upstreamClient,
				manager.StoreFor(serviceSID),
				c.ServiceEmail,
				c.ServicePassword,
			),
			OnForceRefresh: manager.ForceRefreshAll,
			OnForceLogout:  manager.DropAll,
			Logger:         log,
		})
		if err != nil {
			return nil, fmt.Errorf("error while creating push listener: %w", err)
		}
	}

	frontendURL, err := url.Parse(c.FrontendURL)
	if err != nil {
		return nil, fmt.Errorf("error while parsing frontend url: %w", err)
	}
	pages := httputil.NewSingleHostReverseProxy(frontendURL)

	mux := handlers.NewRouter(
		handlers.NewAuth(upstreamClient, ctrl, manager, log),
		handlers.NewGuest(upstreamClient, manager, log),
		handlers.NewOrder(upstreamClient, log),
		pages,
		middleware.GuardMiddleware(ctrl, manager, log),
		middleware.LoggerMiddleware(log),
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		manager:    manager,
		listener:   listener,
		logger:     log,
	}, nil
}

// serviceTokenSupplier hands the push listener a usable access token,
// logging the service account in again when the mirror has none
func serviceTokenSupplier(
	up *upstream.Client,
	store credstore.Store,
	email string,
	password string,
) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		accessToken, err := store.Get(ctx, credstore.KeyAccessToken)
		if err == nil && accessToken != "" {
			return accessToken, nil
		}

		result, err := up.Login(ctx, email, password)
		if err != nil {
			return "", fmt.Errorf("service account login: %w", err)
		}

		account, err := json.Marshal(result.Account)
		if err != nil {
			return "", err
		}
		err = credstore.SetSession(ctx, store, models.Credentials{
			AccessToken:  result.Tokens.Access,
			RefreshToken: result.Tokens.Refresh,
			Account:      string(account),
		})
		if err != nil {
			return "", err
		}

		return result.Tokens.Access, nil
	}
}

// Run starts the http server and the background loops, closing
// gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err != nil {
			s.logger.Error("HTTP server shutdown", "error", err.Error())
		}
		s.logger.Info("HTTP server stopped")
		return nil
	})

	g.Go(func() error {
		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		err := s.manager.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if s.listener != nil {
		g.Go(func() error {
			err := s.listener.Run(gctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	s.logger.Info("gateway started", "addr", s.ListenAddr)
	return g.Wait()
}
