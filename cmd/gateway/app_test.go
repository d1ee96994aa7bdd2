package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tabletap/gateway/internal/testutil"
)

func Test_ServerApp(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message": "ok"}`))
	}))
	t.Cleanup(upstream.Close)

	newTestConfig := func(t *testing.T) *Config {
		t.Helper()

		port, err := testutil.RandomPort()
		require.NoError(t, err, "failed to get random port to start server")

		c := NewConfig()
		c.ListenAddr = fmt.Sprintf("localhost:%d", port)
		c.UpstreamURL = upstream.URL
		c.Environment = "dev"
		return c
	}

	t.Run("stop with context cancel", func(t *testing.T) {
		srv, err := NewServerApp(context.Background(), newTestConfig(t))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond) // Half Second
		t.Cleanup(cancel)

		err = srv.Run(ctx)
		require.NoError(t, err, "on correct stop should not return error")
	})

	t.Run("push channel without service account must fail", func(t *testing.T) {
		c := newTestConfig(t)
		c.PushURL = "ws://localhost:1/ws"

		_, err := NewServerApp(context.Background(), c)
		require.Error(t, err)
	})

	t.Run("invalid upstream url must fail", func(t *testing.T) {
		c := newTestConfig(t)
		c.UpstreamURL = ""

		_, err := NewServerApp(context.Background(), c)
		require.Error(t, err)
	})
}
