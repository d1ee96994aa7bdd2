package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tabletap/gateway/internal/credstore"
	"github.com/tabletap/gateway/internal/guard"
	"github.com/tabletap/gateway/internal/logger"
	"github.com/tabletap/gateway/internal/metrics"
	"github.com/tabletap/gateway/internal/session"
	"github.com/tabletap/gateway/internal/token"
)

// Query parameter keys understood by the frontend
const (
	ParamRedirect     = "redirect"
	ParamRefreshToken = "refresh_token"
	ParamClearTokens  = "clear_tokens"
)

// Routes whose whole purpose is establishing or tearing down a session;
// running the silent-refresh hook there would loop
var refreshSkipRoutes = map[string]struct{}{
	"/login":         {},
	"/logout":        {},
	"/refresh-token": {},
}

type refreshController interface {
	CheckAndRefresh(ctx context.Context, store credstore.Store, force bool, hooks session.Hooks) (session.Outcome, error)
}

type sessionRegistry interface {
	StoreFor(sid string) credstore.Store
	Forget(ctx context.Context, sid string)
}

// GuardMiddleware applies the route guard decision to every page
// navigation and, on allowed ones, runs the silent-refresh check. The
// decision itself is pure; the redirects and cookie deletions happen
// here.
func GuardMiddleware(ctrl refreshController, sessions sessionRegistry, log logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewNoOp()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			jar := credstore.NewCookie(r, w)

			sid, _ := jar.Get(ctx, credstore.KeySessionID)

			// With a tracked session the mirror may hold a pair renewed
			// by the background sweeper; the jar catches up here, and
			// later writes go to both
			var store credstore.Store = jar
			if sid != "" {
				mirror := sessions.StoreFor(sid)
				syncJarFromMirror(ctx, jar, mirror, log)
				store = credstore.Fanout(jar, mirror)
			}

			creds, err := credstore.Load(ctx, jar)
			if err != nil {
				// Treat an unreadable jar as an anonymous visitor
				log.Error("cookie jar read failed", "error", err.Error())
			}

			role := ""
			if payload := token.Decode(creds.RefreshToken); payload != nil {
				role = payload.Role
			}

			decision := guard.Decide(r.URL.Path, creds.AccessToken != "", creds.RefreshToken != "", role)
			metrics.GuardDecisions.WithLabelValues(decision.Kind.String()).Inc()

			switch decision.Kind {
			case guard.RedirectLogin:
				if decision.ClearTokens {
					if err := credstore.ClearSession(ctx, store); err != nil {
						log.Error("clearing tokens on login redirect failed", "error", err.Error())
					}
					if sid != "" {
						sessions.Forget(ctx, sid)
					}
				}

				query := url.Values{}
				if decision.ClearTokens {
					query.Set(ParamClearTokens, "true")
				}
				redirect(w, r, "/login", query)

			case guard.RedirectRefresh:
				query := url.Values{}
				query.Set(ParamRefreshToken, creds.RefreshToken)
				query.Set(ParamRedirect, decision.Next)
				redirect(w, r, "/refresh-token", query)

			case guard.RedirectHome:
				redirect(w, r, "/", nil)

			default:
				if _, skip := refreshSkipRoutes[r.URL.Path]; !skip {
					if _, err := ctrl.CheckAndRefresh(ctx, store, false, session.Hooks{}); err != nil {
						log.Warn("navigation refresh check", "path", r.URL.Path, "error", err.Error())
					}
				}
				next.ServeHTTP(w, r)
			}
		})
	}
}

// syncJarFromMirror rewrites browser cookies when the background sweeper
// renewed the pair since the browser last navigated
func syncJarFromMirror(ctx context.Context, jar *credstore.CookieStore, mirror credstore.Store, log logger.Logger) {
	mirrored, err := credstore.Load(ctx, mirror)
	if err != nil || !mirrored.Complete() {
		return
	}

	inJar, err := credstore.Load(ctx, jar)
	if err != nil || inJar.AccessToken == mirrored.AccessToken {
		return
	}

	if err := credstore.SetSession(ctx, jar, mirrored); err != nil {
		log.Error("syncing renewed pair to cookies failed", "error", err.Error())
	}
}

func redirect(w http.ResponseWriter, r *http.Request, path string, query url.Values) {
	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}
