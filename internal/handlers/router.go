package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tabletap/gateway/internal/handlers/render"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// NewRouter wires the gateway surface: the /api endpoints the frontend
// calls, health and metrics, and every other path guarded and handed to
// the page handler (normally the frontend reverse proxy).
func NewRouter(
	auth *AuthHandler,
	guest *GuestHandler,
	order *OrderHandler,
	pages http.Handler,
	guardMiddleware func(http.Handler) http.Handler,
	loggerMiddleware func(http.Handler) http.Handler,
) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /auth/login", auth.Login)
	api.HandleFunc("POST /auth/logout", auth.Logout)
	api.HandleFunc("POST /auth/refresh", auth.Refresh)
	api.HandleFunc("POST /guest/auth/login", guest.Login)
	api.HandleFunc("GET /guest/orders", guest.Orders)
	api.HandleFunc("GET /orders", order.List)
	api.HandleFunc("GET /orders/statistics", order.Statistics)

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.HandleFunc("GET /healthz", handleHealth)
	root.Handle("GET /metrics", promhttp.Handler())
	root.Handle("/", guardMiddleware(pages))

	return chain(root, loggerMiddleware)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	render.JSON(w, MessageResponse{Message: "ok"})
}
