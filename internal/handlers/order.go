package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/tabletap/gateway/internal/credstore"
	"github.com/tabletap/gateway/internal/handlers/render"
	"github.com/tabletap/gateway/internal/logger"
	"github.com/tabletap/gateway/internal/models"
	"github.com/tabletap/gateway/internal/orders"
	"github.com/tabletap/gateway/internal/token"
)

type upstreamOrders interface {
	ListOrders(ctx context.Context, accessToken string, from time.Time, to time.Time) ([]models.Order, error)
}

type OrderHandler struct {
	upstream upstreamOrders
	logger   logger.Logger
}

func NewOrder(up upstreamOrders, log logger.Logger) *OrderHandler {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &OrderHandler{upstream: up, logger: log}
}

// staffAccessToken authorizes the staff order views: a valid access
// token with a non-guest role
func staffAccessToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	jar := credstore.NewCookie(r, w)
	accessToken, _ := jar.Get(r.Context(), credstore.KeyAccessToken)

	payload := token.Decode(accessToken)
	if payload == nil {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return "", false
	}
	if payload.Role == models.RoleGuest {
		render.ServiceError(w, "Forbidden", http.StatusForbidden)
		return "", false
	}

	return accessToken, true
}

func (h *OrderHandler) fetch(w http.ResponseWriter, r *http.Request) ([]models.Order, bool) {
	accessToken, ok := staffAccessToken(w, r)
	if !ok {
		return nil, false
	}

	from, ok := parseTimeParam(w, r, "fromDate")
	if !ok {
		return nil, false
	}
	to, ok := parseTimeParam(w, r, "toDate")
	if !ok {
		return nil, false
	}

	list, err := h.upstream.ListOrders(r.Context(), accessToken, from, to)
	if err != nil {
		h.logger.Warn("order fetch failed", "error", err.Error())
		renderUpstreamError(w, err, "Unauthorized")
		return nil, false
	}

	return list, true
}

// List serves the raw order list for the staff order table
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	list, ok := h.fetch(w, r)
	if !ok {
		return
	}
	render.JSON(w, list)
}

// Statistics serves the aggregated dashboard view of the same list
func (h *OrderHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	type StatisticsResponse struct {
		StatusTotals         orders.StatusTally    `json:"statusTotals"`
		TableTallies         orders.TableTallies   `json:"tableTallies"`
		ServingGuestsByTable orders.ServingByTable `json:"servingGuestsByTable"`
	}

	list, ok := h.fetch(w, r)
	if !ok {
		return
	}

	stats := orders.Aggregate(list)
	render.JSON(w, StatisticsResponse{
		StatusTotals:         stats.Status,
		TableTallies:         stats.Tables,
		ServingGuestsByTable: stats.ServingGuestsByTable,
	})
}

func parseTimeParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, true
	}

	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		render.ServiceError(w, "Invalid "+name+" parameter, want RFC 3339", http.StatusBadRequest)
		return time.Time{}, false
	}
	return value, true
}
