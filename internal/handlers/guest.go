package handlers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/tabletap/gateway/internal/credstore"
	"github.com/tabletap/gateway/internal/handlers/render"
	"github.com/tabletap/gateway/internal/logger"
	"github.com/tabletap/gateway/internal/models"
	"github.com/tabletap/gateway/internal/orders"
	"github.com/tabletap/gateway/internal/token"
	"github.com/tabletap/gateway/internal/upstream"
)

type upstreamGuest interface {
	GuestLogin(ctx context.Context, name string, tableNumber int64, tableToken string) (upstream.GuestLoginResult, error)
	GuestOrders(ctx context.Context, accessToken string) ([]models.Order, error)
}

type GuestHandler struct {
	upstream upstreamGuest
	sessions sessionRegistry
	logger   logger.Logger
}

func NewGuest(up upstreamGuest, sessions sessionRegistry, log logger.Logger) *GuestHandler {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &GuestHandler{upstream: up, sessions: sessions, logger: log}
}

// Login signs a table visitor in with the table's QR token
func (h *GuestHandler) Login(w http.ResponseWriter, r *http.Request) {
	type GuestLoginRequest struct {
		Name        string `json:"name" validate:"required,min=2,max=50"`
		TableNumber int64  `json:"tableNumber" validate:"required,gt=0"`
		Token       string `json:"token" validate:"required"`
	}
	type GuestLoginResponse struct {
		Message string       `json:"message"`
		Guest   models.Guest `json:"guest"`
	}

	data, err := render.BindAndValidate[GuestLoginRequest](w, r)
	if err != nil {
		return
	}

	result, err := h.upstream.GuestLogin(r.Context(), data.Name, data.TableNumber, data.Token)
	if err != nil {
		h.logger.Warn("guest login failed", "table", data.TableNumber, "error", err.Error())
		renderUpstreamError(w, err, "Invalid or expired table token")
		return
	}

	jar := credstore.NewCookie(r, w)
	sid, err := establishSession(r.Context(), jar, h.sessions, result.Tokens, result.Guest)
	if err != nil {
		h.logger.Error("establishing guest session failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("guest logged in", "guest", result.Guest.ID, "table", data.TableNumber, "sid", sid)
	render.JSON(w, GuestLoginResponse{Message: "Logged in successfully", Guest: result.Guest})
}

// Orders returns the calling guest's own order list with the waiting
// and paid totals their order page shows
func (h *GuestHandler) Orders(w http.ResponseWriter, r *http.Request) {
	type TotalsResponse struct {
		Waiting decimal.Decimal `json:"waiting"`
		Paid    decimal.Decimal `json:"paid"`
	}
	type GuestOrdersResponse struct {
		Orders []models.Order `json:"orders"`
		Totals TotalsResponse `json:"totals"`
	}

	ctx := r.Context()
	jar := credstore.NewCookie(r, w)

	accessToken, _ := jar.Get(ctx, credstore.KeyAccessToken)
	payload := token.Decode(accessToken)
	if payload == nil {
		render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if payload.Role != models.RoleGuest {
		render.ServiceError(w, "Forbidden", http.StatusForbidden)
		return
	}

	list, err := h.upstream.GuestOrders(ctx, accessToken)
	if err != nil {
		h.logger.Warn("guest order fetch failed", "guest", payload.SubjectID, "error", err.Error())
		renderUpstreamError(w, err, "Unauthorized")
		return
	}

	totals := orders.TotalsForGuest(list)
	render.JSON(w, GuestOrdersResponse{
		Orders: list,
		Totals: TotalsResponse{Waiting: totals.Waiting, Paid: totals.Paid},
	})
}
