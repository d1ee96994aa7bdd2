package handlers

import (
	"context"
	"net/http"

	"github.com/tabletap/gateway/internal/credstore"
	"github.com/tabletap/gateway/internal/handlers/render"
	"github.com/tabletap/gateway/internal/logger"
	"github.com/tabletap/gateway/internal/models"
	"github.com/tabletap/gateway/internal/session"
	"github.com/tabletap/gateway/internal/token"
	"github.com/tabletap/gateway/internal/upstream"
)

type upstreamAuth interface {
	Login(ctx context.Context, email string, password string) (upstream.LoginResult, error)
	Logout(ctx context.Context, accessToken string, refreshToken string) error
	GuestLogout(ctx context.Context, accessToken string, refreshToken string) error
}

type refreshController interface {
	CheckAndRefresh(ctx context.Context, store credstore.Store, force bool, hooks session.Hooks) (session.Outcome, error)
}

type AuthHandler struct {
	upstream upstreamAuth
	ctrl     refreshController
	sessions sessionRegistry
	logger   logger.Logger
}

func NewAuth(up upstreamAuth, ctrl refreshController, sessions sessionRegistry, log logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &AuthHandler{upstream: up, ctrl: ctrl, sessions: sessions, logger: log}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6,max=100"`
	}
	type LoginResponse struct {
		Message string         `json:"message"`
		Account models.Account `json:"account"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	result, err := h.upstream.Login(r.Context(), data.Email, data.Password)
	if err != nil {
		h.logger.Warn("login failed", "email", data.Email, "error", err.Error())
		renderUpstreamError(w, err, "Invalid email or password")
		return
	}

	jar := credstore.NewCookie(r, w)
	sid, err := establishSession(r.Context(), jar, h.sessions, result.Tokens, result.Account)
	if err != nil {
		h.logger.Error("establishing session failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("staff logged in", "account", result.Account.ID, "role", result.Account.Role, "sid", sid)
	render.JSON(w, LoginResponse{Message: "Logged in successfully", Account: result.Account})
}

// Logout revokes the refresh token upstream (guest endpoint for guest
// sessions) and tears everything down locally either way
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jar := credstore.NewCookie(r, w)

	creds, err := credstore.Load(ctx, jar)
	if err != nil {
		h.logger.Error("cookie jar read failed", "error", err.Error())
	}

	if creds.RefreshToken != "" {
		revoke := h.upstream.Logout
		if payload := token.Decode(creds.RefreshToken); payload != nil && payload.Role == models.RoleGuest {
			revoke = h.upstream.GuestLogout
		}

		if err := revoke(ctx, creds.AccessToken, creds.RefreshToken); err != nil {
			// Local teardown still proceeds: a dead upstream must not
			// keep the browser logged in
			h.logger.Warn("upstream logout failed", "error", err.Error())
		}
	}

	sid, _ := jar.Get(ctx, credstore.KeySessionID)
	if err := dropSession(ctx, jar, h.sessions, sid); err != nil {
		h.logger.Error("dropping session failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, MessageResponse{Message: "Logged out successfully"})
}

// Refresh forces an immediate pair renewal for the calling browser,
// regardless of the renewal threshold. Used by the refresh-token page.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jar := credstore.NewCookie(r, w)

	sid, _ := jar.Get(ctx, credstore.KeySessionID)
	var store credstore.Store = jar
	if sid != "" {
		store = credstore.Fanout(jar, h.sessions.StoreFor(sid))
	}

	outcome, err := h.ctrl.CheckAndRefresh(ctx, store, true, session.Hooks{})
	switch outcome {
	case session.OutcomeRefreshed:
		render.JSON(w, MessageResponse{Message: "Tokens refreshed successfully"})

	case session.OutcomeFailed:
		if sid != "" {
			h.sessions.Forget(ctx, sid)
		}
		_ = jar.Remove(ctx, credstore.KeySessionID)
		render.ServiceError(w, "Session expired, please log in again", http.StatusUnauthorized)

	default:
		if err != nil {
			h.logger.Warn("forced refresh failed", "error", err.Error())
			render.ServiceError(w, "Upstream service unavailable", http.StatusBadGateway)
			return
		}
		render.JSON(w, MessageResponse{Message: "Nothing to refresh"})
	}
}
