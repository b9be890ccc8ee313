package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

var errMissingRegistration = errors.New("email and password are required")

type authResponse struct {
	OK    bool      `json:"ok"`
	Token string    `json:"token"`
	User  auth.User `json:"user"`
}

// Login exchanges a username and password for a token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var c auth.Credentials
	if !h.decode(w, r, &c) {
		return
	}
	c.Username = strings.TrimSpace(c.Username)
	if c.Username == "" || c.Password == "" {
		httpmiddleware.WriteError(w, http.StatusBadRequest, auth.ErrMissingCredentials.Error())
		return
	}

	if h.loginLimiter != nil {
		d := h.loginLimiter.Allow("login:" + strings.ToLower(c.Username))
		h.loginLimiter.SetHeaders(w, d)
		if !d.Allowed {
			zctx.From(r.Context()).Warn("Login attempts throttled", zap.String("username", c.Username))
			httpmiddleware.WriteError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
			return
		}
	}

	g, err := h.auth.Login(r.Context(), c)
	h.writeGrant(w, r, g, err, http.StatusUnauthorized)
}

// Register creates a customer account and logs it in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var reg auth.Registration
	if !h.decode(w, r, &reg) {
		return
	}
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Email == "" || reg.Password == "" {
		httpmiddleware.WriteError(w, http.StatusBadRequest, errMissingRegistration.Error())
		return
	}

	g, err := h.auth.Register(r.Context(), reg)
	h.writeGrant(w, r, g, err, http.StatusBadRequest)
}

// writeGrant answers a login or registration. Upstream client errors are
// reported with rejectStatus and the upstream message.
func (h *Handler) writeGrant(w http.ResponseWriter, r *http.Request, g *auth.Grant, err error, rejectStatus int) {
	if err == nil && (g == nil || g.Token == "") {
		err = auth.ErrIncompleteGrant
	}
	if err != nil {
		status, body := mapAuthError(err, rejectStatus)
		if status >= http.StatusInternalServerError {
			zctx.From(r.Context()).Error("Auth request failed", zap.Error(err))
		}
		httpmiddleware.WriteJSON(w, status, body)
		return
	}

	httpmiddleware.WriteJSON(w, http.StatusOK, authResponse{OK: true, Token: g.Token, User: g.User})
}

func mapAuthError(err error, rejectStatus int) (int, httpmiddleware.ErrorBody) {
	var upErr upstreamError
	if errors.As(err, &upErr) {
		body := httpmiddleware.ErrorBody{Message: order.FailureMessage(err), Detail: upErr.Detail()}
		if s := upErr.UpstreamStatus(); s >= 400 && s < 500 {
			return rejectStatus, body
		}
		return http.StatusBadGateway, body
	}
	if errors.Is(err, auth.ErrIncompleteGrant) {
		return http.StatusBadGateway, httpmiddleware.ErrorBody{Message: err.Error()}
	}
	return http.StatusBadGateway, httpmiddleware.ErrorBody{Message: order.FailureMessage(err)}
}
