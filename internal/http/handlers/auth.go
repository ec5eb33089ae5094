package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/annotator/internal/errors"
	"github.com/pribylovaa/annotator/internal/service"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register — POST /auth/register: 201, профиль + accessToken, refresh в cookie.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, pair, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:    in.Email,
		Password: in.Password,
		Name:     in.Name,
	})
	h.metrics.AuthEvent("register", err == nil)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusCreated, sessionResponse{userResponse: userFromModel(user), AccessToken: pair.AccessToken})
}

// Login — POST /auth/login. При любой ошибке cookie не выставляется.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, pair, err := h.svc.Login(r.Context(), in.Email, in.Password)
	h.metrics.AuthEvent("login", err == nil)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, sessionResponse{userResponse: userFromModel(user), AccessToken: pair.AccessToken})
}

// Refresh — POST /auth/refresh: принимает только refresh-cookie, выдаёт новую пару.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	_, pair, err := h.svc.Refresh(r.Context(), h.authn.RefreshToken(r))
	h.metrics.AuthEvent("refresh", err == nil)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: pair.AccessToken})
}

// Logout — POST /auth/logout: всегда 200, cookie очищается.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.svc.Logout(r.Context(), h.authn.RefreshToken(r))
	h.metrics.AuthEvent("logout", true)

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// Me — GET /auth/me: актуальный профиль вызывающего.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.Me(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(user))
}
