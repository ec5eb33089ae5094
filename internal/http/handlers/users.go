package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/annotator/internal/errors"
	"github.com/pribylovaa/annotator/internal/models"
	"github.com/pribylovaa/annotator/internal/service"
)

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	p, err := listParams(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	page, p, err := h.svc.ListUsers(r.Context(), id, p)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := usersListResponse{Users: make([]userResponse, 0, len(page.Items)), Pagination: newPagination(p, page.Total)}
	for i := range page.Items {
		out.Users = append(out.Users, userFromModel(&page.Items[i]))
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in createUserRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.CreateUser(r.Context(), id, service.CreateUserInput{
		Email:    in.Email,
		Password: in.Password,
		Name:     in.Name,
		Role:     models.Role(in.Role),
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, userFromModel(user))
}

func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	user, err := h.svc.GetUser(r.Context(), id, chi.URLParam(r, "userID"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(user))
}

func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in updateUserRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	patch := service.UserPatch{Name: in.Name, Email: in.Email, Password: in.Password}
	if in.Role != nil {
		role := models.Role(*in.Role)
		patch.Role = &role
	}

	user, err := h.svc.UpdateUser(r.Context(), id, chi.URLParam(r, "userID"), patch)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userFromModel(user))
}

func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.DeleteUser(r.Context(), id, chi.URLParam(r, "userID")); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
