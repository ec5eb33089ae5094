package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/annotator/internal/errors"
	"github.com/pribylovaa/annotator/internal/models"
	"github.com/pribylovaa/annotator/internal/service"
)

type createProjectRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Settings    map[string]any `json:"settings"`
}

type updateProjectRequest struct {
	Name        *string        `json:"name"`
	Description *string        `json:"description"`
	Settings    map[string]any `json:"settings"`
	Status      *string        `json:"status"`
}

func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
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

	page, p, err := h.svc.ListProjects(r.Context(), id, p)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := projectsListResponse{Projects: make([]projectResponse, 0, len(page.Items)), Pagination: newPagination(p, page.Total)}
	for i := range page.Items {
		out.Projects = append(out.Projects, projectFromModel(&page.Items[i]))
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in createProjectRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	p, err := h.svc.CreateProject(r.Context(), id, service.ProjectInput{
		Name:        in.Name,
		Description: in.Description,
		Settings:    in.Settings,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, projectFromModel(p))
}

func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	p, err := h.svc.GetProject(r.Context(), id, chi.URLParam(r, "projectID"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, projectFromModel(p))
}

func (h *Handlers) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in updateProjectRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	patch := service.ProjectPatch{Name: in.Name, Description: in.Description, Settings: in.Settings}
	if in.Status != nil {
		st := models.ProjectStatus(*in.Status)
		patch.Status = &st
	}

	p, err := h.svc.UpdateProject(r.Context(), id, chi.URLParam(r, "projectID"), patch)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, projectFromModel(p))
}

func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.DeleteProject(r.Context(), id, chi.URLParam(r, "projectID")); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
