package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/annotator/internal/errors"
	"github.com/pribylovaa/annotator/internal/models"
	"github.com/pribylovaa/annotator/internal/service"
)

type createImageRequest struct {
	Name        string               `json:"name"`
	Type        string               `json:"type"`
	URL         string               `json:"url"`
	Metadata    models.ImageMetadata `json:"metadata"`
	Annotations models.Annotations   `json:"annotations"`
	Status      string               `json:"status"`
}

type updateImageRequest struct {
	Name        *string               `json:"name"`
	URL         *string               `json:"url"`
	Status      *string               `json:"status"`
	Metadata    *models.ImageMetadata `json:"metadata"`
	Annotations *models.Annotations   `json:"annotations"`
}

func (h *Handlers) ListImages(w http.ResponseWriter, r *http.Request) {
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

	page, p, err := h.svc.ListImages(r.Context(), id, chi.URLParam(r, "projectID"), p)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := imagesListResponse{Images: make([]imageResponse, 0, len(page.Items)), Pagination: newPagination(p, page.Total)}
	for i := range page.Items {
		out.Images = append(out.Images, imageFromModel(&page.Items[i]))
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) CreateImage(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in createImageRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	img, err := h.svc.CreateImage(r.Context(), id, chi.URLParam(r, "projectID"), service.ImageInput{
		Name:        in.Name,
		Type:        models.ImageType(in.Type),
		URL:         in.URL,
		Metadata:    in.Metadata,
		Annotations: in.Annotations,
		Status:      in.Status,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, imageFromModel(img))
}

func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	img, err := h.svc.GetImage(r.Context(), id, chi.URLParam(r, "projectID"), chi.URLParam(r, "imageID"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, imageFromModel(img))
}

func (h *Handlers) UpdateImage(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in updateImageRequest
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	img, err := h.svc.UpdateImage(r.Context(), id, chi.URLParam(r, "projectID"), chi.URLParam(r, "imageID"), service.ImagePatch{
		Name:        in.Name,
		URL:         in.URL,
		Status:      in.Status,
		Metadata:    in.Metadata,
		Annotations: in.Annotations,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, imageFromModel(img))
}

func (h *Handlers) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.DeleteImage(r.Context(), id, chi.URLParam(r, "projectID"), chi.URLParam(r, "imageID")); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
