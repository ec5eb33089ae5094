package handlers

import (
	"time"

	"github.com/pribylovaa/annotator/internal/models"
)

// Ответы сервиса. Хэш пароля и версия токенов наружу не отдаются.

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

func userFromModel(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// sessionResponse — ответ login/register: профиль и access-токен.
type sessionResponse struct {
	userResponse
	AccessToken string `json:"accessToken"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type usersListResponse struct {
	Users      []userResponse `json:"users"`
	Pagination pagination     `json:"pagination"`
}

type projectResponse struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"ownerId"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Settings    map[string]any `json:"settings"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func projectFromModel(p *models.Project) projectResponse {
	settings := p.Settings
	if settings == nil {
		settings = map[string]any{}
	}

	return projectResponse{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
		Settings:    settings,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type projectsListResponse struct {
	Projects   []projectResponse `json:"projects"`
	Pagination pagination        `json:"pagination"`
}

type imageResponse struct {
	ID          string               `json:"id"`
	ProjectID   string               `json:"projectId"`
	Name        string               `json:"name"`
	Type        string               `json:"type"`
	URL         string               `json:"url"`
	Metadata    models.ImageMetadata `json:"metadata"`
	Annotations models.Annotations   `json:"annotations"`
	Status      string               `json:"status"`
	CreatedBy   string               `json:"createdBy"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

func imageFromModel(img *models.Image) imageResponse {
	ann := img.Annotations
	if ann.BoundingBoxes == nil {
		ann.BoundingBoxes = []models.BoundingBox{}
	}

	return imageResponse{
		ID:          img.ID,
		ProjectID:   img.ProjectID,
		Name:        img.Name,
		Type:        string(img.Type),
		URL:         img.URL,
		Metadata:    img.Metadata,
		Annotations: ann,
		Status:      img.Status,
		CreatedBy:   img.CreatedBy,
		CreatedAt:   img.CreatedAt,
		UpdatedAt:   img.UpdatedAt,
	}
}

type imagesListResponse struct {
	Images     []imageResponse `json:"images"`
	Pagination pagination      `json:"pagination"`
}
