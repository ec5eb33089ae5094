package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/annotator/internal/auth"
	"github.com/pribylovaa/annotator/internal/models"
	"github.com/pribylovaa/annotator/internal/storage"
)

// ImageInput — добавление изображения в проект.
type ImageInput struct {
	Name        string
	Type        models.ImageType
	URL         string
	Metadata    models.ImageMetadata
	Annotations models.Annotations
	Status      string
}

// ImagePatch — изменение изображения.
type ImagePatch struct {
	Name        *string
	URL         *string
	Status      *string
	Metadata    *models.ImageMetadata
	Annotations *models.Annotations
}

// Права на изображение выводятся из проекта при каждом обращении.

// CreateImage добавляет изображение в проект.
func (s *Service) CreateImage(ctx context.Context, id *auth.Identity, projectID string, in ImageInput) (*models.Image, error) {
	const op = "service.images.CreateImage"

	if _, err := s.authorizeProject(ctx, id, projectID, auth.LevelWrite); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if in.Status == "" {
		in.Status = models.ImageStatusUploaded
	}

	var v validator
	v.check(strings.TrimSpace(in.Name) != "", "name", "Name is required")
	v.check(in.Type.Valid(), "type", "Type must be one of synthetic, real, augmented")
	v.check(validImageURL(in.URL), "url", "URL must be an http(s) URL or an absolute path")
	v.check(slices.Contains(imageStatuses, in.Status), "status", "Unknown status")
	checkMetadata(&v, &in.Metadata)
	checkAnnotations(&v, &in.Annotations)
	if err := v.err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	assignBoxIDs(&in.Annotations)

	img := &models.Image{
		ProjectID:   projectID,
		Name:        strings.TrimSpace(in.Name),
		Type:        in.Type,
		URL:         in.URL,
		Metadata:    in.Metadata,
		Annotations: in.Annotations,
		Status:      in.Status,
		CreatedBy:   id.UserID,
	}

	if err := s.storage.SaveImage(ctx, img); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return img, nil
}

// ListImages — изображения проекта с фильтром по типу.
func (s *Service) ListImages(ctx context.Context, id *auth.Identity, projectID string, p models.ListParams) (*models.ImagePage, models.ListParams, error) {
	const op = "service.images.ListImages"

	if _, err := s.authorizeProject(ctx, id, projectID, auth.LevelRead); err != nil {
		return nil, p, fmt.Errorf("%s: %w", op, err)
	}

	p, err := imagesList.normalize(p)
	if err == nil && p.Type != "" && !p.Type.Valid() {
		err = Invalid("type", "Type must be one of synthetic, real, augmented")
	}
	if err != nil {
		return nil, p, fmt.Errorf("%s: %w", op, err)
	}

	page, err := s.storage.ListImages(ctx, projectID, p)
	if err != nil {
		return nil, p, fmt.Errorf("%s: %w", op, err)
	}

	return page, p, nil
}

// GetImage возвращает изображение проекта.
func (s *Service) GetImage(ctx context.Context, id *auth.Identity, projectID, imageID string) (*models.Image, error) {
	const op = "service.images.GetImage"

	if _, err := s.authorizeProject(ctx, id, projectID, auth.LevelRead); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	img, err := s.storage.ImageByID(ctx, projectID, imageID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrImageNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return img, nil
}

// UpdateImage изменяет изображение (в том числе разметку).
func (s *Service) UpdateImage(ctx context.Context, id *auth.Identity, projectID, imageID string, patch ImagePatch) (*models.Image, error) {
	const op = "service.images.UpdateImage"

	if _, err := s.authorizeProject(ctx, id, projectID, auth.LevelWrite); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var v validator
	if patch.Name != nil {
		v.check(strings.TrimSpace(*patch.Name) != "", "name", "Name is required")
	}
	if patch.URL != nil {
		v.check(validImageURL(*patch.URL), "url", "URL must be an http(s) URL or an absolute path")
	}
	if patch.Status != nil {
		v.check(slices.Contains(imageStatuses, *patch.Status), "status", "Unknown status")
	}
	if patch.Metadata != nil {
		checkMetadata(&v, patch.Metadata)
	}
	if patch.Annotations != nil {
		checkAnnotations(&v, patch.Annotations)
	}
	if err := v.err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if patch.Annotations != nil {
		assignBoxIDs(patch.Annotations)
	}

	img, err := s.storage.UpdateImage(ctx, projectID, imageID, models.ImageUpdate{
		Name:        patch.Name,
		URL:         patch.URL,
		Status:      patch.Status,
		Metadata:    patch.Metadata,
		Annotations: patch.Annotations,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrImageNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return img, nil
}

// DeleteImage удаляет изображение проекта.
func (s *Service) DeleteImage(ctx context.Context, id *auth.Identity, projectID, imageID string) error {
	const op = "service.images.DeleteImage"

	if _, err := s.authorizeProject(ctx, id, projectID, auth.LevelWrite); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.DeleteImage(ctx, projectID, imageID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrImageNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func assignBoxIDs(a *models.Annotations) {
	for i := range a.BoundingBoxes {
		if a.BoundingBoxes[i].ID == "" {
			a.BoundingBoxes[i].ID = uuid.NewString()
		}
	}
}
