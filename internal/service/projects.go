package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pribylovaa/annotator/internal/auth"
	"github.com/pribylovaa/annotator/internal/models"
	"github.com/pribylovaa/annotator/internal/pkg/log"
	"github.com/pribylovaa/annotator/internal/storage"
)

// ProjectInput — создание проекта.
type ProjectInput struct {
	Name        string
	Description string
	Settings    map[string]any
}

// ProjectPatch — изменение проекта: только name, description, settings, status.
type ProjectPatch struct {
	Name        *string
	Description *string
	Settings    map[string]any
	Status      *models.ProjectStatus
}

func validProjectName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= minProjectNameLen && n <= maxNameLen
}

// authorizeProject загружает проект и проверяет права.
// Чужой проект неотличим от отсутствующего: оба — ErrProjectNotFound.
func (s *Service) authorizeProject(ctx context.Context, id *auth.Identity, projectID string, lvl auth.Level) (*models.Project, error) {
	p, err := s.storage.ProjectByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrProjectNotFound
		}

		return nil, err
	}

	res := auth.Resource{Kind: "project", ID: p.ID, OwnerID: p.OwnerID}
	if s.guard.Authorize(id, res, lvl) == auth.Deny {
		log.From(ctx).Debug("project_access_denied",
			slog.String("project_id", p.ID),
			slog.String("user_id", id.UserID),
		)
		return nil, ErrProjectNotFound
	}

	return p, nil
}

// CreateProject создаёт проект, владелец — вызывающий.
func (s *Service) CreateProject(ctx context.Context, id *auth.Identity, in ProjectInput) (*models.Project, error) {
	const op = "service.projects.CreateProject"

	var v validator
	v.check(validProjectName(in.Name), "name", fmt.Sprintf("Project name must be at least %d characters", minProjectNameLen))
	if err := v.err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p := &models.Project{
		OwnerID:     id.UserID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Settings:    in.Settings,
		Status:      models.ProjectActive,
	}

	if err := s.storage.SaveProject(ctx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// ListProjects — обычный пользователь видит только свои проекты;
// администратор видит все и может фильтровать по ownerId.
func (s *Service) ListProjects(ctx context.Context, id *auth.Identity, p models.ListParams) (*models.ProjectPage, models.ListParams, error) {
	const op = "service.projects.ListProjects"

	p, err := projectsList.normalize(p)
	if err != nil {
		return nil, p, fmt.Errorf("%s: %w", op, err)
	}

	if !id.IsAdmin() {
		p.OwnerID = id.UserID
	}

	page, err := s.storage.ListProjects(ctx, p)
	if err != nil {
		return nil, p, fmt.Errorf("%s: %w", op, err)
	}

	return page, p, nil
}

// GetProject возвращает проект владельцу или администратору.
func (s *Service) GetProject(ctx context.Context, id *auth.Identity, projectID string) (*models.Project, error) {
	const op = "service.projects.GetProject"

	p, err := s.authorizeProject(ctx, id, projectID, auth.LevelRead)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// UpdateProject применяет разрешённые изменения.
func (s *Service) UpdateProject(ctx context.Context, id *auth.Identity, projectID string, patch ProjectPatch) (*models.Project, error) {
	const op = "service.projects.UpdateProject"

	if _, err := s.authorizeProject(ctx, id, projectID, auth.LevelWrite); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		v   validator
		upd models.ProjectUpdate
	)

	if patch.Name != nil {
		v.check(validProjectName(*patch.Name), "name", fmt.Sprintf("Project name must be at least %d characters", minProjectNameLen))
		name := strings.TrimSpace(*patch.Name)
		upd.Name = &name
	}
	if patch.Description != nil {
		d := strings.TrimSpace(*patch.Description)
		upd.Description = &d
	}
	if patch.Status != nil {
		v.check(*patch.Status == models.ProjectActive || *patch.Status == models.ProjectArchived, "status", "Status must be active or archived")
		upd.Status = patch.Status
	}
	upd.Settings = patch.Settings
	if err := v.err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.storage.UpdateProject(ctx, projectID, upd)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrProjectNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// DeleteProject удаляет проект и его изображения.
func (s *Service) DeleteProject(ctx context.Context, id *auth.Identity, projectID string) error {
	const op = "service.projects.DeleteProject"

	if _, err := s.authorizeProject(ctx, id, projectID, auth.LevelWrite); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.DeleteProject(ctx, projectID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrProjectNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.storage.DeleteImagesByProjects(ctx, projectID); err != nil {
		return fmt.Errorf("%s: delete images: %w", op, err)
	}

	return nil
}
