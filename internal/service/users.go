package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pribylovaa/annotator/internal/auth"
	"github.com/pribylovaa/annotator/internal/models"
	"github.com/pribylovaa/annotator/internal/pkg/log"
	"github.com/pribylovaa/annotator/internal/storage"
)

// CreateUserInput — создание пользователя администратором.
type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	Role     models.Role
}

// UserPatch — изменение профиля. Role меняет только администратор.
type UserPatch struct {
	Name     *string
	Email    *string
	Password *string
	Role     *models.Role
}

// userResource — учётная запись принадлежит самому пользователю.
func userResource(userID string) auth.Resource {
	return auth.Resource{Kind: "user", ID: userID, OwnerID: userID}
}

// authorizeUser пускает к записи userID только её владельца или администратора.
// Решение принимается до обращения к хранилищу: 403 не раскрывает существование записи.
func (s *Service) authorizeUser(id *auth.Identity, userID string, lvl auth.Level) error {
	if s.guard.Authorize(id, userResource(userID), lvl) == auth.Deny {
		return ErrForbidden
	}

	return nil
}

// ListUsers — список пользователей (только администратор).
func (s *Service) ListUsers(ctx context.Context, id *auth.Identity, p models.ListParams) (*models.UserPage, models.ListParams, error) {
	const op = "service.users.ListUsers"

	if !id.IsAdmin() {
		return nil, p, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	p, err := usersList.normalize(p)
	if err != nil {
		return nil, p, fmt.Errorf("%s: %w", op, err)
	}

	page, err := s.storage.ListUsers(ctx, p)
	if err != nil {
		return nil, p, fmt.Errorf("%s: %w", op, err)
	}

	return page, p, nil
}

// CreateUser — создание пользователя с заданной ролью (только администратор).
func (s *Service) CreateUser(ctx context.Context, id *auth.Identity, in CreateUserInput) (*models.User, error) {
	const op = "service.users.CreateUser"

	if !id.IsAdmin() {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	if in.Role == "" {
		in.Role = models.RoleUser
	}

	user, err := s.createUser(ctx, in.Email, in.Password, in.Name, in.Role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_created", slog.String("user_id", user.ID), slog.String("by", id.UserID))

	return user, nil
}

// GetUser — профиль пользователя (сам или администратор).
func (s *Service) GetUser(ctx context.Context, id *auth.Identity, userID string) (*models.User, error) {
	const op = "service.users.GetUser"

	if err := s.authorizeUser(id, userID, auth.LevelRead); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdateUser — изменение профиля (сам или администратор).
// Смена пароля при включённом версионировании отзывает все refresh-токены.
func (s *Service) UpdateUser(ctx context.Context, id *auth.Identity, userID string, patch UserPatch) (*models.User, error) {
	const op = "service.users.UpdateUser"

	if err := s.authorizeUser(id, userID, auth.LevelWrite); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if patch.Role != nil && !id.IsAdmin() {
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	var (
		v   validator
		upd models.UserUpdate
	)

	if patch.Name != nil {
		v.check(validName(*patch.Name), "name", "Name is required")
		name := strings.TrimSpace(*patch.Name)
		upd.Name = &name
	}
	if patch.Email != nil {
		email, ok := normalizeEmail(*patch.Email)
		v.check(ok, "email", "Invalid email")
		upd.Email = &email
	}
	if patch.Role != nil {
		v.check(patch.Role.Valid(), "role", "Role must be user or admin")
		upd.Role = patch.Role
	}
	if patch.Password != nil {
		checkPassword(&v, *patch.Password)
	}
	if err := v.err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if patch.Password != nil {
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		upd.PasswordHash = &hash
	}

	user, err := s.storage.UpdateUser(ctx, userID, upd)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if patch.Password != nil && s.cfg.TokenVersioning {
		ver, err := s.storage.BumpTokenVersion(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		user.TokenVersion = ver
	}

	return user, nil
}

// DeleteUser удаляет пользователя вместе с его проектами и их изображениями.
// Выданные токены удалённого пользователя проходят проверку подписи, но
// refresh и /me для него завершаются отказом (запись перечитывается).
func (s *Service) DeleteUser(ctx context.Context, id *auth.Identity, userID string) error {
	const op = "service.users.DeleteUser"

	if err := s.authorizeUser(id, userID, auth.LevelWrite); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	projectIDs, err := s.storage.DeleteProjectsByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: delete projects: %w", op, err)
	}

	images, err := s.storage.DeleteImagesByProjects(ctx, projectIDs...)
	if err != nil {
		return fmt.Errorf("%s: delete images: %w", op, err)
	}

	log.From(ctx).Info("user_deleted",
		slog.String("user_id", userID),
		slog.String("by", id.UserID),
		slog.Int("projects", len(projectIDs)),
		slog.Int64("images", images),
	)

	return nil
}
