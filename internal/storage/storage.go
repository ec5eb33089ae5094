// Package storage описывает контракты хранилища и общие ошибки.
//
//go:generate mockgen -source=storage.go -destination=mocks/storage_mock.go -package=mocks
package storage

import (
	"context"
	"errors"

	"github.com/pribylovaa/annotator/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/проект/изображение).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над учётными записями.
type UserStorage interface {
	// SaveUser создаёт пользователя и проставляет ему ID.
	// Email уже нормализован; дубликат — ErrAlreadyExists.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email. Нет записи — ErrNotFound.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID. Нет записи или битый ID — ErrNotFound.
	UserByID(ctx context.Context, id string) (*models.User, error)
	// UpdateUser применяет частичное изменение и возвращает обновлённую запись.
	// Занятый email — ErrAlreadyExists.
	UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
	// BumpTokenVersion увеличивает версию токенов пользователя и возвращает новую.
	BumpTokenVersion(ctx context.Context, id string) (int64, error)
	// DeleteUser удаляет пользователя. Нет записи — ErrNotFound.
	DeleteUser(ctx context.Context, id string) error
	// ListUsers возвращает страницу пользователей (поиск по email/имени).
	ListUsers(ctx context.Context, p models.ListParams) (*models.UserPage, error)
}

// ProjectStorage выполняет операции над проектами.
type ProjectStorage interface {
	SaveProject(ctx context.Context, project *models.Project) error
	ProjectByID(ctx context.Context, id string) (*models.Project, error)
	UpdateProject(ctx context.Context, id string, upd models.ProjectUpdate) (*models.Project, error)
	DeleteProject(ctx context.Context, id string) error
	// ListProjects учитывает p.OwnerID (пустой — все проекты) и p.Search по имени/описанию.
	ListProjects(ctx context.Context, p models.ListParams) (*models.ProjectPage, error)
	// DeleteProjectsByOwner удаляет все проекты владельца и возвращает их ID.
	DeleteProjectsByOwner(ctx context.Context, ownerID string) ([]string, error)
}

// ImageStorage выполняет операции над изображениями.
// Все операции ограничены проектом: изображение другого проекта — ErrNotFound.
type ImageStorage interface {
	SaveImage(ctx context.Context, image *models.Image) error
	ImageByID(ctx context.Context, projectID, imageID string) (*models.Image, error)
	UpdateImage(ctx context.Context, projectID, imageID string, upd models.ImageUpdate) (*models.Image, error)
	DeleteImage(ctx context.Context, projectID, imageID string) error
	// ListImages учитывает p.Type и p.Search по имени.
	ListImages(ctx context.Context, projectID string, p models.ListParams) (*models.ImagePage, error)
	// DeleteImagesByProjects удаляет изображения перечисленных проектов.
	DeleteImagesByProjects(ctx context.Context, projectIDs ...string) (int64, error)
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	UserStorage
	ProjectStorage
	ImageStorage
	// Ping проверяет доступность хранилища (readiness).
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
