// Package memory — хранилище в памяти процесса для локального запуска и тестов.
// Семантика ошибок совпадает с mongo-реализацией.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/annotator/internal/models"
	"github.com/pribylovaa/annotator/internal/storage"
)

// Memory — потокобезопасное хранилище на map под RWMutex.
type Memory struct {
	mu       sync.RWMutex
	users    map[string]models.User
	emails   map[string]string // email -> id
	projects map[string]models.Project
	images   map[string]models.Image
	now      func() time.Time
}

// New создаёт пустое хранилище.
func New() *Memory {
	return &Memory{
		users:    make(map[string]models.User),
		emails:   make(map[string]string),
		projects: make(map[string]models.Project),
		images:   make(map[string]models.Image),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close(context.Context) error { return nil }

// ---- users ----

func (m *Memory) SaveUser(_ context.Context, user *models.User) error {
	const op = "storage/memory/SaveUser"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.emails[user.Email]; ok {
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	user.ID = uuid.NewString()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = m.now()
	}
	user.UpdatedAt = user.CreatedAt

	m.users[user.ID] = *user
	m.emails[user.Email] = user.ID

	return nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*models.User, error) {
	const op = "storage/memory/UserByEmail"

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[email]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	u := m.users[id]
	return &u, nil
}

func (m *Memory) UserByID(_ context.Context, id string) (*models.User, error) {
	const op = "storage/memory/UserByID"

	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &u, nil
}

func (m *Memory) UpdateUser(_ context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	const op = "storage/memory/UpdateUser"

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if upd.Empty() {
		return &u, nil
	}

	if upd.Email != nil && *upd.Email != u.Email {
		if _, taken := m.emails[*upd.Email]; taken {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}
		delete(m.emails, u.Email)
		u.Email = *upd.Email
		m.emails[u.Email] = u.ID
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	u.UpdatedAt = m.now()

	m.users[id] = u
	return &u, nil
}

func (m *Memory) BumpTokenVersion(_ context.Context, id string) (int64, error) {
	const op = "storage/memory/BumpTokenVersion"

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return 0, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	u.TokenVersion++
	u.UpdatedAt = m.now()
	m.users[id] = u

	return u.TokenVersion, nil
}

func (m *Memory) DeleteUser(_ context.Context, id string) error {
	const op = "storage/memory/DeleteUser"

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	delete(m.emails, u.Email)
	delete(m.users, id)

	return nil
}

func (m *Memory) ListUsers(_ context.Context, p models.ListParams) (*models.UserPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []models.User
	for _, u := range m.users {
		if p.Search != "" && !containsFold(u.Email, p.Search) && !containsFold(u.Name, p.Search) {
			continue
		}
		items = append(items, u)
	}

	sortItems(items, p, func(u models.User) (string, time.Time, time.Time, string) {
		return u.ID, u.CreatedAt, u.UpdatedAt, pick(p.SortBy, map[string]string{"name": u.Name, "email": u.Email})
	})

	out, total := paginate(items, p)
	return &models.UserPage{Items: out, Total: total}, nil
}

// ---- projects ----

func (m *Memory) SaveProject(_ context.Context, project *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	project.ID = uuid.NewString()
	project.CreatedAt = now
	project.UpdatedAt = now
	project.Settings = maps.Clone(project.Settings)

	m.projects[project.ID] = *project
	return nil
}

func (m *Memory) ProjectByID(_ context.Context, id string) (*models.Project, error) {
	const op = "storage/memory/ProjectByID"

	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &p, nil
}

func (m *Memory) UpdateProject(_ context.Context, id string, upd models.ProjectUpdate) (*models.Project, error) {
	const op = "storage/memory/UpdateProject"

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Settings != nil {
		p.Settings = maps.Clone(upd.Settings)
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	p.UpdatedAt = m.now()

	m.projects[id] = p
	return &p, nil
}

func (m *Memory) DeleteProject(_ context.Context, id string) error {
	const op = "storage/memory/DeleteProject"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[id]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	delete(m.projects, id)
	return nil
}

func (m *Memory) ListProjects(_ context.Context, p models.ListParams) (*models.ProjectPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []models.Project
	for _, pr := range m.projects {
		if p.OwnerID != "" && pr.OwnerID != p.OwnerID {
			continue
		}
		if p.Search != "" && !containsFold(pr.Name, p.Search) && !containsFold(pr.Description, p.Search) {
			continue
		}
		items = append(items, pr)
	}

	sortItems(items, p, func(pr models.Project) (string, time.Time, time.Time, string) {
		return pr.ID, pr.CreatedAt, pr.UpdatedAt, pick(p.SortBy, map[string]string{"name": pr.Name})
	})

	out, total := paginate(items, p)
	return &models.ProjectPage{Items: out, Total: total}, nil
}

func (m *Memory) DeleteProjectsByOwner(_ context.Context, ownerID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id, p := range m.projects {
		if p.OwnerID == ownerID {
			ids = append(ids, id)
			delete(m.projects, id)
		}
	}

	return ids, nil
}

// ---- images ----

func (m *Memory) SaveImage(_ context.Context, image *models.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	image.ID = uuid.NewString()
	image.CreatedAt = now
	image.UpdatedAt = now

	m.images[image.ID] = *image
	return nil
}

func (m *Memory) ImageByID(_ context.Context, projectID, imageID string) (*models.Image, error) {
	const op = "storage/memory/ImageByID"

	m.mu.RLock()
	defer m.mu.RUnlock()

	img, ok := m.images[imageID]
	if !ok || img.ProjectID != projectID {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &img, nil
}

func (m *Memory) UpdateImage(_ context.Context, projectID, imageID string, upd models.ImageUpdate) (*models.Image, error) {
	const op = "storage/memory/UpdateImage"

	m.mu.Lock()
	defer m.mu.Unlock()

	img, ok := m.images[imageID]
	if !ok || img.ProjectID != projectID {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if upd.Name != nil {
		img.Name = *upd.Name
	}
	if upd.URL != nil {
		img.URL = *upd.URL
	}
	if upd.Status != nil {
		img.Status = *upd.Status
	}
	if upd.Metadata != nil {
		img.Metadata = *upd.Metadata
	}
	if upd.Annotations != nil {
		img.Annotations = *upd.Annotations
	}
	img.UpdatedAt = m.now()

	m.images[imageID] = img
	return &img, nil
}

func (m *Memory) DeleteImage(_ context.Context, projectID, imageID string) error {
	const op = "storage/memory/DeleteImage"

	m.mu.Lock()
	defer m.mu.Unlock()

	img, ok := m.images[imageID]
	if !ok || img.ProjectID != projectID {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	delete(m.images, imageID)
	return nil
}

func (m *Memory) ListImages(_ context.Context, projectID string, p models.ListParams) (*models.ImagePage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []models.Image
	for _, img := range m.images {
		if img.ProjectID != projectID {
			continue
		}
		if p.Type != "" && img.Type != p.Type {
			continue
		}
		if p.Search != "" && !containsFold(img.Name, p.Search) {
			continue
		}
		items = append(items, img)
	}

	sortItems(items, p, func(img models.Image) (string, time.Time, time.Time, string) {
		return img.ID, img.CreatedAt, img.UpdatedAt, pick(p.SortBy, map[string]string{"name": img.Name, "type": string(img.Type)})
	})

	out, total := paginate(items, p)
	return &models.ImagePage{Items: out, Total: total}, nil
}

func (m *Memory) DeleteImagesByProjects(_ context.Context, projectIDs ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, img := range m.images {
		if slices.Contains(projectIDs, img.ProjectID) {
			delete(m.images, id)
			n++
		}
	}

	return n, nil
}

// ---- helpers ----

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(sub)))
}

func pick(field string, values map[string]string) string {
	return values[field]
}

// sortItems сортирует по SortBy (createdAt по умолчанию), затем по ID для стабильности.
func sortItems[T any](items []T, p models.ListParams, key func(T) (id string, created, updated time.Time, field string)) {
	slices.SortFunc(items, func(a, b T) int {
		aID, aC, aU, aF := key(a)
		bID, bC, bU, bF := key(b)

		var c int
		switch p.SortBy {
		case "", "createdAt":
			c = aC.Compare(bC)
		case "updatedAt":
			c = aU.Compare(bU)
		default:
			c = cmp.Compare(aF, bF)
		}
		if c == 0 {
			c = cmp.Compare(aID, bID)
		}

		if p.SortOrder == models.SortAsc {
			return c
		}
		return -c
	})
}

func paginate[T any](items []T, p models.ListParams) ([]T, int64) {
	total := int64(len(items))
	if p.Limit <= 0 {
		return items, total
	}

	start := min(p.Offset(), len(items))
	end := min(start+p.Limit, len(items))

	return items[start:end], total
}
