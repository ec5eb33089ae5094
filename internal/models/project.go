package models

import "time"

// ProjectStatus — состояние проекта.
type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectArchived ProjectStatus = "archived"
)

// Project — проект разметки. Владелец — создатель (OwnerID).
type Project struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Settings    map[string]any
	Status      ProjectStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectUpdate — частичное изменение проекта; nil-поля не трогаются.
type ProjectUpdate struct {
	Name        *string
	Description *string
	Settings    map[string]any
	Status      *ProjectStatus
}

// ProjectPage — страница списка проектов.
type ProjectPage struct {
	Items []Project
	Total int64
}
