package models

import "math"

// SortOrder — направление сортировки.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListParams — параметры постраничной выдачи.
// Значения уже нормализованы сервисным слоем (Page >= 1, Limit в допустимых границах,
// SortBy из белого списка ресурса).
type ListParams struct {
	Page      int
	Limit     int
	Search    string
	SortBy    string
	SortOrder SortOrder
	// OwnerID — фильтр по владельцу (проекты).
	OwnerID string
	// Type — фильтр по типу (изображения).
	Type ImageType
}

// Offset возвращает число пропускаемых записей.
// При переполнении int возвращает math.MaxInt: такая страница пуста.
func (p ListParams) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}
