package service

import (
	"errors"
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/pribylovaa/annotator/internal/models"
)

// ErrValidation — запрос не прошёл проверку схемы. HTTP 400.
var ErrValidation = errors.New("validation failed")

const (
	minPasswordLen    = 6
	// bcrypt учитывает не больше 72 байт пароля и отказывает на более длинных.
	maxPasswordBytes  = 72
	minProjectNameLen = 3
	maxNameLen        = 200

	maxLimit = 100
	// maxPage держит (Page-1)*Limit в пределах int32: дальняя страница просто пуста.
	maxPage  = math.MaxInt32 / maxLimit
)

// FieldError — отказ по одному полю.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError перечисляет все непрошедшие поля.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}

	return strings.Join(parts, ", ")
}

// Is позволяет errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid — ошибка валидации одного поля (для разбора параметров транспортом).
func Invalid(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// validator копит отказы по полям.
type validator struct {
	fields []FieldError
}

func (v *validator) check(ok bool, field, message string) {
	if !ok {
		v.fields = append(v.fields, FieldError{Field: field, Message: message})
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}

	return &ValidationError{Fields: v.fields}
}

// normalizeEmail обрезает пробелы, проверяет формат и приводит к нижнему регистру.
// Адреса с display name ("Bob <bob@x>") не принимаются.
func normalizeEmail(raw string) (string, bool) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", false
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}

	return strings.ToLower(email), true
}

func validName(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= 1 && n <= maxNameLen
}

// validImageURL допускает абсолютный http(s) URL или путь от корня.
func validImageURL(raw string) bool {
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return true
	}

	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

var imageStatuses = []string{
	models.ImageStatusUploaded,
	models.ImageStatusProcessing,
	models.ImageStatusProcessed,
	models.ImageStatusFailed,
}

// checkPassword — длина пароля: не короче minPasswordLen и не длиннее maxPasswordBytes байт.
func checkPassword(v *validator, password string) {
	switch {
	case len(password) < minPasswordLen:
		v.check(false, "password", fmt.Sprintf("Password must be at least %d characters", minPasswordLen))
	case len(password) > maxPasswordBytes:
		v.check(false, "password", fmt.Sprintf("Password must be at most %d bytes", maxPasswordBytes))
	}
}

// checkMetadata — размеры и вес файла не отрицательны.
func checkMetadata(v *validator, m *models.ImageMetadata) {
	v.check(m.Width >= 0 && m.Height >= 0 && m.Size >= 0, "metadata", "Dimensions and size must not be negative")
}

func unit(f float64) bool { return f >= 0 && f <= 1 }

// checkAnnotations проверяет, что рамки в нормированных координатах.
func checkAnnotations(v *validator, a *models.Annotations) {
	for _, b := range a.BoundingBoxes {
		ok := unit(b.X) && unit(b.Y) && unit(b.Width) && unit(b.Height)
		if b.Confidence != nil {
			ok = ok && unit(*b.Confidence)
		}
		if !ok {
			v.check(false, "annotations.boundingBoxes", "Coordinates and confidence must be within [0, 1]")
			return
		}
	}
}

// listSpec — допустимые параметры списка для ресурса.
type listSpec struct {
	defaultLimit int
	sortable     []string
}

var (
	usersList    = listSpec{defaultLimit: 10, sortable: []string{"createdAt", "updatedAt", "email", "name"}}
	projectsList = listSpec{defaultLimit: 10, sortable: []string{"createdAt", "updatedAt", "name"}}
	imagesList   = listSpec{defaultLimit: 20, sortable: []string{"createdAt", "updatedAt", "name", "type"}}
)

// normalize приводит параметры к допустимым: страница в [1, maxPage], лимит в [1, 100],
// сортировка из белого списка ресурса.
func (ls listSpec) normalize(p models.ListParams) (models.ListParams, error) {
	var v validator

	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > maxPage {
		p.Page = maxPage
	}
	if p.Limit <= 0 {
		p.Limit = ls.defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}

	if p.SortBy == "" {
		p.SortBy = "createdAt"
	}
	v.check(slices.Contains(ls.sortable, p.SortBy), "sortBy", "Must be one of "+strings.Join(ls.sortable, ", "))

	if p.SortOrder == "" {
		p.SortOrder = models.SortDesc
	}
	v.check(p.SortOrder == models.SortAsc || p.SortOrder == models.SortDesc, "sortOrder", "Must be asc or desc")

	p.Search = strings.TrimSpace(p.Search)

	return p, v.err()
}
