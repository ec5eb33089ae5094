// Package models содержит доменные сущности сервиса разметки.
package models

import "time"

// Role — роль пользователя в системе.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid сообщает, известна ли роль.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User — учётная запись.
// Важно:
//   - Email хранится в нижнем регистре и уникален;
//   - PasswordHash никогда не отдаётся наружу (у транспортного слоя своя модель ответа);
//   - TokenVersion растёт при logout/смене пароля, если включено версионирование токенов.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	TokenVersion int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate — частичное изменение профиля; nil-поля не трогаются.
type UserUpdate struct {
	Name         *string
	Email        *string
	Role         *Role
	PasswordHash *string
}

// Empty сообщает, что изменять нечего.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Role == nil && u.PasswordHash == nil
}

// UserPage — страница списка пользователей.
type UserPage struct {
	Items []User
	Total int64
}
