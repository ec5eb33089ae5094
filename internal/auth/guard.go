package auth

import "github.com/pribylovaa/annotator/internal/models"

// Level — запрошенный уровень доступа. На решение пока не влияет.
type Level int

const (
	LevelRead Level = iota
	LevelWrite
)

// Decision — итог проверки прав.
type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

// Resource — защищаемый объект. OwnerID вычисляется вызывающим при каждом
// обращении (для изображения это владелец проекта).
type Resource struct {
	Kind    string
	ID      string
	OwnerID string
}

type policyKey struct {
	admin bool
	owner bool
}

// policy — таблица решений: администратор может всё, владелец — всё над своим,
// остальным отказ. Отсутствующий ключ — Deny.
var policy = map[policyKey]Decision{
	{admin: true, owner: true}:   Allow,
	{admin: true, owner: false}:  Allow,
	{admin: false, owner: true}:  Allow,
	{admin: false, owner: false}: Deny,
}

// Guard принимает решение о доступе по личности и ресурсу.
type Guard struct{}

// NewGuard создаёт Guard.
func NewGuard() *Guard {
	return &Guard{}
}

// Authorize возвращает Allow тогда и только тогда, когда личность — администратор
// или владелец ресурса. Уровень level принимается, но не различается.
func (g *Guard) Authorize(id *Identity, res Resource, _ Level) Decision {
	if id == nil || id.UserID == "" {
		return Deny
	}

	key := policyKey{
		admin: id.Role == models.RoleAdmin,
		owner: res.OwnerID != "" && res.OwnerID == id.UserID,
	}

	if d, ok := policy[key]; ok {
		return d
	}

	return Deny
}
