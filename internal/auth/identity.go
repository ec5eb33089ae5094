package auth

import (
	"context"

	"github.com/pribylovaa/annotator/internal/models"
)

// Identity — результат аутентификации запроса.
type Identity struct {
	UserID  string
	Email   string
	Role    models.Role
	Version int64
	// Source — каким токеном подтверждена личность.
	Source TokenType
}

// IsAdmin сообщает, что у личности роль администратора.
func (id *Identity) IsAdmin() bool {
	return id != nil && id.Role == models.RoleAdmin
}

func identityFromClaims(c *Claims, src TokenType) *Identity {
	return &Identity{
		UserID:  c.UserID(),
		Email:   c.Email,
		Role:    c.Role,
		Version: c.Version,
		Source:  src,
	}
}

type identityKey struct{}

// WithIdentity кладёт личность в контекст.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom достаёт личность из контекста.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
