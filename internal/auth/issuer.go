package auth

import (
	"fmt"
	"time"

	"github.com/pribylovaa/annotator/internal/config"
	"github.com/pribylovaa/annotator/internal/models"
)

// key — секрет и срок жизни одного вида токенов.
type key struct {
	secret []byte
	ttl    time.Duration
}

// SessionIssuer выпускает пары токенов и проверяет их по назначению.
// Access и refresh подписываются разными секретами.
type SessionIssuer struct {
	codec   *Codec
	access  key
	refresh key
}

// NewSessionIssuer создаёт выпускающего по настройкам auth.
func NewSessionIssuer(cfg config.AuthConfig, opts ...CodecOption) (*SessionIssuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("auth: empty token secret")
	}

	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("auth: access and refresh secrets must differ")
	}

	return &SessionIssuer{
		codec:   NewCodec(cfg.Issuer, opts...),
		access:  key{secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTokenTTL},
		refresh: key{secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTokenTTL},
	}, nil
}

// RefreshTTL — срок жизни refresh-токена (он же Max-Age cookie).
func (i *SessionIssuer) RefreshTTL() time.Duration {
	return i.refresh.ttl
}

// Issue выпускает новую пару для пользователя. Хранилище не трогается.
func (i *SessionIssuer) Issue(u *models.User) (*models.TokenPair, error) {
	const op = "auth.issuer.Issue"

	now := i.codec.Now()
	base := Claims{Email: u.Email, Role: u.Role, Version: u.TokenVersion}
	base.Subject = u.ID

	ac := base
	ac.Type = TokenAccess
	access, err := i.codec.Sign(ac, i.access.secret, i.access.ttl)
	if err != nil {
		return nil, fmt.Errorf("%s: access: %w", op, err)
	}

	rc := base
	rc.Type = TokenRefresh
	refresh, err := i.codec.Sign(rc, i.refresh.secret, i.refresh.ttl)
	if err != nil {
		return nil, fmt.Errorf("%s: refresh: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(i.access.ttl).UTC(),
		RefreshExpiresAt: now.Add(i.refresh.ttl).UTC(),
	}, nil
}

// VerifyAccess проверяет access-токен.
func (i *SessionIssuer) VerifyAccess(token string) (*Claims, error) {
	return i.verify(token, i.access, TokenAccess)
}

// VerifyRefresh проверяет refresh-токен.
func (i *SessionIssuer) VerifyRefresh(token string) (*Claims, error) {
	return i.verify(token, i.refresh, TokenRefresh)
}

// verify дополнительно сверяет claim type: токен с чужим назначением — ErrTokenMalformed.
func (i *SessionIssuer) verify(token string, k key, want TokenType) (*Claims, error) {
	claims, err := i.codec.Verify(token, k.secret)
	if err != nil {
		return nil, err
	}

	if claims.Type != want {
		return nil, fmt.Errorf("auth.issuer.verify: %w", ErrTokenMalformed)
	}

	return claims, nil
}
