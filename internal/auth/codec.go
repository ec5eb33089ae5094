// Package auth — ядро аутентификации: хэширование паролей, подпись и проверка
// токенов, выпуск пар токенов, извлечение личности из запроса и проверка прав.
// Все типы неизменяемы после создания и безопасны для конкурентного использования.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/annotator/internal/models"
)

// Ошибки проверки токена. Других видов отказа Verify не возвращает.
var (
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
)

// TokenType — назначение токена.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims — полезная нагрузка токена. Subject — ID пользователя.
type Claims struct {
	Email   string      `json:"email"`
	Role    models.Role `json:"role"`
	Type    TokenType   `json:"type"`
	Version int64       `json:"tv,omitempty"`
	jwt.RegisteredClaims
}

// UserID возвращает идентификатор субъекта.
func (c *Claims) UserID() string {
	return c.Subject
}

// Codec подписывает и проверяет HS256-токены.
type Codec struct {
	issuer string
	now    func() time.Time
}

// CodecOption настраивает Codec.
type CodecOption func(*Codec)

// WithClock подменяет источник времени (для детерминированных тестов истечения).
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec создаёт кодек для указанного издателя.
func NewCodec(issuer string, opts ...CodecOption) *Codec {
	c := &Codec{issuer: issuer, now: time.Now}
	for _, o := range opts {
		o(c)
	}

	return c
}

// Now возвращает текущее время кодека.
func (c *Codec) Now() time.Time {
	return c.now()
}

// Sign подписывает claims секретом; iat/exp/iss/jti проставляются здесь.
func (c *Codec) Sign(claims Claims, secret []byte, ttl time.Duration) (string, error) {
	const op = "auth.codec.Sign"

	if len(secret) == 0 {
		return "", fmt.Errorf("%s: empty secret", op)
	}

	now := c.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.Issuer = c.issuer
	claims.ID = uuid.NewString()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Verify проверяет подпись, затем срок действия и издателя.
// Подпись проверяется первой: поддельный просроченный токен — ErrTokenSignatureInvalid.
func (c *Codec) Verify(token string, secret []byte) (*Claims, error) {
	const op = "auth.codec.Verify"

	parsed, err := jwt.ParseWithClaims(token, &Claims{},
		func(*jwt.Token) (interface{}, error) {
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenMalformed)
	}

	return claims, nil
}

// classify сводит ошибки jwt к трём видам отказа.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenMalformed
	}
}
