package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthenticated — запрос не предъявил действительных учётных данных.
// Вид отказа (ErrTokenMalformed/...) оборачивается внутрь для логов и метрик.
var ErrUnauthenticated = errors.New("unauthenticated")

// errNoCredentials — нет ни заголовка, ни cookie.
var errNoCredentials = errors.New("no credentials")

// Mode — какие токены маршрут принимает.
type Mode int

const (
	// AccessOnly — только access-токен. Используется всеми изменяющими маршрутами.
	AccessOnly Mode = iota
	// AllowRefresh — при неудаче access допускается refresh-токен (только чтение профиля).
	AllowRefresh
)

// Authenticator определяет личность по запросу без обращения к хранилищу.
type Authenticator struct {
	issuer     *SessionIssuer
	cookieName string
}

// NewAuthenticator создаёт аутентификатор. cookieName — имя cookie с refresh-токеном.
func NewAuthenticator(issuer *SessionIssuer, cookieName string) *Authenticator {
	return &Authenticator{issuer: issuer, cookieName: cookieName}
}

// Authenticate извлекает токен (Authorization: Bearer, иначе cookie),
// проверяет его как access, а в режиме AllowRefresh — затем как refresh.
func (a *Authenticator) Authenticate(r *http.Request, mode Mode) (*Identity, error) {
	token := a.extract(r)
	if token == "" {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, errNoCredentials)
	}

	claims, err := a.issuer.VerifyAccess(token)
	if err == nil {
		return identityFromClaims(claims, TokenAccess), nil
	}

	if mode == AllowRefresh {
		if rc, rerr := a.issuer.VerifyRefresh(token); rerr == nil {
			return identityFromClaims(rc, TokenRefresh), nil
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
}

// RefreshToken возвращает значение refresh-cookie ("" если его нет).
func (a *Authenticator) RefreshToken(r *http.Request) string {
	c, err := r.Cookie(a.cookieName)
	if err != nil {
		return ""
	}

	return c.Value
}

func (a *Authenticator) extract(r *http.Request) string {
	const prefix = "Bearer "

	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		if token := strings.TrimSpace(h[len(prefix):]); token != "" {
			return token
		}
	}

	return a.RefreshToken(r)
}

// FailureKind возвращает короткое имя вида отказа для логов/метрик.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, errNoCredentials):
		return "missing"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	default:
		return "other"
	}
}
