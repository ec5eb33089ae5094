// service содержит бизнес-логику сервиса разметки:
// регистрацию/вход/обновление сессии, управление пользователями,
// проекты и изображения с проверкой прав через auth.Guard.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для
//     конкурентного использования при потокобезопасном storage.Storage.
//   - Ошибки возвращаются обёрнутыми через op и маппятся транспортом
//     в HTTP-статусы (см. internal/errors).
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/annotator/internal/auth"
	"github.com/pribylovaa/annotator/internal/config"
	"github.com/pribylovaa/annotator/internal/storage"
)

var (
	// ErrInvalidCredentials — пара email/пароль неверна или пользователь не найден.
	// HTTP 401; тело ответа одинаково для обоих случаев.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden — личность известна, но действие ей запрещено. HTTP 403.
	ErrForbidden = errors.New("forbidden")

	// ErrUserNotFound — пользователь отсутствует. HTTP 404.
	ErrUserNotFound = errors.New("user not found")

	// ErrProjectNotFound — проект отсутствует или недоступен вызывающему. HTTP 404.
	ErrProjectNotFound = errors.New("project not found")

	// ErrImageNotFound — изображение отсутствует в проекте. HTTP 404.
	ErrImageNotFound = errors.New("image not found")

	// ErrEmailTaken — e-mail уже занят другим пользователем. HTTP 409.
	ErrEmailTaken = errors.New("email already taken")

	// errTokenRevoked — версия refresh-токена устарела (logout/смена пароля).
	errTokenRevoked = errors.New("token revoked")
)

// Service описывает бизнес-логику сервиса.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	hasher  *auth.PasswordHasher
	issuer  *auth.SessionIssuer
	guard   *auth.Guard
	// dummyHash проверяется при входе с неизвестным email,
	// чтобы время ответа не выдавало существование учётной записи.
	dummyHash string
}

// Option настраивает Service.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock подменяет часы выпуска и проверки токенов.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New создаёт новый экземпляр Service.
func New(st storage.Storage, cfg config.AuthConfig, opts ...Option) (*Service, error) {
	const op = "service.New"

	var o options
	for _, fn := range opts {
		fn(&o)
	}

	hasher, err := auth.NewPasswordHasher(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	issuer, err := auth.NewSessionIssuer(cfg, auth.WithClock(o.now))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	dummy, err := hasher.Hash("dummy-password-for-timing")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Service{
		storage:   st,
		cfg:       cfg,
		hasher:    hasher,
		issuer:    issuer,
		guard:     auth.NewGuard(),
		dummyHash: dummy,
	}, nil
}

// Issuer возвращает выпускающего токены (для аутентификатора транспорта).
func (s *Service) Issuer() *auth.SessionIssuer {
	return s.issuer
}

// unauthenticated оборачивает причину отказа в auth.ErrUnauthenticated.
func unauthenticated(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, auth.ErrUnauthenticated, cause)
}
