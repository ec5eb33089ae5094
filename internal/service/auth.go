package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pribylovaa/annotator/internal/auth"
	"github.com/pribylovaa/annotator/internal/models"
	"github.com/pribylovaa/annotator/internal/pkg/log"
	"github.com/pribylovaa/annotator/internal/pkg/redact"
	"github.com/pribylovaa/annotator/internal/storage"
)

// RegisterInput — данные регистрации.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// Register создаёт пользователя с ролью user и сразу выпускает пару токенов.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, *models.TokenPair, error) {
	const op = "service.auth.Register"

	user, err := s.createUser(ctx, in.Email, in.Password, in.Name, models.RoleUser)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.issuer.Issue(user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_registered",
		slog.String("user_id", user.ID),
		slog.String("email", redact.Email(user.Email)),
	)

	return user, pair, nil
}

// Login выполняет вход по email+пароль.
// Неизвестный email и неверный пароль неразличимы: одна ошибка и одна проверка хэша.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, *models.TokenPair, error) {
	const op = "service.auth.Login"

	lg := log.From(ctx)

	var v validator
	v.check(strings.TrimSpace(email) != "", "email", "Email is required")
	v.check(password != "", "password", "Password is required")
	if err := v.err(); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	normEmail, ok := normalizeEmail(email)
	if !ok {
		s.hasher.Verify(password, s.dummyHash)
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			lg.Info("login_failed", slog.String("email", redact.Email(normEmail)), slog.String("reason", "unknown_email"))
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		lg.Info("login_failed", slog.String("user_id", user.ID), slog.String("reason", "wrong_password"))
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.issuer.Issue(user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("login_succeeded", slog.String("user_id", user.ID))

	return user, pair, nil
}

// Refresh проверяет refresh-токен, заново читает пользователя и выпускает новую пару.
// Старый refresh-токен не отзывается, если не включено версионирование.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.User, *models.TokenPair, error) {
	const op = "service.auth.Refresh"

	lg := log.From(ctx)

	if refreshToken == "" {
		return nil, nil, unauthenticated(op, errors.New("no refresh token"))
	}

	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		lg.Info("refresh_rejected",
			slog.String("token", redact.Token(refreshToken)),
			slog.String("reason", auth.FailureKind(err)),
		)
		return nil, nil, unauthenticated(op, err)
	}

	user, err := s.storage.UserByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("refresh_rejected", slog.String("user_id", claims.UserID()), slog.String("reason", "user_gone"))
			return nil, nil, unauthenticated(op, ErrUserNotFound)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.cfg.TokenVersioning && claims.Version != user.TokenVersion {
		lg.Info("refresh_rejected", slog.String("user_id", user.ID), slog.String("reason", "revoked"))
		return nil, nil, unauthenticated(op, errTokenRevoked)
	}

	pair, err := s.issuer.Issue(user)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, pair, nil
}

// Logout завершает сессию. Всегда успешен: отсутствие или негодность токена не ошибка.
// При версионировании действительный refresh-токен отзывает все сессии пользователя.
func (s *Service) Logout(ctx context.Context, refreshToken string) {
	const op = "service.auth.Logout"

	if !s.cfg.TokenVersioning || refreshToken == "" {
		return
	}

	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return
	}

	if _, err := s.storage.BumpTokenVersion(ctx, claims.UserID()); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.From(ctx).Warn("logout_revoke_failed",
			slog.String("op", op),
			slog.String("user_id", claims.UserID()),
			slog.String("err", err.Error()),
		)
	}
}

// Me возвращает актуальную запись пользователя для аутентифицированной личности.
func (s *Service) Me(ctx context.Context, id *auth.Identity) (*models.User, error) {
	const op = "service.auth.Me"

	user, err := s.storage.UserByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.cfg.TokenVersioning && id.Version != user.TokenVersion {
		return nil, unauthenticated(op, errTokenRevoked)
	}

	return user, nil
}

// EnsureAdmin создаёт администратора, если email ещё не зарегистрирован.
// Существующая учётная запись не меняется.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) error {
	const op = "service.auth.EnsureAdmin"

	if strings.TrimSpace(email) == "" {
		return nil
	}

	user, err := s.createUser(ctx, email, password, name, models.RoleAdmin)
	switch {
	case errors.Is(err, ErrEmailTaken):
		log.From(ctx).Info("admin_bootstrap_skipped", slog.String("email", redact.Email(email)))
		return nil
	case err != nil:
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("admin_bootstrapped", slog.String("user_id", user.ID))
	return nil
}

// createUser проверяет ввод, хэширует пароль и сохраняет пользователя.
func (s *Service) createUser(ctx context.Context, email, password, name string, role models.Role) (*models.User, error) {
	var v validator

	normEmail, ok := normalizeEmail(email)
	v.check(ok, "email", "Invalid email")
	checkPassword(&v, password)
	v.check(validName(name), "name", "Name is required")
	v.check(role.Valid(), "role", "Role must be user or admin")
	if err := v.err(); err != nil {
		return nil, err
	}

	if _, err := s.storage.UserByEmail(ctx, normEmail); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        normEmail,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         role,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, ErrEmailTaken
		}

		return nil, err
	}

	return user, nil
}
