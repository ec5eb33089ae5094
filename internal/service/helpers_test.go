package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pribylovaa/annotator/internal/auth"
	"github.com/pribylovaa/annotator/internal/config"
	"github.com/pribylovaa/annotator/internal/models"
	"github.com/pribylovaa/annotator/internal/storage/mocks"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		AccessSecret:    "unit-access-secret",
		RefreshSecret:   "unit-refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "annotator-test",
		PasswordHasher:  config.HasherBcrypt,
		BcryptCost:      bcrypt.MinCost,
	}
}

func newSvcWith(t *testing.T, cfg config.AuthConfig, opts ...Option) (*Service, *mocks.MockStorage) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	svc, err := New(st, cfg, opts...)
	require.NoError(t, err)
	return svc, st
}

func newSvc(t *testing.T) (*Service, *mocks.MockStorage) {
	t.Helper()
	return newSvcWith(t, testCfg())
}

func mustHashPW(t *testing.T, pw string) string {
	t.Helper()
	h, err := auth.NewPasswordHasher(config.HasherBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	hash, err := h.Hash(pw)
	require.NoError(t, err)
	return hash
}

func alice(t *testing.T) *models.User {
	t.Helper()
	return &models.User{
		ID:           "u-alice",
		Email:        "alice@example.com",
		Name:         "Alice",
		PasswordHash: mustHashPW(t, "secret1"),
		Role:         models.RoleUser,
	}
}

func userID(id string) *auth.Identity {
	return &auth.Identity{UserID: id, Role: models.RoleUser, Source: auth.TokenAccess}
}

func adminID(id string) *auth.Identity {
	return &auth.Identity{UserID: id, Role: models.RoleAdmin, Source: auth.TokenAccess}
}

func ptr[T any](v T) *T { return &v }

var ctx = context.Background()
