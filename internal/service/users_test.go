package service

import (
	"context"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/pribylovaa/annotator/internal/models"
	"github.com/pribylovaa/annotator/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestListUsers_AdminOnly(t *testing.T) {
	t.Parallel()

	svc, st := newSvc(t)

	_, _, err := svc.ListUsers(ctx, userID("u-1"), models.ListParams{})
	require.ErrorIs(t, err, ErrForbidden)

	st.EXPECT().ListUsers(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p models.ListParams) (*models.UserPage, error) {
		require.Equal(t, 1, p.Page)
		require.Equal(t, 10, p.Limit)
		require.Equal(t, "createdAt", p.SortBy)
		require.Equal(t, models.SortDesc, p.SortOrder)
		return &models.UserPage{Items: []models.User{{ID: "u-1"}}, Total: 1}, nil
	})

	page, p, err := svc.ListUsers(ctx, adminID("adm"), models.ListParams{Limit: 0})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	require.Equal(t, 10, p.Limit)
}

func TestListUsers_RejectsUnknownSort(t *testing.T) {
	t.Parallel()

	svc, _ := newSvc(t)

	_, _, err := svc.ListUsers(ctx, adminID("adm"), models.ListParams{SortBy: "passwordHash"})
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "sortBy")
}

func TestListParams_LimitClamped(t *testing.T) {
	t.Parallel()

	p, err := projectsList.normalize(models.ListParams{Page: -3, Limit: 1000, SortOrder: models.SortAsc})
	require.NoError(t, err)
	require.Equal(t, 1, p.Page)
	require.Equal(t, maxLimit, p.Limit)
	require.Equal(t, models.SortAsc, p.SortOrder)
}

func TestListParams_PageCapped(t *testing.T) {
	t.Parallel()

	p, err := projectsList.normalize(models.ListParams{Page: 150000000000000001, Limit: 100})
	require.NoError(t, err)
	require.Equal(t, maxPage, p.Page)
	require.Positive(t, p.Offset())
}

func TestCreateUser(t *testing.T) {
	t.Parallel()

	svc, st := newSvc(t)

	_, err := svc.CreateUser(ctx, userID("u-1"), CreateUserInput{Email: "b@example.com", Password: "secret1", Name: "B"})
	require.ErrorIs(t, err, ErrForbidden)

	st.EXPECT().UserByEmail(gomock.Any(), "b@example.com").Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(nil)

	u, err := svc.CreateUser(ctx, adminID("adm"), CreateUserInput{Email: "b@example.com", Password: "secret1", Name: "B", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, u.Role)

	_, err = svc.CreateUser(ctx, adminID("adm"), CreateUserInput{Email: "c@example.com", Password: "secret1", Name: "C", Role: "root"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestGetUser_SelfOrAdmin(t *testing.T) {
	t.Parallel()

	svc, st := newSvc(t)
	u := alice(t)

	st.EXPECT().UserByID(gomock.Any(), u.ID).Return(u, nil).Times(2)

	_, err := svc.GetUser(ctx, userID(u.ID), u.ID)
	require.NoError(t, err)

	_, err = svc.GetUser(ctx, adminID("adm"), u.ID)
	require.NoError(t, err)

	// Чужой профиль: отказ без обращения к хранилищу.
	_, err = svc.GetUser(ctx, userID("u-bob"), u.ID)
	require.ErrorIs(t, err, ErrForbidden)

	st.EXPECT().UserByID(gomock.Any(), "missing").Return(nil, storage.ErrNotFound)
	_, err = svc.GetUser(ctx, adminID("adm"), "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateUser(t *testing.T) {
	t.Parallel()

	t.Run("self rename", func(t *testing.T) {
		svc, st := newSvc(t)
		st.EXPECT().UpdateUser(gomock.Any(), "u-1", models.UserUpdate{Name: ptr("Alicia")}).
			Return(&models.User{ID: "u-1", Name: "Alicia"}, nil)

		u, err := svc.UpdateUser(ctx, userID("u-1"), "u-1", UserPatch{Name: ptr("  Alicia ")})
		require.NoError(t, err)
		require.Equal(t, "Alicia", u.Name)
	})

	t.Run("role change needs admin", func(t *testing.T) {
		svc, _ := newSvc(t)
		_, err := svc.UpdateUser(ctx, userID("u-1"), "u-1", UserPatch{Role: ptr(models.RoleAdmin)})
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("other user", func(t *testing.T) {
		svc, _ := newSvc(t)
		_, err := svc.UpdateUser(ctx, userID("u-2"), "u-1", UserPatch{Name: ptr("x")})
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("password over bcrypt limit", func(t *testing.T) {
		svc, _ := newSvc(t)
		_, err := svc.UpdateUser(ctx, userID("u-1"), "u-1", UserPatch{Password: ptr(strings.Repeat("x", maxPasswordBytes+1))})
		require.ErrorIs(t, err, ErrValidation)
		require.Contains(t, err.Error(), "at most 72 bytes")
	})

	t.Run("email conflict", func(t *testing.T) {
		svc, st := newSvc(t)
		st.EXPECT().UpdateUser(gomock.Any(), "u-1", gomock.Any()).Return(nil, storage.ErrAlreadyExists)

		_, err := svc.UpdateUser(ctx, userID("u-1"), "u-1", UserPatch{Email: ptr("Bob@Example.com")})
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("password change bumps version when enabled", func(t *testing.T) {
		cfg := testCfg()
		cfg.TokenVersioning = true
		svc, st := newSvcWith(t, cfg)

		st.EXPECT().UpdateUser(gomock.Any(), "u-1", gomock.Any()).DoAndReturn(
			func(_ context.Context, _ string, upd models.UserUpdate) (*models.User, error) {
				require.NotNil(t, upd.PasswordHash)
				require.True(t, svc.hasher.Verify("newpass1", *upd.PasswordHash))
				return &models.User{ID: "u-1"}, nil
			})
		st.EXPECT().BumpTokenVersion(gomock.Any(), "u-1").Return(int64(3), nil)

		u, err := svc.UpdateUser(ctx, userID("u-1"), "u-1", UserPatch{Password: ptr("newpass1")})
		require.NoError(t, err)
		require.EqualValues(t, 3, u.TokenVersion)
	})

	t.Run("short password", func(t *testing.T) {
		svc, _ := newSvc(t)
		_, err := svc.UpdateUser(ctx, userID("u-1"), "u-1", UserPatch{Password: ptr("123")})
		require.ErrorIs(t, err, ErrValidation)
	})
}

func TestDeleteUser_Cascades(t *testing.T) {
	t.Parallel()

	svc, st := newSvc(t)

	gomock.InOrder(
		st.EXPECT().DeleteUser(gomock.Any(), "u-1").Return(nil),
		st.EXPECT().DeleteProjectsByOwner(gomock.Any(), "u-1").Return([]string{"p-1", "p-2"}, nil),
		st.EXPECT().DeleteImagesByProjects(gomock.Any(), "p-1", "p-2").Return(int64(5), nil),
	)

	require.NoError(t, svc.DeleteUser(ctx, adminID("adm"), "u-1"))
}

func TestDeleteUser_Denied(t *testing.T) {
	t.Parallel()

	svc, st := newSvc(t)

	require.ErrorIs(t, svc.DeleteUser(ctx, userID("u-2"), "u-1"), ErrForbidden)

	st.EXPECT().DeleteUser(gomock.Any(), "u-9").Return(storage.ErrNotFound)
	require.ErrorIs(t, svc.DeleteUser(ctx, adminID("adm"), "u-9"), ErrUserNotFound)
}
