package mongo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/annotator/internal/config"
	"github.com/pribylovaa/annotator/internal/models"
	"github.com/pribylovaa/annotator/internal/storage"
	"github.com/stretchr/testify/require"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
)

// testTimeout — общий дедлайн на операции с БД в тестах.
const testTimeout = 10 * time.Second

// TestMain запускает MongoDB в контейнере один раз на весь пакет тестов.
// Адрес контейнера прокидывается в ENV DATABASE_URL, а каждый тест
// создаёт свою БД с уникальным именем (см. newTestConfig).
func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7.0",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongo testcontainer: %v\n", err)
		os.Exit(1)
	}

	host, err := mongoC.Host(ctx)
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := mongoC.MappedPort(ctx, "27017/tcp")
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get mapped port: %v\n", err)
		os.Exit(1)
	}

	_ = os.Setenv("DATABASE_URL", fmt.Sprintf("mongodb://%s:%s", host, port.Port()))

	code := m.Run()

	_ = mongoC.Terminate(context.Background())
	os.Exit(code)
}

// newTestConfig создаёт конфиг с отдельной тестовой БД.
func newTestConfig(t *testing.T) config.DBConfig {
	t.Helper()

	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration test: set GO_TEST_INTEGRATION=1")
	}

	baseURL := os.Getenv("DATABASE_URL")
	if baseURL == "" {
		baseURL = "mongodb://localhost:27017"
	}

	return config.DBConfig{
		Driver: config.DriverMongo,
		URL:    baseURL + "/annotator_test_" + uuid.NewString(),
	}
}

// mustNewMongo подключается к тестовой БД и регистрирует очистку по завершении теста.
func mustNewMongo(t *testing.T) *Mongo {
	t.Helper()

	cfg := newTestConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	m, err := New(ctx, cfg)
	require.NoError(t, err, "DATABASE_URL=%s", cfg.URL)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = m.db.Drop(ctx)
		_ = m.Close(ctx)
	})

	return m
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

func newUser(email string) *models.User {
	return &models.User{Email: email, Name: "Name " + email, PasswordHash: "hash", Role: models.RoleUser}
}

func TestDatabaseFromURI(t *testing.T) {
	t.Parallel()

	require.Equal(t, "labels", databaseFromURI("mongodb://localhost:27017/labels"))
	require.Equal(t, defaultDBName, databaseFromURI("mongodb://localhost:27017"))
	require.Equal(t, defaultDBName, databaseFromURI("mongodb://localhost:27017/"))
}

func TestFindOptions(t *testing.T) {
	t.Parallel()

	opts := findOptions(models.ListParams{Page: 3, Limit: 10, SortBy: "email", SortOrder: models.SortAsc})
	require.EqualValues(t, 20, *opts.Skip)
	require.EqualValues(t, 10, *opts.Limit)
	require.Equal(t, bson.D{{Key: "email", Value: 1}, {Key: "_id", Value: 1}}, opts.Sort)

	opts = findOptions(models.ListParams{Page: 1, Limit: 5, SortBy: "password_hash"})
	require.Equal(t, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}, opts.Sort)
}

func TestUsers_SaveAndFind(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	u := newUser("alice@example.com")
	require.NoError(t, m.SaveUser(ctx, u))
	require.NotEmpty(t, u.ID)
	require.False(t, u.CreatedAt.IsZero())

	byEmail, err := m.UserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)
	require.Equal(t, "hash", byEmail.PasswordHash)
	require.Equal(t, models.RoleUser, byEmail.Role)

	byID, err := m.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", byID.Email)

	_, err = m.UserByID(ctx, "not-an-object-id")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = m.UserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUsers_DuplicateEmail(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	require.NoError(t, m.SaveUser(ctx, newUser("dup@example.com")))
	err := m.SaveUser(ctx, newUser("dup@example.com"))
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestUsers_UpdateAndVersion(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	a := newUser("a@example.com")
	b := newUser("b@example.com")
	require.NoError(t, m.SaveUser(ctx, a))
	require.NoError(t, m.SaveUser(ctx, b))

	name := "Renamed"
	role := models.RoleAdmin
	got, err := m.UpdateUser(ctx, a.ID, models.UserUpdate{Name: &name, Role: &role})
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Name)
	require.Equal(t, models.RoleAdmin, got.Role)

	taken := "b@example.com"
	_, err = m.UpdateUser(ctx, a.ID, models.UserUpdate{Email: &taken})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	v, err := m.BumpTokenVersion(ctx, a.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, v)
	v, err = m.BumpTokenVersion(ctx, a.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, v)

	require.NoError(t, m.DeleteUser(ctx, a.ID))
	require.ErrorIs(t, m.DeleteUser(ctx, a.ID), storage.ErrNotFound)
	_, err = m.BumpTokenVersion(ctx, a.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUsers_ListSearchAndPaging(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	for _, e := range []string{"ann@example.com", "bob@example.com", "anya@example.com"} {
		require.NoError(t, m.SaveUser(ctx, newUser(e)))
	}

	page, err := m.ListUsers(ctx, models.ListParams{Page: 1, Limit: 10, Search: "AN", SortBy: "email", SortOrder: models.SortAsc})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	require.Equal(t, "ann@example.com", page.Items[0].Email)

	page, err = m.ListUsers(ctx, models.ListParams{Page: 2, Limit: 2, SortBy: "email", SortOrder: models.SortAsc})
	require.NoError(t, err)
	require.EqualValues(t, 3, page.Total)
	require.Len(t, page.Items, 1)
	require.Equal(t, "bob@example.com", page.Items[0].Email)
}

func TestProjects_CRUDAndCascade(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	p := &models.Project{
		OwnerID:  "owner-1",
		Name:     "Cats",
		Settings: map[string]any{"classes": []any{"cat", "dog"}, "nested": map[string]any{"k": "v"}},
		Status:   models.ProjectActive,
	}
	require.NoError(t, m.SaveProject(ctx, p))
	require.NoError(t, m.SaveProject(ctx, &models.Project{OwnerID: "owner-1", Name: "Dogs", Status: models.ProjectActive}))
	require.NoError(t, m.SaveProject(ctx, &models.Project{OwnerID: "owner-2", Name: "Birds", Status: models.ProjectActive}))

	got, err := m.ProjectByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "Cats", got.Name)
	nested, ok := got.Settings["nested"].(map[string]any)
	require.True(t, ok, "вложенные документы декодируются в map")
	require.Equal(t, "v", nested["k"])

	archived := models.ProjectArchived
	upd, err := m.UpdateProject(ctx, p.ID, models.ProjectUpdate{Status: &archived})
	require.NoError(t, err)
	require.Equal(t, models.ProjectArchived, upd.Status)

	page, err := m.ListProjects(ctx, models.ListParams{Page: 1, Limit: 10, OwnerID: "owner-1"})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Total)

	require.NoError(t, m.SaveImage(ctx, &models.Image{ProjectID: p.ID, Name: "a.png", Type: models.ImageReal, URL: "https://x/a.png"}))

	ids, err := m.DeleteProjectsByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.Contains(t, ids, p.ID)

	n, err := m.DeleteImagesByProjects(ctx, ids...)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = m.ProjectByID(ctx, p.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)

	page, err = m.ListProjects(ctx, models.ListParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
}

func TestImages_ScopedToProject(t *testing.T) {
	m := mustNewMongo(t)
	ctx := testCtx(t)

	conf := 0.9
	img := &models.Image{
		ProjectID: "p1",
		Name:      "frame-1.jpg",
		Type:      models.ImageSynthetic,
		URL:       "https://cdn.example.com/frame-1.jpg",
		Metadata:  models.ImageMetadata{Width: 640, Height: 480, Labels: []string{"car"}},
		Annotations: models.Annotations{BoundingBoxes: []models.BoundingBox{
			{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.4, Label: "car", Confidence: &conf},
		}},
		Status:    models.ImageStatusUploaded,
		CreatedBy: "u1",
	}
	require.NoError(t, m.SaveImage(ctx, img))
	require.NoError(t, m.SaveImage(ctx, &models.Image{ProjectID: "p1", Name: "frame-2.jpg", Type: models.ImageReal}))

	got, err := m.ImageByID(ctx, "p1", img.ID)
	require.NoError(t, err)
	require.Equal(t, 640, got.Metadata.Width)
	require.Len(t, got.Annotations.BoundingBoxes, 1)
	require.InDelta(t, 0.9, *got.Annotations.BoundingBoxes[0].Confidence, 1e-9)

	_, err = m.ImageByID(ctx, "p2", img.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.ErrorIs(t, m.DeleteImage(ctx, "p2", img.ID), storage.ErrNotFound)

	status := "annotated"
	upd, err := m.UpdateImage(ctx, "p1", img.ID, models.ImageUpdate{Status: &status})
	require.NoError(t, err)
	require.Equal(t, "annotated", upd.Status)

	page, err := m.ListImages(ctx, "p1", models.ListParams{Page: 1, Limit: 20, Type: models.ImageSynthetic})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	require.Equal(t, img.ID, page.Items[0].ID)

	require.NoError(t, m.DeleteImage(ctx, "p1", img.ID))
	_, err = m.ImageByID(ctx, "p1", img.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}
