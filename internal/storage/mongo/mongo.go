package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pribylovaa/annotator/internal/config"
	"github.com/pribylovaa/annotator/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection    = "users"
	projectsCollection = "projects"
	imagesCollection   = "images"
	defaultDBName      = "annotator"
)

// Mongo - тонкий адаптер для подключения и коллекций MongoDB.
type Mongo struct {
	client   *mongodriver.Client
	db       *mongodriver.Database
	users    *mongodriver.Collection
	projects *mongodriver.Collection
	images   *mongodriver.Collection
}

// New подключается к MongoDB, проверяет его, подготавливает коллекции и обеспечивает индексацию.
func New(ctx context.Context, cfg config.DBConfig) (*Mongo, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("mongo: empty cfg.DB.URL")
	}

	// Вложенные документы (settings проекта) декодируем в map, а не в bson.D.
	opts := options.Client().
		ApplyURI(cfg.URL).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	cli, err := mongodriver.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(databaseFromURI(cfg.URL))

	m := &Mongo{
		client:   cli,
		db:       db,
		users:    db.Collection(usersCollection),
		projects: db.Collection(projectsCollection),
		images:   db.Collection(imagesCollection),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = m.Close(ctx)
		return nil, err
	}

	return m, nil
}

// Ping проверяет доступность primary.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// ensureIndexes создаёт индексы:
// - users: уникальный email (основа уникальности учётных записей);
// - projects: owner_id + created_at(desc) для списка «мои проекты»;
// - images: project_id + created_at(desc) для списка изображений проекта.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	if _, err := m.users.Indexes().CreateMany(ctx, []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("uniq_email").SetUnique(true),
		},
	}); err != nil {
		return fmt.Errorf("mongo ensure indexes users: %w", err)
	}

	if _, err := m.projects.Indexes().CreateMany(ctx, []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("owner_created_desc"),
		},
	}); err != nil {
		return fmt.Errorf("mongo ensure indexes projects: %w", err)
	}

	if _, err := m.images.Indexes().CreateMany(ctx, []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("project_created_desc"),
		},
	}); err != nil {
		return fmt.Errorf("mongo ensure indexes images: %w", err)
	}

	return nil
}

// databaseFromURI извлекает имя базы данных из URI-пути mongodb.
// Если оно отсутствует или не поддается расшифровке, возвращает значение по умолчанию.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return defaultDBName
}

// toMS приводит время к точности MongoDB DateTime (миллисекунды).
func toMS(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// sortFields — допустимые поля сортировки (API -> документ).
var sortFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"email":     "email",
	"type":      "type",
}

// findOptions собирает сортировку и пагинацию. _id добавляется вторым ключом,
// чтобы порядок был стабильным при одинаковых значениях.
func findOptions(p models.ListParams) *options.FindOptions {
	field, ok := sortFields[p.SortBy]
	if !ok {
		field = "created_at"
	}

	dir := -1
	if p.SortOrder == models.SortAsc {
		dir = 1
	}

	opts := options.Find().SetSort(bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}})
	if p.Limit > 0 {
		opts.SetSkip(int64(p.Offset())).SetLimit(int64(p.Limit))
	}

	return opts
}
