package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pribylovaa/annotator/internal/models"
	"github.com/pribylovaa/annotator/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// projectDoc — документ коллекции projects.
type projectDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID     string             `bson:"owner_id"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Settings    map[string]any     `bson:"settings,omitempty"`
	Status      string             `bson:"status"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (d *projectDoc) model() *models.Project {
	return &models.Project{
		ID:          d.ID.Hex(),
		OwnerID:     d.OwnerID,
		Name:        d.Name,
		Description: d.Description,
		Settings:    d.Settings,
		Status:      models.ProjectStatus(d.Status),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// SaveProject вставляет проект и проставляет ему ID.
func (m *Mongo) SaveProject(ctx context.Context, project *models.Project) error {
	const op = "storage/mongo/SaveProject"

	now := toMS(time.Now())
	project.CreatedAt = now
	project.UpdatedAt = now

	res, err := m.projects.InsertOne(ctx, projectDoc{
		OwnerID:     project.OwnerID,
		Name:        project.Name,
		Description: project.Description,
		Settings:    project.Settings,
		Status:      string(project.Status),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("%s: insert: %w", op, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("%s: inserted id type", op)
	}

	project.ID = oid.Hex()
	return nil
}

// ProjectByID возвращает проект; битый id — storage.ErrNotFound.
func (m *Mongo) ProjectByID(ctx context.Context, id string) (*models.Project, error) {
	const op = "storage/mongo/ProjectByID"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc projectDoc
	if err := m.projects.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.model(), nil
}

// UpdateProject применяет частичное изменение; settings заменяются целиком.
func (m *Mongo) UpdateProject(ctx context.Context, id string, upd models.ProjectUpdate) (*models.Project, error) {
	const op = "storage/mongo/UpdateProject"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	set := bson.D{{Key: "updated_at", Value: toMS(time.Now())}}
	if upd.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *upd.Name})
	}
	if upd.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *upd.Description})
	}
	if upd.Settings != nil {
		set = append(set, bson.E{Key: "settings", Value: upd.Settings})
	}
	if upd.Status != nil {
		set = append(set, bson.E{Key: "status", Value: string(*upd.Status)})
	}

	var doc projectDoc
	err = m.projects.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.model(), nil
}

// DeleteProject удаляет проект (изображения удаляет сервисный слой).
func (m *Mongo) DeleteProject(ctx context.Context, id string) error {
	const op = "storage/mongo/DeleteProject"

	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := m.projects.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ListProjects возвращает страницу проектов с фильтром по владельцу и поиском по имени/описанию.
func (m *Mongo) ListProjects(ctx context.Context, p models.ListParams) (*models.ProjectPage, error) {
	const op = "storage/mongo/ListProjects"

	filter := bson.D{}
	if p.OwnerID != "" {
		filter = append(filter, bson.E{Key: "owner_id", Value: p.OwnerID})
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: containsRegex(s)}},
			bson.D{{Key: "description", Value: containsRegex(s)}},
		}})
	}

	total, err := m.projects.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: count: %w", op, err)
	}

	cur, err := m.projects.Find(ctx, filter, findOptions(p))
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []projectDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	page := &models.ProjectPage{Items: make([]models.Project, 0, len(docs)), Total: total}
	for i := range docs {
		page.Items = append(page.Items, *docs[i].model())
	}

	return page, nil
}

// DeleteProjectsByOwner удаляет проекты владельца и возвращает их идентификаторы.
func (m *Mongo) DeleteProjectsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	const op = "storage/mongo/DeleteProjectsByOwner"

	filter := bson.D{{Key: "owner_id", Value: ownerID}}

	cur, err := m.projects.Find(ctx, filter, options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}

	var docs []projectDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	if len(docs) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(docs))
	oids := make(bson.A, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID.Hex())
		oids = append(oids, d.ID)
	}

	if _, err := m.projects.DeleteMany(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}}}); err != nil {
		return nil, fmt.Errorf("%s: delete: %w", op, err)
	}

	return ids, nil
}
