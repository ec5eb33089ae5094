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

// imageDoc — документ коллекции images. project_id хранится строкой (hex),
// поэтому фильтр по проекту не требует конвертации.
type imageDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	ProjectID   string               `bson:"project_id"`
	Name        string               `bson:"name"`
	Type        string               `bson:"type"`
	URL         string               `bson:"url"`
	Metadata    models.ImageMetadata `bson:"metadata"`
	Annotations models.Annotations   `bson:"annotations"`
	Status      string               `bson:"status"`
	CreatedBy   string               `bson:"created_by"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

func (d *imageDoc) model() *models.Image {
	return &models.Image{
		ID:          d.ID.Hex(),
		ProjectID:   d.ProjectID,
		Name:        d.Name,
		Type:        models.ImageType(d.Type),
		URL:         d.URL,
		Metadata:    d.Metadata,
		Annotations: d.Annotations,
		Status:      d.Status,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// imageFilter — фильтр «изображение imageID внутри проекта projectID».
func imageFilter(projectID, imageID string) (bson.D, bool) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(imageID))
	if err != nil {
		return nil, false
	}

	return bson.D{{Key: "_id", Value: oid}, {Key: "project_id", Value: projectID}}, true
}

// SaveImage вставляет изображение и проставляет ему ID.
func (m *Mongo) SaveImage(ctx context.Context, image *models.Image) error {
	const op = "storage/mongo/SaveImage"

	now := toMS(time.Now())
	image.CreatedAt = now
	image.UpdatedAt = now

	res, err := m.images.InsertOne(ctx, imageDoc{
		ProjectID:   image.ProjectID,
		Name:        image.Name,
		Type:        string(image.Type),
		URL:         image.URL,
		Metadata:    image.Metadata,
		Annotations: image.Annotations,
		Status:      image.Status,
		CreatedBy:   image.CreatedBy,
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

	image.ID = oid.Hex()
	return nil
}

// ImageByID возвращает изображение проекта.
func (m *Mongo) ImageByID(ctx context.Context, projectID, imageID string) (*models.Image, error) {
	const op = "storage/mongo/ImageByID"

	filter, ok := imageFilter(projectID, imageID)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc imageDoc
	if err := m.images.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc.model(), nil
}

// UpdateImage применяет частичное изменение изображения.
func (m *Mongo) UpdateImage(ctx context.Context, projectID, imageID string, upd models.ImageUpdate) (*models.Image, error) {
	const op = "storage/mongo/UpdateImage"

	filter, ok := imageFilter(projectID, imageID)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	set := bson.D{{Key: "updated_at", Value: toMS(time.Now())}}
	if upd.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *upd.Name})
	}
	if upd.URL != nil {
		set = append(set, bson.E{Key: "url", Value: *upd.URL})
	}
	if upd.Status != nil {
		set = append(set, bson.E{Key: "status", Value: *upd.Status})
	}
	if upd.Metadata != nil {
		set = append(set, bson.E{Key: "metadata", Value: *upd.Metadata})
	}
	if upd.Annotations != nil {
		set = append(set, bson.E{Key: "annotations", Value: *upd.Annotations})
	}

	var doc imageDoc
	err := m.images.FindOneAndUpdate(ctx, filter,
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

// DeleteImage удаляет изображение проекта.
func (m *Mongo) DeleteImage(ctx context.Context, projectID, imageID string) error {
	const op = "storage/mongo/DeleteImage"

	filter, ok := imageFilter(projectID, imageID)
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := m.images.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ListImages возвращает страницу изображений проекта.
func (m *Mongo) ListImages(ctx context.Context, projectID string, p models.ListParams) (*models.ImagePage, error) {
	const op = "storage/mongo/ListImages"

	filter := bson.D{{Key: "project_id", Value: projectID}}
	if p.Type != "" {
		filter = append(filter, bson.E{Key: "type", Value: string(p.Type)})
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		filter = append(filter, bson.E{Key: "name", Value: containsRegex(s)})
	}

	total, err := m.images.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: count: %w", op, err)
	}

	cur, err := m.images.Find(ctx, filter, findOptions(p))
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []imageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, err)
	}

	page := &models.ImagePage{Items: make([]models.Image, 0, len(docs)), Total: total}
	for i := range docs {
		page.Items = append(page.Items, *docs[i].model())
	}

	return page, nil
}

// DeleteImagesByProjects удаляет изображения перечисленных проектов.
func (m *Mongo) DeleteImagesByProjects(ctx context.Context, projectIDs ...string) (int64, error) {
	const op = "storage/mongo/DeleteImagesByProjects"

	if len(projectIDs) == 0 {
		return 0, nil
	}

	res, err := m.images.DeleteMany(ctx, bson.D{{Key: "project_id", Value: bson.D{{Key: "$in", Value: projectIDs}}}})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.DeletedCount, nil
}
