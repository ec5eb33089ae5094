package models

import "time"

// ImageType — происхождение изображения.
type ImageType string

const (
	ImageSynthetic ImageType = "synthetic"
	ImageReal      ImageType = "real"
	ImageAugmented ImageType = "augmented"
)

// Valid сообщает, известен ли тип.
func (t ImageType) Valid() bool {
	switch t {
	case ImageSynthetic, ImageReal, ImageAugmented:
		return true
	}
	return false
}

// Статусы обработки изображения.
const (
	ImageStatusUploaded   = "uploaded"
	ImageStatusProcessing = "processing"
	ImageStatusProcessed  = "processed"
	ImageStatusFailed     = "failed"
)

// Image — изображение внутри проекта. Права на него выводятся из проекта.
type Image struct {
	ID          string
	ProjectID   string
	Name        string
	Type        ImageType
	URL         string
	Metadata    ImageMetadata
	Annotations Annotations
	Status      string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ImageMetadata — описательные поля файла.
type ImageMetadata struct {
	Filename    string   `json:"filename,omitempty" bson:"filename,omitempty"`
	Size        int64    `json:"size,omitempty" bson:"size,omitempty"`
	MimeType    string   `json:"mimeType,omitempty" bson:"mime_type,omitempty"`
	Format      string   `json:"format,omitempty" bson:"format,omitempty"`
	Width       int      `json:"width,omitempty" bson:"width,omitempty"`
	Height      int      `json:"height,omitempty" bson:"height,omitempty"`
	Labels      []string `json:"labels,omitempty" bson:"labels,omitempty"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`
}

// Annotations — разметка изображения.
type Annotations struct {
	BoundingBoxes []BoundingBox `json:"boundingBoxes" bson:"bounding_boxes"`
}

// BoundingBox — прямоугольник в нормированных координатах [0,1].
type BoundingBox struct {
	ID         string   `json:"id,omitempty" bson:"id,omitempty"`
	X          float64  `json:"x" bson:"x"`
	Y          float64  `json:"y" bson:"y"`
	Width      float64  `json:"width" bson:"width"`
	Height     float64  `json:"height" bson:"height"`
	Label      string   `json:"label,omitempty" bson:"label,omitempty"`
	Confidence *float64 `json:"confidence,omitempty" bson:"confidence,omitempty"`
}

// ImageUpdate — частичное изменение изображения; nil-поля не трогаются.
type ImageUpdate struct {
	Name        *string
	URL         *string
	Status      *string
	Metadata    *ImageMetadata
	Annotations *Annotations
}

// ImagePage — страница списка изображений.
type ImagePage struct {
	Items []Image
	Total int64
}
