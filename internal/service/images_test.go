package service

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/pribylovaa/annotator/internal/models"
	"github.com/pribylovaa/annotator/internal/storage"
	"github.com/stretchr/testify/require"
)

func validImage() ImageInput {
	return ImageInput{
		Name: "cat.png",
		Type: models.ImageReal,
		URL:  "https://cdn.example.com/cat.png",
		Annotations: models.Annotations{BoundingBoxes: []models.BoundingBox{
			{X: 0.1, Y: 0.1, Width: 0.5, Height: 0.5, Label: "cat"},
		}},
	}
}

func TestCreateImage_OK(t *testing.T) {
	t.Parallel()

	svc, st := newSvc(t)
	st.EXPECT().ProjectByID(gomock.Any(), "p-1").Return(ownedProject(), nil)
	st.EXPECT().SaveImage(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, img *models.Image) error {
		require.Equal(t, "p-1", img.ProjectID)
		require.Equal(t, "u-1", img.CreatedBy)
		require.Equal(t, models.ImageStatusUploaded, img.Status)
		require.NotEmpty(t, img.Annotations.BoundingBoxes[0].ID)
		img.ID = "i-1"
		return nil
	})

	img, err := svc.CreateImage(ctx, userID("u-1"), "p-1", validImage())
	require.NoError(t, err)
	require.Equal(t, "i-1", img.ID)
}

func TestCreateImage_Validation(t *testing.T) {
	t.Parallel()

	svc, st := newSvc(t)
	st.EXPECT().ProjectByID(gomock.Any(), "p-1").Return(ownedProject(), nil).AnyTimes()

	tests := []struct {
		name   string
		mutate func(in *ImageInput)
		field  string
	}{
		{"type", func(in *ImageInput) { in.Type = "vector" }, "type"},
		{"url scheme", func(in *ImageInput) { in.URL = "ftp://x/y.png" }, "url"},
		{"protocol relative", func(in *ImageInput) { in.URL = "//evil/x.png" }, "url"},
		{"status", func(in *ImageInput) { in.Status = "lost" }, "status"},
		{"bbox out of range", func(in *ImageInput) { in.Annotations.BoundingBoxes[0].X = 1.5 }, "annotations.boundingBoxes"},
		{"name", func(in *ImageInput) { in.Name = "" }, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validImage()
			tt.mutate(&in)

			_, err := svc.CreateImage(ctx, userID("u-1"), "p-1", in)
			require.ErrorIs(t, err, ErrValidation)
			require.Contains(t, err.Error(), tt.field+": ")
		})
	}
}

func TestCreateImage_RelativeURLAccepted(t *testing.T) {
	t.Parallel()

	svc, st := newSvc(t)
	st.EXPECT().ProjectByID(gomock.Any(), "p-1").Return(ownedProject(), nil)
	st.EXPECT().SaveImage(gomock.Any(), gomock.Any()).Return(nil)

	in := validImage()
	in.URL = "/uploads/cat.png"
	_, err := svc.CreateImage(ctx, userID("u-1"), "p-1", in)
	require.NoError(t, err)
}

func TestImages_AccessThroughProject(t *testing.T) {
	t.Parallel()

	svc, st := newSvc(t)
	st.EXPECT().ProjectByID(gomock.Any(), "p-1").Return(ownedProject(), nil).AnyTimes()

	_, err := svc.GetImage(ctx, userID("u-2"), "p-1", "i-1")
	require.ErrorIs(t, err, ErrProjectNotFound)

	_, _, err = svc.ListImages(ctx, userID("u-2"), "p-1", models.ListParams{})
	require.ErrorIs(t, err, ErrProjectNotFound)

	require.ErrorIs(t, svc.DeleteImage(ctx, userID("u-2"), "p-1", "i-1"), ErrProjectNotFound)

	st.EXPECT().ImageByID(gomock.Any(), "p-1", "i-9").Return(nil, storage.ErrNotFound)
	_, err = svc.GetImage(ctx, userID("u-1"), "p-1", "i-9")
	require.ErrorIs(t, err, ErrImageNotFound)

	st.EXPECT().ImageByID(gomock.Any(), "p-1", "i-1").Return(&models.Image{ID: "i-1", ProjectID: "p-1"}, nil)
	img, err := svc.GetImage(ctx, adminID("adm"), "p-1", "i-1")
	require.NoError(t, err)
	require.Equal(t, "i-1", img.ID)
}

func TestListImages_TypeFilter(t *testing.T) {
	t.Parallel()

	svc, st := newSvc(t)
	st.EXPECT().ProjectByID(gomock.Any(), "p-1").Return(ownedProject(), nil).AnyTimes()

	_, _, err := svc.ListImages(ctx, userID("u-1"), "p-1", models.ListParams{Type: "vector"})
	require.ErrorIs(t, err, ErrValidation)

	st.EXPECT().ListImages(gomock.Any(), "p-1", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, p models.ListParams) (*models.ImagePage, error) {
			require.Equal(t, models.ImageSynthetic, p.Type)
			require.Equal(t, 20, p.Limit)
			return &models.ImagePage{}, nil
		})
	_, _, err = svc.ListImages(ctx, userID("u-1"), "p-1", models.ListParams{Type: models.ImageSynthetic})
	require.NoError(t, err)
}

func TestUpdateImage_AssignsBoxIDs(t *testing.T) {
	t.Parallel()

	svc, st := newSvc(t)
	st.EXPECT().ProjectByID(gomock.Any(), "p-1").Return(ownedProject(), nil)
	st.EXPECT().UpdateImage(gomock.Any(), "p-1", "i-1", gomock.Any()).DoAndReturn(
		func(_ context.Context, _, _ string, upd models.ImageUpdate) (*models.Image, error) {
			require.NotNil(t, upd.Annotations)
			require.Equal(t, "keep", upd.Annotations.BoundingBoxes[0].ID)
			require.NotEmpty(t, upd.Annotations.BoundingBoxes[1].ID)
			return &models.Image{ID: "i-1", Annotations: *upd.Annotations}, nil
		})

	ann := &models.Annotations{BoundingBoxes: []models.BoundingBox{
		{ID: "keep", Width: 0.2, Height: 0.2},
		{Width: 0.3, Height: 0.3},
	}}
	_, err := svc.UpdateImage(ctx, userID("u-1"), "p-1", "i-1", ImagePatch{Annotations: ann})
	require.NoError(t, err)
}

func TestUpdateImage_NegativeMetadata(t *testing.T) {
	t.Parallel()

	svc, st := newSvc(t)
	st.EXPECT().ProjectByID(gomock.Any(), "p-1").Return(ownedProject(), nil)

	_, err := svc.UpdateImage(ctx, userID("u-1"), "p-1", "i-1", ImagePatch{
		Metadata: &models.ImageMetadata{Width: 640, Height: -1},
	})
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "metadata")
}
