package repositories

import (
	"context"

	"medidor/internal/models"

	"github.com/google/uuid"
)

type ImageRepository interface {
	Create(ctx context.Context, image *models.Image) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Image, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Image, error)
	ListAll(ctx context.Context, limit, offset int) ([]*models.Image, error)
	ListStoragePaths(ctx context.Context) (map[string]struct{}, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type imageRepo struct {
	db Database
}

func NewImageRepo(db Database) ImageRepository {
	return &imageRepo{db: db}
}

const imageColumns = `id, project_id, measurement_id, storage_path, public_url, original_name, mime_type, size_bytes, created_at`

func (r *imageRepo) Create(ctx context.Context, image *models.Image) error {
	query := `
		INSERT INTO images (id, project_id, measurement_id, storage_path, public_url, original_name, mime_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`
	_, err := r.db.Exec(ctx, query,
		image.ID, image.ProjectID, image.MeasurementID, image.StoragePath,
		image.PublicURL, image.OriginalName, image.MimeType, image.SizeBytes)
	return err
}

func (r *imageRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	image := &models.Image{}
	query := `SELECT ` + imageColumns + ` FROM images WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&image.ID, &image.ProjectID, &image.MeasurementID, &image.StoragePath, &image.PublicURL, &image.OriginalName, &image.MimeType, &image.SizeBytes, &image.CreatedAt)
	if err != nil {
		return nil, err
	}
	return image, nil
}

func (r *imageRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images WHERE project_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanImages(rows)
}

func (r *imageRepo) ListAll(ctx context.Context, limit, offset int) ([]*models.Image, error) {
	query := `SELECT ` + imageColumns + ` FROM images ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanImages(rows)
}

// ListStoragePaths returns every object key the images table knows
// about. The orphan sweep diffs the bucket contents against this set.
func (r *imageRepo) ListStoragePaths(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.Query(ctx, `SELECT storage_path FROM images`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := make(map[string]struct{})
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths[path] = struct{}{}
	}
	return paths, rows.Err()
}

func (r *imageRepo) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanImages(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*models.Image, error) {
	var images []*models.Image
	for rows.Next() {
		image := &models.Image{}
		if err := rows.Scan(&image.ID, &image.ProjectID, &image.MeasurementID, &image.StoragePath, &image.PublicURL, &image.OriginalName, &image.MimeType, &image.SizeBytes, &image.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}
