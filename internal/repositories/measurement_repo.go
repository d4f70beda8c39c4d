package repositories

import (
	"context"

	"medidor/internal/models"

	"github.com/google/uuid"
)

type MeasurementRepository interface {
	Upsert(ctx context.Context, m *models.Measurement) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Measurement, error)
	ListIDsByProject(ctx context.Context, projectID uuid.UUID) (map[uuid.UUID]struct{}, error)
	DeleteNotIn(ctx context.Context, projectID uuid.UUID, keep []uuid.UUID) error
	DeleteAllForProject(ctx context.Context, projectID uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

type measurementRepo struct {
	db Database
}

func NewMeasurementRepo(db Database) MeasurementRepository {
	return &measurementRepo{db: db}
}

// Upsert inserts the row or, when the id already exists, rewrites every
// scalar field. Reconciliation feeds carried-over and new rows through
// the same path. The conflict update only fires when the existing row
// already belongs to the same project: an id colliding with another
// project's row must never rewrite it.
func (r *measurementRepo) Upsert(ctx context.Context, m *models.Measurement) error {
	query := `
		INSERT INTO measurements (id, project_id, floor, room_number, room, product_type, product_label, width, height, depth, quantity, observations, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (id) DO UPDATE SET
			floor = EXCLUDED.floor, room_number = EXCLUDED.room_number, room = EXCLUDED.room,
			product_type = EXCLUDED.product_type, product_label = EXCLUDED.product_label,
			width = EXCLUDED.width, height = EXCLUDED.height, depth = EXCLUDED.depth,
			quantity = EXCLUDED.quantity, observations = EXCLUDED.observations
		WHERE measurements.project_id = EXCLUDED.project_id
	`
	_, err := r.db.Exec(ctx, query,
		m.ID, m.ProjectID, m.Floor, m.RoomNumber, m.Room,
		m.ProductType, m.ProductLabel, m.Width, m.Height, m.Depth,
		m.Quantity, m.Observations)
	return err
}

// ListByProject returns the rows ordered the way the report lays them
// out: floor first, then room number.
func (r *measurementRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.Measurement, error) {
	query := `
		SELECT id, project_id, floor, room_number, room, product_type, product_label, width, height, depth, quantity, observations, created_at
		FROM measurements
		WHERE project_id = $1
		ORDER BY floor, room_number
	`
	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var measurements []*models.Measurement
	for rows.Next() {
		m := &models.Measurement{}
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Floor, &m.RoomNumber, &m.Room, &m.ProductType, &m.ProductLabel, &m.Width, &m.Height, &m.Depth, &m.Quantity, &m.Observations, &m.CreatedAt); err != nil {
			return nil, err
		}
		measurements = append(measurements, m)
	}
	return measurements, rows.Err()
}

// ListIDsByProject returns the set of measurement ids the project
// currently owns. Reconciliation checks carried-over ids against it so
// an id lifted from another project is never honored.
func (r *measurementRepo) ListIDsByProject(ctx context.Context, projectID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM measurements WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// DeleteNotIn removes the project's rows whose id is absent from keep.
// Images referencing a removed row fall back to project level via the
// ON DELETE SET NULL foreign key.
func (r *measurementRepo) DeleteNotIn(ctx context.Context, projectID uuid.UUID, keep []uuid.UUID) error {
	query := `DELETE FROM measurements WHERE project_id = $1 AND NOT (id = ANY($2))`
	_, err := r.db.Exec(ctx, query, projectID, keep)
	return err
}

func (r *measurementRepo) DeleteAllForProject(ctx context.Context, projectID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM measurements WHERE project_id = $1`, projectID)
	return err
}

func (r *measurementRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM measurements`).Scan(&count)
	return count, err
}
