package repositories

import (
	"context"

	"medidor/internal/models"

	"github.com/google/uuid"
)

type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	UpdateHeader(ctx context.Context, project *models.Project) (int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Project, error)
	ExistsForUser(ctx context.Context, id, userID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Project, error)
	ListAllWithOwner(ctx context.Context, limit, offset int) ([]*models.ProjectWithOwner, error)
	AdminUpdate(ctx context.Context, project *models.Project) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	DeleteForUser(ctx context.Context, id, userID uuid.UUID) (int64, error)
	SetLastReportURL(ctx context.Context, id uuid.UUID, url string) error
	Count(ctx context.Context) (int, error)
}

type projectRepo struct {
	db Database
}

func NewProjectRepo(db Database) ProjectRepository {
	return &projectRepo{db: db}
}

const projectColumns = `id, user_id, first_name, last_name, email, phone, location, job_type, date, rail_type, observations, status, last_report_url, created_at, updated_at`

func scanProject(row interface{ Scan(dest ...any) error }, p *models.Project) error {
	return row.Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.Location, &p.JobType, &p.Date, &p.RailType, &p.Observations, &p.Status, &p.LastReportURL, &p.CreatedAt, &p.UpdatedAt)
}

func (r *projectRepo) Create(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (id, user_id, first_name, last_name, email, phone, location, job_type, date, rail_type, observations, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query,
		project.ID, project.UserID, project.FirstName, project.LastName,
		project.Email, project.Phone, project.Location, project.JobType,
		project.Date, project.RailType, project.Observations, project.Status)
	return err
}

// UpdateHeader rewrites the wizard header fields of a project. The
// user_id predicate keeps the write owner-scoped; zero rows affected
// means the project does not exist for that owner.
func (r *projectRepo) UpdateHeader(ctx context.Context, project *models.Project) (int64, error) {
	query := `
		UPDATE projects
		SET first_name = $1, last_name = $2, email = $3, phone = $4, location = $5,
			job_type = $6, date = $7, rail_type = $8, observations = $9, updated_at = NOW()
		WHERE id = $10 AND user_id = $11
	`
	tag, err := r.db.Exec(ctx, query,
		project.FirstName, project.LastName, project.Email, project.Phone,
		project.Location, project.JobType, project.Date, project.RailType,
		project.Observations, project.ID, project.UserID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *projectRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project := &models.Project{}
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	if err := scanProject(r.db.QueryRow(ctx, query, id), project); err != nil {
		return nil, err
	}
	return project, nil
}

func (r *projectRepo) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Project, error) {
	project := &models.Project{}
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND user_id = $2`
	if err := scanProject(r.db.QueryRow(ctx, query, id, userID), project); err != nil {
		return nil, err
	}
	return project, nil
}

func (r *projectRepo) ExistsForUser(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1 AND user_id = $2)`
	err := r.db.QueryRow(ctx, query, id, userID).Scan(&exists)
	return exists, err
}

func (r *projectRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project := &models.Project{}
		if err := scanProject(rows, project); err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (r *projectRepo) ListAllWithOwner(ctx context.Context, limit, offset int) ([]*models.ProjectWithOwner, error) {
	query := `
		SELECT p.id, p.user_id, p.first_name, p.last_name, p.email, p.phone, p.location,
			p.job_type, p.date, p.rail_type, p.observations, p.status, p.last_report_url,
			p.created_at, p.updated_at, u.email AS user_email
		FROM projects p
		JOIN users u ON p.user_id = u.id
		ORDER BY p.created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*models.ProjectWithOwner
	for rows.Next() {
		p := &models.ProjectWithOwner{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.Location, &p.JobType, &p.Date, &p.RailType, &p.Observations, &p.Status, &p.LastReportURL, &p.CreatedAt, &p.UpdatedAt, &p.UserEmail); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// AdminUpdate rewrites header fields plus status, without owner scoping.
func (r *projectRepo) AdminUpdate(ctx context.Context, project *models.Project) (int64, error) {
	query := `
		UPDATE projects
		SET first_name = $1, last_name = $2, email = $3, phone = $4, location = $5,
			job_type = $6, date = $7, rail_type = $8, observations = $9, status = $10, updated_at = NOW()
		WHERE id = $11
	`
	tag, err := r.db.Exec(ctx, query,
		project.FirstName, project.LastName, project.Email, project.Phone,
		project.Location, project.JobType, project.Date, project.RailType,
		project.Observations, project.Status, project.ID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *projectRepo) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *projectRepo) DeleteForUser(ctx context.Context, id, userID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *projectRepo) SetLastReportURL(ctx context.Context, id uuid.UUID, url string) error {
	_, err := r.db.Exec(ctx, `UPDATE projects SET last_report_url = $1, updated_at = NOW() WHERE id = $2`, url, id)
	return err
}

func (r *projectRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count)
	return count, err
}
