package services

import (
	"context"
	"errors"
	"fmt"

	"medidor/internal/models"
	"medidor/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrProjectNotFound covers both a missing project and a project owned
// by somebody else; callers must not be able to tell the two apart.
var ErrProjectNotFound = errors.New("project not found")

// DB is the transactional executor the project service runs against.
// *pgxpool.Pool satisfies it, as do pgxmock pools in tests.
type DB interface {
	repositories.Database
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ProjectFormData is the wizard header snapshot.
type ProjectFormData struct {
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Location     string  `json:"location"`
	JobType      *string `json:"jobType"`
	Date         *string `json:"date"`
	RailType     *string `json:"railType"`
	Observations *string `json:"observations"`
}

// MeasurementType is the wizard's product type selection.
type MeasurementType struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// MeasurementInput is one wizard row. ID is present only when the row
// echoes a previously saved measurement.
type MeasurementInput struct {
	ID           *string          `json:"id"`
	Floor        *string          `json:"floor"`
	RoomNumber   *string          `json:"roomNumber"`
	Room         *string          `json:"room"`
	Type         *MeasurementType `json:"type"`
	Width        float64          `json:"width"`
	Height       float64          `json:"height"`
	Depth        *float64         `json:"depth"`
	Quantity     int              `json:"quantity"`
	Observations *string          `json:"observations"`
}

// SaveCompleteInput is the full wizard snapshot posted on save.
type SaveCompleteInput struct {
	ID           *string            `json:"id"`
	FormData     ProjectFormData    `json:"formData"`
	Measurements []MeasurementInput `json:"measurements"`
}

type ProjectService interface {
	// SaveComplete persists the header and reconciles the measurement
	// rows so the stored set equals the input list. It reports whether
	// a new project was created.
	SaveComplete(ctx context.Context, userID uuid.UUID, in *SaveCompleteInput) (uuid.UUID, bool, error)
}

type projectService struct {
	db DB
}

func NewProjectService(db DB) ProjectService {
	return &projectService{db: db}
}

func (s *projectService) SaveComplete(ctx context.Context, userID uuid.UUID, in *SaveCompleteInput) (uuid.UUID, bool, error) {
	created := in.ID == nil || *in.ID == ""

	var projectID uuid.UUID
	if created {
		projectID = uuid.New()
	} else {
		id, err := uuid.Parse(*in.ID)
		if err != nil {
			return uuid.Nil, false, ErrProjectNotFound
		}
		projectID = id
	}

	// Header write and measurement reconciliation share one transaction
	// so a crash can never leave the header updated against a stale set.
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("begin save-complete: %w", err)
	}
	defer tx.Rollback(ctx)

	projects := repositories.NewProjectRepo(tx)
	measurements := repositories.NewMeasurementRepo(tx)

	project := headerToProject(projectID, userID, &in.FormData)
	if created {
		project.Status = models.ProjectStatusInProgress
		if err := projects.Create(ctx, project); err != nil {
			return uuid.Nil, false, fmt.Errorf("insert project: %w", err)
		}
	} else {
		affected, err := projects.UpdateHeader(ctx, project)
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("update project: %w", err)
		}
		if affected == 0 {
			return uuid.Nil, false, ErrProjectNotFound
		}
	}

	if err := s.reconcile(ctx, measurements, projectID, in.Measurements); err != nil {
		return uuid.Nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, false, fmt.Errorf("commit save-complete: %w", err)
	}
	return projectID, created, nil
}

// reconcile makes the stored measurement rows for the project exactly
// match the submitted list: rows the client dropped are deleted, echoed
// rows are updated in place, rows without an id are inserted fresh. An
// empty list clears everything.
//
// A carried id is only honored when the project already owns that row;
// an id belonging to another project (or to nothing) is discarded and
// the entry saved as a new row, so one user's save can never touch
// another project's measurements.
func (s *projectService) reconcile(ctx context.Context, repo repositories.MeasurementRepository, projectID uuid.UUID, inputs []MeasurementInput) error {
	if len(inputs) == 0 {
		if err := repo.DeleteAllForProject(ctx, projectID); err != nil {
			return fmt.Errorf("clear measurements: %w", err)
		}
		return nil
	}

	carried := false
	for i := range inputs {
		if _, ok := carriedID(inputs[i].ID); ok {
			carried = true
			break
		}
	}

	existing := map[uuid.UUID]struct{}{}
	if carried {
		var err error
		existing, err = repo.ListIDsByProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("list measurement ids: %w", err)
		}
	}

	var keep []uuid.UUID
	rows := make([]*models.Measurement, 0, len(inputs))
	for i := range inputs {
		m := inputToMeasurement(projectID, &inputs[i])
		if id, ok := carriedID(inputs[i].ID); ok {
			if _, owned := existing[id]; owned {
				keep = append(keep, id)
			} else {
				m.ID = uuid.New()
			}
		}
		rows = append(rows, m)
	}

	if len(keep) > 0 {
		if err := repo.DeleteNotIn(ctx, projectID, keep); err != nil {
			return fmt.Errorf("delete dropped measurements: %w", err)
		}
	} else {
		if err := repo.DeleteAllForProject(ctx, projectID); err != nil {
			return fmt.Errorf("delete dropped measurements: %w", err)
		}
	}

	for _, m := range rows {
		if err := repo.Upsert(ctx, m); err != nil {
			return fmt.Errorf("upsert measurement: %w", err)
		}
	}
	return nil
}

func carriedID(id *string) (uuid.UUID, bool) {
	if id == nil || *id == "" {
		return uuid.Nil, false
	}
	parsed, err := uuid.Parse(*id)
	if err != nil {
		return uuid.Nil, false
	}
	return parsed, true
}

func headerToProject(projectID, userID uuid.UUID, form *ProjectFormData) *models.Project {
	project := &models.Project{
		ID:           projectID,
		UserID:       userID,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		Email:        form.Email,
		Phone:        form.Phone,
		Location:     form.Location,
		JobType:      form.JobType,
		Date:         form.Date,
		RailType:     form.RailType,
		Observations: form.Observations,
	}
	if project.FirstName == "" {
		project.FirstName = "Sin nombre"
	}
	if project.Location == "" {
		project.Location = "N/A"
	}
	return project
}

// inputToMeasurement applies the wizard defaults. A row with zero width
// and height and no depth is valid as-is: a note-only entry.
func inputToMeasurement(projectID uuid.UUID, in *MeasurementInput) *models.Measurement {
	m := &models.Measurement{
		ProjectID:    projectID,
		Floor:        "N/A",
		RoomNumber:   "-",
		Room:         "N/A",
		ProductType:  "otro",
		ProductLabel: "Otro",
		Width:        in.Width,
		Height:       in.Height,
		Depth:        in.Depth,
		Quantity:     in.Quantity,
		Observations: in.Observations,
	}

	if id, ok := carriedID(in.ID); ok {
		m.ID = id
	} else {
		m.ID = uuid.New()
	}
	if in.Floor != nil && *in.Floor != "" {
		m.Floor = *in.Floor
	}
	if in.RoomNumber != nil && *in.RoomNumber != "" {
		m.RoomNumber = *in.RoomNumber
	}
	if in.Room != nil && *in.Room != "" {
		m.Room = *in.Room
	}
	if in.Type != nil {
		if in.Type.ID != "" {
			m.ProductType = in.Type.ID
		}
		if in.Type.Label != "" {
			m.ProductLabel = in.Type.Label
		}
	}
	if m.Quantity <= 0 {
		m.Quantity = 1
	}
	return m
}
