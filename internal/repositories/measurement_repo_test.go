package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"medidor/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type MeasurementRepoTestSuite struct {
	suite.Suite
	mock      pgxmock.PgxPoolIface
	repo      MeasurementRepository
	projectID uuid.UUID
	context   context.Context
}

func (suite *MeasurementRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewMeasurementRepo(mock)
	suite.projectID = uuid.New()
	suite.context = context.Background()
}

func (suite *MeasurementRepoTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestMeasurementRepoTestSuite(t *testing.T) {
	suite.Run(t, new(MeasurementRepoTestSuite))
}

func (suite *MeasurementRepoTestSuite) TestUpsert_Insert() {
	depth := 40.0
	obs := "bajo ventana"
	m := &models.Measurement{
		ID:           uuid.New(),
		ProjectID:    suite.projectID,
		Floor:        "Planta 1",
		RoomNumber:   "2",
		Room:         "Cocina",
		ProductType:  "encimera",
		ProductLabel: "Encimera",
		Width:        120.5,
		Height:       60,
		Depth:        &depth,
		Quantity:     2,
		Observations: &obs,
	}

	suite.mock.ExpectExec(`INSERT INTO measurements`).
		WithArgs(m.ID, m.ProjectID, m.Floor, m.RoomNumber, m.Room,
			m.ProductType, m.ProductLabel, m.Width, m.Height, m.Depth,
			m.Quantity, m.Observations).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Upsert(suite.context, m)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *MeasurementRepoTestSuite) TestUpsert_ExistingIDUpdates() {
	m := &models.Measurement{
		ID:           uuid.New(),
		ProjectID:    suite.projectID,
		Floor:        "Planta 2",
		RoomNumber:   "1",
		Room:         "Dormitorio",
		ProductType:  "armario",
		ProductLabel: "Armario",
		Width:        200,
		Height:       240,
		Quantity:     1,
	}

	// Same statement either way; the conflict clause updates in place.
	suite.mock.ExpectExec(`INSERT INTO measurements`).
		WithArgs(m.ID, m.ProjectID, m.Floor, m.RoomNumber, m.Room,
			m.ProductType, m.ProductLabel, m.Width, m.Height, m.Depth,
			m.Quantity, m.Observations).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := suite.repo.Upsert(suite.context, m)
	assert.NoError(suite.T(), err)
}

func (suite *MeasurementRepoTestSuite) TestUpsert_ConflictUpdateScopedToProject() {
	m := &models.Measurement{ID: uuid.New(), ProjectID: suite.projectID, Quantity: 1}

	// The update branch must carry the project guard so an id colliding
	// with another project's row leaves that row untouched.
	suite.mock.ExpectExec(`ON CONFLICT \(id\) DO UPDATE SET[\s\S]*WHERE measurements\.project_id = EXCLUDED\.project_id`).
		WithArgs(m.ID, m.ProjectID, m.Floor, m.RoomNumber, m.Room,
			m.ProductType, m.ProductLabel, m.Width, m.Height, m.Depth,
			m.Quantity, m.Observations).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := suite.repo.Upsert(suite.context, m)
	assert.NoError(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *MeasurementRepoTestSuite) TestListIDsByProject() {
	id1 := uuid.New()
	id2 := uuid.New()

	suite.mock.ExpectQuery(`SELECT id FROM measurements WHERE project_id = \$1`).
		WithArgs(suite.projectID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id1).AddRow(id2))

	ids, err := suite.repo.ListIDsByProject(suite.context, suite.projectID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), ids, 2)
	assert.Contains(suite.T(), ids, id1)
	assert.Contains(suite.T(), ids, id2)
}

func (suite *MeasurementRepoTestSuite) TestListIDsByProject_Empty() {
	suite.mock.ExpectQuery(`SELECT id FROM measurements WHERE project_id = \$1`).
		WithArgs(suite.projectID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	ids, err := suite.repo.ListIDsByProject(suite.context, suite.projectID)
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), ids)
}

func (suite *MeasurementRepoTestSuite) TestUpsert_DatabaseError() {
	m := &models.Measurement{ID: uuid.New(), ProjectID: suite.projectID, Quantity: 1}

	suite.mock.ExpectExec(`INSERT INTO measurements`).
		WithArgs(m.ID, m.ProjectID, m.Floor, m.RoomNumber, m.Room,
			m.ProductType, m.ProductLabel, m.Width, m.Height, m.Depth,
			m.Quantity, m.Observations).
		WillReturnError(errors.New("database connection failed"))

	err := suite.repo.Upsert(suite.context, m)
	assert.Error(suite.T(), err)
}

func (suite *MeasurementRepoTestSuite) TestListByProject_OrderedRows() {
	now := time.Now()
	rows := pgxmock.NewRows([]string{"id", "project_id", "floor", "room_number", "room", "product_type", "product_label", "width", "height", "depth", "quantity", "observations", "created_at"}).
		AddRow(uuid.New(), suite.projectID, "Planta 1", "1", "Salón", "ventana", "Ventana", 150.0, 120.0, nil, 1, nil, now).
		AddRow(uuid.New(), suite.projectID, "Planta 1", "2", "Cocina", "encimera", "Encimera", 120.0, 60.0, floatPtr(40), 2, nil, now)

	suite.mock.ExpectQuery(`SELECT (.+) FROM measurements WHERE project_id = \$1 ORDER BY floor, room_number`).
		WithArgs(suite.projectID).
		WillReturnRows(rows)

	result, err := suite.repo.ListByProject(suite.context, suite.projectID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), result, 2)
	assert.Equal(suite.T(), "Salón", result[0].Room)
	assert.Nil(suite.T(), result[0].Depth)
	assert.NotNil(suite.T(), result[1].Depth)
	assert.Equal(suite.T(), 40.0, *result[1].Depth)
}

func (suite *MeasurementRepoTestSuite) TestListByProject_Empty() {
	rows := pgxmock.NewRows([]string{"id", "project_id", "floor", "room_number", "room", "product_type", "product_label", "width", "height", "depth", "quantity", "observations", "created_at"})

	suite.mock.ExpectQuery(`SELECT (.+) FROM measurements WHERE project_id = \$1`).
		WithArgs(suite.projectID).
		WillReturnRows(rows)

	result, err := suite.repo.ListByProject(suite.context, suite.projectID)
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), result)
}

func (suite *MeasurementRepoTestSuite) TestDeleteNotIn_KeepsListedIDs() {
	keep := []uuid.UUID{uuid.New(), uuid.New()}

	suite.mock.ExpectExec(`DELETE FROM measurements WHERE project_id = \$1 AND NOT \(id = ANY\(\$2\)\)`).
		WithArgs(suite.projectID, keep).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	err := suite.repo.DeleteNotIn(suite.context, suite.projectID, keep)
	assert.NoError(suite.T(), err)
}

func (suite *MeasurementRepoTestSuite) TestDeleteAllForProject() {
	suite.mock.ExpectExec(`DELETE FROM measurements WHERE project_id = \$1`).
		WithArgs(suite.projectID).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))

	err := suite.repo.DeleteAllForProject(suite.context, suite.projectID)
	assert.NoError(suite.T(), err)
}

func (suite *MeasurementRepoTestSuite) TestCount() {
	suite.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM measurements`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	count, err := suite.repo.Count(suite.context)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 42, count)
}

func floatPtr(f float64) *float64 {
	return &f
}
