package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"medidor/internal/common"
	"medidor/internal/models"
	"medidor/internal/repositories"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type AdminMiddlewareTestSuite struct {
	suite.Suite
	mock   pgxmock.PgxPoolIface
	mw     *AdminMiddleware
	userID uuid.UUID
}

func (suite *AdminMiddlewareTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.mw = NewAdminMiddleware(repositories.NewUserRepo(mock))
	suite.userID = uuid.New()
}

func (suite *AdminMiddlewareTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestAdminMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(AdminMiddlewareTestSuite))
}

func (suite *AdminMiddlewareTestSuite) invoke(authenticated bool) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	if authenticated {
		ctx := context.WithValue(req.Context(), common.UserIDKey, suite.userID)
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := suite.mw.RequireAdmin()(func(c echo.Context) error {
		role, _ := common.GetRoleFromContext(c.Request().Context())
		return c.String(http.StatusOK, role)
	})
	return rec, handler(c)
}

func (suite *AdminMiddlewareTestSuite) expectAuthState(role string, active bool) {
	suite.mock.ExpectQuery(`SELECT role, is_active FROM users WHERE id = \$1`).
		WithArgs(suite.userID).
		WillReturnRows(pgxmock.NewRows([]string{"role", "is_active"}).AddRow(role, active))
}

func (suite *AdminMiddlewareTestSuite) TestActiveAdminPasses() {
	suite.expectAuthState(models.RoleAdmin, true)

	rec, err := suite.invoke(true)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	// The handler sees the database role, not whatever the token said.
	assert.Equal(suite.T(), models.RoleAdmin, rec.Body.String())
}

func (suite *AdminMiddlewareTestSuite) TestRevokedRoleRejected() {
	// The token may still say admin; the users row is what counts.
	suite.expectAuthState(models.RoleUser, true)

	_, err := suite.invoke(true)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), http.StatusForbidden, httpErr.Code)
}

func (suite *AdminMiddlewareTestSuite) TestDeactivatedAdminRejected() {
	suite.expectAuthState(models.RoleAdmin, false)

	_, err := suite.invoke(true)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), http.StatusForbidden, httpErr.Code)
}

func (suite *AdminMiddlewareTestSuite) TestUnknownUserRejected() {
	suite.mock.ExpectQuery(`SELECT role, is_active FROM users WHERE id = \$1`).
		WithArgs(suite.userID).
		WillReturnError(pgx.ErrNoRows)

	_, err := suite.invoke(true)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), http.StatusUnauthorized, httpErr.Code)
}

func (suite *AdminMiddlewareTestSuite) TestMissingIdentityRejected() {
	_, err := suite.invoke(false)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), http.StatusUnauthorized, httpErr.Code)
}
