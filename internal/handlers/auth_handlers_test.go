package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"medidor/internal/common"
	"medidor/internal/repositories"
	"medidor/internal/services"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandlersTestSuite struct {
	suite.Suite
	mock     pgxmock.PgxPoolIface
	handlers *AuthHandlers
	echo     *echo.Echo
}

func (suite *AuthHandlersTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	accounts := services.NewAccountService(mock)
	userRepo := repositories.NewUserRepo(mock)
	profileRepo := repositories.NewProfileRepo(mock)
	suite.handlers = NewAuthHandlers(accounts, userRepo, profileRepo, "test-secret", time.Hour)
	suite.echo = echo.New()
}

func (suite *AuthHandlersTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestAuthHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlersTestSuite))
}

func (suite *AuthHandlersTestSuite) postJSON(path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return suite.echo.NewContext(req, rec), rec
}

func userRow(id uuid.UUID, email, passwordHash, role string, active bool) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{"id", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}).
		AddRow(id, email, passwordHash, role, active, now, now)
}

func (suite *AuthHandlersTestSuite) TestRegister_Success() {
	// User and profile rows land in one transaction.
	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "nuevo@example.com", pgxmock.AnyArg(), "user", true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(`INSERT INTO user_profiles`).
		WithArgs(pgxmock.AnyArg(), "Nuevo Usuario", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectCommit()

	c, rec := suite.postJSON("/api/auth/register", `{"email":"nuevo@example.com","password":"secret123","fullName":"Nuevo Usuario"}`)
	err := suite.handlers.Register(c)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusCreated, rec.Code)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *AuthHandlersTestSuite) TestRegister_DuplicateEmail() {
	// The unique constraint fires even when two registrations race, and
	// surfaces as the stable duplicate-email code, never a 500.
	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	suite.mock.ExpectRollback()

	c, rec := suite.postJSON("/api/auth/register", `{"email":"existente@example.com","password":"secret123"}`)
	err := suite.handlers.Register(c)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)

	var resp common.ErrorResponse
	assert.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(suite.T(), "DUPLICATE_EMAIL", resp.Error.Code)
}

func (suite *AuthHandlersTestSuite) TestRegister_MissingFields() {
	c, rec := suite.postJSON("/api/auth/register", `{"email":"","password":""}`)
	err := suite.handlers.Register(c)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)

	var resp common.ErrorResponse
	assert.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(suite.T(), "VALIDATION_ERROR", resp.Error.Code)
}

func (suite *AuthHandlersTestSuite) TestLogin_Success() {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	assert.NoError(suite.T(), err)

	userID := uuid.New()
	suite.mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
		WithArgs("ana@example.com").
		WillReturnRows(userRow(userID, "ana@example.com", string(hash), "user", true))

	c, rec := suite.postJSON("/api/auth/login", `{"email":"ana@example.com","password":"secret123"}`)
	assert.NoError(suite.T(), suite.handlers.Login(c))
	assert.Equal(suite.T(), http.StatusOK, rec.Code)

	var resp map[string]interface{}
	assert.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(suite.T(), resp["token"])
	user := resp["user"].(map[string]interface{})
	assert.Equal(suite.T(), userID.String(), user["id"])
}

func (suite *AuthHandlersTestSuite) TestLogin_WrongPassword() {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	assert.NoError(suite.T(), err)

	suite.mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
		WithArgs("ana@example.com").
		WillReturnRows(userRow(uuid.New(), "ana@example.com", string(hash), "user", true))

	c, _ := suite.postJSON("/api/auth/login", `{"email":"ana@example.com","password":"wrong"}`)
	err = suite.handlers.Login(c)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), http.StatusUnauthorized, httpErr.Code)
}

func (suite *AuthHandlersTestSuite) TestLogin_UnknownEmail() {
	suite.mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
		WithArgs("nadie@example.com").
		WillReturnError(pgx.ErrNoRows)

	c, _ := suite.postJSON("/api/auth/login", `{"email":"nadie@example.com","password":"secret123"}`)
	err := suite.handlers.Login(c)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), http.StatusUnauthorized, httpErr.Code)
}

func (suite *AuthHandlersTestSuite) TestLogin_DeactivatedAccount() {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	assert.NoError(suite.T(), err)

	suite.mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
		WithArgs("baja@example.com").
		WillReturnRows(userRow(uuid.New(), "baja@example.com", string(hash), "user", false))

	// Indistinguishable from a wrong password on purpose.
	c, _ := suite.postJSON("/api/auth/login", `{"email":"baja@example.com","password":"secret123"}`)
	err = suite.handlers.Login(c)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), http.StatusUnauthorized, httpErr.Code)
}
