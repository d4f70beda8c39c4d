package services

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/jackc/pgx/v5/pgconn"
)

type AccountServiceTestSuite struct {
	suite.Suite
	mock    pgxmock.PgxPoolIface
	service AccountService
	context context.Context
}

func (suite *AccountServiceTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.service = NewAccountService(mock)
	suite.context = context.Background()
}

func (suite *AccountServiceTestSuite) TearDownTest() {
	suite.mock.Close()
}

func TestAccountServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}

func (suite *AccountServiceTestSuite) TestCreate_UserAndProfileInOneTransaction() {
	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), "ana@example.com", pgxmock.AnyArg(), "user", true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(`INSERT INTO user_profiles`).
		WithArgs(pgxmock.AnyArg(), "Ana García", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectCommit()

	user, err := suite.service.Create(suite.context, "ana@example.com", "secret123", "Ana García", "user")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "ana@example.com", user.Email)
	assert.Equal(suite.T(), "user", user.Role)
	assert.True(suite.T(), user.IsActive)
	assert.NoError(suite.T(), bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *AccountServiceTestSuite) TestCreate_DuplicateEmail() {
	suite.mock.ExpectBegin()
	// Two registrations racing on the same email: the loser hits the
	// unique constraint and must surface the typed duplicate error.
	suite.mock.ExpectExec(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	suite.mock.ExpectRollback()

	_, err := suite.service.Create(suite.context, "ana@example.com", "secret123", "Ana", "user")
	assert.ErrorIs(suite.T(), err, ErrDuplicateEmail)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}

func (suite *AccountServiceTestSuite) TestCreate_ProfileFailureLeavesNoUser() {
	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(`INSERT INTO user_profiles`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(assert.AnError)
	suite.mock.ExpectRollback()

	_, err := suite.service.Create(suite.context, "ana@example.com", "secret123", "Ana", "user")
	assert.Error(suite.T(), err)
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
}
