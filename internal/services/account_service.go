package services

import (
	"context"
	"errors"
	"fmt"

	"medidor/internal/models"
	"medidor/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// ErrDuplicateEmail reports an account creation against an email that
// is already registered.
var ErrDuplicateEmail = errors.New("email already registered")

const uniqueViolation = "23505"

// AccountService creates accounts. The users row and its profile row
// land in one transaction; a failure on either side leaves nothing
// behind.
type AccountService interface {
	Create(ctx context.Context, email, password, fullName, role string) (*models.User, error)
}

type accountService struct {
	db DB
}

func NewAccountService(db DB) AccountService {
	return &accountService{db: db}
}

func (s *accountService) Create(ctx context.Context, email, password, fullName, role string) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hashed),
		Role:         role,
		IsActive:     true,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin account create: %w", err)
	}
	defer tx.Rollback(ctx)

	users := repositories.NewUserRepo(tx)
	profiles := repositories.NewProfileRepo(tx)

	if err := users.Create(ctx, user); err != nil {
		// The unique constraint is the authority on duplicates; a
		// concurrent registration racing past any pre-check lands here.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	profile := &models.UserProfile{UserID: user.ID, FullName: fullName}
	if err := profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit account create: %w", err)
	}
	return user, nil
}
