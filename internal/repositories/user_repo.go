package repositories

import (
	"context"

	"medidor/internal/models"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetAuthState(ctx context.Context, id uuid.UUID) (role string, active bool, err error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role string) (int64, error)
	UpdateActive(ctx context.Context, id uuid.UUID, active bool) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	Count(ctx context.Context) (int, error)
}

type userRepo struct {
	db Database
}

func NewUserRepo(db Database) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, user.ID, user.Email, user.PasswordHash, user.Role, user.IsActive)
	return err
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, password_hash, role, is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, password_hash, role, is_active, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	err := r.db.QueryRow(ctx, query, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetAuthState reads the current role and active flag straight from the
// users row. The admin middleware calls this on every request so a role
// change takes effect immediately, token claims notwithstanding.
func (r *userRepo) GetAuthState(ctx context.Context, id uuid.UUID) (string, bool, error) {
	var role string
	var active bool
	query := `SELECT role, is_active FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&role, &active)
	if err != nil {
		return "", false, err
	}
	return role, active, nil
}

func (r *userRepo) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `
		SELECT id, email, role, is_active, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.Email, &user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *userRepo) UpdateRole(ctx context.Context, id uuid.UUID, role string) (int64, error) {
	query := `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, role, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *userRepo) UpdateActive(ctx context.Context, id uuid.UUID, active bool) (int64, error) {
	query := `UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, active, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *userRepo) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	query := `DELETE FROM users WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *userRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
