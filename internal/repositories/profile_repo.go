package repositories

import (
	"context"

	"medidor/internal/models"

	"github.com/google/uuid"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *models.UserProfile) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	Update(ctx context.Context, profile *models.UserProfile) error
	UpdateAvatarURL(ctx context.Context, userID uuid.UUID, avatarURL string) (int64, error)
}

type profileRepo struct {
	db Database
}

func NewProfileRepo(db Database) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) Create(ctx context.Context, profile *models.UserProfile) error {
	query := `
		INSERT INTO user_profiles (user_id, full_name, phone, company, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, profile.UserID, profile.FullName, profile.Phone, profile.Company, profile.AvatarURL)
	return err
}

func (r *profileRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	profile := &models.UserProfile{}
	query := `
		SELECT user_id, full_name, phone, company, avatar_url, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`
	err := r.db.QueryRow(ctx, query, userID).Scan(&profile.UserID, &profile.FullName, &profile.Phone, &profile.Company, &profile.AvatarURL, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *profileRepo) Update(ctx context.Context, profile *models.UserProfile) error {
	query := `
		UPDATE user_profiles
		SET full_name = $1, phone = $2, company = $3, updated_at = NOW()
		WHERE user_id = $4
	`
	_, err := r.db.Exec(ctx, query, profile.FullName, profile.Phone, profile.Company, profile.UserID)
	return err
}

func (r *profileRepo) UpdateAvatarURL(ctx context.Context, userID uuid.UUID, avatarURL string) (int64, error) {
	query := `UPDATE user_profiles SET avatar_url = $1, updated_at = NOW() WHERE user_id = $2`
	tag, err := r.db.Exec(ctx, query, avatarURL, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
