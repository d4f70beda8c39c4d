package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"medidor/internal/common"
	"medidor/internal/models"
	"medidor/internal/repositories"
	"medidor/internal/services"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

// ProfileHandlers serves the authenticated user's own profile.
type ProfileHandlers struct {
	profileRepo  repositories.ProfileRepository
	userRepo     repositories.UserRepository
	storage      services.StorageService
	imagesBucket string
}

func NewProfileHandlers(profileRepo repositories.ProfileRepository, userRepo repositories.UserRepository, storage services.StorageService, imagesBucket string) *ProfileHandlers {
	return &ProfileHandlers{
		profileRepo:  profileRepo,
		userRepo:     userRepo,
		storage:      storage,
		imagesBucket: imagesBucket,
	}
}

// GetMe handles GET /api/profile/me
func (h *ProfileHandlers) GetMe(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	profile, err := h.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.SendNotFoundError(c, "profile")
		}
		return common.SendServerError(c, "Failed to load profile")
	}

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		return common.SendServerError(c, "Failed to load user")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":         profile.UserID,
		"email":      user.Email,
		"full_name":  profile.FullName,
		"phone":      profile.Phone,
		"company":    profile.Company,
		"avatar_url": profile.AvatarURL,
		"created_at": profile.CreatedAt,
		"updated_at": profile.UpdatedAt,
	})
}

// UpdateProfileRequest represents the editable profile fields
type UpdateProfileRequest struct {
	FullName string  `json:"full_name"`
	Phone    *string `json:"phone"`
	Company  *string `json:"company"`
}

// UpdateMe handles PUT /api/profile/me
func (h *ProfileHandlers) UpdateMe(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	profile := &models.UserProfile{
		UserID:   userID,
		FullName: req.FullName,
		Phone:    req.Phone,
		Company:  req.Company,
	}

	if err := h.profileRepo.Update(ctx, profile); err != nil {
		return common.SendServerError(c, "Failed to update profile")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Profile updated successfully",
	})
}

// UploadAvatar handles POST /api/profile/me/avatar
func (h *ProfileHandlers) UploadAvatar(c echo.Context) error {
	userID, ok := common.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	return uploadAvatarFor(c, userID, h.profileRepo, h.storage, h.imagesBucket)
}

// uploadAvatarFor writes the avatar object and records its URL on the
// profile, removing the object again when the record update fails. The
// admin user-avatar endpoint shares this path.
func uploadAvatarFor(c echo.Context, userID uuid.UUID, profiles repositories.ProfileRepository, storage services.StorageService, bucket string) error {
	ctx := c.Request().Context()

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return common.SendValidationError(c, "avatar", "No file uploaded")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return common.SendServerError(c, "Failed to read uploaded file")
	}
	defer src.Close()

	ext := filepath.Ext(fileHeader.Filename)
	objectName := fmt.Sprintf("avatars/avatar_%s_%d%s", userID, time.Now().UnixMilli(), ext)

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := storage.Upload(ctx, bucket, objectName, src, fileHeader.Size, contentType)
	if err != nil {
		log.Printf("Avatar upload to storage failed: %v", err)
		return common.SendServerError(c, "Failed to store avatar")
	}

	affected, err := profiles.UpdateAvatarURL(ctx, userID, url)
	if err != nil || affected == 0 {
		if delErr := storage.Delete(ctx, bucket, objectName); delErr != nil {
			log.Printf("Compensation delete of %s failed: %v", objectName, delErr)
		}
		if err != nil {
			return common.SendServerError(c, "Failed to record avatar")
		}
		return common.SendNotFoundError(c, "profile")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Avatar updated successfully",
		"url":     url,
	})
}
