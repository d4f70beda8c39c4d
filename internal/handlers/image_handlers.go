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

// ImageHandlers serves image upload, listing and deletion.
type ImageHandlers struct {
	imageRepo    repositories.ImageRepository
	projectRepo  repositories.ProjectRepository
	storage      services.StorageService
	imagesBucket string
}

func NewImageHandlers(imageRepo repositories.ImageRepository, projectRepo repositories.ProjectRepository, storage services.StorageService, imagesBucket string) *ImageHandlers {
	return &ImageHandlers{
		imageRepo:    imageRepo,
		projectRepo:  projectRepo,
		storage:      storage,
		imagesBucket: imagesBucket,
	}
}

// Upload handles POST /api/images/upload (multipart: image, projectId,
// measurementId?). Two-phase write: object first, row second; the
// object is removed again when the row insert fails.
func (h *ImageHandlers) Upload(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return common.SendValidationError(c, "image", "No file uploaded")
	}

	projectID, err := common.ValidateUUID(c.FormValue("projectId"), "projectId")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.requireProjectAccess(c, projectID, userID); err != nil {
		return err
	}

	var measurementID *uuid.UUID
	measurementPart := "general"
	if raw := c.FormValue("measurementId"); raw != "" {
		id, err := common.ValidateUUID(raw, "measurementId")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		measurementID = &id
		measurementPart = id.String()
	}

	src, err := fileHeader.Open()
	if err != nil {
		return common.SendServerError(c, "Failed to read uploaded file")
	}
	defer src.Close()

	ext := filepath.Ext(fileHeader.Filename)
	objectName := fmt.Sprintf("%s/%s/%d_%s%s", projectID, measurementPart, time.Now().UnixMilli(), uuid.NewString()[:8], ext)

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := h.storage.Upload(ctx, h.imagesBucket, objectName, src, fileHeader.Size, contentType)
	if err != nil {
		log.Printf("Image upload to storage failed: %v", err)
		return common.SendServerError(c, "Failed to store image")
	}

	image := &models.Image{
		ID:            uuid.New(),
		ProjectID:     projectID,
		MeasurementID: measurementID,
		StoragePath:   objectName,
		PublicURL:     url,
		OriginalName:  fileHeader.Filename,
		MimeType:      contentType,
		SizeBytes:     fileHeader.Size,
	}

	if err := h.imageRepo.Create(ctx, image); err != nil {
		log.Printf("Image row insert failed, removing object %s: %v", objectName, err)
		if delErr := h.storage.Delete(ctx, h.imagesBucket, objectName); delErr != nil {
			log.Printf("Compensation delete of %s failed: %v", objectName, delErr)
		}
		return common.SendServerError(c, "Failed to record image")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":  image.ID,
		"url": image.PublicURL,
	})
}

// ListByProject handles GET /api/images/:projectId
func (h *ImageHandlers) ListByProject(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	projectID, err := common.ValidateUUID(c.Param("projectId"), "projectId")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.requireProjectAccess(c, projectID, userID); err != nil {
		return err
	}

	images, err := h.imageRepo.ListByProject(ctx, projectID)
	if err != nil {
		return common.SendServerError(c, "Failed to list images")
	}
	if images == nil {
		images = []*models.Image{}
	}

	return c.JSON(http.StatusOK, images)
}

// Delete handles DELETE /api/images/:id. The object goes first, then
// the row; a stuck object is preferable to a dangling row.
func (h *ImageHandlers) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	imageID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	image, err := h.imageRepo.GetByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.SendNotFoundError(c, "image")
		}
		return common.SendServerError(c, "Failed to load image")
	}

	if err := h.requireProjectAccess(c, image.ProjectID, userID); err != nil {
		return err
	}

	if err := h.storage.Delete(ctx, h.imagesBucket, image.StoragePath); err != nil {
		log.Printf("Failed to remove object %s: %v", image.StoragePath, err)
		return common.SendServerError(c, "Failed to delete image")
	}

	if _, err := h.imageRepo.Delete(ctx, imageID); err != nil {
		return common.SendServerError(c, "Failed to delete image record")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Image deleted successfully",
	})
}

// requireProjectAccess rejects a non-admin caller touching a project
// they do not own. Not-owned reads as not-found.
func (h *ImageHandlers) requireProjectAccess(c echo.Context, projectID, userID uuid.UUID) error {
	ctx := c.Request().Context()

	if role, ok := common.GetRoleFromContext(ctx); ok && role == models.RoleAdmin {
		return nil
	}

	owned, err := h.projectRepo.ExistsForUser(ctx, projectID, userID)
	if err != nil {
		return common.SendServerError(c, "Failed to verify project")
	}
	if !owned {
		return common.SendNotFoundError(c, "project")
	}
	return nil
}
