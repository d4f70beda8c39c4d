package handlers

import (
	"errors"
	"net/http"

	"medidor/internal/common"
	"medidor/internal/models"
	"medidor/internal/repositories"
	"medidor/internal/services"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

// ProjectHandlers serves the per-user project endpoints and the wizard
// save-complete operation.
type ProjectHandlers struct {
	projectService  services.ProjectService
	projectRepo     repositories.ProjectRepository
	measurementRepo repositories.MeasurementRepository
	imageRepo       repositories.ImageRepository
}

func NewProjectHandlers(projectService services.ProjectService, projectRepo repositories.ProjectRepository, measurementRepo repositories.MeasurementRepository, imageRepo repositories.ImageRepository) *ProjectHandlers {
	return &ProjectHandlers{
		projectService:  projectService,
		projectRepo:     projectRepo,
		measurementRepo: measurementRepo,
		imageRepo:       imageRepo,
	}
}

// ProjectDetailResponse is a project with its measurement and image sets.
type ProjectDetailResponse struct {
	models.Project
	Measurements []*models.Measurement `json:"measurements"`
	Images       []*models.Image       `json:"images"`
}

// ListProjects handles GET /api/projects
func (h *ProjectHandlers) ListProjects(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	projects, err := h.projectRepo.ListByUser(ctx, userID)
	if err != nil {
		return common.SendServerError(c, "Failed to list projects")
	}
	if projects == nil {
		projects = []*models.Project{}
	}

	return c.JSON(http.StatusOK, projects)
}

// GetProject handles GET /api/projects/:id. A project owned by another
// user looks exactly like a missing one.
func (h *ProjectHandlers) GetProject(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	projectID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	project, err := h.projectRepo.GetByIDForUser(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.SendNotFoundError(c, "project")
		}
		return common.SendServerError(c, "Failed to load project")
	}

	measurements, err := h.measurementRepo.ListByProject(ctx, projectID)
	if err != nil {
		return common.SendServerError(c, "Failed to load measurements")
	}
	images, err := h.imageRepo.ListByProject(ctx, projectID)
	if err != nil {
		return common.SendServerError(c, "Failed to load images")
	}

	if measurements == nil {
		measurements = []*models.Measurement{}
	}
	if images == nil {
		images = []*models.Image{}
	}

	return c.JSON(http.StatusOK, ProjectDetailResponse{
		Project:      *project,
		Measurements: measurements,
		Images:       images,
	})
}

// SaveComplete handles POST /api/projects/save-complete, the wizard's
// single persistence call: header plus the full measurement snapshot.
func (h *ProjectHandlers) SaveComplete(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req services.SaveCompleteInput
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	projectID, created, err := h.projectService.SaveComplete(ctx, userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrProjectNotFound) {
			return common.SendNotFoundError(c, "project")
		}
		return common.SendServerError(c, "Failed to save project")
	}

	status := http.StatusOK
	message := "Project updated"
	if created {
		status = http.StatusCreated
		message = "Project saved successfully"
	}

	return c.JSON(status, map[string]interface{}{
		"message":   message,
		"projectId": projectID,
	})
}

// DeleteProject handles DELETE /api/projects/:id
func (h *ProjectHandlers) DeleteProject(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	projectID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	affected, err := h.projectRepo.DeleteForUser(ctx, projectID, userID)
	if err != nil {
		return common.SendServerError(c, "Failed to delete project")
	}
	if affected == 0 {
		return common.SendNotFoundError(c, "project")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Project deleted",
	})
}
