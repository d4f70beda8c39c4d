package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"medidor/internal/common"
	"medidor/internal/models"
	"medidor/internal/repositories"
	"medidor/internal/services"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

// AdminHandlers serves the backoffice: users, projects, images, stats.
// Every route behind these handlers sits behind the admin middleware,
// which re-verifies the role per request.
type AdminHandlers struct {
	accounts        services.AccountService
	userRepo        repositories.UserRepository
	profileRepo     repositories.ProfileRepository
	projectRepo     repositories.ProjectRepository
	measurementRepo repositories.MeasurementRepository
	imageRepo       repositories.ImageRepository
	statsService    services.StatsService
	storage         services.StorageService
	imagesBucket    string
}

func NewAdminHandlers(
	accounts services.AccountService,
	userRepo repositories.UserRepository,
	profileRepo repositories.ProfileRepository,
	projectRepo repositories.ProjectRepository,
	measurementRepo repositories.MeasurementRepository,
	imageRepo repositories.ImageRepository,
	statsService services.StatsService,
	storage services.StorageService,
	imagesBucket string,
) *AdminHandlers {
	return &AdminHandlers{
		accounts:        accounts,
		userRepo:        userRepo,
		profileRepo:     profileRepo,
		projectRepo:     projectRepo,
		measurementRepo: measurementRepo,
		imageRepo:       imageRepo,
		statsService:    statsService,
		storage:         storage,
		imagesBucket:    imagesBucket,
	}
}

// Stats handles GET /api/admin/stats
func (h *AdminHandlers) Stats(c echo.Context) error {
	stats, err := h.statsService.AdminStats(c.Request().Context())
	if err != nil {
		log.Printf("Failed to compute admin stats: %v", err)
		return common.SendServerError(c, "Failed to load stats")
	}
	return c.JSON(http.StatusOK, stats)
}

// ListUsers handles GET /api/admin/users
func (h *AdminHandlers) ListUsers(c echo.Context) error {
	limit, offset := paginationParams(c, 50)

	users, err := h.userRepo.List(c.Request().Context(), limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list users")
	}
	if users == nil {
		users = []*models.User{}
	}
	return c.JSON(http.StatusOK, users)
}

// CreateUserRequest represents the admin user-creation payload
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

// CreateUser handles POST /api/admin/users
func (h *AdminHandlers) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	if req.Email == "" || req.Password == "" {
		return common.SendValidationError(c, "credentials", "Email and password are required")
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}
	if !models.ValidRole(req.Role) {
		return common.SendValidationError(c, "role", "Role must be admin or user")
	}

	user, err := h.accounts.Create(ctx, req.Email, req.Password, req.FullName, req.Role)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateEmail) {
			return common.SendDuplicateEmailError(c)
		}
		log.Printf("Admin user create failed for %s: %v", req.Email, err)
		return common.SendServerError(c, "Failed to create user")
	}

	return c.JSON(http.StatusCreated, user)
}

// UpdateUserRole handles PUT /api/admin/users/:id/role
func (h *AdminHandlers) UpdateUserRole(c echo.Context) error {
	userID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if !models.ValidRole(req.Role) {
		return common.SendValidationError(c, "role", "Role must be admin or user")
	}

	affected, err := h.userRepo.UpdateRole(c.Request().Context(), userID, req.Role)
	if err != nil {
		return common.SendServerError(c, "Failed to update role")
	}
	if affected == 0 {
		return common.SendNotFoundError(c, "user")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Role updated"})
}

// UpdateUserActive handles PUT /api/admin/users/:id/active
func (h *AdminHandlers) UpdateUserActive(c echo.Context) error {
	userID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	affected, err := h.userRepo.UpdateActive(c.Request().Context(), userID, req.IsActive)
	if err != nil {
		return common.SendServerError(c, "Failed to update user")
	}
	if affected == 0 {
		return common.SendNotFoundError(c, "user")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "User updated"})
}

// UploadUserAvatar handles POST /api/admin/users/:id/avatar
func (h *AdminHandlers) UploadUserAvatar(c echo.Context) error {
	userID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	return uploadAvatarFor(c, userID, h.profileRepo, h.storage, h.imagesBucket)
}

// DeleteUser handles DELETE /api/admin/users/:id. Owned projects,
// measurements and image rows go with the user via the schema cascades.
func (h *AdminHandlers) DeleteUser(c echo.Context) error {
	userID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	affected, err := h.userRepo.Delete(c.Request().Context(), userID)
	if err != nil {
		return common.SendServerError(c, "Failed to delete user")
	}
	if affected == 0 {
		return common.SendNotFoundError(c, "user")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "User deleted"})
}

// ListProjects handles GET /api/admin/projects
func (h *AdminHandlers) ListProjects(c echo.Context) error {
	limit, offset := paginationParams(c, 50)

	projects, err := h.projectRepo.ListAllWithOwner(c.Request().Context(), limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list projects")
	}
	if projects == nil {
		projects = []*models.ProjectWithOwner{}
	}
	return c.JSON(http.StatusOK, projects)
}

// GetProject handles GET /api/admin/projects/:id
func (h *AdminHandlers) GetProject(c echo.Context) error {
	ctx := c.Request().Context()

	projectID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	project, err := h.projectRepo.GetByID(ctx, projectID)
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

// UpdateProjectRequest represents the admin project edit payload
type UpdateProjectRequest struct {
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Location     string  `json:"location"`
	JobType      *string `json:"job_type"`
	Date         *string `json:"date"`
	RailType     *string `json:"rail_type"`
	Observations *string `json:"observations"`
	Status       string  `json:"status"`
}

// UpdateProject handles PUT /api/admin/projects/:id
func (h *AdminHandlers) UpdateProject(c echo.Context) error {
	projectID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req UpdateProjectRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if !models.ValidProjectStatus(req.Status) {
		return common.SendValidationError(c, "status", "Status must be draft, in_progress or completed")
	}

	project := &models.Project{
		ID:           projectID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		Location:     req.Location,
		JobType:      req.JobType,
		Date:         req.Date,
		RailType:     req.RailType,
		Observations: req.Observations,
		Status:       req.Status,
	}

	affected, err := h.projectRepo.AdminUpdate(c.Request().Context(), project)
	if err != nil {
		return common.SendServerError(c, "Failed to update project")
	}
	if affected == 0 {
		return common.SendNotFoundError(c, "project")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Project updated"})
}

// DeleteProject handles DELETE /api/admin/projects/:id
func (h *AdminHandlers) DeleteProject(c echo.Context) error {
	projectID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	affected, err := h.projectRepo.Delete(c.Request().Context(), projectID)
	if err != nil {
		return common.SendServerError(c, "Failed to delete project")
	}
	if affected == 0 {
		return common.SendNotFoundError(c, "project")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Project deleted"})
}

// ListImages handles GET /api/admin/images
func (h *AdminHandlers) ListImages(c echo.Context) error {
	limit, offset := paginationParams(c, 100)

	images, err := h.imageRepo.ListAll(c.Request().Context(), limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list images")
	}
	if images == nil {
		images = []*models.Image{}
	}
	return c.JSON(http.StatusOK, images)
}

// DeleteImage handles DELETE /api/admin/images/:id
func (h *AdminHandlers) DeleteImage(c echo.Context) error {
	ctx := c.Request().Context()

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

	if err := h.storage.Delete(ctx, h.imagesBucket, image.StoragePath); err != nil {
		log.Printf("Failed to remove object %s: %v", image.StoragePath, err)
		return common.SendServerError(c, "Failed to delete image")
	}
	if _, err := h.imageRepo.Delete(ctx, imageID); err != nil {
		return common.SendServerError(c, "Failed to delete image record")
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Image deleted successfully"})
}

func paginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if raw := c.QueryParam("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
