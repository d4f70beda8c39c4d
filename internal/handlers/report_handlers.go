package handlers

import (
	"log"
	"net/http"

	"medidor/internal/common"
	"medidor/internal/models"
	"medidor/internal/repositories"
	"medidor/internal/services"

	"github.com/labstack/echo/v4"
)

// ReportHandlers triggers report generation and email delivery.
type ReportHandlers struct {
	reportService services.ReportService
	projectRepo   repositories.ProjectRepository
}

func NewReportHandlers(reportService services.ReportService, projectRepo repositories.ProjectRepository) *ReportHandlers {
	return &ReportHandlers{
		reportService: reportService,
		projectRepo:   projectRepo,
	}
}

// SendEmailRequest represents the optional delivery address
type SendEmailRequest struct {
	EmailTo *string `json:"emailTo"`
}

// GenerateAndSend handles POST /api/pdf/:id/send-email
func (h *ReportHandlers) GenerateAndSend(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	projectID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	// Owner or admin only; anyone else sees not-found.
	if role, _ := common.GetRoleFromContext(ctx); role != models.RoleAdmin {
		owned, err := h.projectRepo.ExistsForUser(ctx, projectID, userID)
		if err != nil {
			return common.SendServerError(c, "Failed to verify project")
		}
		if !owned {
			return common.SendNotFoundError(c, "project")
		}
	}

	var req SendEmailRequest
	if err := c.Bind(&req); err != nil {
		// Body is optional; an empty or malformed one means no email.
		req.EmailTo = nil
	}

	url, err := h.reportService.GenerateAndSend(ctx, projectID, common.SafeString(req.EmailTo))
	if err != nil {
		log.Printf("Report generation for project %s failed: %v", projectID, err)
		return common.SendServerError(c, "Failed to generate report")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Report generated successfully",
		"url":     url,
	})
}
