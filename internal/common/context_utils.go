package common

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RoleKey   contextKey = "role"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// SendClientError sends a client error response
func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("CLIENT_ERROR", message, nil))
}

// SendDuplicateEmailError sends the duplicate-registration error. The
// original surface reported this as a 400 with a specific message, so
// the code keeps that status rather than 409.
func SendDuplicateEmailError(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("DUPLICATE_EMAIL", "Email is already registered", nil))
}

// SendServerError sends a server error response. Internal detail stays
// in the logs; clients only get the generic message.
func SendServerError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", message, nil))
}

// SendNotFoundError sends a not found error response
func SendNotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", fmt.Sprintf("%s not found", resource), nil))
}

// SendUnauthorizedError sends an unauthorized error response
func SendUnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, CreateErrorResponse("UNAUTHORIZED", "Unauthorized access", nil))
}

// SendForbiddenError sends a forbidden error response
func SendForbiddenError(c echo.Context) error {
	return c.JSON(http.StatusForbidden, CreateErrorResponse("FORBIDDEN", "Insufficient permissions", nil))
}

// ValidateUUID validates UUID format
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%s is required", fieldName)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s is not a valid UUID", fieldName)
	}

	return id, nil
}

// ValidateRequiredString validates required string fields
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// SafeString safely handles string pointer operations
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SafeFloat64 safely handles float64 pointer operations
func SafeFloat64(f *float64) float64 {
	if f == nil {
		return 0.0
	}
	return *f
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetRoleFromContext extracts the caller role from the request context
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}
