package middleware

import (
	"context"
	"errors"
	"net/http"

	"medidor/internal/common"
	"medidor/internal/models"
	"medidor/internal/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

// AdminMiddleware gates the backoffice routes. The role is re-read from
// the users table on every request, never taken from the token: a role
// revoked mid-session takes effect on the very next call.
type AdminMiddleware struct {
	users repositories.UserRepository
}

func NewAdminMiddleware(users repositories.UserRepository) *AdminMiddleware {
	return &AdminMiddleware{users: users}
}

func (m *AdminMiddleware) RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			userID, ok := common.GetUserIDFromContext(ctx)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
			}

			role, active, err := m.users.GetAuthState(ctx, userID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return echo.NewHTTPError(http.StatusUnauthorized, "User not found")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, "Error checking permissions")
			}
			if !active || role != models.RoleAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
			}

			// Downstream handlers see the database role, not the claim.
			c.SetRequest(c.Request().WithContext(context.WithValue(ctx, common.RoleKey, role)))

			return next(c)
		}
	}
}
