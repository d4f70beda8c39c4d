package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"medidor/internal/common"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// JWTMiddleware validates bearer tokens and stores the caller's id and
// token role in the request context. With a JWKS URL configured the
// tokens are verified against the remote key set (hosted auth
// deployments); otherwise against the local HS256 secret.
func JWTMiddleware(jwtSecret, jwksURL string) (echo.MiddlewareFunc, error) {
	keyFn := func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	}

	if jwksURL != "" {
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
			RefreshInterval: time.Hour,
			RefreshErrorHandler: func(err error) {
				log.Printf("JWKS refresh failed: %v", err)
			},
		})
		if err != nil {
			return nil, err
		}
		keyFn = jwks.Keyfunc
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token format")
			}

			token, err := jwt.Parse(tokenString, keyFn)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid claims")
			}

			sub, ok := claims["sub"].(string)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing user id in token")
			}

			userID, err := uuid.Parse(sub)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid user id format")
			}

			role, _ := claims["role"].(string)

			ctx := context.WithValue(c.Request().Context(), common.UserIDKey, userID)
			ctx = context.WithValue(ctx, common.RoleKey, role)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}, nil
}
