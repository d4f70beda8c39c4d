package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"medidor/internal/common"
	"medidor/internal/models"
	"medidor/internal/repositories"
	"medidor/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandlers handles registration, login and the current-user lookup.
type AuthHandlers struct {
	accounts    services.AccountService
	userRepo    repositories.UserRepository
	profileRepo repositories.ProfileRepository
	jwtSecret   string
	jwtExpiry   time.Duration
}

func NewAuthHandlers(accounts services.AccountService, userRepo repositories.UserRepository, profileRepo repositories.ProfileRepository, jwtSecret string, jwtExpiry time.Duration) *AuthHandlers {
	return &AuthHandlers{
		accounts:    accounts,
		userRepo:    userRepo,
		profileRepo: profileRepo,
		jwtSecret:   jwtSecret,
		jwtExpiry:   jwtExpiry,
	}
}

// RegisterRequest represents the registration payload
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

// Register handles POST /api/auth/register
func (h *AuthHandlers) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	if req.Email == "" || req.Password == "" {
		return common.SendValidationError(c, "credentials", "Email and password are required")
	}

	user, err := h.accounts.Create(ctx, req.Email, req.Password, req.FullName, models.RoleUser)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateEmail) {
			return common.SendDuplicateEmailError(c)
		}
		log.Printf("Failed to create user %s: %v", req.Email, err)
		return common.SendServerError(c, "Failed to create user")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "User created successfully",
		"id":      user.ID,
	})
}

// LoginRequest represents the login payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login. Unknown email, wrong password and
// a deactivated account are indistinguishable to the caller.
func (h *AuthHandlers) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	if req.Email == "" || req.Password == "" {
		return common.SendValidationError(c, "credentials", "Email and password are required")
	}

	user, err := h.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
		}
		return common.SendServerError(c, "Login failed")
	}

	if !user.IsActive {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	token, err := h.signToken(user)
	if err != nil {
		return common.SendServerError(c, "Failed to generate token")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// Me handles GET /api/auth/me
func (h *AuthHandlers) Me(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.SendNotFoundError(c, "user")
		}
		return common.SendServerError(c, "Failed to load user")
	}

	response := map[string]interface{}{
		"id":    user.ID,
		"email": user.Email,
		"role":  user.Role,
	}

	// Profile row may be missing for accounts created before profiles
	// existed; the user payload still goes out.
	if profile, err := h.profileRepo.GetByUserID(ctx, userID); err == nil {
		response["full_name"] = profile.FullName
		response["avatar_url"] = profile.AvatarURL
		response["phone"] = profile.Phone
		response["company"] = profile.Company
	}

	return c.JSON(http.StatusOK, response)
}

func (h *AuthHandlers) signToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(h.jwtExpiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
