package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/session-service/internal/api/dto"
	"github.com/spec-kit/session-service/internal/auth"
	"github.com/spec-kit/session-service/internal/repository"
	"github.com/spec-kit/session-service/internal/service"
	apperrors "github.com/spec-kit/session-service/pkg/util"
)

const bearerTokenType = "Bearer"

// AuthHandler exposes the session endpoints.
type AuthHandler struct {
	sessions *service.SessionService
	logger   *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(sessions *service.SessionService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, logger: logger}
}

// SignIn handles POST /api/auth/signin.
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username and password required")
	}

	result, err := h.sessions.SignIn(c.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrAuthenticationFailed) {
			// Deliberately vague; do not reveal which field was wrong.
			return apperrors.NewUnauthorized("invalid username or password")
		}
		return apperrors.MapError(err)
	}

	return c.JSON(dto.JwtResponse{
		AccessToken:  result.AccessToken,
		TokenType:    bearerTokenType,
		ExpiresAt:    result.AccessExpiresAt,
		RefreshToken: result.RefreshToken,
		ID:           result.UserID,
		Username:     result.Username,
		Email:        result.Email,
		Roles:        result.Roles,
	})
}

// SignUp handles POST /api/auth/signup.
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username, email, password required")
	}

	if _, err := h.sessions.SignUp(c.Context(), req.Username, req.Email, req.Password, req.Roles); err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			return apperrors.NewValidationError("username is already taken", nil)
		case errors.Is(err, service.ErrEmailTaken):
			return apperrors.NewValidationError("email is already in use", nil)
		case errors.Is(err, service.ErrRoleNotFound):
			return apperrors.NewDomainError("ROLE_NOT_FOUND", "role is not found", http.StatusInternalServerError, nil)
		default:
			return apperrors.MapError(err)
		}
	}

	return c.JSON(dto.MessageResponse{Message: "User registered successfully!"})
}

// RefreshToken handles POST /api/auth/refreshtoken.
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req dto.TokenRefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.RefreshToken == "" {
		return fiber.NewError(http.StatusBadRequest, "refreshToken required")
	}

	result, err := h.sessions.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRefreshTokenNotFound):
			h.logger.Warn("refresh token not found")
			return apperrors.NewForbidden("invalid refresh token, please sign in again")
		case errors.Is(err, repository.ErrRefreshTokenExpired):
			h.logger.Warn("refresh token expired")
			return apperrors.NewForbidden("invalid refresh token, please sign in again")
		default:
			return apperrors.MapError(err)
		}
	}

	return c.JSON(dto.TokenRefreshResponse{
		AccessToken:  result.AccessToken,
		TokenType:    bearerTokenType,
		ExpiresAt:    result.AccessExpiresAt,
		RefreshToken: result.RefreshToken,
	})
}

// SignOut handles POST /api/auth/signout. The caller's identity comes from
// the bearer token, never from the request body.
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}

	if _, err := h.sessions.SignOut(c.Context(), principal.User); err != nil {
		return apperrors.MapError(err)
	}

	return c.JSON(dto.MessageResponse{Message: "Log out successful!"})
}
