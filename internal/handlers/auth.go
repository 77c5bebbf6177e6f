package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/budpal/backend/internal/auth"
	"example.com/budpal/backend/internal/identity"
	"example.com/budpal/backend/internal/models"
)

type AuthHandler struct {
	Identity *identity.Service
}

// NewAuthHandler создает обработчик авторизации.
func NewAuthHandler(service *identity.Service) *AuthHandler {
	return &AuthHandler{Identity: service}
}

type RegisterRequest struct {
	Email    string  `json:"email" validate:"required"`
	Password string  `json:"password" validate:"required"`
	Name     *string `json:"name" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthUser struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  *string   `json:"name,omitempty"`
}

type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
	User         AuthUser `json:"user"`
}

type UserResponse struct {
	User AuthUser `json:"user"`
}

// Register регистрирует пользователя и выдает токены.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	session, err := h.Identity.Register(c.Request().Context(), req.Email, req.Password, req.Name)
	if err != nil {
		return respondIdentityError(c, err)
	}

	return c.JSON(http.StatusCreated, toAuthResponse(session))
}

// Login выполняет вход и выдает токены.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	session, err := h.Identity.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondIdentityError(c, err)
	}

	return c.JSON(http.StatusOK, toAuthResponse(session))
}

// Refresh обновляет токены по refresh-токену.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	session, err := h.Identity.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return respondIdentityError(c, err)
	}

	return c.JSON(http.StatusOK, toAuthResponse(session))
}

// Logout отзывает refresh-токен и сбрасывает состояние пользователя.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	if err := h.Identity.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return respondIdentityError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// Me возвращает данные текущего пользователя.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c, "invalid credentials")
	}

	user, err := h.Identity.Me(c.Request().Context(), userID)
	if err != nil {
		return respondIdentityError(c, err)
	}

	return c.JSON(http.StatusOK, UserResponse{User: toAuthUser(user)})
}

func respondIdentityError(c echo.Context, err error) error {
	var idErr *identity.Error
	if !errors.As(err, &idErr) {
		slog.ErrorContext(c.Request().Context(), "identity call failed", slog.String("error", err.Error()))
		return serverError(c)
	}

	switch idErr {
	case identity.ErrEmailInUse:
		return conflict(c, idErr.Message)
	case identity.ErrInvalidEmail, identity.ErrWeakPassword:
		return badRequest(c, idErr.Message)
	case identity.ErrUserNotFound:
		return notFound(c, idErr.Message)
	default:
		return unauthorized(c, idErr.Message)
	}
}

func toAuthResponse(session identity.Session) AuthResponse {
	return AuthResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    int64(time.Until(session.AccessExpiresAt).Seconds()),
		User:         toAuthUser(session.User),
	}
}

func toAuthUser(user models.User) AuthUser {
	return AuthUser{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	}
}
