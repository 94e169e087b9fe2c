package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/uniboxhq/unibox/internal/accounts"
	"github.com/uniboxhq/unibox/internal/activity"
	"github.com/uniboxhq/unibox/internal/auth"
)

// AuthHandler exposes account registration, login, and password reset.
type AuthHandler struct {
	accounts *accounts.Service
	activity activity.Recorder
	logger   *slog.Logger
}

func NewAuthHandler(log *slog.Logger, accountService *accounts.Service, recorder activity.Recorder) *AuthHandler {
	return &AuthHandler{
		accounts: accountService,
		activity: recorder,
		logger:   log.With(slog.String("handler", "auth")),
	}
}

func (h *AuthHandler) Register(e *echo.Echo) {
	g := e.Group("/api/auth")
	g.POST("/register", h.RegisterUser)
	g.POST("/login", h.Login)
	g.POST("/reset-password", h.RequestReset)
	g.POST("/reset-password/confirm", h.ConfirmReset)
	g.POST("/verify-email", h.VerifyEmail)

	// Outside the /api/auth group so the JWT middleware guards it.
	e.GET("/api/me", h.Me)
}

// Me returns the account of the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := auth.UserIDFromContext(c)
	if err != nil {
		return err
	}
	user, err := h.accounts.GetByID(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("load profile failed", slog.String("user_id", userID), slog.Any("error", err))
		return failure(c, http.StatusInternalServerError, "load profile failed")
	}
	return success(c, http.StatusOK, user)
}

func (h *AuthHandler) RegisterUser(c echo.Context) error {
	var req accounts.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return failure(c, http.StatusBadRequest, err.Error())
	}

	user, err := h.accounts.Register(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, accounts.ErrEmailTaken) {
			return failure(c, http.StatusConflict, err.Error())
		}
		h.logger.Error("register failed", slog.Any("error", err))
		return failure(c, http.StatusInternalServerError, "registration failed")
	}
	return success(c, http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req accounts.LoginRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return failure(c, http.StatusBadRequest, err.Error())
	}

	session, err := h.accounts.Login(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			return failure(c, http.StatusUnauthorized, err.Error())
		}
		h.logger.Error("login failed", slog.Any("error", err))
		return failure(c, http.StatusInternalServerError, "login failed")
	}
	return success(c, http.StatusOK, session)
}

func (h *AuthHandler) RequestReset(c echo.Context) error {
	var req accounts.ResetRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return failure(c, http.StatusBadRequest, err.Error())
	}

	if err := h.accounts.RequestReset(c.Request().Context(), req); err != nil {
		h.logger.Error("request reset failed", slog.Any("error", err))
		return failure(c, http.StatusInternalServerError, "reset request failed")
	}
	// Uniform response regardless of whether the email exists.
	return success(c, http.StatusOK, map[string]string{"status": "reset email sent if account exists"})
}

func (h *AuthHandler) ConfirmReset(c echo.Context) error {
	var req accounts.ResetConfirmRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return failure(c, http.StatusBadRequest, err.Error())
	}

	if err := h.accounts.ConfirmReset(c.Request().Context(), req); err != nil {
		if errors.Is(err, accounts.ErrInvalidOTP) {
			return failure(c, http.StatusBadRequest, err.Error())
		}
		h.logger.Error("confirm reset failed", slog.Any("error", err))
		return failure(c, http.StatusInternalServerError, "reset failed")
	}
	return success(c, http.StatusOK, map[string]string{"status": "password updated"})
}

type verifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return failure(c, http.StatusBadRequest, err.Error())
	}

	if err := h.accounts.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return failure(c, http.StatusBadRequest, "invalid or expired token")
	}
	return success(c, http.StatusOK, map[string]string{"status": "email verified"})
}
