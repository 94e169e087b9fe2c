package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/uniboxhq/unibox/internal/activity"
	"github.com/uniboxhq/unibox/internal/link"
	"github.com/uniboxhq/unibox/internal/platform"
)

// PlatformsHandler manages platform link connect and disconnect.
type PlatformsHandler struct {
	links    *link.Service
	activity activity.Recorder
	logger   *slog.Logger
}

func NewPlatformsHandler(log *slog.Logger, links *link.Service, recorder activity.Recorder) *PlatformsHandler {
	return &PlatformsHandler{
		links:    links,
		activity: recorder,
		logger:   log.With(slog.String("handler", "platforms")),
	}
}

func (h *PlatformsHandler) Register(e *echo.Echo) {
	e.POST("/api/connect-platform", h.Connect)
	e.POST("/api/disconnect-platform", h.Disconnect)
}

func (h *PlatformsHandler) Connect(c echo.Context) error {
	var req link.ConnectRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return failure(c, http.StatusBadRequest, err.Error())
	}

	l, err := h.links.Connect(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, platform.ErrUnsupported) {
			return failure(c, http.StatusBadRequest, err.Error())
		}
		h.logger.Error("connect platform failed", slog.Any("error", err))
		return failure(c, http.StatusInternalServerError, "connect failed")
	}
	if h.activity != nil {
		h.activity.Record(c.Request().Context(), req.UserID, activity.ActionConnect, req.PlatformName, "")
	}
	return success(c, http.StatusOK, l)
}

type disconnectRequest struct {
	UserID       string `json:"userId" validate:"required,uuid"`
	PlatformName string `json:"platformName" validate:"required"`
}

func (h *PlatformsHandler) Disconnect(c echo.Context) error {
	var req disconnectRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return failure(c, http.StatusBadRequest, err.Error())
	}
	p, err := platform.Parse(req.PlatformName)
	if err != nil {
		return failure(c, http.StatusBadRequest, err.Error())
	}

	if err := h.links.Disconnect(c.Request().Context(), req.UserID, p); err != nil {
		if errors.Is(err, link.ErrNotConnected) {
			return failure(c, http.StatusBadRequest, err.Error())
		}
		h.logger.Error("disconnect platform failed", slog.Any("error", err))
		return failure(c, http.StatusInternalServerError, "disconnect failed")
	}
	if h.activity != nil {
		h.activity.Record(c.Request().Context(), req.UserID, activity.ActionDisconnect, req.PlatformName, "")
	}
	return success(c, http.StatusOK, map[string]string{"status": "disconnected"})
}
