package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/uniboxhq/unibox/internal/activity"
)

// ActivityHandler exposes the per-user audit trail.
type ActivityHandler struct {
	activity *activity.Service
	logger   *slog.Logger
}

func NewActivityHandler(log *slog.Logger, activityService *activity.Service) *ActivityHandler {
	return &ActivityHandler{
		activity: activityService,
		logger:   log.With(slog.String("handler", "activity")),
	}
}

func (h *ActivityHandler) Register(e *echo.Echo) {
	e.GET("/api/activity/:userId", h.List)
}

func (h *ActivityHandler) List(c echo.Context) error {
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		return failure(c, http.StatusBadRequest, "user id is required")
	}
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 32)

	entries, err := h.activity.ListForUser(c.Request().Context(), userID, int32(limit))
	if err != nil {
		h.logger.Error("list activity failed", slog.String("user_id", userID), slog.Any("error", err))
		return failure(c, http.StatusInternalServerError, "list activity failed")
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	return success(c, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
