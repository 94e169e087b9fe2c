package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/uniboxhq/unibox/internal/activity"
	"github.com/uniboxhq/unibox/internal/dispatch"
	"github.com/uniboxhq/unibox/internal/link"
	"github.com/uniboxhq/unibox/internal/message"
	"github.com/uniboxhq/unibox/internal/platform"
)

// Dispatcher is the slice of the dispatch service the handler needs.
type Dispatcher interface {
	Send(ctx context.Context, platformName string, req dispatch.SendRequest) (message.PersistedMessage, error)
}

// SendHandler exposes outbound message dispatch.
type SendHandler struct {
	dispatcher Dispatcher
	activity   activity.Recorder
	logger     *slog.Logger
}

func NewSendHandler(log *slog.Logger, dispatcher Dispatcher, recorder activity.Recorder) *SendHandler {
	return &SendHandler{
		dispatcher: dispatcher,
		activity:   recorder,
		logger:     log.With(slog.String("handler", "send")),
	}
}

func (h *SendHandler) Register(e *echo.Echo) {
	e.POST("/api/send/:platform", h.Send)
}

func (h *SendHandler) Send(c echo.Context) error {
	platformName := c.Param("platform")
	var req dispatch.SendRequest
	if err := c.Bind(&req); err != nil {
		return failure(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return failure(c, http.StatusBadRequest, err.Error())
	}

	stored, err := h.dispatcher.Send(c.Request().Context(), platformName, req)
	if err != nil {
		return h.sendError(c, err)
	}

	if h.activity != nil {
		h.activity.Record(c.Request().Context(), req.UserID, activity.ActionSend, platformName, "to="+req.Recipient())
	}
	return success(c, http.StatusOK, stored)
}

func (h *SendHandler) sendError(c echo.Context, err error) error {
	var upstream *platform.UpstreamSendError
	switch {
	case errors.Is(err, platform.ErrUnsupported):
		return failure(c, http.StatusNotFound, err.Error())
	case errors.Is(err, link.ErrNotConnected):
		return failure(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, dispatch.ErrNoRecipient), errors.Is(err, dispatch.ErrEmptyMessage):
		return failure(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &upstream):
		h.logger.Warn("upstream rejected send",
			slog.String("platform", upstream.Platform.String()),
			slog.Int("status", upstream.StatusCode))
		return failure(c, http.StatusBadGateway, upstream.Error())
	default:
		h.logger.Error("send failed", slog.Any("error", err))
		return failure(c, http.StatusInternalServerError, "send failed")
	}
}
