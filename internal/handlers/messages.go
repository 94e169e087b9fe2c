package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/uniboxhq/unibox/internal/media"
	"github.com/uniboxhq/unibox/internal/message"
	"github.com/uniboxhq/unibox/internal/platform"
)

// InboxReader is the slice of the inbox service the handler needs.
type InboxReader interface {
	List(ctx context.Context, userID, rawPlatforms string) ([]message.PersistedMessage, error)
}

// MediaStore is the slice of the media service the handler needs.
type MediaStore interface {
	ResolveURL(ctx context.Context, p platform.Platform, mediaRef string) (string, error)
	ListForMessage(ctx context.Context, messageID string) ([]media.File, error)
	MarkDownloaded(ctx context.Context, fileID string) error
}

// MessagesHandler exposes the unified inbox read and media file access.
type MessagesHandler struct {
	inbox  InboxReader
	media  MediaStore
	logger *slog.Logger
}

func NewMessagesHandler(log *slog.Logger, inbox InboxReader, mediaStore MediaStore) *MessagesHandler {
	return &MessagesHandler{
		inbox:  inbox,
		media:  mediaStore,
		logger: log.With(slog.String("handler", "messages")),
	}
}

func (h *MessagesHandler) Register(e *echo.Echo) {
	e.GET("/api/messages/:userId", h.List)
	e.GET("/api/media/:platform", h.ResolveMedia)
	e.GET("/api/media/files/:id", h.ListMedia)
	e.POST("/api/media/files/:id/downloaded", h.MarkMediaDownloaded)
}

// List returns the unified inbox for a user as a plain JSON array, newest
// first. An optional platforms query parameter narrows the view, e.g.
// ?platforms=whatsapp,telegram.
func (h *MessagesHandler) List(c echo.Context) error {
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		return failure(c, http.StatusBadRequest, "user id is required")
	}

	msgs, err := h.inbox.List(c.Request().Context(), userID, c.QueryParam("platforms"))
	if err != nil {
		if errors.Is(err, platform.ErrUnsupported) {
			return failure(c, http.StatusBadRequest, err.Error())
		}
		h.logger.Error("list inbox failed", slog.String("user_id", userID), slog.Any("error", err))
		return failure(c, http.StatusInternalServerError, "list messages failed")
	}
	return c.JSON(http.StatusOK, msgs)
}

// ResolveMedia turns a stored media reference into a currently fetchable URL.
func (h *MessagesHandler) ResolveMedia(c echo.Context) error {
	p, err := platform.Parse(c.Param("platform"))
	if err != nil {
		return failure(c, http.StatusNotFound, err.Error())
	}
	ref := strings.TrimSpace(c.QueryParam("ref"))
	if ref == "" {
		return failure(c, http.StatusBadRequest, "media ref is required")
	}
	url, err := h.media.ResolveURL(c.Request().Context(), p, ref)
	if err != nil {
		h.logger.Warn("resolve media failed", slog.String("platform", p.String()), slog.Any("error", err))
		return failure(c, http.StatusBadGateway, "media resolution failed")
	}
	return success(c, http.StatusOK, map[string]string{"url": url})
}

// ListMedia returns the media files recorded for a message.
func (h *MessagesHandler) ListMedia(c echo.Context) error {
	messageID := c.Param("id")
	if err := uuid.Validate(messageID); err != nil {
		return failure(c, http.StatusBadRequest, "invalid message id")
	}
	files, err := h.media.ListForMessage(c.Request().Context(), messageID)
	if err != nil {
		h.logger.Error("list media failed", slog.String("message_id", messageID), slog.Any("error", err))
		return failure(c, http.StatusInternalServerError, "list media failed")
	}
	if files == nil {
		files = []media.File{}
	}
	return success(c, http.StatusOK, files)
}

// MarkMediaDownloaded flags a media file as fetched by a client.
func (h *MessagesHandler) MarkMediaDownloaded(c echo.Context) error {
	fileID := c.Param("id")
	if err := uuid.Validate(fileID); err != nil {
		return failure(c, http.StatusBadRequest, "invalid media file id")
	}
	if err := h.media.MarkDownloaded(c.Request().Context(), fileID); err != nil {
		if errors.Is(err, media.ErrFileNotFound) {
			return failure(c, http.StatusNotFound, err.Error())
		}
		h.logger.Error("mark downloaded failed", slog.String("file_id", fileID), slog.Any("error", err))
		return failure(c, http.StatusInternalServerError, "update failed")
	}
	return success(c, http.StatusOK, map[string]string{"status": "downloaded"})
}
