package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/uniboxhq/unibox/internal/link"
	"github.com/uniboxhq/unibox/internal/message"
	"github.com/uniboxhq/unibox/internal/platform"
)

// maxWebhookBody caps inbound webhook payloads.
const maxWebhookBody = 1 << 20

// WebhookHandler terminates platform webhook traffic: the GET subscription
// handshake and POST message delivery.
type WebhookHandler struct {
	registry *platform.Registry
	ingestor message.Ingestor
	resolver link.Resolver
	logger   *slog.Logger
}

func NewWebhookHandler(log *slog.Logger, registry *platform.Registry, ingestor message.Ingestor, resolver link.Resolver) *WebhookHandler {
	return &WebhookHandler{
		registry: registry,
		ingestor: ingestor,
		resolver: resolver,
		logger:   log.With(slog.String("handler", "webhook")),
	}
}

func (h *WebhookHandler) Register(e *echo.Echo) {
	e.GET("/webhook/:platform", h.Verify)
	e.POST("/webhook/:platform", h.Receive)
}

// Verify answers the platform's subscription handshake. All platforms share
// the hub.mode/hub.verify_token/hub.challenge convention.
func (h *WebhookHandler) Verify(c echo.Context) error {
	adapter, err := h.adapter(c)
	if err != nil {
		return err
	}
	challenge := adapter.VerifyWebhook(
		c.QueryParam("hub.mode"),
		c.QueryParam("hub.verify_token"),
		c.QueryParam("hub.challenge"),
	)
	if challenge == "" {
		h.logger.Warn("webhook verification rejected",
			slog.String("platform", adapter.Platform().String()))
		return echo.NewHTTPError(http.StatusForbidden, "verification failed")
	}
	return c.String(http.StatusOK, challenge)
}

// Receive ingests one webhook delivery. Once the platform is known the
// response is always 200: platforms retry non-2xx responses, and a replay of
// something already stored is cheaper than a retry storm. Failures are logged,
// never surfaced.
func (h *WebhookHandler) Receive(c echo.Context) error {
	adapter, err := h.adapter(c)
	if err != nil {
		return err
	}
	p := adapter.Platform()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("read webhook body failed",
			slog.String("platform", p.String()),
			slog.Any("error", err))
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	msg := adapter.ParseWebhook(body)
	if msg == nil {
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	ctx := c.Request().Context()
	ownerID, err := h.resolver.ResolveOwner(ctx, p, msg.RecipientExternalID)
	if err != nil {
		h.logger.Warn("resolve owner failed",
			slog.String("platform", p.String()),
			slog.Any("error", err))
		ownerID = ""
	}

	if _, err := h.ingestor.Ingest(ctx, ownerID, *msg); err != nil {
		// Acknowledge anyway: the platform already delivered, and its next
		// retry would hit the same storage fault.
		h.logger.Error("store webhook message failed",
			slog.String("platform", p.String()),
			slog.String("external_message_id", msg.ExternalMessageID),
			slog.Any("error", err))
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}

func (h *WebhookHandler) adapter(c echo.Context) (platform.Adapter, error) {
	p, err := platform.Parse(c.Param("platform"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	adapter, ok := h.registry.Get(p)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "platform not registered")
	}
	return adapter, nil
}
