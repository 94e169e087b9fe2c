// Package facebook adapts the Facebook Messenger Platform (Meta Graph) to the
// unified platform interfaces.
package facebook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/uniboxhq/unibox/internal/config"
	"github.com/uniboxhq/unibox/internal/platform"
	"github.com/uniboxhq/unibox/internal/platform/adapters/graph"
)

// Adapter implements platform.Adapter and platform.Sender for Facebook
// Messenger.
type Adapter struct {
	logger *slog.Logger
	cfg    config.MetaAppConfig
	client *graph.Client
}

// New creates a Facebook adapter from the given configuration.
func New(log *slog.Logger, cfg config.MetaAppConfig, timeout time.Duration) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		logger: log.With(slog.String("adapter", "facebook")),
		cfg:    cfg,
		client: graph.NewClient(cfg.BaseURL, timeout),
	}
}

// Platform returns the Facebook platform identifier.
func (a *Adapter) Platform() platform.Platform {
	return platform.Facebook
}

// ParseWebhook normalizes a Messenger webhook delivery. Non-message events
// yield nil.
func (a *Adapter) ParseWebhook(payload []byte) *platform.NormalizedMessage {
	return graph.ParseMessengerWebhook(platform.Facebook, payload)
}

// VerifyWebhook answers the Meta subscription handshake.
func (a *Adapter) VerifyWebhook(mode, token, challenge string) string {
	if mode == "subscribe" && token != "" && token == a.cfg.VerifyToken {
		return challenge
	}
	return ""
}

type sendResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

// SendMessage sends a text message through the Send API. Messenger
// authenticates with a page access token passed as a query parameter.
func (a *Adapter) SendMessage(ctx context.Context, accessToken, recipient, text string) (platform.SendResult, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		token = a.cfg.AccessToken
	}
	body := map[string]any{
		"recipient": map[string]string{"id": recipient},
		"message":   map[string]string{"text": text},
	}
	resp, err := a.client.PostJSON(ctx, "me/messages", url.Values{"access_token": {token}}, "", body)
	if err != nil {
		return platform.SendResult{}, &platform.UpstreamSendError{Platform: platform.Facebook, Err: err}
	}
	if !resp.OK() {
		return platform.SendResult{}, &platform.UpstreamSendError{
			Platform:   platform.Facebook,
			StatusCode: resp.StatusCode,
			Body:       string(resp.Body),
		}
	}
	result := platform.SendResult{Raw: resp.Body}
	var parsed sendResponse
	if err := json.Unmarshal(resp.Body, &parsed); err == nil {
		result.ExternalMessageID = parsed.MessageID
	}
	return result, nil
}
