// Package whatsapp adapts the WhatsApp Cloud API (Meta Graph) to the unified
// platform interfaces.
package whatsapp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/uniboxhq/unibox/internal/config"
	"github.com/uniboxhq/unibox/internal/platform"
	"github.com/uniboxhq/unibox/internal/platform/adapters/graph"
)

// Adapter implements platform.Adapter and platform.Sender for WhatsApp.
type Adapter struct {
	logger *slog.Logger
	cfg    config.WhatsAppConfig
	client *graph.Client
}

// New creates a WhatsApp adapter from the given configuration.
func New(log *slog.Logger, cfg config.WhatsAppConfig, timeout time.Duration) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		logger: log.With(slog.String("adapter", "whatsapp")),
		cfg:    cfg,
		client: graph.NewClient(cfg.BaseURL, timeout),
	}
}

// Platform returns the WhatsApp platform identifier.
func (a *Adapter) Platform() platform.Platform {
	return platform.WhatsApp
}

type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Contacts []struct {
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []webhookMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Image *webhookMedia `json:"image"`
	Video *webhookMedia `json:"video"`
	Audio *webhookMedia `json:"audio"`
}

type webhookMedia struct {
	ID      string `json:"id"`
	Caption string `json:"caption"`
}

// ParseWebhook extracts the first message from a Cloud API webhook delivery.
// Status updates and receipts carry no messages array and yield nil.
func (a *Adapter) ParseWebhook(payload []byte) *platform.NormalizedMessage {
	var body webhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		a.logger.Debug("webhook payload not parseable", slog.Any("error", err))
		return nil
	}
	if len(body.Entry) == 0 || len(body.Entry[0].Changes) == 0 {
		return nil
	}
	value := body.Entry[0].Changes[0].Value
	if len(value.Messages) == 0 {
		return nil
	}
	msg := value.Messages[0]

	senderName := platform.UnknownSender
	if len(value.Contacts) > 0 && strings.TrimSpace(value.Contacts[0].Profile.Name) != "" {
		senderName = value.Contacts[0].Profile.Name
	}

	// Cloud API timestamps are epoch seconds as a string.
	var occurredAt time.Time
	if secs, err := strconv.ParseInt(msg.Timestamp, 10, 64); err == nil {
		occurredAt = time.Unix(secs, 0).UTC()
	} else {
		occurredAt = time.Now().UTC()
	}

	contentType := platform.ContentText
	mediaRef := ""
	text := ""
	switch {
	case msg.Image != nil:
		contentType = platform.ContentImage
		mediaRef = msg.Image.ID
		text = msg.Image.Caption
	case msg.Video != nil:
		contentType = platform.ContentVideo
		mediaRef = msg.Video.ID
		text = msg.Video.Caption
	case msg.Audio != nil:
		contentType = platform.ContentAudio
		mediaRef = msg.Audio.ID
	default:
		if msg.Text != nil {
			text = msg.Text.Body
		}
	}

	return &platform.NormalizedMessage{
		Platform:            platform.WhatsApp,
		ExternalMessageID:   msg.ID,
		SenderExternalID:    msg.From,
		SenderDisplayName:   senderName,
		RecipientExternalID: value.Metadata.PhoneNumberID,
		ContentText:         text,
		ContentType:         contentType,
		MediaRef:            mediaRef,
		OccurredAt:          occurredAt,
	}
}

// VerifyWebhook answers the Meta subscription handshake.
func (a *Adapter) VerifyWebhook(mode, token, challenge string) string {
	if mode == "subscribe" && token != "" && token == a.cfg.VerifyToken {
		return challenge
	}
	return ""
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendMessage sends a text message through the Cloud API. The platform-link
// token takes precedence over the app-level token from configuration.
func (a *Adapter) SendMessage(ctx context.Context, accessToken, recipient, text string) (platform.SendResult, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		token = a.cfg.AccessToken
	}
	body := map[string]any{
		"messaging_product": "whatsapp",
		"to":                recipient,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	resp, err := a.client.PostJSON(ctx, a.cfg.PhoneNumberID+"/messages", url.Values{}, token, body)
	if err != nil {
		return platform.SendResult{}, &platform.UpstreamSendError{Platform: platform.WhatsApp, Err: err}
	}
	if !resp.OK() {
		return platform.SendResult{}, &platform.UpstreamSendError{
			Platform:   platform.WhatsApp,
			StatusCode: resp.StatusCode,
			Body:       string(resp.Body),
		}
	}
	result := platform.SendResult{Raw: resp.Body}
	var parsed sendResponse
	if err := json.Unmarshal(resp.Body, &parsed); err == nil && len(parsed.Messages) > 0 {
		result.ExternalMessageID = parsed.Messages[0].ID
	}
	return result, nil
}
