// Package instagram adapts Instagram messaging (Meta Graph) to the unified
// platform interfaces.
package instagram

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

// Adapter implements platform.Adapter, platform.Sender, and platform.Puller
// for Instagram messaging.
type Adapter struct {
	logger *slog.Logger
	cfg    config.MetaAppConfig
	client *graph.Client
}

// New creates an Instagram adapter from the given configuration.
func New(log *slog.Logger, cfg config.MetaAppConfig, timeout time.Duration) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		logger: log.With(slog.String("adapter", "instagram")),
		cfg:    cfg,
		client: graph.NewClient(cfg.BaseURL, timeout),
	}
}

// Platform returns the Instagram platform identifier.
func (a *Adapter) Platform() platform.Platform {
	return platform.Instagram
}

// ParseWebhook normalizes an Instagram messaging webhook delivery. The wire
// shape is the Messenger envelope. Non-message events yield nil.
func (a *Adapter) ParseWebhook(payload []byte) *platform.NormalizedMessage {
	return graph.ParseMessengerWebhook(platform.Instagram, payload)
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

// SendMessage sends a text message through the Send API with the Instagram
// account access token as a query parameter.
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
		return platform.SendResult{}, &platform.UpstreamSendError{Platform: platform.Instagram, Err: err}
	}
	if !resp.OK() {
		return platform.SendResult{}, &platform.UpstreamSendError{
			Platform:   platform.Instagram,
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

type conversationsResponse struct {
	Data []struct {
		Messages struct {
			Data []struct {
				ID   string `json:"id"`
				From struct {
					ID       string `json:"id"`
					Username string `json:"username"`
				} `json:"from"`
				Message     string `json:"message"`
				CreatedTime string `json:"created_time"`
			} `json:"data"`
		} `json:"messages"`
	} `json:"data"`
}

// PullMessages fetches recent conversation messages through the Graph
// conversations edge.
func (a *Adapter) PullMessages(ctx context.Context, accessToken string) ([]platform.NormalizedMessage, error) {
	token := strings.TrimSpace(accessToken)
	if token == "" {
		token = a.cfg.AccessToken
	}
	query := url.Values{
		"fields":       {"messages{id,from,to,message,created_time}"},
		"platform":     {"instagram"},
		"access_token": {token},
	}
	resp, err := a.client.Get(ctx, "me/conversations", query)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &platform.UpstreamSendError{
			Platform:   platform.Instagram,
			StatusCode: resp.StatusCode,
			Body:       string(resp.Body),
		}
	}
	var parsed conversationsResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, err
	}

	var messages []platform.NormalizedMessage
	for _, conversation := range parsed.Data {
		for _, msg := range conversation.Messages.Data {
			occurredAt := time.Now().UTC()
			if ts, err := time.Parse(time.RFC3339, msg.CreatedTime); err == nil {
				occurredAt = ts.UTC()
			}
			senderName := msg.From.Username
			if senderName == "" {
				senderName = platform.UnknownSender
			}
			messages = append(messages, platform.NormalizedMessage{
				Platform:          platform.Instagram,
				ExternalMessageID: msg.ID,
				SenderExternalID:  msg.From.ID,
				SenderDisplayName: senderName,
				ContentText:       msg.Message,
				ContentType:       platform.ContentText,
				OccurredAt:        occurredAt,
			})
		}
	}
	return messages, nil
}
