package graph

import (
	"encoding/json"
	"time"

	"github.com/uniboxhq/unibox/internal/platform"
)

// messengerPayload is the webhook envelope shared by Facebook Messenger and
// Instagram messaging.
type messengerPayload struct {
	Entry []struct {
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Recipient struct {
				ID string `json:"id"`
			} `json:"recipient"`
			Timestamp int64 `json:"timestamp"`
			Message   *struct {
				MID         string `json:"mid"`
				Text        string `json:"text"`
				Attachments []struct {
					Type    string `json:"type"`
					Payload struct {
						URL string `json:"url"`
					} `json:"payload"`
				} `json:"attachments"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// ParseMessengerWebhook normalizes a Messenger-family webhook body for the
// given platform. Events without a message object (delivery receipts, read
// receipts, postbacks) yield nil.
func ParseMessengerWebhook(p platform.Platform, payload []byte) *platform.NormalizedMessage {
	var body messengerPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil
	}
	if len(body.Entry) == 0 || len(body.Entry[0].Messaging) == 0 {
		return nil
	}
	event := body.Entry[0].Messaging[0]
	if event.Message == nil {
		return nil
	}
	msg := event.Message

	contentType := platform.ContentText
	mediaRef := ""
	if len(msg.Attachments) > 0 {
		switch msg.Attachments[0].Type {
		case "image":
			contentType = platform.ContentImage
		case "video":
			contentType = platform.ContentVideo
		case "audio":
			contentType = platform.ContentAudio
		}
		mediaRef = msg.Attachments[0].Payload.URL
	}

	return &platform.NormalizedMessage{
		Platform:            p,
		ExternalMessageID:   msg.MID,
		SenderExternalID:    event.Sender.ID,
		SenderDisplayName:   platform.UnknownSender,
		RecipientExternalID: event.Recipient.ID,
		ContentText:         msg.Text,
		ContentType:         contentType,
		MediaRef:            mediaRef,
		// Messenger timestamps are epoch milliseconds.
		OccurredAt: time.UnixMilli(event.Timestamp).UTC(),
	}
}
