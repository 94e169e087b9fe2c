// Package platform provides a unified abstraction for external messaging
// platforms. It defines the canonical message schema, the adapter interfaces,
// and a registry that dispatches on the platform enum.
package platform

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Platform identifies an external messaging platform.
type Platform string

const (
	WhatsApp  Platform = "whatsapp"
	Telegram  Platform = "telegram"
	Facebook  Platform = "facebook"
	Instagram Platform = "instagram"
)

// String returns the platform as a plain string.
func (p Platform) String() string {
	return string(p)
}

// ErrUnsupported reports a platform name outside the supported set.
var ErrUnsupported = errors.New("unsupported platform")

// Parse validates and normalizes a raw string into a known Platform.
// Unknown names wrap ErrUnsupported.
func Parse(raw string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(raw))) {
	case WhatsApp:
		return WhatsApp, nil
	case Telegram:
		return Telegram, nil
	case Facebook:
		return Facebook, nil
	case Instagram:
		return Instagram, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, raw)
	}
}

// ContentType classifies the payload of a message.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
	ContentAudio ContentType = "audio"
)

// UnknownSender is the display name used when a platform payload carries no
// usable profile information.
const UnknownSender = "Unknown"

// NormalizedMessage is the canonical in-process representation of a message,
// independent of the originating platform. Sender and recipient identifiers
// are platform-native and are never comparable across platforms.
type NormalizedMessage struct {
	Platform            Platform    `json:"platform"`
	ExternalMessageID   string      `json:"external_message_id"`
	SenderExternalID    string      `json:"sender_external_id"`
	SenderDisplayName   string      `json:"sender_display_name"`
	RecipientExternalID string      `json:"recipient_external_id,omitempty"`
	ContentText         string      `json:"content_text"`
	ContentType         ContentType `json:"content_type"`
	MediaRef            string      `json:"media_ref,omitempty"`
	OccurredAt          time.Time   `json:"occurred_at"`
}

// SendResult carries the upstream response of a successful outbound send.
type SendResult struct {
	ExternalMessageID string          `json:"external_message_id,omitempty"`
	Raw               json.RawMessage `json:"raw,omitempty"`
}

// UpstreamSendError reports a failed outbound API call. It preserves the
// upstream status and response body for diagnostics. Callers decide whether
// to retry; no retry is built in.
type UpstreamSendError struct {
	Platform   Platform
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamSendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s send failed: %v", e.Platform, e.Err)
	}
	return fmt.Sprintf("%s send failed: upstream status %d: %s", e.Platform, e.StatusCode, e.Body)
}

func (e *UpstreamSendError) Unwrap() error {
	return e.Err
}
