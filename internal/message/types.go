// Package message owns persisted messages: ingestion with idempotent dedup
// and inbox reads.
package message

import (
	"context"
	"time"

	"github.com/uniboxhq/unibox/internal/platform"
)

// PersistedMessage is a stored message. It is a superset of
// platform.NormalizedMessage with storage-assigned identity, the owning local
// account, and the ingestion timestamp. An empty OwnerUserID marks an orphaned
// message awaiting reconciliation.
type PersistedMessage struct {
	ID                  string               `json:"id"`
	OwnerUserID         string               `json:"owner_user_id,omitempty"`
	Platform            platform.Platform    `json:"platform"`
	ExternalMessageID   string               `json:"external_message_id,omitempty"`
	SenderExternalID    string               `json:"sender_external_id,omitempty"`
	SenderDisplayName   string               `json:"sender_display_name,omitempty"`
	RecipientExternalID string               `json:"recipient_external_id,omitempty"`
	ContentText         string               `json:"content_text"`
	ContentType         platform.ContentType `json:"content_type"`
	MediaRef            string               `json:"media_ref,omitempty"`
	OccurredAt          time.Time            `json:"occurred_at"`
	StoredAt            time.Time            `json:"stored_at"`
}

// InboxQuery selects messages for the unified inbox read.
type InboxQuery struct {
	UserID    string
	Platforms []platform.Platform
	Limit     int32
}

// Store is the persistence interface for messages. InsertIfAbsent must be
// atomic with respect to the (platform, external_message_id) dedup key so
// concurrent ingests across process instances cannot both create a row.
type Store interface {
	InsertIfAbsent(ctx context.Context, msg PersistedMessage) (PersistedMessage, bool, error)
	ListInbox(ctx context.Context, query InboxQuery) ([]PersistedMessage, error)
}

// Ingestor defines the write behavior needed by webhook handlers and dispatch.
type Ingestor interface {
	Ingest(ctx context.Context, ownerUserID string, msg platform.NormalizedMessage) (PersistedMessage, error)
}
