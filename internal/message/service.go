package message

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/uniboxhq/unibox/internal/platform"
)

// MediaRecorder records a media reference attached to a newly persisted
// message. Implemented by the media service; optional.
type MediaRecorder interface {
	RecordForMessage(ctx context.Context, messageID, mediaRef string, contentType platform.ContentType) error
}

// Service ingests normalized messages into storage.
type Service struct {
	store  Store
	media  MediaRecorder
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a message ingestion service.
func NewService(log *slog.Logger, store Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		logger: log.With(slog.String("service", "message")),
		now:    time.Now,
	}
}

// SetMediaRecorder sets the optional media recorder invoked for messages
// carrying a media reference.
func (s *Service) SetMediaRecorder(recorder MediaRecorder) {
	s.media = recorder
}

// Ingest persists a normalized message for the given owner. An ingest with a
// (platform, external_message_id) pair already in storage returns the existing
// record unchanged: webhook delivery is at-least-once, so replays are the
// normal case, not an error. An empty ownerUserID stores the message orphaned.
func (s *Service) Ingest(ctx context.Context, ownerUserID string, msg platform.NormalizedMessage) (PersistedMessage, error) {
	if msg.Platform == "" {
		return PersistedMessage{}, fmt.Errorf("platform is required")
	}
	occurredAt := msg.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now().UTC()
	}
	contentType := msg.ContentType
	if contentType == "" {
		contentType = platform.ContentText
	}

	record := PersistedMessage{
		OwnerUserID:         strings.TrimSpace(ownerUserID),
		Platform:            msg.Platform,
		ExternalMessageID:   strings.TrimSpace(msg.ExternalMessageID),
		SenderExternalID:    msg.SenderExternalID,
		SenderDisplayName:   msg.SenderDisplayName,
		RecipientExternalID: msg.RecipientExternalID,
		ContentText:         msg.ContentText,
		ContentType:         contentType,
		MediaRef:            msg.MediaRef,
		OccurredAt:          occurredAt.UTC(),
		StoredAt:            s.now().UTC(),
	}

	stored, created, err := s.store.InsertIfAbsent(ctx, record)
	if err != nil {
		return PersistedMessage{}, fmt.Errorf("persist message: %w", err)
	}
	if !created {
		s.logger.Debug("duplicate delivery skipped",
			slog.String("platform", msg.Platform.String()),
			slog.String("external_message_id", record.ExternalMessageID),
		)
		return stored, nil
	}

	if record.OwnerUserID == "" {
		s.logger.Warn("message stored orphaned",
			slog.String("platform", msg.Platform.String()),
			slog.String("external_message_id", record.ExternalMessageID),
		)
	}

	if s.media != nil && strings.TrimSpace(stored.MediaRef) != "" {
		if err := s.media.RecordForMessage(ctx, stored.ID, stored.MediaRef, stored.ContentType); err != nil {
			s.logger.Warn("record media file failed",
				slog.String("message_id", stored.ID),
				slog.Any("error", err),
			)
		}
	}

	return stored, nil
}

// ListInbox returns stored messages for the query, newest first.
func (s *Service) ListInbox(ctx context.Context, query InboxQuery) ([]PersistedMessage, error) {
	return s.store.ListInbox(ctx, query)
}
