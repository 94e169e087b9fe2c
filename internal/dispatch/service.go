package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uniboxhq/unibox/internal/link"
	"github.com/uniboxhq/unibox/internal/message"
	"github.com/uniboxhq/unibox/internal/platform"
)

// ErrNoRecipient indicates the request carried no recipient under any alias.
var ErrNoRecipient = errors.New("missing recipient")

// ErrEmptyMessage indicates an empty outbound body.
var ErrEmptyMessage = errors.New("missing message body")

// Service routes outbound sends to the right adapter and persists a local
// copy on success. Upstream failures persist nothing.
type Service struct {
	links    link.ActiveLinker
	registry *platform.Registry
	ingestor message.Ingestor
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(logger *slog.Logger, links link.ActiveLinker, registry *platform.Registry, ingestor message.Ingestor) *Service {
	return &Service{
		links:    links,
		registry: registry,
		ingestor: ingestor,
		logger:   logger.With(slog.String("service", "dispatch")),
		now:      time.Now,
	}
}

// Send delivers the message through the named platform on behalf of the user.
// The returned PersistedMessage is the stored sent copy.
func (s *Service) Send(ctx context.Context, platformName string, req SendRequest) (message.PersistedMessage, error) {
	p, err := platform.Parse(platformName)
	if err != nil {
		return message.PersistedMessage{}, err
	}
	recipient := req.Recipient()
	if recipient == "" {
		return message.PersistedMessage{}, ErrNoRecipient
	}
	if req.Message == "" {
		return message.PersistedMessage{}, ErrEmptyMessage
	}

	l, err := s.links.ActiveLink(ctx, req.UserID, p)
	if err != nil {
		return message.PersistedMessage{}, err
	}
	sender, ok := s.registry.GetSender(p)
	if !ok {
		return message.PersistedMessage{}, fmt.Errorf("platform %s cannot send", p)
	}

	result, err := sender.SendMessage(ctx, l.AccessToken, recipient, req.Message)
	if err != nil {
		s.logger.Warn("upstream send failed",
			slog.String("platform", string(p)),
			slog.String("user_id", req.UserID),
			slog.Any("error", err))
		return message.PersistedMessage{}, err
	}

	sentAt := s.now().UTC()
	stored, err := s.ingestor.Ingest(ctx, req.UserID, platform.NormalizedMessage{
		Platform:            p,
		ExternalMessageID:   result.ExternalMessageID,
		SenderExternalID:    l.ExternalAccountID,
		SenderDisplayName:   SentSenderName,
		RecipientExternalID: recipient,
		ContentText:         req.Message,
		ContentType:         platform.ContentText,
		OccurredAt:          sentAt,
	})
	if err != nil {
		// The upstream accepted the message; surface the storage failure
		// without pretending the send did not happen.
		return message.PersistedMessage{}, fmt.Errorf("send succeeded but storing copy failed: %w", err)
	}
	s.logger.Info("message sent",
		slog.String("platform", string(p)),
		slog.String("user_id", req.UserID),
		slog.String("external_message_id", result.ExternalMessageID))
	return stored, nil
}
