// Package inbox assembles the unified cross-platform message view.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/uniboxhq/unibox/internal/message"
	"github.com/uniboxhq/unibox/internal/platform"
)

// MaxEntries caps a single inbox page.
const MaxEntries = 100

// Lister is the slice of the message service the inbox needs.
type Lister interface {
	ListInbox(ctx context.Context, q message.InboxQuery) ([]message.PersistedMessage, error)
}

// Service reads the merged inbox for a user.
type Service struct {
	messages Lister
	logger   *slog.Logger
}

func NewService(logger *slog.Logger, messages Lister) *Service {
	return &Service{
		messages: messages,
		logger:   logger.With(slog.String("service", "inbox")),
	}
}

// List returns the newest messages across the user's platforms, newest first.
// rawPlatforms is an optional comma-separated platform filter; empty means
// all platforms.
func (s *Service) List(ctx context.Context, userID, rawPlatforms string) ([]message.PersistedMessage, error) {
	platforms, err := parsePlatforms(rawPlatforms)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListInbox(ctx, message.InboxQuery{
		UserID:    userID,
		Platforms: platforms,
		Limit:     MaxEntries,
	})
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	if msgs == nil {
		msgs = []message.PersistedMessage{}
	}
	return msgs, nil
}

func parsePlatforms(raw string) ([]platform.Platform, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []platform.Platform
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := platform.Parse(part)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
