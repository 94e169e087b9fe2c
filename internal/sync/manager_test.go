package sync

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/uniboxhq/unibox/internal/config"
	"github.com/uniboxhq/unibox/internal/link"
	"github.com/uniboxhq/unibox/internal/message"
	"github.com/uniboxhq/unibox/internal/platform"
)

type fakePullAdapter struct {
	p    platform.Platform
	msgs []platform.NormalizedMessage
	err  error
}

func (f *fakePullAdapter) Platform() platform.Platform                         { return f.p }
func (f *fakePullAdapter) ParseWebhook(payload []byte) *platform.NormalizedMessage { return nil }
func (f *fakePullAdapter) VerifyWebhook(mode, token, challenge string) string  { return "" }

func (f *fakePullAdapter) PullMessages(ctx context.Context, accessToken string) ([]platform.NormalizedMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.msgs, nil
}

type fakeLinks struct {
	links  []link.PlatformLink
	synced []string
}

func (f *fakeLinks) ListActive(ctx context.Context, p platform.Platform) ([]link.PlatformLink, error) {
	var out []link.PlatformLink
	for _, l := range f.links {
		if l.Platform == p {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLinks) TouchSynced(ctx context.Context, linkID string, at time.Time) error {
	f.synced = append(f.synced, linkID)
	return nil
}

type countingIngestor struct {
	owners []string
	msgs   []platform.NormalizedMessage
}

func (c *countingIngestor) Ingest(ctx context.Context, ownerUserID string, msg platform.NormalizedMessage) (message.PersistedMessage, error) {
	c.owners = append(c.owners, ownerUserID)
	c.msgs = append(c.msgs, msg)
	return message.PersistedMessage{}, nil
}

func TestRunOnceIngestsForLinkOwner(t *testing.T) {
	t.Parallel()

	registry := platform.NewRegistry()
	registry.MustRegister(&fakePullAdapter{
		p: platform.Telegram,
		msgs: []platform.NormalizedMessage{
			{Platform: platform.Telegram, ExternalMessageID: "1", ContentText: "a"},
			{Platform: platform.Telegram, ExternalMessageID: "2", ContentText: "b"},
		},
	})
	links := &fakeLinks{links: []link.PlatformLink{{
		ID:       "link-1",
		UserID:   "user-1",
		Platform: platform.Telegram,
	}}}
	ingestor := &countingIngestor{}
	m := NewManager(slog.New(slog.DiscardHandler), config.SyncConfig{}, registry, links, ingestor)

	m.RunOnce(context.Background())

	if len(ingestor.msgs) != 2 {
		t.Fatalf("ingested %d messages, want 2", len(ingestor.msgs))
	}
	for _, owner := range ingestor.owners {
		if owner != "user-1" {
			t.Fatalf("owner = %q, want user-1", owner)
		}
	}
	if len(links.synced) != 1 || links.synced[0] != "link-1" {
		t.Fatalf("synced = %v", links.synced)
	}
	status, ok := m.SessionStatus("link-1")
	if !ok || status.State != StateReady {
		t.Fatalf("session = %+v, want ready", status)
	}
}

func TestRunOncePullFailureDisconnectsSession(t *testing.T) {
	t.Parallel()

	registry := platform.NewRegistry()
	registry.MustRegister(&fakePullAdapter{p: platform.Telegram, err: errors.New("upstream 502")})
	links := &fakeLinks{links: []link.PlatformLink{{ID: "link-1", UserID: "user-1", Platform: platform.Telegram}}}
	ingestor := &countingIngestor{}
	m := NewManager(slog.New(slog.DiscardHandler), config.SyncConfig{}, registry, links, ingestor)

	m.RunOnce(context.Background())

	if len(ingestor.msgs) != 0 {
		t.Fatalf("ingested %d messages, want 0", len(ingestor.msgs))
	}
	status, _ := m.SessionStatus("link-1")
	if status.State != StateDisconnected {
		t.Fatalf("state = %s, want disconnected", status.State)
	}
	if status.LastError == "" {
		t.Fatal("expected recorded error")
	}
}

func TestSessionTransitions(t *testing.T) {
	t.Parallel()

	s := NewSession()
	if got := s.Status().State; got != StateDisconnected {
		t.Fatalf("initial state = %s", got)
	}
	if !s.Begin() {
		t.Fatal("Begin from disconnected should succeed")
	}
	if s.Begin() {
		t.Fatal("Begin while connecting should report busy")
	}
	if err := s.Succeed(time.Now()); err != nil {
		t.Fatalf("Succeed: %v", err)
	}
	if got := s.Status().State; got != StateReady {
		t.Fatalf("state = %s, want ready", got)
	}
	// Succeed without a Begin is a programming error.
	if err := s.Succeed(time.Now()); err == nil {
		t.Fatal("Succeed from ready should fail")
	}
	if !s.Begin() {
		t.Fatal("Begin from ready should succeed for a refresh cycle")
	}
	s.Fail(errors.New("boom"))
	status := s.Status()
	if status.State != StateDisconnected || status.LastError != "boom" {
		t.Fatalf("status = %+v", status)
	}
}
