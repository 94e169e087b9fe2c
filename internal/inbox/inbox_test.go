package inbox

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/uniboxhq/unibox/internal/message"
	"github.com/uniboxhq/unibox/internal/platform"
)

type fakeLister struct {
	got  message.InboxQuery
	msgs []message.PersistedMessage
}

func (f *fakeLister) ListInbox(ctx context.Context, q message.InboxQuery) ([]message.PersistedMessage, error) {
	f.got = q
	return f.msgs, nil
}

func TestListAppliesCap(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{}
	svc := NewService(slog.New(slog.DiscardHandler), lister)

	if _, err := svc.List(context.Background(), "user-1", ""); err != nil {
		t.Fatalf("List: %v", err)
	}
	if lister.got.Limit != MaxEntries {
		t.Fatalf("limit = %d, want %d", lister.got.Limit, MaxEntries)
	}
	if lister.got.Platforms != nil {
		t.Fatalf("platforms = %v, want nil for no filter", lister.got.Platforms)
	}
}

func TestListParsesPlatformFilter(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{}
	svc := NewService(slog.New(slog.DiscardHandler), lister)

	if _, err := svc.List(context.Background(), "user-1", "whatsapp, Telegram"); err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []platform.Platform{platform.WhatsApp, platform.Telegram}
	if len(lister.got.Platforms) != len(want) {
		t.Fatalf("platforms = %v, want %v", lister.got.Platforms, want)
	}
	for i, p := range want {
		if lister.got.Platforms[i] != p {
			t.Fatalf("platforms[%d] = %s, want %s", i, lister.got.Platforms[i], p)
		}
	}
}

func TestListRejectsUnknownPlatform(t *testing.T) {
	t.Parallel()

	svc := NewService(slog.New(slog.DiscardHandler), &fakeLister{})
	if _, err := svc.List(context.Background(), "user-1", "myspace"); !errors.Is(err, platform.ErrUnsupported) {
		t.Fatalf("List = %v, want platform.ErrUnsupported", err)
	}
}

// sortingLister holds rows in insertion order and serves them the way the
// message store does: occurred_at descending, then stored_at, then id.
type sortingLister struct {
	rows []message.PersistedMessage
}

func (f *sortingLister) ListInbox(ctx context.Context, q message.InboxQuery) ([]message.PersistedMessage, error) {
	out := make([]message.PersistedMessage, len(f.rows))
	copy(out, f.rows)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		if !out[i].StoredAt.Equal(out[j].StoredAt) {
			return out[i].StoredAt.After(out[j].StoredAt)
		}
		return out[i].ID > out[j].ID
	})
	if int32(len(out)) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func TestListOrdersNewestFirst(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 := base
	t2 := base.Add(1 * time.Minute)
	t3 := base.Add(2 * time.Minute)

	// Delivered out of order: t1, t3, t2. Two rows share t2 and differ only
	// in stored_at; two more share both timestamps and differ only in id.
	lister := &sortingLister{rows: []message.PersistedMessage{
		{ID: "a", OccurredAt: t1, StoredAt: t1},
		{ID: "b", OccurredAt: t3, StoredAt: t3},
		{ID: "c", OccurredAt: t2, StoredAt: t2},
		{ID: "d", OccurredAt: t2, StoredAt: t2.Add(time.Second)},
		{ID: "e", OccurredAt: t1, StoredAt: t1},
	}}
	svc := NewService(slog.New(slog.DiscardHandler), lister)

	msgs, err := svc.List(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var got []string
	for _, m := range msgs {
		got = append(got, m.ID)
	}
	want := []string{"b", "d", "c", "e", "a"}
	if len(got) != len(want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids = %v, want %v", got, want)
		}
	}
}

func TestListNeverReturnsNil(t *testing.T) {
	t.Parallel()

	svc := NewService(slog.New(slog.DiscardHandler), &fakeLister{msgs: nil})
	msgs, err := svc.List(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if msgs == nil {
		t.Fatal("expected empty slice, got nil")
	}
}
