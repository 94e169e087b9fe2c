package instagram

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/uniboxhq/unibox/internal/config"
	"github.com/uniboxhq/unibox/internal/platform"
)

func TestPullMessages(t *testing.T) {
	t.Parallel()

	var gotPath, gotPlatform string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPlatform = r.URL.Query().Get("platform")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [{
				"messages": {
					"data": [
						{
							"id": "ig_m1",
							"from": {"id": "ig_user_1", "username": "traveler"},
							"message": "nice shot",
							"created_time": "2026-04-05T17:34:38+00:00"
						},
						{
							"id": "ig_m2",
							"from": {"id": "ig_user_2"},
							"message": "second",
							"created_time": "not-a-time"
						}
					]
				}
			}]
		}`))
	}))
	defer upstream.Close()

	a := New(slog.New(slog.DiscardHandler), config.MetaAppConfig{BaseURL: upstream.URL}, time.Second)
	msgs, err := a.PullMessages(context.Background(), "ig-token")
	if err != nil {
		t.Fatalf("PullMessages: %v", err)
	}
	if gotPath != "/me/conversations" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotPlatform != "instagram" {
		t.Fatalf("platform query = %q", gotPlatform)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}

	first := msgs[0]
	if first.ExternalMessageID != "ig_m1" || first.SenderDisplayName != "traveler" {
		t.Fatalf("first = %+v", first)
	}
	want := time.Date(2026, 4, 5, 17, 34, 38, 0, time.UTC)
	if !first.OccurredAt.Equal(want) {
		t.Fatalf("occurred at = %v, want %v", first.OccurredAt, want)
	}

	second := msgs[1]
	if second.SenderDisplayName != platform.UnknownSender {
		t.Fatalf("second sender = %q, want fallback", second.SenderDisplayName)
	}
	if second.OccurredAt.IsZero() {
		t.Fatal("unparseable created_time should fall back to now, not zero")
	}
}

func TestPullMessagesUpstreamError(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Invalid OAuth access token"}}`))
	}))
	defer upstream.Close()

	a := New(slog.New(slog.DiscardHandler), config.MetaAppConfig{BaseURL: upstream.URL}, time.Second)
	if _, err := a.PullMessages(context.Background(), "expired"); err == nil {
		t.Fatal("expected error for upstream 401")
	}
}
