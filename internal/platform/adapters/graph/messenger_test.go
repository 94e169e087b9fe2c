package graph

import (
	"testing"
	"time"

	"github.com/uniboxhq/unibox/internal/platform"
)

func TestParseMessengerWebhookText(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"entry": [{
			"messaging": [{
				"sender": {"id": "psid-100"},
				"recipient": {"id": "page-200"},
				"timestamp": 1712345678000,
				"message": {"mid": "m_abc", "text": "messenger hello"}
			}]
		}]
	}`)

	msg := ParseMessengerWebhook(platform.Facebook, payload)
	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.Platform != platform.Facebook {
		t.Fatalf("platform = %s", msg.Platform)
	}
	if msg.ExternalMessageID != "m_abc" {
		t.Fatalf("external id = %q", msg.ExternalMessageID)
	}
	if msg.SenderExternalID != "psid-100" || msg.RecipientExternalID != "page-200" {
		t.Fatalf("routing = %q -> %q", msg.SenderExternalID, msg.RecipientExternalID)
	}
	// Millisecond timestamps land on the same instant as second-resolution
	// platforms reporting 1712345678.
	want := time.Unix(1712345678, 0).UTC()
	if !msg.OccurredAt.Equal(want) {
		t.Fatalf("occurred at = %v, want %v", msg.OccurredAt, want)
	}
}

func TestParseMessengerWebhookAttachmentPriority(t *testing.T) {
	t.Parallel()

	payload := []byte(`{
		"entry": [{
			"messaging": [{
				"sender": {"id": "s"},
				"recipient": {"id": "r"},
				"timestamp": 1700000000000,
				"message": {
					"mid": "m_vid",
					"attachments": [{"type": "video", "payload": {"url": "https://cdn.example/v.mp4"}}]
				}
			}]
		}]
	}`)

	msg := ParseMessengerWebhook(platform.Instagram, payload)
	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.Platform != platform.Instagram {
		t.Fatalf("platform = %s", msg.Platform)
	}
	if msg.ContentType != platform.ContentVideo {
		t.Fatalf("content type = %q", msg.ContentType)
	}
	if msg.MediaRef != "https://cdn.example/v.mp4" {
		t.Fatalf("media ref = %q", msg.MediaRef)
	}
}

func TestParseMessengerWebhookNonMessageEvents(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
	}{
		{"empty entry", `{"entry": []}`},
		{"delivery receipt", `{"entry": [{"messaging": [{"sender": {"id": "s"}, "delivery": {"mids": ["m_1"]}}]}]}`},
		{"read receipt", `{"entry": [{"messaging": [{"sender": {"id": "s"}, "read": {"watermark": 123}}]}]}`},
		{"malformed", `{"entry": [{`},
	}
	for _, tc := range cases {
		if msg := ParseMessengerWebhook(platform.Facebook, []byte(tc.payload)); msg != nil {
			t.Fatalf("%s: expected nil, got %+v", tc.name, msg)
		}
	}
}
