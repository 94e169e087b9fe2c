package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/uniboxhq/unibox/internal/config"
	"github.com/uniboxhq/unibox/internal/platform"
)

func TestSendMessageSuccess(t *testing.T) {
	t.Parallel()

	var gotPath, gotToken string
	var gotBody map[string]any
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("access_token")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"recipient_id": "psid-1", "message_id": "m_out_1"}`))
	}))
	defer upstream.Close()

	a := New(slog.New(slog.DiscardHandler), config.MetaAppConfig{BaseURL: upstream.URL}, time.Second)
	result, err := a.SendMessage(context.Background(), "page-token", "psid-1", "hi there")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if result.ExternalMessageID != "m_out_1" {
		t.Fatalf("external id = %q", result.ExternalMessageID)
	}
	if gotPath != "/me/messages" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotToken != "page-token" {
		t.Fatalf("token = %q", gotToken)
	}
	recipient, _ := gotBody["recipient"].(map[string]any)
	if recipient["id"] != "psid-1" {
		t.Fatalf("recipient = %v", gotBody["recipient"])
	}
	message, _ := gotBody["message"].(map[string]any)
	if message["text"] != "hi there" {
		t.Fatalf("message = %v", gotBody["message"])
	}
}

func TestSendMessageUpstreamError(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "Invalid user id"}}`))
	}))
	defer upstream.Close()

	a := New(slog.New(slog.DiscardHandler), config.MetaAppConfig{BaseURL: upstream.URL}, time.Second)
	_, err := a.SendMessage(context.Background(), "page-token", "bad", "hi")
	var sendErr *platform.UpstreamSendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("err = %v, want UpstreamSendError", err)
	}
	if sendErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", sendErr.StatusCode)
	}
	if sendErr.Body == "" {
		t.Fatal("expected upstream body preserved")
	}
}

func TestSendMessageFallsBackToConfiguredToken(t *testing.T) {
	t.Parallel()

	var gotToken string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.URL.Query().Get("access_token")
		_, _ = w.Write([]byte(`{"message_id": "m_1"}`))
	}))
	defer upstream.Close()

	a := New(slog.New(slog.DiscardHandler), config.MetaAppConfig{
		BaseURL:     upstream.URL,
		AccessToken: "app-level-token",
	}, time.Second)
	if _, err := a.SendMessage(context.Background(), "", "psid-1", "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if gotToken != "app-level-token" {
		t.Fatalf("token = %q, want config fallback", gotToken)
	}
}
