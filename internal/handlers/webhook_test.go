package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/uniboxhq/unibox/internal/message"
	"github.com/uniboxhq/unibox/internal/platform"
)

type stubAdapter struct {
	p         platform.Platform
	parsed    *platform.NormalizedMessage
	verifyTok string
}

func (s *stubAdapter) Platform() platform.Platform { return s.p }

func (s *stubAdapter) ParseWebhook(payload []byte) *platform.NormalizedMessage { return s.parsed }

func (s *stubAdapter) VerifyWebhook(mode, token, challenge string) string {
	if mode == "subscribe" && token != "" && token == s.verifyTok {
		return challenge
	}
	return ""
}

type stubIngestor struct {
	owners []string
	msgs   []platform.NormalizedMessage
	err    error
}

func (s *stubIngestor) Ingest(ctx context.Context, ownerUserID string, msg platform.NormalizedMessage) (message.PersistedMessage, error) {
	if s.err != nil {
		return message.PersistedMessage{}, s.err
	}
	s.owners = append(s.owners, ownerUserID)
	s.msgs = append(s.msgs, msg)
	return message.PersistedMessage{ID: "m-1"}, nil
}

type stubResolver struct {
	owner string
	err   error
}

func (s *stubResolver) ResolveOwner(ctx context.Context, p platform.Platform, externalAccountID string) (string, error) {
	return s.owner, s.err
}

func newWebhookContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

func TestVerifyReturnsChallenge(t *testing.T) {
	t.Parallel()

	registry := platform.NewRegistry()
	registry.MustRegister(&stubAdapter{p: platform.WhatsApp, verifyTok: "vt"})
	h := NewWebhookHandler(slog.New(slog.DiscardHandler), registry, &stubIngestor{}, &stubResolver{})

	c, rec := newWebhookContext(t, http.MethodGet,
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=vt&hub.challenge=c-123", "")
	c.SetParamNames("platform")
	c.SetParamValues("whatsapp")

	if err := h.Verify(c); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "c-123" {
		t.Fatalf("body = %q, want raw challenge", rec.Body.String())
	}
}

func TestVerifyRejectsBadToken(t *testing.T) {
	t.Parallel()

	registry := platform.NewRegistry()
	registry.MustRegister(&stubAdapter{p: platform.WhatsApp, verifyTok: "vt"})
	h := NewWebhookHandler(slog.New(slog.DiscardHandler), registry, &stubIngestor{}, &stubResolver{})

	c, _ := newWebhookContext(t, http.MethodGet,
		"/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=c-123", "")
	c.SetParamNames("platform")
	c.SetParamValues("whatsapp")

	err := h.Verify(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("err = %v, want 403", err)
	}
}

func TestReceiveStoresWithOwner(t *testing.T) {
	t.Parallel()

	parsed := &platform.NormalizedMessage{
		Platform:            platform.Telegram,
		ExternalMessageID:   "42",
		RecipientExternalID: "bot-9",
		ContentText:         "hi",
	}
	registry := platform.NewRegistry()
	registry.MustRegister(&stubAdapter{p: platform.Telegram, parsed: parsed})
	ingestor := &stubIngestor{}
	h := NewWebhookHandler(slog.New(slog.DiscardHandler), registry, ingestor, &stubResolver{owner: "user-7"})

	c, rec := newWebhookContext(t, http.MethodPost, "/webhook/telegram", `{"update_id": 1}`)
	c.SetParamNames("platform")
	c.SetParamValues("telegram")

	if err := h.Receive(c); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(ingestor.msgs) != 1 || ingestor.owners[0] != "user-7" {
		t.Fatalf("ingested %v for owners %v", ingestor.msgs, ingestor.owners)
	}
}

func TestReceiveIgnoresNonMessagePayload(t *testing.T) {
	t.Parallel()

	registry := platform.NewRegistry()
	registry.MustRegister(&stubAdapter{p: platform.Facebook, parsed: nil})
	ingestor := &stubIngestor{}
	h := NewWebhookHandler(slog.New(slog.DiscardHandler), registry, ingestor, &stubResolver{})

	c, rec := newWebhookContext(t, http.MethodPost, "/webhook/facebook", `{"entry": []}`)
	c.SetParamNames("platform")
	c.SetParamValues("facebook")

	if err := h.Receive(c); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, webhooks always acknowledge", rec.Code)
	}
	if len(ingestor.msgs) != 0 {
		t.Fatalf("ingested %d messages, want 0", len(ingestor.msgs))
	}
	if !strings.Contains(rec.Body.String(), "ignored") {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestReceiveAcknowledgesStorageFailure(t *testing.T) {
	t.Parallel()

	parsed := &platform.NormalizedMessage{Platform: platform.WhatsApp, ExternalMessageID: "wamid.1"}
	registry := platform.NewRegistry()
	registry.MustRegister(&stubAdapter{p: platform.WhatsApp, parsed: parsed})
	ingestor := &stubIngestor{err: errors.New("pool exhausted")}
	h := NewWebhookHandler(slog.New(slog.DiscardHandler), registry, ingestor, &stubResolver{})

	c, rec := newWebhookContext(t, http.MethodPost, "/webhook/whatsapp", `{}`)
	c.SetParamNames("platform")
	c.SetParamValues("whatsapp")

	if err := h.Receive(c); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, storage failure must still acknowledge", rec.Code)
	}
}

func TestReceiveUnknownPlatform(t *testing.T) {
	t.Parallel()

	h := NewWebhookHandler(slog.New(slog.DiscardHandler), platform.NewRegistry(), &stubIngestor{}, &stubResolver{})

	c, _ := newWebhookContext(t, http.MethodPost, "/webhook/myspace", `{}`)
	c.SetParamNames("platform")
	c.SetParamValues("myspace")

	err := h.Receive(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("err = %v, want 404", err)
	}
}
