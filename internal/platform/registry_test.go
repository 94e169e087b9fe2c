package platform

import (
	"context"
	"errors"
	"testing"
)

type baseAdapter struct {
	p Platform
}

func (b *baseAdapter) Platform() Platform                          { return b.p }
func (b *baseAdapter) ParseWebhook(payload []byte) *NormalizedMessage { return nil }
func (b *baseAdapter) VerifyWebhook(mode, token, challenge string) string { return "" }

type sendingAdapter struct {
	baseAdapter
}

func (s *sendingAdapter) SendMessage(ctx context.Context, accessToken, recipient, text string) (SendResult, error) {
	return SendResult{}, nil
}

func TestRegisterAndGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if err := r.Register(&baseAdapter{p: WhatsApp}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&baseAdapter{p: WhatsApp}); err == nil {
		t.Fatal("duplicate registration should fail")
	}
	if err := r.Register(nil); err == nil {
		t.Fatal("nil adapter should fail")
	}

	if _, ok := r.Get(WhatsApp); !ok {
		t.Fatal("expected registered adapter")
	}
	if _, ok := r.Get(Telegram); ok {
		t.Fatal("unexpected adapter for unregistered platform")
	}
}

func TestCapabilityProbing(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.MustRegister(&baseAdapter{p: Facebook})
	r.MustRegister(&sendingAdapter{baseAdapter{p: Telegram}})

	if _, ok := r.GetSender(Telegram); !ok {
		t.Fatal("telegram should expose Sender")
	}
	if _, ok := r.GetSender(Facebook); ok {
		t.Fatal("base adapter should not expose Sender")
	}
	if _, ok := r.GetPuller(Telegram); ok {
		t.Fatal("sendingAdapter should not expose Puller")
	}
	if _, ok := r.GetMediaResolver(Facebook); ok {
		t.Fatal("base adapter should not expose MediaResolver")
	}
}

func TestParsePlatform(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]Platform{
		"whatsapp":  WhatsApp,
		"Telegram":  Telegram,
		" FACEBOOK ": Facebook,
		"instagram": Instagram,
	} {
		got, err := Parse(raw)
		if err != nil {
			t.Fatalf("Parse(%q): %v", raw, err)
		}
		if got != want {
			t.Fatalf("Parse(%q) = %s, want %s", raw, got, want)
		}
	}
	if _, err := Parse("sms"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("Parse(sms) = %v, want ErrUnsupported", err)
	}
}
