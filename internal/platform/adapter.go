package platform

import "context"

// Adapter is the base interface every platform adapter must implement.
//
// ParseWebhook translates a platform-specific webhook POST body into a
// NormalizedMessage. A payload that carries no message (delivery receipts,
// status pings, truncated or malformed bodies) returns nil: that is a normal,
// silently-ignored case, never an error. Implementations are pure
// transformations with no side effects.
//
// VerifyWebhook answers the platform's subscription handshake. It returns the
// challenge unchanged when mode is "subscribe" and the token matches the
// configured verification secret, and "" otherwise.
type Adapter interface {
	Platform() Platform
	ParseWebhook(payload []byte) *NormalizedMessage
	VerifyWebhook(mode, token, challenge string) string
}

// Sender is an adapter capable of sending outbound text messages. The access
// token belongs to the platform link of the sending user; adapters add their
// own transport authentication (bearer header or query parameter).
type Sender interface {
	SendMessage(ctx context.Context, accessToken, recipient, text string) (SendResult, error)
}

// MediaResolver resolves an opaque media reference (platform file id or URL)
// into a directly fetchable URL.
type MediaResolver interface {
	ResolveMediaURL(ctx context.Context, mediaRef string) (string, error)
}

// Puller is an adapter capable of pull-based message retrieval for platforms
// whose APIs expose a fetch endpoint alongside webhooks.
type Puller interface {
	PullMessages(ctx context.Context, accessToken string) ([]NormalizedMessage, error)
}
