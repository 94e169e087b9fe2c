// Package dispatch sends outbound messages through platform adapters and
// records a local copy of what was sent.
package dispatch

import "strings"

// SentSenderName labels the synthetic local copy of an outbound message.
const SentSenderName = "You"

// SendRequest is the outbound send payload. The recipient may arrive under
// any of three aliases depending on the caller's platform habits.
type SendRequest struct {
	To          string `json:"to"`
	ChatID      string `json:"chatId"`
	RecipientID string `json:"recipientId"`
	Message     string `json:"message" validate:"required"`
	UserID      string `json:"userId" validate:"required,uuid"`
}

// Recipient returns the first non-empty recipient alias.
func (r SendRequest) Recipient() string {
	for _, v := range []string{r.To, r.ChatID, r.RecipientID} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
