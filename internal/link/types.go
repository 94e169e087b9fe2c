// Package link manages platform links: the stored credential binding a local
// user to an external platform account.
package link

import (
	"context"
	"errors"
	"time"

	"github.com/uniboxhq/unibox/internal/platform"
)

// ErrNotConnected indicates the user has no active link for the platform.
var ErrNotConnected = errors.New("platform not connected")

// PlatformLink binds a user to one external platform account. Links are
// deactivated on disconnect, never deleted, because persisted messages keep
// referencing them.
type PlatformLink struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	Platform          platform.Platform `json:"platform"`
	AccessToken       string            `json:"-"`
	ExternalAccountID string            `json:"external_account_id,omitempty"`
	IsActive          bool              `json:"is_active"`
	SyncedAt          time.Time         `json:"synced_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// ConnectRequest is the input for creating or refreshing a platform link.
type ConnectRequest struct {
	UserID            string `json:"userId" validate:"required,uuid"`
	PlatformName      string `json:"platformName" validate:"required"`
	AccessToken       string `json:"accessToken" validate:"required"`
	ExternalAccountID string `json:"externalAccountId"`
}

// Resolver resolves webhook recipients to local owners. Implemented by the
// link service; consumed by the webhook handler.
type Resolver interface {
	ResolveOwner(ctx context.Context, p platform.Platform, externalAccountID string) (string, error)
}

// ActiveLinker resolves the active link for outbound dispatch.
type ActiveLinker interface {
	ActiveLink(ctx context.Context, userID string, p platform.Platform) (PlatformLink, error)
}
