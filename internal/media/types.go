// Package media tracks media references attached to stored messages and
// resolves them to fetchable URLs through platform adapters.
package media

import "errors"

// ErrFileNotFound indicates no media file record exists for the lookup.
var ErrFileNotFound = errors.New("media file not found")

// File is a recorded media reference. The reference is stored as delivered by
// the platform (a file id or a URL); resolution to a fetchable URL happens on
// demand because platform URLs expire.
type File struct {
	ID         string `json:"id"`
	MessageID  string `json:"message_id"`
	FileURL    string `json:"file_url"`
	MediaType  string `json:"media_type"`
	Downloaded bool   `json:"downloaded"`
	Shared     bool   `json:"shared"`
}
