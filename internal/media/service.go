package media

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uniboxhq/unibox/internal/db"
	"github.com/uniboxhq/unibox/internal/platform"
)

// Service persists media file records and resolves references through the
// adapter registry.
type Service struct {
	pool     *pgxpool.Pool
	registry *platform.Registry
	logger   *slog.Logger
}

func NewService(log *slog.Logger, pool *pgxpool.Pool, registry *platform.Registry) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:     pool,
		registry: registry,
		logger:   log.With(slog.String("service", "media")),
	}
}

// RecordForMessage stores the media reference carried by a newly persisted
// message. Called once per message by the ingestion path.
func (s *Service) RecordForMessage(ctx context.Context, messageID, mediaRef string, contentType platform.ContentType) error {
	msgID, err := db.ParseUUID(messageID)
	if err != nil {
		return fmt.Errorf("invalid message id: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO media_files (message_id, file_url, media_type)
		VALUES ($1, $2, $3)`,
		msgID, mediaRef, string(contentType))
	if err != nil {
		return fmt.Errorf("record media file: %w", err)
	}
	return nil
}

// ListForMessage returns the media files recorded for a message.
func (s *Service) ListForMessage(ctx context.Context, messageID string) ([]File, error) {
	msgID, err := db.ParseUUID(messageID)
	if err != nil {
		return nil, fmt.Errorf("invalid message id: %w", err)
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, message_id, file_url, media_type, downloaded, shared
		FROM media_files WHERE message_id = $1 ORDER BY id`,
		msgID)
	if err != nil {
		return nil, fmt.Errorf("list media files: %w", err)
	}
	defer rows.Close()
	var files []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.MessageID, &f.FileURL, &f.MediaType, &f.Downloaded, &f.Shared); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// ResolveURL turns a recorded media reference into a currently fetchable URL
// via the owning platform's adapter. Platforms whose references are already
// plain URLs return them unchanged.
func (s *Service) ResolveURL(ctx context.Context, p platform.Platform, mediaRef string) (string, error) {
	if mediaRef == "" {
		return "", ErrFileNotFound
	}
	resolver, ok := s.registry.GetMediaResolver(p)
	if !ok {
		// No resolver means the reference is a direct URL.
		return mediaRef, nil
	}
	url, err := resolver.ResolveMediaURL(ctx, mediaRef)
	if err != nil {
		return "", fmt.Errorf("resolve media %s: %w", p, err)
	}
	return url, nil
}

// MarkDownloaded flags a media file as fetched.
func (s *Service) MarkDownloaded(ctx context.Context, fileID string) error {
	id, err := db.ParseUUID(fileID)
	if err != nil {
		return fmt.Errorf("invalid media file id: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE media_files SET downloaded = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark downloaded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}
