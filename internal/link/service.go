package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uniboxhq/unibox/internal/db"
	"github.com/uniboxhq/unibox/internal/platform"
)

// Service persists platform links in Postgres.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewService(logger *slog.Logger, pool *pgxpool.Pool) *Service {
	return &Service{
		pool:   pool,
		logger: logger.With(slog.String("service", "link")),
	}
}

const linkColumns = `id, user_id, platform, access_token, coalesce(external_account_id, ''), is_active, coalesce(synced_at, 'epoch'::timestamptz), created_at, updated_at`

// Connect creates the link or refreshes the token of an existing one. A
// previously disconnected link is reactivated in place.
func (s *Service) Connect(ctx context.Context, req ConnectRequest) (PlatformLink, error) {
	p, err := platform.Parse(req.PlatformName)
	if err != nil {
		return PlatformLink{}, err
	}
	userID, err := db.ParseUUID(req.UserID)
	if err != nil {
		return PlatformLink{}, fmt.Errorf("invalid user id: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO platform_links (user_id, platform, access_token, external_account_id, is_active)
		VALUES ($1, $2, $3, nullif($4, ''), true)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			access_token = excluded.access_token,
			external_account_id = coalesce(excluded.external_account_id, platform_links.external_account_id),
			is_active = true,
			updated_at = now()
		RETURNING `+linkColumns,
		userID, string(p), req.AccessToken, req.ExternalAccountID)
	l, err := scanLink(row)
	if err != nil {
		return PlatformLink{}, fmt.Errorf("connect %s: %w", p, err)
	}
	s.logger.Info("platform connected", slog.String("user_id", l.UserID), slog.String("platform", string(p)))
	return l, nil
}

// Disconnect deactivates the link. Stored messages for the platform are kept.
func (s *Service) Disconnect(ctx context.Context, userID string, p platform.Platform) error {
	uid, err := db.ParseUUID(userID)
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE platform_links SET is_active = false, updated_at = now()
		WHERE user_id = $1 AND platform = $2 AND is_active`,
		uid, string(p))
	if err != nil {
		return fmt.Errorf("disconnect %s: %w", p, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotConnected
	}
	s.logger.Info("platform disconnected", slog.String("user_id", userID), slog.String("platform", string(p)))
	return nil
}

// ActiveLink returns the active link for the user and platform, or
// ErrNotConnected.
func (s *Service) ActiveLink(ctx context.Context, userID string, p platform.Platform) (PlatformLink, error) {
	uid, err := db.ParseUUID(userID)
	if err != nil {
		return PlatformLink{}, fmt.Errorf("invalid user id: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		SELECT `+linkColumns+` FROM platform_links
		WHERE user_id = $1 AND platform = $2 AND is_active`,
		uid, string(p))
	l, err := scanLink(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return PlatformLink{}, ErrNotConnected
	}
	if err != nil {
		return PlatformLink{}, fmt.Errorf("get link %s: %w", p, err)
	}
	return l, nil
}

// ResolveOwner maps an inbound recipient account to the owning user. An empty
// string with nil error means no owner is linked and the message should be
// stored orphaned.
func (s *Service) ResolveOwner(ctx context.Context, p platform.Platform, externalAccountID string) (string, error) {
	if externalAccountID == "" {
		return "", nil
	}
	var userID string
	err := s.pool.QueryRow(ctx, `
		SELECT user_id FROM platform_links
		WHERE platform = $1 AND external_account_id = $2 AND is_active
		ORDER BY updated_at DESC LIMIT 1`,
		string(p), externalAccountID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve owner %s: %w", p, err)
	}
	return userID, nil
}

// ListActive returns every active link for a platform, for the sync sweep.
func (s *Service) ListActive(ctx context.Context, p platform.Platform) ([]PlatformLink, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+linkColumns+` FROM platform_links
		WHERE platform = $1 AND is_active ORDER BY created_at`,
		string(p))
	if err != nil {
		return nil, fmt.Errorf("list links %s: %w", p, err)
	}
	defer rows.Close()
	var links []PlatformLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// TouchSynced records the completion time of a pull cycle.
func (s *Service) TouchSynced(ctx context.Context, linkID string, at time.Time) error {
	id, err := db.ParseUUID(linkID)
	if err != nil {
		return fmt.Errorf("invalid link id: %w", err)
	}
	_, err = s.pool.Exec(ctx, `UPDATE platform_links SET synced_at = $2 WHERE id = $1`, id, at)
	return err
}

func scanLink(row pgx.Row) (PlatformLink, error) {
	var l PlatformLink
	var rawPlatform string
	if err := row.Scan(&l.ID, &l.UserID, &rawPlatform, &l.AccessToken, &l.ExternalAccountID,
		&l.IsActive, &l.SyncedAt, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return PlatformLink{}, err
	}
	l.Platform = platform.Platform(rawPlatform)
	return l, nil
}
