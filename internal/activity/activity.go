// Package activity records user-facing audit events: logins, sends, platform
// connects and disconnects.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uniboxhq/unibox/internal/db"
)

// Well-known actions. Free-form actions are allowed; these cover the built-in
// flows.
const (
	ActionLogin      = "login"
	ActionRegister   = "register"
	ActionSend       = "send_message"
	ActionConnect    = "connect_platform"
	ActionDisconnect = "disconnect_platform"
)

// Entry is one recorded event.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Action    string    `json:"action"`
	Platform  string    `json:"platform,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder is the write side, consumed by services that emit events.
type Recorder interface {
	Record(ctx context.Context, userID, action, platformName, details string)
}

// Service persists activity entries. Record never fails the caller: audit
// trail writes are best effort and only logged on error.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "activity")),
	}
}

func (s *Service) Record(ctx context.Context, userID, action, platformName, details string) {
	uid, err := db.ParseOptionalUUID(userID)
	if err != nil {
		s.logger.Warn("invalid user id in activity record", slog.String("user_id", userID))
		uid = pgtype.UUID{}
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO activity_logs (user_id, action, platform, details)
		VALUES ($1, $2, $3, $4)`,
		uid, action, platformName, details)
	if err != nil {
		s.logger.Warn("record activity failed",
			slog.String("action", action),
			slog.Any("error", err))
	}
}

// ListForUser returns recent activity entries for a user, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string, limit int32) ([]Entry, error) {
	uid, err := db.ParseUUID(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, coalesce(user_id::text, ''), action, platform, details, created_at
		FROM activity_logs WHERE user_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2`,
		uid, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Platform, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
