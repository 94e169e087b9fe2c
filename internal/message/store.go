package message

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/uniboxhq/unibox/internal/db"
	"github.com/uniboxhq/unibox/internal/platform"
)

const messageColumns = `id, owner_user_id, platform, external_message_id, sender_external_id,
sender_display_name, recipient_external_id, content_text, content_type, media_ref,
occurred_at, stored_at`

// DBStore is the Postgres-backed message store.
type DBStore struct {
	pool *pgxpool.Pool
}

// NewStore creates a DBStore on the given pool.
func NewStore(pool *pgxpool.Pool) *DBStore {
	return &DBStore{pool: pool}
}

// InsertIfAbsent writes the message unless its (platform, external_message_id)
// pair already exists, in which case the existing row is returned. The dedup
// is enforced by the partial unique index, so concurrent inserts across
// process instances resolve in the database, not in process memory.
func (s *DBStore) InsertIfAbsent(ctx context.Context, msg PersistedMessage) (PersistedMessage, bool, error) {
	owner, err := dbpkg.ParseOptionalUUID(msg.OwnerUserID)
	if err != nil {
		return PersistedMessage{}, false, fmt.Errorf("invalid owner user id: %w", err)
	}

	hasDedupKey := msg.ExternalMessageID != ""
	query := `INSERT INTO messages (owner_user_id, platform, external_message_id, sender_external_id,
sender_display_name, recipient_external_id, content_text, content_type, media_ref, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + messageColumns
	if hasDedupKey {
		query = `INSERT INTO messages (owner_user_id, platform, external_message_id, sender_external_id,
sender_display_name, recipient_external_id, content_text, content_type, media_ref, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (platform, external_message_id) WHERE external_message_id <> '' DO NOTHING
RETURNING ` + messageColumns
	}

	row := s.pool.QueryRow(ctx, query,
		owner,
		msg.Platform.String(),
		msg.ExternalMessageID,
		msg.SenderExternalID,
		msg.SenderDisplayName,
		msg.RecipientExternalID,
		msg.ContentText,
		string(msg.ContentType),
		msg.MediaRef,
		msg.OccurredAt,
	)
	stored, err := scanMessage(row)
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) || !hasDedupKey {
		return PersistedMessage{}, false, err
	}

	// Conflict: another delivery won the insert. Return the winner.
	existing := s.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE platform = $1 AND external_message_id = $2`,
		msg.Platform.String(), msg.ExternalMessageID,
	)
	stored, err = scanMessage(existing)
	if err != nil {
		return PersistedMessage{}, false, fmt.Errorf("load existing message: %w", err)
	}
	return stored, false, nil
}

// ListInbox returns the user's messages across platforms in unified inbox
// order: occurred_at, then stored_at, then id, all descending.
func (s *DBStore) ListInbox(ctx context.Context, query InboxQuery) ([]PersistedMessage, error) {
	owner, err := dbpkg.ParseUUID(query.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id: %w", err)
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}

	var platformFilter []string
	for _, p := range query.Platforms {
		platformFilter = append(platformFilter, p.String())
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages
WHERE owner_user_id = $1
  AND ($2::text[] IS NULL OR platform = ANY($2))
ORDER BY occurred_at DESC, stored_at DESC, id DESC
LIMIT $3`,
		owner, platformFilter, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]PersistedMessage, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func scanMessage(row pgx.Row) (PersistedMessage, error) {
	var (
		id          pgtype.UUID
		owner       pgtype.UUID
		p           string
		contentType string
		msg         PersistedMessage
		occurredAt  pgtype.Timestamptz
		storedAt    pgtype.Timestamptz
	)
	err := row.Scan(
		&id,
		&owner,
		&p,
		&msg.ExternalMessageID,
		&msg.SenderExternalID,
		&msg.SenderDisplayName,
		&msg.RecipientExternalID,
		&msg.ContentText,
		&contentType,
		&msg.MediaRef,
		&occurredAt,
		&storedAt,
	)
	if err != nil {
		return PersistedMessage{}, err
	}
	msg.ID = dbpkg.UUIDToString(id)
	msg.OwnerUserID = dbpkg.UUIDToString(owner)
	msg.Platform = platform.Platform(p)
	msg.ContentType = platform.ContentType(contentType)
	msg.OccurredAt = occurredAt.Time
	msg.StoredAt = storedAt.Time
	return msg, nil
}
