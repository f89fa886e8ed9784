package thread

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	dbpkg "github.com/pagebridge/pagebridge/internal/db"
)

// PGStore is the Postgres-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) LatestAnchor(ctx context.Context, customerID int64, pageID string) (Anchor, bool, error) {
	var (
		anchor    Anchor
		createdAt pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx,
		`SELECT anchor_message_id, created_at
		 FROM conversation_threads
		 WHERE customer_id = $1 AND page_id = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		customerID, pageID,
	).Scan(&anchor.MessageID, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Anchor{}, false, nil
	}
	if err != nil {
		return Anchor{}, false, err
	}
	anchor.CreatedAt = createdAt.Time
	return anchor, true, nil
}

func (s *PGStore) InsertAnchor(ctx context.Context, customerID int64, pageID string, messageID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversation_threads (customer_id, page_id, anchor_message_id)
		 VALUES ($1, $2, $3)`,
		customerID, pageID, messageID,
	)
	return err
}

func (s *PGStore) UpsertMapping(ctx context.Context, m Mapping) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversation_mappings
		 (telegram_message_id, page_id, fb_user_id, customer_id, detected_language)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (telegram_message_id) DO UPDATE
		 SET page_id = $2, fb_user_id = $3, customer_id = $4, detected_language = $5`,
		m.TelegramMessageID, m.PageID, m.FBUserID, nullableID(m.CustomerID), dbpkg.ToPgText(m.Language),
	)
	return err
}

func (s *PGStore) GetMapping(ctx context.Context, telegramMessageID int64) (Mapping, bool, error) {
	var (
		m          Mapping
		customerID pgtype.Int8
		language   pgtype.Text
	)
	err := s.pool.QueryRow(ctx,
		`SELECT telegram_message_id, page_id, fb_user_id, customer_id, detected_language
		 FROM conversation_mappings WHERE telegram_message_id = $1`,
		telegramMessageID,
	).Scan(&m.TelegramMessageID, &m.PageID, &m.FBUserID, &customerID, &language)
	if errors.Is(err, pgx.ErrNoRows) {
		return Mapping{}, false, nil
	}
	if err != nil {
		return Mapping{}, false, err
	}
	m.CustomerID = customerID.Int64
	m.Language = dbpkg.TextToString(language)
	return m, true, nil
}

// nullableID maps a synthetic customer's zero id to NULL so the foreign key
// does not reject the mapping of a degraded inbound message.
func nullableID(id int64) pgtype.Int8 {
	if id == 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: id, Valid: true}
}
