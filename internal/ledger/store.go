package ledger

import (
	"context"
	"time"

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

func (s *PGStore) Insert(ctx context.Context, e Entry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, customer_id, sender, content, media_kind, media_ref, translated_text)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.CustomerID, e.Sender, e.Text,
		dbpkg.ToPgText(e.MediaKind), dbpkg.ToPgText(e.MediaRef), dbpkg.ToPgText(e.TranslatedText),
	)
	return err
}

func (s *PGStore) ListSince(ctx context.Context, customerID int64, since time.Time) ([]Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, customer_id, sender, content, media_kind, media_ref, translated_text, created_at
		 FROM messages
		 WHERE customer_id = $1 AND created_at >= $2
		 ORDER BY created_at ASC`,
		customerID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			mediaKind  pgtype.Text
			mediaRef   pgtype.Text
			translated pgtype.Text
			createdAt  pgtype.Timestamptz
		)
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.Sender, &e.Text, &mediaKind, &mediaRef, &translated, &createdAt); err != nil {
			return nil, err
		}
		e.MediaKind = dbpkg.TextToString(mediaKind)
		e.MediaRef = dbpkg.TextToString(mediaRef)
		e.TranslatedText = dbpkg.TextToString(translated)
		e.CreatedAt = createdAt.Time
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
