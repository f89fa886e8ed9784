package pending

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Insert(ctx context.Context, r Reply) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pending_replies (confirm_token, page_id, fb_user_id, original_text, translated_text, status)
		 VALUES ($1, $2, $3, $4, $5, 'pending')`,
		r.Token, r.PageID, r.FBUserID, r.OriginalText, r.TranslatedText,
	)
	return err
}

func (s *PGStore) GetByToken(ctx context.Context, token string) (Reply, bool, error) {
	var (
		r         Reply
		createdAt pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx,
		`SELECT confirm_token, page_id, fb_user_id, original_text, translated_text, created_at
		 FROM pending_replies WHERE confirm_token = $1 AND status = 'pending'`,
		token,
	).Scan(&r.Token, &r.PageID, &r.FBUserID, &r.OriginalText, &r.TranslatedText, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Reply{}, false, nil
	}
	if err != nil {
		return Reply{}, false, err
	}
	r.CreatedAt = createdAt.Time
	return r, true, nil
}

func (s *PGStore) Delete(ctx context.Context, token string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM pending_replies WHERE confirm_token = $1`, token)
	return err
}

func (s *PGStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pending_replies WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
