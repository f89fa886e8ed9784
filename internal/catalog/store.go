package catalog

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

func (s *PGStore) ListLabels(ctx context.Context) ([]Label, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, emoji, color FROM labels ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLabels(rows)
}

func (s *PGStore) CreateLabel(ctx context.Context, l Label) (Label, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO labels (name, emoji, color) VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO UPDATE SET emoji = $2, color = $3
		 RETURNING id`,
		l.Name, dbpkg.ToPgText(l.Emoji), dbpkg.ToPgText(l.Color),
	).Scan(&l.ID)
	return l, err
}

func (s *PGStore) DeleteLabel(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM labels WHERE id = $1`, id)
	return err
}

func (s *PGStore) CustomerLabels(ctx context.Context, customerID int64) ([]Label, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT l.id, l.name, l.emoji, l.color
		 FROM labels l
		 JOIN customer_labels cl ON l.id = cl.label_id
		 WHERE cl.customer_id = $1
		 ORDER BY l.name`,
		customerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLabels(rows)
}

func (s *PGStore) AttachLabel(ctx context.Context, customerID int64, labelName string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO customer_labels (customer_id, label_id)
		 SELECT $1, id FROM labels WHERE name = $2
		 ON CONFLICT DO NOTHING`,
		customerID, labelName,
	)
	return err
}

func (s *PGStore) ListQuickReplies(ctx context.Context) ([]QuickReply, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, key, emoji, text_vi, text_en FROM quick_replies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var replies []QuickReply
	for rows.Next() {
		q, err := scanQuickReply(rows)
		if err != nil {
			return nil, err
		}
		replies = append(replies, q)
	}
	return replies, rows.Err()
}

func (s *PGStore) GetQuickReply(ctx context.Context, id int64) (QuickReply, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, key, emoji, text_vi, text_en FROM quick_replies WHERE id = $1`, id)
	q, err := scanQuickReply(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return QuickReply{}, false, nil
	}
	if err != nil {
		return QuickReply{}, false, err
	}
	return q, true, nil
}

func (s *PGStore) CreateQuickReply(ctx context.Context, q QuickReply) (QuickReply, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO quick_replies (key, emoji, text_vi, text_en) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (key) DO UPDATE SET emoji = $2, text_vi = $3, text_en = $4
		 RETURNING id`,
		q.Key, dbpkg.ToPgText(q.Emoji), q.TextVI, q.TextEN,
	).Scan(&q.ID)
	return q, err
}

func (s *PGStore) DeleteQuickReply(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM quick_replies WHERE id = $1`, id)
	return err
}

func scanLabels(rows pgx.Rows) ([]Label, error) {
	var labels []Label
	for rows.Next() {
		var (
			l     Label
			emoji pgtype.Text
			color pgtype.Text
		)
		if err := rows.Scan(&l.ID, &l.Name, &emoji, &color); err != nil {
			return nil, err
		}
		l.Emoji = dbpkg.TextToString(emoji)
		l.Color = dbpkg.TextToString(color)
		labels = append(labels, l)
	}
	return labels, rows.Err()
}

func scanQuickReply(row pgx.Row) (QuickReply, error) {
	var (
		q     QuickReply
		emoji pgtype.Text
	)
	if err := row.Scan(&q.ID, &q.Key, &emoji, &q.TextVI, &q.TextEN); err != nil {
		return QuickReply{}, err
	}
	q.Emoji = dbpkg.TextToString(emoji)
	return q, nil
}
