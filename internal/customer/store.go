package customer

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

func (s *PGStore) GetByExternalID(ctx context.Context, fbUserID, pageID string) (Customer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, fb_user_id, page_id, name, avatar, created_at
		 FROM customers WHERE fb_user_id = $1 AND page_id = $2`,
		fbUserID, pageID,
	)
	return scanCustomer(row)
}

func (s *PGStore) InsertIgnoreConflict(ctx context.Context, c Customer) (Customer, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO customers (fb_user_id, page_id, name, avatar)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (fb_user_id, page_id) DO NOTHING
		 RETURNING id, fb_user_id, page_id, name, avatar, created_at`,
		c.FBUserID, c.PageID, dbpkg.ToPgText(c.Name), dbpkg.ToPgText(c.Avatar),
	)
	created, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// DO NOTHING swallowed the insert: another resolver won the race.
		return Customer{}, ErrConflict
	}
	return created, err
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var (
		c         Customer
		name      pgtype.Text
		avatar    pgtype.Text
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&c.ID, &c.FBUserID, &c.PageID, &name, &avatar, &createdAt); err != nil {
		return Customer{}, err
	}
	c.Name = dbpkg.TextToString(name)
	c.Avatar = dbpkg.TextToString(avatar)
	c.CreatedAt = createdAt.Time
	return c, nil
}
