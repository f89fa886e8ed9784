package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Sender roles recorded per entry.
const (
	SenderCustomer = "customer"
	SenderOperator = "operator"
)

// Entry is one append-only record of a message attributable to a customer.
// Entries are written once and never mutated.
type Entry struct {
	ID             string
	CustomerID     int64
	Sender         string
	Text           string
	MediaKind      string
	MediaRef       string
	TranslatedText string
	CreatedAt      time.Time
}

// Store is the persistence dependency of Service.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	ListSince(ctx context.Context, customerID int64, since time.Time) ([]Entry, error)
}

// Service owns the append-only message ledger used for history retrieval.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a ledger service.
func NewService(log *slog.Logger, store Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		logger: log.With(slog.String("service", "ledger")),
	}
}

// Append records one entry. Synthetic customers (zero id) are skipped: there
// is no durable identity to attribute the entry to.
func (s *Service) Append(ctx context.Context, e Entry) error {
	if e.CustomerID == 0 {
		s.logger.Debug("skip ledger append for synthetic customer")
		return nil
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := s.store.Insert(ctx, e); err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

// ListSince returns the customer's entries created at or after since, oldest
// first. A zero since returns the full history.
func (s *Service) ListSince(ctx context.Context, customerID int64, since time.Time) ([]Entry, error) {
	entries, err := s.store.ListSince(ctx, customerID, since)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}
