package pending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagebridge/pagebridge/internal/ledger"
)

// ErrNotFound is returned by Confirm for unknown, already-confirmed, and
// cancelled tokens alike. The three cases are indistinguishable on purpose:
// the caller learns nothing about internal state beyond "not confirmable".
var ErrNotFound = errors.New("pending reply not found")

// Reply is one staged outbound message awaiting operator confirmation.
type Reply struct {
	Token          string
	PageID         string
	FBUserID       string
	OriginalText   string
	TranslatedText string
	CreatedAt      time.Time
}

// Translator produces the customer-facing text for a staged reply.
type Translator interface {
	ToCustomer(ctx context.Context, text string) string
}

// Deliverer sends a confirmed reply over the customer channel.
type Deliverer interface {
	SendText(ctx context.Context, pageID, fbUserID, text string) (string, error)
}

// Ledger records delivered replies.
type Ledger interface {
	Append(ctx context.Context, e ledger.Entry) error
}

// Store is the persistence dependency of Service.
type Store interface {
	Insert(ctx context.Context, r Reply) error
	GetByToken(ctx context.Context, token string) (Reply, bool, error)
	Delete(ctx context.Context, token string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service stages translated drafts and drives the confirm/cancel state
// machine: none → pending → sent|cancelled.
type Service struct {
	store      Store
	translator Translator
	deliverer  Deliverer
	ledger     Ledger
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a pending-reply service.
func NewService(log *slog.Logger, store Store, translator Translator, deliverer Deliverer, ledgerSvc Ledger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:      store,
		translator: translator,
		deliverer:  deliverer,
		ledger:     ledgerSvc,
		logger:     log.With(slog.String("service", "pending")),
		now:        time.Now,
	}
}

// Stage translates the operator's draft and persists it under a fresh
// confirmation token. Translation failure falls back to the original text
// inside the translator and is never fatal here.
func (s *Service) Stage(ctx context.Context, pageID, fbUserID, text string) (Reply, error) {
	reply := Reply{
		Token:          Token(s.now(), fbUserID),
		PageID:         pageID,
		FBUserID:       fbUserID,
		OriginalText:   text,
		TranslatedText: s.translator.ToCustomer(ctx, text),
		CreatedAt:      s.now(),
	}
	if err := s.store.Insert(ctx, reply); err != nil {
		return Reply{}, fmt.Errorf("stage reply: %w", err)
	}
	s.logger.Info("reply staged",
		slog.String("token", reply.Token),
		slog.String("page_id", pageID),
	)
	return reply, nil
}

// Confirm delivers the staged reply for token to the customer channel. On
// delivery success the row is consumed and an operator ledger entry appended;
// on delivery failure the row is left intact so the same token can be
// retried. A storage failure while consuming the row is reported, never
// swallowed: the operator must not see "sent" when the send was not recorded.
func (s *Service) Confirm(ctx context.Context, token string, customerID int64) (Reply, error) {
	reply, found, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return Reply{}, fmt.Errorf("load pending reply: %w", err)
	}
	if !found {
		return Reply{}, ErrNotFound
	}
	if _, err := s.deliverer.SendText(ctx, reply.PageID, reply.FBUserID, reply.TranslatedText); err != nil {
		return Reply{}, fmt.Errorf("deliver reply: %w", err)
	}
	if err := s.store.Delete(ctx, token); err != nil {
		return Reply{}, fmt.Errorf("consume pending reply: %w", err)
	}
	if s.ledger != nil {
		if err := s.ledger.Append(ctx, ledger.Entry{
			CustomerID:     customerID,
			Sender:         ledger.SenderOperator,
			Text:           reply.OriginalText,
			TranslatedText: reply.TranslatedText,
		}); err != nil {
			s.logger.Warn("ledger append after send failed", slog.Any("error", err))
		}
	}
	s.logger.Info("reply sent", slog.String("token", token))
	return reply, nil
}

// Cancel discards the staged reply for token. Cancelling an unknown or
// already-consumed token is not an error.
func (s *Service) Cancel(ctx context.Context, token string) error {
	if err := s.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("cancel pending reply: %w", err)
	}
	return nil
}

// SweepOlderThan deletes staged replies older than maxAge and returns how
// many were removed.
func (s *Service) SweepOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge)
	removed, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep pending replies: %w", err)
	}
	if removed > 0 {
		s.logger.Info("stale pending replies removed", slog.Int64("count", removed))
	}
	return removed, nil
}

// Token builds a confirmation token from the staging instant and the external
// user id. Uniqueness is structural, not cryptographic: this is an
// operator-facing workflow inside a private group, not a public surface.
func Token(at time.Time, fbUserID string) string {
	return fmt.Sprintf("%d_%s", at.UnixMilli(), fbUserID)
}
