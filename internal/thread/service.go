package thread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// FreshnessWindow is how long an anchor keeps a conversation grouped in the
// operator group. An anchor aged exactly the window is expired; strictly
// younger is active. Replying in an old thread does not renew the clock.
const FreshnessWindow = 48 * time.Hour

// ErrMappingNotFound is returned when a Telegram message id has no recorded
// customer mapping.
var ErrMappingNotFound = errors.New("message mapping not found")

// Anchor is the operator-group message a conversation is threaded under.
type Anchor struct {
	MessageID int64
	CreatedAt time.Time
}

// Mapping links one operator-group message back to its originating customer
// conversation.
type Mapping struct {
	TelegramMessageID int64
	PageID            string
	FBUserID          string
	CustomerID        int64
	Language          string
}

// Store is the persistence dependency of Service.
type Store interface {
	// LatestAnchor returns the newest anchor for (customerID, pageID), found
	// reporting whether any exists. Freshness is judged by the service.
	LatestAnchor(ctx context.Context, customerID int64, pageID string) (Anchor, bool, error)
	InsertAnchor(ctx context.Context, customerID int64, pageID string, messageID int64) error
	UpsertMapping(ctx context.Context, m Mapping) error
	GetMapping(ctx context.Context, telegramMessageID int64) (Mapping, bool, error)
}

// Service decides whether an inbound message joins an existing operator-group
// thread or opens a new one, and owns the message-to-customer mappings.
type Service struct {
	store  Store
	window time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a thread correlation service with the default window.
func NewService(log *slog.Logger, store Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		window: FreshnessWindow,
		logger: log.With(slog.String("service", "thread")),
		now:    time.Now,
	}
}

// FindActiveAnchor returns the anchor message id for (customerID, pageID) if
// one exists within the freshness window, along with its age.
func (s *Service) FindActiveAnchor(ctx context.Context, customerID int64, pageID string) (int64, time.Duration, bool, error) {
	anchor, found, err := s.store.LatestAnchor(ctx, customerID, pageID)
	if err != nil {
		return 0, 0, false, fmt.Errorf("latest anchor: %w", err)
	}
	if !found {
		return 0, 0, false, nil
	}
	age := s.now().Sub(anchor.CreatedAt)
	if age >= s.window {
		return 0, 0, false, nil
	}
	return anchor.MessageID, age, true, nil
}

// RecordAnchor persists a newly opened thread anchor. Anchors are immutable;
// a later one supersedes only once the window lapses.
func (s *Service) RecordAnchor(ctx context.Context, customerID int64, pageID string, messageID int64) error {
	if err := s.store.InsertAnchor(ctx, customerID, pageID, messageID); err != nil {
		return fmt.Errorf("record anchor: %w", err)
	}
	s.logger.Info("thread anchor opened",
		slog.Int64("customer_id", customerID),
		slog.String("page_id", pageID),
		slog.Int64("anchor_message_id", messageID),
	)
	return nil
}

// RecordMapping upserts the mapping for an operator-group message id.
// Re-recording the same id overwrites the payload rather than duplicating.
func (s *Service) RecordMapping(ctx context.Context, m Mapping) error {
	if err := s.store.UpsertMapping(ctx, m); err != nil {
		return fmt.Errorf("record mapping: %w", err)
	}
	return nil
}

// Mapping resolves an operator-group message id back to its customer
// conversation, or ErrMappingNotFound.
func (s *Service) Mapping(ctx context.Context, telegramMessageID int64) (Mapping, error) {
	m, found, err := s.store.GetMapping(ctx, telegramMessageID)
	if err != nil {
		return Mapping{}, fmt.Errorf("get mapping: %w", err)
	}
	if !found {
		return Mapping{}, ErrMappingNotFound
	}
	return m, nil
}
