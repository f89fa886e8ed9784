// Package catalog owns the operator reference data: customer labels and
// canned quick replies. Both are simple lookup tables maintained through the
// HTTP CRUD surface and consumed by the relay.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrNotFound is returned when a label or quick reply does not exist.
var ErrNotFound = errors.New("catalog item not found")

// Label is a colored tag operators attach to customers.
type Label struct {
	ID    int64
	Name  string
	Emoji string
	Color string
}

// QuickReply is a canned reply with one text variant per supported customer
// language.
type QuickReply struct {
	ID     int64
	Key    string
	Emoji  string
	TextVI string
	TextEN string
}

// Text returns the language-appropriate variant: Vietnamese customers get the
// Vietnamese text, everyone else the English one.
func (q QuickReply) Text(lang string) string {
	if strings.EqualFold(lang, "vi") {
		return q.TextVI
	}
	return q.TextEN
}

// Store is the persistence dependency of Service.
type Store interface {
	ListLabels(ctx context.Context) ([]Label, error)
	CreateLabel(ctx context.Context, l Label) (Label, error)
	DeleteLabel(ctx context.Context, id int64) error
	CustomerLabels(ctx context.Context, customerID int64) ([]Label, error)
	AttachLabel(ctx context.Context, customerID int64, labelName string) error

	ListQuickReplies(ctx context.Context) ([]QuickReply, error)
	GetQuickReply(ctx context.Context, id int64) (QuickReply, bool, error)
	CreateQuickReply(ctx context.Context, q QuickReply) (QuickReply, error)
	DeleteQuickReply(ctx context.Context, id int64) error
}

// Service exposes label and quick-reply reference data.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a catalog service.
func NewService(log *slog.Logger, store Store) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		logger: log.With(slog.String("service", "catalog")),
	}
}

func (s *Service) ListLabels(ctx context.Context) ([]Label, error) {
	return s.store.ListLabels(ctx)
}

func (s *Service) CreateLabel(ctx context.Context, l Label) (Label, error) {
	return s.store.CreateLabel(ctx, l)
}

func (s *Service) DeleteLabel(ctx context.Context, id int64) error {
	return s.store.DeleteLabel(ctx, id)
}

// CustomerLabels returns the labels attached to a customer. Failures degrade
// to an empty list so an unavailable catalog never blocks the relay.
func (s *Service) CustomerLabels(ctx context.Context, customerID int64) []Label {
	if customerID == 0 {
		return nil
	}
	labels, err := s.store.CustomerLabels(ctx, customerID)
	if err != nil {
		s.logger.Warn("list customer labels failed", slog.Int64("customer_id", customerID), slog.Any("error", err))
		return nil
	}
	return labels
}

func (s *Service) AttachLabel(ctx context.Context, customerID int64, labelName string) error {
	if err := s.store.AttachLabel(ctx, customerID, labelName); err != nil {
		return fmt.Errorf("attach label %q: %w", labelName, err)
	}
	return nil
}

func (s *Service) ListQuickReplies(ctx context.Context) ([]QuickReply, error) {
	return s.store.ListQuickReplies(ctx)
}

func (s *Service) QuickReply(ctx context.Context, id int64) (QuickReply, error) {
	q, found, err := s.store.GetQuickReply(ctx, id)
	if err != nil {
		return QuickReply{}, fmt.Errorf("get quick reply: %w", err)
	}
	if !found {
		return QuickReply{}, ErrNotFound
	}
	return q, nil
}

func (s *Service) CreateQuickReply(ctx context.Context, q QuickReply) (QuickReply, error) {
	return s.store.CreateQuickReply(ctx, q)
}

func (s *Service) DeleteQuickReply(ctx context.Context, id int64) error {
	return s.store.DeleteQuickReply(ctx, id)
}
