package customer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ProfileFetcher looks up display information on the customer channel.
// Failures are tolerated: resolution degrades to a placeholder name.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, userID, pageToken string) (string, error)
}

// Store is the persistence dependency of Service.
type Store interface {
	GetByExternalID(ctx context.Context, fbUserID, pageID string) (Customer, error)
	// InsertIgnoreConflict inserts the customer and returns the stored row.
	// When another resolver won the creation race, it returns ErrConflict
	// without a row; the uniqueness constraint on (fb_user_id, page_id) is
	// the arbiter, not application locking.
	InsertIgnoreConflict(ctx context.Context, c Customer) (Customer, error)
}

var (
	// ErrNotFound is returned by stores when no customer row matches.
	ErrNotFound = pgx.ErrNoRows
	// ErrConflict signals a lost creation race; the caller reads back the
	// winner's row.
	ErrConflict = errors.New("customer already exists")
)

// Service resolves inbound (page, user) pairs to durable Customer records,
// creating one on first contact.
type Service struct {
	store    Store
	profiles ProfileFetcher
	logger   *slog.Logger
}

// NewService creates a customer identity service.
func NewService(log *slog.Logger, store Store, profiles ProfileFetcher) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		profiles: profiles,
		logger:   log.With(slog.String("service", "customer")),
	}
}

// Resolve returns the Customer for (pageID, fbUserID), creating it on first
// contact. Profile lookup failure degrades to a placeholder name and never
// fails the resolve; a storage failure is returned and the caller should fall
// back to a synthetic record via Fallback.
func (s *Service) Resolve(ctx context.Context, pageID, fbUserID, pageToken string) (Customer, error) {
	existing, err := s.store.GetByExternalID(ctx, fbUserID, pageID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Customer{}, fmt.Errorf("lookup customer: %w", err)
	}

	name := s.fetchName(ctx, fbUserID, pageToken)
	created, err := s.store.InsertIgnoreConflict(ctx, Customer{
		FBUserID: fbUserID,
		PageID:   pageID,
		Name:     name,
	})
	if err == nil {
		s.logger.Info("customer created",
			slog.Int64("customer_id", created.ID),
			slog.String("page_id", pageID),
			slog.String("name", created.Name),
		)
		return created, nil
	}
	if errors.Is(err, ErrConflict) {
		// Lost the first-contact race; the winner's row is authoritative.
		winner, readErr := s.store.GetByExternalID(ctx, fbUserID, pageID)
		if readErr != nil {
			return Customer{}, fmt.Errorf("read back customer after conflict: %w", readErr)
		}
		return winner, nil
	}
	return Customer{}, fmt.Errorf("create customer: %w", err)
}

// Fallback builds a synthetic, unpersisted Customer so the relay can proceed
// when storage is down.
func (s *Service) Fallback(pageID, fbUserID string) Customer {
	return Fallback(pageID, fbUserID)
}

// Fallback is the package-level form of Service.Fallback.
func Fallback(pageID, fbUserID string) Customer {
	return Customer{
		FBUserID:  fbUserID,
		PageID:    pageID,
		Name:      PlaceholderName(fbUserID),
		Synthetic: true,
	}
}

func (s *Service) fetchName(ctx context.Context, fbUserID, pageToken string) string {
	if s.profiles == nil {
		return PlaceholderName(fbUserID)
	}
	name, err := s.profiles.FetchProfile(ctx, fbUserID, pageToken)
	if err != nil || strings.TrimSpace(name) == "" {
		if err != nil {
			s.logger.Warn("profile lookup failed", slog.String("fb_user_id", fbUserID), slog.Any("error", err))
		}
		return PlaceholderName(fbUserID)
	}
	return strings.TrimSpace(name)
}

// PlaceholderName derives a deterministic display name from the trailing
// characters of the external id.
func PlaceholderName(fbUserID string) string {
	return "Guest #" + TailID(fbUserID)
}

// TailID returns the last six characters of an external id, used as a short
// human-readable handle in operator messages.
func TailID(fbUserID string) string {
	if len(fbUserID) <= 6 {
		return fbUserID
	}
	return fbUserID[len(fbUserID)-6:]
}
