package pending

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagebridge/pagebridge/internal/ledger"
)

type fakeStore struct {
	rows      map[string]Reply
	insertErr error
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]Reply{}}
}

func (f *fakeStore) Insert(_ context.Context, r Reply) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.rows[r.Token] = r
	return nil
}

func (f *fakeStore) GetByToken(_ context.Context, token string) (Reply, bool, error) {
	r, ok := f.rows[token]
	return r, ok, nil
}

func (f *fakeStore) Delete(_ context.Context, token string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.rows, token)
	return nil
}

func (f *fakeStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	for token, r := range f.rows {
		if r.CreatedAt.Before(cutoff) {
			delete(f.rows, token)
			removed++
		}
	}
	return removed, nil
}

type fakeTranslator struct {
	fail bool
}

func (f *fakeTranslator) ToCustomer(_ context.Context, text string) string {
	if f.fail {
		return text
	}
	return "translated: " + text
}

type fakeDeliverer struct {
	err   error
	sent  []string
	calls int
}

func (f *fakeDeliverer) SendText(_ context.Context, _, _, text string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, text)
	return "mid.123", nil
}

type fakeLedger struct {
	entries []ledger.Entry
}

func (f *fakeLedger) Append(_ context.Context, e ledger.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

func newTestService(store Store, deliverer Deliverer, lg Ledger) *Service {
	return NewService(nil, store, &fakeTranslator{}, deliverer, lg)
}

func TestStagePersistsTranslatedDraft(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := newTestService(store, &fakeDeliverer{}, nil)

	reply, err := svc.Stage(context.Background(), "p1", "u99", "Xin chào")
	require.NoError(t, err)
	assert.Equal(t, "Xin chào", reply.OriginalText)
	assert.Equal(t, "translated: Xin chào", reply.TranslatedText)
	assert.NotEmpty(t, reply.Token)

	stored, ok := store.rows[reply.Token]
	require.True(t, ok)
	assert.Equal(t, reply.TranslatedText, stored.TranslatedText)
}

func TestStageTranslationFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := NewService(nil, store, &fakeTranslator{fail: true}, &fakeDeliverer{}, nil)

	reply, err := svc.Stage(context.Background(), "p1", "u99", "Xin chào")
	require.NoError(t, err)
	assert.Equal(t, "Xin chào", reply.TranslatedText, "falls back to the original text")
}

func TestConfirmDeliversAndConsumes(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	deliverer := &fakeDeliverer{}
	lg := &fakeLedger{}
	svc := newTestService(store, deliverer, lg)

	reply, err := svc.Stage(context.Background(), "p1", "u99", "Xin chào")
	require.NoError(t, err)

	confirmed, err := svc.Confirm(context.Background(), reply.Token, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"translated: Xin chào"}, deliverer.sent)
	assert.Equal(t, confirmed.TranslatedText, "translated: Xin chào")
	assert.Empty(t, store.rows, "row consumed after send")

	require.Len(t, lg.entries, 1)
	assert.Equal(t, ledger.SenderOperator, lg.entries[0].Sender)
	assert.Equal(t, int64(7), lg.entries[0].CustomerID)

	// Second confirm of the same token is indistinguishable from a token
	// that never existed.
	_, err = svc.Confirm(context.Background(), reply.Token, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmUnknownToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeStore(), &fakeDeliverer{}, nil)
	_, err := svc.Confirm(context.Background(), "1712345678_u99", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmDeliveryFailureKeepsRow(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	deliverer := &fakeDeliverer{err: errors.New("graph api 500")}
	svc := newTestService(store, deliverer, nil)

	reply, err := svc.Stage(context.Background(), "p1", "u99", "Xin chào")
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), reply.Token, 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, store.rows, reply.Token, "row kept so the operator can retry")

	// Retry with the same token succeeds once delivery recovers.
	deliverer.err = nil
	_, err = svc.Confirm(context.Background(), reply.Token, 1)
	require.NoError(t, err)
	assert.Empty(t, store.rows)
}

func TestConfirmConsumeFailureIsReported(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := newTestService(store, &fakeDeliverer{}, nil)

	reply, err := svc.Stage(context.Background(), "p1", "u99", "Xin chào")
	require.NoError(t, err)

	store.deleteErr = errors.New("connection reset")
	_, err = svc.Confirm(context.Background(), reply.Token, 1)
	require.Error(t, err, "a storage failure during confirm must not be swallowed")
}

func TestCancelIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := newTestService(store, &fakeDeliverer{}, nil)

	reply, err := svc.Stage(context.Background(), "p1", "u99", "Xin chào")
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(context.Background(), reply.Token))
	require.NoError(t, svc.Cancel(context.Background(), reply.Token))
	require.NoError(t, svc.Cancel(context.Background(), "never-existed"))
	assert.Empty(t, store.rows)
}

func TestSweepOlderThan(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := newTestService(store, &fakeDeliverer{}, nil)
	now := time.Now()
	svc.now = func() time.Time { return now }

	store.rows["old"] = Reply{Token: "old", CreatedAt: now.Add(-25 * time.Hour)}
	store.rows["fresh"] = Reply{Token: "fresh", CreatedAt: now.Add(-time.Hour)}

	removed, err := svc.SweepOlderThan(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Contains(t, store.rows, "fresh")
	assert.NotContains(t, store.rows, "old")
}

func TestTokenShape(t *testing.T) {
	t.Parallel()

	at := time.UnixMilli(1712345678000)
	assert.Equal(t, "1712345678000_u99", Token(at, "u99"))
}
