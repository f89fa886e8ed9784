package customer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	rows       map[string]Customer
	getErr     error
	insertErr  error
	nextID     int64
	insertHook func()
}

func key(fbUserID, pageID string) string { return fbUserID + "/" + pageID }

func (f *fakeStore) GetByExternalID(_ context.Context, fbUserID, pageID string) (Customer, error) {
	if f.getErr != nil {
		return Customer{}, f.getErr
	}
	c, ok := f.rows[key(fbUserID, pageID)]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) InsertIgnoreConflict(_ context.Context, c Customer) (Customer, error) {
	if f.insertHook != nil {
		f.insertHook()
	}
	if f.insertErr != nil {
		return Customer{}, f.insertErr
	}
	if _, exists := f.rows[key(c.FBUserID, c.PageID)]; exists {
		return Customer{}, ErrConflict
	}
	f.nextID++
	c.ID = f.nextID
	if f.rows == nil {
		f.rows = map[string]Customer{}
	}
	f.rows[key(c.FBUserID, c.PageID)] = c
	return c, nil
}

type fakeProfiles struct {
	name string
	err  error
}

func (f *fakeProfiles) FetchProfile(context.Context, string, string) (string, error) {
	return f.name, f.err
}

func TestResolveCreatesOnFirstContact(t *testing.T) {
	t.Parallel()

	store := &fakeStore{rows: map[string]Customer{}}
	svc := NewService(nil, store, &fakeProfiles{name: "Nguyen Van A"})

	got, err := svc.Resolve(context.Background(), "p1", "4412345678", "token")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "Nguyen Van A", got.Name)

	again, err := svc.Resolve(context.Background(), "p1", "4412345678", "token")
	require.NoError(t, err)
	assert.Equal(t, got.ID, again.ID, "second resolve must return the same identity")
}

func TestResolveProfileFailureUsesPlaceholder(t *testing.T) {
	t.Parallel()

	store := &fakeStore{rows: map[string]Customer{}}
	svc := NewService(nil, store, &fakeProfiles{err: errors.New("graph api down")})

	got, err := svc.Resolve(context.Background(), "p1", "4412345678", "token")
	require.NoError(t, err)
	assert.Equal(t, "Guest #345678", got.Name)
}

func TestResolveLostRaceReadsBackWinner(t *testing.T) {
	t.Parallel()

	store := &fakeStore{rows: map[string]Customer{}}
	// Simulate a concurrent resolver winning between our miss and our insert.
	store.insertHook = func() {
		store.rows[key("u9", "p1")] = Customer{ID: 42, FBUserID: "u9", PageID: "p1", Name: "Winner"}
	}
	svc := NewService(nil, store, &fakeProfiles{name: "Loser"})

	got, err := svc.Resolve(context.Background(), "p1", "u9", "token")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, "Winner", got.Name)
}

func TestResolveStorageErrorSurfaces(t *testing.T) {
	t.Parallel()

	store := &fakeStore{getErr: errors.New("connection refused")}
	svc := NewService(nil, store, &fakeProfiles{name: "ignored"})

	_, err := svc.Resolve(context.Background(), "p1", "u9", "token")
	require.Error(t, err)

	fallback := Fallback("p1", "u9")
	assert.True(t, fallback.Synthetic)
	assert.Zero(t, fallback.ID)
	assert.Equal(t, "Guest #u9", fallback.Name)
}

func TestTailID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "345678", TailID("4412345678"))
	assert.Equal(t, "u9", TailID("u9"))
}
