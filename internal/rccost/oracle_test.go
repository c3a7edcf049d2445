package rccost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiveonboard/gateway/internal/models"
)

type fakeStore struct {
	inserted []*models.RCCost
	latest   map[string]*models.RCCost
	pruned   bool
	failLookup bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{latest: map[string]*models.RCCost{}}
}

func (f *fakeStore) Insert(ctx context.Context, c *models.RCCost) error {
	f.inserted = append(f.inserted, c)
	f.latest[c.OperationType] = c
	return nil
}

func (f *fakeStore) Latest(ctx context.Context, operationType string) (*models.RCCost, error) {
	if f.failLookup {
		return nil, assert.AnError
	}
	return f.latest[operationType], nil
}

func (f *fakeStore) PruneOlderThan(ctx context.Context, retention time.Duration) error {
	f.pruned = true
	return nil
}

func TestRefreshUpsertsEveryOperationAndPrunes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"timestamp": "2026-01-01T00:00:00Z",
			"costs": [
				{"operation": "claim_account_operation", "rc_needed": 15000000000000, "hp_needed": 3.2},
				{"operation": "transfer_operation", "rc_needed": 100000, "hp_needed": 0.01}
			]
		}`))
	}))
	defer srv.Close()

	store := newFakeStore()
	o := New(store, srv.URL, nil)

	err := o.Refresh(context.Background())
	require.NoError(t, err)

	assert.Len(t, store.inserted, 2)
	assert.True(t, store.pruned)

	costs := o.LatestCosts()
	assert.Equal(t, int64(15000000000000), costs[ClaimAccountOperation].RCNeeded)
}

func TestRefreshLeavesCacheUntouchedOnBeaconFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := newFakeStore()
	o := New(store, srv.URL, nil)

	err := o.Refresh(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, o.LatestCosts())
}

func TestClaimAccountFloorPrefersCache(t *testing.T) {
	store := newFakeStore()
	o := New(store, "", nil)
	o.cache[ClaimAccountOperation] = &models.RCCost{RCNeeded: 999}

	assert.Equal(t, int64(999), o.ClaimAccountFloor(context.Background()))
}

func TestClaimAccountFloorFallsBackToStore(t *testing.T) {
	store := newFakeStore()
	store.latest[ClaimAccountOperation] = &models.RCCost{RCNeeded: 42}
	o := New(store, "", nil)

	assert.Equal(t, int64(42), o.ClaimAccountFloor(context.Background()))
}

func TestClaimAccountFloorFallsBackToHardCodedFloor(t *testing.T) {
	store := newFakeStore()
	o := New(store, "", nil)

	assert.Equal(t, claimAccountFloorRC, o.ClaimAccountFloor(context.Background()))
}
