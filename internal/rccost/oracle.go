// Package rccost implements the resource-credit cost oracle: a single
// external beacon polled every three hours, with the latest row per
// operation winning and a 30-day retention window. Grounded on
// internal/app/storage.go's cached-store-with-in-memory-mirror shape
// (load once, mutate through explicit methods) and on
// src/chainadapter/rpc/health.go's "serve the last known good value"
// idea for total-unavailability handling.
package rccost

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hiveonboard/gateway/internal/httpjson"
	"github.com/hiveonboard/gateway/internal/models"
)

const (
	RefreshInterval = 3 * time.Hour
	Retention       = 30 * 24 * time.Hour

	// ClaimAccountOperation is the RC cost oracle's sole consumer-facing
	// operation key: the orchestrator budgets RC for claim_account_operation.
	ClaimAccountOperation = "claim_account_operation"

	// claimAccountFloorRC is the hard-coded conservative floor the
	// orchestrator falls back to only when the oracle has no cached value
	// at all (first boot with the beacon down).
	claimAccountFloorRC = int64(13_700_000_000_000)
)

type Store interface {
	Insert(ctx context.Context, c *models.RCCost) error
	Latest(ctx context.Context, operationType string) (*models.RCCost, error)
	PruneOlderThan(ctx context.Context, retention time.Duration) error
}

type beaconResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Costs     []struct {
		Operation string  `json:"operation"`
		RCNeeded  int64   `json:"rc_needed"`
		HPNeeded  float64 `json:"hp_needed"`
	} `json:"costs"`
}

type Oracle struct {
	store       Store
	client      *httpjson.Client
	beaconURL   string
	logger      *zap.Logger

	mu    sync.RWMutex
	cache map[string]*models.RCCost
}

func New(store Store, beaconURL string, logger *zap.Logger) *Oracle {
	return &Oracle{
		store:     store,
		client:    httpjson.New(),
		beaconURL: beaconURL,
		logger:    logger,
		cache:     map[string]*models.RCCost{},
	}
}

// Refresh fetches the beacon and upserts every returned operation's cost.
// On total failure it logs and leaves the cache untouched; callers keep
// serving LatestCost's last known value.
func (o *Oracle) Refresh(ctx context.Context) error {
	var resp beaconResponse
	if err := o.client.GetJSON(ctx, o.beaconURL, nil, &resp); err != nil {
		if o.logger != nil {
			o.logger.Warn("rc cost beacon unavailable, serving cached values", zap.Error(err))
		}
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	for _, c := range resp.Costs {
		cost := &models.RCCost{
			OperationType: c.Operation,
			APITimestamp:  resp.Timestamp,
			RCNeeded:      c.RCNeeded,
			HPNeeded:      c.HPNeeded,
		}
		if err := o.store.Insert(ctx, cost); err != nil {
			return err
		}
		o.cache[c.Operation] = cost
	}

	return o.store.PruneOlderThan(ctx, Retention)
}

// LatestCosts returns every cached operation's cost.
func (o *Oracle) LatestCosts() map[string]*models.RCCost {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]*models.RCCost, len(o.cache))
	for k, v := range o.cache {
		out[k] = v
	}
	return out
}

// ClaimAccountFloor returns the RC cost of claim_account_operation,
// falling back from the in-memory cache to the store's last persisted row,
// and finally to the hard-coded floor if neither is available. Only the
// orchestrator calls this fallback path; LatestCosts never substitutes the
// floor silently.
func (o *Oracle) ClaimAccountFloor(ctx context.Context) int64 {
	o.mu.RLock()
	cached, ok := o.cache[ClaimAccountOperation]
	o.mu.RUnlock()
	if ok {
		return cached.RCNeeded
	}

	if stored, err := o.store.Latest(ctx, ClaimAccountOperation); err == nil && stored != nil {
		return stored.RCNeeded
	}

	if o.logger != nil {
		o.logger.Warn("no rc cost data available, using hard-coded claim_account floor")
	}
	return claimAccountFloorRC
}
