package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

type PricingStore struct{ db *sql.DB }

func (s *PricingStore) Insert(ctx context.Context, snap *models.PricingSnapshot) error {
	rates, err := json.Marshal(snap.CryptoRates)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "marshal crypto rates", err)
	}
	costs, err := json.Marshal(snap.TransferCosts)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "marshal transfer costs", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO pricing_snapshots (hive_price_usd, base_cost_usd, final_cost_usd, crypto_rates, transfer_costs, fallback)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at`,
		snap.HivePriceUSD, snap.BaseCostUSD, snap.FinalCostUSD, rates, costs, snap.Fallback).
		Scan(&snap.ID, &snap.CreatedAt)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "insert pricing snapshot", err)
	}
	return nil
}

func (s *PricingStore) Latest(ctx context.Context) (*models.PricingSnapshot, error) {
	var snap models.PricingSnapshot
	var rates, costs []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, hive_price_usd, base_cost_usd, final_cost_usd, crypto_rates, transfer_costs, fallback, created_at
		FROM pricing_snapshots ORDER BY created_at DESC LIMIT 1`).
		Scan(&snap.ID, &snap.HivePriceUSD, &snap.BaseCostUSD, &snap.FinalCostUSD, &rates, &costs, &snap.Fallback, &snap.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "query latest pricing snapshot", err)
	}
	if err := json.Unmarshal(rates, &snap.CryptoRates); err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "unmarshal crypto rates", err)
	}
	if err := json.Unmarshal(costs, &snap.TransferCosts); err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "unmarshal transfer costs", err)
	}
	return &snap, nil
}

// PruneOlderThan deletes pricing snapshots older than the retention window
// (7 days per spec), mirroring RCCostStore.PruneOlderThan.
func (s *PricingStore) PruneOlderThan(ctx context.Context, retention time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM pricing_snapshots WHERE created_at < $1`, time.Now().Add(-retention))
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "prune pricing snapshots", err)
	}
	return nil
}
