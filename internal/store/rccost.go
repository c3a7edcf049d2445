package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

type RCCostStore struct{ db *sql.DB }

func (s *RCCostStore) Insert(ctx context.Context, c *models.RCCost) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rc_costs (operation_type, api_timestamp, rc_needed, hp_needed)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (operation_type, api_timestamp) DO NOTHING`,
		c.OperationType, c.APITimestamp, c.RCNeeded, c.HPNeeded)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "insert RC cost", err)
	}
	return nil
}

// Latest returns the authoritative RC cost row for operationType, the one
// with the most recent apiTimestamp.
func (s *RCCostStore) Latest(ctx context.Context, operationType string) (*models.RCCost, error) {
	var c models.RCCost
	err := s.db.QueryRowContext(ctx, `
		SELECT operation_type, api_timestamp, rc_needed, hp_needed FROM rc_costs
		WHERE operation_type = $1 ORDER BY api_timestamp DESC LIMIT 1`, operationType).
		Scan(&c.OperationType, &c.APITimestamp, &c.RCNeeded, &c.HPNeeded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "query latest RC cost", err)
	}
	return &c, nil
}

// PruneOlderThan deletes RC cost rows older than the retention window
// (30 days per spec).
func (s *RCCostStore) PruneOlderThan(ctx context.Context, retention time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM rc_costs WHERE api_timestamp < $1`, time.Now().Add(-retention))
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "prune RC costs", err)
	}
	return nil
}
