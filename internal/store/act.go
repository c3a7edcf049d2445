package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

type ACTStore struct{ db *sql.DB }

func (s *ACTStore) Get(ctx context.Context, creatorAccount string) (*models.ACTBalance, error) {
	var b models.ACTBalance
	err := s.db.QueryRowContext(ctx, `
		SELECT creator_account, act_balance, resource_credits, last_claim_time, last_rc_check
		FROM act_balances WHERE creator_account = $1`, creatorAccount).
		Scan(&b.CreatorAccount, &b.ACTBalance, &b.ResourceCredits, &b.LastClaimTime, &b.LastRCCheck)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.ACTBalance{CreatorAccount: creatorAccount}, nil
	}
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "query ACT balance", err)
	}
	return &b, nil
}

func (s *ACTStore) Upsert(ctx context.Context, b *models.ACTBalance) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO act_balances (creator_account, act_balance, resource_credits, last_claim_time, last_rc_check)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (creator_account) DO UPDATE SET
			act_balance = EXCLUDED.act_balance,
			resource_credits = EXCLUDED.resource_credits,
			last_claim_time = EXCLUDED.last_claim_time,
			last_rc_check = EXCLUDED.last_rc_check`,
		b.CreatorAccount, b.ACTBalance, b.ResourceCredits, b.LastClaimTime, b.LastRCCheck)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "upsert ACT balance", err)
	}
	return nil
}
