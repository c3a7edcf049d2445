package store

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

type ConsolidationStore struct{ db *sql.DB }

func (s *ConsolidationStore) Insert(ctx context.Context, tx *models.ConsolidationTransaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consolidation_transactions
			(tx_id, crypto, destination_address, priority, source_channel_ids,
			 gross_amount, estimated_fee, net_amount, primary_tx_hash, additional_tx_hashes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		tx.TxID, string(tx.Crypto), tx.DestinationAddress, string(tx.Priority),
		pq.Array(tx.SourceChannelIDs), tx.GrossAmount, tx.EstimatedFee, tx.NetAmount,
		tx.PrimaryTxHash, pq.Array(tx.AdditionalTxHashes))
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "insert consolidation transaction", err)
	}
	return nil
}

// MarkConsolidated flips every source channel of a completed consolidation
// sweep into the terminal consolidated state.
func (s *ConsolidationStore) MarkConsolidated(ctx context.Context, channelIDs []string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE payment_channels SET status = 'consolidated' WHERE channel_id = ANY($1)`,
		pq.Array(channelIDs))
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "mark channels consolidated", err)
	}
	return nil
}
