package store

import (
	"context"
	"database/sql"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

type ConfirmationStore struct{ db *sql.DB }

// Upsert records a sighting of txHash for channelID. (channelId, txHash) is
// the primary key so re-sightings at higher confirmation counts just
// update in place.
func (s *ConfirmationStore) Upsert(ctx context.Context, c *models.PaymentConfirmation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_confirmations (channel_id, tx_hash, block_height, confirmations, amount_received, detected_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (channel_id, tx_hash) DO UPDATE SET
			block_height = EXCLUDED.block_height,
			confirmations = EXCLUDED.confirmations`,
		c.ChannelID, c.TxHash, c.BlockHeight, c.Confirmations, c.AmountReceived, c.DetectedAt)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "upsert payment confirmation", err)
	}
	return nil
}

func (s *ConfirmationStore) MarkProcessed(ctx context.Context, channelID, txHash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE payment_confirmations SET processed_at = now() WHERE channel_id=$1 AND tx_hash=$2`,
		channelID, txHash)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "mark confirmation processed", err)
	}
	return nil
}

// CreditedElsewhere reports whether (crypto, txHash) already credited a
// different channel, enforcing the no-double-credit invariant.
func (s *ConfirmationStore) CreditedElsewhere(ctx context.Context, crypto models.Crypto, txHash, excludeChannelID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM payment_confirmations pc
		JOIN payment_channels p ON p.channel_id = pc.channel_id
		WHERE p.crypto = $1 AND pc.tx_hash = $2 AND pc.channel_id != $3 AND pc.processed_at IS NOT NULL`,
		string(crypto), txHash, excludeChannelID).Scan(&count)
	if err != nil {
		return false, gatewayerr.New(gatewayerr.Internal, "check double credit", err)
	}
	return count > 0, nil
}
