package store

import (
	"context"
	"database/sql"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

type AttemptStore struct{ db *sql.DB }

func (s *AttemptStore) Create(ctx context.Context, a *models.HiveCreationAttempt) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO hive_creation_attempts
			(channel_id, method, act_used, creation_fee, tx_id, attempt_count, status, error_message)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		a.ChannelID, string(a.Method), a.ACTUsed, a.CreationFee, a.TxID, a.AttemptCount,
		string(a.Status), a.ErrorMessage).Scan(&a.ID)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "insert creation attempt", err)
	}
	return nil
}

// UpdateStatus transitions a creation attempt row (attempting -> success
// or failed), recording the broadcast tx id and/or error message.
func (s *AttemptStore) UpdateStatus(ctx context.Context, id int64, status models.AttemptStatus, txID, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE hive_creation_attempts SET status=$2, tx_id=$3, error_message=$4 WHERE id=$1`,
		id, string(status), txID, errMsg)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "update creation attempt status", err)
	}
	return nil
}

func (s *AttemptStore) CountByChannel(ctx context.Context, channelID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM hive_creation_attempts WHERE channel_id = $1`, channelID).Scan(&count)
	if err != nil {
		return 0, gatewayerr.New(gatewayerr.Internal, "count creation attempts", err)
	}
	return count, nil
}

func (s *AttemptStore) ListByChannel(ctx context.Context, channelID string) ([]*models.HiveCreationAttempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, channel_id, method, act_used, creation_fee, tx_id, attempt_count, status, error_message, created_at
		FROM hive_creation_attempts WHERE channel_id = $1 ORDER BY created_at ASC`, channelID)
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "list creation attempts", err)
	}
	defer rows.Close()

	var out []*models.HiveCreationAttempt
	for rows.Next() {
		var a models.HiveCreationAttempt
		var method, status string
		var creationFee, txID, errMsg sql.NullString
		if err := rows.Scan(&a.ID, &a.ChannelID, &method, &a.ACTUsed, &creationFee, &txID,
			&a.AttemptCount, &status, &errMsg, &a.CreatedAt); err != nil {
			return nil, gatewayerr.New(gatewayerr.Internal, "scan creation attempt", err)
		}
		a.Method = models.CreationMethod(method)
		a.Status = models.AttemptStatus(status)
		a.CreationFee = creationFee.String
		a.TxID = txID.String
		a.ErrorMessage = errMsg.String
		out = append(out, &a)
	}
	return out, rows.Err()
}
