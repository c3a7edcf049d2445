package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

type ChannelStore struct{ db *sql.DB }

// Create inserts a new channel. The partial unique index on
// (username) WHERE status NOT IN (terminal...) enforces the "at most one
// non-terminal channel per username" invariant at the database level; a
// unique-violation here is reported as Conflict.
func (s *ChannelStore) Create(ctx context.Context, c *models.PaymentChannel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_channels
			(channel_id, username, crypto, deposit_address, amount_crypto, amount_usd,
			 memo, status, confirmations, tx_hash, owner_key, active_key, posting_key,
			 memo_key, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		c.ChannelID, c.Username, string(c.Crypto), c.DepositAddress, c.AmountCrypto, c.AmountUSD,
		c.Memo, string(c.Status), c.Confirmations, c.TxHash,
		c.PublicKeys.Owner, c.PublicKeys.Active, c.PublicKeys.Posting, c.PublicKeys.Memo,
		c.Created, c.Expires)
	if err != nil {
		if isUniqueViolation(err) {
			return gatewayerr.New(gatewayerr.Conflict, "username already has an active payment channel", err)
		}
		return gatewayerr.New(gatewayerr.Internal, "insert payment channel", err)
	}
	return nil
}

func (s *ChannelStore) Get(ctx context.Context, channelID string) (*models.PaymentChannel, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT channel_id, username, crypto, deposit_address, amount_crypto, amount_usd,
		       memo, status, confirmations, tx_hash, owner_key, active_key, posting_key,
		       memo_key, created_at, confirmed_at, account_created_at, expires_at, hive_tx_id
		FROM payment_channels WHERE channel_id = $1`, channelID)
	c, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gatewayerr.New(gatewayerr.NotFound, "channel not found", nil)
	}
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "query channel", err)
	}
	return c, nil
}

// ActiveByUsername returns the caller's current non-terminal channel, if any.
func (s *ChannelStore) ActiveByUsername(ctx context.Context, username string) (*models.PaymentChannel, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT channel_id, username, crypto, deposit_address, amount_crypto, amount_usd,
		       memo, status, confirmations, tx_hash, owner_key, active_key, posting_key,
		       memo_key, created_at, confirmed_at, account_created_at, expires_at, hive_tx_id
		FROM payment_channels
		WHERE username = $1 AND status NOT IN ('completed','failed','expired','consolidated')`, username)
	c, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "query active channel", err)
	}
	return c, nil
}

// ActiveChannelsByStatus returns every channel currently in one of the
// given statuses, used by the monitor's poller/sweep loops and the
// orchestrator's confirmed-channel scan.
func (s *ChannelStore) ActiveChannelsByStatus(ctx context.Context, statuses ...models.ChannelStatus) ([]*models.PaymentChannel, error) {
	strStatuses := make([]string, len(statuses))
	for i, st := range statuses {
		strStatuses[i] = string(st)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_id, username, crypto, deposit_address, amount_crypto, amount_usd,
		       memo, status, confirmations, tx_hash, owner_key, active_key, posting_key,
		       memo_key, created_at, confirmed_at, account_created_at, expires_at, hive_tx_id
		FROM payment_channels WHERE status = ANY($1)`, pq.Array(strStatuses))
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "query channels by status", err)
	}
	defer rows.Close()

	var out []*models.PaymentChannel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, gatewayerr.New(gatewayerr.Internal, "scan channel", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CompletedByCrypto lists every completed channel for crypto whose deposit
// address may still hold a balance worth sweeping; consolidation scans this
// set rather than every historical channel.
func (s *ChannelStore) CompletedByCrypto(ctx context.Context, crypto models.Crypto) ([]*models.PaymentChannel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_id, username, crypto, deposit_address, amount_crypto, amount_usd,
		       memo, status, confirmations, tx_hash, owner_key, active_key, posting_key,
		       memo_key, created_at, confirmed_at, account_created_at, expires_at, hive_tx_id
		FROM payment_channels WHERE crypto = $1 AND status = 'completed'`, string(crypto))
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "query completed channels", err)
	}
	defer rows.Close()

	var out []*models.PaymentChannel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, gatewayerr.New(gatewayerr.Internal, "scan channel", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *ChannelStore) UpdateStatus(ctx context.Context, channelID string, status models.ChannelStatus, confirmations int, txHash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE payment_channels SET status=$2, confirmations=$3, tx_hash=$4 WHERE channel_id=$1`,
		channelID, string(status), confirmations, txHash)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "update channel status", err)
	}
	return nil
}

func (s *ChannelStore) MarkConfirmed(ctx context.Context, channelID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE payment_channels SET status='confirmed', confirmed_at=now() WHERE channel_id=$1`, channelID)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "mark channel confirmed", err)
	}
	return nil
}

func (s *ChannelStore) MarkAccountCreated(ctx context.Context, channelID, hiveTxID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE payment_channels SET status='completed', account_created_at=now(), hive_tx_id=$2
		WHERE channel_id=$1`, channelID, hiveTxID)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "mark account created", err)
	}
	return nil
}

// ExpirePending transitions every pending channel whose expires_at has
// passed into the expired terminal state, returning the affected channel
// IDs so the vault can release their addresses.
func (s *ChannelStore) ExpirePending(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE payment_channels SET status='expired'
		WHERE status = 'pending' AND expires_at <= now()
		RETURNING channel_id`)
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "expire pending channels", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, gatewayerr.New(gatewayerr.Internal, "scan expired channel id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// List returns every channel, most recent first, for the admin dashboard.
func (s *ChannelStore) List(ctx context.Context, limit int) ([]*models.PaymentChannel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_id, username, crypto, deposit_address, amount_crypto, amount_usd,
		       memo, status, confirmations, tx_hash, owner_key, active_key, posting_key,
		       memo_key, created_at, confirmed_at, account_created_at, expires_at, hive_tx_id
		FROM payment_channels ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "list channels", err)
	}
	defer rows.Close()

	var out []*models.PaymentChannel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, gatewayerr.New(gatewayerr.Internal, "scan channel", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete permanently removes a channel and, via ON DELETE CASCADE, its
// confirmations, creation attempts, and deposit address rows. Admin-only;
// unlike Cancel this does not preserve history.
func (s *ChannelStore) Delete(ctx context.Context, channelID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM payment_channels WHERE channel_id = $1`, channelID)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "delete channel", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return gatewayerr.New(gatewayerr.NotFound, "channel not found", nil)
	}
	return nil
}

func (s *ChannelStore) Cancel(ctx context.Context, channelID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payment_channels SET status='failed'
		WHERE channel_id=$1 AND status NOT IN ('completed','consolidated')`, channelID)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "cancel channel", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return gatewayerr.New(gatewayerr.Conflict, "channel already finalized, cannot cancel", nil)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChannel(row rowScanner) (*models.PaymentChannel, error) {
	var c models.PaymentChannel
	var crypto, status string
	var memo, txHash, hiveTxID sql.NullString
	var confirmedAt, accountCreatedAt sql.NullTime

	err := row.Scan(&c.ChannelID, &c.Username, &crypto, &c.DepositAddress, &c.AmountCrypto, &c.AmountUSD,
		&memo, &status, &c.Confirmations, &txHash,
		&c.PublicKeys.Owner, &c.PublicKeys.Active, &c.PublicKeys.Posting, &c.PublicKeys.Memo,
		&c.Created, &confirmedAt, &accountCreatedAt, &c.Expires, &hiveTxID)
	if err != nil {
		return nil, err
	}
	c.Crypto = models.Crypto(crypto)
	c.Status = models.ChannelStatus(status)
	c.Memo = memo.String
	c.TxHash = txHash.String
	c.HiveTxID = hiveTxID.String
	if confirmedAt.Valid {
		t := confirmedAt.Time
		c.Confirmed = &t
	}
	if accountCreatedAt.Valid {
		t := accountCreatedAt.Time
		c.AccountCreated = &t
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	return pqErrorCode(err) == "23505"
}
