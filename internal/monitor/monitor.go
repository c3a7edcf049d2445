// Package monitor polls every monitored chain for deposits and runs the
// match/credit pipeline against active payment channels. The per-network
// ticker loop is grounded verbatim on
// src/chainadapter/ethereum/adapter.go's SubscribeStatus (ticker +
// context-cancel + exponential error backoff), generalized here from a
// single subscription to one loop per CryptoKind plus the global 30-second
// sweep spec §4.5 names.
package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hiveonboard/gateway/internal/chainkind"
	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

const globalSweepInterval = 30 * time.Second

// ChannelStore is the persistence surface the monitor needs.
type ChannelStore interface {
	Get(ctx context.Context, channelID string) (*models.PaymentChannel, error)
	UpdateStatus(ctx context.Context, channelID string, status models.ChannelStatus, confirmations int, txHash string) error
	MarkConfirmed(ctx context.Context, channelID string) error
	ActiveChannelsByStatus(ctx context.Context, statuses ...models.ChannelStatus) ([]*models.PaymentChannel, error)
}

// Notifier is the narrow surface internal/notify exposes to the monitor.
type Notifier interface {
	Notify(ctx context.Context, username, kind, title, message string, data map[string]interface{}, priority models.NotificationPriority, ttl time.Duration) error
	PublishStatusChange(channelID string, status models.ChannelStatus, txHash string)
}

// OrchestratorWaker lets processPaymentFound wake the orchestrator
// immediately on confirmation instead of waiting for its 30-second
// backstop loop, per spec §4.5 step 4.
type OrchestratorWaker interface {
	WakeForChannel(channelID string)
}

type Monitor struct {
	registry     *chainkind.Registry
	channels     ChannelStore
	confirmation FullConfirmationStore
	notifier     Notifier
	orchestrator OrchestratorWaker
	logger       *zap.Logger
}

// FullConfirmationStore composes the double-credit check from match.go
// with the upsert the credit pipeline needs.
type FullConfirmationStore interface {
	ConfirmationStore
	Upsert(ctx context.Context, c *models.PaymentConfirmation) error
}

func New(registry *chainkind.Registry, channels ChannelStore, confirmations FullConfirmationStore, notifier Notifier, orchestrator OrchestratorWaker, logger *zap.Logger) *Monitor {
	return &Monitor{
		registry:     registry,
		channels:     channels,
		confirmation: confirmations,
		notifier:     notifier,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Run starts one poller goroutine per registered chain kind plus the
// global sweep loop, returning when ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	for _, kind := range m.registry.All() {
		go m.pollLoop(ctx, kind)
	}
	m.sweepLoop(ctx)
}

// pollLoop re-scans every active channel on kind's network at its block
// time cadence, with exponential backoff on consecutive errors.
func (m *Monitor) pollLoop(ctx context.Context, kind chainkind.CryptoKind) {
	interval := kind.Capabilities().BlockTime
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	backoff := interval
	const maxBackoff = 10 * time.Minute

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.pollOnce(ctx, kind); err != nil {
				if m.logger != nil {
					m.logger.Warn("poll cycle failed, retrying next tick",
						zap.String("crypto", string(kind.ID())), zap.Error(err))
				}
				backoff = minDuration(backoff*2, maxBackoff)
				ticker.Reset(backoff)
				continue
			}
			if backoff != interval {
				backoff = interval
				ticker.Reset(interval)
			}
		}
	}
}

func (m *Monitor) pollOnce(ctx context.Context, kind chainkind.CryptoKind) error {
	active, err := m.channels.ActiveChannelsByStatus(ctx, models.StatusPending, models.StatusConfirming)
	if err != nil {
		return err
	}

	for _, c := range active {
		if c.Crypto != kind.ID() {
			continue
		}
		since := c.Created.Add(-time.Minute)
		txs, err := kind.GetAddressTransactions(ctx, c.DepositAddress, since)
		if err != nil {
			if m.logger != nil {
				m.logger.Warn("address transaction lookup failed", zap.String("channel_id", c.ChannelID), zap.Error(err))
			}
			continue
		}
		for _, tx := range txs {
			if err := m.matchAndCredit(ctx, c, tx, kind.Capabilities()); err != nil && m.logger != nil {
				if !gatewayerr.Retryable(err) {
					m.logger.Info("transaction did not match channel", zap.String("channel_id", c.ChannelID), zap.String("tx_hash", tx.Hash), zap.Error(err))
				}
			}
		}
	}
	return nil
}

// sweepLoop is the global 30-second catch-all: it re-checks every active
// channel's already-attached txHash (picked up out-of-band, e.g. via the
// webhook). It does not expire channels; cmd/gateway's sweep loop does
// that through the channel engine's SweepExpired.
func (m *Monitor) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(globalSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweepOnce(ctx)
		}
	}
}

func (m *Monitor) sweepOnce(ctx context.Context) {
	active, err := m.channels.ActiveChannelsByStatus(ctx, models.StatusPending, models.StatusConfirming)
	if err != nil {
		if m.logger != nil {
			m.logger.Warn("sweep: failed to list active channels", zap.Error(err))
		}
		return
	}
	for _, c := range active {
		if c.TxHash == "" {
			continue
		}
		if err := m.VerifyChannel(ctx, c.ChannelID, c.TxHash); err != nil && m.logger != nil {
			m.logger.Debug("sweep re-verify did not advance channel", zap.String("channel_id", c.ChannelID), zap.Error(err))
		}
	}
}

// VerifyChannel re-derives txHash from chain and runs it through the
// match/credit pipeline. It is the entry point both the manual
// verify-transaction endpoint and the payment webhook use; neither ever
// credits a channel from caller-supplied data directly.
func (m *Monitor) VerifyChannel(ctx context.Context, channelID, txHash string) error {
	c, err := m.channels.Get(ctx, channelID)
	if err != nil {
		return err
	}
	kind, ok := m.registry.Get(c.Crypto)
	if !ok {
		return gatewayerr.New(gatewayerr.Internal, "no chain adapter registered for channel's crypto", nil)
	}

	tx, err := kind.GetTransaction(ctx, txHash)
	if err != nil {
		return err
	}
	return m.matchAndCredit(ctx, c, tx, kind.Capabilities())
}

func (m *Monitor) matchAndCredit(ctx context.Context, c *models.PaymentChannel, tx *chainkind.NormalisedTx, caps chainkind.Capabilities) error {
	if err := verifyTransactionMatch(ctx, c, tx, caps, m.confirmation); err != nil {
		return err
	}
	return m.processPaymentFound(ctx, c, tx)
}

// processPaymentFound implements spec §4.5's four-step credit pipeline.
func (m *Monitor) processPaymentFound(ctx context.Context, c *models.PaymentChannel, tx *chainkind.NormalisedTx) error {
	now := time.Now()
	if err := m.confirmation.Upsert(ctx, &models.PaymentConfirmation{
		ChannelID:      c.ChannelID,
		TxHash:         tx.Hash,
		BlockHeight:    tx.BlockHeight,
		Confirmations:  tx.Confirmations,
		AmountReceived: tx.Amount.String(),
		DetectedAt:     now,
	}); err != nil {
		return err
	}

	required := models.RequiredConfirmations(c.Crypto)
	newStatus := models.StatusConfirming
	firstCrossing := false
	if tx.Confirmations >= required {
		newStatus = models.StatusConfirmed
		firstCrossing = c.Status != models.StatusConfirmed && c.Status != models.StatusCompleted
	}

	if err := m.channels.UpdateStatus(ctx, c.ChannelID, newStatus, tx.Confirmations, tx.Hash); err != nil {
		return err
	}
	if firstCrossing {
		if err := m.channels.MarkConfirmed(ctx, c.ChannelID); err != nil {
			return err
		}
	}

	if m.notifier != nil {
		_ = m.notifier.Notify(ctx, c.Username, "payment_status", "Payment update",
			"Your deposit status changed to "+string(newStatus),
			map[string]interface{}{"channelId": c.ChannelID, "txHash": tx.Hash},
			models.PriorityNotifyNormal, 24*time.Hour)
		m.notifier.PublishStatusChange(c.ChannelID, newStatus, tx.Hash)
	}

	if firstCrossing && m.orchestrator != nil {
		m.orchestrator.WakeForChannel(c.ChannelID)
	}
	return nil
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
