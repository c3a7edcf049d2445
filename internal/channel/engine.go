package channel

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hiveonboard/gateway/internal/chainkind"
	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

// ChannelStore is the persistence surface the engine needs.
type ChannelStore interface {
	Create(ctx context.Context, c *models.PaymentChannel) error
	Get(ctx context.Context, channelID string) (*models.PaymentChannel, error)
	ActiveByUsername(ctx context.Context, username string) (*models.PaymentChannel, error)
	ExpirePending(ctx context.Context) ([]string, error)
	Cancel(ctx context.Context, channelID string) error
	List(ctx context.Context, limit int) ([]*models.PaymentChannel, error)
	Delete(ctx context.Context, channelID string) error
}

// Vault is the address-allocation surface the engine needs.
type Vault interface {
	AllocateAddress(ctx context.Context, crypto models.Crypto, channelID string) (*models.CryptoAddress, error)
	ReleaseAddress(ctx context.Context, address string) error
}

// Pricing is the pricing-snapshot surface the engine needs.
type Pricing interface {
	LatestPricing(ctx context.Context) (*models.PricingSnapshot, error)
}

// Verifier is implemented by internal/monitor, letting the engine's manual
// verification endpoint reuse the same match/credit pipeline the pollers
// use, per spec §4.4's "manual path into the monitor's match pipeline."
type Verifier interface {
	VerifyChannel(ctx context.Context, channelID, txHash string) error
}

type Engine struct {
	store    ChannelStore
	registry *chainkind.Registry
	vault    Vault
	pricing  Pricing
	verifier Verifier
	logger   *zap.Logger
}

func New(store ChannelStore, registry *chainkind.Registry, vault Vault, pricing Pricing, verifier Verifier, logger *zap.Logger) *Engine {
	return &Engine{store: store, registry: registry, vault: vault, pricing: pricing, verifier: verifier, logger: logger}
}

// CreateChannel allocates a deposit address and quotes the account
// creation cost for one (username, crypto) pair.
func (e *Engine) CreateChannel(ctx context.Context, username string, crypto models.Crypto, keys models.PublicKeys) (*models.PaymentChannel, error) {
	if !models.ValidUsername(username) {
		return nil, gatewayerr.New(gatewayerr.InputValidation, "invalid Hive username", nil)
	}
	if !keys.Valid() {
		return nil, gatewayerr.New(gatewayerr.InputValidation, "invalid public key set", nil)
	}
	if _, ok := e.registry.Get(crypto); !ok {
		return nil, gatewayerr.New(gatewayerr.InputValidation, "cryptocurrency is not monitoring-enabled", nil)
	}

	existing, err := e.store.ActiveByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, gatewayerr.New(gatewayerr.Conflict, "username already has an active payment channel", nil)
	}

	snap, err := e.pricing.LatestPricing(ctx)
	if err != nil {
		return nil, err
	}
	rate, ok := snap.CryptoRates[crypto]
	if !ok {
		return nil, gatewayerr.New(gatewayerr.Internal, "pricing snapshot missing rate for crypto", nil)
	}

	channelID, err := newChannelID()
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "generate channel id", err)
	}

	addr, err := e.vault.AllocateAddress(ctx, crypto, channelID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	c := &models.PaymentChannel{
		ChannelID:      channelID,
		Username:       username,
		Crypto:         crypto,
		DepositAddress: addr.Address,
		AmountCrypto:   rate.TotalAmount,
		AmountUSD:      fmt.Sprintf("%.2f", rate.FinalCostUSD),
		Status:         models.StatusPending,
		PublicKeys:     keys,
		Created:        now,
		Expires:        now.Add(models.ChannelTTL),
	}

	if err := e.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Status returns the read-only projection for channelId.
func (e *Engine) Status(ctx context.Context, channelID string) (*models.StatusView, error) {
	if !models.ValidChannelID(channelID) {
		return nil, gatewayerr.New(gatewayerr.InputValidation, "malformed channel id", nil)
	}
	c, err := e.store.Get(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return toStatusView(c), nil
}

// VerifyTransaction is the manual re-verification path: txHash is never
// trusted, it is re-derived from chain by the monitor before crediting.
func (e *Engine) VerifyTransaction(ctx context.Context, channelID, txHash string) error {
	if !models.ValidChannelID(channelID) {
		return gatewayerr.New(gatewayerr.InputValidation, "malformed channel id", nil)
	}
	if !models.ValidTxHash(txHash) {
		return gatewayerr.New(gatewayerr.InputValidation, "malformed transaction hash", nil)
	}
	return e.verifier.VerifyChannel(ctx, channelID, txHash)
}

// Cancel is admin-only; it marks a channel that is not yet completed or
// consolidated as failed and releases its deposit address, keeping every
// row. Cascading removal of CryptoAddress, PaymentConfirmation, and
// HiveCreationAttempt rows through ON DELETE CASCADE is Delete's path.
func (e *Engine) Cancel(ctx context.Context, channelID string) error {
	c, err := e.store.Get(ctx, channelID)
	if err != nil {
		return err
	}
	if err := e.store.Cancel(ctx, channelID); err != nil {
		return err
	}
	if err := e.vault.ReleaseAddress(ctx, c.DepositAddress); err != nil && e.logger != nil {
		e.logger.Warn("failed to release deposit address after cancel", zap.String("channel_id", channelID), zap.Error(err))
	}
	return nil
}

// SweepExpired transitions pending channels past their expiry into the
// expired terminal state and releases their addresses back to the vault's
// cooldown pool. Run on the global 30-second sweep.
func (e *Engine) SweepExpired(ctx context.Context) (int, error) {
	ids, err := e.store.ExpirePending(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		c, err := e.store.Get(ctx, id)
		if err != nil {
			continue
		}
		if err := e.vault.ReleaseAddress(ctx, c.DepositAddress); err != nil && e.logger != nil {
			e.logger.Warn("failed to release expired channel's address", zap.String("channel_id", id), zap.Error(err))
		}
	}
	return len(ids), nil
}

// List returns every channel for the admin dashboard, most recent first.
func (e *Engine) List(ctx context.Context, limit int) ([]*models.PaymentChannel, error) {
	return e.store.List(ctx, limit)
}

// Delete permanently removes a channel; admin-only, unlike Cancel it does
// not preserve history for reconciliation.
func (e *Engine) Delete(ctx context.Context, channelID string) error {
	c, err := e.store.Get(ctx, channelID)
	if err != nil {
		return err
	}
	if err := e.store.Delete(ctx, channelID); err != nil {
		return err
	}
	if err := e.vault.ReleaseAddress(ctx, c.DepositAddress); err != nil && e.logger != nil {
		e.logger.Warn("failed to release deposit address after delete", zap.String("channel_id", channelID), zap.Error(err))
	}
	return nil
}

func newChannelID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("channel: generate id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
