// Package pricing implements the pricing oracle's quote formula and
// degrade-to-fallback refresh policy. The "try primary, degrade with
// lowered confidence, never error the caller out" structure is grounded
// on src/chainadapter/bitcoin/fee.go's FeeEstimator, generalized from a
// single numeric estimate onto the whole pricing snapshot.
package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hiveonboard/gateway/internal/chainkind/ethereum"
	"github.com/hiveonboard/gateway/internal/models"
)

const (
	refreshInterval = time.Hour
	staleThreshold  = 2 * time.Hour
	retention       = 7 * 24 * time.Hour

	hiveBaseMultiplier  = 3.0
	hiveMarkup          = 1.5
	networkFeeSurcharge = 0.2
)

// Store is the persistence surface the oracle needs.
type Store interface {
	Insert(ctx context.Context, snap *models.PricingSnapshot) error
	Latest(ctx context.Context) (*models.PricingSnapshot, error)
	PruneOlderThan(ctx context.Context, retention time.Duration) error
}

type Oracle struct {
	store         Store
	coinGecko     *coinGeckoSource
	hiveMedian    *hiveNodeMedianSource
	ethFee        *ethereum.FeeEstimator
	monitored     []models.Crypto
	logger        *zap.Logger

	mu       sync.RWMutex
	snapshot *models.PricingSnapshot
	refreshing bool
}

func New(store Store, hiveNodes []string, ethFee *ethereum.FeeEstimator, monitored []models.Crypto, logger *zap.Logger) *Oracle {
	return &Oracle{
		store:      store,
		coinGecko:  newCoinGeckoSource(),
		hiveMedian: newHiveNodeMedianSource(hiveNodes),
		ethFee:     ethFee,
		monitored:  monitored,
		logger:     logger,
	}
}

// LatestPricing returns the cached snapshot, kicking off an async refresh
// if it is stale or missing. It blocks on an external call only when
// neither memory nor the store holds any snapshot, in which case it also
// runs Refresh synchronously.
func (o *Oracle) LatestPricing(ctx context.Context) (*models.PricingSnapshot, error) {
	o.mu.RLock()
	snap := o.snapshot
	o.mu.RUnlock()

	if snap == nil {
		loaded, err := o.store.Latest(ctx)
		if err != nil {
			return nil, err
		}
		if loaded != nil {
			o.mu.Lock()
			o.snapshot = loaded
			o.mu.Unlock()
			snap = loaded
		}
	}

	if snap == nil || time.Since(snap.CreatedAt) > staleThreshold {
		o.triggerAsyncRefresh()
	}
	if snap == nil {
		return o.Refresh(ctx)
	}
	return snap, nil
}

func (o *Oracle) triggerAsyncRefresh() {
	o.mu.Lock()
	if o.refreshing {
		o.mu.Unlock()
		return
	}
	o.refreshing = true
	o.mu.Unlock()

	go func() {
		defer func() {
			o.mu.Lock()
			o.refreshing = false
			o.mu.Unlock()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := o.Refresh(ctx); err != nil && o.logger != nil {
			o.logger.Warn("background pricing refresh failed", zap.Error(err))
		}
	}()
}

// Refresh synchronously recomputes the snapshot, degrading to fallback
// sources component by component rather than failing outright.
func (o *Oracle) Refresh(ctx context.Context) (*models.PricingSnapshot, error) {
	fallback := false

	prices, err := o.coinGecko.Prices(ctx, o.monitored)
	if err != nil {
		if o.logger != nil {
			o.logger.Warn("coingecko unavailable, degrading to fallback prices", zap.Error(err))
		}
		prices = map[models.Crypto]float64{}
		fallback = true
	}

	hivePrice, ok := prices["HIVE"]
	if !ok || hivePrice <= 0 {
		hivePrice, err = o.hiveMedian.HivePriceUSD(ctx)
		if err != nil {
			if o.logger != nil {
				o.logger.Warn("hive median price unavailable, using static fallback", zap.Error(err))
			}
			hivePrice = fallbackPriceUSD["HIVE"]
			if hivePrice == 0 {
				hivePrice = 0.25
			}
			fallback = true
		} else {
			fallback = true // still a degraded path relative to CoinGecko
		}
	}

	baseCostUSD := hivePrice * hiveBaseMultiplier
	finalCostUSD := baseCostUSD * hiveMarkup

	rates := make(map[models.Crypto]models.CryptoRate, len(o.monitored))
	transferCosts := make(map[models.Crypto]string, len(o.monitored))

	for _, c := range o.monitored {
		price, ok := prices[c]
		if !ok || price <= 0 {
			price = fallbackPriceUSD[c]
			fallback = true
		}

		transferFeeUSD := avgTransferFeeUSD[c]
		if c == models.ETH && o.ethFee != nil {
			transferFeeUSD = evmTransferFeeUSD(ctx, o.ethFee, price)
		}

		surcharge := networkFeeSurcharge * transferFeeUSD
		costUSD := finalCostUSD + surcharge

		amountNeeded := costUSD / price
		transferFeeCrypto := transferFeeUSD / price
		totalAmount := amountNeeded + transferFeeCrypto

		rates[c] = models.CryptoRate{
			Crypto:                 c,
			Price:                  price,
			AmountNeeded:           formatAmount(amountNeeded, c),
			TransferFee:            formatAmount(transferFeeCrypto, c),
			TotalAmount:            formatAmount(totalAmount, c),
			NetworkFeeSurchargeUSD: surcharge,
			FinalCostUSD:           costUSD,
		}
		transferCosts[c] = formatAmount(transferFeeCrypto, c)
	}

	snap := &models.PricingSnapshot{
		HivePriceUSD:  hivePrice,
		BaseCostUSD:   baseCostUSD,
		FinalCostUSD:  finalCostUSD,
		CryptoRates:   rates,
		TransferCosts: transferCosts,
		Fallback:      fallback,
		CreatedAt:     time.Now(),
	}

	if err := o.store.Insert(ctx, snap); err != nil {
		return nil, err
	}
	if err := o.store.PruneOlderThan(ctx, retention); err != nil && o.logger != nil {
		o.logger.Warn("pricing snapshot prune failed", zap.Error(err))
	}

	o.mu.Lock()
	o.snapshot = snap
	o.mu.Unlock()

	return snap, nil
}

func formatAmount(amount float64, c models.Crypto) string {
	decimals := models.Decimals(c)
	return fmt.Sprintf("%.*f", decimals, amount)
}
