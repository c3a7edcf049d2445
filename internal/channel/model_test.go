package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hiveonboard/gateway/internal/models"
)

func TestToStatusViewReflectsStoredStatus(t *testing.T) {
	c := &models.PaymentChannel{
		ChannelID:      "0123456789abcdef0123456789abcdef",
		Status:         models.StatusConfirming,
		Crypto:         models.BTC,
		Confirmations:  1,
		DepositAddress: "bc1q...",
		AmountCrypto:   "0.01",
		Expires:        time.Now().Add(time.Hour),
	}

	view := toStatusView(c)

	assert.Equal(t, models.StatusConfirming, view.Status)
	assert.Equal(t, "Payment detected, waiting for confirmations", view.Message)
	assert.Equal(t, 50, view.ProgressPercent)
	assert.Equal(t, 2, view.RequiredConfirms)
}

func TestToStatusViewProjectsExpiryWithoutMutatingStore(t *testing.T) {
	c := &models.PaymentChannel{
		ChannelID: "0123456789abcdef0123456789abcdef",
		Status:    models.StatusPending,
		Crypto:    models.ETH,
		Expires:   time.Now().Add(-time.Minute),
	}

	view := toStatusView(c)

	assert.Equal(t, models.StatusExpired, view.Status)
	assert.Equal(t, models.StatusPending, c.Status, "the stored channel must not be mutated by a read-path projection")
}

func TestToStatusViewHonorsFrozenClock(t *testing.T) {
	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	old := nowFunc
	nowFunc = func() time.Time { return frozen }
	defer func() { nowFunc = old }()

	c := &models.PaymentChannel{
		ChannelID: "0123456789abcdef0123456789abcdef",
		Status:    models.StatusPending,
		Crypto:    models.SOL,
		Expires:   frozen.Add(time.Second),
	}

	view := toStatusView(c)
	assert.Equal(t, models.StatusPending, view.Status)
}

func TestToStatusViewTreatsExactExpiryInstantAsExpired(t *testing.T) {
	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	old := nowFunc
	nowFunc = func() time.Time { return frozen }
	defer func() { nowFunc = old }()

	c := &models.PaymentChannel{
		ChannelID: "0123456789abcdef0123456789abcdef",
		Status:    models.StatusPending,
		Crypto:    models.SOL,
		Expires:   frozen,
	}

	view := toStatusView(c)
	assert.Equal(t, models.StatusExpired, view.Status)
}

func TestStatusMessageCoversEveryStatus(t *testing.T) {
	statuses := []models.ChannelStatus{
		models.StatusPending, models.StatusConfirming, models.StatusConfirmed,
		models.StatusCompleted, models.StatusFailed, models.StatusExpired,
		models.StatusConsolidated,
	}
	for _, s := range statuses {
		assert.NotEmpty(t, statusMessage(s))
	}
	assert.Contains(t, statusMessage(models.ChannelStatus("bogus")), "Unknown status")
}

func TestProgressPercentMonotonicOverLifecycle(t *testing.T) {
	assert.Less(t, progressPercent(models.StatusPending), progressPercent(models.StatusConfirming))
	assert.Less(t, progressPercent(models.StatusConfirming), progressPercent(models.StatusConfirmed))
	assert.LessOrEqual(t, progressPercent(models.StatusConfirmed), progressPercent(models.StatusCompleted))
}
