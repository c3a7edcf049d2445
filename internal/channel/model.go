// Package channel implements the payment channel state machine: creation,
// status projection, manual verification, and cancellation. Grounded on
// src/chainadapter/adapter.go's TxStatus contract-comment style (explicit
// allowed-transition documentation) and the storage layer's "MUST be
// idempotent" contract language, applied here to PaymentChannel instead of
// TxState.
package channel

import (
	"fmt"
	"time"

	"github.com/hiveonboard/gateway/internal/models"
)

func timeNow() time.Time { return time.Now() }

// progressPercent and statusMessage derive the human-facing projection of
// a channel's internal status for the read path.
func progressPercent(status models.ChannelStatus) int {
	switch status {
	case models.StatusPending:
		return 10
	case models.StatusConfirming:
		return 50
	case models.StatusConfirmed:
		return 80
	case models.StatusCompleted:
		return 100
	case models.StatusConsolidated:
		return 100
	default:
		return 0
	}
}

func statusMessage(status models.ChannelStatus) string {
	switch status {
	case models.StatusPending:
		return "Waiting for deposit"
	case models.StatusConfirming:
		return "Payment detected, waiting for confirmations"
	case models.StatusConfirmed:
		return "Payment confirmed, creating account"
	case models.StatusCompleted:
		return "Account created"
	case models.StatusFailed:
		return "Payment channel failed"
	case models.StatusExpired:
		return "Payment window expired"
	case models.StatusConsolidated:
		return "Account created and funds consolidated"
	default:
		return fmt.Sprintf("Unknown status %q", status)
	}
}

// toStatusView derives the read-only projection without mutating storage:
// an expired pending channel surfaces as Expired here even though the
// sweep has not yet written that status to the row.
func toStatusView(c *models.PaymentChannel) *models.StatusView {
	status := c.Status
	if status == models.StatusPending && !c.Expires.After(nowFunc()) {
		status = models.StatusExpired
	}
	return &models.StatusView{
		ChannelID:        c.ChannelID,
		Status:           status,
		Message:          statusMessage(status),
		ProgressPercent:  progressPercent(status),
		Confirmations:    c.Confirmations,
		RequiredConfirms: models.RequiredConfirmations(c.Crypto),
		TxHash:           c.TxHash,
		DepositAddress:   c.DepositAddress,
		AmountCrypto:     c.AmountCrypto,
		ExpiresAt:        c.Expires,
	}
}

// nowFunc is a seam for tests to freeze time.
var nowFunc = timeNow
