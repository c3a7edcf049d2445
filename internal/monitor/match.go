package monitor

import (
	"context"
	"math/big"
	"strings"

	"github.com/hiveonboard/gateway/internal/chainkind"
	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

// amountToleranceBps is the 5% lower-side tolerance spec §4.5 allows:
// underpayment within this band is still accepted, overpayment always is.
const amountToleranceBps = 500 // 5.00%

// verifyTransactionMatch applies the five checks spec §4.5 names, in
// order, returning the first that fails.
func verifyTransactionMatch(ctx context.Context, channel *models.PaymentChannel, tx *chainkind.NormalisedTx, caps chainkind.Capabilities, store ConfirmationStore) error {
	if err := checkAmount(channel, tx, caps); err != nil {
		return err
	}
	if err := checkRecipient(channel, tx); err != nil {
		return err
	}
	if err := checkMemo(channel, tx); err != nil {
		return err
	}
	if err := checkTemporal(channel, tx); err != nil {
		return err
	}
	return checkDoubleCredit(ctx, channel, tx, store)
}

func checkAmount(channel *models.PaymentChannel, tx *chainkind.NormalisedTx, caps chainkind.Capabilities) error {
	if caps.DustThreshold != nil && caps.DustThreshold.Sign() > 0 && tx.Amount.Cmp(caps.DustThreshold) < 0 {
		return gatewayerr.New(gatewayerr.InputValidation, "transaction amount is below network dust threshold", nil)
	}

	expected, ok := new(big.Float).SetString(channel.AmountCrypto)
	if !ok {
		return gatewayerr.New(gatewayerr.Internal, "channel has a malformed expected amount", nil)
	}
	actual := new(big.Float).SetInt(tx.Amount)
	actualNative := scaleToNative(actual, channel.Crypto)

	minimum := new(big.Float).Mul(expected, big.NewFloat(1-float64(amountToleranceBps)/10000))
	if actualNative.Cmp(minimum) < 0 {
		return gatewayerr.New(gatewayerr.Insufficient, "transaction amount is below the expected amount minus tolerance", nil)
	}
	return nil
}

// scaleToNative converts a raw integer amount (satoshis/wei/lamports) to
// native units for comparison against the channel's decimal AmountCrypto.
func scaleToNative(raw *big.Float, crypto models.Crypto) *big.Float {
	decimals := models.Decimals(crypto)
	divisor := new(big.Float).SetFloat64(1)
	for i := 0; i < decimals; i++ {
		divisor.Mul(divisor, big.NewFloat(10))
	}
	return new(big.Float).Quo(raw, divisor)
}

func checkRecipient(channel *models.PaymentChannel, tx *chainkind.NormalisedTx) error {
	if len(tx.AllOutputs) > 0 {
		for _, out := range tx.AllOutputs {
			if strings.EqualFold(out.Address, channel.DepositAddress) {
				return nil
			}
		}
		return gatewayerr.New(gatewayerr.InputValidation, "transaction has no output to the channel's deposit address", nil)
	}
	if !strings.EqualFold(tx.To, channel.DepositAddress) {
		return gatewayerr.New(gatewayerr.InputValidation, "transaction recipient does not match the channel's deposit address", nil)
	}
	return nil
}

// checkMemo is enforced only when both the channel and the transaction
// carry a memo; a channel memo against a memo-less transaction (or vice
// versa) is not a mismatch.
func checkMemo(channel *models.PaymentChannel, tx *chainkind.NormalisedTx) error {
	if channel.Memo == "" || tx.Memo == "" {
		return nil
	}
	if strings.TrimSpace(channel.Memo) != strings.TrimSpace(tx.Memo) {
		return gatewayerr.New(gatewayerr.InputValidation, "transaction memo does not match the channel's memo", nil)
	}
	return nil
}

func checkTemporal(channel *models.PaymentChannel, tx *chainkind.NormalisedTx) error {
	if tx.Timestamp.Before(channel.Created) {
		return gatewayerr.New(gatewayerr.InputValidation, "transaction predates the payment channel", nil)
	}
	return nil
}

// ConfirmationStore is the narrow persistence surface match.go needs for
// the double-credit check.
type ConfirmationStore interface {
	CreditedElsewhere(ctx context.Context, crypto models.Crypto, txHash, excludeChannelID string) (bool, error)
}

func checkDoubleCredit(ctx context.Context, channel *models.PaymentChannel, tx *chainkind.NormalisedTx, store ConfirmationStore) error {
	credited, err := store.CreditedElsewhere(ctx, channel.Crypto, tx.Hash, channel.ChannelID)
	if err != nil {
		return err
	}
	if credited {
		return gatewayerr.New(gatewayerr.Conflict, "transaction already credited a different channel", nil)
	}
	return nil
}
