package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"
)

func constSource(gwei int64) GasPriceSource {
	return func(ctx context.Context) (*big.Int, error) {
		return new(big.Int).Mul(big.NewInt(gwei), big.NewInt(1_000_000_000)), nil
	}
}

func failingSource(err error) GasPriceSource {
	return func(ctx context.Context) (*big.Int, error) {
		return nil, err
	}
}

func TestEstimateFeeUsesFirstHealthySource(t *testing.T) {
	estimator := NewFeeEstimator(nil, constSource(20))

	got := estimator.EstimateFee(context.Background())

	want := new(big.Int).Mul(big.NewInt(20_000_000_000), big.NewInt(defaultGasLimit))
	if got.Cmp(want) != 0 {
		t.Errorf("expected fee %s, got %s", want, got)
	}
}

func TestEstimateFeeFallsThroughToSecondSource(t *testing.T) {
	estimator := NewFeeEstimator(nil,
		failingSource(errors.New("etherscan unavailable")),
		constSource(40),
	)

	got := estimator.EstimateFee(context.Background())

	want := new(big.Int).Mul(big.NewInt(40_000_000_000), big.NewInt(defaultGasLimit))
	if got.Cmp(want) != 0 {
		t.Errorf("expected fee %s, got %s", want, got)
	}
}

func TestEstimateFeeSkipsZeroOrNegativePrice(t *testing.T) {
	zeroSource := func(ctx context.Context) (*big.Int, error) {
		return big.NewInt(0), nil
	}
	estimator := NewFeeEstimator(nil, zeroSource, constSource(15))

	got := estimator.EstimateFee(context.Background())

	want := new(big.Int).Mul(big.NewInt(15_000_000_000), big.NewInt(defaultGasLimit))
	if got.Cmp(want) != 0 {
		t.Errorf("expected fee %s, got %s", want, got)
	}
}

func TestEstimateFeeFallsBackToConstantWhenAllSourcesFail(t *testing.T) {
	estimator := NewFeeEstimator(nil,
		failingSource(errors.New("etherscan unavailable")),
		failingSource(errors.New("gas station unavailable")),
	)

	got := estimator.EstimateFee(context.Background())

	gweiToWei := big.NewInt(1_000_000_000)
	fallback := new(big.Int).Mul(big.NewInt(fallbackGasPriceGwei), gweiToWei)
	want := new(big.Int).Mul(fallback, big.NewInt(defaultGasLimit))
	if got.Cmp(want) != 0 {
		t.Errorf("expected fallback fee %s, got %s", want, got)
	}
}

func TestEstimateFeeWithNoSourcesConfigured(t *testing.T) {
	estimator := NewFeeEstimator(nil)

	got := estimator.EstimateFee(context.Background())
	if got.Sign() <= 0 {
		t.Error("expected a positive constant fallback fee")
	}
}
