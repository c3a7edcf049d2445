package ethereum

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	"github.com/hiveonboard/gateway/internal/httpjson"
)

// fallbackGasPriceGwei and defaultGasLimit back the constant fallback when both
// upstream gas-price sources fail. 21000 is the fixed cost of a plain ETH
// transfer; consolidation sweeps use the same figure since they are single
// native-asset transfers, not contract calls.
const (
	fallbackGasPriceGwei = 30
	defaultGasLimit      = 21000
)

// FeeEstimator estimates a native-asset transfer fee for one EVM network by
// querying two gas-price sources in order, falling back to a constant when
// both are unavailable. Only ETH is priced through an estimator (by
// internal/pricing); BNB and MATIC transfer fees come from that package's
// constant table and never call EstimateFee.
type FeeEstimator struct {
	client  *Adapter
	sources []GasPriceSource
	logger  *zap.Logger
}

type GasPriceSource func(ctx context.Context) (*big.Int, error)

func NewFeeEstimator(logger *zap.Logger, sources ...GasPriceSource) *FeeEstimator {
	return &FeeEstimator{sources: sources, logger: logger}
}

// EstimateFee returns the estimated transfer fee in wei.
func (f *FeeEstimator) EstimateFee(ctx context.Context) *big.Int {
	for _, source := range f.sources {
		price, err := source(ctx)
		if err != nil || price == nil || price.Sign() <= 0 {
			if f.logger != nil {
				f.logger.Warn("gas price source failed, trying next", zap.Error(err))
			}
			continue
		}
		return new(big.Int).Mul(price, big.NewInt(defaultGasLimit))
	}
	if f.logger != nil {
		f.logger.Warn("all gas price sources exhausted, using constant fallback")
	}
	gweiToWei := big.NewInt(1_000_000_000)
	fallback := new(big.Int).Mul(big.NewInt(fallbackGasPriceGwei), gweiToWei)
	return new(big.Int).Mul(fallback, big.NewInt(defaultGasLimit))
}

// EtherscanGasOracleSource queries the etherscan-family gastracker module,
// used as the first of ETH's two gas-price endpoints.
func EtherscanGasOracleSource(a *Adapter) GasPriceSource {
	return func(ctx context.Context) (*big.Int, error) {
		var envelope struct {
			Result struct {
				ProposeGasPrice string `json:"ProposeGasPrice"`
			} `json:"result"`
		}
		url := a.baseURL + "?module=gastracker&action=gasoracle&apikey=" + a.apiKey
		if err := a.client.GetJSON(ctx, url, nil, &envelope); err != nil {
			return nil, err
		}
		gwei, ok := new(big.Int).SetString(envelope.Result.ProposeGasPrice, 10)
		if !ok {
			return nil, nil
		}
		return new(big.Int).Mul(gwei, big.NewInt(1_000_000_000)), nil
	}
}

// EthGasStationSource queries the eth_gasPrice proxy RPC, used as ETH's
// second gas-price endpoint when the gas oracle module is unavailable.
func EthGasStationSource(a *Adapter) GasPriceSource {
	return func(ctx context.Context) (*big.Int, error) {
		var envelope struct {
			Result string `json:"result"`
		}
		url := a.baseURL + "?module=proxy&action=eth_gasPrice&apikey=" + a.apiKey
		if err := a.client.GetJSON(ctx, url, nil, &envelope); err != nil {
			return nil, err
		}
		wei, err := parseHexOrDecimal(envelope.Result)
		if err != nil {
			return nil, err
		}
		return big.NewInt(wei), nil
	}
}

// AlchemyGasPriceSource queries Alchemy's eth_gasPrice JSON-RPC endpoint
// directly, a third independent gas-price source ETH falls back to when
// both block-explorer sources are unavailable. Alchemy was the teacher
// toolkit's multi-chain RPC provider (internal/provider/alchemy); this is
// the one piece of that provider's surface an account-only gateway has a
// use for, since it never needs Alchemy's broader balance/NFT endpoints.
func AlchemyGasPriceSource(apiKey string) GasPriceSource {
	client := httpjson.New()
	url := "https://eth-mainnet.g.alchemy.com/v2/" + apiKey
	return func(ctx context.Context) (*big.Int, error) {
		reqBody := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"method":  "eth_gasPrice",
			"params":  []interface{}{},
		}
		var envelope struct {
			Result string `json:"result"`
		}
		if err := client.PostJSON(ctx, url, reqBody, &envelope); err != nil {
			return nil, err
		}
		wei, err := parseHexOrDecimal(envelope.Result)
		if err != nil {
			return nil, err
		}
		return big.NewInt(wei), nil
	}
}
