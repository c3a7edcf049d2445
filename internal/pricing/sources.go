package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/hiveonboard/gateway/internal/chainkind/ethereum"
	"github.com/hiveonboard/gateway/internal/httpjson"
	"github.com/hiveonboard/gateway/internal/models"
)

// fallbackPriceUSD is the static per-crypto price used whenever CoinGecko
// returns no price for that crypto; the node-median source covers HIVE
// only, and HIVE has no entry here. Monero and Dash
// are priced here for pricing-table symmetry even though neither is
// monitored (see internal/chainkind's registry).
var fallbackPriceUSD = map[models.Crypto]float64{
	models.BTC:   60000,
	models.ETH:   3000,
	models.BNB:   550,
	models.MATIC: 0.7,
	models.SOL:   150,
	models.XMR:   160,
	models.DASH:  30,
}

// avgTransferFeeUSD backs every chain except ETH, which estimates its own
// transfer fee from live gas prices via ethereum.FeeEstimator.
var avgTransferFeeUSD = map[models.Crypto]float64{
	models.BTC:   2.5,
	models.BNB:   0.3,
	models.MATIC: 0.02,
	models.SOL:   0.001,
}

type coinGeckoSource struct {
	client *httpjson.Client
}

func newCoinGeckoSource() *coinGeckoSource {
	return &coinGeckoSource{client: httpjson.New()}
}

var coinGeckoIDs = map[models.Crypto]string{
	models.BTC:   "bitcoin",
	models.ETH:   "ethereum",
	models.BNB:   "binancecoin",
	models.MATIC: "matic-network",
	models.SOL:   "solana",
	"HIVE":       "hive",
}

// Prices fetches USD spot prices for the requested cryptos (plus HIVE
// itself) from CoinGecko's simple-price endpoint.
func (s *coinGeckoSource) Prices(ctx context.Context, cryptos []models.Crypto) (map[models.Crypto]float64, error) {
	ids := make([]string, 0, len(cryptos)+1)
	lookup := map[string]models.Crypto{}
	for _, c := range append(append([]models.Crypto{}, cryptos...), "HIVE") {
		id, ok := coinGeckoIDs[c]
		if !ok {
			continue
		}
		ids = append(ids, id)
		lookup[id] = c
	}

	idList := ""
	for i, id := range ids {
		if i > 0 {
			idList += ","
		}
		idList += id
	}

	var resp map[string]struct {
		USD float64 `json:"usd"`
	}
	url := fmt.Sprintf("https://api.coingecko.com/api/v3/simple/price?ids=%s&vs_currencies=usd", idList)
	if err := s.client.GetJSON(ctx, url, nil, &resp); err != nil {
		return nil, err
	}

	out := make(map[models.Crypto]float64, len(resp))
	for id, v := range resp {
		if c, ok := lookup[id]; ok {
			out[c] = v.USD
		}
	}
	return out, nil
}

// hiveNodeMedianSource queries a Hive node's condenser_api for HIVE's
// median history price, used when CoinGecko is unavailable.
type hiveNodeMedianSource struct {
	client    *httpjson.Client
	nodes     []string
}

func newHiveNodeMedianSource(nodes []string) *hiveNodeMedianSource {
	return &hiveNodeMedianSource{client: httpjson.New(), nodes: nodes}
}

func (s *hiveNodeMedianSource) HivePriceUSD(ctx context.Context) (float64, error) {
	var lastErr error
	for _, node := range s.nodes {
		var resp struct {
			Result struct {
				Base  string `json:"base"`
				Quote string `json:"quote"`
			} `json:"result"`
		}
		body := []byte(`{"jsonrpc":"2.0","method":"condenser_api.get_current_median_history_price","params":[],"id":1}`)
		if err := postJSON(ctx, node, body, &resp); err != nil {
			lastErr = err
			continue
		}
		base, err1 := parseAssetAmount(resp.Result.Base)
		quote, err2 := parseAssetAmount(resp.Result.Quote)
		if err1 != nil || err2 != nil || quote == 0 {
			lastErr = fmt.Errorf("pricing: malformed median price response")
			continue
		}
		return base / quote, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("pricing: no hive nodes configured")
	}
	return 0, lastErr
}

// postJSON issues a bare JSON-RPC POST. The pricing oracle's Hive
// median-price fallback is its only JSON-RPC caller, so it is not worth
// routing through httpjson.Client (a GET-only helper) or the full
// internal/hive client (which the orchestrator, not pricing, depends on).
func postJSON(ctx context.Context, url string, body []byte, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, httpjson.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("pricing: hive node returned HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseAssetAmount(asset string) (float64, error) {
	var amount float64
	var symbol string
	if _, err := fmt.Sscanf(asset, "%f %s", &amount, &symbol); err != nil {
		return 0, err
	}
	return amount, nil
}

// evmTransferFeeUSD converts an ethereum.FeeEstimator's wei result to a
// USD figure using the live ETH price, for the pricing
// oracle's "ETH queries two gas-price endpoints" rule.
func evmTransferFeeUSD(ctx context.Context, estimator *ethereum.FeeEstimator, ethPriceUSD float64) float64 {
	wei := estimator.EstimateFee(ctx)
	ethAmount := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18))
	usd, _ := new(big.Float).Mul(ethAmount, big.NewFloat(ethPriceUSD)).Float64()
	return usd
}
