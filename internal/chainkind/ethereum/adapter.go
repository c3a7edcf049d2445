// Package ethereum implements chainkind.CryptoKind for EVM account chains.
// One Adapter instance is constructed per network (ETH via Etherscan, BNB
// via BscScan, MATIC via PolygonScan) since all three share the same
// "etherscan-family" explorer API shape and the same EVM address/signature
// scheme; only the base URL, API key, and chain ID differ. Normalisation
// and polling follow src/chainadapter/ethereum/adapter.go from the teacher
// toolkit.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/hiveonboard/gateway/internal/chainkind"
	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/httpjson"
	"github.com/hiveonboard/gateway/internal/models"
)

// Adapter polls an Etherscan-family block explorer API for one EVM chain.
type Adapter struct {
	client    *httpjson.Client
	crypto    models.Crypto
	baseURL   string
	apiKey    string
	blockTime time.Duration
	chainID   *big.Int
}

func New(crypto models.Crypto, baseURL, apiKey string, blockTime time.Duration, chainID int64) *Adapter {
	return &Adapter{
		client:    httpjson.New(),
		crypto:    crypto,
		baseURL:   baseURL,
		apiKey:    apiKey,
		blockTime: blockTime,
		chainID:   big.NewInt(chainID),
	}
}

func (a *Adapter) ID() models.Crypto { return a.crypto }

func (a *Adapter) Capabilities() chainkind.Capabilities {
	return chainkind.Capabilities{
		IsUTXO:        false,
		SupportsMemo:  false,
		BlockTime:     a.blockTime,
		DustThreshold: big.NewInt(0),
	}
}

type etherscanEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  interface{}     `json:"result"`
}

type etherscanTx struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
	Confirmations string `json:"confirmations"`
}

// GetTransaction fetches a single transaction by hash via the proxy module
// (eth_getTransactionByHash), then the current block number to derive
// confirmations.
func (a *Adapter) GetTransaction(ctx context.Context, hash string) (*chainkind.NormalisedTx, error) {
	var envelope struct {
		Result *struct {
			Hash        string `json:"hash"`
			From        string `json:"from"`
			To          string `json:"to"`
			Value       string `json:"value"`
			BlockNumber string `json:"blockNumber"`
			Input       string `json:"input"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s?module=proxy&action=eth_getTransactionByHash&txhash=%s&apikey=%s", a.baseURL, hash, a.apiKey)
	if err := a.client.GetJSON(ctx, url, nil, &envelope); err != nil {
		return nil, err
	}
	if envelope.Result == nil || envelope.Result.Hash == "" {
		return nil, gatewayerr.New(gatewayerr.NotFound, "transaction not found", nil)
	}

	blockNum, err := parseHexOrDecimal(envelope.Result.BlockNumber)
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.ExternalUnavailable, "parse block number", err)
	}

	value, ok := new(big.Int).SetString(trimHexPrefix(envelope.Result.Value), 16)
	if !ok {
		value = big.NewInt(0)
	}

	tip, err := a.blockNumber(ctx)
	confirmations := 0
	if err == nil && blockNum > 0 && tip >= blockNum {
		confirmations = int(tip-blockNum) + 1
	}

	blockTimestamp, _ := a.blockTimestamp(ctx, blockNum)

	return &chainkind.NormalisedTx{
		Hash:          envelope.Result.Hash,
		Amount:        value,
		To:            envelope.Result.To,
		Confirmations: confirmations,
		BlockHeight:   blockNum,
		Timestamp:     blockTimestamp,
	}, nil
}

func (a *Adapter) blockNumber(ctx context.Context) (int64, error) {
	var envelope struct {
		Result string `json:"result"`
	}
	url := fmt.Sprintf("%s?module=proxy&action=eth_blockNumber&apikey=%s", a.baseURL, a.apiKey)
	if err := a.client.GetJSON(ctx, url, nil, &envelope); err != nil {
		return 0, err
	}
	return parseHexOrDecimal(envelope.Result)
}

func (a *Adapter) blockTimestamp(ctx context.Context, blockNum int64) (time.Time, error) {
	var envelope struct {
		Result *struct {
			Timestamp string `json:"timestamp"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s?module=proxy&action=eth_getBlockByNumber&tag=0x%x&boolean=false&apikey=%s", a.baseURL, blockNum, a.apiKey)
	if err := a.client.GetJSON(ctx, url, nil, &envelope); err != nil || envelope.Result == nil {
		return time.Time{}, err
	}
	ts, err := parseHexOrDecimal(envelope.Result.Timestamp)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(ts, 0), nil
}

// GetAddressTransactions returns inbound normal transactions to address
// observed strictly after sinceTimestamp, via the account/txlist module.
func (a *Adapter) GetAddressTransactions(ctx context.Context, address string, since time.Time) ([]*chainkind.NormalisedTx, error) {
	var envelope struct {
		Status string        `json:"status"`
		Result []etherscanTx `json:"result"`
	}
	url := fmt.Sprintf("%s?module=account&action=txlist&address=%s&sort=desc&apikey=%s", a.baseURL, address, a.apiKey)
	if err := a.client.GetJSON(ctx, url, nil, &envelope); err != nil {
		return nil, err
	}

	var out []*chainkind.NormalisedTx
	for _, tx := range envelope.Result {
		if !sameAddress(tx.To, address) {
			continue
		}
		ts, err := strconv.ParseInt(tx.TimeStamp, 10, 64)
		if err != nil {
			continue
		}
		txTime := time.Unix(ts, 0)
		if !txTime.After(since) {
			continue
		}
		value, ok := new(big.Int).SetString(tx.Value, 10)
		if !ok {
			value = big.NewInt(0)
		}
		blockNum, _ := strconv.ParseInt(tx.BlockNumber, 10, 64)
		confirmations, _ := strconv.Atoi(tx.Confirmations)
		out = append(out, &chainkind.NormalisedTx{
			Hash:          tx.Hash,
			Amount:        value,
			To:            tx.To,
			Confirmations: confirmations,
			BlockHeight:   blockNum,
			Timestamp:     txTime,
		})
	}
	return out, nil
}

func sameAddress(a, b string) bool {
	return len(a) > 0 && len(b) > 0 && normaliseHexAddr(a) == normaliseHexAddr(b)
}

func normaliseHexAddr(a string) string {
	a = trimHexPrefix(a)
	lower := make([]byte, len(a))
	for i := 0; i < len(a); i++ {
		c := a[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		lower[i] = c
	}
	return string(lower)
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func parseHexOrDecimal(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	trimmed := trimHexPrefix(s)
	n, err := strconv.ParseInt(trimmed, 16, 64)
	if err != nil {
		return 0, err
	}
	return n, nil
}
