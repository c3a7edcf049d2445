package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
)

const simpleTransferGas = 21000

// Balance returns address's current balance in wei via the proxy module's
// eth_getBalance, the same "module=proxy" family GetTransaction uses.
func (a *Adapter) Balance(ctx context.Context, address string) (*big.Int, error) {
	var envelope struct {
		Result string `json:"result"`
	}
	url := fmt.Sprintf("%s?module=proxy&action=eth_getBalance&address=%s&tag=latest&apikey=%s", a.baseURL, address, a.apiKey)
	if err := a.client.GetJSON(ctx, url, nil, &envelope); err != nil {
		return nil, err
	}
	bal, ok := new(big.Int).SetString(trimHexPrefix(envelope.Result), 16)
	if !ok {
		return nil, gatewayerr.New(gatewayerr.ExternalUnavailable, "parse balance", nil)
	}
	return bal, nil
}

func (a *Adapter) nonce(ctx context.Context, address string) (uint64, error) {
	var envelope struct {
		Result string `json:"result"`
	}
	url := fmt.Sprintf("%s?module=proxy&action=eth_getTransactionCount&address=%s&tag=pending&apikey=%s", a.baseURL, address, a.apiKey)
	if err := a.client.GetJSON(ctx, url, nil, &envelope); err != nil {
		return 0, err
	}
	n, err := parseHexOrDecimal(envelope.Result)
	if err != nil {
		return 0, gatewayerr.New(gatewayerr.ExternalUnavailable, "parse nonce", err)
	}
	return uint64(n), nil
}

func (a *Adapter) gasPrice(ctx context.Context) (*big.Int, error) {
	var envelope struct {
		Result string `json:"result"`
	}
	url := fmt.Sprintf("%s?module=proxy&action=eth_gasPrice&apikey=%s", a.baseURL, a.apiKey)
	if err := a.client.GetJSON(ctx, url, nil, &envelope); err != nil {
		return nil, err
	}
	price, ok := new(big.Int).SetString(trimHexPrefix(envelope.Result), 16)
	if !ok {
		return nil, gatewayerr.New(gatewayerr.ExternalUnavailable, "parse gas price", nil)
	}
	return price, nil
}

// SweepSource is one consolidation input address plus its private key.
type SweepSource struct {
	Address    string
	PrivateKey *ecdsa.PrivateKey
}

// SweepOne submits a single legacy transaction spending source's full
// balance (minus gas) to destination. EVM accounts have no multi-input
// concept like UTXO chains, so consolidating N source addresses means N
// separate transactions; the caller submits one source at a time and
// collects the resulting hashes, recording the first as canonical per the
// consolidation record's shape and the rest as additional hashes.
func (a *Adapter) SweepOne(ctx context.Context, source SweepSource, destination string) (string, error) {
	balance, err := a.Balance(ctx, source.Address)
	if err != nil {
		return "", err
	}
	gasPrice, err := a.gasPrice(ctx)
	if err != nil {
		return "", err
	}
	gasCost := new(big.Int).Mul(gasPrice, big.NewInt(simpleTransferGas))
	amount := new(big.Int).Sub(balance, gasCost)
	if amount.Sign() <= 0 {
		return "", gatewayerr.New(gatewayerr.Insufficient, "balance does not cover gas cost", nil)
	}

	nonce, err := a.nonce(ctx, source.Address)
	if err != nil {
		return "", err
	}

	toAddr := common.HexToAddress(destination)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &toAddr,
		Value:    amount,
		Gas:      simpleTransferGas,
		GasPrice: gasPrice,
	})

	signer := types.NewEIP155Signer(a.chainID)
	signedTx, err := types.SignTx(tx, signer, source.PrivateKey)
	if err != nil {
		return "", gatewayerr.New(gatewayerr.Internal, "sign sweep transaction", err)
	}

	raw, err := signedTx.MarshalBinary()
	if err != nil {
		return "", gatewayerr.New(gatewayerr.Internal, "encode signed transaction", err)
	}

	var envelope struct {
		Result string `json:"result"`
	}
	url := fmt.Sprintf("%s?module=proxy&action=eth_sendRawTransaction&hex=0x%s&apikey=%s", a.baseURL, common.Bytes2Hex(raw), a.apiKey)
	if err := a.client.GetJSON(ctx, url, nil, &envelope); err != nil {
		return "", err
	}
	if envelope.Result == "" {
		return "", gatewayerr.New(gatewayerr.ExternalUnavailable, "broadcast returned no transaction hash", nil)
	}
	return envelope.Result, nil
}
