package bitcoin

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/hiveonboard/gateway/internal/chainkind"
)

// blockCypherTxOutput and blockCypherTx mirror the subset of BlockCypher's
// transaction response this fallback path needs.
type blockCypherTxOutput struct {
	Value     int64    `json:"value"`
	Addresses []string `json:"addresses"`
	ScriptType string  `json:"script_type"`
}

type blockCypherTx struct {
	Hash          string                `json:"hash"`
	BlockHeight   int64                 `json:"block_height"`
	Confirmations int                   `json:"confirmations"`
	Confirmed     time.Time             `json:"confirmed"`
	Outputs       []blockCypherTxOutput `json:"outputs"`
}

func (a *Adapter) blockCypherTip(ctx context.Context) (int64, error) {
	var chain struct {
		Height int64 `json:"height"`
	}
	url := "https://api.blockcypher.com/v1/btc/main"
	if a.blockCypherToken != "" {
		url += "?token=" + a.blockCypherToken
	}
	if err := a.client.GetJSON(ctx, url, nil, &chain); err != nil {
		return 0, err
	}
	return chain.Height, nil
}

func (a *Adapter) blockCypherTransaction(ctx context.Context, hash string, tipHeight int64) (*chainkind.NormalisedTx, error) {
	var tx blockCypherTx
	url := fmt.Sprintf("https://api.blockcypher.com/v1/btc/main/txs/%s", hash)
	if a.blockCypherToken != "" {
		url += "?token=" + a.blockCypherToken
	}
	if err := a.client.GetJSON(ctx, url, nil, &tx); err != nil {
		return nil, err
	}

	outputs := make([]chainkind.Output, 0, len(tx.Outputs))
	var total int64
	for _, o := range tx.Outputs {
		addr := ""
		if len(o.Addresses) > 0 {
			addr = o.Addresses[0]
		}
		outputs = append(outputs, chainkind.Output{
			Address:    addr,
			Amount:     big.NewInt(o.Value),
			ScriptType: o.ScriptType,
		})
		total += o.Value
	}

	return &chainkind.NormalisedTx{
		Hash:          tx.Hash,
		Amount:        big.NewInt(total),
		Confirmations: tx.Confirmations,
		BlockHeight:   tx.BlockHeight,
		Timestamp:     tx.Confirmed,
		AllOutputs:    outputs,
	}, nil
}

// decodeOPReturn extracts a printable memo from an Esplora scriptpubkey_asm
// field of the form "OP_RETURN OP_PUSHBYTES_3 78797a". Non-hex or
// non-printable payloads yield an empty memo rather than an error: a memo
// mismatch is never a reason to fail transaction matching.
func decodeOPReturn(asm string) string {
	fields := strings.Fields(asm)
	if len(fields) < 2 {
		return ""
	}
	payload := fields[len(fields)-1]
	raw, err := hex.DecodeString(payload)
	if err != nil {
		return ""
	}
	for _, b := range raw {
		if b < 0x20 || b > 0x7e {
			return ""
		}
	}
	return string(raw)
}
