// Package bitcoin implements chainkind.CryptoKind for BTC, polling
// Blockstream as the primary source and BlockCypher as a fallback, per
// spec §6. Normalisation and the UTXO-specific AllOutputs handling follow
// the teacher toolkit's src/chainadapter/bitcoin/adapter.go shape.
package bitcoin

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/hiveonboard/gateway/internal/chainkind"
	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/httpjson"
	"github.com/hiveonboard/gateway/internal/models"
)

// Adapter polls Blockstream's Esplora API, falling back to BlockCypher when
// Blockstream is unavailable.
type Adapter struct {
	client           *httpjson.Client
	blockstreamBase  string
	blockCypherToken string
}

func New(blockstreamBase, blockCypherToken string) *Adapter {
	return &Adapter{
		client:           httpjson.New(),
		blockstreamBase:  blockstreamBase,
		blockCypherToken: blockCypherToken,
	}
}

func (a *Adapter) ID() models.Crypto { return models.BTC }

func (a *Adapter) Capabilities() chainkind.Capabilities {
	return chainkind.Capabilities{
		IsUTXO:        true,
		SupportsMemo:  true, // OP_RETURN
		BlockTime:     10 * time.Minute,
		DustThreshold: big.NewInt(546), // standard Bitcoin Core dust limit, sats
	}
}

type esploraVout struct {
	ScriptPubKeyAddress string `json:"scriptpubkey_address"`
	ScriptPubKeyType    string `json:"scriptpubkey_type"`
	ScriptPubKeyASM     string `json:"scriptpubkey_asm"`
	Value               int64  `json:"value"`
}

type esploraStatus struct {
	Confirmed   bool  `json:"confirmed"`
	BlockHeight int64 `json:"block_height"`
	BlockTime   int64 `json:"block_time"`
}

type esploraTx struct {
	TxID   string        `json:"txid"`
	Vout   []esploraVout `json:"vout"`
	Status esploraStatus `json:"status"`
}

// GetTransaction fetches and normalises a single BTC transaction.
func (a *Adapter) GetTransaction(ctx context.Context, hash string) (*chainkind.NormalisedTx, error) {
	var tx esploraTx
	url := fmt.Sprintf("%s/tx/%s", a.blockstreamBase, hash)
	if err := a.client.GetJSON(ctx, url, nil, &tx); err != nil {
		if tipHeight, tipErr := a.blockCypherTip(ctx); tipErr == nil {
			return a.blockCypherTransaction(ctx, hash, tipHeight)
		}
		return nil, err
	}

	tipHeight, err := a.tipHeight(ctx)
	if err != nil {
		// Tip lookup failing does not invalidate the transaction itself;
		// report zero confirmations rather than erroring the whole call.
		tipHeight = 0
	}

	return normaliseEsploraTx(&tx, tipHeight), nil
}

func normaliseEsploraTx(tx *esploraTx, tipHeight int64) *chainkind.NormalisedTx {
	outputs := make([]chainkind.Output, 0, len(tx.Vout))
	var total int64
	var memo string
	for _, v := range tx.Vout {
		outputs = append(outputs, chainkind.Output{
			Address:    v.ScriptPubKeyAddress,
			Amount:     big.NewInt(v.Value),
			ScriptType: v.ScriptPubKeyType,
		})
		total += v.Value
		if v.ScriptPubKeyType == "op_return" {
			memo = decodeOPReturn(v.ScriptPubKeyASM)
		}
	}

	confirmations := 0
	if tx.Status.Confirmed && tipHeight >= tx.Status.BlockHeight {
		confirmations = int(tipHeight-tx.Status.BlockHeight) + 1
	}

	return &chainkind.NormalisedTx{
		Hash:          tx.TxID,
		Amount:        big.NewInt(total),
		Confirmations: confirmations,
		BlockHeight:   tx.Status.BlockHeight,
		Timestamp:     time.Unix(tx.Status.BlockTime, 0),
		Memo:          memo,
		AllOutputs:    outputs,
	}
}

func (a *Adapter) tipHeight(ctx context.Context) (int64, error) {
	var height int64
	url := fmt.Sprintf("%s/blocks/tip/height", a.blockstreamBase)
	// Blockstream returns a bare integer body, not JSON; decode manually.
	raw, err := a.client.GetRaw(ctx, url, nil)
	if err != nil {
		return 0, err
	}
	if _, err := fmt.Sscanf(string(raw), "%d", &height); err != nil {
		return 0, gatewayerr.New(gatewayerr.ExternalUnavailable, "parse tip height", err)
	}
	return height, nil
}

// GetAddressTransactions returns inbound transfers after sinceTimestamp.
func (a *Adapter) GetAddressTransactions(ctx context.Context, address string, since time.Time) ([]*chainkind.NormalisedTx, error) {
	var txs []esploraTx
	url := fmt.Sprintf("%s/address/%s/txs", a.blockstreamBase, address)
	if err := a.client.GetJSON(ctx, url, nil, &txs); err != nil {
		return nil, err
	}

	tipHeight, _ := a.tipHeight(ctx)

	var out []*chainkind.NormalisedTx
	for i := range txs {
		tx := &txs[i]
		if tx.Status.BlockTime == 0 || !time.Unix(tx.Status.BlockTime, 0).After(since) {
			continue
		}
		inbound := false
		for _, v := range tx.Vout {
			if v.ScriptPubKeyAddress == address {
				inbound = true
				break
			}
		}
		if !inbound {
			continue
		}
		out = append(out, normaliseEsploraTx(tx, tipHeight))
	}
	return out, nil
}
