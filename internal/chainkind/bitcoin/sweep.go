package bitcoin

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
)

// utxo is one unspent P2WPKH output this gateway controls.
type utxo struct {
	TxID  string `json:"txid"`
	Vout  uint32 `json:"vout"`
	Value int64  `json:"value"`
}

type esploraUTXO struct {
	TxID   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Value  int64  `json:"value"`
	Status esploraStatus `json:"status"`
}

// ListUTXOs returns address's spendable outputs via Blockstream's Esplora
// UTXO endpoint, the same API GetTransaction/GetAddressTransactions use.
func (a *Adapter) ListUTXOs(ctx context.Context, address string) ([]utxo, error) {
	var raw []esploraUTXO
	url := fmt.Sprintf("%s/address/%s/utxo", a.blockstreamBase, address)
	if err := a.client.GetJSON(ctx, url, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]utxo, 0, len(raw))
	for _, u := range raw {
		if !u.Status.Confirmed {
			continue
		}
		out = append(out, utxo{TxID: u.TxID, Vout: u.Vout, Value: u.Value})
	}
	return out, nil
}

// Balance sums every confirmed UTXO's value at address, in satoshis.
func (a *Adapter) Balance(ctx context.Context, address string) (*big.Int, error) {
	utxos, err := a.ListUTXOs(ctx, address)
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	for _, u := range utxos {
		total.Add(total, big.NewInt(u.Value))
	}
	return total, nil
}

// SweepSource is one consolidation input address plus its private key.
type SweepSource struct {
	Address    string
	PrivateKey *btcec.PrivateKey
}

// Sweep spends every confirmed UTXO across sources into a single output at
// destination, a plain multi-input single-output P2WPKH transaction built
// and signed the way builder.go/signer.go construct and sign a spend, just
// generalized from one source address to many. feeRate is satoshis per
// vbyte; the actual fee is derived from the finished transaction's size so
// it reflects the real input count.
func (a *Adapter) Sweep(ctx context.Context, sources []SweepSource, destination string, feeRate int64) (string, error) {
	type signable struct {
		in      wire.OutPoint
		value   int64
		privKey *btcec.PrivateKey
		script  []byte
	}
	var inputs []signable
	var total int64

	for _, src := range sources {
		utxos, err := a.ListUTXOs(ctx, src.Address)
		if err != nil {
			return "", err
		}
		addr, err := btcutil.DecodeAddress(src.Address, &chaincfg.MainNetParams)
		if err != nil {
			return "", gatewayerr.New(gatewayerr.Internal, "decode source address", err)
		}
		script, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return "", gatewayerr.New(gatewayerr.Internal, "build source output script", err)
		}
		for _, u := range utxos {
			hash, err := chainhash.NewHashFromStr(u.TxID)
			if err != nil {
				return "", gatewayerr.New(gatewayerr.Internal, "parse utxo txid", err)
			}
			inputs = append(inputs, signable{
				in:      *wire.NewOutPoint(hash, u.Vout),
				value:   u.Value,
				privKey: src.PrivateKey,
				script:  script,
			})
			total += u.Value
		}
	}
	if len(inputs) == 0 {
		return "", gatewayerr.New(gatewayerr.Insufficient, "no spendable utxos found across source addresses", nil)
	}

	destAddr, err := btcutil.DecodeAddress(destination, &chaincfg.MainNetParams)
	if err != nil {
		return "", gatewayerr.New(gatewayerr.InputValidation, "invalid destination address", err)
	}
	destScript, err := txscript.PayToAddrScript(destAddr)
	if err != nil {
		return "", gatewayerr.New(gatewayerr.Internal, "build destination script", err)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	for _, in := range inputs {
		tx.AddTxIn(wire.NewTxIn(&in.in, nil, nil))
	}
	// Placeholder output; amount is corrected once the finished size is known.
	tx.AddTxOut(wire.NewTxOut(0, destScript))

	estimatedSize := int64(10 + 68*len(inputs) + 31) // one witness input ~68 vbytes, one P2WPKH output ~31
	fee := estimatedSize * feeRate
	netAmount := total - fee
	if netAmount <= 0 {
		return "", gatewayerr.New(gatewayerr.Insufficient, "swept amount does not cover network fee", nil)
	}
	tx.TxOut[0].Value = netAmount

	prevScripts := make([][]byte, len(inputs))
	prevValues := make([]int64, len(inputs))
	for i, in := range inputs {
		prevScripts[i] = in.script
		prevValues[i] = in.value
	}
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, in := range inputs {
		fetcher.AddPrevOut(in.in, wire.NewTxOut(in.value, in.script))
	}
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	for i, in := range inputs {
		sigHash, err := txscript.CalcWitnessSigHash(in.script, sigHashes, txscript.SigHashAll, tx, i, in.value)
		if err != nil {
			return "", gatewayerr.New(gatewayerr.Internal, "compute witness sighash", err)
		}
		sig := ecdsa.Sign(in.privKey, sigHash)
		sigBytes := append(sig.Serialize(), byte(txscript.SigHashAll))
		tx.TxIn[i].Witness = wire.TxWitness{sigBytes, in.privKey.PubKey().SerializeCompressed()}
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", gatewayerr.New(gatewayerr.Internal, "serialize swept transaction", err)
	}
	rawHex := hex.EncodeToString(buf.Bytes())

	txID, err := a.broadcastRaw(ctx, rawHex)
	if err != nil {
		return "", err
	}
	return txID, nil
}

// broadcastRaw submits a raw signed transaction to Blockstream's push
// endpoint, which returns the new transaction's txid as a bare string body.
func (a *Adapter) broadcastRaw(ctx context.Context, rawHex string) (string, error) {
	url := fmt.Sprintf("%s/tx", a.blockstreamBase)
	raw, err := a.client.PostRaw(ctx, url, []byte(rawHex))
	if err != nil {
		return "", gatewayerr.New(gatewayerr.ExternalUnavailable, "broadcast transaction failed", err)
	}
	return string(raw), nil
}
