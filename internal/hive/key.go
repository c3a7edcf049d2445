package hive

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// DecodeActiveKey parses the creator account's active private key. Hive
// reuses Bitcoin's WIF encoding verbatim (base58check, version byte 0x80,
// compressed-point suffix), so the same btcutil decoder the vault's
// bitcoin derivation already depends on applies unchanged.
func DecodeActiveKey(wif string) (*btcec.PrivateKey, error) {
	decoded, err := btcutil.DecodeWIF(wif)
	if err != nil {
		return nil, fmt.Errorf("hive: decode active key: %w", err)
	}
	if !decoded.IsForNet(&chaincfg.MainNetParams) {
		return nil, fmt.Errorf("hive: active key is not a mainnet-format WIF")
	}
	return decoded.PrivKey, nil
}
