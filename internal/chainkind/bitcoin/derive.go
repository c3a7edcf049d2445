// Derivation for Bitcoin deposit addresses: P2WPKH (native SegWit),
// grounded on the teacher toolkit's src/chainadapter/bitcoin/derive.go.
package bitcoin

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// DerivationPath returns the BIP44 path m/44'/0'/0'/0/index for the given
// deposit-address index. Coin type 0 is Bitcoin mainnet.
func DerivationPath(index uint32) string {
	return fmt.Sprintf("m/44'/0'/0'/0/%d", index)
}

// AddressFromPubKey converts a compressed secp256k1 public key into a
// mainnet P2WPKH address.
func AddressFromPubKey(pubKeyBytes []byte) (string, error) {
	if len(pubKeyBytes) != 33 {
		return "", fmt.Errorf("bitcoin: invalid public key length %d, want 33", len(pubKeyBytes))
	}
	pubKey, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return "", fmt.Errorf("bitcoin: parse public key: %w", err)
	}

	witnessProg := btcutil.Hash160(pubKey.SerializeCompressed())
	addr, err := btcutil.NewAddressWitnessPubKeyHash(witnessProg, &chaincfg.MainNetParams)
	if err != nil {
		return "", fmt.Errorf("bitcoin: encode P2WPKH address: %w", err)
	}
	return addr.EncodeAddress(), nil
}
