package ethereum

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// DerivationPath returns the BIP44 path m/44'/60'/0'/0/index for the given
// deposit-address index. Coin type 60 is used for every EVM network this
// gateway monitors (ETH, BNB, MATIC share the same derivation since the
// underlying curve and address format are identical).
func DerivationPath(index uint32) string {
	return fmt.Sprintf("m/44'/60'/0'/0/%d", index)
}

// AddressFromPubKey converts an uncompressed secp256k1 public key into a
// checksummed EVM address (keccak256 of the public key, last 20 bytes).
func AddressFromPubKey(pubKeyBytes []byte) (string, error) {
	pubKey, err := crypto.UnmarshalPubkey(pubKeyBytes)
	if err != nil {
		return "", fmt.Errorf("ethereum: parse public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey).Hex(), nil
}
