package solana

import (
	"fmt"

	gosolana "github.com/gagliardetto/solana-go"
)

// DerivationPath returns the BIP44 path m/44'/501'/index'/0' for the given
// deposit-address index. Coin type 501 is Solana; unlike the UTXO and EVM
// chains, Solana wallets conventionally harden every path segment.
func DerivationPath(index uint32) string {
	return fmt.Sprintf("m/44'/501'/%d'/0'", index)
}

// AddressFromPubKey returns the base58 encoding of a 32-byte ed25519 public
// key: Solana addresses are the raw public key, with no hashing step.
func AddressFromPubKey(pubKeyBytes []byte) (string, error) {
	if len(pubKeyBytes) != 32 {
		return "", fmt.Errorf("solana: invalid public key length %d, want 32", len(pubKeyBytes))
	}
	var pk gosolana.PublicKey
	copy(pk[:], pubKeyBytes)
	return pk.String(), nil
}
