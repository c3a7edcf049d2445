package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"

	"github.com/hiveonboard/gateway/internal/config"
)

// runSeedPhrase implements the "seed-phrase" subcommand: operator tooling
// to convert CRYPTO_MASTER_SEED to and from a human recovery phrase,
// grounded on the teacher's MnemonicKeySource (src/chainadapter/keysource_impl.go),
// which validates a mnemonic with bip39.IsMnemonicValid before deriving
// from it. The vault itself never touches a mnemonic; it derives directly
// from the raw 32-byte seed.
func runSeedPhrase(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: gateway seed-phrase <new|verify> [args...]")
	}
	switch args[0] {
	case "new":
		return seedPhraseNew()
	case "verify":
		return seedPhraseVerify(args[1:])
	default:
		return fmt.Errorf("unknown seed-phrase subcommand %q (want new|verify)", args[0])
	}
}

// seedPhraseNew prints the BIP39 recovery phrase for the currently
// configured CRYPTO_MASTER_SEED, so an operator can write it down once and
// reconstruct the same 32 bytes of entropy later.
func seedPhraseNew() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(cfg.MasterSeed)
	if err != nil {
		return fmt.Errorf("derive mnemonic from master seed: %w", err)
	}
	fmt.Println(mnemonic)
	return nil
}

// seedPhraseVerify checks a recovery phrase's BIP39 checksum and prints the
// seed it derives, so an operator can confirm a phrase was copied down
// correctly before trusting it.
func seedPhraseVerify(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: gateway seed-phrase verify <mnemonic words...>")
	}
	mnemonic := strings.Join(args, " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return fmt.Errorf("invalid BIP39 mnemonic (bad word or checksum)")
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return fmt.Errorf("derive seed from mnemonic: %w", err)
	}
	fmt.Printf("valid mnemonic, derived seed: %s\n", hex.EncodeToString(seed))
	return nil
}
