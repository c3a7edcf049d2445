package main

import "testing"

func TestSeedPhraseVerifyRejectsMalformedMnemonic(t *testing.T) {
	if err := seedPhraseVerify([]string{"not", "a", "valid", "mnemonic"}); err == nil {
		t.Fatal("expected an error for a malformed mnemonic")
	}
}

func TestSeedPhraseVerifyAcceptsKnownGoodMnemonic(t *testing.T) {
	words := []string{
		"abandon", "abandon", "abandon", "abandon", "abandon", "abandon",
		"abandon", "abandon", "abandon", "abandon", "abandon", "about",
	}
	if err := seedPhraseVerify(words); err != nil {
		t.Fatalf("expected the canonical test mnemonic to validate, got %v", err)
	}
}

func TestRunSeedPhraseRejectsUnknownSubcommand(t *testing.T) {
	if err := runSeedPhrase([]string{"bogus"}); err == nil {
		t.Fatal("expected an error for an unknown seed-phrase subcommand")
	}
}

func TestRunSeedPhraseRequiresArgs(t *testing.T) {
	if err := runSeedPhrase(nil); err == nil {
		t.Fatal("expected an error when no subcommand is given")
	}
}
