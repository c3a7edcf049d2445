package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     bool
	}{
		{"valid simple", "alice", true},
		{"valid with dash", "alice-test", true},
		{"valid dotted", "alice.sub", true},
		{"too short", "ab", false},
		{"too long", "abcdefghijklmnopq", false},
		{"uppercase rejected", "Alice", false},
		{"leading dash rejected", "-alice", false},
		{"trailing dot rejected", "alice.", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidUsername(tt.username))
		})
	}
}

func TestPublicKeysValid(t *testing.T) {
	validKey := "STM8GC13pAJbT6WCCjQGzFXrkTJhNRdzSD6qrG7K1XyjtXTzY6s46"
	keys := PublicKeys{Owner: validKey, Active: validKey, Posting: validKey, Memo: validKey}
	assert.True(t, keys.Valid())

	missingOne := keys
	missingOne.Memo = "not-a-key"
	assert.False(t, missingOne.Valid())
}

func TestValidChannelID(t *testing.T) {
	assert.True(t, ValidChannelID("0123456789abcdef0123456789abcdef"[:32]))
	assert.False(t, ValidChannelID("0123456789ABCDEF0123456789abcdef"))
	assert.False(t, ValidChannelID("too-short"))
}

func TestValidTxHash(t *testing.T) {
	assert.True(t, ValidTxHash("0123456789abcdef0123456789abcdef"))
	assert.False(t, ValidTxHash("not-hex!!"))
	assert.False(t, ValidTxHash(""))
}

func TestChannelStatusTerminal(t *testing.T) {
	terminal := []ChannelStatus{StatusFailed, StatusExpired, StatusConsolidated, StatusCompleted}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "expected %s to be terminal", s)
	}

	nonTerminal := []ChannelStatus{StatusPending, StatusConfirming, StatusConfirmed}
	for _, s := range nonTerminal {
		assert.False(t, s.Terminal(), "expected %s to not be terminal", s)
	}
}
