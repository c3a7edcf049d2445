package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCryptoMonitoringEnabled(t *testing.T) {
	enabled := []Crypto{BTC, ETH, BNB, MATIC, SOL}
	for _, c := range enabled {
		assert.True(t, c.MonitoringEnabled(), "expected %s to be monitoring-enabled", c)
	}

	disabled := []Crypto{XMR, DASH, Crypto("UNKNOWN")}
	for _, c := range disabled {
		assert.False(t, c.MonitoringEnabled(), "expected %s to not be monitoring-enabled", c)
	}
}

func TestRequiredConfirmations(t *testing.T) {
	tests := []struct {
		crypto Crypto
		want   int
	}{
		{BTC, 2},
		{ETH, 2},
		{BNB, 3},
		{MATIC, 10},
		{SOL, 1},
	}
	for _, tt := range tests {
		t.Run(string(tt.crypto), func(t *testing.T) {
			assert.Equal(t, tt.want, RequiredConfirmations(tt.crypto))
		})
	}
}

func TestRequiredConfirmationsPanicsForUnmonitored(t *testing.T) {
	assert.Panics(t, func() { RequiredConfirmations(XMR) })
}

func TestDecimals(t *testing.T) {
	tests := []struct {
		crypto Crypto
		want   int
	}{
		{BTC, 8},
		{ETH, 18},
		{BNB, 18},
		{MATIC, 18},
		{SOL, 9},
	}
	for _, tt := range tests {
		t.Run(string(tt.crypto), func(t *testing.T) {
			assert.Equal(t, tt.want, Decimals(tt.crypto))
		})
	}
}
