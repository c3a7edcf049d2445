// Package chainkind defines the per-network contract the deposit monitor
// polls against. It generalizes the teacher toolkit's ChainAdapter
// interface (src/chainadapter/adapter.go): that interface builds, signs,
// and broadcasts transactions for a wallet; this one only ever watches
// chains the gateway does not control keys on behalf of, so it narrows to
// the two read-only queries spec §4.5 names.
package chainkind

import (
	"context"
	"math/big"
	"time"

	"github.com/hiveonboard/gateway/internal/models"
)

// Output is one UTXO-chain output, used to satisfy the "any output targets
// the deposit address" recipient check for Bitcoin.
type Output struct {
	Address    string
	Amount     *big.Int
	ScriptType string
}

// NormalisedTx is the chain-agnostic shape every CryptoKind implementation
// must produce from its chain-specific RPC/API response.
type NormalisedTx struct {
	Hash          string
	Amount        *big.Int // smallest unit (satoshi, wei, lamport)
	To            string
	Confirmations int
	BlockHeight   int64
	Timestamp     time.Time
	Memo          string    // decoded OP_RETURN or SPL memo; "" if absent
	AllOutputs    []Output  // UTXO chains only; nil for account chains
}

// Capabilities describes fixed, compile-time-known facts about a network
// that the match pipeline needs to apply the right rule set.
type Capabilities struct {
	IsUTXO        bool
	SupportsMemo  bool
	BlockTime     time.Duration
	DustThreshold *big.Int // smallest unit; amounts below this are rejected
}

// CryptoKind is implemented once per monitored network (Bitcoin, Ethereum,
// Solana — the Ethereum implementation is reused for BNB and MATIC by
// parameterizing its RPC endpoint and explorer API, since all three are
// EVM account chains).
//
// Contract:
//   - GetTransaction and GetAddressTransactions MUST translate chain errors
//     into *gatewayerr.Error with Kind ExternalUnavailable for anything
//     transient (timeout, rate limit) so the monitor's backoff applies.
//   - MUST NOT be trusted blindly by callers: a manually supplied hash is
//     always re-fetched here, never taken from caller input.
type CryptoKind interface {
	ID() models.Crypto
	Capabilities() Capabilities

	// GetTransaction fetches a single transaction by hash, normalised.
	// Returns a NotFound *gatewayerr.Error if the chain has no record of it
	// (which may simply mean it has not propagated yet).
	GetTransaction(ctx context.Context, hash string) (*NormalisedTx, error)

	// GetAddressTransactions returns inbound transfers to address observed
	// strictly after sinceTimestamp.
	GetAddressTransactions(ctx context.Context, address string, sinceTimestamp time.Time) ([]*NormalisedTx, error)
}
