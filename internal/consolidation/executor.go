// Package consolidation implements the admin-only sweep of per-channel
// deposit addresses into a single destination address, spec §4.7. Dispatch
// is per chain-kind since UTXO, account-based, and Solana chains each build
// and sign a sweep transaction differently; the three builders this package
// drives live alongside their pollers in internal/chainkind/<chain>/sweep.go.
package consolidation

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	solanago "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/hiveonboard/gateway/internal/chainkind/bitcoin"
	"github.com/hiveonboard/gateway/internal/chainkind/ethereum"
	"github.com/hiveonboard/gateway/internal/chainkind/solana"
	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

// feeUnitsPerTenInputs models "baseFee ∝ inputCount/10": every ten inputs add
// one fee unit's worth of satoshis-per-vbyte (BTC) or gwei (EVM gas price
// multiplier). Solana's per-signature fee is fixed by the network instead.
const feeUnitsPerTenInputs = 1

var priorityMultiplier = map[models.ConsolidationPriority]float64{
	models.PriorityLow:    0.5,
	models.PriorityMedium: 1.0,
	models.PriorityHigh:   2.0,
}

// ChannelStore is the persistence surface listing sweep candidates.
type ChannelStore interface {
	CompletedByCrypto(ctx context.Context, crypto models.Crypto) ([]*models.PaymentChannel, error)
}

// AddressLister resolves a channel's deposit addresses.
type AddressLister interface {
	ByChannel(ctx context.Context, channelID string) ([]*models.CryptoAddress, error)
}

// KeyVault decrypts a deposit address's private key for one-shot signing.
type KeyVault interface {
	PrivateKeyFor(ctx context.Context, crypto models.Crypto, address string) ([]byte, error)
}

// Store persists the finished sweep and flips source channels terminal.
type Store interface {
	Insert(ctx context.Context, tx *models.ConsolidationTransaction) error
	MarkConsolidated(ctx context.Context, channelIDs []string) error
}

// Executor drives one consolidation sweep per call; it holds no mutable
// state of its own beyond the wired adapters, confining any in-flight work
// to the call stack per spec §9's singleton-with-explicit-mutators note.
type Executor struct {
	channels  ChannelStore
	addresses AddressLister
	vault     KeyVault
	store     Store
	logger    *zap.Logger

	bitcoinAdapter  *bitcoin.Adapter
	ethereumChains  map[models.Crypto]*ethereum.Adapter
	solanaAdapter   *solana.Adapter
}

func New(channels ChannelStore, addresses AddressLister, vault KeyVault, store Store,
	btcAdapter *bitcoin.Adapter, ethAdapters map[models.Crypto]*ethereum.Adapter, solAdapter *solana.Adapter,
	logger *zap.Logger) *Executor {
	return &Executor{
		channels:       channels,
		addresses:      addresses,
		vault:          vault,
		store:          store,
		logger:         logger,
		bitcoinAdapter: btcAdapter,
		ethereumChains: ethAdapters,
		solanaAdapter:  solAdapter,
	}
}

// candidate is one completed channel's deposit address plus its current
// on-chain balance, gathered before any fee math so the inputCount driving
// the fee estimate reflects exactly the addresses that will be swept.
type candidate struct {
	channelID string
	address   string
	balance   *big.Int
}

// Prepare enumerates sweep candidates and their estimated fee without
// broadcasting anything, for the admin's /admin/prepare-consolidation
// preview step.
func (e *Executor) Prepare(ctx context.Context, crypto models.Crypto, priority models.ConsolidationPriority) (gross, fee, net *big.Int, inputCount int, err error) {
	candidates, err := e.gatherCandidates(ctx, crypto)
	if err != nil {
		return nil, nil, nil, 0, err
	}
	gross = big.NewInt(0)
	for _, c := range candidates {
		gross.Add(gross, c.balance)
	}
	fee = e.estimateFee(crypto, len(candidates), priority)
	net = new(big.Int).Sub(gross, fee)
	return gross, fee, net, len(candidates), nil
}

// Execute sweeps every completed channel's balance for crypto into
// destination, persists the resulting ConsolidationTransaction, and flips
// every swept channel to consolidated.
func (e *Executor) Execute(ctx context.Context, crypto models.Crypto, destination string, priority models.ConsolidationPriority) (*models.ConsolidationTransaction, error) {
	candidates, err := e.gatherCandidates(ctx, crypto)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, gatewayerr.New(gatewayerr.Insufficient, "no completed channels with a swept balance", nil)
	}

	gross := big.NewInt(0)
	for _, c := range candidates {
		gross.Add(gross, c.balance)
	}
	fee := e.estimateFee(crypto, len(candidates), priority)
	net := new(big.Int).Sub(gross, fee)
	if net.Sign() <= 0 {
		return nil, gatewayerr.New(gatewayerr.Insufficient, "estimated fee exceeds swept balance", nil)
	}

	primaryHash, additionalHashes, err := e.dispatch(ctx, crypto, candidates, destination)
	if err != nil {
		return nil, err
	}

	channelIDs := make([]string, len(candidates))
	for i, c := range candidates {
		channelIDs[i] = c.channelID
	}

	record := &models.ConsolidationTransaction{
		TxID:               primaryHash,
		Crypto:             crypto,
		DestinationAddress: destination,
		Priority:           priority,
		SourceChannelIDs:   channelIDs,
		GrossAmount:        gross.String(),
		EstimatedFee:       fee.String(),
		NetAmount:          net.String(),
		PrimaryTxHash:      primaryHash,
		AdditionalTxHashes: additionalHashes,
	}
	if err := e.store.Insert(ctx, record); err != nil {
		return nil, err
	}
	if err := e.store.MarkConsolidated(ctx, channelIDs); err != nil {
		return nil, err
	}
	if e.logger != nil {
		e.logger.Info("consolidation swept",
			zap.String("crypto", string(crypto)), zap.Int("inputs", len(candidates)),
			zap.String("net", net.String()), zap.String("primaryTxHash", primaryHash))
	}
	return record, nil
}

func (e *Executor) gatherCandidates(ctx context.Context, crypto models.Crypto) ([]candidate, error) {
	channels, err := e.channels.CompletedByCrypto(ctx, crypto)
	if err != nil {
		return nil, err
	}
	var out []candidate
	for _, ch := range channels {
		addrs, err := e.addresses.ByChannel(ctx, ch.ChannelID)
		if err != nil {
			return nil, err
		}
		for _, addr := range addrs {
			balance, err := e.balanceOf(ctx, crypto, addr.Address)
			if err != nil {
				if e.logger != nil {
					e.logger.Warn("skip unreachable deposit address during consolidation scan",
						zap.String("address", addr.Address), zap.Error(err))
				}
				continue
			}
			if balance.Sign() <= 0 {
				continue
			}
			out = append(out, candidate{channelID: ch.ChannelID, address: addr.Address, balance: balance})
		}
	}
	return out, nil
}

func (e *Executor) balanceOf(ctx context.Context, crypto models.Crypto, address string) (*big.Int, error) {
	switch crypto {
	case models.BTC:
		return e.bitcoinAdapter.Balance(ctx, address)
	case models.ETH, models.BNB, models.MATIC:
		adapter, ok := e.ethereumChains[crypto]
		if !ok {
			return nil, gatewayerr.New(gatewayerr.Internal, fmt.Sprintf("no adapter wired for %s", crypto), nil)
		}
		return adapter.Balance(ctx, address)
	case models.SOL:
		return e.solanaAdapter.Balance(ctx, address)
	default:
		return nil, gatewayerr.New(gatewayerr.InputValidation, fmt.Sprintf("unsupported crypto %q", crypto), nil)
	}
}

// estimateFee implements "baseFee ∝ inputCount/10" with the priority
// multiplier table from spec §4.7; the proportionality constant is the
// network's native fee unit (sat/vbyte for BTC, gwei for EVM, lamports/sig
// for Solana) already used by that chain's sweep builder.
func (e *Executor) estimateFee(crypto models.Crypto, inputCount int, priority models.ConsolidationPriority) *big.Int {
	units := float64(inputCount) / 10.0
	if units < feeUnitsPerTenInputs {
		units = feeUnitsPerTenInputs
	}
	mult := priorityMultiplier[priority]
	if mult == 0 {
		mult = 1.0
	}

	var perUnit int64
	switch crypto {
	case models.BTC:
		perUnit = 2000 // ~ sat/vbyte * typical single-input-single-output size
	case models.ETH:
		perUnit = 21000 * 20e9 / 1e9 // gas * 20 gwei, scaled down to stay in int64 headroom
	case models.BNB, models.MATIC:
		perUnit = 21000 * 5e9 / 1e9
	case models.SOL:
		perUnit = 5000
	}
	fee := int64(units * mult * float64(perUnit))
	return big.NewInt(fee)
}

// dispatch performs the actual chain-specific sweep and returns the
// canonical primary hash plus any additional hashes (account-based chains
// broadcast one transaction per source address; UTXO and Solana sweeps
// produce exactly one).
func (e *Executor) dispatch(ctx context.Context, crypto models.Crypto, candidates []candidate, destination string) (string, []string, error) {
	switch crypto {
	case models.BTC:
		return e.dispatchBitcoin(ctx, candidates, destination)
	case models.ETH, models.BNB, models.MATIC:
		return e.dispatchEthereum(ctx, crypto, candidates, destination)
	case models.SOL:
		return e.dispatchSolana(ctx, candidates, destination)
	default:
		return "", nil, gatewayerr.New(gatewayerr.InputValidation, fmt.Sprintf("unsupported crypto %q", crypto), nil)
	}
}

func (e *Executor) dispatchBitcoin(ctx context.Context, candidates []candidate, destination string) (string, []string, error) {
	sources := make([]bitcoin.SweepSource, 0, len(candidates))
	for _, c := range candidates {
		raw, err := e.vault.PrivateKeyFor(ctx, models.BTC, c.address)
		if err != nil {
			return "", nil, err
		}
		priv, _ := btcec.PrivKeyFromBytes(raw)
		sources = append(sources, bitcoin.SweepSource{Address: c.address, PrivateKey: priv})
	}
	const feeRateSatPerVByte = 20
	hash, err := e.bitcoinAdapter.Sweep(ctx, sources, destination, feeRateSatPerVByte)
	if err != nil {
		return "", nil, err
	}
	return hash, nil, nil
}

func (e *Executor) dispatchEthereum(ctx context.Context, crypto models.Crypto, candidates []candidate, destination string) (string, []string, error) {
	adapter, ok := e.ethereumChains[crypto]
	if !ok {
		return "", nil, gatewayerr.New(gatewayerr.Internal, fmt.Sprintf("no adapter wired for %s", crypto), nil)
	}
	var primary string
	var additional []string
	for _, c := range candidates {
		raw, err := e.vault.PrivateKeyFor(ctx, crypto, c.address)
		if err != nil {
			return "", nil, err
		}
		privKey, err := gethcrypto.ToECDSA(raw)
		if err != nil {
			return "", nil, gatewayerr.New(gatewayerr.Integrity, "decrypted key is not a valid ECDSA private key", err)
		}
		hash, err := adapter.SweepOne(ctx, ethereum.SweepSource{Address: c.address, PrivateKey: privKey}, destination)
		if err != nil {
			return "", nil, err
		}
		if primary == "" {
			primary = hash
		} else {
			additional = append(additional, hash)
		}
	}
	return primary, additional, nil
}

func (e *Executor) dispatchSolana(ctx context.Context, candidates []candidate, destination string) (string, []string, error) {
	sources := make([]solana.SweepSource, 0, len(candidates))
	for _, c := range candidates {
		raw, err := e.vault.PrivateKeyFor(ctx, models.SOL, c.address)
		if err != nil {
			return "", nil, err
		}
		if len(raw) != ed25519.SeedSize {
			return "", nil, gatewayerr.New(gatewayerr.Integrity, "decrypted solana key is not a 32-byte seed", nil)
		}
		priv := solanago.PrivateKey(ed25519.NewKeyFromSeed(raw))
		sources = append(sources, solana.SweepSource{Address: c.address, PrivateKey: priv})
	}
	hash, err := e.solanaAdapter.Sweep(ctx, sources, destination)
	if err != nil {
		return "", nil, err
	}
	return hash, nil, nil
}
