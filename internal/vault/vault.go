package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"go.uber.org/zap"

	bitcoinkind "github.com/hiveonboard/gateway/internal/chainkind/bitcoin"
	ethereumkind "github.com/hiveonboard/gateway/internal/chainkind/ethereum"
	solanakind "github.com/hiveonboard/gateway/internal/chainkind/solana"
	"github.com/hiveonboard/gateway/internal/gatewayerr"
	"github.com/hiveonboard/gateway/internal/models"
)

// AddressStore is the persistence surface the vault needs. It is satisfied
// by internal/store's address repository; the vault package defines the
// interface it consumes rather than depending on the store package
// directly, the same inversion the teacher applies between its services
// and its keysource interface (src/chainadapter/keysource_impl.go).
type AddressStore interface {
	NextDerivationIndex(ctx context.Context, crypto models.Crypto) (uint32, error)
	FindReusable(ctx context.Context, crypto models.Crypto, now time.Time) (*models.CryptoAddress, error)
	Save(ctx context.Context, addr *models.CryptoAddress) error
	MarkReusable(ctx context.Context, address string, reusableAfter time.Time) error
	ByAddress(ctx context.Context, crypto models.Crypto, address string) (*models.CryptoAddress, error)
}

// Vault derives, encrypts, and allocates per-channel deposit addresses from
// a single master seed. It never exposes a private key in plaintext except
// transiently inside PrivateKeyFor, for consolidation signing.
type Vault struct {
	masterSeed    []byte
	encryptionKey []byte
	store         AddressStore
	logger        *zap.Logger
}

func New(masterSeed, encryptionKey []byte, store AddressStore, logger *zap.Logger) *Vault {
	return &Vault{
		masterSeed:    masterSeed,
		encryptionKey: encryptionKey,
		store:         store,
		logger:        logger,
	}
}

// AllocateAddress returns a deposit address for channelID: a cooled-down
// address is reused when one is available for crypto, otherwise a fresh
// index is derived.
func (v *Vault) AllocateAddress(ctx context.Context, crypto models.Crypto, channelID string) (*models.CryptoAddress, error) {
	reusable, err := v.store.FindReusable(ctx, crypto, time.Now())
	if err != nil {
		return nil, err
	}
	if reusable != nil {
		reusable.ChannelID = channelID
		reusable.ReusableAfter = nil
		if err := v.store.Save(ctx, reusable); err != nil {
			return nil, err
		}
		if v.logger != nil {
			v.logger.Info("reused cooled-down deposit address", zap.String("crypto", string(crypto)), zap.String("address", reusable.Address))
		}
		return reusable, nil
	}

	index, err := v.store.NextDerivationIndex(ctx, crypto)
	if err != nil {
		return nil, err
	}

	addr, err := v.derive(crypto, index)
	if err != nil {
		return nil, err
	}
	addr.ChannelID = channelID

	if err := v.store.Save(ctx, addr); err != nil {
		return nil, err
	}
	return addr, nil
}

// ReleaseAddress marks address reusable after the standard cooldown once
// its channel has reached a terminal status.
func (v *Vault) ReleaseAddress(ctx context.Context, address string) error {
	return v.store.MarkReusable(ctx, address, time.Now().Add(models.AddressCooldown))
}

// PrivateKeyFor decrypts and returns the raw private key bytes for address,
// for use in a single consolidation signing operation. Callers must call
// ClearBytes on the result as soon as signing completes.
func (v *Vault) PrivateKeyFor(ctx context.Context, crypto models.Crypto, address string) ([]byte, error) {
	rec, err := v.store.ByAddress(ctx, crypto, address)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, gatewayerr.New(gatewayerr.NotFound, "no vault record for address", nil)
	}
	return DecryptPrivateKey(v.encryptionKey, rec.EncryptedPrivateKey)
}

func (v *Vault) derive(crypto models.Crypto, index uint32) (*models.CryptoAddress, error) {
	switch crypto {
	case models.BTC:
		toAddress := func(pub *btcec.PublicKey) (string, error) { return bitcoinkind.AddressFromPubKey(pub.SerializeCompressed()) }
		return v.deriveSecp256k1(crypto, index, bitcoinkind.DerivationPath(index), "P2WPKH", toAddress)
	case models.ETH, models.BNB, models.MATIC:
		toAddress := func(pub *btcec.PublicKey) (string, error) { return ethereumkind.AddressFromPubKey(pub.SerializeUncompressed()) }
		return v.deriveSecp256k1(crypto, index, ethereumkind.DerivationPath(index), "EOA", toAddress)
	case models.SOL:
		return v.deriveEd25519Address(crypto, index)
	default:
		return nil, fmt.Errorf("vault: unsupported crypto %q", crypto)
	}
}

func (v *Vault) deriveSecp256k1(crypto models.Crypto, index uint32, path, addressType string, toAddress func(*btcec.PublicKey) (string, error)) (*models.CryptoAddress, error) {
	master, err := hdkeychain.NewMaster(v.masterSeed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("vault: create master key: %w", err)
	}
	child, err := derivePathHD(master, path)
	if err != nil {
		return nil, err
	}

	pubKey, err := child.ECPubKey()
	if err != nil {
		return nil, fmt.Errorf("vault: extract public key: %w", err)
	}
	privKey, err := child.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("vault: extract private key: %w", err)
	}
	privKeyBytes := privKey.Serialize()
	defer ClearBytes(privKeyBytes)

	address, err := toAddress(pubKey)
	if err != nil {
		return nil, err
	}

	encrypted, err := EncryptPrivateKey(v.encryptionKey, privKeyBytes)
	if err != nil {
		return nil, err
	}

	return &models.CryptoAddress{
		Crypto:              crypto,
		DerivationIndex:     index,
		Address:             address,
		PublicKey:           fmt.Sprintf("%x", pubKey.SerializeCompressed()),
		EncryptedPrivateKey: encrypted,
		DerivationPath:      path,
		AddressType:         addressType,
	}, nil
}

func (v *Vault) deriveEd25519Address(crypto models.Crypto, index uint32) (*models.CryptoAddress, error) {
	path := solanakind.DerivationPath(index)
	key, err := deriveEd25519(v.masterSeed, path)
	if err != nil {
		return nil, err
	}
	defer ClearBytes(key)

	publicKey := key[32:]
	address, err := solanakind.AddressFromPubKey(publicKey)
	if err != nil {
		return nil, err
	}

	seed := append([]byte(nil), key[:32]...)
	defer ClearBytes(seed)

	encrypted, err := EncryptPrivateKey(v.encryptionKey, seed)
	if err != nil {
		return nil, err
	}

	return &models.CryptoAddress{
		Crypto:              crypto,
		DerivationIndex:     index,
		Address:             address,
		PublicKey:           fmt.Sprintf("%x", publicKey),
		EncryptedPrivateKey: encrypted,
		DerivationPath:      path,
		AddressType:         "ed25519",
	}, nil
}

func derivePathHD(master *hdkeychain.ExtendedKey, path string) (*hdkeychain.ExtendedKey, error) {
	trimmed := path
	if len(trimmed) >= 2 && trimmed[:2] == "m/" {
		trimmed = trimmed[2:]
	}
	current := master
	start := 0
	for i := 0; i <= len(trimmed); i++ {
		if i == len(trimmed) || trimmed[i] == '/' {
			component := trimmed[start:i]
			start = i + 1
			if component == "" {
				continue
			}
			hardened := false
			if component[len(component)-1] == '\'' {
				hardened = true
				component = component[:len(component)-1]
			}
			var index uint32
			if _, err := fmt.Sscanf(component, "%d", &index); err != nil {
				return nil, fmt.Errorf("vault: invalid path component %q: %w", component, err)
			}
			if hardened {
				index += hdkeychain.HardenedKeyStart
			}
			child, err := current.Derive(index)
			if err != nil {
				return nil, fmt.Errorf("vault: derive child at %q: %w", component, err)
			}
			current = child
		}
	}
	return current, nil
}
