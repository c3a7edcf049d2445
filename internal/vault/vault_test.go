package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiveonboard/gateway/internal/models"
)

func testSeed() []byte {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	return seed
}

func TestDeriveBTCIsDeterministicAndDecrypts(t *testing.T) {
	v := New(testSeed(), testKey(), nil, nil)

	addrA, err := v.derive(models.BTC, 0)
	require.NoError(t, err)
	addrB, err := v.derive(models.BTC, 0)
	require.NoError(t, err)

	assert.Equal(t, addrA.Address, addrB.Address)
	assert.NotEmpty(t, addrA.Address)
	assert.Equal(t, "P2WPKH", addrA.AddressType)
	assert.Equal(t, "m/44'/0'/0'/0/0", addrA.DerivationPath)

	priv, err := DecryptPrivateKey(testKey(), addrA.EncryptedPrivateKey)
	require.NoError(t, err)
	assert.Len(t, priv, 32)
}

func TestDeriveBTCDiffersAcrossIndices(t *testing.T) {
	v := New(testSeed(), testKey(), nil, nil)

	addr0, err := v.derive(models.BTC, 0)
	require.NoError(t, err)
	addr1, err := v.derive(models.BTC, 1)
	require.NoError(t, err)

	assert.NotEqual(t, addr0.Address, addr1.Address)
}

func TestDeriveETHFamilySharesPathShape(t *testing.T) {
	v := New(testSeed(), testKey(), nil, nil)

	eth, err := v.derive(models.ETH, 3)
	require.NoError(t, err)
	assert.Equal(t, "m/44'/60'/0'/0/3", eth.DerivationPath)
	assert.Equal(t, "EOA", eth.AddressType)

	bnb, err := v.derive(models.BNB, 3)
	require.NoError(t, err)
	assert.Equal(t, eth.Address, bnb.Address, "BNB and ETH share the same secp256k1 EOA derivation")
}

func TestDeriveSOLProducesEd25519Address(t *testing.T) {
	v := New(testSeed(), testKey(), nil, nil)

	addr, err := v.derive(models.SOL, 0)
	require.NoError(t, err)
	assert.Equal(t, "ed25519", addr.AddressType)
	assert.NotEmpty(t, addr.Address)

	seed, err := DecryptPrivateKey(testKey(), addr.EncryptedPrivateKey)
	require.NoError(t, err)
	assert.Len(t, seed, 32)
}

func TestDeriveUnsupportedCryptoErrors(t *testing.T) {
	v := New(testSeed(), testKey(), nil, nil)
	_, err := v.derive(models.XMR, 0)
	assert.Error(t, err)
}
