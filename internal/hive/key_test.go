package hive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wifPrivateKeyOne is the well-known WIF encoding of secp256k1 private key
// 1 (compressed, mainnet), used across the ecosystem as a deterministic
// test vector.
const wifPrivateKeyOne = "KwDiBf89QgGbjEhKnhXJuH7LrciVrZi3qYjgd9M7rFU73sVHnoWn"

func TestDecodeActiveKey(t *testing.T) {
	priv, err := DecodeActiveKey(wifPrivateKeyOne)
	require.NoError(t, err)
	require.NotNil(t, priv)
}

func TestDecodeActiveKeyRejectsMalformed(t *testing.T) {
	_, err := DecodeActiveKey("not-a-wif-key")
	assert.Error(t, err)
}

func TestEncodeDecodePublicKeyRoundTrip(t *testing.T) {
	priv, err := DecodeActiveKey(wifPrivateKeyOne)
	require.NoError(t, err)

	encoded := EncodePublicKey(priv.PubKey())
	assert.Regexp(t, `^STM[A-Za-z0-9]{50,60}$`, encoded)

	decoded, err := DecodePublicKey(encoded)
	require.NoError(t, err)
	assert.Equal(t, priv.PubKey().SerializeCompressed(), decoded)
}
