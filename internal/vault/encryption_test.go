package vault

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

func TestEncryptDecryptPrivateKeyRoundTrip(t *testing.T) {
	key := testKey()
	plaintext := []byte("super secret private key material")

	envelope, err := EncryptPrivateKey(key, plaintext)
	require.NoError(t, err)
	assert.Len(t, envelope, ivLen+tagLen+len(plaintext))

	decrypted, err := DecryptPrivateKey(key, envelope)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptPrivateKeyRejectsWrongKeyLength(t *testing.T) {
	_, err := EncryptPrivateKey([]byte("too-short"), []byte("data"))
	assert.Error(t, err)
}

func TestDecryptPrivateKeyFailsOnWrongKey(t *testing.T) {
	key := testKey()
	wrongKey := testKey()
	wrongKey[0] ^= 0xff

	envelope, err := EncryptPrivateKey(key, []byte("secret"))
	require.NoError(t, err)

	_, err = DecryptPrivateKey(wrongKey, envelope)
	assert.Error(t, err)
}

func TestDecryptPrivateKeyFailsOnTamperedCiphertext(t *testing.T) {
	key := testKey()
	envelope, err := EncryptPrivateKey(key, []byte("secret"))
	require.NoError(t, err)

	envelope[len(envelope)-1] ^= 0xff

	_, err = DecryptPrivateKey(key, envelope)
	assert.Error(t, err)
}

func TestDecryptPrivateKeyRejectsShortEnvelope(t *testing.T) {
	_, err := DecryptPrivateKey(testKey(), []byte("too short"))
	assert.Error(t, err)
}

func TestClearBytesZeroesSlice(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5}
	ClearBytes(b)
	assert.True(t, bytes.Equal(b, make([]byte, 5)))
}
