// Package vault derives, stores, and decrypts per-channel deposit keys.
// The AES-256-GCM envelope follows the shape of the teacher toolkit's
// internal/services/crypto/encryption.go (AES-256-GCM, ClearBytes wipe
// idiom), but the wire layout differs: the encryption key here is a
// pre-derived 32-byte value read once from CRYPTO_ENCRYPTION_KEY, not a
// user password run through Argon2id each time, so there is no salt or
// KDF parameters to carry alongside the ciphertext. Layout is
// IV(16) || authTag(16) || ciphertext, with AAD fixed to the literal
// "private_key" tag.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	ivLen  = 16
	tagLen = 16
	aad    = "private_key"
)

// ClearBytes zeros b in place so a decrypted private key does not linger
// in memory longer than the call that needed it.
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// EncryptPrivateKey seals plaintext under key (must be 32 bytes) and
// returns IV(16) || authTag(16) || ciphertext.
func EncryptPrivateKey(key, plaintext []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("vault: encryption key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivLen)
	if err != nil {
		return nil, fmt.Errorf("vault: create GCM: %w", err)
	}

	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("vault: generate IV: %w", err)
	}

	// Seal appends the tag after the ciphertext; relocate it so the wire
	// format matches IV || tag || ciphertext exactly as specified.
	sealed := gcm.Seal(nil, iv, plaintext, []byte(aad))
	ciphertext := sealed[:len(sealed)-tagLen]
	tag := sealed[len(sealed)-tagLen:]

	out := make([]byte, 0, ivLen+tagLen+len(ciphertext))
	out = append(out, iv...)
	out = append(out, tag...)
	out = append(out, ciphertext...)
	return out, nil
}

// DecryptPrivateKey reverses EncryptPrivateKey. It fails closed: any
// length mismatch or authentication failure returns an error rather than
// partial plaintext.
func DecryptPrivateKey(key, envelope []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("vault: encryption key must be 32 bytes, got %d", len(key))
	}
	if len(envelope) < ivLen+tagLen {
		return nil, errors.New("vault: envelope too short")
	}

	iv := envelope[:ivLen]
	tag := envelope[ivLen : ivLen+tagLen]
	ciphertext := envelope[ivLen+tagLen:]

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivLen)
	if err != nil {
		return nil, fmt.Errorf("vault: create GCM: %w", err)
	}

	sealed := make([]byte, 0, len(ciphertext)+tagLen)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, []byte(aad))
	if err != nil {
		return nil, errors.New("vault: authentication failed, wrong key or corrupted data")
	}
	return plaintext, nil
}
