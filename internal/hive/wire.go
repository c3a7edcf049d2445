package hive

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160"
)

// writeVarint writes a protobuf-style unsigned varint, the length prefix
// graphene uses ahead of every vector and string field.
func writeVarint(buf *bytes.Buffer, n uint64) {
	for n >= 0x80 {
		buf.WriteByte(byte(n) | 0x80)
		n >>= 7
	}
	buf.WriteByte(byte(n))
}

func writeString(buf *bytes.Buffer, s string) {
	writeVarint(buf, uint64(len(s)))
	buf.WriteString(s)
}

// DecodePublicKey turns a "STM..."/"TST..." address into its 33-byte
// compressed secp256k1 form: base58-decode, then drop the trailing 4-byte
// ripemd160 checksum graphene appends.
func DecodePublicKey(key string) ([]byte, error) {
	if len(key) < 4 {
		return nil, fmt.Errorf("hive: public key %q too short", key)
	}
	raw, err := base58.Decode(key[3:])
	if err != nil {
		return nil, fmt.Errorf("hive: decode public key: %w", err)
	}
	if len(raw) != 37 {
		return nil, fmt.Errorf("hive: public key %q decodes to %d bytes, want 37", key, len(raw))
	}
	return raw[:33], nil
}

// EncodePublicKey turns a 33-byte compressed secp256k1 point into graphene's
// "STM..." address form: base58(point || ripemd160(point)[:4]), the inverse
// of DecodePublicKey.
func EncodePublicKey(pub *btcec.PublicKey) string {
	point := pub.SerializeCompressed()
	h := ripemd160.New()
	h.Write(point)
	checksum := h.Sum(nil)[:4]
	return "STM" + base58.Encode(append(point, checksum...))
}

// writePublicKey serializes a public key as graphene's public_key_type: the
// raw 33-byte compressed point, no checksum, no prefix.
func writePublicKey(buf *bytes.Buffer, key string) error {
	raw, err := DecodePublicKey(key)
	if err != nil {
		return err
	}
	buf.Write(raw)
	return nil
}

// authority is graphene's weight_threshold authority: a single key at
// weight 1 is sufficient for every authority this gateway issues.
type authority struct {
	key string
}

func (a authority) serialize(buf *bytes.Buffer) error {
	writeVarint(buf, 1) // weight_threshold
	writeVarint(buf, 0) // account_auths, empty
	writeVarint(buf, 1) // key_auths, one entry
	if err := writePublicKey(buf, a.key); err != nil {
		return err
	}
	var weight [2]byte
	binary.LittleEndian.PutUint16(weight[:], 1)
	buf.Write(weight[:])
	return nil
}

// asset is graphene's legacy amount encoding: a fixed-point integer amount,
// a precision byte, and the symbol right-padded to 7 bytes. HIVE and HBD
// both use 3 decimal places.
type asset struct {
	amount    int64
	precision uint8
	symbol    string
}

func hiveAsset(amountMinor int64) asset { return asset{amount: amountMinor, precision: 3, symbol: "HIVE"} }

func (a asset) serialize(buf *bytes.Buffer) {
	var amt [8]byte
	binary.LittleEndian.PutUint64(amt[:], uint64(a.amount))
	buf.Write(amt[:])
	buf.WriteByte(a.precision)
	sym := make([]byte, 7)
	copy(sym, a.symbol)
	buf.Write(sym)
}

// signDigest produces a graphene-compatible compact ECDSA signature: a low-S
// signature with a one-byte recovery id prefix, canonicalized the way
// steem/hive full nodes require (recid offset by 31 for compressed keys).
func signDigest(digest []byte, privKey *btcec.PrivateKey) []byte {
	sig := ecdsa.SignCompact(privKey, digest, true)
	return sig
}

func sha256Digest(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[:]
}
