package hive

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
)

// transaction is the subset of a graphene signed_transaction this gateway
// ever builds: one operation, no memo-key-derived extensions.
type transaction struct {
	refBlockNum    uint16
	refBlockPrefix uint32
	expiration     time.Time
	operations     []operation
}

func (t transaction) serializeUnsigned(buf *bytes.Buffer) {
	var num [2]byte
	binary.LittleEndian.PutUint16(num[:], t.refBlockNum)
	buf.Write(num[:])

	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], t.refBlockPrefix)
	buf.Write(prefix[:])

	var exp [4]byte
	binary.LittleEndian.PutUint32(exp[:], uint32(t.expiration.Unix()))
	buf.Write(exp[:])

	writeVarint(buf, uint64(len(t.operations)))
	for _, op := range t.operations {
		op.serialize(buf)
	}
	writeVarint(buf, 0) // extensions
}

// sign computes the signing digest (chainID || serialized body) and returns
// the transaction's single compact signature, hex-encoded for the
// condenser_api broadcast call.
func (t transaction) sign(chainID []byte, privKey *btcec.PrivateKey) string {
	var body bytes.Buffer
	t.serializeUnsigned(&body)

	var preimage bytes.Buffer
	preimage.Write(chainID)
	preimage.Write(body.Bytes())

	digest := sha256Digest(preimage.Bytes())
	sig := signDigest(digest, privKey)
	return hex.EncodeToString(sig)
}

// refBlockFields derives ref_block_num/ref_block_prefix from the head block
// id the way every graphene client does: the low 16 bits of the block
// number, and the first 4 bytes after the block number inside the id
// (bytes 4:8), read little-endian.
func refBlockFields(headBlockNum uint32, headBlockID string) (uint16, uint32, error) {
	idBytes, err := hex.DecodeString(headBlockID)
	if err != nil {
		return 0, 0, err
	}
	if len(idBytes) < 8 {
		return 0, 0, fmt.Errorf("hive: head block id %q too short", headBlockID)
	}
	refNum := uint16(headBlockNum & 0xffff)
	refPrefix := binary.LittleEndian.Uint32(idBytes[4:8])
	return refNum, refPrefix, nil
}
