package hive

import "bytes"

// Operation ids below are graphene/Hive protocol constants (the position
// of each operation type in the chain's operation variant), not anything
// derived from the pack.
const (
	opAccountCreate        = 9
	opClaimAccount         = 22
	opCreateClaimedAccount = 23
)

type operation interface {
	serialize(buf *bytes.Buffer)
}

// accountCreateOp pays the 3 HIVE delegation fee to mint newAccount.
type accountCreateOp struct {
	feeAmount int64 // fixed-point HIVE, 3 decimals (3.000 HIVE == 3000)
	creator   string
	newName   string
	keys      keySet
}

type keySet struct {
	owner, active, posting, memo string
}

func (o accountCreateOp) serialize(buf *bytes.Buffer) {
	writeVarint(buf, opAccountCreate)
	hiveAsset(o.feeAmount).serialize(buf)
	writeString(buf, o.creator)
	writeString(buf, o.newName)
	authority{key: o.keys.owner}.serialize(buf)
	authority{key: o.keys.active}.serialize(buf)
	authority{key: o.keys.posting}.serialize(buf)
	_ = writePublicKey(buf, o.keys.memo)
	writeString(buf, "")  // json_metadata
}

// claimAccountOp spends RC (fee=0) to mint a token the creator can later
// redeem via createClaimedAccountOp.
type claimAccountOp struct {
	creator string
}

func (o claimAccountOp) serialize(buf *bytes.Buffer) {
	writeVarint(buf, opClaimAccount)
	hiveAsset(0).serialize(buf)
	writeString(buf, o.creator)
	writeVarint(buf, 0) // extensions
}

// createClaimedAccountOp redeems one previously claimed token to mint
// newName, at zero marginal fee.
type createClaimedAccountOp struct {
	creator string
	newName string
	keys    keySet
}

func (o createClaimedAccountOp) serialize(buf *bytes.Buffer) {
	writeVarint(buf, opCreateClaimedAccount)
	writeString(buf, o.creator)
	writeString(buf, o.newName)
	authority{key: o.keys.owner}.serialize(buf)
	authority{key: o.keys.active}.serialize(buf)
	authority{key: o.keys.posting}.serialize(buf)
	_ = writePublicKey(buf, o.keys.memo)
	writeString(buf, "") // json_metadata
	writeVarint(buf, 0)  // extensions
}
