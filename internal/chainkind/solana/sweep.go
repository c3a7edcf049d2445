package solana

import (
	"context"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
)

// rentExemptReserve is the lamport balance a system account must retain to
// stay rent-exempt; sweeping leaves this behind rather than closing the
// account, since these deposit addresses are plain keypairs, not accounts
// the gateway ever explicitly closes.
const rentExemptReserve = 890880

// Balance returns address's current lamport balance.
func (a *Adapter) Balance(ctx context.Context, address string) (*big.Int, error) {
	pubKey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.InputValidation, "malformed solana address", err)
	}
	out, err := a.client.GetBalance(ctx, pubKey, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.ExternalUnavailable, "fetch solana balance", err)
	}
	return new(big.Int).SetUint64(out.Value), nil
}

// SweepSource is one consolidation input address plus its keypair.
type SweepSource struct {
	Address    string
	PrivateKey solana.PrivateKey
}

// Sweep builds one transaction containing a system transfer instruction per
// source, signed by every source keypair, moving each source's balance
// (minus rent-exempt reserve and a shared transaction fee share) to
// destination. Solana transactions support multiple signers natively, so
// unlike the EVM sweep this is one broadcast for every source address.
func (a *Adapter) Sweep(ctx context.Context, sources []SweepSource, destination string) (string, error) {
	destPub, err := solana.PublicKeyFromBase58(destination)
	if err != nil {
		return "", gatewayerr.New(gatewayerr.InputValidation, "invalid destination address", err)
	}

	const feePerSignature = 5000
	var instructions []solana.Instruction
	var signers []solana.PrivateKey

	for _, src := range sources {
		balance, err := a.Balance(ctx, src.Address)
		if err != nil {
			return "", err
		}
		amount := new(big.Int).Sub(balance, big.NewInt(rentExemptReserve+feePerSignature))
		if amount.Sign() <= 0 {
			continue
		}
		instructions = append(instructions, system.NewTransferInstruction(
			amount.Uint64(),
			src.PrivateKey.PublicKey(),
			destPub,
		).Build())
		signers = append(signers, src.PrivateKey)
	}
	if len(instructions) == 0 {
		return "", gatewayerr.New(gatewayerr.Insufficient, "no source balance exceeds the rent-exempt reserve", nil)
	}

	latest, err := a.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", gatewayerr.New(gatewayerr.ExternalUnavailable, "fetch recent blockhash", err)
	}

	tx, err := solana.NewTransaction(instructions, latest.Value.Blockhash, solana.TransactionPayer(signers[0].PublicKey()))
	if err != nil {
		return "", gatewayerr.New(gatewayerr.Internal, "build sweep transaction", err)
	}

	lookup := make(map[solana.PublicKey]solana.PrivateKey, len(signers))
	for _, s := range signers {
		lookup[s.PublicKey()] = s
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if pk, ok := lookup[key]; ok {
			return &pk
		}
		return nil
	}); err != nil {
		return "", gatewayerr.New(gatewayerr.Internal, "sign sweep transaction", err)
	}

	sig, err := a.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", gatewayerr.New(gatewayerr.ExternalUnavailable, "broadcast sweep transaction", err)
	}
	return sig.String(), nil
}
