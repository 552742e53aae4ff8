// Package crypto declares the cryptographic capabilities consumed by the
// voting core. The core never encrypts, decrypts or proves anything by
// itself; it is handed implementations of these interfaces.
package crypto

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/sealedvote/types"
)

// HomomorphicAdder combines ciphertexts without decrypting them.
type HomomorphicAdder interface {
	// Zero returns n encryptions of zero, the neutral element of Add.
	Zero(n int) (types.CipherVector, error)
	// Add returns a ciphertext of the sum of the plaintexts of x and y.
	Add(x, y types.Ciphertext) (types.Ciphertext, error)
}

// ThresholdDecrypter decrypts aggregates with the cooperation of a quorum of
// key share holders. It only accepts an Aggregate, never a single ballot.
type ThresholdDecrypter interface {
	// ThresholdDecrypt returns the plaintext totals of agg and a reference
	// to the committee proof of correct decryption.
	ThresholdDecrypt(ctx context.Context, agg *types.Aggregate) ([]*big.Int, []byte, error)
}

// OrderingProver attests the winning option of an aggregate without
// revealing magnitudes.
type OrderingProver interface {
	VerifyOrderingProof(ctx context.Context, agg *types.Aggregate) (int, []byte, error)
}

// KeyHolder is a backend whose ballots are encrypted under a public key.
// Its key material must outlive the process that generated it.
type KeyHolder interface {
	// EncryptionKey returns the public key handed to voters.
	EncryptionKey() []byte
	// MarshalKeys encodes the private key material.
	MarshalKeys() ([]byte, error)
}

// AllowlistVerifier checks that identity belongs to the allowlist committed
// by root.
type AllowlistVerifier interface {
	VerifyAllowlistProof(root []byte, identity common.Address, proof []byte) (bool, error)
}

// AddVectors adds two ciphertext vectors element-wise with adder. Both
// vectors must have the same length.
func AddVectors(adder HomomorphicAdder, x, y types.CipherVector) (types.CipherVector, error) {
	if len(x) != len(y) {
		return nil, types.ErrVectorSize
	}
	sum := make(types.CipherVector, len(x))
	for i := range x {
		c, err := adder.Add(x[i], y[i])
		if err != nil {
			return nil, err
		}
		sum[i] = c
	}
	return sum, nil
}

// Winner returns the index of the largest total, the lowest index on ties.
func Winner(totals []*big.Int) int {
	winner := 0
	for i := range totals {
		if totals[i].Cmp(totals[winner]) > 0 {
			winner = i
		}
	}
	return winner
}

// Ordering turns a threshold decrypter into an OrderingProver. The totals
// never leave VerifyOrderingProof: only the winner index is released.
type Ordering struct {
	Decrypter ThresholdDecrypter
}

// VerifyOrderingProof implements OrderingProver.
func (o Ordering) VerifyOrderingProof(ctx context.Context, agg *types.Aggregate) (int, []byte, error) {
	totals, proofRef, err := o.Decrypter.ThresholdDecrypt(ctx, agg)
	if err != nil {
		return 0, nil, err
	}
	if len(totals) == 0 {
		return 0, nil, types.ErrVectorSize
	}
	winner := Winner(totals)
	return winner, ethcrypto.Keccak256(proofRef, []byte{byte(winner)}), nil
}
