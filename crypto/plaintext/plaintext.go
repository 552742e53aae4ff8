// Package plaintext is an insecure additive scheme where the "ciphertext" is
// the big-endian encoding of the plaintext itself. It lets the accumulation,
// overwrite and disclosure logic run without real cryptography, in tests and
// development nodes.
package plaintext

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"math/bits"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/sealedvote/crypto"
	"github.com/vocdoni/sealedvote/types"
)

// CiphertextSize is the size of an encoded value.
const CiphertextSize = 8

var (
	_ crypto.HomomorphicAdder   = Scheme{}
	_ crypto.ThresholdDecrypter = Scheme{}
	_ crypto.OrderingProver     = Scheme{}
)

// Scheme implements every crypto capability over plaintext values.
type Scheme struct{}

// Encrypt encodes v.
func Encrypt(v uint64) types.Ciphertext {
	return binary.BigEndian.AppendUint64(nil, v)
}

// EncryptVector encodes one value per option.
func EncryptVector(values ...uint64) types.CipherVector {
	v := make(types.CipherVector, len(values))
	for i := range values {
		v[i] = Encrypt(values[i])
	}
	return v
}

// Decrypt decodes a ciphertext produced by Encrypt.
func Decrypt(c types.Ciphertext) (uint64, error) {
	if len(c) != CiphertextSize {
		return 0, fmt.Errorf("invalid ciphertext length %d", len(c))
	}
	return binary.BigEndian.Uint64(c), nil
}

func (Scheme) Zero(n int) (types.CipherVector, error) {
	return EncryptVector(make([]uint64, n)...), nil
}

func (Scheme) Add(x, y types.Ciphertext) (types.Ciphertext, error) {
	a, err := Decrypt(x)
	if err != nil {
		return nil, err
	}
	b, err := Decrypt(y)
	if err != nil {
		return nil, err
	}
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return nil, fmt.Errorf("sum overflows uint64: %d + %d", a, b)
	}
	return Encrypt(sum), nil
}

func (Scheme) ThresholdDecrypt(_ context.Context, agg *types.Aggregate) ([]*big.Int, []byte, error) {
	if agg == nil || len(agg.Vector) == 0 {
		return nil, nil, fmt.Errorf("%w: empty aggregate", types.ErrVectorSize)
	}
	totals := make([]*big.Int, len(agg.Vector))
	for i, c := range agg.Vector {
		v, err := Decrypt(c)
		if err != nil {
			return nil, nil, fmt.Errorf("option %d: %w", i, err)
		}
		totals[i] = new(big.Int).SetUint64(v)
	}
	return totals, proofRef(agg), nil
}

// VerifyOrderingProof returns the option with the highest total, the lowest
// index on ties.
func (s Scheme) VerifyOrderingProof(ctx context.Context, agg *types.Aggregate) (int, []byte, error) {
	totals, _, err := s.ThresholdDecrypt(ctx, agg)
	if err != nil {
		return 0, nil, err
	}
	winner := crypto.Winner(totals)
	return winner, ethcrypto.Keccak256(proofRef(agg), []byte{byte(winner)}), nil
}

func proofRef(agg *types.Aggregate) []byte {
	parts := make([][]byte, 0, len(agg.Vector)+1)
	parts = append(parts, agg.ProposalID.Marshal())
	for _, c := range agg.Vector {
		parts = append(parts, c)
	}
	return ethcrypto.Keccak256(parts...)
}
