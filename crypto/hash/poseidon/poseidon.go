// Package poseidon hashes BN254 field elements with Poseidon, so the values
// it produces can be recomputed inside a circuit.
package poseidon

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

const (
	// MaxInputs is the maximum number of elements accepted by MultiHash.
	MaxInputs = 256
	// chunkSize is the widest input of a single Poseidon permutation.
	chunkSize = 16
	// HashLen is the size in bytes of an encoded hash.
	HashLen = 32
)

// MultiHash hashes up to MaxInputs field elements. Inputs are hashed in
// chunks of 16 and, when there is more than one chunk, the chunk hashes are
// hashed together.
func MultiHash(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) > MaxInputs {
		return nil, fmt.Errorf("too many inputs: %d", len(inputs))
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs provided")
	}
	hashes := make([]*big.Int, 0, len(inputs)/chunkSize+1)
	for start := 0; start < len(inputs); start += chunkSize {
		end := min(start+chunkSize, len(inputs))
		h, err := poseidon.Hash(inputs[start:end])
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	if len(hashes) == 1 {
		return hashes[0], nil
	}
	return poseidon.Hash(hashes)
}

// Bytes encodes h as HashLen big-endian bytes.
func Bytes(h *big.Int) []byte {
	return h.FillBytes(make([]byte, HashLen))
}
