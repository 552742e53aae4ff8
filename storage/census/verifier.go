package census

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

// Verifier checks allowlist inclusion proofs produced by GenProof.
type Verifier struct{}

// VerifyAllowlistProof reports whether proof shows identity is a leaf of
// the tree with the given root. Malformed proofs are an error, proofs for
// another identity or root are just invalid.
func (Verifier) VerifyAllowlistProof(root []byte, identity common.Address, proof []byte) (bool, error) {
	p := &Proof{}
	if err := p.Unmarshal(proof); err != nil {
		return false, err
	}
	if !bytes.Equal(p.Key, identity.Bytes()) {
		return false, nil
	}
	return VerifyProof(p.Key, p.Value, root, p.Siblings), nil
}
