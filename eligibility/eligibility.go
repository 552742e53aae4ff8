// Package eligibility derives nullifiers and admits identities into a
// proposal before their ballots reach the ballot box.
package eligibility

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/sealedvote/crypto"
	"github.com/vocdoni/sealedvote/crypto/hash/poseidon"
	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/types"
)

// NullifierInputs returns the field elements hashed into the nullifier of
// identity: the identity, then the chain id, creator and nonce of pid.
func NullifierInputs(pid types.ProposalID, identity common.Address) []*big.Int {
	return []*big.Int{
		new(big.Int).SetBytes(identity.Bytes()),
		new(big.Int).SetUint64(uint64(pid.ChainID)),
		new(big.Int).SetBytes(pid.Creator.Bytes()),
		new(big.Int).SetUint64(pid.Nonce),
	}
}

// DeriveNullifier returns the Poseidon hash of NullifierInputs, encoded as
// 32 big-endian bytes. It has no other input, so anyone can recompute it,
// inside a circuit too.
func DeriveNullifier(pid types.ProposalID, identity common.Address) types.HexBytes {
	h, err := poseidon.MultiHash(NullifierInputs(pid, identity)...)
	if err != nil {
		// every input is at most 160 bits, well inside the field
		panic(fmt.Sprintf("nullifier hash: %v", err))
	}
	return poseidon.Bytes(h)
}

// ProposalReader gives read access to proposals.
type ProposalReader interface {
	Proposal(pid types.ProposalID) (*types.Proposal, error)
}

// Gate checks nullifiers and allowlist membership.
type Gate struct {
	proposals ProposalReader
	verifier  crypto.AllowlistVerifier
}

// New returns a gate. verifier may be nil if no proposal uses an
// eligibility root.
func New(proposals ProposalReader, verifier crypto.AllowlistVerifier) *Gate {
	return &Gate{proposals: proposals, verifier: verifier}
}

// Admit checks that nullifier derives from (pid, identity) and, when the
// proposal carries an eligibility root, that proof shows identity is in
// the allowlist.
func (g *Gate) Admit(ctx context.Context, pid types.ProposalID, identity common.Address,
	nullifier, proof []byte,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := g.proposals.Proposal(pid)
	if err != nil {
		return err
	}
	return g.AdmitProposal(p, identity, nullifier, proof)
}

// AdmitProposal is Admit for an already loaded proposal.
func (g *Gate) AdmitProposal(p *types.Proposal, identity common.Address, nullifier, proof []byte) error {
	if !bytes.Equal(nullifier, DeriveNullifier(p.ID, identity)) {
		return fmt.Errorf("%w: %x does not belong to %s", types.ErrBadNullifier, nullifier, identity.Hex())
	}
	if !p.HasEligibilityRoot() {
		return nil
	}
	if g.verifier == nil {
		return fmt.Errorf("%w: no allowlist verifier available", types.ErrNotEligible)
	}
	if len(proof) == 0 {
		return fmt.Errorf("%w: missing allowlist proof", types.ErrNotEligible)
	}
	ok, err := g.verifier.VerifyAllowlistProof(p.EligibilityRoot, identity, proof)
	if err != nil {
		log.Debugw("allowlist proof rejected", "proposalId", p.ID.String(), "identity", identity.Hex(), "error", err.Error())
		return fmt.Errorf("%w: %v", types.ErrNotEligible, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s is not in the allowlist", types.ErrNotEligible, identity.Hex())
	}
	return nil
}
