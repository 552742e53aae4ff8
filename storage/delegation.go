package storage

import (
	"fmt"

	"github.com/vocdoni/sealedvote/types"
)

// Delegations returns the delegations recorded for a proposal, one per
// delegator.
func (s *Storage) Delegations(pid types.ProposalID) ([]*types.Delegation, error) {
	var (
		res    []*types.Delegation
		decErr error
	)
	err := s.iterateArtifacts(delegationPrefix, pid.Marshal(), func(k, v []byte) bool {
		d := &types.Delegation{}
		if err := decodeArtifact(v, d); err != nil {
			decErr = fmt.Errorf("decode delegation %x: %w", k, err)
			return false
		}
		res = append(res, d)
		return true
	})
	if err != nil {
		return nil, err
	}
	return res, decErr
}

// SetDelegation stages a delegation. A later delegation of the same
// delegator replaces the previous one.
func (b *Batch) SetDelegation(d *types.Delegation) error {
	return b.set(delegationPrefix, key(d.ProposalID.Marshal(), d.From.Bytes()), d)
}
