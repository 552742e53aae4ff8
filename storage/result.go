package storage

import (
	"fmt"

	"github.com/vocdoni/sealedvote/types"
)

// Result retrieves the aggregated result of a proposal.
func (s *Storage) Result(pid types.ProposalID) (*types.AggregatedResult, error) {
	r := &types.AggregatedResult{}
	if err := s.getArtifact(resultPrefix, pid.Marshal(), r); err != nil {
		return nil, err
	}
	return r, nil
}

// HasResult reports whether the proposal already has a result.
func (s *Storage) HasResult(pid types.ProposalID) (bool, error) {
	return s.hasArtifact(resultPrefix, pid.Marshal())
}

// SetResult stages the result of a proposal.
func (b *Batch) SetResult(r *types.AggregatedResult) error {
	if r == nil {
		return fmt.Errorf("nil result")
	}
	return b.set(resultPrefix, r.ProposalID.Marshal(), r)
}
