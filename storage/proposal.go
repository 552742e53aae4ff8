package storage

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/sealedvote/types"
)

// Proposal retrieves a proposal from the storage. It returns ErrNotFound if
// the proposal does not exist.
func (s *Storage) Proposal(pid types.ProposalID) (*types.Proposal, error) {
	p := &types.Proposal{}
	if err := s.getArtifact(proposalPrefix, pid.Marshal(), p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProposals returns the IDs of every stored proposal, in key order.
func (s *Storage) ListProposals() ([]types.ProposalID, error) {
	keys, err := s.listArtifacts(proposalPrefix)
	if err != nil {
		return nil, err
	}
	pids := make([]types.ProposalID, 0, len(keys))
	for _, k := range keys {
		var pid types.ProposalID
		if err := pid.Unmarshal(k); err != nil {
			return nil, fmt.Errorf("corrupted proposal key %x: %w", k, err)
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// Nonce returns the number of proposals created so far by creator.
func (s *Storage) Nonce(creator common.Address) (uint64, error) {
	var n uint64
	if err := s.getArtifact(noncePrefix, creator.Bytes(), &n); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// SetProposal stages a proposal write.
func (b *Batch) SetProposal(p *types.Proposal) error {
	if p == nil {
		return fmt.Errorf("nil proposal")
	}
	return b.set(proposalPrefix, p.ID.Marshal(), p)
}

// SetNonce stages the proposal counter of creator.
func (b *Batch) SetNonce(creator common.Address, n uint64) error {
	return b.set(noncePrefix, creator.Bytes(), n)
}
