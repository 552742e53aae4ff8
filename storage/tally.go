package storage

import (
	"fmt"

	"github.com/vocdoni/sealedvote/types"
)

// Tally retrieves the encrypted tally of a proposal.
func (s *Storage) Tally(pid types.ProposalID) (*Tally, error) {
	t := &Tally{}
	if err := s.getArtifact(tallyPrefix, pid.Marshal(), t); err != nil {
		return nil, err
	}
	return t, nil
}

// HasTally reports whether a tally was allocated for the proposal.
func (s *Storage) HasTally(pid types.ProposalID) (bool, error) {
	return s.hasArtifact(tallyPrefix, pid.Marshal())
}

// TallyEntry retrieves the current arena vector of a nullifier.
func (s *Storage) TallyEntry(pid types.ProposalID, nullifier []byte) (*TallyEntry, error) {
	e := &TallyEntry{}
	if err := s.getArtifact(arenaPrefix, key(pid.Marshal(), nullifier), e); err != nil {
		return nil, err
	}
	return e, nil
}

// IterateTallyEntries calls fn with every arena entry of the proposal, in
// nullifier order. It stops at the first error returned by fn.
func (s *Storage) IterateTallyEntries(pid types.ProposalID, fn func(*TallyEntry) error) error {
	var fnErr error
	err := s.iterateArtifacts(arenaPrefix, pid.Marshal(), func(k, v []byte) bool {
		e := &TallyEntry{}
		if err := decodeArtifact(v, e); err != nil {
			fnErr = fmt.Errorf("decode tally entry %x: %w", k, err)
			return false
		}
		if err := fn(e); err != nil {
			fnErr = err
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	return fnErr
}

// SetTally stages a tally write.
func (b *Batch) SetTally(t *Tally) error {
	return b.set(tallyPrefix, t.ProposalID.Marshal(), t)
}

// SetTallyEntry stages the arena vector of a nullifier.
func (b *Batch) SetTallyEntry(pid types.ProposalID, e *TallyEntry) error {
	return b.set(arenaPrefix, key(pid.Marshal(), e.Nullifier), e)
}
