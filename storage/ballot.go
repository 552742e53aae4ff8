package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/sealedvote/types"
)

// Ballot returns the last recorded ballot of a nullifier.
func (s *Storage) Ballot(pid types.ProposalID, nullifier []byte) (*types.EncryptedBallot, error) {
	b := &types.EncryptedBallot{}
	if err := s.getArtifact(ballotPrefix, key(pid.Marshal(), nullifier), b); err != nil {
		return nil, err
	}
	return b, nil
}

// NullifierOf returns the nullifier used by identity in the proposal.
func (s *Storage) NullifierOf(pid types.ProposalID, identity common.Address) (types.HexBytes, error) {
	var n types.HexBytes
	if err := s.getArtifact(identityPrefix, key(pid.Marshal(), identity.Bytes()), &n); err != nil {
		return nil, err
	}
	return n, nil
}

// SupersededBallots returns the audit trail of a nullifier, oldest first.
func (s *Storage) SupersededBallots(pid types.ProposalID, nullifier []byte) ([]*types.EncryptedBallot, error) {
	var (
		res    []*types.EncryptedBallot
		decErr error
	)
	err := s.iterateArtifacts(auditPrefix, key(pid.Marshal(), nullifier), func(k, v []byte) bool {
		b := &types.EncryptedBallot{}
		if err := decodeArtifact(v, b); err != nil {
			decErr = fmt.Errorf("decode audit ballot %x: %w", k, err)
			return false
		}
		res = append(res, b)
		return true
	})
	if err != nil {
		return nil, err
	}
	return res, decErr
}

// Sequence returns the number of ballots accepted so far for a proposal.
func (s *Storage) Sequence(pid types.ProposalID) (uint64, error) {
	var n uint64
	if err := s.getArtifact(sequencePrefix, pid.Marshal(), &n); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

// SetBallot stages the current ballot of a nullifier and its identity index.
func (b *Batch) SetBallot(ballot *types.EncryptedBallot) error {
	pid := ballot.ProposalID.Marshal()
	if err := b.set(ballotPrefix, key(pid, ballot.Nullifier), ballot); err != nil {
		return err
	}
	return b.set(identityPrefix, key(pid, ballot.Identity.Bytes()), ballot.Nullifier)
}

// ArchiveBallot stages a superseded ballot into the audit trail. Entries
// are keyed by sequence, so the trail keeps submission order.
func (b *Batch) ArchiveBallot(ballot *types.EncryptedBallot) error {
	if ballot.Valid {
		return fmt.Errorf("cannot archive a valid ballot")
	}
	seq := make([]byte, 8)
	binary.BigEndian.PutUint64(seq, ballot.Sequence)
	return b.set(auditPrefix, key(ballot.ProposalID.Marshal(), ballot.Nullifier, seq), ballot)
}

// SetSequence stages the ballot counter of a proposal.
func (b *Batch) SetSequence(pid types.ProposalID, n uint64) error {
	return b.set(sequencePrefix, pid.Marshal(), n)
}
