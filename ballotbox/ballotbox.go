// Package ballotbox records encrypted ballots. It keeps at most one valid
// ballot per proposal and nullifier; replaced ballots stay in an audit
// trail with their validity flag cleared.
package ballotbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/metrics"
	"github.com/vocdoni/sealedvote/storage"
	"github.com/vocdoni/sealedvote/tally"
	"github.com/vocdoni/sealedvote/types"
)

// ProposalReader gives read access to proposals.
type ProposalReader interface {
	Proposal(pid types.ProposalID) (*types.Proposal, error)
}

// Box is the ballot store.
type Box struct {
	stg       *storage.Storage
	proposals ProposalReader
	tally     *tally.Accumulator
	clock     clock.Clock
}

// New returns a ballot box that feeds accepted ballots into acc.
func New(stg *storage.Storage, proposals ProposalReader, acc *tally.Accumulator, clk clock.Clock) *Box {
	if clk == nil {
		clk = clock.New()
	}
	return &Box{stg: stg, proposals: proposals, tally: acc, clock: clk}
}

// Ballot is a submission to the ballot box. The nullifier must have been
// checked by the eligibility gate.
type Ballot struct {
	ProposalID types.ProposalID
	Identity   common.Address
	Nullifier  types.HexBytes
	Cipher     types.CipherVector
	Weight     uint64
	// Counter orders the ballots of a nullifier. An overwrite must carry a
	// counter higher than the ballot it replaces.
	Counter uint64
}

// Submit records b. The first valid ballot of a nullifier is fresh; a
// second one replaces it only if the proposal allows overwrites. The ballot
// rows and the tally update are committed together.
func (bb *Box) Submit(ctx context.Context, b *Ballot) (types.SubmitOutcome, error) {
	outcome, err := bb.submit(ctx, b)
	if err != nil {
		metrics.BallotsRejected.WithLabelValues(metrics.Reason(err)).Inc()
		return 0, err
	}
	metrics.Ballots.WithLabelValues(outcome.String()).Inc()
	return outcome, nil
}

func (bb *Box) submit(ctx context.Context, b *Ballot) (types.SubmitOutcome, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p, err := bb.proposals.Proposal(b.ProposalID)
	if err != nil {
		return 0, err
	}
	now := bb.clock.Now()
	if err := CheckOpen(p, now); err != nil {
		return 0, err
	}
	if len(b.Cipher) == 0 {
		return 0, fmt.Errorf("%w: empty ballot", types.ErrVectorSize)
	}
	if err := bb.tally.CheckVector(p.ID, b.Cipher); err != nil {
		return 0, err
	}

	previous, err := bb.stg.Ballot(p.ID, b.Nullifier)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return 0, err
	}
	outcome := types.OutcomeFresh
	if previous != nil && previous.Valid {
		if !p.EnableOverwrite {
			return 0, fmt.Errorf("%w: nullifier %s already voted in proposal %s",
				types.ErrOverwriteDisabled, b.Nullifier, p.ID)
		}
		if b.Counter <= previous.Counter {
			return 0, fmt.Errorf("%w: counter %d, current ballot has %d",
				types.ErrStaleBallot, b.Counter, previous.Counter)
		}
		outcome = types.OutcomeOverwrite
	}

	seq, err := bb.stg.Sequence(p.ID)
	if err != nil {
		return 0, err
	}
	seq++
	record := &types.EncryptedBallot{
		ProposalID:  p.ID,
		Identity:    b.Identity,
		Nullifier:   b.Nullifier,
		Cipher:      b.Cipher.Clone(),
		Weight:      b.Weight,
		SubmittedAt: now,
		Valid:       true,
		Sequence:    seq,
		Counter:     b.Counter,
	}

	batch := bb.stg.NewBatch()
	defer batch.Discard()
	var oldWeight uint64
	if outcome == types.OutcomeOverwrite {
		previous.Valid = false
		oldWeight = previous.Weight
		if err := batch.ArchiveBallot(previous); err != nil {
			return 0, err
		}
	}
	if err := batch.SetBallot(record); err != nil {
		return 0, err
	}
	if err := batch.SetSequence(p.ID, seq); err != nil {
		return 0, err
	}
	if err := bb.tally.Admit(batch, p.ID, b.Nullifier, b.Cipher, b.Weight, oldWeight, outcome); err != nil {
		return 0, err
	}
	if err := batch.Commit(); err != nil {
		return 0, err
	}
	log.Debugw("ballot recorded",
		"proposalId", p.ID.String(),
		"nullifier", b.Nullifier.String(),
		"outcome", outcome.String(),
		"sequence", seq)
	return outcome, nil
}

// CheckOpen returns ErrInvalidState unless p is Active and now is inside
// its voting window.
func CheckOpen(p *types.Proposal, now time.Time) error {
	if p.Status != types.StatusActive {
		return fmt.Errorf("%w: proposal %s is %s", types.ErrInvalidState, p.ID, p.Status)
	}
	if !p.Open(now) {
		return fmt.Errorf("%w: voting window is [%s, %s], now is %s",
			types.ErrInvalidState, p.StartTime, p.EndTime, now)
	}
	return nil
}

// HasVoted reports whether identity has a ballot in the proposal.
func (bb *Box) HasVoted(pid types.ProposalID, identity common.Address) (bool, error) {
	if _, err := bb.stg.NullifierOf(pid, identity); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// BallotMeta returns the metadata of the current ballot of identity. It
// never includes the ciphertext.
func (bb *Box) BallotMeta(pid types.ProposalID, identity common.Address) (*types.BallotMeta, error) {
	current, trail, err := bb.ballots(pid, identity)
	if err != nil {
		return nil, err
	}
	meta := current.Meta()
	meta.Overwrites = len(trail)
	return meta, nil
}

// History returns the metadata of every ballot of identity, oldest first.
// Only the last one is valid.
func (bb *Box) History(pid types.ProposalID, identity common.Address) ([]*types.BallotMeta, error) {
	current, trail, err := bb.ballots(pid, identity)
	if err != nil {
		return nil, err
	}
	history := make([]*types.BallotMeta, 0, len(trail)+1)
	for _, b := range trail {
		history = append(history, b.Meta())
	}
	return append(history, current.Meta()), nil
}

func (bb *Box) ballots(pid types.ProposalID, identity common.Address) (*types.EncryptedBallot, []*types.EncryptedBallot, error) {
	nullifier, err := bb.stg.NullifierOf(pid, identity)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: no ballot of %s in proposal %s", types.ErrNotFound, identity.Hex(), pid)
		}
		return nil, nil, err
	}
	current, err := bb.stg.Ballot(pid, nullifier)
	if err != nil {
		return nil, nil, err
	}
	trail, err := bb.stg.SupersededBallots(pid, nullifier)
	if err != nil {
		return nil, nil, err
	}
	return current, trail, nil
}
