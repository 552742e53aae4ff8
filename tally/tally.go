// Package tally maintains the encrypted per-option tally of every proposal.
//
// Every accepted ballot is kept in a per-nullifier arena. Fresh ballots are
// also merged into a running sum. An overwrite replaces the arena entry of
// its nullifier and marks the running sum as dirty; the aggregate is then
// recomputed from the arena when it is requested, so the homomorphic scheme
// never needs a subtraction.
package tally

import (
	"errors"
	"fmt"

	"github.com/vocdoni/sealedvote/crypto"
	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/storage"
	"github.com/vocdoni/sealedvote/types"
)

// Accumulator owns the encrypted tallies. It never decrypts anything.
type Accumulator struct {
	stg   *storage.Storage
	adder crypto.HomomorphicAdder
}

// New returns an accumulator that combines ciphertexts with adder.
func New(stg *storage.Storage, adder crypto.HomomorphicAdder) *Accumulator {
	return &Accumulator{stg: stg, adder: adder}
}

// Allocate creates a tally of optionCount encrypted zeros and commits it.
func (a *Accumulator) Allocate(pid types.ProposalID, optionCount int) error {
	b := a.stg.NewBatch()
	defer b.Discard()
	if err := a.AllocateTx(b, pid, optionCount); err != nil {
		return err
	}
	return b.Commit()
}

// AllocateTx stages the allocation of a tally into b, so it can be committed
// together with the proposal that owns it.
func (a *Accumulator) AllocateTx(b *storage.Batch, pid types.ProposalID, optionCount int) error {
	exists, err := a.stg.HasTally(pid)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: proposal %s", types.ErrAlreadyInitialized, pid)
	}
	if optionCount < types.MinOptions || optionCount > types.MaxOptions {
		return fmt.Errorf("%w: %d options", types.ErrVectorSize, optionCount)
	}
	zero, err := a.adder.Zero(optionCount)
	if err != nil {
		return fmt.Errorf("encrypt zero vector: %w", err)
	}
	if len(zero) != optionCount {
		return fmt.Errorf("%w: zero vector has %d elements, expected %d", types.ErrVectorSize, len(zero), optionCount)
	}
	return b.SetTally(&storage.Tally{
		ProposalID: pid,
		Options:    optionCount,
		Counts:     zero,
	})
}

// MergeVector adds v into the running sum of the proposal and commits it.
func (a *Accumulator) MergeVector(pid types.ProposalID, v types.CipherVector) error {
	t, err := a.tally(pid)
	if err != nil {
		return err
	}
	if err := a.merge(t, v); err != nil {
		return err
	}
	b := a.stg.NewBatch()
	defer b.Discard()
	if err := b.SetTally(t); err != nil {
		return err
	}
	return b.Commit()
}

func (a *Accumulator) merge(t *storage.Tally, v types.CipherVector) error {
	if len(v) != len(t.Counts) {
		return fmt.Errorf("%w: got %d elements, tally has %d", types.ErrVectorSize, len(v), len(t.Counts))
	}
	sum, err := crypto.AddVectors(a.adder, t.Counts, v)
	if err != nil {
		return err
	}
	t.Counts = sum
	return nil
}

// CheckVector validates a ballot vector against the tally of the proposal,
// without staging anything. Every element must be accepted by the adder.
func (a *Accumulator) CheckVector(pid types.ProposalID, v types.CipherVector) error {
	t, err := a.tally(pid)
	if err != nil {
		return err
	}
	return a.validate(t.Options, v)
}

// validate adds every element of v to an encrypted zero, so a ciphertext
// that could not be summed later is rejected before it reaches the arena.
func (a *Accumulator) validate(options int, v types.CipherVector) error {
	if len(v) != options {
		return fmt.Errorf("%w: got %d elements, proposal has %d options", types.ErrVectorSize, len(v), options)
	}
	for i := range v {
		if len(v[i]) == 0 {
			return fmt.Errorf("%w: empty ciphertext for option %d", types.ErrVectorSize, i)
		}
	}
	zero, err := a.adder.Zero(options)
	if err != nil {
		return fmt.Errorf("encrypt zero vector: %w", err)
	}
	for i := range v {
		if _, err := a.adder.Add(zero[i], v[i]); err != nil {
			return fmt.Errorf("%w: option %d: %v", types.ErrVectorSize, i, err)
		}
	}
	return nil
}

// Admit stages the vector of an accepted ballot into b. A fresh ballot is
// merged into the running sum; an overwrite only replaces the arena entry
// of its nullifier and marks the running sum dirty. oldWeight is the weight
// of the replaced ballot, ignored for fresh ballots.
func (a *Accumulator) Admit(b *storage.Batch, pid types.ProposalID, nullifier []byte,
	v types.CipherVector, weight, oldWeight uint64, outcome types.SubmitOutcome,
) error {
	t, err := a.tally(pid)
	if err != nil {
		return err
	}
	switch outcome {
	case types.OutcomeFresh:
		if err := a.merge(t, v); err != nil {
			return err
		}
		t.Ballots++
		t.TotalWeight += weight
	case types.OutcomeOverwrite:
		if err := a.validate(t.Options, v); err != nil {
			return err
		}
		t.TotalWeight = t.TotalWeight - oldWeight + weight
		t.Dirty = true
	default:
		return fmt.Errorf("unknown submit outcome %d", outcome)
	}
	if err := b.SetTallyEntry(pid, &storage.TallyEntry{
		Nullifier: nullifier,
		Vector:    v.Clone(),
		Weight:    weight,
	}); err != nil {
		return err
	}
	if err := b.SetTally(t); err != nil {
		return err
	}
	log.Debugw("ballot admitted into tally",
		"proposal", pid.String(),
		"outcome", outcome.String(),
		"ballots", t.Ballots,
		"dirty", t.Dirty)
	return nil
}

// Snapshot returns a copy of the stored running vector. After an overwrite
// it may still count replaced ballots; use Aggregate for finalization.
func (a *Accumulator) Snapshot(pid types.ProposalID) (types.CipherVector, error) {
	t, err := a.tally(pid)
	if err != nil {
		return nil, err
	}
	return t.Counts.Clone(), nil
}

// Len returns the number of options of the tally.
func (a *Accumulator) Len(pid types.ProposalID) (int, error) {
	t, err := a.tally(pid)
	if err != nil {
		return 0, err
	}
	return len(t.Counts), nil
}

// Aggregate returns the sum of the current ballot of every nullifier. When
// no overwrite happened this is the running sum itself, otherwise the arena
// is summed again.
func (a *Accumulator) Aggregate(pid types.ProposalID) (*types.Aggregate, uint64, error) {
	t, err := a.tally(pid)
	if err != nil {
		return nil, 0, err
	}
	if !t.Dirty {
		return &types.Aggregate{ProposalID: pid, Ballots: t.Ballots, Vector: t.Counts}, t.TotalWeight, nil
	}
	sum, err := a.adder.Zero(t.Options)
	if err != nil {
		return nil, 0, fmt.Errorf("encrypt zero vector: %w", err)
	}
	var ballots, weight uint64
	if err := a.stg.IterateTallyEntries(pid, func(e *storage.TallyEntry) error {
		if sum, err = crypto.AddVectors(a.adder, sum, e.Vector); err != nil {
			return fmt.Errorf("nullifier %s: %w", e.Nullifier, err)
		}
		ballots++
		weight += e.Weight
		return nil
	}); err != nil {
		return nil, 0, err
	}
	log.Debugw("tally recomputed from arena", "proposal", pid.String(), "ballots", ballots)
	return &types.Aggregate{ProposalID: pid, Ballots: ballots, Vector: sum}, weight, nil
}

func (a *Accumulator) tally(pid types.ProposalID) (*storage.Tally, error) {
	t, err := a.stg.Tally(pid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: tally of proposal %s", types.ErrNotFound, pid)
		}
		return nil, err
	}
	return t, nil
}
