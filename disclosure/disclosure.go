// Package disclosure finalizes proposals once voting and the buffer window
// are over and publishes their single result record. What the result
// reveals depends on the proposal disclosure policy: the winning option
// only, or the decrypted per-option totals.
package disclosure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/vocdoni/sealedvote/crypto"
	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/metrics"
	"github.com/vocdoni/sealedvote/registry"
	"github.com/vocdoni/sealedvote/storage"
	"github.com/vocdoni/sealedvote/tally"
	"github.com/vocdoni/sealedvote/types"
)

// Controller is the disclosure controller.
type Controller struct {
	stg       *storage.Storage
	registry  *registry.Registry
	tally     *tally.Accumulator
	decrypter crypto.ThresholdDecrypter
	prover    crypto.OrderingProver
	clock     clock.Clock
}

// New returns a controller. decrypter serves AggregateOnly proposals and
// prover serves Minimal ones; either may be nil if no proposal needs it.
func New(stg *storage.Storage, reg *registry.Registry, acc *tally.Accumulator,
	decrypter crypto.ThresholdDecrypter, prover crypto.OrderingProver, clk clock.Clock,
) *Controller {
	if clk == nil {
		clk = clock.New()
	}
	return &Controller{
		stg:       stg,
		registry:  reg,
		tally:     acc,
		decrypter: decrypter,
		prover:    prover,
		clock:     clk,
	}
}

// Finalize publishes the result of pid and marks it Finalized. It fails
// with ErrAlreadyFinalized if a result exists, ErrInvalidState if the
// proposal is not active and ErrTooEarly until end+buffer has passed.
func (ctl *Controller) Finalize(ctx context.Context, pid types.ProposalID) (*types.AggregatedResult, error) {
	start := time.Now()
	p, err := ctl.registry.Proposal(pid)
	if err != nil {
		return nil, err
	}
	finalized, err := ctl.stg.HasResult(pid)
	if err != nil {
		return nil, err
	}
	if finalized {
		return nil, fmt.Errorf("%w: proposal %s", types.ErrAlreadyFinalized, pid)
	}
	if p.Status != types.StatusActive {
		return nil, fmt.Errorf("%w: proposal %s is %s", types.ErrInvalidState, pid, p.Status)
	}
	now := ctl.clock.Now()
	if !now.After(p.FinalizableAt()) {
		return nil, fmt.Errorf("%w: proposal %s can be finalized after %s",
			types.ErrTooEarly, pid, p.FinalizableAt())
	}

	agg, weight, err := ctl.tally.Aggregate(pid)
	if err != nil {
		return nil, err
	}
	if len(agg.Vector) != p.OptionCount {
		return nil, fmt.Errorf("%w: tally has %d elements, proposal has %d options",
			types.ErrVectorSize, len(agg.Vector), p.OptionCount)
	}
	result := &types.AggregatedResult{
		ProposalID:  pid,
		Disclosure:  p.Disclosure,
		TotalWeight: weight,
		Ballots:     agg.Ballots,
		FinalizedAt: now,
	}
	switch p.Disclosure {
	case types.DisclosureMinimal:
		err = ctl.order(ctx, p, agg, result)
	case types.DisclosureAggregateOnly:
		err = ctl.decrypt(ctx, p, agg, result)
	default:
		err = fmt.Errorf("%w: unknown disclosure policy %d", types.ErrConfig, p.Disclosure)
	}
	if err != nil {
		return nil, err
	}

	b := ctl.stg.NewBatch()
	defer b.Discard()
	if err := b.SetResult(result); err != nil {
		return nil, err
	}
	next, err := ctl.registry.Transition(b, p, types.StatusFinalized)
	if err != nil {
		return nil, err
	}
	if err := b.Commit(); err != nil {
		return nil, err
	}
	ctl.registry.Publish(next, registry.EventProposalFinalized)

	metrics.Finalizations.WithLabelValues(p.Disclosure.String()).Inc()
	metrics.FinalizeDuration.Observe(time.Since(start).Seconds())
	log.Infow("proposal finalized",
		"proposalId", pid.String(),
		"disclosure", p.Disclosure.String(),
		"ballots", result.Ballots,
		"totalWeight", result.TotalWeight,
		"proofRef", result.ProofRef.String())
	return result, nil
}

// order stores the winning option only. Totals stay empty.
func (ctl *Controller) order(ctx context.Context, p *types.Proposal, agg *types.Aggregate, r *types.AggregatedResult) error {
	if ctl.prover == nil {
		return fmt.Errorf("no ordering prover available for proposal %s", p.ID)
	}
	winner, proofRef, err := ctl.prover.VerifyOrderingProof(ctx, agg)
	if err != nil {
		return fmt.Errorf("ordering proof: %w", err)
	}
	if winner < 0 || winner >= p.OptionCount {
		return fmt.Errorf("%w: winning option %d out of %d options", types.ErrVectorSize, winner, p.OptionCount)
	}
	r.WinningOption = &winner
	r.ProofRef = proofRef
	return nil
}

// decrypt stores the decrypted totals of the aggregate.
func (ctl *Controller) decrypt(ctx context.Context, p *types.Proposal, agg *types.Aggregate, r *types.AggregatedResult) error {
	if ctl.decrypter == nil {
		return fmt.Errorf("no threshold decrypter available for proposal %s", p.ID)
	}
	totals, proofRef, err := ctl.decrypter.ThresholdDecrypt(ctx, agg)
	if err != nil {
		return fmt.Errorf("threshold decryption: %w", err)
	}
	if len(totals) != p.OptionCount {
		return fmt.Errorf("%w: %d totals for %d options", types.ErrVectorSize, len(totals), p.OptionCount)
	}
	r.Totals = make([]*types.BigInt, len(totals))
	for i := range totals {
		r.Totals[i] = new(types.BigInt).SetBigInt(totals[i])
	}
	r.ProofRef = proofRef
	return nil
}

// Result returns the published result of pid, if any.
func (ctl *Controller) Result(pid types.ProposalID) (*types.AggregatedResult, bool, error) {
	r, err := ctl.stg.Result(pid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return r, true, nil
}
