// Package delegation records informational delegations between voters.
// A delegation never moves the right to cast a ballot: the delegator and
// the delegate keep voting with their own nullifiers.
package delegation

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/storage"
	"github.com/vocdoni/sealedvote/types"
)

// ProposalReader gives read access to proposals.
type ProposalReader interface {
	Proposal(pid types.ProposalID) (*types.Proposal, error)
}

// Book stores delegations per proposal.
type Book struct {
	stg       *storage.Storage
	proposals ProposalReader
	clock     clock.Clock
}

// New returns a delegation book.
func New(stg *storage.Storage, proposals ProposalReader, clk clock.Clock) *Book {
	if clk == nil {
		clk = clock.New()
	}
	return &Book{stg: stg, proposals: proposals, clock: clk}
}

// Delegate records that from delegates to to in proposal pid. The proposal
// must be active, not past its end time and have delegation enabled. A new
// delegation of the same delegator replaces the previous one.
func (bk *Book) Delegate(ctx context.Context, pid types.ProposalID, from, to common.Address) (*types.Delegation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if from == to {
		return nil, fmt.Errorf("%w: %s cannot delegate to itself", types.ErrInvalidState, from.Hex())
	}
	if to == (common.Address{}) {
		return nil, fmt.Errorf("%w: empty delegate address", types.ErrInvalidState)
	}
	p, err := bk.proposals.Proposal(pid)
	if err != nil {
		return nil, err
	}
	if p.Status != types.StatusActive {
		return nil, fmt.Errorf("%w: proposal %s is %s", types.ErrInvalidState, pid, p.Status)
	}
	if !p.EnableDelegation {
		return nil, fmt.Errorf("%w: delegation disabled for proposal %s", types.ErrInvalidState, pid)
	}
	now := bk.clock.Now()
	if now.After(p.EndTime) {
		return nil, fmt.Errorf("%w: proposal %s ended at %s", types.ErrInvalidState, pid, p.EndTime)
	}

	d := &types.Delegation{ProposalID: pid, From: from, To: to, Timestamp: now}
	b := bk.stg.NewBatch()
	defer b.Discard()
	if err := b.SetDelegation(d); err != nil {
		return nil, err
	}
	if err := b.Commit(); err != nil {
		return nil, err
	}
	log.Debugw("delegation recorded", "proposalId", pid.String(), "from", from.Hex(), "to", to.Hex())
	return d, nil
}

// Delegations returns the delegations of pid.
func (bk *Book) Delegations(pid types.ProposalID) ([]*types.Delegation, error) {
	if _, err := bk.proposals.Proposal(pid); err != nil {
		return nil, err
	}
	return bk.stg.Delegations(pid)
}
