// Package registry owns proposal metadata and the proposal lifecycle:
// Active, then Finalized or Cancelled. Both terminal statuses are final.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/metrics"
	"github.com/vocdoni/sealedvote/storage"
	"github.com/vocdoni/sealedvote/tally"
	"github.com/vocdoni/sealedvote/types"
)

// DefaultCacheSize is the number of proposals kept in memory.
const DefaultCacheSize = 256

// Config holds the registry parameters.
type Config struct {
	ChainID   uint32
	Admins    []common.Address
	CacheSize int
	Clock     clock.Clock
}

// Registry creates proposals and moves them through their lifecycle.
type Registry struct {
	stg     *storage.Storage
	tally   *tally.Accumulator
	clock   clock.Clock
	chainID uint32
	admins  map[common.Address]struct{}
	cache   *lru.Cache[types.ProposalID, *types.Proposal]

	subsMu sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// New returns a registry that allocates tallies through acc.
func New(stg *storage.Storage, acc *tally.Accumulator, conf Config) (*Registry, error) {
	if conf.CacheSize <= 0 {
		conf.CacheSize = DefaultCacheSize
	}
	if conf.Clock == nil {
		conf.Clock = clock.New()
	}
	cache, err := lru.New[types.ProposalID, *types.Proposal](conf.CacheSize)
	if err != nil {
		return nil, err
	}
	admins := make(map[common.Address]struct{}, len(conf.Admins))
	for _, a := range conf.Admins {
		admins[a] = struct{}{}
	}
	return &Registry{
		stg:     stg,
		tally:   acc,
		clock:   conf.Clock,
		chainID: conf.ChainID,
		admins:  admins,
		cache:   cache,
		subs:    make(map[int]chan Event),
	}, nil
}

// IsAdmin reports whether addr is a registry administrator.
func (r *Registry) IsAdmin(addr common.Address) bool {
	_, ok := r.admins[addr]
	return ok
}

// Create validates setup, assigns the next identifier of creator and
// stores the proposal together with its zero tally. Nothing is stored if
// any step fails.
func (r *Registry) Create(ctx context.Context, creator common.Address, setup *ProposalSetup) (*types.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := setup.Validate(); err != nil {
		return nil, err
	}
	nonce, err := r.stg.Nonce(creator)
	if err != nil {
		return nil, err
	}
	p := setup.proposal(types.ProposalID{ChainID: r.chainID, Creator: creator, Nonce: nonce})
	p.Creator = creator
	p.Status = types.StatusActive
	p.CreatedAt = r.clock.Now()

	b := r.stg.NewBatch()
	defer b.Discard()
	if err := b.SetProposal(p); err != nil {
		return nil, err
	}
	if err := b.SetNonce(creator, nonce+1); err != nil {
		return nil, err
	}
	if err := r.tally.AllocateTx(b, p.ID, p.OptionCount); err != nil {
		return nil, err
	}
	if err := b.Commit(); err != nil {
		return nil, err
	}
	log.Infow("proposal created",
		"proposalId", p.ID.String(),
		"creator", creator.Hex(),
		"options", p.OptionCount,
		"voteType", p.VoteType.String(),
		"disclosure", p.Disclosure.String(),
		"end", p.EndTime)
	r.Publish(p, EventProposalCreated)
	return p.Clone(), nil
}

// Cancel moves an active proposal to Cancelled. Only its creator or an
// administrator can cancel it.
func (r *Registry) Cancel(ctx context.Context, pid types.ProposalID, requester common.Address) (*types.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := r.Proposal(pid)
	if err != nil {
		return nil, err
	}
	if requester != p.Creator && !r.IsAdmin(requester) {
		return nil, fmt.Errorf("%w: %s cannot cancel proposal %s", types.ErrPermission, requester.Hex(), pid)
	}
	b := r.stg.NewBatch()
	defer b.Discard()
	cancelled, err := r.Transition(b, p, types.StatusCancelled)
	if err != nil {
		return nil, err
	}
	if err := b.Commit(); err != nil {
		return nil, err
	}
	log.Infow("proposal cancelled", "proposalId", pid.String(), "by", requester.Hex())
	r.Publish(cancelled, EventProposalCancelled)
	return cancelled.Clone(), nil
}

// Transition stages the status change of p into b and returns the updated
// proposal. Callers must Publish it once b is committed.
func (r *Registry) Transition(b *storage.Batch, p *types.Proposal, to types.Status) (*types.Proposal, error) {
	if !p.Status.CanTransition(to) {
		return nil, fmt.Errorf("%w: proposal %s is %s, cannot become %s", types.ErrInvalidState, p.ID, p.Status, to)
	}
	next := p.Clone()
	next.Status = to
	if err := b.SetProposal(next); err != nil {
		return nil, err
	}
	return next, nil
}

// Publish refreshes the cached copy of a committed proposal and notifies
// the subscribers.
func (r *Registry) Publish(p *types.Proposal, kind EventKind) {
	r.cache.Add(p.ID, p.Clone())
	metrics.Proposals.WithLabelValues(p.Status.String()).Inc()
	r.emit(Event{
		Kind:       kind,
		ProposalID: p.ID,
		Status:     p.Status,
		Time:       r.clock.Now(),
	})
}

// Proposal returns a copy of the proposal.
func (r *Registry) Proposal(pid types.ProposalID) (*types.Proposal, error) {
	if p, ok := r.cache.Get(pid); ok {
		return p.Clone(), nil
	}
	p, err := r.stg.Proposal(pid)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: proposal %s", types.ErrNotFound, pid)
		}
		return nil, err
	}
	r.cache.Add(pid, p.Clone())
	return p, nil
}

// Proposals returns the identifiers of every proposal.
func (r *Registry) Proposals() ([]types.ProposalID, error) {
	return r.stg.ListProposals()
}
