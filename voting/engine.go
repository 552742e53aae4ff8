// Package voting wires the components of the voting core together. The
// engine serializes every mutating operation behind one lock, which gives
// the core a single ledger order: each operation validates against the
// stored state and commits its changes in one storage batch.
package voting

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/sealedvote/ballotbox"
	"github.com/vocdoni/sealedvote/delegation"
	"github.com/vocdoni/sealedvote/disclosure"
	"github.com/vocdoni/sealedvote/eligibility"
	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/metrics"
	"github.com/vocdoni/sealedvote/registry"
	"github.com/vocdoni/sealedvote/storage"
	"github.com/vocdoni/sealedvote/tally"
	"github.com/vocdoni/sealedvote/types"
	"github.com/vocdoni/sealedvote/weight"
)

// Config holds the engine parameters.
type Config struct {
	ChainID   uint32
	Admins    []common.Address
	CacheSize int
	Clock     clock.Clock
}

// Engine is the voting core.
type Engine struct {
	mu sync.Mutex

	stg         *storage.Storage
	clock       clock.Clock
	registry    *registry.Registry
	gate        *eligibility.Gate
	weights     *weight.Registry
	tally       *tally.Accumulator
	box         *ballotbox.Box
	disclosure  *disclosure.Controller
	delegations *delegation.Book
	key         types.EncryptionKey
}

// New returns an engine storing its state in stg.
func New(stg *storage.Storage, caps *Capabilities, conf Config) (*Engine, error) {
	if caps == nil || caps.Adder == nil {
		return nil, fmt.Errorf("missing homomorphic adder")
	}
	if conf.Clock == nil {
		conf.Clock = clock.New()
	}
	acc := tally.New(stg, caps.Adder)
	reg, err := registry.New(stg, acc, registry.Config{
		ChainID:   conf.ChainID,
		Admins:    conf.Admins,
		CacheSize: conf.CacheSize,
		Clock:     conf.Clock,
	})
	if err != nil {
		return nil, err
	}
	return &Engine{
		stg:         stg,
		clock:       conf.Clock,
		registry:    reg,
		gate:        eligibility.New(reg, caps.Allowlist),
		weights:     weight.New(stg),
		tally:       acc,
		box:         ballotbox.New(stg, reg, acc, conf.Clock),
		disclosure:  disclosure.New(stg, reg, acc, caps.Decrypter, caps.Prover, conf.Clock),
		delegations: delegation.New(stg, reg, conf.Clock),
		key:         caps.Key,
	}, nil
}

// Clock returns the clock used by the engine.
func (e *Engine) Clock() clock.Clock {
	return e.clock
}

// EncryptionKey returns the key ballots must be encrypted under.
func (e *Engine) EncryptionKey() types.EncryptionKey {
	return e.key
}

// Registry returns the proposal registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// CreateProposal registers a new proposal of creator.
func (e *Engine) CreateProposal(ctx context.Context, creator common.Address, setup *registry.ProposalSetup) (*types.Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Create(ctx, creator, setup)
}

// CancelProposal cancels an active proposal on behalf of requester.
func (e *Engine) CancelProposal(ctx context.Context, pid types.ProposalID, requester common.Address) (*types.Proposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Cancel(ctx, pid, requester)
}

// Proposal returns the proposal pid.
func (e *Engine) Proposal(pid types.ProposalID) (*types.Proposal, error) {
	return e.registry.Proposal(pid)
}

// Proposals returns the identifiers of every proposal.
func (e *Engine) Proposals() ([]types.ProposalID, error) {
	return e.registry.Proposals()
}

// Vote is a ballot as cast by a voter.
type Vote struct {
	ProposalID types.ProposalID   `json:"proposalId"`
	Identity   common.Address     `json:"identity"`
	Nullifier  types.HexBytes     `json:"nullifier"`
	Cipher     types.CipherVector `json:"cipher"`
	Proof      types.HexBytes     `json:"proof,omitempty"`
	// Counter must grow with every ballot of the identity, so an old signed
	// vote cannot be replayed over a newer one.
	Counter uint64 `json:"counter"`
}

// CastVote admits v through the eligibility gate, weighs it and records it
// in the ballot box.
func (e *Engine) CastVote(ctx context.Context, v *Vote) (types.SubmitOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, err := e.registry.Proposal(v.ProposalID)
	if err != nil {
		return 0, err
	}
	if err := ballotbox.CheckOpen(p, e.clock.Now()); err != nil {
		metrics.BallotsRejected.WithLabelValues(metrics.Reason(err)).Inc()
		return 0, err
	}
	if err := e.gate.AdmitProposal(p, v.Identity, v.Nullifier, v.Proof); err != nil {
		metrics.BallotsRejected.WithLabelValues(metrics.Reason(err)).Inc()
		log.Debugw("vote not admitted", "proposalId", p.ID.String(), "identity", v.Identity.Hex(), "error", err.Error())
		return 0, err
	}
	w, err := e.weights.VoterWeight(p.SnapshotRef, v.Identity, p.VoteType)
	if err != nil {
		return 0, err
	}
	if w == 0 {
		err := fmt.Errorf("%w: %s has no balance in snapshot %q", types.ErrNotEligible, v.Identity.Hex(), p.SnapshotRef)
		metrics.BallotsRejected.WithLabelValues(metrics.Reason(err)).Inc()
		return 0, err
	}
	return e.box.Submit(ctx, &ballotbox.Ballot{
		ProposalID: p.ID,
		Identity:   v.Identity,
		Nullifier:  v.Nullifier,
		Cipher:     v.Cipher,
		Weight:     w,
		Counter:    v.Counter,
	})
}

// HasVoted reports whether identity has a ballot in pid.
func (e *Engine) HasVoted(pid types.ProposalID, identity common.Address) (bool, error) {
	return e.box.HasVoted(pid, identity)
}

// BallotMeta returns the metadata of the current ballot of identity.
func (e *Engine) BallotMeta(pid types.ProposalID, identity common.Address) (*types.BallotMeta, error) {
	return e.box.BallotMeta(pid, identity)
}

// History returns the metadata of every ballot of identity in pid.
func (e *Engine) History(pid types.ProposalID, identity common.Address) ([]*types.BallotMeta, error) {
	return e.box.History(pid, identity)
}

// TallyLen returns the length of the encrypted tally of pid.
func (e *Engine) TallyLen(pid types.ProposalID) (int, error) {
	return e.tally.Len(pid)
}

// Finalize publishes the result of pid.
func (e *Engine) Finalize(ctx context.Context, pid types.ProposalID) (*types.AggregatedResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disclosure.Finalize(ctx, pid)
}

// Result returns the published result of pid.
func (e *Engine) Result(pid types.ProposalID) (*types.AggregatedResult, bool, error) {
	return e.disclosure.Result(pid)
}

// Due returns the active proposals whose buffer window is over.
func (e *Engine) Due() ([]types.ProposalID, error) {
	ids, err := e.registry.Proposals()
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	var due []types.ProposalID
	for _, pid := range ids {
		p, err := e.registry.Proposal(pid)
		if err != nil {
			return nil, err
		}
		if p.Status == types.StatusActive && now.After(p.FinalizableAt()) {
			due = append(due, pid)
		}
	}
	return due, nil
}

// Delegate records an informational delegation.
func (e *Engine) Delegate(ctx context.Context, pid types.ProposalID, from, to common.Address) (*types.Delegation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.delegations.Delegate(ctx, pid, from, to)
}

// Delegations returns the delegations of pid.
func (e *Engine) Delegations(pid types.ProposalID) ([]*types.Delegation, error) {
	return e.delegations.Delegations(pid)
}

// SetBalance records the balance of identity in a snapshot. Only
// administrators can load balances.
func (e *Engine) SetBalance(requester common.Address, snapshot string, identity common.Address, amount uint64) error {
	if !e.registry.IsAdmin(requester) {
		return fmt.Errorf("%w: %s is not an administrator", types.ErrPermission, requester.Hex())
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.weights.SetBalance(snapshot, identity, amount)
}

// Balance returns the balance of identity in a snapshot.
func (e *Engine) Balance(snapshot string, identity common.Address) (uint64, error) {
	return e.weights.Balance(snapshot, identity)
}

// Subscribe returns a feed of proposal lifecycle events.
func (e *Engine) Subscribe() (<-chan registry.Event, func()) {
	return e.registry.Subscribe()
}
