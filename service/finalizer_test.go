package service

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/sealedvote/crypto/plaintext"
	"github.com/vocdoni/sealedvote/eligibility"
	"github.com/vocdoni/sealedvote/registry"
	"github.com/vocdoni/sealedvote/storage"
	"github.com/vocdoni/sealedvote/types"
	"github.com/vocdoni/sealedvote/voting"
	"go.vocdoni.io/dvote/db/metadb"
)

var creator = common.Address{0xc0}

func newEngine(t *testing.T) (*voting.Engine, *clock.Mock) {
	caps, err := voting.NewCapabilities(voting.BackendConfig{Name: voting.BackendPlaintext})
	qt.Assert(t, err, qt.IsNil)
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	engine, err := voting.New(storage.New(metadb.NewTest(t)), caps, voting.Config{Clock: clk})
	qt.Assert(t, err, qt.IsNil)
	return engine, clk
}

func createProposal(t *testing.T, e *voting.Engine, clk clock.Clock, end time.Duration) *types.Proposal {
	p, err := e.CreateProposal(context.Background(), creator, &registry.ProposalSetup{
		Title:       "finalizer",
		StartTime:   clk.Now(),
		EndTime:     clk.Now().Add(end),
		Buffer:      time.Minute,
		Disclosure:  types.DisclosureMinimal,
		OptionCount: 2,
		Options:     []types.Option{{Enabled: true}, {Enabled: true}},
	})
	qt.Assert(t, err, qt.IsNil)
	return p
}

func TestFinalizeDue(t *testing.T) {
	c := qt.New(t)
	engine, clk := newEngine(t)
	ctx := context.Background()

	soon := createProposal(t, engine, clk, time.Hour)
	later := createProposal(t, engine, clk, 3*time.Hour)
	cancelled := createProposal(t, engine, clk, time.Hour)
	_, err := engine.CancelProposal(ctx, cancelled.ID, creator)
	c.Assert(err, qt.IsNil)

	voter := common.Address{0xa1}
	_, err = engine.CastVote(ctx, &voting.Vote{
		ProposalID: soon.ID,
		Identity:   voter,
		Nullifier:  eligibility.DeriveNullifier(soon.ID, voter),
		Cipher:     plaintext.EncryptVector(0, 1),
	})
	c.Assert(err, qt.IsNil)

	f := NewFinalizer(engine, time.Minute)
	c.Assert(f.FinalizeDue(ctx), qt.Equals, 0)

	clk.Add(time.Hour + time.Minute + time.Second)
	c.Assert(f.FinalizeDue(ctx), qt.Equals, 1)
	res, ok, err := engine.Result(soon.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	c.Assert(*res.WinningOption, qt.Equals, 1)

	_, ok, err = engine.Result(later.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)
	c.Assert(f.FinalizeDue(ctx), qt.Equals, 0)
}

func TestFinalizerService(t *testing.T) {
	c := qt.New(t)
	engine, clk := newEngine(t)
	p := createProposal(t, engine, clk, time.Hour)

	f := NewFinalizer(engine, time.Minute)
	ctx := context.Background()
	c.Assert(f.Start(ctx), qt.IsNil)
	defer f.Stop()
	c.Assert(f.Start(ctx), qt.ErrorMatches, "service already running")

	clk.Add(2 * time.Hour)
	deadline := time.Now().Add(10 * time.Second)
	for {
		_, ok, err := engine.Result(p.ID)
		c.Assert(err, qt.IsNil)
		if ok {
			break
		}
		if time.Now().After(deadline) {
			c.Fatal("proposal was not finalized")
		}
		clk.Add(time.Minute)
		time.Sleep(10 * time.Millisecond)
	}
	got, err := engine.Proposal(p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Status, qt.Equals, types.StatusFinalized)

	f.Stop()
	c.Assert(f.Start(ctx), qt.IsNil)
}
