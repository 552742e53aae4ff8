package ballotbox

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
	"github.com/vocdoni/sealedvote/tally"
	"github.com/vocdoni/sealedvote/types"
	"go.vocdoni.io/dvote/db/metadb"
)

var (
	creator = common.Address{0xc0}
	alice   = common.Address{0xa1}
	bob     = common.Address{0xb0}
)

type env struct {
	stg   *storage.Storage
	reg   *registry.Registry
	acc   *tally.Accumulator
	box   *Box
	clock *clock.Mock
}

func newEnv(t *testing.T) *env {
	stg := storage.New(metadb.NewTest(t))
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	acc := tally.New(stg, plaintext.Scheme{})
	reg, err := registry.New(stg, acc, registry.Config{ChainID: 1, Clock: clk})
	qt.Assert(t, err, qt.IsNil)
	return &env{stg: stg, reg: reg, acc: acc, box: New(stg, reg, acc, clk), clock: clk}
}

func (e *env) proposal(t *testing.T, overwrite bool) *types.Proposal {
	p, err := e.reg.Create(context.Background(), creator, &registry.ProposalSetup{
		Title:           "test",
		StartTime:       e.clock.Now(),
		EndTime:         e.clock.Now().Add(time.Hour),
		OptionCount:     2,
		Options:         []types.Option{{Label: "a", Enabled: true}, {Label: "b", Enabled: true}},
		EnableOverwrite: overwrite,
	})
	qt.Assert(t, err, qt.IsNil)
	return p
}

func ballot(pid types.ProposalID, identity common.Address, choice ...uint64) *Ballot {
	return &Ballot{
		ProposalID: pid,
		Identity:   identity,
		Nullifier:  eligibility.DeriveNullifier(pid, identity),
		Cipher:     plaintext.EncryptVector(choice...),
		Weight:     1,
	}
}

// validBallots counts the ballots with the valid flag for a nullifier.
func validBallots(c *qt.C, e *env, pid types.ProposalID, identity common.Address) int {
	n := eligibility.DeriveNullifier(pid, identity)
	count := 0
	trail, err := e.stg.SupersededBallots(pid, n)
	c.Assert(err, qt.IsNil)
	for _, b := range trail {
		if b.Valid {
			count++
		}
	}
	current, err := e.stg.Ballot(pid, n)
	c.Assert(err, qt.IsNil)
	if current.Valid {
		count++
	}
	return count
}

func TestSubmitFresh(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)
	ctx := context.Background()
	p := e.proposal(t, false)

	voted, err := e.box.HasVoted(p.ID, alice)
	c.Assert(err, qt.IsNil)
	c.Assert(voted, qt.IsFalse)

	outcome, err := e.box.Submit(ctx, ballot(p.ID, alice, 1, 0))
	c.Assert(err, qt.IsNil)
	c.Assert(outcome, qt.Equals, types.OutcomeFresh)
	outcome, err = e.box.Submit(ctx, ballot(p.ID, bob, 0, 1))
	c.Assert(err, qt.IsNil)
	c.Assert(outcome, qt.Equals, types.OutcomeFresh)

	voted, err = e.box.HasVoted(p.ID, alice)
	c.Assert(err, qt.IsNil)
	c.Assert(voted, qt.IsTrue)

	meta, err := e.box.BallotMeta(p.ID, bob)
	c.Assert(err, qt.IsNil)
	c.Assert(meta.Valid, qt.IsTrue)
	c.Assert(meta.Sequence, qt.Equals, uint64(2))
	c.Assert(meta.Overwrites, qt.Equals, 0)
	c.Assert(meta.SubmittedAt.Equal(e.clock.Now()), qt.IsTrue)
	c.Assert(meta.Nullifier, qt.DeepEquals, eligibility.DeriveNullifier(p.ID, bob))

	n, err := e.acc.Len(p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, p.OptionCount)
	agg, weight, err := e.acc.Aggregate(p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(weight, qt.Equals, uint64(2))
	c.Assert(agg.Vector.Equal(plaintext.EncryptVector(1, 1)), qt.IsTrue)
}

func TestSubmitOverwriteDisabled(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)
	ctx := context.Background()
	p := e.proposal(t, false)

	_, err := e.box.Submit(ctx, ballot(p.ID, alice, 1, 0))
	c.Assert(err, qt.IsNil)
	_, err = e.box.Submit(ctx, ballot(p.ID, alice, 0, 1))
	c.Assert(err, qt.ErrorIs, types.ErrOverwriteDisabled)
	nullifier := eligibility.DeriveNullifier(p.ID, alice).String()
	c.Assert(err, qt.ErrorMatches, ".*nullifier "+nullifier+" already voted.*")

	// nothing changed
	c.Assert(validBallots(c, e, p.ID, alice), qt.Equals, 1)
	meta, err := e.box.BallotMeta(p.ID, alice)
	c.Assert(err, qt.IsNil)
	c.Assert(meta.Sequence, qt.Equals, uint64(1))
	agg, _, err := e.acc.Aggregate(p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(agg.Vector.Equal(plaintext.EncryptVector(1, 0)), qt.IsTrue)
}

func TestSubmitOverwrite(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)
	ctx := context.Background()
	p := e.proposal(t, true)

	_, err := e.box.Submit(ctx, ballot(p.ID, alice, 1, 0))
	c.Assert(err, qt.IsNil)
	_, err = e.box.Submit(ctx, ballot(p.ID, bob, 1, 0))
	c.Assert(err, qt.IsNil)
	e.clock.Add(time.Minute)
	second := ballot(p.ID, alice, 0, 1)
	second.Counter = 1
	outcome, err := e.box.Submit(ctx, second)
	c.Assert(err, qt.IsNil)
	c.Assert(outcome, qt.Equals, types.OutcomeOverwrite)
	e.clock.Add(time.Minute)
	third := ballot(p.ID, alice, 0, 1)
	third.Counter = 5
	outcome, err = e.box.Submit(ctx, third)
	c.Assert(err, qt.IsNil)
	c.Assert(outcome, qt.Equals, types.OutcomeOverwrite)

	c.Assert(validBallots(c, e, p.ID, alice), qt.Equals, 1)

	history, err := e.box.History(p.ID, alice)
	c.Assert(err, qt.IsNil)
	c.Assert(history, qt.HasLen, 3)
	c.Assert(history[0].Valid, qt.IsFalse)
	c.Assert(history[1].Valid, qt.IsFalse)
	c.Assert(history[2].Valid, qt.IsTrue)
	c.Assert(history[0].Sequence < history[1].Sequence, qt.IsTrue)
	c.Assert(history[1].Sequence < history[2].Sequence, qt.IsTrue)

	meta, err := e.box.BallotMeta(p.ID, alice)
	c.Assert(err, qt.IsNil)
	c.Assert(meta.Overwrites, qt.Equals, 2)
	c.Assert(meta.Counter, qt.Equals, uint64(5))

	// the last ballot of every identity is counted once
	agg, weight, err := e.acc.Aggregate(p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(agg.Ballots, qt.Equals, uint64(2))
	c.Assert(weight, qt.Equals, uint64(2))
	c.Assert(agg.Vector.Equal(plaintext.EncryptVector(1, 1)), qt.IsTrue)
}

func TestSubmitPreconditions(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)
	ctx := context.Background()
	p := e.proposal(t, false)

	_, err := e.box.Submit(ctx, ballot(types.ProposalID{Nonce: 9}, alice, 1, 0))
	c.Assert(err, qt.ErrorIs, types.ErrNotFound)

	empty := ballot(p.ID, alice)
	_, err = e.box.Submit(ctx, empty)
	c.Assert(err, qt.ErrorIs, types.ErrVectorSize)

	_, err = e.box.Submit(ctx, ballot(p.ID, alice, 1, 0, 0))
	c.Assert(err, qt.ErrorIs, types.ErrVectorSize)

	// window is inclusive at the end
	e.clock.Set(p.EndTime)
	_, err = e.box.Submit(ctx, ballot(p.ID, alice, 1, 0))
	c.Assert(err, qt.IsNil)

	e.clock.Add(time.Nanosecond)
	_, err = e.box.Submit(ctx, ballot(p.ID, bob, 1, 0))
	c.Assert(err, qt.ErrorIs, types.ErrInvalidState)

	voted, err := e.box.HasVoted(p.ID, bob)
	c.Assert(err, qt.IsNil)
	c.Assert(voted, qt.IsFalse)
	_, err = e.box.BallotMeta(p.ID, bob)
	c.Assert(err, qt.ErrorIs, types.ErrNotFound)
}

func TestSubmitBeforeStartAndCancelled(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)
	ctx := context.Background()

	p, err := e.reg.Create(ctx, creator, &registry.ProposalSetup{
		Title:       "later",
		StartTime:   e.clock.Now().Add(time.Hour),
		EndTime:     e.clock.Now().Add(2 * time.Hour),
		OptionCount: 2,
		Options:     []types.Option{{Enabled: true}, {Enabled: true}},
	})
	c.Assert(err, qt.IsNil)
	_, err = e.box.Submit(ctx, ballot(p.ID, alice, 1, 0))
	c.Assert(err, qt.ErrorIs, types.ErrInvalidState)

	e.clock.Add(time.Hour)
	_, err = e.reg.Cancel(ctx, p.ID, creator)
	c.Assert(err, qt.IsNil)
	_, err = e.box.Submit(ctx, ballot(p.ID, alice, 1, 0))
	c.Assert(err, qt.ErrorIs, types.ErrInvalidState)
}

func TestSubmitStaleCounter(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)
	ctx := context.Background()
	p := e.proposal(t, true)

	first := ballot(p.ID, alice, 1, 0)
	first.Counter = 3
	_, err := e.box.Submit(ctx, first)
	c.Assert(err, qt.IsNil)

	// same counter and lower counter are both rejected
	for _, counter := range []uint64{3, 2} {
		b := ballot(p.ID, alice, 0, 1)
		b.Counter = counter
		_, err = e.box.Submit(ctx, b)
		c.Assert(err, qt.ErrorIs, types.ErrStaleBallot)
	}
	c.Assert(validBallots(c, e, p.ID, alice), qt.Equals, 1)
	history, err := e.box.History(p.ID, alice)
	c.Assert(err, qt.IsNil)
	c.Assert(history, qt.HasLen, 1)

	agg, _, err := e.acc.Aggregate(p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(agg.Vector.Equal(plaintext.EncryptVector(1, 0)), qt.IsTrue)
}

func TestSubmitMalformedOverwrite(t *testing.T) {
	c := qt.New(t)
	e := newEnv(t)
	ctx := context.Background()
	p := e.proposal(t, true)

	_, err := e.box.Submit(ctx, ballot(p.ID, alice, 1, 0))
	c.Assert(err, qt.IsNil)

	bad := ballot(p.ID, alice)
	bad.Cipher = types.CipherVector{{0x01}, {0x01}}
	bad.Counter = 1
	_, err = e.box.Submit(ctx, bad)
	c.Assert(err, qt.ErrorIs, types.ErrVectorSize)

	// the previous ballot is still the valid one and the tally still sums
	meta, err := e.box.BallotMeta(p.ID, alice)
	c.Assert(err, qt.IsNil)
	c.Assert(meta.Valid, qt.IsTrue)
	c.Assert(meta.Overwrites, qt.Equals, 0)
	current, err := e.stg.Ballot(p.ID, eligibility.DeriveNullifier(p.ID, alice))
	c.Assert(err, qt.IsNil)
	c.Assert(current.Cipher.Equal(plaintext.EncryptVector(1, 0)), qt.IsTrue)

	agg, weight, err := e.acc.Aggregate(p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(weight, qt.Equals, uint64(1))
	c.Assert(agg.Vector.Equal(plaintext.EncryptVector(1, 0)), qt.IsTrue)
}
