package storage

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/sealedvote/types"
	"go.vocdoni.io/dvote/db/metadb"
)

func testProposal(nonce uint64) *types.Proposal {
	creator := common.HexToAddress("0x0102030405060708090a0b0c0d0e0f1011121314")
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return &types.Proposal{
		ID:          types.ProposalID{ChainID: 1, Creator: creator, Nonce: nonce},
		Creator:     creator,
		Title:       "Test",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Buffer:      time.Minute,
		VoteType:    types.VoteQuadratic,
		Disclosure:  types.DisclosureAggregateOnly,
		OptionCount: 2,
		Options:     []types.Option{{Label: "yes", Enabled: true}, {Label: "no", Enabled: true}},
		SnapshotRef: "snap-1",
		CreatedAt:   start.Add(-time.Second - 123*time.Millisecond),
	}
}

func TestProposals(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	_, err := stg.Proposal(types.ProposalID{Nonce: 9})
	c.Assert(err, qt.ErrorIs, ErrNotFound)
	c.Assert(err, qt.ErrorIs, types.ErrNotFound)

	b := stg.NewBatch()
	p1, p2 := testProposal(0), testProposal(1)
	c.Assert(b.SetProposal(p1), qt.IsNil)
	c.Assert(b.SetProposal(p2), qt.IsNil)
	c.Assert(b.SetNonce(p1.Creator, 2), qt.IsNil)
	c.Assert(b.SetProposal(nil), qt.ErrorMatches, "nil proposal")
	c.Assert(b.Commit(), qt.IsNil)
	c.Assert(b.Commit(), qt.ErrorMatches, "batch already closed")

	got, err := stg.Proposal(p2.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.ID, qt.Equals, p2.ID)
	c.Assert(got.Title, qt.Equals, p2.Title)
	c.Assert(got.Options, qt.DeepEquals, p2.Options)
	c.Assert(got.CreatedAt.Equal(p2.CreatedAt), qt.IsTrue)
	c.Assert(got.Buffer, qt.Equals, p2.Buffer)
	c.Assert(got.VoteType, qt.Equals, types.VoteQuadratic)

	pids, err := stg.ListProposals()
	c.Assert(err, qt.IsNil)
	c.Assert(pids, qt.DeepEquals, []types.ProposalID{p1.ID, p2.ID})

	nonce, err := stg.Nonce(p1.Creator)
	c.Assert(err, qt.IsNil)
	c.Assert(nonce, qt.Equals, uint64(2))
	nonce, err = stg.Nonce(common.Address{})
	c.Assert(err, qt.IsNil)
	c.Assert(nonce, qt.Equals, uint64(0))
}

func TestBatchDiscard(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	p := testProposal(0)
	b := stg.NewBatch()
	c.Assert(b.SetProposal(p), qt.IsNil)
	c.Assert(b.SetTally(&Tally{ProposalID: p.ID, Options: 2}), qt.IsNil)
	b.Discard()
	b.Discard()

	_, err := stg.Proposal(p.ID)
	c.Assert(err, qt.ErrorIs, ErrNotFound)
	ok, err := stg.HasTally(p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)
}

func TestBallots(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	pid := testProposal(0).ID
	identity := common.Address{0xaa}
	nullifier := types.HexBytes{1, 2, 3}
	ballot := func(seq uint64, valid bool) *types.EncryptedBallot {
		return &types.EncryptedBallot{
			ProposalID:  pid,
			Identity:    identity,
			Nullifier:   nullifier,
			Cipher:      types.CipherVector{{byte(seq)}, {0}},
			Weight:      1,
			SubmittedAt: time.Unix(int64(seq), 0),
			Valid:       valid,
			Sequence:    seq,
		}
	}

	b := stg.NewBatch()
	c.Assert(b.SetBallot(ballot(1, true)), qt.IsNil)
	c.Assert(b.SetSequence(pid, 1), qt.IsNil)
	c.Assert(b.Commit(), qt.IsNil)

	b = stg.NewBatch()
	c.Assert(b.ArchiveBallot(ballot(1, true)), qt.ErrorMatches, "cannot archive a valid ballot")
	c.Assert(b.ArchiveBallot(ballot(1, false)), qt.IsNil)
	c.Assert(b.ArchiveBallot(ballot(2, false)), qt.IsNil)
	c.Assert(b.SetBallot(ballot(3, true)), qt.IsNil)
	c.Assert(b.SetSequence(pid, 3), qt.IsNil)
	c.Assert(b.Commit(), qt.IsNil)

	current, err := stg.Ballot(pid, nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(current.Sequence, qt.Equals, uint64(3))
	c.Assert(current.Valid, qt.IsTrue)
	c.Assert(current.Cipher.Equal(types.CipherVector{{3}, {0}}), qt.IsTrue)

	n, err := stg.NullifierOf(pid, identity)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.DeepEquals, nullifier)
	_, err = stg.NullifierOf(pid, common.Address{0xbb})
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	trail, err := stg.SupersededBallots(pid, nullifier)
	c.Assert(err, qt.IsNil)
	c.Assert(trail, qt.HasLen, 2)
	c.Assert(trail[0].Sequence, qt.Equals, uint64(1))
	c.Assert(trail[1].Sequence, qt.Equals, uint64(2))
	c.Assert(trail[1].Valid, qt.IsFalse)

	seq, err := stg.Sequence(pid)
	c.Assert(err, qt.IsNil)
	c.Assert(seq, qt.Equals, uint64(3))
}

func TestTallyArena(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	pid := testProposal(0).ID
	other := testProposal(1).ID
	b := stg.NewBatch()
	c.Assert(b.SetTally(&Tally{ProposalID: pid, Options: 2, Counts: types.CipherVector{{0}, {0}}}), qt.IsNil)
	c.Assert(b.SetTallyEntry(pid, &TallyEntry{Nullifier: types.HexBytes{2}, Vector: types.CipherVector{{1}, {0}}, Weight: 1}), qt.IsNil)
	c.Assert(b.SetTallyEntry(pid, &TallyEntry{Nullifier: types.HexBytes{1}, Vector: types.CipherVector{{0}, {1}}, Weight: 4}), qt.IsNil)
	c.Assert(b.SetTallyEntry(other, &TallyEntry{Nullifier: types.HexBytes{1}, Vector: types.CipherVector{{9}, {9}}, Weight: 9}), qt.IsNil)
	c.Assert(b.Commit(), qt.IsNil)

	tally, err := stg.Tally(pid)
	c.Assert(err, qt.IsNil)
	c.Assert(tally.Counts, qt.HasLen, 2)

	var weights []uint64
	c.Assert(stg.IterateTallyEntries(pid, func(e *TallyEntry) error {
		weights = append(weights, e.Weight)
		return nil
	}), qt.IsNil)
	c.Assert(weights, qt.DeepEquals, []uint64{4, 1})

	e, err := stg.TallyEntry(pid, []byte{2})
	c.Assert(err, qt.IsNil)
	c.Assert(e.Weight, qt.Equals, uint64(1))
}

func TestResultsDelegationsBalances(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	pid := testProposal(0).ID
	winner := 1
	b := stg.NewBatch()
	c.Assert(b.SetResult(&types.AggregatedResult{
		ProposalID:    pid,
		Disclosure:    types.DisclosureMinimal,
		WinningOption: &winner,
		ProofRef:      types.HexBytes{0xff},
		FinalizedAt:   time.Unix(100, 5),
	}), qt.IsNil)
	c.Assert(b.SetDelegation(&types.Delegation{ProposalID: pid, From: common.Address{1}, To: common.Address{2}}), qt.IsNil)
	c.Assert(b.SetDelegation(&types.Delegation{ProposalID: pid, From: common.Address{1}, To: common.Address{3}}), qt.IsNil)
	c.Assert(b.SetBalance("snap", common.Address{1}, 49), qt.IsNil)
	c.Assert(b.Commit(), qt.IsNil)

	ok, err := stg.HasResult(pid)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
	r, err := stg.Result(pid)
	c.Assert(err, qt.IsNil)
	c.Assert(r.Totals, qt.IsNil)
	c.Assert(*r.WinningOption, qt.Equals, 1)
	c.Assert(r.FinalizedAt.Equal(time.Unix(100, 5)), qt.IsTrue)

	ds, err := stg.Delegations(pid)
	c.Assert(err, qt.IsNil)
	c.Assert(ds, qt.HasLen, 1)
	c.Assert(ds[0].To, qt.Equals, common.Address{3})

	bal, err := stg.Balance("snap", common.Address{1})
	c.Assert(err, qt.IsNil)
	c.Assert(bal, qt.Equals, uint64(49))
	bal, err = stg.Balance("other", common.Address{1})
	c.Assert(err, qt.IsNil)
	c.Assert(bal, qt.Equals, uint64(0))
}

func TestKeyMaterial(t *testing.T) {
	c := qt.New(t)
	stg := New(metadb.NewTest(t))

	_, err := stg.KeyMaterial("elgamal")
	c.Assert(err, qt.ErrorIs, ErrNotFound)

	b := stg.NewBatch()
	c.Assert(b.SetKeyMaterial("elgamal", []byte{1, 2, 3}), qt.IsNil)
	c.Assert(b.Commit(), qt.IsNil)

	material, err := stg.KeyMaterial("elgamal")
	c.Assert(err, qt.IsNil)
	c.Assert(material, qt.DeepEquals, []byte{1, 2, 3})
	_, err = stg.KeyMaterial("paillier")
	c.Assert(err, qt.ErrorIs, ErrNotFound)
}
