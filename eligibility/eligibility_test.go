package eligibility

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	iden3poseidon "github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/vocdoni/sealedvote/storage/census"
	"github.com/vocdoni/sealedvote/types"
	"go.vocdoni.io/dvote/db/metadb"
)

type proposals map[types.ProposalID]*types.Proposal

func (ps proposals) Proposal(pid types.ProposalID) (*types.Proposal, error) {
	if p, ok := ps[pid]; ok {
		return p, nil
	}
	return nil, types.ErrNotFound
}

type verifierFunc func(root []byte, identity common.Address, proof []byte) (bool, error)

func (f verifierFunc) VerifyAllowlistProof(root []byte, identity common.Address, proof []byte) (bool, error) {
	return f(root, identity, proof)
}

var (
	alice = common.HexToAddress("0xa11ce00000000000000000000000000000000000")
	bob   = common.HexToAddress("0xb0b0000000000000000000000000000000000000")
	open  = types.ProposalID{ChainID: 1, Creator: common.Address{1}, Nonce: 0}
	gated = types.ProposalID{ChainID: 1, Creator: common.Address{1}, Nonce: 1}
)

func TestDeriveNullifier(t *testing.T) {
	c := qt.New(t)

	n := DeriveNullifier(open, alice)
	c.Assert(n, qt.HasLen, types.NullifierLen)
	c.Assert(DeriveNullifier(open, alice), qt.DeepEquals, n)
	c.Assert(DeriveNullifier(open, bob), qt.Not(qt.DeepEquals), n)
	c.Assert(DeriveNullifier(gated, alice), qt.Not(qt.DeepEquals), n)

	// reproducible from the documented inputs only
	h, err := iden3poseidon.Hash([]*big.Int{
		new(big.Int).SetBytes(alice.Bytes()),
		big.NewInt(int64(open.ChainID)),
		new(big.Int).SetBytes(open.Creator.Bytes()),
		new(big.Int).SetUint64(open.Nonce),
	})
	c.Assert(err, qt.IsNil)
	c.Assert([]byte(n), qt.DeepEquals, h.FillBytes(make([]byte, 32)))
}

func TestAdmit(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	var gotRoot []byte
	g := New(proposals{
		open:  {ID: open},
		gated: {ID: gated, EligibilityRoot: types.HexBytes{0xee}},
	}, verifierFunc(func(root []byte, identity common.Address, proof []byte) (bool, error) {
		gotRoot = root
		switch string(proof) {
		case "good":
			return identity == alice, nil
		case "broken":
			return false, errors.New("malformed proof")
		}
		return false, nil
	}))

	c.Assert(g.Admit(ctx, open, alice, DeriveNullifier(open, alice), nil), qt.IsNil)
	c.Assert(g.Admit(ctx, open, alice, DeriveNullifier(open, bob), nil), qt.ErrorIs, types.ErrBadNullifier)
	c.Assert(g.Admit(ctx, open, alice, DeriveNullifier(gated, alice), nil), qt.ErrorIs, types.ErrBadNullifier)
	c.Assert(g.Admit(ctx, open, alice, nil, nil), qt.ErrorIs, types.ErrBadNullifier)

	c.Assert(g.Admit(ctx, gated, alice, DeriveNullifier(gated, alice), []byte("good")), qt.IsNil)
	c.Assert(gotRoot, qt.DeepEquals, []byte{0xee})
	c.Assert(g.Admit(ctx, gated, bob, DeriveNullifier(gated, bob), []byte("good")), qt.ErrorIs, types.ErrNotEligible)
	c.Assert(g.Admit(ctx, gated, alice, DeriveNullifier(gated, alice), []byte("broken")), qt.ErrorIs, types.ErrNotEligible)
	c.Assert(g.Admit(ctx, gated, alice, DeriveNullifier(gated, alice), nil), qt.ErrorIs, types.ErrNotEligible)

	// the nullifier is checked before the allowlist
	c.Assert(g.Admit(ctx, gated, alice, DeriveNullifier(gated, bob), []byte("good")), qt.ErrorIs, types.ErrBadNullifier)

	c.Assert(g.Admit(ctx, types.ProposalID{Nonce: 7}, alice, nil, nil), qt.ErrorIs, types.ErrNotFound)

	noVerifier := New(proposals{gated: {ID: gated, EligibilityRoot: types.HexBytes{1}}}, nil)
	c.Assert(noVerifier.Admit(ctx, gated, alice, DeriveNullifier(gated, alice), []byte("good")), qt.ErrorIs, types.ErrNotEligible)
}

func TestAdmitWithCensus(t *testing.T) {
	c := qt.New(t)

	censusDB, err := census.NewCensusDB(metadb.NewTest(t))
	c.Assert(err, qt.IsNil)
	ref, err := censusDB.New(uuid.New())
	c.Assert(err, qt.IsNil)
	c.Assert(ref.Insert(alice, big.NewInt(1)), qt.IsNil)
	c.Assert(ref.Insert(common.Address{0xcc}, big.NewInt(1)), qt.IsNil)

	p := &types.Proposal{ID: gated, EligibilityRoot: ref.Root()}
	g := New(proposals{gated: p}, census.Verifier{})

	proof, err := ref.GenProof(alice.Bytes())
	c.Assert(err, qt.IsNil)
	encoded, err := proof.Marshal()
	c.Assert(err, qt.IsNil)

	c.Assert(g.AdmitProposal(p, alice, DeriveNullifier(gated, alice), encoded), qt.IsNil)
	c.Assert(g.AdmitProposal(p, bob, DeriveNullifier(gated, bob), encoded), qt.ErrorIs, types.ErrNotEligible)
}
