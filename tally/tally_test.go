package tally

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/sealedvote/crypto/plaintext"
	"github.com/vocdoni/sealedvote/storage"
	"github.com/vocdoni/sealedvote/types"
	"go.vocdoni.io/dvote/db/metadb"
)

var testPID = types.ProposalID{ChainID: 1, Creator: common.Address{1}, Nonce: 7}

func newAccumulator(t *testing.T) (*Accumulator, *storage.Storage) {
	stg := storage.New(metadb.NewTest(t))
	return New(stg, plaintext.Scheme{}), stg
}

func admit(c *qt.C, stg *storage.Storage, acc *Accumulator, nullifier byte,
	v types.CipherVector, weight, oldWeight uint64, outcome types.SubmitOutcome,
) {
	b := stg.NewBatch()
	defer b.Discard()
	c.Assert(acc.Admit(b, testPID, []byte{nullifier}, v, weight, oldWeight, outcome), qt.IsNil)
	c.Assert(b.Commit(), qt.IsNil)
}

func decrypt(c *qt.C, v types.CipherVector) []uint64 {
	out := make([]uint64, len(v))
	for i := range v {
		var err error
		out[i], err = plaintext.Decrypt(v[i])
		c.Assert(err, qt.IsNil)
	}
	return out
}

func TestAllocate(t *testing.T) {
	c := qt.New(t)
	acc, _ := newAccumulator(t)

	c.Assert(acc.Allocate(testPID, 3), qt.IsNil)
	n, err := acc.Len(testPID)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 3)

	v, err := acc.Snapshot(testPID)
	c.Assert(err, qt.IsNil)
	c.Assert(decrypt(c, v), qt.DeepEquals, []uint64{0, 0, 0})

	c.Assert(acc.Allocate(testPID, 3), qt.ErrorIs, types.ErrAlreadyInitialized)
	c.Assert(acc.Allocate(types.ProposalID{Nonce: 1}, 1), qt.ErrorIs, types.ErrVectorSize)
	c.Assert(acc.Allocate(types.ProposalID{Nonce: 1}, 17), qt.ErrorIs, types.ErrVectorSize)

	_, err = acc.Len(types.ProposalID{Nonce: 2})
	c.Assert(err, qt.ErrorIs, types.ErrNotFound)
}

func TestMergeVector(t *testing.T) {
	c := qt.New(t)
	acc, _ := newAccumulator(t)
	c.Assert(acc.Allocate(testPID, 2), qt.IsNil)

	c.Assert(acc.MergeVector(testPID, plaintext.EncryptVector(1, 0)), qt.IsNil)
	c.Assert(acc.MergeVector(testPID, plaintext.EncryptVector(1, 2)), qt.IsNil)
	c.Assert(acc.MergeVector(testPID, plaintext.EncryptVector(1, 2, 3)), qt.ErrorIs, types.ErrVectorSize)

	v, err := acc.Snapshot(testPID)
	c.Assert(err, qt.IsNil)
	c.Assert(decrypt(c, v), qt.DeepEquals, []uint64{2, 2})
	n, err := acc.Len(testPID)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 2)

	// the snapshot is a copy
	v[0][0] = 0xff
	v2, err := acc.Snapshot(testPID)
	c.Assert(err, qt.IsNil)
	c.Assert(decrypt(c, v2), qt.DeepEquals, []uint64{2, 2})
}

func TestCheckVector(t *testing.T) {
	c := qt.New(t)
	acc, _ := newAccumulator(t)
	c.Assert(acc.Allocate(testPID, 2), qt.IsNil)

	c.Assert(acc.CheckVector(testPID, plaintext.EncryptVector(1, 0)), qt.IsNil)
	c.Assert(acc.CheckVector(testPID, plaintext.EncryptVector(1)), qt.ErrorIs, types.ErrVectorSize)
	c.Assert(acc.CheckVector(testPID, types.CipherVector{{1}, {}}), qt.ErrorIs, types.ErrVectorSize)
	// right shape, but the adder cannot read the ciphertexts
	c.Assert(acc.CheckVector(testPID, types.CipherVector{{0x01}, {0x01}}), qt.ErrorIs, types.ErrVectorSize)
}

func TestAggregateFreshOnly(t *testing.T) {
	c := qt.New(t)
	acc, stg := newAccumulator(t)
	c.Assert(acc.Allocate(testPID, 2), qt.IsNil)

	admit(c, stg, acc, 1, plaintext.EncryptVector(1, 0), 1, 0, types.OutcomeFresh)
	admit(c, stg, acc, 2, plaintext.EncryptVector(0, 1), 3, 0, types.OutcomeFresh)
	admit(c, stg, acc, 3, plaintext.EncryptVector(1, 0), 1, 0, types.OutcomeFresh)

	agg, weight, err := acc.Aggregate(testPID)
	c.Assert(err, qt.IsNil)
	c.Assert(agg.Ballots, qt.Equals, uint64(3))
	c.Assert(weight, qt.Equals, uint64(5))
	c.Assert(decrypt(c, agg.Vector), qt.DeepEquals, []uint64{2, 1})

	snap, err := acc.Snapshot(testPID)
	c.Assert(err, qt.IsNil)
	c.Assert(snap.Equal(agg.Vector), qt.IsTrue)
}

func TestAggregateAfterOverwrite(t *testing.T) {
	c := qt.New(t)
	acc, stg := newAccumulator(t)
	c.Assert(acc.Allocate(testPID, 2), qt.IsNil)

	admit(c, stg, acc, 1, plaintext.EncryptVector(1, 0), 2, 0, types.OutcomeFresh)
	admit(c, stg, acc, 2, plaintext.EncryptVector(1, 0), 1, 0, types.OutcomeFresh)
	// identity 1 changes its mind
	admit(c, stg, acc, 1, plaintext.EncryptVector(0, 1), 4, 2, types.OutcomeOverwrite)

	// the running sum still counts the replaced ballot
	snap, err := acc.Snapshot(testPID)
	c.Assert(err, qt.IsNil)
	c.Assert(decrypt(c, snap), qt.DeepEquals, []uint64{2, 0})

	agg, weight, err := acc.Aggregate(testPID)
	c.Assert(err, qt.IsNil)
	c.Assert(agg.Ballots, qt.Equals, uint64(2))
	c.Assert(weight, qt.Equals, uint64(5))
	c.Assert(decrypt(c, agg.Vector), qt.DeepEquals, []uint64{1, 1})
	c.Assert(agg.Vector, qt.HasLen, 2)
}

func TestAdmitRejectsBadVectors(t *testing.T) {
	c := qt.New(t)
	acc, stg := newAccumulator(t)
	c.Assert(acc.Allocate(testPID, 2), qt.IsNil)

	b := stg.NewBatch()
	defer b.Discard()
	c.Assert(acc.Admit(b, testPID, []byte{1}, plaintext.EncryptVector(1), 1, 0, types.OutcomeFresh),
		qt.ErrorIs, types.ErrVectorSize)
	c.Assert(acc.Admit(b, testPID, []byte{1}, plaintext.EncryptVector(1, 2, 3), 1, 0, types.OutcomeOverwrite),
		qt.ErrorIs, types.ErrVectorSize)
	c.Assert(acc.Admit(b, testPID, []byte{1}, plaintext.EncryptVector(1, 2), 1, 0, 0),
		qt.ErrorMatches, "unknown submit outcome 0")
	c.Assert(acc.Admit(b, types.ProposalID{}, []byte{1}, plaintext.EncryptVector(1, 2), 1, 0, types.OutcomeFresh),
		qt.ErrorIs, types.ErrNotFound)
}

func TestOverwriteWithMalformedCiphertext(t *testing.T) {
	c := qt.New(t)
	acc, stg := newAccumulator(t)
	c.Assert(acc.Allocate(testPID, 2), qt.IsNil)
	admit(c, stg, acc, 1, plaintext.EncryptVector(1, 0), 1, 0, types.OutcomeFresh)

	b := stg.NewBatch()
	c.Assert(acc.Admit(b, testPID, []byte{1}, types.CipherVector{{0x01}, {0x01}}, 1, 1, types.OutcomeOverwrite),
		qt.ErrorIs, types.ErrVectorSize)
	b.Discard()

	agg, weight, err := acc.Aggregate(testPID)
	c.Assert(err, qt.IsNil)
	c.Assert(weight, qt.Equals, uint64(1))
	c.Assert(decrypt(c, agg.Vector), qt.DeepEquals, []uint64{1, 0})
}
