package plaintext

import (
	"context"
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/sealedvote/crypto"
	"github.com/vocdoni/sealedvote/types"
)

func TestAddVectors(t *testing.T) {
	c := qt.New(t)

	var s Scheme
	zero, err := s.Zero(3)
	c.Assert(err, qt.IsNil)
	c.Assert(zero, qt.HasLen, 3)

	sum, err := crypto.AddVectors(s, zero, EncryptVector(1, 0, 2))
	c.Assert(err, qt.IsNil)
	sum, err = crypto.AddVectors(s, sum, EncryptVector(0, 4, 1))
	c.Assert(err, qt.IsNil)
	c.Assert(sum.Equal(EncryptVector(1, 4, 3)), qt.IsTrue)

	_, err = crypto.AddVectors(s, sum, EncryptVector(1))
	c.Assert(err, qt.ErrorIs, types.ErrVectorSize)

	_, err = s.Add([]byte{1}, Encrypt(1))
	c.Assert(err, qt.ErrorMatches, "invalid ciphertext length 1")

	_, err = s.Add(Encrypt(math.MaxUint64), Encrypt(1))
	c.Assert(err, qt.ErrorMatches, "sum overflows uint64.*")
	top, err := s.Add(Encrypt(math.MaxUint64-1), Encrypt(1))
	c.Assert(err, qt.IsNil)
	c.Assert(top, qt.DeepEquals, Encrypt(math.MaxUint64))
}

func TestDecryptAndOrder(t *testing.T) {
	c := qt.New(t)

	var s Scheme
	agg := &types.Aggregate{Ballots: 4, Vector: EncryptVector(2, 5, 5)}

	totals, ref, err := s.ThresholdDecrypt(context.Background(), agg)
	c.Assert(err, qt.IsNil)
	c.Assert(ref, qt.HasLen, 32)
	c.Assert(totals[0].Uint64(), qt.Equals, uint64(2))
	c.Assert(totals[1].Uint64(), qt.Equals, uint64(5))
	c.Assert(totals[2].Uint64(), qt.Equals, uint64(5))

	winner, ref2, err := s.VerifyOrderingProof(context.Background(), agg)
	c.Assert(err, qt.IsNil)
	c.Assert(winner, qt.Equals, 1)
	c.Assert(ref2, qt.Not(qt.DeepEquals), ref)

	_, _, err = s.ThresholdDecrypt(context.Background(), &types.Aggregate{})
	c.Assert(err, qt.ErrorIs, types.ErrVectorSize)
}
