package paillier

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/sealedvote/crypto"
	"github.com/vocdoni/sealedvote/types"
)

func TestHolderAggregate(t *testing.T) {
	c := qt.New(t)

	h, err := NewHolder(512)
	c.Assert(err, qt.IsNil)

	acc, err := h.Zero(2)
	c.Assert(err, qt.IsNil)
	for _, b := range [][]uint64{{1, 0}, {0, 1}, {1, 0}, {3, 0}} {
		v, err := h.EncryptVector(b...)
		c.Assert(err, qt.IsNil)
		acc, err = crypto.AddVectors(h, acc, v)
		c.Assert(err, qt.IsNil)
	}

	totals, proofRef, err := h.ThresholdDecrypt(context.Background(), &types.Aggregate{Vector: acc})
	c.Assert(err, qt.IsNil)
	c.Assert(proofRef, qt.HasLen, 32)
	c.Assert(totals[0].Uint64(), qt.Equals, uint64(5))
	c.Assert(totals[1].Uint64(), qt.Equals, uint64(1))
}

func TestHolderErrors(t *testing.T) {
	c := qt.New(t)

	h, err := NewHolder(512)
	c.Assert(err, qt.IsNil)

	_, err = h.Add(nil, []byte{1})
	c.Assert(err, qt.ErrorMatches, "ciphertext is empty")

	_, _, err = h.ThresholdDecrypt(context.Background(), &types.Aggregate{})
	c.Assert(err, qt.ErrorIs, types.ErrVectorSize)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v, err := h.Zero(1)
	c.Assert(err, qt.IsNil)
	_, _, err = h.ThresholdDecrypt(ctx, &types.Aggregate{Vector: v})
	c.Assert(err, qt.ErrorIs, context.Canceled)
}

func TestLoadHolderDecryptsEarlierBallots(t *testing.T) {
	c := qt.New(t)

	h, err := NewHolder(512)
	c.Assert(err, qt.IsNil)
	data, err := h.MarshalKeys()
	c.Assert(err, qt.IsNil)

	acc, err := h.Zero(2)
	c.Assert(err, qt.IsNil)
	for _, b := range [][]uint64{{2, 0}, {0, 1}} {
		v, err := EncryptVector(h.EncryptionKey(), b)
		c.Assert(err, qt.IsNil)
		acc, err = crypto.AddVectors(h, acc, v)
		c.Assert(err, qt.IsNil)
	}

	restored, err := LoadHolder(data)
	c.Assert(err, qt.IsNil)
	c.Assert(restored.EncryptionKey(), qt.DeepEquals, h.EncryptionKey())
	totals, _, err := restored.ThresholdDecrypt(context.Background(), &types.Aggregate{Vector: acc})
	c.Assert(err, qt.IsNil)
	c.Assert(totals[0].Uint64(), qt.Equals, uint64(2))
	c.Assert(totals[1].Uint64(), qt.Equals, uint64(1))

	_, err = LoadHolder([]byte{0xa0})
	c.Assert(err, qt.ErrorMatches, "incomplete paillier keys")
	_, err = EncryptVector(nil, []uint64{1})
	c.Assert(err, qt.ErrorMatches, "empty encryption key")
}
