package elgamal

import (
	"context"
	"fmt"
	"math/big"
	"runtime"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/sealedvote/crypto"
	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/types"
	"golang.org/x/sync/errgroup"
)

var (
	_ crypto.HomomorphicAdder   = (*Committee)(nil)
	_ crypto.ThresholdDecrypter = (*Committee)(nil)
	_ crypto.OrderingProver     = (*Committee)(nil)
	_ crypto.KeyHolder          = (*Committee)(nil)
)

// DefaultMaxMessage bounds the discrete logarithm search when decrypting
// totals.
const DefaultMaxMessage = 1 << 24

// Committee is a set of key share holders. It runs the distributed key
// generation on creation and combines partial decryptions of a quorum of
// Threshold members. It implements the HomomorphicAdder and
// ThresholdDecrypter capabilities.
type Committee struct {
	Threshold    int
	Participants map[int]*Participant
	PublicKey    *G1
	// MaxMessage is the largest per-option total that can be decrypted.
	MaxMessage uint64
}

// NewCommittee runs the key generation among size participants, any
// threshold of which can decrypt.
func NewCommittee(size, threshold int) (*Committee, error) {
	if threshold < 1 || threshold > size {
		return nil, fmt.Errorf("invalid threshold %d for committee of %d", threshold, size)
	}
	ids := make([]int, size)
	for i := range ids {
		ids[i] = i + 1
	}
	participants := make(map[int]*Participant, size)
	allPublicCoeffs := make(map[int][]*G1, size)
	for _, id := range ids {
		p := NewParticipant(id, threshold, ids)
		if err := p.GenerateSecretPolynomial(); err != nil {
			return nil, err
		}
		p.ComputeShares()
		participants[id] = p
		allPublicCoeffs[id] = p.PublicCoeffs
	}
	// exchange and verify shares
	for _, p := range participants {
		for id, other := range participants {
			if id == p.ID {
				continue
			}
			if err := p.ReceiveShare(id, other.SecretShares[p.ID], other.PublicCoeffs); err != nil {
				return nil, fmt.Errorf("participant %d: %w", p.ID, err)
			}
		}
	}
	for _, p := range participants {
		p.AggregateShares()
		p.AggregatePublicKey(allPublicCoeffs)
	}
	c := &Committee{
		Threshold:    threshold,
		Participants: participants,
		PublicKey:    participants[ids[0]].PublicKey,
		MaxMessage:   DefaultMaxMessage,
	}
	log.Infow("decryption committee ready", "size", size, "threshold", threshold, "publicKey", c.PublicKey.String())
	return c, nil
}

// Zero returns n encryptions of zero with k=0, the neutral element of Add.
func (c *Committee) Zero(n int) (types.CipherVector, error) {
	zero := &Ciphertext{}
	zero.C1.SetZero()
	zero.C2.SetZero()
	v := make(types.CipherVector, n)
	for i := range v {
		v[i] = zero.Marshal()
	}
	return v, nil
}

// Add implements the HomomorphicAdder capability.
func (c *Committee) Add(x, y types.Ciphertext) (types.Ciphertext, error) {
	cx, cy := &Ciphertext{}, &Ciphertext{}
	if err := cx.Unmarshal(x); err != nil {
		return nil, err
	}
	if err := cy.Unmarshal(y); err != nil {
		return nil, err
	}
	return new(Ciphertext).Add(cx, cy).Marshal(), nil
}

// EncryptVector encrypts one message per option with the committee key.
func (c *Committee) EncryptVector(msgs []uint64) (types.CipherVector, error) {
	return encryptVector(c.PublicKey, msgs)
}

// quorum returns the IDs of the first Threshold participants.
func (c *Committee) quorum() []int {
	ids := make([]int, 0, c.Threshold)
	for id := 1; len(ids) < c.Threshold; id++ {
		if _, ok := c.Participants[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// ThresholdDecrypt decrypts every element of the aggregate with the
// partial decryptions of a quorum. The proof reference commits to the
// partial decryptions used.
func (c *Committee) ThresholdDecrypt(ctx context.Context, agg *types.Aggregate) ([]*big.Int, []byte, error) {
	if agg == nil || len(agg.Vector) == 0 {
		return nil, nil, fmt.Errorf("%w: empty aggregate", types.ErrVectorSize)
	}
	ids := c.quorum()
	lambdas, err := lagrangeCoefficients(ids)
	if err != nil {
		return nil, nil, err
	}

	totals := make([]*big.Int, len(agg.Vector))
	partials := make([][]byte, len(agg.Vector))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range agg.Vector {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			z := &Ciphertext{}
			if err := z.Unmarshal(agg.Vector[i]); err != nil {
				return fmt.Errorf("option %d: %w", i, err)
			}
			s := new(G1).SetZero()
			var transcript []byte
			for _, id := range ids {
				pd := c.Participants[id].PartialDecryption(&z.C1)
				transcript = append(transcript, pd.Marshal()...)
				s.Add(s, new(G1).ScalarMult(pd, lambdas[id]))
			}
			s.Neg(s)
			m := new(G1).Add(&z.C2, s)
			total, err := BabyStepGiantStep(m, c.MaxMessage)
			if err != nil {
				return fmt.Errorf("option %d: %w", i, err)
			}
			totals[i] = total
			partials[i] = transcript
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return totals, ethcrypto.Keccak256(partials...), nil
}

// VerifyOrderingProof decrypts the aggregate inside the committee and only
// releases the index of the winning option. Ties go to the lowest index.
func (c *Committee) VerifyOrderingProof(ctx context.Context, agg *types.Aggregate) (int, []byte, error) {
	totals, proofRef, err := c.ThresholdDecrypt(ctx, agg)
	if err != nil {
		return 0, nil, err
	}
	winner := crypto.Winner(totals)
	return winner, ethcrypto.Keccak256(proofRef, []byte{byte(winner)}), nil
}
