// Package weight resolves the plaintext voting weight of an identity from
// the balances recorded for a snapshot.
package weight

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/storage"
	"github.com/vocdoni/sealedvote/types"
)

// Isqrt returns floor(sqrt(x)) using the Babylonian method: starting from
// (x+1)/2, iterate y = (y + x/y)/2 until y stops decreasing.
func Isqrt(x uint64) uint64 {
	if x == 0 {
		return 0
	}
	// (x+1)/2 without overflowing on MaxUint64
	z := x/2 + x&1
	y := (z + x/z) / 2
	for y < z {
		z = y
		y = (z + x/z) / 2
	}
	return z
}

// IsqrtBig is the arbitrary precision version of Isqrt.
func IsqrtBig(x *big.Int) (*big.Int, error) {
	if x.Sign() < 0 {
		return nil, fmt.Errorf("square root of negative number %s", x)
	}
	if x.Sign() == 0 {
		return new(big.Int), nil
	}
	two := big.NewInt(2)
	z := new(big.Int).Add(x, big.NewInt(1))
	z.Quo(z, two)
	y := new(big.Int).Quo(x, z)
	y.Add(y, z).Quo(y, two)
	for y.Cmp(z) < 0 {
		z.Set(y)
		y.Quo(x, z)
		y.Add(y, z).Quo(y, two)
	}
	return z, nil
}

// Registry gives access to snapshot balances. It is the only owner of the
// balances, every reader gets it injected.
type Registry struct {
	stg *storage.Storage
}

// New returns a registry over stg.
func New(stg *storage.Storage) *Registry {
	return &Registry{stg: stg}
}

// SetBalance records the balance of identity in a snapshot.
func (r *Registry) SetBalance(snapshot string, identity common.Address, amount uint64) error {
	if snapshot == "" {
		return fmt.Errorf("%w: empty snapshot reference", types.ErrConfig)
	}
	b := r.stg.NewBatch()
	defer b.Discard()
	if err := b.SetBalance(snapshot, identity, amount); err != nil {
		return err
	}
	if err := b.Commit(); err != nil {
		return err
	}
	log.Debugw("balance recorded", "snapshot", snapshot, "identity", identity.Hex(), "amount", amount)
	return nil
}

// Balance returns the balance of identity in a snapshot.
func (r *Registry) Balance(snapshot string, identity common.Address) (uint64, error) {
	return r.stg.Balance(snapshot, identity)
}

// VoterWeight returns the weight of a ballot cast by identity under the
// given vote type. Token weighted ballots weigh the balance, quadratic ones
// its integer square root and every other model weighs one.
func (r *Registry) VoterWeight(snapshot string, identity common.Address, model types.VoteType) (uint64, error) {
	if !model.Weighted() {
		return 1, nil
	}
	balance, err := r.stg.Balance(snapshot, identity)
	if err != nil {
		return 0, err
	}
	switch model {
	case types.VoteTokenWeighted:
		return balance, nil
	case types.VoteQuadratic:
		return Isqrt(balance), nil
	default:
		return 0, fmt.Errorf("%w: vote type %s", types.ErrConfig, model)
	}
}
