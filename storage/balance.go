package storage

import (
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

func balanceKey(snapshot string, identity common.Address) []byte {
	l := make([]byte, 2)
	binary.BigEndian.PutUint16(l, uint16(len(snapshot)))
	return key(l, []byte(snapshot), identity.Bytes())
}

// Balance returns the plaintext balance of identity in a snapshot. Unknown
// identities have a zero balance.
func (s *Storage) Balance(snapshot string, identity common.Address) (uint64, error) {
	var v uint64
	if err := s.getArtifact(balancePrefix, balanceKey(snapshot, identity), &v); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return v, nil
}

// SetBalance stages the balance of identity in a snapshot.
func (b *Batch) SetBalance(snapshot string, identity common.Address, amount uint64) error {
	return b.set(balancePrefix, balanceKey(snapshot, identity), amount)
}
