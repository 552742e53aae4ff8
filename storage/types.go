package storage

import (
	"github.com/vocdoni/sealedvote/types"
)

// Tally is the stored encrypted tally of a proposal. Counts is the running
// sum of fresh ballots; once an overwrite happens it no longer reflects the
// latest ballot of every identity and Dirty is set, meaning the aggregate
// must be recomputed from the arena.
type Tally struct {
	ProposalID  types.ProposalID   `cbor:"0,keyasint"`
	Options     int                `cbor:"1,keyasint"`
	Counts      types.CipherVector `cbor:"2,keyasint"`
	Ballots     uint64             `cbor:"3,keyasint"`
	TotalWeight uint64             `cbor:"4,keyasint"`
	Dirty       bool               `cbor:"5,keyasint"`
}

// TallyEntry is the current encrypted vector of one nullifier.
type TallyEntry struct {
	Nullifier types.HexBytes     `cbor:"0,keyasint"`
	Vector    types.CipherVector `cbor:"1,keyasint"`
	Weight    uint64             `cbor:"2,keyasint"`
}
