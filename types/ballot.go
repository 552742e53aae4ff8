package types

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Ciphertext is an opaque encrypted value. No arithmetic is defined on it;
// every homomorphic operation goes through a crypto capability.
type Ciphertext = HexBytes

// CipherVector is an ordered list of ciphertexts, one per proposal option.
type CipherVector []Ciphertext

// Clone returns a deep copy of v.
func (v CipherVector) Clone() CipherVector {
	if v == nil {
		return nil
	}
	c := make(CipherVector, len(v))
	for i := range v {
		c[i] = bytes.Clone(v[i])
	}
	return c
}

// Equal reports whether both vectors hold the same ciphertexts.
func (v CipherVector) Equal(w CipherVector) bool {
	if len(v) != len(w) {
		return false
	}
	for i := range v {
		if !bytes.Equal(v[i], w[i]) {
			return false
		}
	}
	return true
}

// Aggregate is the sum of the current ballots of a proposal. It is the only
// input accepted by decryption and ordering capabilities.
type Aggregate struct {
	ProposalID ProposalID   `json:"proposalId"`
	Ballots    uint64       `json:"ballots"`
	Vector     CipherVector `json:"vector"`
}

// SubmitOutcome tells how an accepted ballot was recorded.
type SubmitOutcome uint8

const (
	// OutcomeFresh is the first valid ballot for a nullifier.
	OutcomeFresh SubmitOutcome = iota + 1
	// OutcomeOverwrite replaced a previously valid ballot.
	OutcomeOverwrite
)

func (o SubmitOutcome) String() string {
	switch o {
	case OutcomeFresh:
		return "fresh"
	case OutcomeOverwrite:
		return "overwrite"
	default:
		return "unknown"
	}
}

func (o SubmitOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *SubmitOutcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "fresh":
		*o = OutcomeFresh
	case "overwrite":
		*o = OutcomeOverwrite
	default:
		return fmt.Errorf("unknown submit outcome %q", text)
	}
	return nil
}

// EncryptedBallot is a recorded ballot. Superseded ballots are kept with
// Valid set to false for audit purposes.
type EncryptedBallot struct {
	ProposalID  ProposalID     `json:"proposalId"  cbor:"0,keyasint"`
	Identity    common.Address `json:"identity"    cbor:"1,keyasint"`
	Nullifier   HexBytes       `json:"nullifier"   cbor:"2,keyasint"`
	Cipher      CipherVector   `json:"cipher"      cbor:"3,keyasint"`
	Weight      uint64         `json:"weight"      cbor:"4,keyasint"`
	SubmittedAt time.Time      `json:"submittedAt" cbor:"5,keyasint"`
	Valid       bool           `json:"valid"       cbor:"6,keyasint"`
	Sequence    uint64         `json:"sequence"    cbor:"7,keyasint"`
	Counter     uint64         `json:"counter"     cbor:"8,keyasint"`
}

// Meta returns the public metadata of the ballot, without the ciphertext.
func (b *EncryptedBallot) Meta() *BallotMeta {
	return &BallotMeta{
		Nullifier:   b.Nullifier,
		SubmittedAt: b.SubmittedAt,
		Valid:       b.Valid,
		Sequence:    b.Sequence,
		Weight:      b.Weight,
		Counter:     b.Counter,
	}
}

// BallotMeta is the audit view of a ballot. It never includes the choice.
type BallotMeta struct {
	Nullifier   HexBytes  `json:"nullifier"`
	SubmittedAt time.Time `json:"submittedAt"`
	Valid       bool      `json:"valid"`
	Sequence    uint64    `json:"sequence"`
	Weight      uint64    `json:"weight"`
	Counter     uint64    `json:"counter"`
	Overwrites  int       `json:"overwrites"`
}

// Delegation is informational metadata: it never transfers the right to
// cast a ballot.
type Delegation struct {
	ProposalID ProposalID     `json:"proposalId" cbor:"0,keyasint"`
	From       common.Address `json:"from"       cbor:"1,keyasint"`
	To         common.Address `json:"to"         cbor:"2,keyasint"`
	Timestamp  time.Time      `json:"timestamp"  cbor:"3,keyasint"`
}

// AggregatedResult is the one and only result record of a finalized
// proposal. Totals is empty under minimal disclosure.
type AggregatedResult struct {
	ProposalID    ProposalID `json:"proposalId"              cbor:"0,keyasint"`
	Disclosure    Disclosure `json:"disclosure"              cbor:"1,keyasint"`
	Totals        []*BigInt  `json:"totals,omitempty"        cbor:"2,keyasint,omitempty"`
	WinningOption *int       `json:"winningOption,omitempty" cbor:"3,keyasint,omitempty"`
	TotalWeight   uint64     `json:"totalWeight"             cbor:"4,keyasint"`
	Ballots       uint64     `json:"ballots"                 cbor:"5,keyasint"`
	ProofRef      HexBytes   `json:"proofRef"                cbor:"6,keyasint"`
	FinalizedAt   time.Time  `json:"finalizedAt"             cbor:"7,keyasint"`
}
