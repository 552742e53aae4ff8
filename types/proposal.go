package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// VoteType tags how choices and weights of a proposal are interpreted.
type VoteType uint8

const (
	VoteSingleChoice VoteType = iota
	VoteMultiChoice
	VoteRanked
	VoteTokenWeighted
	VoteQuadratic
)

var voteTypeNames = map[VoteType]string{
	VoteSingleChoice:  "single-choice",
	VoteMultiChoice:   "multi-choice",
	VoteRanked:        "ranked",
	VoteTokenWeighted: "token-weighted",
	VoteQuadratic:     "quadratic",
}

func (v VoteType) String() string {
	if name, ok := voteTypeNames[v]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(v))
}

// Valid reports whether v is one of the known vote types.
func (v VoteType) Valid() bool {
	_, ok := voteTypeNames[v]
	return ok
}

// Weighted reports whether the vote type derives the ballot weight from a
// balance snapshot.
func (v VoteType) Weighted() bool {
	return v == VoteTokenWeighted || v == VoteQuadratic
}

func (v VoteType) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *VoteType) UnmarshalText(text []byte) error {
	for k, name := range voteTypeNames {
		if name == string(text) {
			*v = k
			return nil
		}
	}
	return fmt.Errorf("unknown vote type %q", text)
}

// Disclosure is the policy that rules what is revealed once a proposal is
// finalized.
type Disclosure uint8

const (
	// DisclosureMinimal reveals the winning option and a proof, never the
	// magnitudes.
	DisclosureMinimal Disclosure = iota
	// DisclosureAggregateOnly reveals the decrypted per-option totals.
	DisclosureAggregateOnly
)

func (d Disclosure) String() string {
	switch d {
	case DisclosureMinimal:
		return "minimal"
	case DisclosureAggregateOnly:
		return "aggregate-only"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(d))
	}
}

// Valid reports whether d is a known disclosure policy.
func (d Disclosure) Valid() bool {
	return d == DisclosureMinimal || d == DisclosureAggregateOnly
}

func (d Disclosure) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Disclosure) UnmarshalText(text []byte) error {
	switch string(text) {
	case "minimal":
		*d = DisclosureMinimal
	case "aggregate-only":
		*d = DisclosureAggregateOnly
	default:
		return fmt.Errorf("unknown disclosure policy %q", text)
	}
	return nil
}

// Status is the lifecycle status of a proposal. Active is the only
// non-terminal status.
type Status uint8

const (
	StatusActive Status = iota
	StatusFinalized
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusFinalized:
		return "finalized"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Terminal reports whether no transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusFinalized || s == StatusCancelled
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransition(next Status) bool {
	return s == StatusActive && next.Terminal()
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "active":
		*s = StatusActive
	case "finalized":
		*s = StatusFinalized
	case "cancelled":
		*s = StatusCancelled
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// Option describes one of the choices of a proposal.
type Option struct {
	Label   string `json:"label"   cbor:"0,keyasint,omitempty"`
	Enabled bool   `json:"enabled" cbor:"1,keyasint,omitempty"`
}

// Proposal holds the metadata and lifecycle status of a voting proposal.
type Proposal struct {
	ID               ProposalID     `json:"id"                        cbor:"0,keyasint"`
	Creator          common.Address `json:"creator"                   cbor:"1,keyasint"`
	Title            string         `json:"title"                     cbor:"2,keyasint,omitempty"`
	Description      string         `json:"description"               cbor:"3,keyasint,omitempty"`
	StartTime        time.Time      `json:"startTime"                 cbor:"4,keyasint"`
	EndTime          time.Time      `json:"endTime"                   cbor:"5,keyasint"`
	Buffer           time.Duration  `json:"buffer"                    cbor:"6,keyasint,omitempty"`
	VoteType         VoteType       `json:"voteType"                  cbor:"7,keyasint,omitempty"`
	Disclosure       Disclosure     `json:"disclosure"                cbor:"8,keyasint,omitempty"`
	OptionCount      int            `json:"optionCount"               cbor:"9,keyasint"`
	Options          []Option       `json:"options"                   cbor:"10,keyasint,omitempty"`
	SnapshotRef      string         `json:"snapshotRef,omitempty"     cbor:"11,keyasint,omitempty"`
	EligibilityRoot  HexBytes       `json:"eligibilityRoot,omitempty" cbor:"12,keyasint,omitempty"`
	EnableOverwrite  bool           `json:"enableOverwrite"           cbor:"13,keyasint,omitempty"`
	EnableDelegation bool           `json:"enableDelegation"          cbor:"14,keyasint,omitempty"`
	Status           Status         `json:"status"                    cbor:"15,keyasint,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"                 cbor:"16,keyasint"`
}

// FinalizableAt returns the first instant after which the proposal can be
// finalized. Finalize requires now to be strictly after it.
func (p *Proposal) FinalizableAt() time.Time {
	return p.EndTime.Add(p.Buffer)
}

// Open reports whether t is inside the [start, end] voting window.
func (p *Proposal) Open(t time.Time) bool {
	return !t.Before(p.StartTime) && !t.After(p.EndTime)
}

// HasEligibilityRoot reports whether the proposal restricts voters to an
// allowlist.
func (p *Proposal) HasEligibilityRoot() bool {
	return len(p.EligibilityRoot) > 0
}

func (p *Proposal) String() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}

// Clone returns a deep copy of p.
func (p *Proposal) Clone() *Proposal {
	c := *p
	c.Options = slices.Clone(p.Options)
	c.EligibilityRoot = bytes.Clone(p.EligibilityRoot)
	return &c
}

// EncryptionKey is the public key ballots are encrypted under. PublicKey is
// empty for the plaintext backend.
type EncryptionKey struct {
	Backend   string   `json:"backend"`
	PublicKey HexBytes `json:"publicKey,omitempty"`
}
