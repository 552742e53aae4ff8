package api

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/vocdoni/sealedvote/storage/census"
	"github.com/vocdoni/sealedvote/types"
)

// SignedRequest wraps the JSON payload of a mutating request. Signature is
// the Ethereum personal signature of the raw payload bytes.
type SignedRequest struct {
	Payload   json.RawMessage `json:"payload"`
	Signature types.HexBytes  `json:"signature"`
}

// ProposalRef names the proposal of a cancel request.
type ProposalRef struct {
	ProposalID types.ProposalID `json:"proposalId"`
}

// ProposalList is the response to a proposal listing.
type ProposalList struct {
	Proposals []types.ProposalID `json:"proposals"`
}

// VoteResponse is the response to an accepted vote.
type VoteResponse struct {
	Outcome   types.SubmitOutcome `json:"outcome"`
	Nullifier types.HexBytes      `json:"nullifier"`
}

// VoterResponse tells whether an identity voted and, if so, its ballot
// history. The ciphertexts are never included.
type VoterResponse struct {
	Voted   bool                `json:"voted"`
	Ballot  *types.BallotMeta   `json:"ballot,omitempty"`
	History []*types.BallotMeta `json:"history,omitempty"`
}

// DelegationRequest delegates the signer to To.
type DelegationRequest struct {
	ProposalID types.ProposalID `json:"proposalId"`
	To         common.Address   `json:"to"`
}

// DelegationList is the response to a delegation listing.
type DelegationList struct {
	Delegations []*types.Delegation `json:"delegations"`
}

// BalanceEntry is the balance of one identity.
type BalanceEntry struct {
	Identity common.Address `json:"identity"`
	Amount   uint64         `json:"amount"`
}

// BalancesRequest loads balances into a snapshot.
type BalancesRequest struct {
	Snapshot string         `json:"snapshot"`
	Balances []BalanceEntry `json:"balances"`
}

// BalanceResponse is the response to a balance query.
type BalanceResponse struct {
	Snapshot string         `json:"snapshot"`
	Identity common.Address `json:"identity"`
	Amount   uint64         `json:"amount"`
}

// NewCensus is the response to a new census creation request.
type NewCensus struct {
	Census uuid.UUID `json:"census"`
}

// CensusParticipant is an allowlist entry. A nil weight counts as one.
type CensusParticipant struct {
	Address common.Address `json:"address"`
	Weight  *types.BigInt  `json:"weight,omitempty"`
}

// CensusParticipants is the request to add participants to a census.
type CensusParticipants struct {
	Participants []*CensusParticipant `json:"participants"`
}

// CensusRoot is the response to a census root request.
type CensusRoot struct {
	Root types.HexBytes `json:"root"`
}

// CensusSize is the response to a census size request.
type CensusSize struct {
	Size int `json:"size"`
}

// CensusProof is the inclusion proof of an address. Encoded is the value to
// attach to a vote.
type CensusProof struct {
	*census.Proof
	Encoded types.HexBytes `json:"encoded"`
}
