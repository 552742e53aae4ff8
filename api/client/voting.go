package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/vocdoni/sealedvote/api"
	"github.com/vocdoni/sealedvote/eligibility"
	"github.com/vocdoni/sealedvote/registry"
	"github.com/vocdoni/sealedvote/types"
	"github.com/vocdoni/sealedvote/voting"
)

// Error is an error response of the API.
type Error struct {
	Status  int
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %d (code %d: %s)", errCodeNot200, e.Status, e.Code, e.Message)
}

// call performs a request and decodes the JSON response into out, if not
// nil. Non 200 responses are returned as *Error.
func (c *HTTPclient) call(method string, body, out any, params []string, urlPath ...string) error {
	data, status, err := c.Request(method, body, params, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		apiErr := &Error{Status: status}
		if err := json.Unmarshal(data, apiErr); err != nil {
			apiErr.Message = string(data)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// Sign wraps payload into a request signed with the client keys.
func (c *HTTPclient) Sign(payload any) (*api.SignedRequest, error) {
	if c.keys == nil {
		return nil, fmt.Errorf("no signing keys configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	signature, err := c.keys.SignEthereum(data)
	if err != nil {
		return nil, err
	}
	return &api.SignedRequest{Payload: data, Signature: signature}, nil
}

func (c *HTTPclient) signedCall(method string, payload, out any, params []string, urlPath ...string) error {
	req, err := c.Sign(payload)
	if err != nil {
		return err
	}
	return c.call(method, req, out, params, urlPath...)
}

func proposalPath(pid types.ProposalID, sub ...string) []string {
	return append([]string{api.ProposalsEndpoint, pid.String()}, sub...)
}

// CreateProposal creates a proposal signed by the client keys.
func (c *HTTPclient) CreateProposal(setup *registry.ProposalSetup) (*types.Proposal, error) {
	p := &types.Proposal{}
	if err := c.signedCall(HTTPPOST, setup, p, nil, api.ProposalsEndpoint); err != nil {
		return nil, err
	}
	return p, nil
}

// EncryptionKey returns the key ballots must be encrypted under.
func (c *HTTPclient) EncryptionKey() (*types.EncryptionKey, error) {
	key := &types.EncryptionKey{}
	if err := c.call(HTTPGET, nil, key, nil, api.EncryptionKeyEndpoint); err != nil {
		return nil, err
	}
	return key, nil
}

// Proposals lists the proposal identifiers.
func (c *HTTPclient) Proposals() ([]types.ProposalID, error) {
	list := &api.ProposalList{}
	if err := c.call(HTTPGET, nil, list, nil, api.ProposalsEndpoint); err != nil {
		return nil, err
	}
	return list.Proposals, nil
}

// Proposal returns a proposal.
func (c *HTTPclient) Proposal(pid types.ProposalID) (*types.Proposal, error) {
	p := &types.Proposal{}
	if err := c.call(HTTPGET, nil, p, nil, proposalPath(pid)...); err != nil {
		return nil, err
	}
	return p, nil
}

// CancelProposal cancels a proposal on behalf of the client keys.
func (c *HTTPclient) CancelProposal(pid types.ProposalID) (*types.Proposal, error) {
	p := &types.Proposal{}
	if err := c.signedCall(HTTPPOST, &api.ProposalRef{ProposalID: pid}, p, nil, proposalPath(pid, "cancel")...); err != nil {
		return nil, err
	}
	return p, nil
}

// Vote casts a ballot with the identity of the client keys. proof is the
// encoded allowlist proof, if the proposal needs one. The counter is one
// above the current ballot of the identity, if any.
func (c *HTTPclient) Vote(pid types.ProposalID, cipher types.CipherVector, proof []byte) (*api.VoteResponse, error) {
	voter, err := c.Voter(pid, c.Address())
	if err != nil {
		return nil, err
	}
	var counter uint64
	if voter.Voted && voter.Ballot != nil {
		counter = voter.Ballot.Counter + 1
	}
	req, err := c.SignVote(pid, cipher, proof, counter)
	if err != nil {
		return nil, err
	}
	return c.SubmitVote(req)
}

// SignVote builds and signs a vote of the client identity without sending it.
func (c *HTTPclient) SignVote(pid types.ProposalID, cipher types.CipherVector, proof []byte, counter uint64) (*api.SignedRequest, error) {
	identity := c.Address()
	return c.Sign(&voting.Vote{
		ProposalID: pid,
		Identity:   identity,
		Nullifier:  eligibility.DeriveNullifier(pid, identity),
		Cipher:     cipher,
		Proof:      proof,
		Counter:    counter,
	})
}

// SubmitVote sends a signed vote.
func (c *HTTPclient) SubmitVote(req *api.SignedRequest) (*api.VoteResponse, error) {
	res := &api.VoteResponse{}
	if err := c.call(HTTPPOST, req, res, nil, api.VotesEndpoint); err != nil {
		return nil, err
	}
	return res, nil
}

// Voter returns the ballot metadata of identity.
func (c *HTTPclient) Voter(pid types.ProposalID, identity common.Address) (*api.VoterResponse, error) {
	res := &api.VoterResponse{}
	if err := c.call(HTTPGET, nil, res, nil, proposalPath(pid, "voters", identity.Hex())...); err != nil {
		return nil, err
	}
	return res, nil
}

// Finalize asks the server to publish the result of pid.
func (c *HTTPclient) Finalize(pid types.ProposalID) (*types.AggregatedResult, error) {
	res := &types.AggregatedResult{}
	if err := c.call(HTTPPOST, nil, res, nil, proposalPath(pid, "finalize")...); err != nil {
		return nil, err
	}
	return res, nil
}

// Result returns the published result of pid.
func (c *HTTPclient) Result(pid types.ProposalID) (*types.AggregatedResult, error) {
	res := &types.AggregatedResult{}
	if err := c.call(HTTPGET, nil, res, nil, proposalPath(pid, "result")...); err != nil {
		return nil, err
	}
	return res, nil
}

// Delegate delegates the client identity to to.
func (c *HTTPclient) Delegate(pid types.ProposalID, to common.Address) (*types.Delegation, error) {
	d := &types.Delegation{}
	req := &api.DelegationRequest{ProposalID: pid, To: to}
	if err := c.signedCall(HTTPPOST, req, d, nil, api.DelegationsEndpoint); err != nil {
		return nil, err
	}
	return d, nil
}

// Delegations lists the delegations of pid.
func (c *HTTPclient) Delegations(pid types.ProposalID) ([]*types.Delegation, error) {
	list := &api.DelegationList{}
	if err := c.call(HTTPGET, nil, list, nil, proposalPath(pid, "delegations")...); err != nil {
		return nil, err
	}
	return list.Delegations, nil
}

// SetBalances loads balances into a snapshot. The client keys must belong
// to an administrator.
func (c *HTTPclient) SetBalances(snapshot string, balances []api.BalanceEntry) error {
	return c.signedCall(HTTPPOST, &api.BalancesRequest{Snapshot: snapshot, Balances: balances}, nil, nil, api.BalancesEndpoint)
}

// NewCensus creates an empty allowlist.
func (c *HTTPclient) NewCensus() (uuid.UUID, error) {
	res := &api.NewCensus{}
	if err := c.call(HTTPPOST, nil, res, nil, api.NewCensusEndpoint); err != nil {
		return uuid.UUID{}, err
	}
	return res.Census, nil
}

// AddCensusParticipants adds participants to an allowlist and returns its
// new root. The client keys must belong to an administrator.
func (c *HTTPclient) AddCensusParticipants(id uuid.UUID, participants []*api.CensusParticipant) (types.HexBytes, error) {
	res := &api.CensusRoot{}
	params := []string{api.CensusIDQueryParam, id.String()}
	req := &api.CensusParticipants{Participants: participants}
	if err := c.signedCall(HTTPPOST, req, res, params, api.AddCensusParticipantsEndpoint); err != nil {
		return nil, err
	}
	return res.Root, nil
}

// CensusProof returns the allowlist proof of identity.
func (c *HTTPclient) CensusProof(root []byte, identity common.Address) (*api.CensusProof, error) {
	res := &api.CensusProof{}
	params := []string{api.CensusRootQueryParam, types.HexBytes(root).String(), api.CensusKeyQueryParam, identity.Hex()}
	if err := c.call(HTTPGET, nil, res, params, api.GetCensusProofEndpoint); err != nil {
		return nil, err
	}
	return res, nil
}
