package api

import (
	"net/http"

	"github.com/vocdoni/sealedvote/types"
)

// newDelegation delegates the signer to another identity.
// POST /delegations
func (a *API) newDelegation(w http.ResponseWriter, r *http.Request) {
	req := &DelegationRequest{}
	from, ok := decodeSigned(w, r, req)
	if !ok {
		return
	}
	d, err := a.engine.Delegate(r.Context(), req.ProposalID, from, req.To)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, d)
}

// delegations lists the delegations of a proposal.
// GET /proposals/{proposalId}/delegations
func (a *API) delegations(w http.ResponseWriter, r *http.Request) {
	pid, ok := proposalIDParam(w, r)
	if !ok {
		return
	}
	list, err := a.engine.Delegations(pid)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []*types.Delegation{}
	}
	httpWriteJSON(w, &DelegationList{Delegations: list})
}

// setBalance loads balances into a snapshot. Only administrators can sign it.
// POST /balances
func (a *API) setBalance(w http.ResponseWriter, r *http.Request) {
	req := &BalancesRequest{}
	requester, ok := decodeSigned(w, r, req)
	if !ok {
		return
	}
	for _, b := range req.Balances {
		if err := a.engine.SetBalance(requester, req.Snapshot, b.Identity, b.Amount); err != nil {
			writeError(w, err)
			return
		}
	}
	httpWriteOK(w)
}

// balance returns the balance of an identity in a snapshot.
// GET /balances?snapshot=<ref>&identity=<address>
func (a *API) balance(w http.ResponseWriter, r *http.Request) {
	snapshot := r.URL.Query().Get(BalanceSnapshotQueryParam)
	identity, err := parseAddress(r.URL.Query().Get(BalanceIdentityQueryParam))
	if err != nil {
		ErrMalformedAddress.WithErr(err).Write(w)
		return
	}
	amount, err := a.engine.Balance(snapshot, identity)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, &BalanceResponse{Snapshot: snapshot, Identity: identity, Amount: amount})
}
