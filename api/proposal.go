package api

import (
	"errors"
	"net/http"

	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/registry"
	"github.com/vocdoni/sealedvote/types"
)

// newProposal creates a proposal whose creator is the signer.
// POST /proposals
func (a *API) newProposal(w http.ResponseWriter, r *http.Request) {
	setup := &registry.ProposalSetup{}
	creator, ok := decodeSigned(w, r, setup)
	if !ok {
		return
	}
	p, err := a.engine.CreateProposal(r.Context(), creator, setup)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Infow("new proposal", "proposalId", p.ID.String(), "creator", creator.Hex())
	httpWriteJSON(w, p)
}

// listProposals returns the identifiers of every proposal.
// GET /proposals
func (a *API) listProposals(w http.ResponseWriter, r *http.Request) {
	ids, err := a.engine.Proposals()
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []types.ProposalID{}
	}
	httpWriteJSON(w, &ProposalList{Proposals: ids})
}

// proposal returns a proposal.
// GET /proposals/{proposalId}
func (a *API) proposal(w http.ResponseWriter, r *http.Request) {
	pid, ok := proposalIDParam(w, r)
	if !ok {
		return
	}
	p, err := a.engine.Proposal(pid)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			ErrProposalNotFound.WithErr(err).Write(w)
			return
		}
		writeError(w, err)
		return
	}
	httpWriteJSON(w, p)
}

// cancelProposal cancels a proposal on behalf of the signer. The signed
// payload must name the proposal of the URL.
// POST /proposals/{proposalId}/cancel
func (a *API) cancelProposal(w http.ResponseWriter, r *http.Request) {
	pid, ok := proposalIDParam(w, r)
	if !ok {
		return
	}
	ref := &ProposalRef{}
	requester, ok := decodeSigned(w, r, ref)
	if !ok {
		return
	}
	if ref.ProposalID != pid {
		ErrSignerMismatch.Withf("signed proposal %s, requested %s", ref.ProposalID, pid).Write(w)
		return
	}
	p, err := a.engine.CancelProposal(r.Context(), pid, requester)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, p)
}

// finalizeProposal publishes the result of a proposal. Anyone can trigger it
// once the buffer window is over.
// POST /proposals/{proposalId}/finalize
func (a *API) finalizeProposal(w http.ResponseWriter, r *http.Request) {
	pid, ok := proposalIDParam(w, r)
	if !ok {
		return
	}
	res, err := a.engine.Finalize(r.Context(), pid)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, res)
}

// proposalResult returns the published result of a proposal.
// GET /proposals/{proposalId}/result
func (a *API) proposalResult(w http.ResponseWriter, r *http.Request) {
	pid, ok := proposalIDParam(w, r)
	if !ok {
		return
	}
	res, found, err := a.engine.Result(pid)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		ErrResultNotFound.Withf("proposal %s", pid).Write(w)
		return
	}
	httpWriteJSON(w, res)
}
