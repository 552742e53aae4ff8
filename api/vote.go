package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/sealedvote/types"
	"github.com/vocdoni/sealedvote/voting"
)

// newVote casts a ballot. The signer must be the voting identity.
// POST /votes
func (a *API) newVote(w http.ResponseWriter, r *http.Request) {
	vote := &voting.Vote{}
	signer, ok := decodeSigned(w, r, vote)
	if !ok {
		return
	}
	if signer != vote.Identity {
		ErrSignerMismatch.Withf("signer %s, identity %s", signer.Hex(), vote.Identity.Hex()).Write(w)
		return
	}
	outcome, err := a.engine.CastVote(r.Context(), vote)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, &VoteResponse{Outcome: outcome, Nullifier: vote.Nullifier})
}

// voter returns the ballot metadata of an identity.
// GET /proposals/{proposalId}/voters/{address}
func (a *API) voter(w http.ResponseWriter, r *http.Request) {
	pid, ok := proposalIDParam(w, r)
	if !ok {
		return
	}
	identity, err := parseAddress(chi.URLParam(r, AddressURLParam))
	if err != nil {
		ErrMalformedAddress.WithErr(err).Write(w)
		return
	}
	if _, err := a.engine.Proposal(pid); err != nil {
		writeError(w, err)
		return
	}
	history, err := a.engine.History(pid, identity)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			httpWriteJSON(w, &VoterResponse{Voted: false})
			return
		}
		writeError(w, err)
		return
	}
	meta, err := a.engine.BallotMeta(pid, identity)
	if err != nil {
		writeError(w, err)
		return
	}
	httpWriteJSON(w, &VoterResponse{Voted: true, Ballot: meta, History: history})
}

// encryptionKey returns the public key of the crypto backend. Voters
// encrypt every option of their ballot under it.
// GET /encryptionkey
func (a *API) encryptionKey(w http.ResponseWriter, r *http.Request) {
	key := a.engine.EncryptionKey()
	httpWriteJSON(w, &key)
}
