package api

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/vocdoni/sealedvote/storage/census"
	"github.com/vocdoni/sealedvote/util"
)

// censusRef loads the census of the ?id= query. On failure the error
// response is already written.
func (a *API) censusRef(w http.ResponseWriter, r *http.Request) (*census.CensusRef, bool) {
	censusID, err := uuid.Parse(r.URL.Query().Get(CensusIDQueryParam))
	if err != nil {
		ErrInvalidCensusID.WithErr(err).Write(w)
		return nil, false
	}
	ref, err := a.census.Load(censusID)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return ref, true
}

// requireAdmin writes a permission error unless addr is an administrator.
func (a *API) requireAdmin(w http.ResponseWriter, addr common.Address) bool {
	if !a.engine.Registry().IsAdmin(addr) {
		ErrPermissionDenied.Withf("%s is not an administrator", addr.Hex()).Write(w)
		return false
	}
	return true
}

// newCensus creates an empty allowlist.
// POST /census
func (a *API) newCensus(w http.ResponseWriter, r *http.Request) {
	censusID := uuid.New()
	if _, err := a.census.New(censusID); err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &NewCensus{Census: censusID})
}

// addCensusParticipants adds addresses to an allowlist. The request must be
// signed by an administrator.
// POST /census/participants?id=<uuid>
func (a *API) addCensusParticipants(w http.ResponseWriter, r *http.Request) {
	ref, ok := a.censusRef(w, r)
	if !ok {
		return
	}
	participants := &CensusParticipants{}
	signer, ok := decodeSigned(w, r, participants)
	if !ok {
		return
	}
	if !a.requireAdmin(w, signer) {
		return
	}
	if len(participants.Participants) == 0 {
		ErrMalformedBody.WithErr(fmt.Errorf("no participants provided")).Write(w)
		return
	}
	for _, p := range participants.Participants {
		weight := big.NewInt(1)
		if p.Weight != nil {
			weight = p.Weight.MathBigInt()
		}
		if err := ref.Insert(p.Address, weight); err != nil {
			ErrMalformedBody.Withf("could not add %s: %v", p.Address.Hex(), err).Write(w)
			return
		}
	}
	httpWriteJSON(w, &CensusRoot{Root: ref.Root()})
}

// getCensusRoot returns the root of an allowlist.
// GET /census/root?id=<uuid>
func (a *API) getCensusRoot(w http.ResponseWriter, r *http.Request) {
	ref, ok := a.censusRef(w, r)
	if !ok {
		return
	}
	httpWriteJSON(w, &CensusRoot{Root: ref.Root()})
}

// getCensusSize returns the number of participants of an allowlist.
// GET /census/size?id=<uuid> or /census/size?root=<hex>
func (a *API) getCensusSize(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get(CensusIDQueryParam) != "" {
		ref, ok := a.censusRef(w, r)
		if !ok {
			return
		}
		httpWriteJSON(w, &CensusSize{Size: ref.Size()})
		return
	}
	root, err := util.DecodeHex(r.URL.Query().Get(CensusRootQueryParam))
	if err != nil || len(root) == 0 {
		ErrInvalidCensusID.Withf("missing census id or root").Write(w)
		return
	}
	size, err := a.census.SizeByRoot(root)
	if err != nil {
		ErrCensusNotFound.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &CensusSize{Size: size})
}

// deleteCensus removes an allowlist. The request must be signed by an
// administrator.
// DELETE /census?id=<uuid>
func (a *API) deleteCensus(w http.ResponseWriter, r *http.Request) {
	censusID, err := uuid.Parse(r.URL.Query().Get(CensusIDQueryParam))
	if err != nil {
		ErrInvalidCensusID.WithErr(err).Write(w)
		return
	}
	ref := &struct {
		Census uuid.UUID `json:"census"`
	}{}
	signer, ok := decodeSigned(w, r, ref)
	if !ok {
		return
	}
	if ref.Census != censusID {
		ErrSignerMismatch.Withf("signed census %s, requested %s", ref.Census, censusID).Write(w)
		return
	}
	if !a.requireAdmin(w, signer) {
		return
	}
	if !a.census.Exists(censusID) {
		ErrCensusNotFound.Withf("%s", censusID).Write(w)
		return
	}
	if err := a.census.Del(censusID); err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteOK(w)
}

// getCensusProof returns the inclusion proof of an address.
// GET /census/proof?root=<hex>&key=<address>
func (a *API) getCensusProof(w http.ResponseWriter, r *http.Request) {
	root, err := util.DecodeHex(r.URL.Query().Get(CensusRootQueryParam))
	if err != nil {
		ErrInvalidCensusID.WithErr(err).Write(w)
		return
	}
	identity, err := parseAddress(r.URL.Query().Get(CensusKeyQueryParam))
	if err != nil {
		ErrMalformedAddress.WithErr(err).Write(w)
		return
	}
	proof, err := a.census.ProofByRoot(root, identity.Bytes())
	if err != nil {
		if errors.Is(err, census.ErrKeyNotFound) {
			ErrNotEligible.WithErr(err).Write(w)
			return
		}
		ErrResourceNotFound.WithErr(err).Write(w)
		return
	}
	encoded, err := proof.Marshal()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &CensusProof{Proof: proof, Encoded: encoded})
}
