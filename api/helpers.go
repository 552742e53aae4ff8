package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/sealedvote/crypto/ethereum"
	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/types"
)

// maxBodySize limits the size of request bodies.
const maxBodySize = 1 << 20

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// decodeSigned decodes a SignedRequest body into payload and returns the
// signer address. On failure the error response is already written.
func decodeSigned(w http.ResponseWriter, r *http.Request, payload any) (common.Address, bool) {
	req := &SignedRequest{}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return common.Address{}, false
	}
	signer, err := ethereum.AddrFromSignature(req.Payload, req.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not extract address from signature: %v", err).Write(w)
		return common.Address{}, false
	}
	if err := json.Unmarshal(req.Payload, payload); err != nil {
		ErrMalformedBody.Withf("could not decode payload: %v", err).Write(w)
		return common.Address{}, false
	}
	return signer, true
}

// proposalIDParam reads the proposal ID from the URL. On failure the error
// response is already written.
func proposalIDParam(w http.ResponseWriter, r *http.Request) (types.ProposalID, bool) {
	pid, err := types.ParseProposalID(chi.URLParam(r, ProposalURLParam))
	if err != nil {
		ErrMalformedProposalID.WithErr(err).Write(w)
		return types.ProposalID{}, false
	}
	return pid, true
}

// parseAddress decodes a hex encoded address.
func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%q is not an address", s)
	}
	return common.HexToAddress(s), nil
}
