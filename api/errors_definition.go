//nolint:lll
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vocdoni/sealedvote/storage/census"
	"github.com/vocdoni/sealedvote/types"
)

// Error codes in the 40001-49999 range are caused by the client, codes in the
// 50001-59999 range by the server. Codes are never reused: append new ones
// after the last code of their range.
var (
	ErrResourceNotFound    = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody       = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrInvalidSignature    = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid signature")}
	ErrMalformedProposalID = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed proposal ID")}
	ErrProposalNotFound    = Error{Code: 40007, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("proposal not found")}
	ErrMalformedAddress    = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed address")}
	ErrSignerMismatch      = Error{Code: 40009, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("signer does not match the request")}
	ErrInvalidCensusID     = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid census ID")}
	ErrCensusNotFound      = Error{Code: 40011, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("census not found")}
	ErrInvalidProposal     = Error{Code: 40020, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid proposal configuration")}
	ErrInvalidState        = Error{Code: 40021, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("invalid proposal state")}
	ErrPermissionDenied    = Error{Code: 40022, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("permission denied")}
	ErrBadNullifier        = Error{Code: 40023, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("bad nullifier")}
	ErrNotEligible         = Error{Code: 40024, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("voter not eligible")}
	ErrOverwriteDisabled   = Error{Code: 40025, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("ballot overwrite disabled")}
	ErrVectorSize          = Error{Code: 40026, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("wrong ballot size")}
	ErrTooEarly            = Error{Code: 40027, HTTPstatus: http.StatusTooEarly, Err: fmt.Errorf("too early to finalize")}
	ErrAlreadyFinalized    = Error{Code: 40028, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("proposal already finalized")}
	ErrResultNotFound      = Error{Code: 40029, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("result not available")}
	ErrStaleBallot         = Error{Code: 40030, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("stale ballot counter")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrStorageUnavailable         = Error{Code: 50003, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("storage unavailable")}
)

var domainErrors = []struct {
	err error
	api Error
}{
	{types.ErrConfig, ErrInvalidProposal},
	{types.ErrInvalidState, ErrInvalidState},
	{types.ErrPermission, ErrPermissionDenied},
	{types.ErrBadNullifier, ErrBadNullifier},
	{types.ErrNotEligible, ErrNotEligible},
	{types.ErrOverwriteDisabled, ErrOverwriteDisabled},
	{types.ErrStaleBallot, ErrStaleBallot},
	{types.ErrVectorSize, ErrVectorSize},
	{types.ErrTooEarly, ErrTooEarly},
	{types.ErrAlreadyFinalized, ErrAlreadyFinalized},
	{types.ErrNotFound, ErrResourceNotFound},
	{types.ErrStorageUnavailable, ErrStorageUnavailable},
	{census.ErrCensusNotFound, ErrCensusNotFound},
}

// writeError writes the API error matching err.
func writeError(w http.ResponseWriter, err error) {
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			d.api.WithErr(err).Write(w)
			return
		}
	}
	ErrGenericInternalServerError.WithErr(err).Write(w)
}
