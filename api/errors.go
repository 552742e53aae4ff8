package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vocdoni/sealedvote/log"
)

// Error is the error response of a handler: a stable numeric code, the HTTP
// status and the wrapped cause.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// errorBody is the JSON form of Error, e.g. {"error":"proposal not found","code":40007}.
type errorBody struct {
	Err  string `json:"error"`
	Code int    `json:"code"`
}

// MarshalJSON encodes the message and the code. The HTTP status is left out.
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(errorBody{Err: e.Err.Error(), Code: e.Code})
}

func (e Error) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the cause to errors.Is.
func (e Error) Unwrap() error {
	return e.Err
}

// Write sends e as the JSON response.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warn(err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	if log.Level() == log.LogLevelDebug {
		log.Debugw("API error response", "error", e.Error(), "code", e.Code, "httpStatus", e.HTTPstatus)
	}
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, string(msg), e.HTTPstatus)
}

func (e Error) wrap(detail string) Error {
	return Error{
		Err:        fmt.Errorf("%w: %s", e.Err, detail),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// Withf returns a copy of e with the formatted detail appended.
func (e Error) Withf(format string, args ...any) Error {
	return e.wrap(fmt.Sprintf(format, args...))
}

// With returns a copy of e with s appended.
func (e Error) With(s string) Error {
	return e.wrap(s)
}

// WithErr returns a copy of e with the message of err appended.
func (e Error) WithErr(err error) Error {
	return e.wrap(err.Error())
}
