package types

import "errors"

// Sentinel errors shared by every component. They are always wrapped with
// some context, so match them with errors.Is.
var (
	// ErrConfig is returned when proposal parameters are rejected at creation.
	ErrConfig = errors.New("invalid proposal configuration")
	// ErrInvalidState is returned when an operation is not valid for the
	// current status or time window.
	ErrInvalidState = errors.New("invalid state")
	// ErrPermission is returned when the actor is not authorized.
	ErrPermission = errors.New("permission denied")
	// ErrBadNullifier is returned when a nullifier does not match its
	// derivation.
	ErrBadNullifier = errors.New("bad nullifier")
	// ErrNotEligible is returned when the identity is not in the allowlist.
	ErrNotEligible = errors.New("identity not eligible")
	// ErrOverwriteDisabled is returned when a nullifier is reused and the
	// proposal does not allow overwrites.
	ErrOverwriteDisabled = errors.New("ballot overwrite disabled")
	// ErrVectorSize is returned for malformed ciphertext vectors.
	ErrVectorSize = errors.New("wrong vector size")
	// ErrStaleBallot is returned when an overwrite does not carry a counter
	// higher than the ballot it replaces.
	ErrStaleBallot = errors.New("stale ballot")
	// ErrTooEarly is returned when finalizing before end plus buffer.
	ErrTooEarly = errors.New("too early to finalize")
	// ErrAlreadyFinalized is returned when a result already exists.
	ErrAlreadyFinalized = errors.New("already finalized")
	// ErrAlreadyInitialized is returned when allocating a tally twice.
	ErrAlreadyInitialized = errors.New("tally already initialized")
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStorageUnavailable is returned when the persistence layer fails.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
