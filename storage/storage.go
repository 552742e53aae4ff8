// Package storage is the persistence transport of the voting core. It wraps a
// key-value database (last write wins per key) and stores CBOR encoded
// artifacts under the following prefixes:
//   - 'p/' for proposals
//   - 'n/' for per-creator proposal nonces
//   - 't/' for encrypted tallies
//   - 'ta/' for the per-nullifier tally arena
//   - 'b/' for valid ballots, keyed by proposal and nullifier
//   - 'ba/' for superseded ballots (audit trail)
//   - 'bi/' for the identity to nullifier index
//   - 'r/' for aggregated results
//   - 'd/' for delegations
//   - 'w/' for voter balances, keyed by snapshot
//   - 's/' for the per-proposal ballot sequence counter
//   - 'k/' for the key material of the crypto backend
//
// Every multi-artifact mutation goes through a Batch, which is committed as a
// single database transaction.
package storage

import (
	"errors"
	"fmt"

	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	proposalPrefix   = []byte("p/")
	noncePrefix      = []byte("n/")
	tallyPrefix      = []byte("t/")
	arenaPrefix      = []byte("ta/")
	ballotPrefix     = []byte("b/")
	auditPrefix      = []byte("ba/")
	identityPrefix   = []byte("bi/")
	resultPrefix     = []byte("r/")
	delegationPrefix = []byte("d/")
	balancePrefix    = []byte("w/")
	sequencePrefix   = []byte("s/")
	keyPrefix        = []byte("k/")
)

// ErrNotFound is returned when an artifact does not exist.
var ErrNotFound = fmt.Errorf("%w: artifact", types.ErrNotFound)

// Storage is the typed key-value store used by every component.
type Storage struct {
	db db.Database
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("failed to close storage", "error", err.Error())
	}
}

// unavailable wraps a database failure into ErrStorageUnavailable.
func unavailable(err error) error {
	return fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
}

// getArtifact decodes the artifact stored at prefix+key into out. It
// returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := rd.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return unavailable(err)
	}
	if err := decodeArtifact(data, out); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	return nil
}

// hasArtifact reports whether prefix+key exists.
func (s *Storage) hasArtifact(prefix, key []byte) (bool, error) {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	if _, err := rd.Get(key); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, nil
		}
		return false, unavailable(err)
	}
	return true, nil
}

// iterateArtifacts calls fn with every raw artifact under prefix+sub. The
// key passed to fn has prefix+sub stripped. Iteration stops when fn returns
// false.
func (s *Storage) iterateArtifacts(prefix, sub []byte, fn func(k, v []byte) bool) error {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	if err := rd.Iterate(sub, func(k, v []byte) bool {
		return fn(k, v)
	}); err != nil {
		return unavailable(err)
	}
	return nil
}

// listArtifacts returns the keys stored under prefix.
func (s *Storage) listArtifacts(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := s.iterateArtifacts(prefix, nil, func(k, _ []byte) bool {
		keys = append(keys, append([]byte(nil), k...))
		return true
	})
	return keys, err
}

// Batch stages artifact writes that are committed atomically. A Batch must
// be either committed or discarded.
type Batch struct {
	tx   db.WriteTx
	done bool
}

// NewBatch opens a new write batch.
func (s *Storage) NewBatch() *Batch {
	return &Batch{tx: s.db.WriteTx()}
}

func (b *Batch) set(prefix, key []byte, v any) error {
	val, err := encodeArtifact(v)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	wTx := prefixeddb.NewPrefixedWriteTx(b.tx, prefix)
	if err := wTx.Set(key, val); err != nil {
		return unavailable(err)
	}
	return nil
}

// Commit applies every staged write. The batch cannot be used afterwards.
func (b *Batch) Commit() error {
	if b.done {
		return fmt.Errorf("batch already closed")
	}
	b.done = true
	if err := b.tx.Commit(); err != nil {
		b.tx.Discard()
		return unavailable(err)
	}
	return nil
}

// Discard drops every staged write. It is a no-op after Commit, so it is
// safe to defer.
func (b *Batch) Discard() {
	if b.done {
		return
	}
	b.done = true
	b.tx.Discard()
}

// key concatenates its parts into a new slice.
func key(parts ...[]byte) []byte {
	var k []byte
	for _, p := range parts {
		k = append(k, p...)
	}
	return k
}
