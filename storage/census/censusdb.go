// Package census keeps the eligibility allowlists of the voting core as
// arbo Merkle trees. An allowlist is identified by a UUID while it is being
// built and by its root once it is referenced from a proposal.
package census

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/vocdoni/arbo"
	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

const (
	censusDBprefix          = "cs_"
	censusDBreferencePrefix = "cr_"
)

var (
	// ErrCensusNotFound is returned when a census is not found in the database.
	ErrCensusNotFound = fmt.Errorf("census not found in the local database")
	// ErrCensusAlreadyExists is returned by New() if the census already exists.
	ErrCensusAlreadyExists = fmt.Errorf("census already exists in the local database")
	// ErrKeyNotFound is returned when a key is not found in the Merkle tree.
	ErrKeyNotFound = fmt.Errorf("key not found")

	defaultHashFunction = arbo.HashFunctionMiMC_BLS12_377
)

// rootKey converts a root to its canonical hexadecimal string.
func rootKey(root []byte) string {
	return hex.EncodeToString(root)
}

// CensusDB is a persistent database of allowlist trees. It maintains an
// in-memory index from tree roots to census IDs.
type CensusDB struct {
	mu           sync.RWMutex
	db           db.Database
	loadedCensus map[uuid.UUID]*CensusRef
	rootIndex    map[string]uuid.UUID
}

// NewCensusDB creates a new CensusDB object and indexes the roots of the
// census references already stored.
func NewCensusDB(database db.Database) (*CensusDB, error) {
	c := &CensusDB{
		db:           database,
		loadedCensus: make(map[uuid.UUID]*CensusRef),
		rootIndex:    make(map[string]uuid.UUID),
	}
	var ids []uuid.UUID
	if err := prefixeddb.NewPrefixedReader(database, []byte(censusDBreferencePrefix)).Iterate(nil,
		func(k, _ []byte) bool {
			id, err := uuid.FromBytes(k)
			if err != nil {
				log.Warnw("invalid census reference key", "key", hex.EncodeToString(k))
				return true
			}
			ids = append(ids, id)
			return true
		}); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, err := c.Load(id); err != nil {
			return nil, fmt.Errorf("could not load census %s: %w", id, err)
		}
	}
	return c, nil
}

// New creates a new census and adds it to the database.
func (c *CensusDB) New(censusID uuid.UUID) (*CensusRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.loadedCensus[censusID]; exists {
		return nil, ErrCensusAlreadyExists
	}
	if _, err := c.db.Get(referenceKey(censusID)); err == nil {
		return nil, ErrCensusAlreadyExists
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return nil, err
	}

	ref := &CensusRef{
		ID:        censusID,
		MaxLevels: types.CensusTreeMaxLevels,
		HashType:  string(defaultHashFunction.Type()),
		LastUsed:  time.Now(),
	}
	if err := c.openTree(ref); err != nil {
		return nil, err
	}
	if err := c.writeReference(ref); err != nil {
		return nil, err
	}
	c.loadedCensus[censusID] = ref
	c.indexRoot(ref)
	return ref, nil
}

// openTree opens the Merkle tree of ref and records its current root.
func (c *CensusDB) openTree(ref *CensusRef) error {
	tree, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(c.db, censusPrefix(ref.ID)),
		MaxLevels:    ref.MaxLevels,
		HashFunction: defaultHashFunction,
	})
	if err != nil {
		return err
	}
	root, err := tree.Root()
	if err != nil {
		return err
	}
	ref.tree = tree
	ref.currentRoot = root
	ref.onRootChange = c.updateRoot
	return nil
}

// indexRoot adds the current root of ref to the index. The first census
// holding a root keeps it.
func (c *CensusDB) indexRoot(ref *CensusRef) {
	rk := rootKey(ref.currentRoot)
	if _, exists := c.rootIndex[rk]; !exists {
		c.rootIndex[rk] = ref.ID
	}
}

// writeReference writes a census reference to the database.
func (c *CensusDB) writeReference(ref *CensusRef) error {
	data, err := cbor.Marshal(ref)
	if err != nil {
		return err
	}
	wtx := c.db.WriteTx()
	defer wtx.Discard()
	if err := wtx.Set(referenceKey(ref.ID), data); err != nil {
		return err
	}
	return wtx.Commit()
}

// Exists returns true if the censusID exists in the local database.
func (c *CensusDB) Exists(censusID uuid.UUID) bool {
	c.mu.RLock()
	_, exists := c.loadedCensus[censusID]
	c.mu.RUnlock()
	if exists {
		return true
	}
	_, err := c.db.Get(referenceKey(censusID))
	return err == nil
}

// Load returns a census from memory or from the persistent database.
func (c *CensusDB) Load(censusID uuid.UUID) (*CensusRef, error) {
	c.mu.RLock()
	if ref, exists := c.loadedCensus[censusID]; exists {
		c.mu.RUnlock()
		return ref, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if ref, exists := c.loadedCensus[censusID]; exists {
		return ref, nil
	}

	b, err := c.db.Get(referenceKey(censusID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCensusNotFound, censusID)
		}
		return nil, err
	}
	ref := &CensusRef{}
	if err := cbor.Unmarshal(b, ref); err != nil {
		return nil, err
	}
	if err := c.openTree(ref); err != nil {
		return nil, err
	}
	ref.LastUsed = time.Now()
	if err := c.writeReference(ref); err != nil {
		return nil, err
	}
	c.loadedCensus[censusID] = ref
	c.indexRoot(ref)
	return ref, nil
}

// Del removes a census reference and its tree.
func (c *CensusDB) Del(censusID uuid.UUID) error {
	wtx := c.db.WriteTx()
	if err := wtx.Delete(referenceKey(censusID)); err != nil {
		wtx.Discard()
		return err
	}
	if err := wtx.Commit(); err != nil {
		return err
	}

	c.mu.Lock()
	if ref, exists := c.loadedCensus[censusID]; exists {
		if c.rootIndex[rootKey(ref.currentRoot)] == censusID {
			delete(c.rootIndex, rootKey(ref.currentRoot))
		}
		delete(c.loadedCensus, censusID)
	}
	c.mu.Unlock()

	n, err := deleteCensusTreeFromDatabase(c.db, censusPrefix(censusID))
	if err != nil {
		return err
	}
	log.Debugw("census deleted", "id", censusID.String(), "keys", n)
	return nil
}

// deleteCensusTreeFromDatabase removes all keys belonging to a census tree.
func deleteCensusTreeFromDatabase(kv db.Database, prefix []byte) (int, error) {
	database := prefixeddb.NewPrefixedDatabase(kv, prefix)
	wtx := database.WriteTx()
	defer wtx.Discard()
	count := 0
	err := database.Iterate(nil, func(k, _ []byte) bool {
		if err := wtx.Delete(k); err != nil {
			log.Warnw("could not remove key from database", "key", hex.EncodeToString(k))
		} else {
			count++
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	return count, wtx.Commit()
}

// ProofByRoot finds a census by its root and generates the inclusion proof
// of identity.
func (c *CensusDB) ProofByRoot(root []byte, identity []byte) (*Proof, error) {
	c.mu.RLock()
	censusID, exists := c.rootIndex[rootKey(root)]
	c.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("no census found with the provided root")
	}
	ref, err := c.Load(censusID)
	if err != nil {
		return nil, err
	}
	return ref.GenProof(identity)
}

// SizeByRoot returns the number of leaves of the census with the given root.
func (c *CensusDB) SizeByRoot(root []byte) (int, error) {
	c.mu.RLock()
	censusID, exists := c.rootIndex[rootKey(root)]
	c.mu.RUnlock()
	if !exists {
		return 0, fmt.Errorf("no census found with the provided root")
	}
	ref, err := c.Load(censusID)
	if err != nil {
		return 0, err
	}
	return ref.Size(), nil
}

// updateRoot moves the index entry of a census to its new root.
func (c *CensusDB) updateRoot(censusID uuid.UUID, oldRoot, newRoot []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rootIndex[rootKey(oldRoot)] == censusID {
		delete(c.rootIndex, rootKey(oldRoot))
	}
	c.rootIndex[rootKey(newRoot)] = censusID
}

func referenceKey(censusID uuid.UUID) []byte {
	return append([]byte(censusDBreferencePrefix), censusID[:]...)
}

// censusPrefix returns the prefix used for the census tree in the database.
func censusPrefix(censusID uuid.UUID) []byte {
	return append([]byte(censusDBprefix), censusID[:]...)
}
