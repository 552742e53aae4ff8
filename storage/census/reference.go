package census

import (
	"bytes"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/vocdoni/arbo"
	"github.com/vocdoni/sealedvote/types"
)

// CensusRef is a reference to an allowlist. It holds the Merkle tree whose
// leaves map an identity address to its weight.
type CensusRef struct {
	ID        uuid.UUID `cbor:"0,keyasint"`
	MaxLevels int       `cbor:"1,keyasint"`
	HashType  string    `cbor:"2,keyasint"`
	LastUsed  time.Time `cbor:"3,keyasint"`

	// treeMu protects the tree and currentRoot.
	treeMu       sync.Mutex
	tree         *arbo.Tree
	currentRoot  []byte
	onRootChange func(id uuid.UUID, oldRoot, newRoot []byte)
}

// Proof is the inclusion proof of an identity in an allowlist. Its CBOR
// encoding is what voters hand to the eligibility gate.
type Proof struct {
	Root     types.HexBytes `cbor:"0,keyasint" json:"root"`
	Key      types.HexBytes `cbor:"1,keyasint" json:"key"`
	Value    types.HexBytes `cbor:"2,keyasint" json:"value"`
	Siblings types.HexBytes `cbor:"3,keyasint" json:"siblings"`
	Weight   *types.BigInt  `cbor:"4,keyasint" json:"weight"`
}

// Marshal encodes the proof.
func (p *Proof) Marshal() ([]byte, error) {
	return cbor.Marshal(p)
}

// Unmarshal decodes a proof produced by Marshal.
func (p *Proof) Unmarshal(data []byte) error {
	return cbor.Unmarshal(data, p)
}

// Tree returns the underlying arbo.Tree pointer.
// (Not concurrency-safe; use Insert, Root, or GenProof.)
func (cr *CensusRef) Tree() *arbo.Tree {
	return cr.tree
}

// Insert adds identity with the given weight to the allowlist.
func (cr *CensusRef) Insert(identity common.Address, weight *big.Int) error {
	if weight == nil || weight.Sign() <= 0 {
		return fmt.Errorf("invalid weight %v", weight)
	}
	value := arbo.BigIntToBytes(defaultHashFunction.Len(), weight)
	cr.treeMu.Lock()
	if err := cr.tree.Add(identity.Bytes(), value); err != nil {
		cr.treeMu.Unlock()
		return err
	}
	return cr.refreshRoot()
}

// refreshRoot must be called holding treeMu, which it releases.
func (cr *CensusRef) refreshRoot() error {
	newRoot, err := cr.tree.Root()
	if err != nil {
		cr.treeMu.Unlock()
		return err
	}
	oldRoot := cr.currentRoot
	cr.currentRoot = newRoot
	cr.treeMu.Unlock()
	if cr.onRootChange != nil && !bytes.Equal(oldRoot, newRoot) {
		cr.onRootChange(cr.ID, oldRoot, newRoot)
	}
	return nil
}

// Root returns the current Merkle tree root.
func (cr *CensusRef) Root() []byte {
	cr.treeMu.Lock()
	defer cr.treeMu.Unlock()
	return bytes.Clone(cr.currentRoot)
}

// Size returns the number of leaves in the Merkle tree.
func (cr *CensusRef) Size() int {
	cr.treeMu.Lock()
	defer cr.treeMu.Unlock()
	size, err := cr.tree.GetNLeafs()
	if err != nil {
		return 0
	}
	return size
}

// GenProof generates the inclusion proof of identity. It returns
// ErrKeyNotFound when identity is not in the allowlist.
func (cr *CensusRef) GenProof(identity []byte) (*Proof, error) {
	cr.treeMu.Lock()
	defer cr.treeMu.Unlock()
	key, value, siblings, inclusion, err := cr.tree.GenProof(identity)
	if err != nil {
		return nil, err
	}
	if !inclusion {
		return nil, ErrKeyNotFound
	}
	return &Proof{
		Root:     bytes.Clone(cr.currentRoot),
		Key:      key,
		Value:    value,
		Siblings: siblings,
		Weight:   (*types.BigInt)(arbo.BytesToBigInt(value)),
	}, nil
}

// VerifyProof verifies a Merkle proof for the given leaf key.
func VerifyProof(key, value, root, siblings []byte) bool {
	valid, err := arbo.CheckProof(defaultHashFunction, key, value, root, siblings)
	if err != nil {
		return false
	}
	return valid
}
