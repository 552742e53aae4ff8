package elgamal

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Order is the order of the BN254 G1 group.
var Order = fr.Modulus()

// PointSize is the size in bytes of a compressed point.
const PointSize = bn254.SizeOfG1AffineCompressed

// G1 is the affine representation of a G1 group element. The zero value is
// the point at infinity.
type G1 struct {
	inner bn254.G1Affine
}

// Add adds two G1 elements and stores the result in the receiver.
func (g *G1) Add(a, b *G1) *G1 {
	g.inner.Add(&a.inner, &b.inner)
	return g
}

// ScalarMult performs scalar multiplication of a G1 element.
func (g *G1) ScalarMult(a *G1, scalar *big.Int) *G1 {
	g.inner.ScalarMultiplication(&a.inner, scalar)
	return g
}

// ScalarBaseMult performs scalar multiplication of the generator point.
func (g *G1) ScalarBaseMult(scalar *big.Int) *G1 {
	g.inner.ScalarMultiplicationBase(scalar)
	return g
}

// Set copies a into the receiver.
func (g *G1) Set(a *G1) *G1 {
	g.inner.Set(&a.inner)
	return g
}

// Neg negates a G1 element.
func (g *G1) Neg(a *G1) *G1 {
	g.inner.Neg(&a.inner)
	return g
}

// SetZero sets the G1 element to the point at infinity.
func (g *G1) SetZero() *G1 {
	g.inner.X.SetZero()
	g.inner.Y.SetZero()
	return g
}

// Equal checks if two G1 elements are equal.
func (g *G1) Equal(a *G1) bool {
	return g.inner.Equal(&a.inner)
}

// Marshal serializes the G1 element into its compressed form.
func (g *G1) Marshal() []byte {
	b := g.inner.Bytes()
	return b[:]
}

// Unmarshal deserializes a compressed G1 element.
func (g *G1) Unmarshal(buf []byte) error {
	if len(buf) != PointSize {
		return fmt.Errorf("invalid point size %d", len(buf))
	}
	_, err := g.inner.SetBytes(buf)
	return err
}

func (g *G1) String() string {
	return fmt.Sprintf("%x", g.Marshal())
}
