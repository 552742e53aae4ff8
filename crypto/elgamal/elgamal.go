// Package elgamal implements exponential ElGamal over the BN254 G1 group. It
// provides the homomorphic addition and threshold decryption capabilities
// of the voting core, with a committee whose key is generated by a
// distributed key generation among its members.
package elgamal

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
)

// Ciphertext is an ElGamal ciphertext (C1, C2) = (k*G, m*G + k*PK).
type Ciphertext struct {
	C1 G1
	C2 G1
}

// CiphertextSize is the size in bytes of a serialized ciphertext.
const CiphertextSize = 2 * PointSize

// Add sets z to the ciphertext of the sum of x and y.
func (z *Ciphertext) Add(x, y *Ciphertext) *Ciphertext {
	z.C1.Add(&x.C1, &y.C1)
	z.C2.Add(&x.C2, &y.C2)
	return z
}

// Marshal returns C1 || C2 in compressed form.
func (z *Ciphertext) Marshal() []byte {
	return append(z.C1.Marshal(), z.C2.Marshal()...)
}

// Unmarshal decodes a ciphertext produced by Marshal.
func (z *Ciphertext) Unmarshal(data []byte) error {
	if len(data) != CiphertextSize {
		return fmt.Errorf("invalid ciphertext length: got %d bytes, expected %d bytes", len(data), CiphertextSize)
	}
	if err := z.C1.Unmarshal(data[:PointSize]); err != nil {
		return fmt.Errorf("invalid C1: %w", err)
	}
	if err := z.C2.Unmarshal(data[PointSize:]); err != nil {
		return fmt.Errorf("invalid C2: %w", err)
	}
	return nil
}

// RandK generates a random k value for encryption.
func RandK() (*big.Int, error) {
	k, err := rand.Int(rand.Reader, Order)
	if err != nil {
		return nil, fmt.Errorf("failed to generate random k: %w", err)
	}
	return k, nil
}

// Encrypt encrypts msg with the public key using a random k.
func Encrypt(publicKey *G1, msg *big.Int) (*Ciphertext, error) {
	k, err := RandK()
	if err != nil {
		return nil, err
	}
	return EncryptWithK(publicKey, msg, k), nil
}

// EncryptWithK encrypts msg with the public key and the provided k.
func EncryptWithK(publicKey *G1, msg, k *big.Int) *Ciphertext {
	m := new(big.Int).Mod(msg, Order)
	z := &Ciphertext{}
	// C1 = k * G
	z.C1.ScalarBaseMult(k)
	// C2 = m * G + k * PK
	s := new(G1).ScalarMult(publicKey, k)
	z.C2.ScalarBaseMult(m)
	z.C2.Add(&z.C2, s)
	return z
}

// GenerateKey generates a new public/private key pair.
func GenerateKey() (*G1, *big.Int, error) {
	d, err := rand.Int(rand.Reader, Order)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key scalar: %w", err)
	}
	if d.Sign() == 0 {
		d = big.NewInt(1)
	}
	return new(G1).ScalarBaseMult(d), d, nil
}

// Decrypt decrypts z with the private key. The message is recovered by
// solving the discrete logarithm in [0, maxMessage].
func Decrypt(privateKey *big.Int, z *Ciphertext, maxMessage uint64) (*big.Int, error) {
	s := new(G1).ScalarMult(&z.C1, privateKey)
	s.Neg(s)
	m := new(G1).Add(&z.C2, s)
	return BabyStepGiantStep(m, maxMessage)
}

// BabyStepGiantStep solves M = x*G for x in [0, maxMessage].
func BabyStepGiantStep(m *G1, maxMessage uint64) (*big.Int, error) {
	mSqrt := uint64(math.Sqrt(float64(maxMessage))) + 1
	g := new(G1).ScalarBaseMult(big.NewInt(1))

	// baby steps: j*G for j in [0, mSqrt)
	babySteps := make(map[string]uint64, mSqrt)
	babyStep := new(G1).SetZero()
	for j := uint64(0); j < mSqrt; j++ {
		babySteps[string(babyStep.Marshal())] = j
		babyStep.Add(babyStep, g)
	}

	// giant step c = -mSqrt*G
	c := new(G1).ScalarBaseMult(new(big.Int).SetUint64(mSqrt))
	c.Neg(c)

	giantStep := new(G1).Set(m)
	for i := uint64(0); i <= mSqrt; i++ {
		if j, found := babySteps[string(giantStep.Marshal())]; found {
			return new(big.Int).SetUint64(i*mSqrt + j), nil
		}
		giantStep.Add(giantStep, c)
	}
	return nil, fmt.Errorf("discrete logarithm not found below %d", maxMessage)
}
