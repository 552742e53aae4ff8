package paillier

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/roasbeef/go-go-gadget-paillier"
	"github.com/vocdoni/sealedvote/types"
)

// holderKeys is the stored form of a Paillier private key. The rest of the
// key is derived from the modulus.
type holderKeys struct {
	N []byte `cbor:"0,keyasint"`
	L []byte `cbor:"1,keyasint"`
	U []byte `cbor:"2,keyasint"`
}

// EncryptionKey returns the public modulus.
func (h *Holder) EncryptionKey() []byte {
	return h.publicKey.N.Bytes()
}

// MarshalKeys encodes the private key of the holder.
func (h *Holder) MarshalKeys() ([]byte, error) {
	return cbor.Marshal(holderKeys{
		N: h.privateKey.N.Bytes(),
		L: h.privateKey.L.Bytes(),
		U: h.privateKey.U.Bytes(),
	})
}

// LoadHolder restores a holder encoded by MarshalKeys.
func LoadHolder(data []byte) (*Holder, error) {
	var k holderKeys
	if err := cbor.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("decode paillier keys: %w", err)
	}
	if len(k.N) == 0 || len(k.L) == 0 || len(k.U) == 0 {
		return nil, fmt.Errorf("incomplete paillier keys")
	}
	privateKey := &paillier.PrivateKey{
		PublicKey: *publicKey(k.N),
		L:         new(big.Int).SetBytes(k.L),
		U:         new(big.Int).SetBytes(k.U),
	}
	return &Holder{
		keySize:    privateKey.N.BitLen(),
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
	}, nil
}

// publicKey rebuilds the public key of modulus n, with g = n+1.
func publicKey(n []byte) *paillier.PublicKey {
	mod := new(big.Int).SetBytes(n)
	return &paillier.PublicKey{
		N:        mod,
		G:        new(big.Int).Add(mod, big.NewInt(1)),
		NSquared: new(big.Int).Mul(mod, mod),
	}
}

// EncryptVector encrypts one value per option under the modulus returned
// by Holder.EncryptionKey.
func EncryptVector(modulus []byte, values []uint64) (types.CipherVector, error) {
	if len(modulus) == 0 {
		return nil, fmt.Errorf("empty encryption key")
	}
	pk := publicKey(modulus)
	v := make(types.CipherVector, len(values))
	for i := range values {
		c, err := paillier.Encrypt(pk, new(big.Int).SetUint64(values[i]).Bytes())
		if err != nil {
			return nil, err
		}
		v[i] = c
	}
	return v, nil
}
