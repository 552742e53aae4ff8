// Package paillier provides the additive capabilities over the Paillier
// cryptosystem. The decryption key is held by a single committee member.
package paillier

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/roasbeef/go-go-gadget-paillier"
	"github.com/vocdoni/sealedvote/crypto"
	"github.com/vocdoni/sealedvote/types"
)

// DefaultKeySize is the modulus size in bits used by NewHolder.
const DefaultKeySize = 2048

var (
	_ crypto.HomomorphicAdder   = (*Holder)(nil)
	_ crypto.ThresholdDecrypter = (*Holder)(nil)
	_ crypto.KeyHolder          = (*Holder)(nil)
)

// Holder owns a Paillier key pair.
type Holder struct {
	keySize    int
	privateKey *paillier.PrivateKey
	publicKey  *paillier.PublicKey
}

// NewHolder generates a key pair of keySize bits.
func NewHolder(keySize int) (*Holder, error) {
	privateKey, err := paillier.GenerateKey(rand.Reader, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Paillier key: %w", err)
	}
	return &Holder{
		keySize:    keySize,
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
	}, nil
}

// PublicKey returns the encryption key handed to voters.
func (h *Holder) PublicKey() *paillier.PublicKey {
	return h.publicKey
}

// Encrypt encrypts value with the holder public key.
func (h *Holder) Encrypt(value uint64) (types.Ciphertext, error) {
	return paillier.Encrypt(h.publicKey, new(big.Int).SetUint64(value).Bytes())
}

// EncryptVector encrypts one value per option.
func (h *Holder) EncryptVector(values ...uint64) (types.CipherVector, error) {
	v := make(types.CipherVector, len(values))
	for i := range values {
		c, err := h.Encrypt(values[i])
		if err != nil {
			return nil, err
		}
		v[i] = c
	}
	return v, nil
}

func (h *Holder) Zero(n int) (types.CipherVector, error) {
	return h.EncryptVector(make([]uint64, n)...)
}

func (h *Holder) Add(x, y types.Ciphertext) (types.Ciphertext, error) {
	if len(x) == 0 || len(y) == 0 {
		return nil, fmt.Errorf("ciphertext is empty")
	}
	return paillier.AddCipher(h.publicKey, x, y), nil
}

// ThresholdDecrypt decrypts the aggregate with the single key share. The
// proof reference binds the aggregate to the decrypted totals.
func (h *Holder) ThresholdDecrypt(ctx context.Context, agg *types.Aggregate) ([]*big.Int, []byte, error) {
	if agg == nil || len(agg.Vector) == 0 {
		return nil, nil, fmt.Errorf("%w: empty aggregate", types.ErrVectorSize)
	}
	totals := make([]*big.Int, len(agg.Vector))
	transcript := make([][]byte, 0, 2*len(agg.Vector))
	for i, c := range agg.Vector {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		plaintext, err := paillier.Decrypt(h.privateKey, c)
		if err != nil {
			return nil, nil, fmt.Errorf("option %d: decryption failed: %w", i, err)
		}
		totals[i] = new(big.Int).SetBytes(plaintext)
		transcript = append(transcript, c, totals[i].Bytes())
	}
	return totals, ethcrypto.Keccak256(transcript...), nil
}
