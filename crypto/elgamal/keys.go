package elgamal

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/vocdoni/sealedvote/types"
)

// committeeKeys is the stored form of a committee. Only the aggregated
// share of every member is kept, the dealing transcript is not.
type committeeKeys struct {
	Threshold  int            `cbor:"0,keyasint"`
	Shares     map[int][]byte `cbor:"1,keyasint"`
	PublicKey  []byte         `cbor:"2,keyasint"`
	MaxMessage uint64         `cbor:"3,keyasint"`
}

// EncryptionKey returns the compressed committee public key.
func (c *Committee) EncryptionKey() []byte {
	return c.PublicKey.Marshal()
}

// MarshalKeys encodes the key shares of the committee.
func (c *Committee) MarshalKeys() ([]byte, error) {
	k := committeeKeys{
		Threshold:  c.Threshold,
		Shares:     make(map[int][]byte, len(c.Participants)),
		PublicKey:  c.PublicKey.Marshal(),
		MaxMessage: c.MaxMessage,
	}
	for id, p := range c.Participants {
		k.Shares[id] = p.PrivateShare.Bytes()
	}
	return cbor.Marshal(k)
}

// LoadCommittee restores a committee encoded by MarshalKeys. It fails if
// the shares of the decryption quorum do not interpolate to the public key.
func LoadCommittee(data []byte) (*Committee, error) {
	var k committeeKeys
	if err := cbor.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("decode committee keys: %w", err)
	}
	if k.Threshold < 1 || len(k.Shares) < k.Threshold {
		return nil, fmt.Errorf("committee keys hold %d shares for threshold %d", len(k.Shares), k.Threshold)
	}
	pk := new(G1)
	if err := pk.Unmarshal(k.PublicKey); err != nil {
		return nil, fmt.Errorf("committee public key: %w", err)
	}
	ids := make([]int, 0, len(k.Shares))
	for id := range k.Shares {
		if id < 1 {
			return nil, fmt.Errorf("invalid committee member %d", id)
		}
		ids = append(ids, id)
	}
	c := &Committee{
		Threshold:    k.Threshold,
		Participants: make(map[int]*Participant, len(k.Shares)),
		PublicKey:    pk,
		MaxMessage:   k.MaxMessage,
	}
	if c.MaxMessage == 0 {
		c.MaxMessage = DefaultMaxMessage
	}
	for id, share := range k.Shares {
		p := NewParticipant(id, k.Threshold, ids)
		p.PrivateShare.SetBytes(share)
		p.PublicKey = pk
		c.Participants[id] = p
	}
	quorum := c.quorum()
	lambdas, err := lagrangeCoefficients(quorum)
	if err != nil {
		return nil, err
	}
	secret := new(big.Int)
	for _, id := range quorum {
		secret.Add(secret, new(big.Int).Mul(lambdas[id], c.Participants[id].PrivateShare))
		secret.Mod(secret, Order)
	}
	if !new(G1).ScalarBaseMult(secret).Equal(pk) {
		return nil, fmt.Errorf("committee shares do not match the public key")
	}
	return c, nil
}

// EncryptVector encrypts one message per option under publicKey, the
// compressed key returned by Committee.EncryptionKey.
func EncryptVector(publicKey []byte, msgs []uint64) (types.CipherVector, error) {
	pk := new(G1)
	if err := pk.Unmarshal(publicKey); err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	return encryptVector(pk, msgs)
}

func encryptVector(pk *G1, msgs []uint64) (types.CipherVector, error) {
	v := make(types.CipherVector, len(msgs))
	for i, m := range msgs {
		z, err := Encrypt(pk, new(big.Int).SetUint64(m))
		if err != nil {
			return nil, err
		}
		v[i] = z.Marshal()
	}
	return v, nil
}
