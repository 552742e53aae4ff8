package voting

import (
	"errors"
	"fmt"

	"github.com/vocdoni/sealedvote/crypto"
	"github.com/vocdoni/sealedvote/crypto/elgamal"
	"github.com/vocdoni/sealedvote/crypto/paillier"
	"github.com/vocdoni/sealedvote/crypto/plaintext"
	"github.com/vocdoni/sealedvote/log"
	"github.com/vocdoni/sealedvote/storage"
	"github.com/vocdoni/sealedvote/types"
)

// Supported crypto backends.
const (
	BackendPlaintext = "plaintext"
	BackendElGamal   = "elgamal"
	BackendPaillier  = "paillier"
)

// Capabilities are the cryptographic collaborators of the engine.
type Capabilities struct {
	Adder     crypto.HomomorphicAdder
	Decrypter crypto.ThresholdDecrypter
	Prover    crypto.OrderingProver
	Allowlist crypto.AllowlistVerifier
	// Key is the public key voters encrypt their ballots under.
	Key types.EncryptionKey
	// keys is nil for backends without key material.
	keys crypto.KeyHolder
}

// BackendConfig selects and sizes a crypto backend.
type BackendConfig struct {
	Name               string
	CommitteeSize      int
	CommitteeThreshold int
	PaillierKeySize    int
}

func committeeCapabilities(committee *elgamal.Committee) *Capabilities {
	return &Capabilities{
		Adder:     committee,
		Decrypter: committee,
		Prover:    committee,
		Key:       types.EncryptionKey{Backend: BackendElGamal, PublicKey: committee.EncryptionKey()},
		keys:      committee,
	}
}

func holderCapabilities(holder *paillier.Holder) *Capabilities {
	return &Capabilities{
		Adder:     holder,
		Decrypter: holder,
		Prover:    crypto.Ordering{Decrypter: holder},
		Key:       types.EncryptionKey{Backend: BackendPaillier, PublicKey: holder.EncryptionKey()},
		keys:      holder,
	}
}

// NewCapabilities builds the capabilities of the named backend with a
// fresh key. The allowlist verifier is left to the caller.
func NewCapabilities(conf BackendConfig) (*Capabilities, error) {
	switch conf.Name {
	case BackendPlaintext, "":
		log.Warn("using the plaintext crypto backend, ballots are not confidential")
		s := plaintext.Scheme{}
		return &Capabilities{
			Adder:     s,
			Decrypter: s,
			Prover:    s,
			Key:       types.EncryptionKey{Backend: BackendPlaintext},
		}, nil
	case BackendElGamal:
		committee, err := elgamal.NewCommittee(conf.CommitteeSize, conf.CommitteeThreshold)
		if err != nil {
			return nil, err
		}
		return committeeCapabilities(committee), nil
	case BackendPaillier:
		keySize := conf.PaillierKeySize
		if keySize <= 0 {
			keySize = paillier.DefaultKeySize
		}
		holder, err := paillier.NewHolder(keySize)
		if err != nil {
			return nil, err
		}
		return holderCapabilities(holder), nil
	default:
		return nil, fmt.Errorf("unknown crypto backend %q", conf.Name)
	}
}

// LoadCapabilities restores the backend key stored in stg. If there is
// none, a new key is generated and stored before returning, so ballots
// accepted by a previous run can still be decrypted.
func LoadCapabilities(stg *storage.Storage, conf BackendConfig) (*Capabilities, error) {
	material, err := stg.KeyMaterial(conf.Name)
	switch {
	case err == nil:
		caps, err := restoreCapabilities(conf.Name, material)
		if err != nil {
			return nil, fmt.Errorf("restore %s key: %w", conf.Name, err)
		}
		log.Infow("restored crypto backend key", "backend", conf.Name, "publicKey", caps.Key.PublicKey.String())
		return caps, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	caps, err := NewCapabilities(conf)
	if err != nil {
		return nil, err
	}
	if caps.keys == nil {
		return caps, nil
	}
	if material, err = caps.keys.MarshalKeys(); err != nil {
		return nil, fmt.Errorf("encode %s key: %w", conf.Name, err)
	}
	batch := stg.NewBatch()
	defer batch.Discard()
	if err := batch.SetKeyMaterial(conf.Name, material); err != nil {
		return nil, err
	}
	if err := batch.Commit(); err != nil {
		return nil, err
	}
	log.Infow("stored new crypto backend key", "backend", conf.Name, "publicKey", caps.Key.PublicKey.String())
	return caps, nil
}

func restoreCapabilities(name string, material []byte) (*Capabilities, error) {
	switch name {
	case BackendElGamal:
		committee, err := elgamal.LoadCommittee(material)
		if err != nil {
			return nil, err
		}
		return committeeCapabilities(committee), nil
	case BackendPaillier:
		holder, err := paillier.LoadHolder(material)
		if err != nil {
			return nil, err
		}
		return holderCapabilities(holder), nil
	default:
		return nil, fmt.Errorf("no key material expected for backend %q", name)
	}
}
