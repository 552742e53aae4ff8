// Package ethereum provides secp256k1 signing keys and the recovery of
// Ethereum addresses from signed messages. Addresses are the identities of
// the voting core.
package ethereum

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/sealedvote/util"
)

const (
	// SignatureLength is the size of a recoverable signature (R || S || V).
	SignatureLength = 65
	// PubKeyLengthBytes is the size of a compressed public key.
	PubKeyLengthBytes = 33
	// PubKeyLengthBytesUncompressed is the size of an uncompressed public key.
	PubKeyLengthBytesUncompressed = 65

	signingPrefix = "\x19Ethereum Signed Message:\n"
)

// SignKeys holds an ECDSA key pair.
type SignKeys struct {
	Public  ecdsa.PublicKey
	Private ecdsa.PrivateKey
}

// NewSignKeys returns an empty SignKeys.
func NewSignKeys() *SignKeys {
	return &SignKeys{}
}

// Generate creates a new random key pair.
func (k *SignKeys) Generate() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// AddHexKey imports a hex encoded private key.
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := ethcrypto.HexToECDSA(util.TrimHex(privHex))
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// HexString returns the compressed public key and the private key, both
// hex encoded.
func (k *SignKeys) HexString() (string, string) {
	pub := hex.EncodeToString(k.PublicKey())
	if k.Private.D == nil {
		return pub, ""
	}
	return pub, hex.EncodeToString(ethcrypto.FromECDSA(&k.Private))
}

// PublicKey returns the compressed public key.
func (k *SignKeys) PublicKey() []byte {
	if k.Public.X == nil {
		return nil
	}
	return ethcrypto.CompressPubkey(&k.Public)
}

// Address returns the Ethereum address of the key pair.
func (k *SignKeys) Address() common.Address {
	return ethcrypto.PubkeyToAddress(k.Public)
}

// AddressString returns the checksummed address.
func (k *SignKeys) AddressString() string {
	return k.Address().String()
}

// SignEthereum signs message with the Ethereum personal message prefix.
func (k *SignKeys) SignEthereum(message []byte) ([]byte, error) {
	if k.Private.D == nil {
		return nil, fmt.Errorf("no private key available")
	}
	signature, err := ethcrypto.Sign(HashMessage(message), &k.Private)
	if err != nil {
		return nil, err
	}
	return signature, nil
}

// HashMessage returns the keccak256 of the prefixed message.
func HashMessage(message []byte) []byte {
	return HashRaw(fmt.Appendf(nil, "%s%s%s", signingPrefix, strconv.Itoa(len(message)), message))
}

// HashRaw returns the keccak256 of data.
func HashRaw(data []byte) []byte {
	return ethcrypto.Keccak256(data)
}

// AddrFromPublicKey returns the address of a compressed or uncompressed
// public key.
func AddrFromPublicKey(pub []byte) (common.Address, error) {
	var (
		pubKey *ecdsa.PublicKey
		err    error
	)
	switch len(pub) {
	case PubKeyLengthBytes:
		pubKey, err = ethcrypto.DecompressPubkey(pub)
	case PubKeyLengthBytesUncompressed:
		pubKey, err = ethcrypto.UnmarshalPubkey(pub)
	default:
		return common.Address{}, fmt.Errorf("invalid public key length %d", len(pub))
	}
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pubKey), nil
}

// AddrFromSignature recovers the signer address of an Ethereum signed
// message. Both V=0/1 and V=27/28 signatures are accepted.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(signature))
	}
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pubKey, err := ethcrypto.SigToPub(HashMessage(message), sig)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pubKey), nil
}
