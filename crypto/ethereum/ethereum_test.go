package ethereum

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestSignKeysGeneration(t *testing.T) {
	c := qt.New(t)
	t.Parallel()

	s := NewSignKeys()
	c.Assert(s.Generate(), qt.IsNil)

	pub, priv := s.HexString()
	c.Assert(pub, qt.Not(qt.Equals), "")
	c.Assert(priv, qt.Not(qt.Equals), "")

	// Test key import
	imported := NewSignKeys()
	c.Assert(imported.AddHexKey(priv), qt.IsNil)

	importedPub, importedPriv := imported.HexString()
	c.Assert(importedPub, qt.Equals, pub)
	c.Assert(importedPriv, qt.Equals, priv)
}

func TestEthereumSigning(t *testing.T) {
	c := qt.New(t)
	t.Parallel()

	s := NewSignKeys()
	c.Assert(s.AddHexKey("0xfad9c8855b740a0b7ed4c221dbad0f33a83a49cad6b3fe8d5817ac83d38b6a19"), qt.IsNil)

	_, priv := s.HexString()
	c.Assert(priv, qt.Equals, "fad9c8855b740a0b7ed4c221dbad0f33a83a49cad6b3fe8d5817ac83d38b6a19")

	signature, err := s.SignEthereum([]byte("hello"))
	c.Assert(err, qt.IsNil)
	c.Assert(signature, qt.HasLen, SignatureLength)

	// legacy V values are accepted too
	legacy := append([]byte{}, signature...)
	legacy[64] += 27
	addr, err := AddrFromSignature([]byte("hello"), legacy)
	c.Assert(err, qt.IsNil)
	c.Assert(addr, qt.Equals, s.Address())

	// a different message recovers a different signer
	other, err := AddrFromSignature([]byte("hellO"), signature)
	c.Assert(err, qt.IsNil)
	c.Assert(other, qt.Not(qt.Equals), s.Address())

	_, err = AddrFromSignature([]byte("hello"), signature[:64])
	c.Assert(err, qt.ErrorMatches, "invalid signature length 64")

	_, err = NewSignKeys().SignEthereum([]byte("hello"))
	c.Assert(err, qt.ErrorMatches, "no private key available")
}

func TestAddressRecovery(t *testing.T) {
	c := qt.New(t)
	t.Parallel()

	testCases := []struct {
		name    string
		message []byte
	}{
		{
			name:    "simple message",
			message: []byte("hello vocdoni"),
		},
		{
			name:    "different message",
			message: []byte("bye-bye vocdoni"),
		},
	}

	// Generate keys
	s := NewSignKeys()
	c.Assert(s.Generate(), qt.IsNil)

	// Get address from public key
	expectedAddr, err := AddrFromPublicKey(s.PublicKey())
	c.Assert(err, qt.IsNil)
	c.Assert(expectedAddr.String(), qt.Equals, s.AddressString())

	// Test address recovery from signatures of different messages
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := qt.New(t)

			signature, err := s.SignEthereum(tc.message)
			c.Assert(err, qt.IsNil)

			recoveredAddr, err := AddrFromSignature(tc.message, signature)
			c.Assert(err, qt.IsNil)
			c.Assert(recoveredAddr, qt.Equals, expectedAddr)
		})
	}
}
