package types

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/sealedvote/util"
)

// ProposalIDLen is the size in bytes of a marshaled ProposalID.
const ProposalIDLen = 32

// ProposalID is the type to identify a proposal. It is composed of:
// - ChainID (4 bytes)
// - Creator address (20 bytes)
// - Nonce (8 bytes)
//
// The registry assigns a per-creator increasing nonce, which makes the
// identifier unique within a chain.
type ProposalID struct {
	ChainID uint32
	Creator common.Address
	Nonce   uint64
}

// Marshal encodes ProposalID to bytes.
func (p *ProposalID) Marshal() []byte {
	chainID := make([]byte, 4)
	binary.BigEndian.PutUint32(chainID, p.ChainID)

	nonce := make([]byte, 8)
	binary.BigEndian.PutUint64(nonce, p.Nonce)

	var id bytes.Buffer
	id.Write(chainID)
	id.Write(p.Creator.Bytes())
	id.Write(nonce)
	return id.Bytes()
}

// Unmarshal decodes bytes to ProposalID.
func (p *ProposalID) Unmarshal(data []byte) error {
	if len(data) != ProposalIDLen {
		return fmt.Errorf("invalid ProposalID length: %d", len(data))
	}
	p.ChainID = binary.BigEndian.Uint32(data[:4])
	p.Creator = common.BytesToAddress(data[4:24])
	p.Nonce = binary.BigEndian.Uint64(data[24:32])
	return nil
}

// SetBytes is like Unmarshal but panics on malformed input, returning the
// receiver for chaining.
func (p *ProposalID) SetBytes(data []byte) *ProposalID {
	if err := p.Unmarshal(data); err != nil {
		panic(err)
	}
	return p
}

// MarshalBinary implements the BinaryMarshaler interface
func (p ProposalID) MarshalBinary() ([]byte, error) {
	return p.Marshal(), nil
}

// UnmarshalBinary implements the BinaryUnmarshaler interface
func (p *ProposalID) UnmarshalBinary(data []byte) error {
	return p.Unmarshal(data)
}

// MarshalText implements the TextMarshaler interface, so ProposalID can be
// used as JSON value and map key.
func (p ProposalID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements the TextUnmarshaler interface.
func (p *ProposalID) UnmarshalText(text []byte) error {
	data, err := util.DecodeHex(string(text))
	if err != nil {
		return fmt.Errorf("invalid ProposalID hex: %w", err)
	}
	return p.Unmarshal(data)
}

// String returns a human readable representation of proposal ID
func (p ProposalID) String() string {
	return hex.EncodeToString(p.Marshal())
}

// ParseProposalID decodes a hex string (with or without 0x prefix) into a
// ProposalID.
func ParseProposalID(s string) (ProposalID, error) {
	var pid ProposalID
	if err := pid.UnmarshalText([]byte(s)); err != nil {
		return ProposalID{}, err
	}
	return pid, nil
}
