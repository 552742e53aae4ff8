package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/vocdoni/sealedvote/util"
)

// HexBytes is a []byte which encodes as hexadecimal in json, as opposed to the
// base64 default.
type HexBytes []byte

func (b HexBytes) String() string {
	return hex.EncodeToString(b)
}

func (b HexBytes) MarshalJSON() ([]byte, error) {
	enc := make([]byte, hex.EncodedLen(len(b))+2)
	enc[0] = '"'
	hex.Encode(enc[1:], b)
	enc[len(enc)-1] = '"'
	return enc, nil
}

func (b *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid JSON string %q: %w", data, err)
	}
	decoded, err := util.DecodeHex(s)
	if err != nil {
		return fmt.Errorf("invalid hex string %q: %w", s, err)
	}
	*b = decoded
	return nil
}
