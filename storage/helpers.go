package storage

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	encOpts := cbor.CoreDetEncOptions()
	// keep sub-second precision of timestamps, the core default truncates them
	encOpts.Time = cbor.TimeRFC3339Nano
	var err error
	if encMode, err = encOpts.EncMode(); err != nil {
		panic(fmt.Sprintf("cbor encoding mode: %v", err))
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(fmt.Sprintf("cbor decoding mode: %v", err))
	}
}

// Artifact encoding/decoding
func encodeArtifact(a any) ([]byte, error) {
	return encMode.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	return decMode.Unmarshal(data, out)
}
