// Package util holds small helpers shared by the API and the types.
package util

import "encoding/hex"

// TrimHex trims the '0x' prefix from a hex string.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// DecodeHex decodes a hex string with or without the '0x' prefix.
func DecodeHex(s string) ([]byte, error) {
	return hex.DecodeString(TrimHex(s))
}
