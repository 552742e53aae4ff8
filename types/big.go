package types

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// BigInt is a big.Int wrapper which marshals JSON to a string representation
// of the big number. It also marshals CBOR as a decimal string, so stored
// artifacts do not depend on the big.Int internal layout.
type BigInt big.Int

// NewInt returns a BigInt set to x.
func NewInt(x int64) *BigInt {
	return (*BigInt)(big.NewInt(x))
}

func (i *BigInt) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *BigInt) UnmarshalText(data []byte) error {
	if i == nil {
		return fmt.Errorf("cannot unmarshal into nil BigInt")
	}
	if _, ok := i.MathBigInt().SetString(string(data), 0); !ok {
		return fmt.Errorf("wrong format for bigInt: %q", data)
	}
	return nil
}

// MarshalCBOR implements cbor.Marshaler.
func (i *BigInt) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(i.String())
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (i *BigInt) UnmarshalCBOR(data []byte) error {
	var s string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return err
	}
	return i.UnmarshalText([]byte(s))
}

func (i *BigInt) String() string {
	if i == nil {
		return "0"
	}
	return (*big.Int)(i).String()
}

// MathBigInt converts i to a *big.Int sharing the same memory.
func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}

// SetUint64 sets the value of x to the big number
func (i *BigInt) SetUint64(x uint64) *BigInt {
	i.MathBigInt().SetUint64(x)
	return i
}

// SetBigInt sets the value of i to x.
func (i *BigInt) SetBigInt(x *big.Int) *BigInt {
	i.MathBigInt().Set(x)
	return i
}

// Add sets i to the sum x+y and returns i.
func (i *BigInt) Add(x, y *BigInt) *BigInt {
	i.MathBigInt().Add(x.MathBigInt(), y.MathBigInt())
	return i
}

// Uint64 returns the uint64 representation of i.
func (i *BigInt) Uint64() uint64 {
	return i.MathBigInt().Uint64()
}

// Equal reports whether i and j hold the same value.
func (i *BigInt) Equal(j *BigInt) bool {
	if i == nil || j == nil {
		return i == j
	}
	return i.MathBigInt().Cmp(j.MathBigInt()) == 0
}
