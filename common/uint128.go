package common

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"math/bits"
)

// Uint128 is an unsigned 128-bit integer. It backs the cumulative chain
// weight, which can exceed 64 bits over the lifetime of a chain.
type Uint128 struct {
	Lo uint64
	Hi uint64
}

var MaxUint128 = Uint128{Lo: ^uint64(0), Hi: ^uint64(0)}

func NewUint128(v uint64) Uint128 {
	return Uint128{Lo: v}
}

// SaturatingAddUint64 returns u + v, clamping at the maximum value instead
// of wrapping.
func (u Uint128) SaturatingAddUint64(v uint64) Uint128 {
	lo, carry := bits.Add64(u.Lo, v, 0)
	hi, overflow := bits.Add64(u.Hi, 0, carry)
	if overflow != 0 {
		return MaxUint128
	}
	return Uint128{Lo: lo, Hi: hi}
}

func (u Uint128) CompareTo(o Uint128) int {
	if u.Hi != o.Hi {
		if u.Hi > o.Hi {
			return 1
		}
		return -1
	}
	if u.Lo != o.Lo {
		if u.Lo > o.Lo {
			return 1
		}
		return -1
	}
	return 0
}

func (u Uint128) IsZero() bool {
	return u.Lo == 0 && u.Hi == 0
}

func (u Uint128) Big() *big.Int {
	b := new(big.Int).SetUint64(u.Hi)
	b.Lsh(b, 64)
	return b.Or(b, new(big.Int).SetUint64(u.Lo))
}

func (u Uint128) String() string {
	return u.Big().String()
}

func (u Uint128) Serialize(w io.Writer) error {
	return WriteUint64(w, u.Lo, u.Hi)
}

func (u *Uint128) Deserialize(r io.Reader) error {
	return ReadUint64(r, &u.Lo, &u.Hi)
}

// MarshalJSON emits the decimal string form. Values above 2^53 would lose
// precision as a JSON number.
func (u Uint128) MarshalJSON() ([]byte, error) {
	return []byte("\"" + u.String() + "\""), nil
}

func (u *Uint128) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("Uint128 json value is not a string")
	}
	b, ok := new(big.Int).SetString(string(data[1:len(data)-1]), 10)
	if !ok || b.Sign() < 0 || b.BitLen() > 128 {
		return fmt.Errorf("invalid Uint128 value %s", data)
	}
	u.Lo = b.Uint64()
	u.Hi = new(big.Int).Rsh(b, 64).Uint64()
	return nil
}
