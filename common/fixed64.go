package common

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
)

const (
	// supported max amount precision is 8
	MaximumPrecision = 8
	StorageFactor    = 100000000
)

// Fixed64 is the 64 bit fixed-point amount type, precise to 10^-8. A
// transaction's value balance is a Fixed64 and may be negative (the
// transaction owes a subsidy); the aggregate over a block must not be.
type Fixed64 int64

func (f Fixed64) GetData() int64 {
	return int64(f)
}

func (f Fixed64) IsNegative() bool {
	return f < 0
}

func (f *Fixed64) Serialize(w io.Writer) error {
	return WriteInt64(w, int64(*f))
}

func (f *Fixed64) Deserialize(r io.Reader) error {
	var x int64
	if err := ReadInt64(r, &x); err != nil {
		return err
	}
	*f = Fixed64(x)
	return nil
}

func (f Fixed64) String() string {
	var buffer bytes.Buffer
	value := uint64(f)
	if f < 0 {
		buffer.WriteRune('-')
		value = uint64(-f)
	}
	buffer.WriteString(strconv.FormatUint(value/StorageFactor, 10))
	value %= StorageFactor
	if value > 0 {
		buffer.WriteRune('.')
		s := strconv.FormatUint(value, 10)
		for i := len(s); i < MaximumPrecision; i++ {
			buffer.WriteRune('0')
		}
		buffer.WriteString(s)
	}
	return buffer.String()
}

func StringToFixed64(s string) (Fixed64, error) {
	var buffer bytes.Buffer

	di := strings.Index(s, ".")
	if di == -1 {
		buffer.WriteString(s)
		for i := 0; i < MaximumPrecision; i++ {
			buffer.WriteByte('0')
		}
	} else {
		precision := len(s) - di - 1
		if precision > MaximumPrecision {
			return Fixed64(0), errors.New("unsupported precision")
		}
		buffer.WriteString(s[:di])
		buffer.WriteString(s[di+1:])
		for i := 0; i < MaximumPrecision-precision; i++ {
			buffer.WriteByte('0')
		}
	}
	r, err := strconv.ParseInt(buffer.String(), 10, 64)
	if err != nil {
		return Fixed64(0), err
	}

	return Fixed64(r), nil
}
