package common

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const UINT256SIZE = 32

// Uint256 is the 32-byte identifier used for block hashes, transaction IDs,
// transition IDs, serial numbers, commitments and ledger roots.
type Uint256 [UINT256SIZE]byte

var EmptyUint256 Uint256

func (u Uint256) CompareTo(o Uint256) int {
	for i := 0; i < UINT256SIZE; i++ {
		if u[i] > o[i] {
			return 1
		}
		if u[i] < o[i] {
			return -1
		}
	}
	return 0
}

func (u Uint256) ToArray() []byte {
	x := make([]byte, UINT256SIZE)
	copy(x, u[:])
	return x
}

func (u Uint256) ToHexString() string {
	return hex.EncodeToString(u[:])
}

func (u Uint256) Serialize(w io.Writer) error {
	_, err := w.Write(u[:])
	return err
}

func (u *Uint256) Deserialize(r io.Reader) error {
	_, err := io.ReadFull(r, u[:])
	return err
}

func (u Uint256) MarshalJSON() ([]byte, error) {
	return []byte("\"" + u.ToHexString() + "\""), nil
}

func (u *Uint256) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("Uint256 json value is not a string")
	}
	v, err := Uint256ParseFromHexString(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

func Uint256ParseFromBytes(f []byte) (Uint256, error) {
	if len(f) != UINT256SIZE {
		return EmptyUint256, fmt.Errorf("[Common]: Uint256ParseFromBytes err, len != %d", UINT256SIZE)
	}
	var hash Uint256
	copy(hash[:], f)
	return hash, nil
}

// Uint256ParseFromHexString decodes the canonical hex form. This is the
// strict decode applied to every externally supplied identifier.
func Uint256ParseFromHexString(s string) (Uint256, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return EmptyUint256, err
	}
	return Uint256ParseFromBytes(b)
}
