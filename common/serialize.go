package common

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Canonical wire encoding helpers. All integers are little endian and all
// variable-length byte fields carry a uint32 length prefix, so a structure
// serialized here round-trips byte for byte through hex.

const maxVarBytesLen = 8 * 1024 * 1024

func WriteUint32(w io.Writer, vals ...uint32) error {
	for _, v := range vals {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func ReadUint32(r io.Reader, vals ...*uint32) error {
	for _, v := range vals {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func WriteUint64(w io.Writer, vals ...uint64) error {
	for _, v := range vals {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func ReadUint64(r io.Reader, vals ...*uint64) error {
	for _, v := range vals {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func WriteInt64(w io.Writer, v int64) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func ReadInt64(r io.Reader, v *int64) error {
	return binary.Read(r, binary.LittleEndian, v)
}

func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteUint32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func ReadVarBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := ReadUint32(r, &n); err != nil {
		return nil, err
	}
	if n > maxVarBytesLen {
		return nil, fmt.Errorf("var bytes length %d exceeds limit", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func WriteUint256List(w io.Writer, list []Uint256) error {
	if err := WriteUint32(w, uint32(len(list))); err != nil {
		return err
	}
	for i := range list {
		if err := list[i].Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func ReadUint256List(r io.Reader) ([]Uint256, error) {
	var n uint32
	if err := ReadUint32(r, &n); err != nil {
		return nil, err
	}
	if n > maxVarBytesLen/UINT256SIZE {
		return nil, fmt.Errorf("list length %d exceeds limit", n)
	}
	list := make([]Uint256, n)
	for i := range list {
		if err := list[i].Deserialize(r); err != nil {
			return nil, err
		}
	}
	return list, nil
}
