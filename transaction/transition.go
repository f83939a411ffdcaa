package transaction

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"

	"github.com/hashpool/snarkOS-1/common"
	"golang.org/x/crypto/blake2b"
)

// Transition is one state transition inside a transaction: the record
// serial numbers it consumes, the output commitments it creates, its net
// value balance, and the ciphertexts of the new records.
type Transition struct {
	SerialNumbers []common.Uint256
	Commitments   []common.Uint256
	ValueBalance  common.Fixed64
	Ciphertexts   [][]byte
}

// ID is derived from the transition contents.
func (t *Transition) ID() common.Uint256 {
	b := new(bytes.Buffer)
	t.Serialize(b)
	return common.Uint256(blake2b.Sum256(b.Bytes()))
}

func (t *Transition) Serialize(w io.Writer) error {
	if err := common.WriteUint256List(w, t.SerialNumbers); err != nil {
		return err
	}
	if err := common.WriteUint256List(w, t.Commitments); err != nil {
		return err
	}
	if err := t.ValueBalance.Serialize(w); err != nil {
		return err
	}
	if err := common.WriteUint32(w, uint32(len(t.Ciphertexts))); err != nil {
		return err
	}
	for _, ct := range t.Ciphertexts {
		if err := common.WriteVarBytes(w, ct); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transition) Deserialize(r io.Reader) error {
	var err error
	if t.SerialNumbers, err = common.ReadUint256List(r); err != nil {
		return err
	}
	if t.Commitments, err = common.ReadUint256List(r); err != nil {
		return err
	}
	if err = t.ValueBalance.Deserialize(r); err != nil {
		return err
	}
	var n uint32
	if err = common.ReadUint32(r, &n); err != nil {
		return err
	}
	t.Ciphertexts = make([][]byte, n)
	for i := range t.Ciphertexts {
		if t.Ciphertexts[i], err = common.ReadVarBytes(r); err != nil {
			return err
		}
	}
	return nil
}

type transitionDetail struct {
	ID            common.Uint256   `json:"id"`
	SerialNumbers []common.Uint256 `json:"serial_numbers"`
	Commitments   []common.Uint256 `json:"commitments"`
	ValueBalance  int64            `json:"value_balance"`
	Ciphertexts   []string         `json:"ciphertexts"`
}

// GetInfo returns the JSON display document for the transition.
func (t *Transition) GetInfo() ([]byte, error) {
	detail := transitionDetail{
		ID:            t.ID(),
		SerialNumbers: t.SerialNumbers,
		Commitments:   t.Commitments,
		ValueBalance:  t.ValueBalance.GetData(),
	}
	for _, ct := range t.Ciphertexts {
		detail.Ciphertexts = append(detail.Ciphertexts, hex.EncodeToString(ct))
	}
	return json.Marshal(detail)
}
