package block

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/hashpool/snarkOS-1/common"
	"golang.org/x/crypto/blake2b"
)

// Header carries the consensus fields of a block. Headers are immutable
// once the block is accepted by the ledger.
type Header struct {
	PreviousBlockHash common.Uint256
	Height            uint32
	Timestamp         int64
	DifficultyTarget  uint64
	CumulativeWeight  common.Uint128
	LedgerRoot        common.Uint256
	Nonce             uint64
	// Proof is the opaque PoW/SNARK proof material; validity checking
	// happens inside the ledger, not here.
	Proof []byte
}

func (h *Header) Serialize(w io.Writer) error {
	if err := h.PreviousBlockHash.Serialize(w); err != nil {
		return err
	}
	if err := common.WriteUint32(w, h.Height); err != nil {
		return err
	}
	if err := common.WriteInt64(w, h.Timestamp); err != nil {
		return err
	}
	if err := common.WriteUint64(w, h.DifficultyTarget); err != nil {
		return err
	}
	if err := h.CumulativeWeight.Serialize(w); err != nil {
		return err
	}
	if err := h.LedgerRoot.Serialize(w); err != nil {
		return err
	}
	if err := common.WriteUint64(w, h.Nonce); err != nil {
		return err
	}
	return common.WriteVarBytes(w, h.Proof)
}

func (h *Header) Deserialize(r io.Reader) error {
	if err := h.PreviousBlockHash.Deserialize(r); err != nil {
		return err
	}
	if err := common.ReadUint32(r, &h.Height); err != nil {
		return err
	}
	if err := common.ReadInt64(r, &h.Timestamp); err != nil {
		return err
	}
	if err := common.ReadUint64(r, &h.DifficultyTarget); err != nil {
		return err
	}
	if err := h.CumulativeWeight.Deserialize(r); err != nil {
		return err
	}
	if err := h.LedgerRoot.Deserialize(r); err != nil {
		return err
	}
	if err := common.ReadUint64(r, &h.Nonce); err != nil {
		return err
	}
	var err error
	h.Proof, err = common.ReadVarBytes(r)
	return err
}

// Hash is the block hash: blake2b-256 over the serialized header.
func (h *Header) Hash() common.Uint256 {
	b := new(bytes.Buffer)
	h.Serialize(b)
	return common.Uint256(blake2b.Sum256(b.Bytes()))
}

type headerInfo struct {
	PreviousBlockHash common.Uint256 `json:"previous_block_hash"`
	Height            uint32         `json:"height"`
	Timestamp         int64          `json:"timestamp"`
	DifficultyTarget  uint64         `json:"difficulty_target"`
	CumulativeWeight  common.Uint128 `json:"cumulative_weight"`
	LedgerRoot        common.Uint256 `json:"ledger_root"`
	Nonce             uint64         `json:"nonce"`
}

// GetInfo returns the JSON display document for the header.
func (h *Header) GetInfo() ([]byte, error) {
	return json.Marshal(headerInfo{
		PreviousBlockHash: h.PreviousBlockHash,
		Height:            h.Height,
		Timestamp:         h.Timestamp,
		DifficultyTarget:  h.DifficultyTarget,
		CumulativeWeight:  h.CumulativeWeight,
		LedgerRoot:        h.LedgerRoot,
		Nonce:             h.Nonce,
	})
}
