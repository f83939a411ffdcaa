package block

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/hashpool/snarkOS-1/common"
	"github.com/hashpool/snarkOS-1/transaction"
)

const maxTxnPerBlock = 4096

// Block is a header plus its transaction list.
type Block struct {
	Header       *Header
	Transactions []*transaction.Transaction
}

// Hash is the hash of the block header.
func (b *Block) Hash() common.Uint256 {
	return b.Header.Hash()
}

func (b *Block) Serialize(w io.Writer) error {
	if err := b.Header.Serialize(w); err != nil {
		return err
	}
	if err := common.WriteUint32(w, uint32(len(b.Transactions))); err != nil {
		return err
	}
	for _, txn := range b.Transactions {
		if err := txn.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func (b *Block) Deserialize(r io.Reader) error {
	b.Header = &Header{}
	if err := b.Header.Deserialize(r); err != nil {
		return err
	}
	var n uint32
	if err := common.ReadUint32(r, &n); err != nil {
		return err
	}
	if n > maxTxnPerBlock {
		return errors.New("invalid transaction count")
	}
	b.Transactions = make([]*transaction.Transaction, n)
	for i := range b.Transactions {
		b.Transactions[i] = &transaction.Transaction{}
		if err := b.Transactions[i].Deserialize(r); err != nil {
			return err
		}
	}
	return nil
}

func (b *Block) ToBytes() []byte {
	buf := new(bytes.Buffer)
	b.Serialize(buf)
	return buf.Bytes()
}

func NewBlockFromBytes(data []byte) (*Block, error) {
	b := &Block{}
	r := bytes.NewReader(data)
	if err := b.Deserialize(r); err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, errors.New("trailing bytes after block")
	}
	return b, nil
}

type blockInfo struct {
	Hash         common.Uint256   `json:"hash"`
	Header       json.RawMessage  `json:"header"`
	Transactions []common.Uint256 `json:"transactions"`
}

// GetInfo returns the JSON display document for the block. Transactions
// are listed by ID; full transactions come from gettransaction.
func (b *Block) GetInfo() ([]byte, error) {
	headerInfo, err := b.Header.GetInfo()
	if err != nil {
		return nil, err
	}
	txns := make([]common.Uint256, len(b.Transactions))
	for i, txn := range b.Transactions {
		txns[i] = txn.Hash()
	}
	return json.Marshal(blockInfo{
		Hash:         b.Hash(),
		Header:       headerInfo,
		Transactions: txns,
	})
}
