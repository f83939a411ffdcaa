package transaction

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"

	"github.com/hashpool/snarkOS-1/common"
	"golang.org/x/crypto/blake2b"
)

const maxTransitionsPerTransaction = 128

// Transaction is an ordered list of transitions. Its identifier is derived
// from its canonical byte form, so two byte-identical transactions share
// an ID.
type Transaction struct {
	Transitions []*Transition

	hash *common.Uint256
}

// Record is the display form of a decrypted output record.
type Record struct {
	Commitment common.Uint256 `json:"commitment"`
	Ciphertext string         `json:"ciphertext"`
}

// SerialNumbers flattens the spent-input tags across all transitions, in
// transition order.
func (tx *Transaction) SerialNumbers() []common.Uint256 {
	var sns []common.Uint256
	for _, t := range tx.Transitions {
		sns = append(sns, t.SerialNumbers...)
	}
	return sns
}

// Commitments flattens the new-output tags across all transitions, in
// transition order.
func (tx *Transaction) Commitments() []common.Uint256 {
	var cms []common.Uint256
	for _, t := range tx.Transitions {
		cms = append(cms, t.Commitments...)
	}
	return cms
}

// ValueBalance is the transaction's net fee: the sum over transitions. A
// negative balance means the transaction demands a subsidy.
func (tx *Transaction) ValueBalance() common.Fixed64 {
	var total common.Fixed64
	for _, t := range tx.Transitions {
		total += t.ValueBalance
	}
	return total
}

// Hash returns the transaction ID, caching it after the first call.
func (tx *Transaction) Hash() common.Uint256 {
	if tx.hash == nil {
		b := new(bytes.Buffer)
		tx.Serialize(b)
		h := common.Uint256(blake2b.Sum256(b.Bytes()))
		tx.hash = &h
	}
	return *tx.hash
}

func (tx *Transaction) Serialize(w io.Writer) error {
	if err := common.WriteUint32(w, uint32(len(tx.Transitions))); err != nil {
		return err
	}
	for _, t := range tx.Transitions {
		if err := t.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func (tx *Transaction) Deserialize(r io.Reader) error {
	var n uint32
	if err := common.ReadUint32(r, &n); err != nil {
		return err
	}
	if n == 0 || n > maxTransitionsPerTransaction {
		return errors.New("invalid transition count")
	}
	tx.Transitions = make([]*Transition, n)
	for i := range tx.Transitions {
		tx.Transitions[i] = &Transition{}
		if err := tx.Transitions[i].Deserialize(r); err != nil {
			return err
		}
	}
	tx.hash = nil
	return nil
}

// ToBytes returns the canonical byte form.
func (tx *Transaction) ToBytes() []byte {
	b := new(bytes.Buffer)
	tx.Serialize(b)
	return b.Bytes()
}

// ToHexString is the transport-stable textual encoding used in block
// templates and sendrawtransaction.
func (tx *Transaction) ToHexString() string {
	return hex.EncodeToString(tx.ToBytes())
}

// NewTransactionFromBytes strictly decodes a transaction; trailing bytes
// are rejected.
func NewTransactionFromBytes(b []byte) (*Transaction, error) {
	tx := &Transaction{}
	r := bytes.NewReader(b)
	if err := tx.Deserialize(r); err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, errors.New("trailing bytes after transaction")
	}
	return tx, nil
}

// NewTransactionFromHexString decodes the hex transport form.
func NewTransactionFromHexString(s string) (*Transaction, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return NewTransactionFromBytes(b)
}

// ToRecords lists the decrypted output records carried by the transaction,
// one per commitment.
func (tx *Transaction) ToRecords() []Record {
	var records []Record
	for _, t := range tx.Transitions {
		for i, cm := range t.Commitments {
			rec := Record{Commitment: cm}
			if i < len(t.Ciphertexts) {
				rec.Ciphertext = hex.EncodeToString(t.Ciphertexts[i])
			}
			records = append(records, rec)
		}
	}
	return records
}

type transitionInfo struct {
	ID            common.Uint256   `json:"id"`
	SerialNumbers []common.Uint256 `json:"serial_numbers"`
	Commitments   []common.Uint256 `json:"commitments"`
	ValueBalance  int64            `json:"value_balance"`
}

type transactionInfo struct {
	ID           common.Uint256   `json:"transaction_id"`
	ValueBalance int64            `json:"value_balance"`
	Transitions  []transitionInfo `json:"transitions"`
}

// GetInfo returns the JSON display document for the transaction.
func (tx *Transaction) GetInfo() ([]byte, error) {
	info := transactionInfo{
		ID:           tx.Hash(),
		ValueBalance: tx.ValueBalance().GetData(),
	}
	for _, t := range tx.Transitions {
		info.Transitions = append(info.Transitions, transitionInfo{
			ID:            t.ID(),
			SerialNumbers: t.SerialNumbers,
			Commitments:   t.Commitments,
			ValueBalance:  t.ValueBalance.GetData(),
		})
	}
	return json.Marshal(info)
}
