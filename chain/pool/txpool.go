package pool

import (
	"errors"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map"

	"github.com/hashpool/snarkOS-1/common"
	"github.com/hashpool/snarkOS-1/config"
	"github.com/hashpool/snarkOS-1/transaction"
	"github.com/hashpool/snarkOS-1/util/log"
)

var (
	ErrDuplicatedTx    = errors.New("transaction already in pool")
	ErrDoubleSpend     = errors.New("transaction double spends pool input")
	ErrDuplicateCommit = errors.New("transaction commitment already in pool")
	ErrTxPoolFull      = errors.New("transaction pool full")
	ErrNilTx           = errors.New("nil transaction")
	ErrTxnNotFound     = errors.New("transaction not found in pool")
)

// TxnPool is the in-memory set of unconfirmed transactions, kept in
// arrival order. Admission enforces pool-internal consistency only:
// no two pooled transactions share a serial number or a commitment.
// Ledger-level conflicts are resolved at template-build time.
type TxnPool struct {
	sync.RWMutex
	capacity      uint32
	txnList       *orderedmap.OrderedMap // common.Uint256 -> *transaction.Transaction
	serialNumbers map[common.Uint256]common.Uint256
	commitments   map[common.Uint256]common.Uint256
}

func NewTxnPool() *TxnPool {
	capacity := config.Parameters.TxPoolCap
	if capacity == 0 {
		capacity = 1024
	}
	return &TxnPool{
		capacity:      capacity,
		txnList:       orderedmap.New(),
		serialNumbers: make(map[common.Uint256]common.Uint256),
		commitments:   make(map[common.Uint256]common.Uint256),
	}
}

// AppendTxnPool admits an unconfirmed transaction.
func (tp *TxnPool) AppendTxnPool(txn *transaction.Transaction) error {
	if txn == nil {
		return ErrNilTx
	}
	txID := txn.Hash()

	tp.Lock()
	defer tp.Unlock()

	if _, ok := tp.txnList.Get(txID); ok {
		return ErrDuplicatedTx
	}
	if uint32(tp.txnList.Len()) >= tp.capacity {
		return ErrTxPoolFull
	}
	for _, sn := range txn.SerialNumbers() {
		if _, ok := tp.serialNumbers[sn]; ok {
			return ErrDoubleSpend
		}
	}
	for _, cm := range txn.Commitments() {
		if _, ok := tp.commitments[cm]; ok {
			return ErrDuplicateCommit
		}
	}

	tp.txnList.Set(txID, txn)
	for _, sn := range txn.SerialNumbers() {
		tp.serialNumbers[sn] = txID
	}
	for _, cm := range txn.Commitments() {
		tp.commitments[cm] = txID
	}

	log.Debugf("append txn %s to pool, pool size %d", txID.ToHexString(), tp.txnList.Len())
	return nil
}

// GetTransaction returns the pooled transaction with the given ID, or nil.
func (tp *TxnPool) GetTransaction(txID common.Uint256) *transaction.Transaction {
	tp.RLock()
	defer tp.RUnlock()
	if v, ok := tp.txnList.Get(txID); ok {
		return v.(*transaction.Transaction)
	}
	return nil
}

// GetAllTransactions returns a snapshot of the pool in arrival order.
func (tp *TxnPool) GetAllTransactions() []*transaction.Transaction {
	tp.RLock()
	defer tp.RUnlock()
	txns := make([]*transaction.Transaction, 0, tp.txnList.Len())
	for pair := tp.txnList.Oldest(); pair != nil; pair = pair.Next() {
		txns = append(txns, pair.Value.(*transaction.Transaction))
	}
	return txns
}

// DeleteTransaction removes a transaction and releases its serial
// numbers and commitments.
func (tp *TxnPool) DeleteTransaction(txID common.Uint256) error {
	tp.Lock()
	defer tp.Unlock()

	v, ok := tp.txnList.Get(txID)
	if !ok {
		return ErrTxnNotFound
	}
	txn := v.(*transaction.Transaction)
	tp.txnList.Delete(txID)
	for _, sn := range txn.SerialNumbers() {
		delete(tp.serialNumbers, sn)
	}
	for _, cm := range txn.Commitments() {
		delete(tp.commitments, cm)
	}
	return nil
}

// RemoveConfirmed drops every pooled transaction made inadmissible by a
// newly accepted block: the block's own transactions plus any pooled
// transaction sharing a serial number or commitment with them.
func (tp *TxnPool) RemoveConfirmed(txns []*transaction.Transaction) {
	tp.Lock()
	defer tp.Unlock()

	for _, txn := range txns {
		tp.removeLocked(txn.Hash())
		for _, sn := range txn.SerialNumbers() {
			if txID, ok := tp.serialNumbers[sn]; ok {
				tp.removeLocked(txID)
			}
		}
		for _, cm := range txn.Commitments() {
			if txID, ok := tp.commitments[cm]; ok {
				tp.removeLocked(txID)
			}
		}
	}
}

func (tp *TxnPool) removeLocked(txID common.Uint256) {
	v, ok := tp.txnList.Get(txID)
	if !ok {
		return
	}
	txn := v.(*transaction.Transaction)
	tp.txnList.Delete(txID)
	for _, sn := range txn.SerialNumbers() {
		delete(tp.serialNumbers, sn)
	}
	for _, cm := range txn.Commitments() {
		delete(tp.commitments, cm)
	}
}

// GetTransactionCount returns the number of pooled transactions.
func (tp *TxnPool) GetTransactionCount() int {
	tp.RLock()
	defer tp.RUnlock()
	return tp.txnList.Len()
}
