package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/hashpool/snarkOS-1/block"
	"github.com/hashpool/snarkOS-1/chain"
	"github.com/hashpool/snarkOS-1/chain/db"
	"github.com/hashpool/snarkOS-1/common"
	"github.com/hashpool/snarkOS-1/transaction"
	"github.com/hashpool/snarkOS-1/util/log"
)

// storeVersion tags the on-disk key layout. A store written with a
// different layout is dropped and re-synced, not migrated.
const storeVersion byte = 0x01

var (
	ErrEmptyChain         = errors.New("chain has no blocks")
	ErrBlockNotFound      = errors.New("block not found")
	ErrTxnNotFound        = errors.New("transaction not found")
	ErrTransitionNotFound = errors.New("transition not found")
	ErrCommitmentNotFound = errors.New("commitment not found")
)

// ChainStore is the leveldb-backed canonical chain. The tip block is
// cached in memory; all other lookups go through the key/value store.
type ChainStore struct {
	mu sync.RWMutex
	st db.IStore

	currentBlockHash common.Uint256
	tipHeader        *block.Header
}

func NewLedgerStore(path string) (*ChainStore, error) {
	st, err := db.NewLevelDBStore(path)
	if err != nil {
		return nil, err
	}
	return initChainStore(st)
}

// NewMemLedgerStore opens a memory-backed store. Used in tests.
func NewMemLedgerStore() (*ChainStore, error) {
	st, err := db.NewMemLevelDBStore()
	if err != nil {
		return nil, err
	}
	return initChainStore(st)
}

func initChainStore(st db.IStore) (*ChainStore, error) {
	cs := &ChainStore{st: st}
	if err := cs.ensureStoreVersion(); err != nil {
		return nil, err
	}

	data, err := st.Get(currentBlockKey())
	if err == db.ErrNotFound {
		return cs, nil
	}
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(data)
	if err := cs.currentBlockHash.Deserialize(r); err != nil {
		return nil, err
	}
	var height uint32
	if err := common.ReadUint32(r, &height); err != nil {
		return nil, err
	}
	tip, err := cs.loadBlock(height)
	if err != nil {
		return nil, err
	}
	cs.tipHeader = tip.Header
	log.Infof("chain store opened at height %d, tip %s", height, cs.currentBlockHash.ToHexString())
	return cs, nil
}

// ensureStoreVersion wipes a store written with an incompatible key
// layout. The dropped chain is re-synced from the network.
func (cs *ChainStore) ensureStoreVersion() error {
	v, err := cs.st.Get(versionKey())
	if err == nil && len(v) == 1 && v[0] == storeVersion {
		return nil
	}
	if err != nil && err != db.ErrNotFound {
		return err
	}

	cs.st.NewBatch()
	iter := cs.st.NewIterator(nil)
	stale := 0
	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		cs.st.BatchDelete(key)
		stale++
	}
	iter.Release()

	if stale > 0 {
		if err := cs.st.BatchCommit(); err != nil {
			return err
		}
		if err := cs.st.Compact(); err != nil {
			return err
		}
		log.Infof("store layout changed, dropped %d stale entries", stale)
	}
	return cs.st.Put(versionKey(), []byte{storeVersion})
}

func (cs *ChainStore) Close() {
	if err := cs.st.Close(); err != nil {
		log.Errorf("close chain store: %v", err)
	}
}

func (cs *ChainStore) GetHeight() uint32 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.tipHeader == nil {
		return 0
	}
	return cs.tipHeader.Height
}

func (cs *ChainStore) GetCurrentBlockHash() common.Uint256 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.currentBlockHash
}

func (cs *ChainStore) GetLatestBlock() (*block.Block, error) {
	cs.mu.RLock()
	if cs.tipHeader == nil {
		cs.mu.RUnlock()
		return nil, ErrEmptyChain
	}
	height := cs.tipHeader.Height
	cs.mu.RUnlock()
	return cs.loadBlock(height)
}

func (cs *ChainStore) GetLatestHeader() (*block.Header, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.tipHeader == nil {
		return nil, ErrEmptyChain
	}
	return cs.tipHeader, nil
}

func (cs *ChainStore) GetLatestLedgerRoot() common.Uint256 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.tipHeader == nil {
		return common.EmptyUint256
	}
	return cs.tipHeader.LedgerRoot
}

func (cs *ChainStore) GetLatestCumulativeWeight() common.Uint128 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if cs.tipHeader == nil {
		return common.Uint128{}
	}
	return cs.tipHeader.CumulativeWeight
}

func (cs *ChainStore) GetBlockByHeight(height uint32) (*block.Block, error) {
	return cs.loadBlock(height)
}

func (cs *ChainStore) GetHeaderByHeight(height uint32) (*block.Header, error) {
	b, err := cs.loadBlock(height)
	if err != nil {
		return nil, err
	}
	return b.Header, nil
}

func (cs *ChainStore) GetBlockHash(height uint32) (common.Uint256, error) {
	b, err := cs.loadBlock(height)
	if err != nil {
		return common.EmptyUint256, err
	}
	return b.Hash(), nil
}

func (cs *ChainStore) GetHeightByBlockHash(hash common.Uint256) (uint32, error) {
	data, err := cs.st.Get(blockHeightKey(hash))
	if err == db.ErrNotFound {
		return 0, ErrBlockNotFound
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 4 {
		return 0, fmt.Errorf("corrupt height index for %s", hash.ToHexString())
	}
	return binary.LittleEndian.Uint32(data), nil
}

func (cs *ChainStore) GetBlocks(start, end uint32) ([]*block.Block, error) {
	if start > end {
		return nil, fmt.Errorf("invalid block range [%d, %d]", start, end)
	}
	blocks := make([]*block.Block, 0, end-start+1)
	for height := start; ; height++ {
		b, err := cs.loadBlock(height)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
		if height == end {
			break
		}
	}
	return blocks, nil
}

func (cs *ChainStore) GetBlockHashes(start, end uint32) ([]common.Uint256, error) {
	blocks, err := cs.GetBlocks(start, end)
	if err != nil {
		return nil, err
	}
	hashes := make([]common.Uint256, len(blocks))
	for i, b := range blocks {
		hashes[i] = b.Hash()
	}
	return hashes, nil
}

func (cs *ChainStore) GetTransaction(txID common.Uint256) (*transaction.Transaction, error) {
	txn, _, err := cs.loadTransaction(txID)
	return txn, err
}

func (cs *ChainStore) GetTransactionMetadata(txID common.Uint256) (*chain.Metadata, error) {
	_, meta, err := cs.loadTransaction(txID)
	return meta, err
}

func (cs *ChainStore) GetTransition(transitionID common.Uint256) (*transaction.Transition, error) {
	data, err := cs.st.Get(transitionKey(transitionID))
	if err == db.ErrNotFound {
		return nil, ErrTransitionNotFound
	}
	if err != nil {
		return nil, err
	}
	txID, index, _, err := decodeIndexEntry(data)
	if err != nil {
		return nil, err
	}
	txn, _, err := cs.loadTransaction(txID)
	if err != nil {
		return nil, err
	}
	if int(index) >= len(txn.Transitions) {
		return nil, fmt.Errorf("corrupt transition index for %s", transitionID.ToHexString())
	}
	return txn.Transitions[index], nil
}

func (cs *ChainStore) ContainsSerialNumber(sn common.Uint256) bool {
	ok, err := cs.st.Has(serialNumberKey(sn))
	if err != nil {
		log.Errorf("serial number lookup: %v", err)
		return false
	}
	return ok
}

func (cs *ChainStore) ContainsCommitment(cm common.Uint256) bool {
	ok, err := cs.st.Has(commitmentKey(cm))
	if err != nil {
		log.Errorf("commitment lookup: %v", err)
		return false
	}
	return ok
}

func (cs *ChainStore) GetCiphertext(cm common.Uint256) ([]byte, error) {
	txn, _, transitionIndex, outputIndex, err := cs.lookupCommitment(cm)
	if err != nil {
		return nil, err
	}
	t := txn.Transitions[transitionIndex]
	if int(outputIndex) >= len(t.Ciphertexts) {
		return nil, fmt.Errorf("corrupt commitment index for %s", cm.ToHexString())
	}
	return t.Ciphertexts[outputIndex], nil
}

// GetLedgerInclusionProof returns the serialized inclusion record binding
// a commitment to its block and the ledger root as of that block. The
// SNARK path material itself is owned by the proving subsystem; this
// record is what the control plane can attest to.
func (cs *ChainStore) GetLedgerInclusionProof(cm common.Uint256) ([]byte, error) {
	txn, meta, transitionIndex, outputIndex, err := cs.lookupCommitment(cm)
	if err != nil {
		return nil, err
	}
	header, err := cs.GetHeaderByHeight(meta.BlockHeight)
	if err != nil {
		return nil, err
	}

	txID := txn.Hash()
	buf := new(bytes.Buffer)
	header.LedgerRoot.Serialize(buf)
	meta.BlockHash.Serialize(buf)
	common.WriteUint32(buf, meta.BlockHeight)
	txID.Serialize(buf)
	common.WriteUint32(buf, transitionIndex, outputIndex)
	cm.Serialize(buf)
	return buf.Bytes(), nil
}

// SaveBlock appends a block to the canonical chain. The block must extend
// the current tip (or be the genesis block of an empty store) and must
// not spend a known serial number or recreate a known commitment.
func (cs *ChainStore) SaveBlock(b *block.Block) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.tipHeader == nil {
		if b.Header.Height != 0 {
			return fmt.Errorf("expecting genesis block, got height %d", b.Header.Height)
		}
	} else {
		if b.Header.Height != cs.tipHeader.Height+1 {
			return fmt.Errorf("block height %d does not extend tip %d", b.Header.Height, cs.tipHeader.Height)
		}
		if b.Header.PreviousBlockHash != cs.currentBlockHash {
			return fmt.Errorf("block %s does not extend tip %s", b.Hash().ToHexString(), cs.currentBlockHash.ToHexString())
		}
	}

	for _, txn := range b.Transactions {
		for _, sn := range txn.SerialNumbers() {
			if cs.containsKey(serialNumberKey(sn)) {
				return fmt.Errorf("serial number %s already spent", sn.ToHexString())
			}
		}
		for _, cm := range txn.Commitments() {
			if cs.containsKey(commitmentKey(cm)) {
				return fmt.Errorf("commitment %s already exists", cm.ToHexString())
			}
		}
	}

	blockHash := b.Hash()

	cs.st.NewBatch()
	cs.st.BatchPut(blockKey(b.Header.Height), b.ToBytes())

	heightBuffer := make([]byte, 4)
	binary.LittleEndian.PutUint32(heightBuffer, b.Header.Height)
	cs.st.BatchPut(blockHeightKey(blockHash), heightBuffer)

	for txIndex, txn := range b.Transactions {
		txID := txn.Hash()
		meta := &chain.Metadata{
			BlockHash:        blockHash,
			BlockHeight:      b.Header.Height,
			TransactionIndex: uint32(txIndex),
			BlockTimestamp:   b.Header.Timestamp,
		}
		buf := new(bytes.Buffer)
		serializeMetadata(buf, meta)
		txn.Serialize(buf)
		cs.st.BatchPut(transactionKey(txID), buf.Bytes())

		for transitionIndex, t := range txn.Transitions {
			transitionID := t.ID()
			cs.st.BatchPut(transitionKey(transitionID), encodeIndexEntry(txID, uint32(transitionIndex), 0))
			for _, sn := range t.SerialNumbers {
				cs.st.BatchPut(serialNumberKey(sn), txID.ToArray())
			}
			for outputIndex, cm := range t.Commitments {
				cs.st.BatchPut(commitmentKey(cm), encodeIndexEntry(txID, uint32(transitionIndex), uint32(outputIndex)))
			}
		}
	}

	tipBuf := new(bytes.Buffer)
	blockHash.Serialize(tipBuf)
	common.WriteUint32(tipBuf, b.Header.Height)
	cs.st.BatchPut(currentBlockKey(), tipBuf.Bytes())

	if err := cs.st.BatchCommit(); err != nil {
		return err
	}

	cs.currentBlockHash = blockHash
	cs.tipHeader = b.Header
	log.Infof("saved block %s at height %d, %d txns", blockHash.ToHexString(), b.Header.Height, len(b.Transactions))
	return nil
}

func (cs *ChainStore) containsKey(key []byte) bool {
	ok, err := cs.st.Has(key)
	if err != nil {
		log.Errorf("store lookup: %v", err)
		return false
	}
	return ok
}

func (cs *ChainStore) loadBlock(height uint32) (*block.Block, error) {
	data, err := cs.st.Get(blockKey(height))
	if err == db.ErrNotFound {
		return nil, ErrBlockNotFound
	}
	if err != nil {
		return nil, err
	}
	return block.NewBlockFromBytes(data)
}

func (cs *ChainStore) loadTransaction(txID common.Uint256) (*transaction.Transaction, *chain.Metadata, error) {
	data, err := cs.st.Get(transactionKey(txID))
	if err == db.ErrNotFound {
		return nil, nil, ErrTxnNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	r := bytes.NewReader(data)
	meta, err := deserializeMetadata(r)
	if err != nil {
		return nil, nil, err
	}
	txn := &transaction.Transaction{}
	if err := txn.Deserialize(r); err != nil {
		return nil, nil, err
	}
	return txn, meta, nil
}

func (cs *ChainStore) lookupCommitment(cm common.Uint256) (*transaction.Transaction, *chain.Metadata, uint32, uint32, error) {
	data, err := cs.st.Get(commitmentKey(cm))
	if err == db.ErrNotFound {
		return nil, nil, 0, 0, ErrCommitmentNotFound
	}
	if err != nil {
		return nil, nil, 0, 0, err
	}
	txID, transitionIndex, outputIndex, err := decodeIndexEntry(data)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	txn, meta, err := cs.loadTransaction(txID)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	if int(transitionIndex) >= len(txn.Transitions) {
		return nil, nil, 0, 0, fmt.Errorf("corrupt commitment index for %s", cm.ToHexString())
	}
	return txn, meta, transitionIndex, outputIndex, nil
}

func serializeMetadata(buf *bytes.Buffer, meta *chain.Metadata) {
	meta.BlockHash.Serialize(buf)
	common.WriteUint32(buf, meta.BlockHeight, meta.TransactionIndex)
	common.WriteInt64(buf, meta.BlockTimestamp)
}

func deserializeMetadata(r *bytes.Reader) (*chain.Metadata, error) {
	meta := &chain.Metadata{}
	if err := meta.BlockHash.Deserialize(r); err != nil {
		return nil, err
	}
	if err := common.ReadUint32(r, &meta.BlockHeight, &meta.TransactionIndex); err != nil {
		return nil, err
	}
	if err := common.ReadInt64(r, &meta.BlockTimestamp); err != nil {
		return nil, err
	}
	return meta, nil
}

func encodeIndexEntry(txID common.Uint256, transitionIndex, outputIndex uint32) []byte {
	buf := make([]byte, common.UINT256SIZE+8)
	copy(buf, txID[:])
	binary.LittleEndian.PutUint32(buf[common.UINT256SIZE:], transitionIndex)
	binary.LittleEndian.PutUint32(buf[common.UINT256SIZE+4:], outputIndex)
	return buf
}

func decodeIndexEntry(data []byte) (common.Uint256, uint32, uint32, error) {
	if len(data) != common.UINT256SIZE+8 {
		return common.EmptyUint256, 0, 0, errors.New("corrupt index entry")
	}
	txID, _ := common.Uint256ParseFromBytes(data[:common.UINT256SIZE])
	transitionIndex := binary.LittleEndian.Uint32(data[common.UINT256SIZE:])
	outputIndex := binary.LittleEndian.Uint32(data[common.UINT256SIZE+4:])
	return txID, transitionIndex, outputIndex, nil
}
