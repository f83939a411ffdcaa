package chain

import (
	"github.com/hashpool/snarkOS-1/block"
	"github.com/hashpool/snarkOS-1/common"
	"github.com/hashpool/snarkOS-1/transaction"
)

// Metadata is the ledger-side record for a confirmed transaction.
type Metadata struct {
	BlockHash        common.Uint256 `json:"block_hash"`
	BlockHeight      uint32         `json:"block_height"`
	TransactionIndex uint32         `json:"transaction_index"`
	BlockTimestamp   int64          `json:"block_timestamp"`
}

// ILedgerStore is the read surface of the canonical chain consumed by this
// core, plus the SaveBlock entry point owned by the ledger subsystem.
//
// Each single call observes one consistent chain state, but two calls in a
// row are not jointly atomic: a block can be accepted in between. Callers
// composing multiple reads (status snapshots, block templates) must
// tolerate that staleness window.
type ILedgerStore interface {
	GetHeight() uint32
	GetCurrentBlockHash() common.Uint256
	GetLatestBlock() (*block.Block, error)
	GetLatestHeader() (*block.Header, error)
	GetLatestLedgerRoot() common.Uint256
	GetLatestCumulativeWeight() common.Uint128

	GetBlockByHeight(height uint32) (*block.Block, error)
	GetHeaderByHeight(height uint32) (*block.Header, error)
	GetBlockHash(height uint32) (common.Uint256, error)
	GetHeightByBlockHash(hash common.Uint256) (uint32, error)

	// GetBlocks and GetBlockHashes return the inclusive range; they fail
	// if any height in [start, end] is unknown or start > end.
	GetBlocks(start, end uint32) ([]*block.Block, error)
	GetBlockHashes(start, end uint32) ([]common.Uint256, error)

	GetTransaction(txID common.Uint256) (*transaction.Transaction, error)
	GetTransactionMetadata(txID common.Uint256) (*Metadata, error)
	GetTransition(transitionID common.Uint256) (*transaction.Transition, error)

	ContainsSerialNumber(sn common.Uint256) bool
	ContainsCommitment(cm common.Uint256) bool
	GetCiphertext(cm common.Uint256) ([]byte, error)
	GetLedgerInclusionProof(cm common.Uint256) ([]byte, error)

	SaveBlock(b *block.Block) error
	Close()
}
