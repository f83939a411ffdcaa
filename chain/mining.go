package chain

import (
	"context"
	"errors"
	"time"

	"github.com/hashpool/snarkOS-1/block"
	"github.com/hashpool/snarkOS-1/common"
	"github.com/hashpool/snarkOS-1/config"
	"github.com/hashpool/snarkOS-1/transaction"
	"github.com/hashpool/snarkOS-1/util/log"
)

// ErrInvalidTransactionFees is returned when the admissible mempool
// subset carries a negative aggregate fee. That means the ledger and the
// mempool disagree about the chain state, so the whole template build
// fails instead of silently dropping transactions.
var ErrInvalidTransactionFees = errors.New("invalid transaction fees")

// BlockTemplate is the candidate-block descriptor handed to miners. It is
// computed per request and never persisted.
type BlockTemplate struct {
	PreviousBlockHash common.Uint256 `json:"previous_block_hash"`
	BlockHeight       uint32         `json:"block_height"`
	Time              int64          `json:"time"`
	DifficultyTarget  uint64         `json:"difficulty_target"`
	CumulativeWeight  common.Uint128 `json:"cumulative_weight"`
	LedgerRoot        common.Uint256 `json:"ledger_root"`
	Transactions      []string       `json:"transactions"`
	CoinbaseReward    common.Fixed64 `json:"coinbase_reward"`
}

// TxnSource is a snapshot view of the memory pool.
type TxnSource interface {
	GetAllTransactions() []*transaction.Transaction
}

// TemplateBuilder assembles candidate block templates from the ledger
// tip, the memory pool and the retarget schedule. All collaborators are
// injected at construction.
type TemplateBuilder struct {
	store     ILedgerStore
	txnSource TxnSource
	networkID uint16
}

func NewTemplateBuilder(store ILedgerStore, txnSource TxnSource, networkID uint16) *TemplateBuilder {
	return &TemplateBuilder{
		store:     store,
		txnSource: txnSource,
		networkID: networkID,
	}
}

// BuildBlockTemplate produces the descriptor for the next block.
//
// The tip block and the ledger root are read separately; a block accepted
// between the two reads can leave the template fields one height apart.
// Miners resubmit on the next tip change, so the stale template is
// harmless and the extra read traffic of an atomic snapshot is not paid.
func (tb *TemplateBuilder) BuildBlockTemplate(ctx context.Context) (*BlockTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	latestBlock, err := tb.store.GetLatestBlock()
	if err != nil {
		return nil, err
	}
	ledgerRoot := tb.store.GetLatestLedgerRoot()

	previousBlockHash := latestBlock.Hash()
	blockHeight := latestBlock.Header.Height + 1
	blockTimestamp := time.Now().Unix()

	reference, err := tb.retargetReference(latestBlock.Header, blockHeight)
	if err != nil {
		return nil, err
	}
	difficultyTarget := ComputeDifficultyTarget(reference, blockTimestamp, blockHeight)
	cumulativeWeight := NextCumulativeWeight(latestBlock.Header.CumulativeWeight, difficultyTarget)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	included, transactionFees, err := FilterMemoryPool(tb.txnSource.GetAllTransactions(), tb.store)
	if err != nil {
		return nil, err
	}

	coinbaseReward := GetRewardByHeight(blockHeight) + transactionFees

	encoded := make([]string, len(included))
	for i, txn := range included {
		encoded[i] = txn.ToHexString()
	}

	log.Debugf("built block template at height %d with %d transactions", blockHeight, len(included))

	return &BlockTemplate{
		PreviousBlockHash: previousBlockHash,
		BlockHeight:       blockHeight,
		Time:              blockTimestamp,
		DifficultyTarget:  difficultyTarget,
		CumulativeWeight:  cumulativeWeight,
		LedgerRoot:        ledgerRoot,
		Transactions:      encoded,
		CoinbaseReward:    coinbaseReward,
	}, nil
}

// retargetReference picks the header the retarget runs from. Before the
// v12 upgrade anchor (and on networks without the upgrade) that is the
// tip; past the anchor it is the anchor header itself, fetched by its
// fixed height.
func (tb *TemplateBuilder) retargetReference(tip *block.Header, blockHeight uint32) (*block.Header, error) {
	if tb.networkID != config.UpgradedNetworkID || blockHeight <= config.UpgradeAnchorHeight {
		return tip, nil
	}
	return tb.store.GetHeaderByHeight(config.UpgradeAnchorHeight)
}

// FilterMemoryPool selects the admissible transaction subset for a new
// block: a transaction is excluded when any of its serial numbers is
// already spent or any of its commitments already exists. Each decision
// is independent; excluding one transaction never re-evaluates others.
// The second return value is the aggregate fee of the included set.
func FilterMemoryPool(txns []*transaction.Transaction, store ILedgerStore) ([]*transaction.Transaction, common.Fixed64, error) {
	included := make([]*transaction.Transaction, 0, len(txns))
	var transactionFees common.Fixed64

	for _, txn := range txns {
		if conflictsWithLedger(txn, store) {
			continue
		}
		transactionFees += txn.ValueBalance()
		included = append(included, txn)
	}

	if transactionFees.IsNegative() {
		return nil, 0, ErrInvalidTransactionFees
	}
	return included, transactionFees, nil
}

func conflictsWithLedger(txn *transaction.Transaction, store ILedgerStore) bool {
	for _, sn := range txn.SerialNumbers() {
		if store.ContainsSerialNumber(sn) {
			return true
		}
	}
	for _, cm := range txn.Commitments() {
		if store.ContainsCommitment(cm) {
			return true
		}
	}
	return false
}
