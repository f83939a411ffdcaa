package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hashpool/snarkOS-1/block"
	"github.com/hashpool/snarkOS-1/common"
	"github.com/hashpool/snarkOS-1/config"
	"github.com/hashpool/snarkOS-1/transaction"
)

var errUnsupported = errors.New("not supported by fixture")

// mockLedger is an in-memory ILedgerStore fixture.
type mockLedger struct {
	tip           *block.Block
	headers       map[uint32]*block.Header
	serialNumbers map[common.Uint256]struct{}
	commitments   map[common.Uint256]struct{}
}

func newMockLedger(tip *block.Block) *mockLedger {
	return &mockLedger{
		tip:           tip,
		headers:       map[uint32]*block.Header{tip.Header.Height: tip.Header},
		serialNumbers: make(map[common.Uint256]struct{}),
		commitments:   make(map[common.Uint256]struct{}),
	}
}

func (m *mockLedger) GetHeight() uint32                   { return m.tip.Header.Height }
func (m *mockLedger) GetCurrentBlockHash() common.Uint256 { return m.tip.Hash() }
func (m *mockLedger) GetLatestBlock() (*block.Block, error) {
	return m.tip, nil
}
func (m *mockLedger) GetLatestHeader() (*block.Header, error) { return m.tip.Header, nil }
func (m *mockLedger) GetLatestLedgerRoot() common.Uint256     { return m.tip.Header.LedgerRoot }
func (m *mockLedger) GetLatestCumulativeWeight() common.Uint128 {
	return m.tip.Header.CumulativeWeight
}
func (m *mockLedger) GetBlockByHeight(height uint32) (*block.Block, error) {
	return nil, errUnsupported
}
func (m *mockLedger) GetHeaderByHeight(height uint32) (*block.Header, error) {
	h, ok := m.headers[height]
	if !ok {
		return nil, errUnsupported
	}
	return h, nil
}
func (m *mockLedger) GetBlockHash(height uint32) (common.Uint256, error) {
	return common.EmptyUint256, errUnsupported
}
func (m *mockLedger) GetHeightByBlockHash(hash common.Uint256) (uint32, error) {
	return 0, errUnsupported
}
func (m *mockLedger) GetBlocks(start, end uint32) ([]*block.Block, error) {
	return nil, errUnsupported
}
func (m *mockLedger) GetBlockHashes(start, end uint32) ([]common.Uint256, error) {
	return nil, errUnsupported
}
func (m *mockLedger) GetTransaction(txID common.Uint256) (*transaction.Transaction, error) {
	return nil, errUnsupported
}
func (m *mockLedger) GetTransactionMetadata(txID common.Uint256) (*Metadata, error) {
	return nil, errUnsupported
}
func (m *mockLedger) GetTransition(transitionID common.Uint256) (*transaction.Transition, error) {
	return nil, errUnsupported
}
func (m *mockLedger) ContainsSerialNumber(sn common.Uint256) bool {
	_, ok := m.serialNumbers[sn]
	return ok
}
func (m *mockLedger) ContainsCommitment(cm common.Uint256) bool {
	_, ok := m.commitments[cm]
	return ok
}
func (m *mockLedger) GetCiphertext(cm common.Uint256) ([]byte, error) {
	return nil, errUnsupported
}
func (m *mockLedger) GetLedgerInclusionProof(cm common.Uint256) ([]byte, error) {
	return nil, errUnsupported
}
func (m *mockLedger) SaveBlock(b *block.Block) error { return errUnsupported }
func (m *mockLedger) Close()                         {}

type mockTxnSource struct {
	txns []*transaction.Transaction
}

func (m *mockTxnSource) GetAllTransactions() []*transaction.Transaction { return m.txns }

func hashFromByte(b byte) common.Uint256 {
	var h common.Uint256
	h[0] = b
	return h
}

func makeTxn(serial, commitment byte, fee int64) *transaction.Transaction {
	return &transaction.Transaction{
		Transitions: []*transaction.Transition{{
			SerialNumbers: []common.Uint256{hashFromByte(serial)},
			Commitments:   []common.Uint256{hashFromByte(commitment)},
			ValueBalance:  common.Fixed64(fee),
			Ciphertexts:   [][]byte{{0xaa}},
		}},
	}
}

func makeTip(height uint32) *block.Block {
	return &block.Block{
		Header: &block.Header{
			Height:           height,
			Timestamp:        config.GenesisTimestamp + int64(height)*config.TargetBlockTime,
			DifficultyTarget: config.GenesisDifficultyTarget,
			CumulativeWeight: common.NewUint128(uint64(height)),
			LedgerRoot:       hashFromByte(0xfe),
		},
	}
}

func TestBuildBlockTemplate(t *testing.T) {
	tip := makeTip(10)
	ledger := newMockLedger(tip)
	t1 := makeTxn(0x01, 0x02, 5)
	t2 := makeTxn(0x03, 0x04, 7)
	ledger.serialNumbers[hashFromByte(0x03)] = struct{}{} // t2 double spends

	tb := NewTemplateBuilder(ledger, &mockTxnSource{txns: []*transaction.Transaction{t1, t2}}, config.UpgradedNetworkID)
	template, err := tb.BuildBlockTemplate(context.Background())
	require.NoError(t, err)

	require.Equal(t, tip.Hash(), template.PreviousBlockHash)
	require.Equal(t, uint32(11), template.BlockHeight)
	require.Equal(t, tip.Header.LedgerRoot, template.LedgerRoot)
	require.Equal(t, []string{t1.ToHexString()}, template.Transactions)
	require.Equal(t, GetRewardByHeight(11)+5, template.CoinbaseReward)
	require.Equal(t, 1, template.CumulativeWeight.CompareTo(tip.Header.CumulativeWeight))
}

func TestFilterMemoryPool(t *testing.T) {
	tip := makeTip(10)
	ledger := newMockLedger(tip)
	t1 := makeTxn(0x01, 0x02, 5)
	t2 := makeTxn(0x03, 0x04, 7) // spent serial number
	t3 := makeTxn(0x05, 0x06, 9) // existing commitment
	ledger.serialNumbers[hashFromByte(0x03)] = struct{}{}
	ledger.commitments[hashFromByte(0x06)] = struct{}{}

	txns := []*transaction.Transaction{t1, t2, t3}
	included, fees, err := FilterMemoryPool(txns, ledger)
	require.NoError(t, err)
	require.Equal(t, []*transaction.Transaction{t1}, included)
	require.Equal(t, common.Fixed64(5), fees)

	// deterministic and idempotent on an unchanged snapshot
	again, feesAgain, err := FilterMemoryPool(txns, ledger)
	require.NoError(t, err)
	require.Equal(t, included, again)
	require.Equal(t, fees, feesAgain)
}

func TestFilterMemoryPoolNegativeFees(t *testing.T) {
	ledger := newMockLedger(makeTip(10))
	subsidy := makeTxn(0x01, 0x02, -10)
	credit := makeTxn(0x03, 0x04, 3)

	_, _, err := FilterMemoryPool([]*transaction.Transaction{subsidy, credit}, ledger)
	require.ErrorIs(t, err, ErrInvalidTransactionFees)
}

func TestRetargetReferenceAnchor(t *testing.T) {
	anchorHeader := fixtureHeader(config.UpgradeAnchorHeight, 2000000, 1<<42)

	// tip just before the anchor: next height == anchor, sliding rule
	tipAt := makeTip(config.UpgradeAnchorHeight - 1)
	ledger := newMockLedger(tipAt)
	tb := NewTemplateBuilder(ledger, &mockTxnSource{}, config.UpgradedNetworkID)
	ref, err := tb.retargetReference(tipAt.Header, config.UpgradeAnchorHeight)
	require.NoError(t, err)
	require.Same(t, tipAt.Header, ref)

	// tip at the anchor: next height == anchor+1, fixed anchor reference
	tipPast := makeTip(config.UpgradeAnchorHeight)
	ledger = newMockLedger(tipPast)
	ledger.headers[config.UpgradeAnchorHeight] = anchorHeader
	tb = NewTemplateBuilder(ledger, &mockTxnSource{}, config.UpgradedNetworkID)
	ref, err = tb.retargetReference(tipPast.Header, config.UpgradeAnchorHeight+1)
	require.NoError(t, err)
	require.Same(t, anchorHeader, ref)

	// the anchor header stays the reference as height keeps advancing
	ref, err = tb.retargetReference(tipPast.Header, config.UpgradeAnchorHeight+1000)
	require.NoError(t, err)
	require.Same(t, anchorHeader, ref)

	// a network without the upgrade always retargets from the tip
	tb = NewTemplateBuilder(ledger, &mockTxnSource{}, config.UpgradedNetworkID+1)
	ref, err = tb.retargetReference(tipPast.Header, config.UpgradeAnchorHeight+1)
	require.NoError(t, err)
	require.Same(t, tipPast.Header, ref)
}

func TestAnchorBoundaryTargets(t *testing.T) {
	// sliding tip and fixed anchor references produce different targets
	// for the same wall clock when their headers differ
	tip := fixtureHeader(config.UpgradeAnchorHeight, 2000000+720*config.TargetBlockTime, 1<<40)
	anchorHeader := fixtureHeader(config.UpgradeAnchorHeight-720, 2000000, 1<<42)

	now := tip.Timestamp + config.TargetBlockTime
	fromTip := ComputeDifficultyTarget(tip, now, config.UpgradeAnchorHeight+1)
	fromAnchor := ComputeDifficultyTarget(anchorHeader, now, config.UpgradeAnchorHeight+1)
	require.NotEqual(t, fromTip, fromAnchor)
	require.Equal(t, uint64(1<<40), fromTip)
}

func TestGetRewardByHeight(t *testing.T) {
	require.Equal(t, common.Fixed64(0), GetRewardByHeight(0))
	require.Equal(t, config.InitialReward, GetRewardByHeight(1))
	require.Equal(t, config.InitialReward, GetRewardByHeight(config.RewardHalvingInterval))
	require.Equal(t, config.InitialReward/2, GetRewardByHeight(config.RewardHalvingInterval+1))
	require.Equal(t, common.Fixed64(0), GetRewardByHeight(64*config.RewardHalvingInterval))
}
