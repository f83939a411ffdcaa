package common

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hashpool/snarkOS-1/api/common/errcode"
	"github.com/hashpool/snarkOS-1/block"
	"github.com/hashpool/snarkOS-1/chain"
	"github.com/hashpool/snarkOS-1/chain/pool"
	"github.com/hashpool/snarkOS-1/chain/store"
	"github.com/hashpool/snarkOS-1/common"
	"github.com/hashpool/snarkOS-1/config"
	"github.com/hashpool/snarkOS-1/node"
	"github.com/hashpool/snarkOS-1/por"
	"github.com/hashpool/snarkOS-1/transaction"
)

type testServerer struct {
	store        chain.ILedgerStore
	txnPool      *pool.TxnPool
	builder      *chain.TemplateBuilder
	operator     *por.Operator
	peers        *node.Peers
	proverRouter *node.Router
}

func (ts *testServerer) GetLedgerStore() chain.ILedgerStore { return ts.store }
func (ts *testServerer) GetTxnPool() *pool.TxnPool { return ts.txnPool }
func (ts *testServerer) GetTemplateBuilder() *chain.TemplateBuilder { return ts.builder }
func (ts *testServerer) GetOperator() *por.Operator { return ts.operator }
func (ts *testServerer) GetPeers() *node.Peers { return ts.peers }
func (ts *testServerer) GetProverRouter() *node.Router { return ts.proverRouter }
func (ts *testServerer) GetAddress() string { return "127.0.0.1:30003" }
func (ts *testServerer) Uptime() time.Duration { return 5 * time.Minute }

func hashFromBytes(bs ...byte) common.Uint256 {
	var h common.Uint256
	copy(h[:], bs)
	return h
}

func makeTxn(i byte, fee int64) *transaction.Transaction {
	return &transaction.Transaction{
		Transitions: []*transaction.Transition{{
			SerialNumbers: []common.Uint256{hashFromBytes(0x01, i)},
			Commitments:   []common.Uint256{hashFromBytes(0x02, i)},
			ValueBalance:  common.Fixed64(fee),
			Ciphertexts:   [][]byte{{0xc1, i}},
		}},
	}
}

func makeBlock(prev *block.Block, txns ...*transaction.Transaction) *block.Block {
	header := &block.Header{
		DifficultyTarget: config.GenesisDifficultyTarget,
		LedgerRoot:       hashFromBytes(0xaa),
	}
	if prev != nil {
		header.PreviousBlockHash = prev.Hash()
		header.Height = prev.Header.Height + 1
		header.Timestamp = prev.Header.Timestamp + config.TargetBlockTime
		header.CumulativeWeight = prev.Header.CumulativeWeight.SaturatingAddUint64(1)
	}
	return &block.Block{Header: header, Transactions: txns}
}

// newTestServerer builds a node fixture over a mem-backed chain of n
// blocks, one transaction per block past genesis.
func newTestServerer(t *testing.T, n int) (*testServerer, []*block.Block) {
	t.Helper()
	cs, err := store.NewMemLedgerStore()
	require.NoError(t, err)
	t.Cleanup(cs.Close)

	blocks := make([]*block.Block, 0, n)
	var prev *block.Block
	for i := 0; i < n; i++ {
		var b *block.Block
		if i == 0 {
			b = makeBlock(nil)
		} else {
			b = makeBlock(prev, makeTxn(byte(i), 1))
		}
		require.NoError(t, cs.SaveBlock(b))
		blocks = append(blocks, b)
		prev = b
	}

	txnPool := pool.NewTxnPool()
	ts := &testServerer{
		store:        cs,
		txnPool:      txnPool,
		builder:      chain.NewTemplateBuilder(cs, txnPool, config.UpgradedNetworkID),
		operator:     por.NewOperator(por.Address(testOperatorAddr), node.NewRouter("operator", 16)),
		peers:        node.NewPeers(node.NewRouter("peers", 16)),
		proverRouter: node.NewRouter("prover", 16),
	}
	return ts, blocks
}

var testOperatorAddr = "aleo1" + strings.Repeat("m", 58)

func respCode(t *testing.T, resp map[string]interface{}) errcode.ErrCode {
	t.Helper()
	code, ok := resp["error"].(errcode.ErrCode)
	require.True(t, ok, "response has no error code")
	return code
}

func requireSuccess(t *testing.T, resp map[string]interface{}) interface{} {
	t.Helper()
	require.Equal(t, errcode.SUCCESS, respCode(t, resp), "resultOrData: %v", resp["resultOrData"])
	return resp["resultOrData"]
}

func mailboxEmpty(r *node.Router) bool {
	select {
	case <-r.Receive():
		return false
	default:
		return true
	}
}

func TestGetBlocksWindow(t *testing.T) {
	ts, _ := newTestServerer(t, 60)
	ctx := context.Background()

	// a span wider than the window is narrowed to the last W heights
	resp := getBlocks(ts, map[string]interface{}{"start": float64(0), "end": float64(59)}, ctx)
	result := requireSuccess(t, resp).([]interface{})
	require.Len(t, result, int(config.MaxBlockRequest))
	first := result[0].(map[string]interface{})["header"].(map[string]interface{})
	require.Equal(t, float64(10), first["height"])

	// a span inside the window comes back whole
	resp = getBlocks(ts, map[string]interface{}{"start": float64(5), "end": float64(9)}, ctx)
	result = requireSuccess(t, resp).([]interface{})
	require.Len(t, result, 5)

	// start past end is the store's error, not a truncation
	resp = getBlocks(ts, map[string]interface{}{"start": float64(9), "end": float64(5)}, ctx)
	require.Equal(t, errcode.UNKNOWN_BLOCK, respCode(t, resp))

	resp = getBlockHashes(ts, map[string]interface{}{"start": float64(0), "end": float64(59)}, ctx)
	hashes := requireSuccess(t, resp).([]string)
	require.Len(t, hashes, int(config.MaxBlockRequest))
}

func TestLatestQueries(t *testing.T) {
	ts, blocks := newTestServerer(t, 4)
	ctx := context.Background()
	tip := blocks[3]

	require.Equal(t, uint32(3), requireSuccess(t, getLatestBlockHeight(ts, nil, ctx)))

	result := requireSuccess(t, getLatestBlockHash(ts, nil, ctx)).(map[string]interface{})
	require.Equal(t, tip.Hash().ToHexString(), result["hash"])

	root := requireSuccess(t, getLatestLedgerRoot(ts, nil, ctx))
	require.Equal(t, tip.Header.LedgerRoot.ToHexString(), root)

	weight := requireSuccess(t, getLatestCumulativeWeight(ts, nil, ctx))
	require.Equal(t, tip.Header.CumulativeWeight.String(), weight)

	txns := requireSuccess(t, getLatestBlockTransactions(ts, nil, ctx)).([]interface{})
	require.Len(t, txns, 1)
}

func TestBlockQueries(t *testing.T) {
	ts, blocks := newTestServerer(t, 4)
	ctx := context.Background()

	info := requireSuccess(t, getBlock(ts, map[string]interface{}{"height": float64(2)}, ctx)).(map[string]interface{})
	require.Equal(t, blocks[2].Hash().ToHexString(), info["hash"])

	resp := getBlock(ts, map[string]interface{}{"height": float64(42)}, ctx)
	require.Equal(t, errcode.UNKNOWN_BLOCK, respCode(t, resp))

	resp = getBlock(ts, nil, ctx)
	require.Equal(t, errcode.INVALID_PARAMS, respCode(t, resp))

	hash := requireSuccess(t, getBlockHash(ts, map[string]interface{}{"height": float64(1)}, ctx))
	require.Equal(t, blocks[1].Hash().ToHexString(), hash)

	height := requireSuccess(t, getBlockHeight(ts, map[string]interface{}{"hash": blocks[1].Hash().ToHexString()}, ctx))
	require.Equal(t, uint32(1), height)

	// malformed hex is an invalid hash; a missing parameter is not
	resp = getBlockHeight(ts, map[string]interface{}{"hash": "zz"}, ctx)
	require.Equal(t, errcode.INVALID_HASH, respCode(t, resp))
	resp = getBlockHeight(ts, nil, ctx)
	require.Equal(t, errcode.INVALID_PARAMS, respCode(t, resp))
}

func TestBlockInfoCache(t *testing.T) {
	ts, blocks := newTestServerer(t, 3)
	ctx := context.Background()
	params := map[string]interface{}{"height": float64(2)}

	first := requireSuccess(t, getBlock(ts, params, ctx))

	hash := blocks[2].Hash()
	cached, ok := blockInfoCache.Get(hash.ToArray())
	require.True(t, ok)
	require.Equal(t, first, cached)

	// the cached entry serves repeat queries unchanged
	second := requireSuccess(t, getBlock(ts, params, ctx))
	require.Equal(t, first, second)
}

func TestGetTransactionAndTransition(t *testing.T) {
	ts, blocks := newTestServerer(t, 3)
	ctx := context.Background()
	txn := blocks[2].Transactions[0]
	txID := txn.Hash()

	result := requireSuccess(t, getTransaction(ts, map[string]interface{}{"txid": txID.ToHexString()}, ctx)).(map[string]interface{})
	require.NotNil(t, result["transaction"])
	require.NotNil(t, result["metadata"])
	require.NotNil(t, result["decrypted_records"])

	resp := getTransaction(ts, map[string]interface{}{"txid": hashFromBytes(0xff).ToHexString()}, ctx)
	require.Equal(t, errcode.UNKNOWN_TRANSACTION, respCode(t, resp))

	resp = getTransaction(ts, map[string]interface{}{"txid": "zz"}, ctx)
	require.Equal(t, errcode.INVALID_HASH, respCode(t, resp))

	transitionID := txn.Transitions[0].ID()
	info := requireSuccess(t, getTransition(ts, map[string]interface{}{"transition_id": transitionID.ToHexString()}, ctx)).(map[string]interface{})
	require.Equal(t, transitionID.ToHexString(), info["id"])
}

func TestGetCiphertextAndProof(t *testing.T) {
	ts, blocks := newTestServerer(t, 2)
	ctx := context.Background()
	cm := blocks[1].Transactions[0].Transitions[0].Commitments[0]

	ct := requireSuccess(t, getCiphertext(ts, map[string]interface{}{"commitment": cm.ToHexString()}, ctx))
	require.Equal(t, "c101", ct)

	proof := requireSuccess(t, getLedgerProof(ts, map[string]interface{}{"commitment": cm.ToHexString()}, ctx))
	require.NotEmpty(t, proof)

	resp := getCiphertext(ts, map[string]interface{}{"commitment": hashFromBytes(0xee).ToHexString()}, ctx)
	require.Equal(t, errcode.UNKNOWN_COMMITMENT, respCode(t, resp))
}

func TestGetBlockTemplateHandler(t *testing.T) {
	ts, _ := newTestServerer(t, 3)
	ctx := context.Background()

	pending := makeTxn(0x50, 5)
	require.NoError(t, ts.txnPool.AppendTxnPool(pending))

	result := requireSuccess(t, getBlockTemplate(ts, nil, ctx)).(map[string]interface{})
	require.Equal(t, float64(3), result["block_height"])
	require.Equal(t, []interface{}{pending.ToHexString()}, result["transactions"])
}

func TestGetMemoryPool(t *testing.T) {
	ts, _ := newTestServerer(t, 1)
	ctx := context.Background()

	require.Empty(t, requireSuccess(t, getMemoryPool(ts, nil, ctx)))

	require.NoError(t, ts.txnPool.AppendTxnPool(makeTxn(0x50, 1)))
	require.Len(t, requireSuccess(t, getMemoryPool(ts, nil, ctx)).([]interface{}), 1)
}

func TestSendRawTransaction(t *testing.T) {
	ts, _ := newTestServerer(t, 1)
	ctx := context.Background()

	// malformed hex fails the decode and never reaches the mailbox
	resp := sendRawTransaction(ts, map[string]interface{}{"tx": "not-hex"}, ctx)
	require.Equal(t, errcode.INVALID_TRANSACTION, respCode(t, resp))
	require.True(t, mailboxEmpty(ts.proverRouter))

	// trailing bytes are rejected by the strict decode
	txn := makeTxn(0x51, 1)
	resp = sendRawTransaction(ts, map[string]interface{}{"tx": txn.ToHexString() + "00"}, ctx)
	require.Equal(t, errcode.INVALID_TRANSACTION, respCode(t, resp))
	require.True(t, mailboxEmpty(ts.proverRouter))

	txID := requireSuccess(t, sendRawTransaction(ts, map[string]interface{}{"tx": txn.ToHexString()}, ctx))
	hash := txn.Hash()
	require.Equal(t, hash.ToHexString(), txID)

	select {
	case msg := <-ts.proverRouter.Receive():
		req := msg.(node.ProverRequest)
		require.Equal(t, hash, req.UnconfirmedTransaction.Hash())
	default:
		t.Fatal("expected a dispatched prover request")
	}
}

func TestConnectPerAddressOutcomes(t *testing.T) {
	ts, _ := newTestServerer(t, 1)
	ctx := context.Background()

	resp := connectPeers(ts, map[string]interface{}{"addrs": []interface{}{
		"10.0.0.1:30001",
		"not an address",
		"10.0.0.2:70000",
		"10.0.0.3:30001",
	}}, ctx)
	results := requireSuccess(t, resp).([]map[string]interface{})
	require.Len(t, results, 4)

	require.Equal(t, "dispatched", results[0]["result"])
	require.Contains(t, results[1], "error")
	require.Contains(t, results[2], "error")
	require.Equal(t, "dispatched", results[3]["result"])

	// only the well-formed addresses reached the peers mailbox
	router := ts.peers.Router()
	require.False(t, mailboxEmpty(router))
	require.False(t, mailboxEmpty(router))
	require.True(t, mailboxEmpty(router))

	resp = connectPeers(ts, map[string]interface{}{"addrs": "nope"}, ctx)
	require.Equal(t, errcode.INVALID_PARAMS, respCode(t, resp))
}

func TestShareHandlers(t *testing.T) {
	ts, _ := newTestServerer(t, 1)
	ctx := context.Background()

	alice := "aleo1" + strings.Repeat("q", 58)
	bob := "aleo1" + strings.Repeat("p", 58)
	operatorRouter := ts.operator.Router()
	opCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ts.operator.Run(opCtx)

	operatorRouter.Send(ctx, por.CreditShareRequest{Round: 1, Prover: por.Address(alice), Shares: 3})
	operatorRouter.Send(ctx, por.CreditShareRequest{Round: 2, Prover: por.Address(bob), Shares: 4})

	require.Eventually(t, func() bool {
		return ts.operator.GetShares() == 7
	}, time.Second, 10*time.Millisecond)

	require.Equal(t, uint64(7), requireSuccess(t, getShares(ts, nil, ctx)))
	require.Equal(t, uint64(3), requireSuccess(t, getShareForProver(ts, map[string]interface{}{"prover": alice}, ctx)))

	// unknown prover: zero shares, not an error
	unknown := "aleo1" + strings.Repeat("z", 58)
	require.Equal(t, uint64(0), requireSuccess(t, getShareForProver(ts, map[string]interface{}{"prover": unknown}, ctx)))

	resp := getShareForProver(ts, map[string]interface{}{"prover": "malformed"}, ctx)
	require.Equal(t, errcode.INVALID_PARAMS, respCode(t, resp))

	provers := requireSuccess(t, getProvers(ts, nil, ctx)).([]string)
	require.ElementsMatch(t, []string{alice, bob}, provers)
}

func TestGetNodeState(t *testing.T) {
	ts, _ := newTestServerer(t, 2)
	ctx := context.Background()

	state := requireSuccess(t, getNodeState(ts, nil, ctx)).(map[string]interface{})
	require.Equal(t, config.SoftwareName, state["software"])
	require.Equal(t, config.Version, state["version"])
	require.Equal(t, "127.0.0.1:30003", state["addr"])
	require.Equal(t, testOperatorAddr, state["operator_address"])
	require.Equal(t, uint32(1), state["height"])
	require.Equal(t, "launched 5 minutes ago", state["status"])
}

func TestSafeStartHeight(t *testing.T) {
	w := config.MaxBlockRequest
	require.Equal(t, uint32(0), safeStartHeight(0, w-1))
	require.Equal(t, uint32(1), safeStartHeight(0, w))
	require.Equal(t, uint32(51), safeStartHeight(0, 100))
	require.Equal(t, uint32(60), safeStartHeight(60, 100))
	// small end never underflows
	require.Equal(t, uint32(0), safeStartHeight(0, 3))
}
