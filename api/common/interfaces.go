package common

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/hashpool/snarkOS-1/api/common/errcode"
	"github.com/hashpool/snarkOS-1/block"
	"github.com/hashpool/snarkOS-1/common"
	"github.com/hashpool/snarkOS-1/config"
	"github.com/hashpool/snarkOS-1/node"
	"github.com/hashpool/snarkOS-1/por"
	"github.com/hashpool/snarkOS-1/transaction"
)

const (
	BIT_JSONRPC   byte = 1
	BIT_WEBSOCKET byte = 2
)

type Handler func(Serverer, map[string]interface{}, context.Context) map[string]interface{}

type APIHandler struct {
	Handler    Handler
	AccessCtrl byte
}

// IsAccessableByJsonrpc return true if the handler is
// able to be invoked by jsonrpc
func (ah *APIHandler) IsAccessableByJsonrpc() bool {
	return ah.AccessCtrl&BIT_JSONRPC == BIT_JSONRPC
}

// IsAccessableByWebsocket return true if the handler is
// able to be invoked by websocket
func (ah *APIHandler) IsAccessableByWebsocket() bool {
	return ah.AccessCtrl&BIT_WEBSOCKET == BIT_WEBSOCKET
}

// safeStartHeight narrows a [start, end] range request to at most
// MaxBlockRequest items ending at end. Truncation is silent resource
// protection, not an error.
func safeStartHeight(start, end uint32) uint32 {
	w := config.MaxBlockRequest
	if end >= w-1 && start < end-(w-1) {
		return end - (w - 1)
	}
	return start
}

func heightParam(params map[string]interface{}) (uint32, bool) {
	h, ok := params["height"].(float64)
	if !ok {
		return 0, false
	}
	return uint32(h), true
}

func uint256Param(params map[string]interface{}, key string) (common.Uint256, map[string]interface{}) {
	s, ok := params[key].(string)
	if !ok {
		return common.EmptyUint256, respPacking(errcode.INVALID_PARAMS, fmt.Sprintf("parameter %q should be a hex string", key))
	}
	u, err := common.Uint256ParseFromHexString(s)
	if err != nil {
		return common.EmptyUint256, respPacking(errcode.INVALID_HASH, err.Error())
	}
	return u, nil
}

func unmarshalInfo(info []byte, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := json.Unmarshal(info, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// blockInfoCache memoizes the display form of a block by its hash.
// Blocks are immutable once stored, so entries never need invalidation
// and expiry is only memory pressure relief.
var blockInfoCache = common.NewGoCache(time.Hour, 10*time.Minute)

func blockInfo(b *block.Block) (interface{}, error) {
	hash := b.Hash()
	if info, ok := blockInfoCache.Get(hash.ToArray()); ok {
		return info, nil
	}
	info, err := unmarshalInfo(b.GetInfo())
	if err != nil {
		return nil, err
	}
	blockInfoCache.Add(hash.ToArray(), info)
	return info, nil
}

// getLatestBlock gets the block at the chain tip
// params: {}
// return: {"resultOrData":<result>|<error data>, "error":<errcode>}
func getLatestBlock(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	b, err := s.GetLedgerStore().GetLatestBlock()
	if err != nil {
		return respPacking(errcode.INTERNAL_ERROR, err.Error())
	}
	info, err := blockInfo(b)
	if err != nil {
		return respPacking(errcode.INTERNAL_ERROR, err.Error())
	}
	return respPacking(errcode.SUCCESS, info)
}

func getLatestBlockHeight(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	return respPacking(errcode.SUCCESS, s.GetLedgerStore().GetHeight())
}

// getLatestBlockHash gets the hash and height of the chain tip
// params: {}
// return: {"resultOrData":<result>|<error data>, "error":<errcode>}
func getLatestBlockHash(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	store := s.GetLedgerStore()
	hash := store.GetCurrentBlockHash()
	ret := map[string]interface{}{
		"height": store.GetHeight(),
		"hash":   hash.ToHexString(),
	}
	return respPacking(errcode.SUCCESS, ret)
}

func getLatestBlockHeader(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	header, err := s.GetLedgerStore().GetLatestHeader()
	if err != nil {
		return respPacking(errcode.INTERNAL_ERROR, err.Error())
	}
	info, err := unmarshalInfo(header.GetInfo())
	if err != nil {
		return respPacking(errcode.INTERNAL_ERROR, err.Error())
	}
	return respPacking(errcode.SUCCESS, info)
}

// getLatestBlockTransactions lists the transactions of the tip block
func getLatestBlockTransactions(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	b, err := s.GetLedgerStore().GetLatestBlock()
	if err != nil {
		return respPacking(errcode.INTERNAL_ERROR, err.Error())
	}
	return packTransactions(b.Transactions)
}

func getLatestCumulativeWeight(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	weight := s.GetLedgerStore().GetLatestCumulativeWeight()
	return respPacking(errcode.SUCCESS, weight.String())
}

func getLatestLedgerRoot(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	root := s.GetLedgerStore().GetLatestLedgerRoot()
	return respPacking(errcode.SUCCESS, root.ToHexString())
}

// getBlock gets block by height
// params: {"height":<height>}
// return: {"resultOrData":<result>|<error data>, "error":<errcode>}
func getBlock(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	height, ok := heightParam(params)
	if !ok {
		return respPacking(errcode.INVALID_PARAMS, "parameter should be height")
	}
	b, err := s.GetLedgerStore().GetBlockByHeight(height)
	if err != nil {
		return respPacking(errcode.UNKNOWN_BLOCK, err.Error())
	}
	info, err := blockInfo(b)
	if err != nil {
		return respPacking(errcode.INTERNAL_ERROR, err.Error())
	}
	return respPacking(errcode.SUCCESS, info)
}

// getBlocks gets the blocks in [start, end], truncated to the maximum
// request window
// params: {"start":<height>, "end":<height>}
// return: {"resultOrData":<result>|<error data>, "error":<errcode>}
func getBlocks(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	start, end, errResp := rangeParams(params)
	if errResp != nil {
		return errResp
	}
	blocks, err := s.GetLedgerStore().GetBlocks(safeStartHeight(start, end), end)
	if err != nil {
		return respPacking(errcode.UNKNOWN_BLOCK, err.Error())
	}
	infos := make([]interface{}, 0, len(blocks))
	for _, b := range blocks {
		info, err := blockInfo(b)
		if err != nil {
			return respPacking(errcode.INTERNAL_ERROR, err.Error())
		}
		infos = append(infos, info)
	}
	return respPacking(errcode.SUCCESS, infos)
}

func rangeParams(params map[string]interface{}) (uint32, uint32, map[string]interface{}) {
	start, ok := params["start"].(float64)
	if !ok {
		return 0, 0, respPacking(errcode.INVALID_PARAMS, "parameter start should be a height")
	}
	end, ok := params["end"].(float64)
	if !ok {
		return 0, 0, respPacking(errcode.INVALID_PARAMS, "parameter end should be a height")
	}
	return uint32(start), uint32(end), nil
}

// getBlockHeight gets the height of a block by its hash
// params: {"hash":<hash>}
// return: {"resultOrData":<result>|<error data>, "error":<errcode>}
func getBlockHeight(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	hash, errResp := uint256Param(params, "hash")
	if errResp != nil {
		return errResp
	}
	height, err := s.GetLedgerStore().GetHeightByBlockHash(hash)
	if err != nil {
		return respPacking(errcode.UNKNOWN_HASH, err.Error())
	}
	return respPacking(errcode.SUCCESS, height)
}

// getBlockHash gets the hash of the block at a height
// params: {"height":<height>}
// return: {"resultOrData":<result>|<error data>, "error":<errcode>}
func getBlockHash(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	height, ok := heightParam(params)
	if !ok {
		return respPacking(errcode.INVALID_PARAMS, "parameter should be height")
	}
	hash, err := s.GetLedgerStore().GetBlockHash(height)
	if err != nil {
		return respPacking(errcode.UNKNOWN_BLOCK, err.Error())
	}
	return respPacking(errcode.SUCCESS, hash.ToHexString())
}

// getBlockHashes gets the block hashes in [start, end], truncated to the
// maximum request window
// params: {"start":<height>, "end":<height>}
// return: {"resultOrData":<result>|<error data>, "error":<errcode>}
func getBlockHashes(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	start, end, errResp := rangeParams(params)
	if errResp != nil {
		return errResp
	}
	hashes, err := s.GetLedgerStore().GetBlockHashes(safeStartHeight(start, end), end)
	if err != nil {
		return respPacking(errcode.UNKNOWN_BLOCK, err.Error())
	}
	hexes := make([]string, len(hashes))
	for i := range hashes {
		hexes[i] = hashes[i].ToHexString()
	}
	return respPacking(errcode.SUCCESS, hexes)
}

func getBlockHeader(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	height, ok := heightParam(params)
	if !ok {
		return respPacking(errcode.INVALID_PARAMS, "parameter should be height")
	}
	header, err := s.GetLedgerStore().GetHeaderByHeight(height)
	if err != nil {
		return respPacking(errcode.UNKNOWN_BLOCK, err.Error())
	}
	info, err := unmarshalInfo(header.GetInfo())
	if err != nil {
		return respPacking(errcode.INTERNAL_ERROR, err.Error())
	}
	return respPacking(errcode.SUCCESS, info)
}

func getBlockTransactions(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	height, ok := heightParam(params)
	if !ok {
		return respPacking(errcode.INVALID_PARAMS, "parameter should be height")
	}
	b, err := s.GetLedgerStore().GetBlockByHeight(height)
	if err != nil {
		return respPacking(errcode.UNKNOWN_BLOCK, err.Error())
	}
	return packTransactions(b.Transactions)
}

func packTransactions(txns []*transaction.Transaction) map[string]interface{} {
	infos := make([]interface{}, 0, len(txns))
	for _, txn := range txns {
		info, err := unmarshalInfo(txn.GetInfo())
		if err != nil {
			return respPacking(errcode.INTERNAL_ERROR, err.Error())
		}
		infos = append(infos, info)
	}
	return respPacking(errcode.SUCCESS, infos)
}

// getBlockTemplate builds the candidate block template for miners
// params: {}
// return: {"resultOrData":<result>|<error data>, "error":<errcode>}
func getBlockTemplate(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	template, err := s.GetTemplateBuilder().BuildBlockTemplate(ctx)
	if err != nil {
		return respPacking(errcode.INVALID_BLOCK, err.Error())
	}
	b, err := json.Marshal(template)
	if err != nil {
		return respPacking(errcode.INTERNAL_ERROR, err.Error())
	}
	var info interface{}
	if err := json.Unmarshal(b, &info); err != nil {
		return respPacking(errcode.INTERNAL_ERROR, err.Error())
	}
	return respPacking(errcode.SUCCESS, info)
}

// getCiphertext gets the record ciphertext of a commitment
// params: {"commitment":<commitment>}
// return: {"resultOrData":<result>|<error data>, "error":<errcode>}
func getCiphertext(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	cm, errResp := uint256Param(params, "commitment")
	if errResp != nil {
		return errResp
	}
	ct, err := s.GetLedgerStore().GetCiphertext(cm)
	if err != nil {
		return respPacking(errcode.UNKNOWN_COMMITMENT, err.Error())
	}
	return respPacking(errcode.SUCCESS, hex.EncodeToString(ct))
}

// getLedgerProof gets the hex-encoded inclusion proof of a commitment
// params: {"commitment":<commitment>}
// return: {"resultOrData":<result>|<error data>, "error":<errcode>}
func getLedgerProof(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	cm, errResp := uint256Param(params, "commitment")
	if errResp != nil {
		return errResp
	}
	proof, err := s.GetLedgerStore().GetLedgerInclusionProof(cm)
	if err != nil {
		return respPacking(errcode.UNKNOWN_COMMITMENT, err.Error())
	}
	return respPacking(errcode.SUCCESS, hex.EncodeToString(proof))
}

func getMemoryPool(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	return packTransactions(s.GetTxnPool().GetAllTransactions())
}

// getTransaction gets a confirmed transaction with its ledger metadata
// and decrypted records
// params: {"txid":<transaction id>}
// return: {"resultOrData":<result>|<error data>, "error":<errcode>}
func getTransaction(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	txID, errResp := uint256Param(params, "txid")
	if errResp != nil {
		return errResp
	}
	store := s.GetLedgerStore()
	txn, err := store.GetTransaction(txID)
	if err != nil {
		return respPacking(errcode.UNKNOWN_TRANSACTION, err.Error())
	}
	meta, err := store.GetTransactionMetadata(txID)
	if err != nil {
		return respPacking(errcode.UNKNOWN_TRANSACTION, err.Error())
	}
	info, err := unmarshalInfo(txn.GetInfo())
	if err != nil {
		return respPacking(errcode.INTERNAL_ERROR, err.Error())
	}
	ret := map[string]interface{}{
		"transaction":       info,
		"metadata":          meta,
		"decrypted_records": txn.ToRecords(),
	}
	return respPacking(errcode.SUCCESS, ret)
}

func getTransition(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	transitionID, errResp := uint256Param(params, "transition_id")
	if errResp != nil {
		return errResp
	}
	t, err := s.GetLedgerStore().GetTransition(transitionID)
	if err != nil {
		return respPacking(errcode.UNKNOWN_TRANSITION, err.Error())
	}
	info, err := unmarshalInfo(t.GetInfo())
	if err != nil {
		return respPacking(errcode.INTERNAL_ERROR, err.Error())
	}
	return respPacking(errcode.SUCCESS, info)
}

func getConnectedPeers(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	return respPacking(errcode.SUCCESS, s.GetPeers().GetConnectedPeers())
}

// getNodeState gets the status document of this node
// params: {}
// return: {"resultOrData":<result>|<error data>, "error":<errcode>}
func getNodeState(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	store := s.GetLedgerStore()
	peers := s.GetPeers()
	uptimeMinutes := int64(s.Uptime().Minutes())
	hash := store.GetCurrentBlockHash()
	ret := map[string]interface{}{
		"addr":             s.GetAddress(),
		"operator_address": s.GetOperator().Address().String(),
		"candidate_peers":  peers.CountCandidates(),
		"connected_peers":  peers.CountConnected(),
		"sync_nodes":       peers.CountSyncNodes(),
		"height":           store.GetHeight(),
		"tip_hash":         hash.ToHexString(),
		"txn_pool_size":    s.GetTxnPool().GetTransactionCount(),
		"status":           fmt.Sprintf("launched %d minutes ago", uptimeMinutes),
		"software":         config.SoftwareName,
		"version":          config.Version,
		"protocol":         config.ProtocolVersion,
		"network_id":       config.Parameters.NetworkID,
	}
	return respPacking(errcode.SUCCESS, ret)
}

// sendRawTransaction decodes a hex transaction and hands it to the
// prover mailbox for propagation. Only the decode outcome is
// synchronous: a malformed payload fails here and nothing is
// dispatched; everything after a successful decode is fire and forget.
// params: {"tx":<hex transaction>}
// return: {"resultOrData":<result>|<error data>, "error":<errcode>}
func sendRawTransaction(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	str, ok := params["tx"].(string)
	if !ok {
		return respPacking(errcode.INVALID_PARAMS, "parameter tx should be a hex string")
	}
	txn, err := transaction.NewTransactionFromHexString(str)
	if err != nil {
		return respPacking(errcode.INVALID_TRANSACTION, err.Error())
	}

	s.GetProverRouter().Send(ctx, node.ProverRequest{UnconfirmedTransaction: txn})

	txID := txn.Hash()
	return respPacking(errcode.SUCCESS, txID.ToHexString())
}

// connectPeers dispatches a connect request per address. Each address is
// parsed independently; a malformed entry yields an error item in the
// result list and never affects the others.
// params: {"addrs":[<addr>, ...]}
// return: {"resultOrData":<result>|<error data>, "error":<errcode>}
func connectPeers(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	addrs, ok := params["addrs"].([]interface{})
	if !ok {
		return respPacking(errcode.INVALID_PARAMS, "parameter addrs should be a list")
	}

	router := s.GetPeers().Router()
	results := make([]map[string]interface{}, 0, len(addrs))
	for _, v := range addrs {
		addr, ok := v.(string)
		if !ok {
			results = append(results, map[string]interface{}{
				"addr":  fmt.Sprintf("%v", v),
				"error": "address should be a string",
			})
			continue
		}
		if err := validatePeerAddr(addr); err != nil {
			results = append(results, map[string]interface{}{
				"addr":  addr,
				"error": err.Error(),
			})
			continue
		}
		router.Send(ctx, node.PeersRequest{Addr: addr})
		results = append(results, map[string]interface{}{
			"addr":   addr,
			"result": "dispatched",
		})
	}
	return respPacking(errcode.SUCCESS, results)
}

func validatePeerAddr(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if host == "" {
		return fmt.Errorf("address %q: empty host", addr)
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return fmt.Errorf("address %q: invalid port %q", addr, port)
	}
	return nil
}

// getShareForProver gets one prover's total share count; an unknown
// prover has zero shares
// params: {"prover":<address>}
// return: {"resultOrData":<result>|<error data>, "error":<errcode>}
func getShareForProver(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	str, ok := params["prover"].(string)
	if !ok {
		return respPacking(errcode.INVALID_PARAMS, "parameter prover should be an address string")
	}
	prover, err := por.ToAddress(str)
	if err != nil {
		return respPacking(errcode.INVALID_PARAMS, err.Error())
	}
	return respPacking(errcode.SUCCESS, s.GetOperator().GetSharesForProver(prover))
}

func getShares(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	return respPacking(errcode.SUCCESS, s.GetOperator().GetShares())
}

func getProvers(s Serverer, params map[string]interface{}, ctx context.Context) map[string]interface{} {
	return respPacking(errcode.SUCCESS, s.GetOperator().GetProvers())
}

// InitialAPIHandlers is the set of method names exposed by both the
// jsonrpc and websocket servers.
func InitialAPIHandlers() map[string]APIHandler {
	return map[string]APIHandler{
		"latestblock":             {Handler: getLatestBlock, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"latestblockheight":       {Handler: getLatestBlockHeight, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"latestblockhash":         {Handler: getLatestBlockHash, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"latestblockheader":       {Handler: getLatestBlockHeader, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"latestblocktransactions": {Handler: getLatestBlockTransactions, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"latestcumulativeweight":  {Handler: getLatestCumulativeWeight, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"latestledgerroot":        {Handler: getLatestLedgerRoot, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"getblock":                {Handler: getBlock, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"getblocks":               {Handler: getBlocks, AccessCtrl: BIT_JSONRPC},
		"getblockheight":          {Handler: getBlockHeight, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"getblockhash":            {Handler: getBlockHash, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"getblockhashes":          {Handler: getBlockHashes, AccessCtrl: BIT_JSONRPC},
		"getblockheader":          {Handler: getBlockHeader, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"getblocktransactions":    {Handler: getBlockTransactions, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"getblocktemplate":        {Handler: getBlockTemplate, AccessCtrl: BIT_JSONRPC},
		"getciphertext":           {Handler: getCiphertext, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"getledgerproof":          {Handler: getLedgerProof, AccessCtrl: BIT_JSONRPC},
		"getmemorypool":           {Handler: getMemoryPool, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"gettransaction":          {Handler: getTransaction, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"gettransition":           {Handler: getTransition, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"getconnectedpeers":       {Handler: getConnectedPeers, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"getnodestate":            {Handler: getNodeState, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"sendrawtransaction":      {Handler: sendRawTransaction, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"connect":                 {Handler: connectPeers, AccessCtrl: BIT_JSONRPC},
		"getshareforprover":       {Handler: getShareForProver, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"getshares":               {Handler: getShares, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
		"getprovers":              {Handler: getProvers, AccessCtrl: BIT_JSONRPC | BIT_WEBSOCKET},
	}
}
