package common

import (
	"time"

	"github.com/hashpool/snarkOS-1/api/common/errcode"
	"github.com/hashpool/snarkOS-1/chain"
	"github.com/hashpool/snarkOS-1/chain/pool"
	"github.com/hashpool/snarkOS-1/node"
	"github.com/hashpool/snarkOS-1/por"
)

// Serverer is the node surface handlers run against. All collaborators
// are injected when the serving node is assembled; handlers never reach
// for globals.
type Serverer interface {
	GetLedgerStore() chain.ILedgerStore
	GetTxnPool() *pool.TxnPool
	GetTemplateBuilder() *chain.TemplateBuilder
	GetOperator() *por.Operator
	GetPeers() *node.Peers
	GetProverRouter() *node.Router
	GetAddress() string
	Uptime() time.Duration
}

// Response for json API.
// errcode: The error code to return to client, see api/common/errcode
// resultOrData: If the errcode is 0, then data is used as the 'result' of
// JsonRPC. Otherwise, as a extra error message to 'data' of JsonRPC.
func respPacking(code errcode.ErrCode, resultOrData interface{}) map[string]interface{} {
	resp := map[string]interface{}{
		"error":        code,
		"resultOrData": resultOrData,
	}
	return resp
}

func RespPacking(result interface{}, code errcode.ErrCode) map[string]interface{} {
	return respPacking(code, result)
}
