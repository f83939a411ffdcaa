package lnode

import (
	"context"
	"fmt"
	"time"

	"github.com/hashpool/snarkOS-1/chain"
	"github.com/hashpool/snarkOS-1/chain/pool"
	"github.com/hashpool/snarkOS-1/config"
	"github.com/hashpool/snarkOS-1/node"
	"github.com/hashpool/snarkOS-1/por"
	"github.com/hashpool/snarkOS-1/util/log"
)

// LocalNode wires the subsystems of one running node together and is the
// surface the API handlers run against. Every collaborator, including
// every mailbox, is injected here; nothing reaches for globals.
type LocalNode struct {
	store           chain.ILedgerStore
	txnPool         *pool.TxnPool
	templateBuilder *chain.TemplateBuilder
	operator        *por.Operator
	peers           *node.Peers

	proverRouter *node.Router
	ledgerRouter *node.Router

	addr      string
	startTime time.Time
}

func NewLocalNode(store chain.ILedgerStore, txnPool *pool.TxnPool, operator *por.Operator, peers *node.Peers, proverRouter, ledgerRouter *node.Router) *LocalNode {
	return &LocalNode{
		store:           store,
		txnPool:         txnPool,
		templateBuilder: chain.NewTemplateBuilder(store, txnPool, config.Parameters.NetworkID),
		operator:        operator,
		peers:           peers,
		proverRouter:    proverRouter,
		ledgerRouter:    ledgerRouter,
		addr:            fmt.Sprintf("0.0.0.0:%d", config.Parameters.HttpJsonPort),
		startTime:       time.Now(),
	}
}

// Run drains the ledger and prover mailboxes until the context ends. A
// decoded unconfirmed transaction is admitted to the local pool; its
// network propagation belongs to the p2p layer. A ledger request
// persists the block and evicts the transactions it confirmed.
func (ln *LocalNode) Run(ctx context.Context) {
	for {
		select {
		case msg, ok := <-ln.ledgerRouter.Receive():
			if !ok {
				return
			}
			req, ok := msg.(node.LedgerRequest)
			if !ok {
				log.Warningf("ledger mailbox: unexpected message type %T", msg)
				continue
			}
			if err := ln.store.SaveBlock(req.Block); err != nil {
				log.Errorf("save block: %v", err)
				continue
			}
			ln.txnPool.RemoveConfirmed(req.Block.Transactions)
		case msg, ok := <-ln.proverRouter.Receive():
			if !ok {
				return
			}
			req, ok := msg.(node.ProverRequest)
			if !ok {
				log.Warningf("prover mailbox: unexpected message type %T", msg)
				continue
			}
			if err := ln.txnPool.AppendTxnPool(req.UnconfirmedTransaction); err != nil {
				txID := req.UnconfirmedTransaction.Hash()
				log.Warningf("append txn %s: %v", txID.ToHexString(), err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (ln *LocalNode) GetLedgerStore() chain.ILedgerStore {
	return ln.store
}

func (ln *LocalNode) GetTxnPool() *pool.TxnPool {
	return ln.txnPool
}

func (ln *LocalNode) GetTemplateBuilder() *chain.TemplateBuilder {
	return ln.templateBuilder
}

func (ln *LocalNode) GetOperator() *por.Operator {
	return ln.operator
}

func (ln *LocalNode) GetPeers() *node.Peers {
	return ln.peers
}

func (ln *LocalNode) GetProverRouter() *node.Router {
	return ln.proverRouter
}

func (ln *LocalNode) GetLedgerRouter() *node.Router {
	return ln.ledgerRouter
}

func (ln *LocalNode) GetAddress() string {
	return ln.addr
}

func (ln *LocalNode) Uptime() time.Duration {
	return time.Since(ln.startTime)
}
