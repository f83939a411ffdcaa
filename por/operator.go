package por

import (
	"context"
	"sync"

	"github.com/hashpool/snarkOS-1/node"
	"github.com/hashpool/snarkOS-1/util/log"
)

// CreditShareRequest credits a prover with shares in a mining round. It
// is produced by the pool coordination subsystem and consumed only by
// the Operator's mailbox loop.
type CreditShareRequest struct {
	Round  uint32
	Prover Address
	Shares uint64
}

// RegisterProverRequest adds a prover to the registry without crediting
// shares, typically on pool join.
type RegisterProverRequest struct {
	Prover Address
}

// Operator is the mining-pool operator state: the share ledger (round to
// prover to accumulated count) and the prover registry. All writes flow
// through the operator mailbox; reads are pure and lock-guarded. Share
// counts only ever grow.
type Operator struct {
	mu      sync.RWMutex
	shares  map[uint32]map[Address]uint64
	provers map[Address]struct{}

	addr   Address
	router *node.Router
}

func NewOperator(addr Address, router *node.Router) *Operator {
	return &Operator{
		shares:  make(map[uint32]map[Address]uint64),
		provers: make(map[Address]struct{}),
		addr:    addr,
		router:  router,
	}
}

// Address returns the operator's configured pool address. It is empty
// when the node runs without an operator identity.
func (op *Operator) Address() Address {
	return op.addr
}

func (op *Operator) Router() *node.Router {
	return op.router
}

// Run drains the operator mailbox until the context ends.
func (op *Operator) Run(ctx context.Context) {
	for {
		select {
		case msg, ok := <-op.router.Receive():
			if !ok {
				return
			}
			switch req := msg.(type) {
			case CreditShareRequest:
				op.creditShare(req.Round, req.Prover, req.Shares)
			case RegisterProverRequest:
				op.registerProver(req.Prover)
			default:
				log.Warningf("operator mailbox: unexpected message type %T", msg)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (op *Operator) creditShare(round uint32, prover Address, shares uint64) {
	op.mu.Lock()
	defer op.mu.Unlock()
	roundShares, ok := op.shares[round]
	if !ok {
		roundShares = make(map[Address]uint64)
		op.shares[round] = roundShares
	}
	roundShares[prover] += shares
	op.provers[prover] = struct{}{}
}

func (op *Operator) registerProver(prover Address) {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.provers[prover] = struct{}{}
}

// GetShares returns the total share count across all rounds and provers.
func (op *Operator) GetShares() uint64 {
	op.mu.RLock()
	defer op.mu.RUnlock()
	var total uint64
	for _, roundShares := range op.shares {
		for _, n := range roundShares {
			total += n
		}
	}
	return total
}

// GetSharesForProver returns one prover's total across all rounds. A
// prover with no credited rounds has zero shares; absence is not an
// error.
func (op *Operator) GetSharesForProver(prover Address) uint64 {
	op.mu.RLock()
	defer op.mu.RUnlock()
	var total uint64
	for _, roundShares := range op.shares {
		total += roundShares[prover]
	}
	return total
}

// GetProvers returns the known prover set in no particular order.
func (op *Operator) GetProvers() []string {
	op.mu.RLock()
	defer op.mu.RUnlock()
	provers := make([]string, 0, len(op.provers))
	for prover := range op.provers {
		provers = append(provers, prover.String())
	}
	return provers
}
