package node

import (
	"github.com/hashpool/snarkOS-1/block"
	"github.com/hashpool/snarkOS-1/transaction"
)

// ProverRequest asks the proving subsystem to verify and propagate an
// unconfirmed transaction. Delivery is fire and forget; the sender has
// already validated nothing beyond the wire decode.
type ProverRequest struct {
	UnconfirmedTransaction *transaction.Transaction
}

// PeersRequest asks the peer registry to dial one remote address.
type PeersRequest struct {
	Addr string
}

// LedgerRequest carries a mined or received block to the ledger
// subsystem for validation and persistence.
type LedgerRequest struct {
	Block *block.Block
}
