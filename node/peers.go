package node

import (
	"context"
	"sync"

	"github.com/hashpool/snarkOS-1/util/log"
)

// Peers is the peer registry. Connection state changes arrive through
// its mailbox only; queries read a consistent snapshot under the lock.
// The actual dialing and handshake belong to the p2p subsystem, which
// reports outcomes back through the same mailbox.
type Peers struct {
	sync.RWMutex
	candidates map[string]struct{}
	connected  map[string]struct{}
	syncNodes  map[string]struct{}

	router *Router
}

func NewPeers(router *Router) *Peers {
	return &Peers{
		candidates: make(map[string]struct{}),
		connected:  make(map[string]struct{}),
		syncNodes:  make(map[string]struct{}),
		router:     router,
	}
}

func (p *Peers) Router() *Router {
	return p.router
}

// Run drains the peers mailbox until the context ends. Each request
// registers the target as a connection candidate; the p2p layer picks
// candidates up from the registry.
func (p *Peers) Run(ctx context.Context) {
	for {
		select {
		case msg, ok := <-p.router.Receive():
			if !ok {
				return
			}
			req, ok := msg.(PeersRequest)
			if !ok {
				log.Warningf("peers mailbox: unexpected message type %T", msg)
				continue
			}
			p.AddCandidate(req.Addr)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Peers) AddCandidate(addr string) {
	p.Lock()
	defer p.Unlock()
	if _, ok := p.connected[addr]; ok {
		return
	}
	p.candidates[addr] = struct{}{}
	log.Debugf("peer candidate added: %s", addr)
}

// SetConnected promotes an address to connected. isSyncNode marks peers
// currently serving block sync.
func (p *Peers) SetConnected(addr string, isSyncNode bool) {
	p.Lock()
	defer p.Unlock()
	delete(p.candidates, addr)
	p.connected[addr] = struct{}{}
	if isSyncNode {
		p.syncNodes[addr] = struct{}{}
	}
}

func (p *Peers) SetDisconnected(addr string) {
	p.Lock()
	defer p.Unlock()
	delete(p.connected, addr)
	delete(p.syncNodes, addr)
}

func (p *Peers) GetConnectedPeers() []string {
	p.RLock()
	defer p.RUnlock()
	addrs := make([]string, 0, len(p.connected))
	for addr := range p.connected {
		addrs = append(addrs, addr)
	}
	return addrs
}

func (p *Peers) CountCandidates() int {
	p.RLock()
	defer p.RUnlock()
	return len(p.candidates)
}

func (p *Peers) CountConnected() int {
	p.RLock()
	defer p.RUnlock()
	return len(p.connected)
}

func (p *Peers) CountSyncNodes() int {
	p.RLock()
	defer p.RUnlock()
	return len(p.syncNodes)
}
