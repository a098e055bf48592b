// Package committee implements the replicated node a committee
// (Authenticator or Tabulator) is made of: its local ledger chain, the
// pools of transactions it has verified, rejected, or is tallying votes
// for, and the admission algorithm every transaction must pass before
// it is eligible for a consensus round. Node and Roster are generic
// over the ledger state type S so the same admission machinery serves
// both committees.
package committee

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/votechain/block"
	"github.com/luxfi/votechain/signing"
	"github.com/luxfi/votechain/txmodel"
)

// ContentValidator checks a Transaction's content against a committee's
// own rules and current ledger state — spec's two rule sets
// (Authenticator admission, Tabulator admission) are each one
// implementation of this interface (package authn, package tally).
type ContentValidator[S any] interface {
	Validate(state S, tx *txmodel.Transaction) error
}

// PeerDirectory is the fixed set of signer identities, besides its
// own, whose transactions a Node admits. Package sim fills it with the
// voter roll's identities (voters sign their own transactions), not
// with the identities of the other nodes in the committee. It never
// changes once a Node is constructed, matching the Non-goal on dynamic
// membership:
// the directory is read-only after setup, so sharing one across every
// node in a committee is safe even though the per-node mutable pools
// below are not.
type PeerDirectory map[signing.Identity]struct{}

// NewPeerDirectory builds a PeerDirectory over ids.
func NewPeerDirectory(ids ...signing.Identity) PeerDirectory {
	d := make(PeerDirectory, len(ids))
	for _, id := range ids {
		d[id] = struct{}{}
	}
	return d
}

// Recognizes reports whether id is in the directory.
func (d PeerDirectory) Recognizes(id signing.Identity) bool {
	_, ok := d[id]
	return ok
}

// Node is one replica of a committee: a ledger Chain, the validation
// rules this committee enforces, and the pools of transactions at
// various stages of a round. The pools are guarded by mu so a Node is
// safe to drive from multiple goroutines even though the reference
// driver (package sim) calls every node's methods from a single
// goroutine per spec's single-threaded round model.
type Node[S any] struct {
	ID        signing.Identity
	peers     PeerDirectory
	validator ContentValidator[S]
	chain     *block.Chain[S]

	mu          sync.Mutex
	verified    map[string]*txmodel.Transaction // tx hash (hex) -> tx
	byKey       map[string]string               // content Key -> tx hash, for conflict detection
	rejected    map[string]error                // tx hash (hex) -> rejection reason
	votes       map[string]int                  // tx hash (hex) -> peer votes received this round
}

// NewNode constructs a Node around chain, enforcing validator's rules
// at admission and accepting transactions only from signers in peers
// or from the node itself.
func NewNode[S any](id signing.Identity, chain *block.Chain[S], validator ContentValidator[S], peers PeerDirectory) *Node[S] {
	return &Node[S]{
		ID:        id,
		peers:     peers,
		validator: validator,
		chain:     chain,
		verified:  make(map[string]*txmodel.Transaction),
		byKey:     make(map[string]string),
		rejected:  make(map[string]error),
		votes:     make(map[string]int),
	}
}

// Chain exposes the node's ledger chain.
func (n *Node[S]) Chain() *block.Chain[S] {
	return n.chain
}

func hashKey(tx *txmodel.Transaction) string {
	h := tx.Hash()
	return hex.EncodeToString(h[:])
}

// Admit runs a transaction through the node's admission algorithm:
//  1. reject with ErrUnrecognizedNode if the signer is not in the
//     node's peer directory or the node itself,
//  2. verify its signature,
//  3. validate its content against the committee's rules and current
//     ledger state,
//  4. resolve any conflict against an already-verified transaction for
//     the same logical key — the earlier-timestamped transaction wins,
//  5. add it to the verified pool.
//
// A transaction that fails any step is recorded in the rejected pool
// with its reason and Admit returns that reason.
func (n *Node[S]) Admit(tx *txmodel.Transaction) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	key := hashKey(tx)

	if tx.Signer != n.ID && !n.peers.Recognizes(tx.Signer) {
		err := fmt.Errorf("%w: %x", txmodel.ErrUnrecognizedNode, tx.Signer)
		n.rejected[key] = err
		return err
	}
	if err := tx.VerifySignature(); err != nil {
		n.rejected[key] = err
		return err
	}
	if err := n.validator.Validate(n.chain.State(), tx); err != nil {
		n.rejected[key] = err
		return err
	}
	if existingHash, conflict := n.byKey[tx.Key()]; conflict {
		existing := n.verified[existingHash]
		if existing != nil && !tx.Timestamp.Before(existing.Timestamp) {
			err := fmt.Errorf("%w: %s", txmodel.ErrConflictingTransaction, tx.Key())
			n.rejected[key] = err
			return err
		}
		delete(n.verified, existingHash)
	}

	n.verified[key] = tx
	n.byKey[tx.Key()] = key
	delete(n.rejected, key)
	return nil
}

// Verified returns every transaction currently in the verified pool.
// Order is not significant; callers that need a stable order (block
// construction) sort by what they need.
func (n *Node[S]) Verified() []*txmodel.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*txmodel.Transaction, 0, len(n.verified))
	for _, tx := range n.verified {
		out = append(out, tx)
	}
	return out
}

// Knows reports whether tx is in this node's verified pool, keyed by
// its hash — phase C tallying only counts votes for transactions a
// node already verified itself, so a minority of byzantine nodes can
// never inject a transaction into the tally by voting for one no
// honest node has seen.
func (n *Node[S]) Knows(tx *txmodel.Transaction) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.verified[hashKey(tx)]
	return ok
}

// RecordVote tallies one peer's vote for tx, provided this node already
// knows tx itself.
func (n *Node[S]) RecordVote(tx *txmodel.Transaction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := hashKey(tx)
	if _, known := n.verified[key]; !known {
		return
	}
	n.votes[key]++
}

// VoteCount reports how many votes tx has received this round.
func (n *Node[S]) VoteCount(tx *txmodel.Transaction) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.votes[hashKey(tx)]
}

// RejectionReason returns why tx was rejected, if it was.
func (n *Node[S]) RejectionReason(tx *txmodel.Transaction) (error, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err, ok := n.rejected[hashKey(tx)]
	return err, ok
}

// Commit proposes a new block carrying txs onto the node's chain,
// advancing its ledger state.
func (n *Node[S]) Commit(at time.Time, txs []*txmodel.Transaction) (*block.Block, error) {
	return n.chain.Propose(at, txs)
}

// ResetRound clears the verified/rejected/vote pools at the end of a
// round, once its outcome has been committed. Transactions that
// committed are already folded into the chain's state; everything else
// must be resubmitted in a later round to be reconsidered.
func (n *Node[S]) ResetRound() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verified = make(map[string]*txmodel.Transaction)
	n.byKey = make(map[string]string)
	n.rejected = make(map[string]error)
	n.votes = make(map[string]int)
}

// Peer is the read-only view of a Node that transactions are broadcast
// to: exactly the surface phase B (admit) needs, without exposing a
// node's own chain to its peers. Phase C voting (package quorum) calls
// Knows and RecordVote on *Node directly, not through Peer.
type Peer interface {
	Admit(tx *txmodel.Transaction) error
}

// Roster is the fixed set of Nodes making up one committee. Roster
// membership never changes mid-simulation, matching the Non-goal on
// dynamic membership.
type Roster[S any] struct {
	Nodes []*Node[S]
}

// NewRoster builds a Roster over nodes.
func NewRoster[S any](nodes ...*Node[S]) *Roster[S] {
	return &Roster[S]{Nodes: nodes}
}

// Size returns the committee's peer count.
func (r *Roster[S]) Size() int {
	return len(r.Nodes)
}

// Broadcast admits tx at every node in the roster and returns how many
// accepted it, alongside the individual per-node outcome.
func (r *Roster[S]) Broadcast(tx *txmodel.Transaction) (accepted int, outcomes map[signing.Identity]error) {
	outcomes = make(map[signing.Identity]error, len(r.Nodes))
	for _, node := range r.Nodes {
		err := node.Admit(tx)
		outcomes[node.ID] = err
		if err == nil {
			accepted++
		}
	}
	return accepted, outcomes
}
