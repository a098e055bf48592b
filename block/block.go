// Package block implements the replicated, generic block chain both
// committees advance: a Block carries the transactions one consensus
// round committed, chained by hash to its parent, and a Chain folds
// each block's transactions into a ledger state of type S.
package block

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/votechain/codec"
	"github.com/luxfi/votechain/txmodel"
)

// ErrParentMismatch is returned when a block's declared parent hash
// does not match the chain's current head.
var ErrParentMismatch = errors.New("block: parent hash does not match chain head")

// Hash identifies a Block by the digest of its canonical encoding.
type Hash [32]byte

// Block is one committed round's output: the transactions a committee
// agreed on, chained to the block before it.
type Block struct {
	Height       uint64
	Parent       Hash
	Timestamp    time.Time
	Transactions []*txmodel.Transaction
}

// computeHash derives b's Hash from its height, parent, minute-
// truncated timestamp, and the hash of each transaction in order, so
// two blocks with the same transactions in a different order hash
// differently — round order is part of a block's identity.
func (b *Block) computeHash() Hash {
	enc := codec.NewBuilder().
		Add(fmt.Sprintf("%d", b.Height)).
		AddBytes(b.Parent[:]).
		Add(codec.FormatMinute(b.Timestamp))
	for _, tx := range b.Transactions {
		h := tx.Hash()
		enc.AddBytes(h[:])
	}
	return sha256.Sum256(enc.Bytes())
}

// Hash returns b's identity hash.
func (b *Block) Hash() Hash {
	return b.computeHash()
}

// Applier folds one transaction into a ledger state of type S,
// returning the resulting state. It is the only place committee-
// specific ledger semantics live; Chain itself is oblivious to what S
// represents.
type Applier[S any] func(state S, tx *txmodel.Transaction) (S, error)

// Chain is the replicated append-only history a single committee Node
// keeps: a sequence of Blocks and the ledger state they fold into,
// parameterized by the ledger's state type S (ledger/authledger.State
// or ledger/tallyledger.State).
type Chain[S any] struct {
	apply  Applier[S]
	blocks []*Block
	state  S
}

// NewGenesis starts a Chain at height 0 with the given initial state
// and no transactions.
func NewGenesis[S any](genesisState S, apply Applier[S], at time.Time) *Chain[S] {
	genesis := &Block{Height: 0, Timestamp: at}
	return &Chain[S]{
		apply:  apply,
		blocks: []*Block{genesis},
		state:  genesisState,
	}
}

// Head returns the chain's most recently appended block.
func (c *Chain[S]) Head() *Block {
	return c.blocks[len(c.blocks)-1]
}

// State returns the ledger state as of Head.
func (c *Chain[S]) State() S {
	return c.state
}

// Height returns the height of Head.
func (c *Chain[S]) Height() uint64 {
	return c.Head().Height
}

// Propose folds txs into the chain's state in order and, if every fold
// succeeds, appends a new Block carrying them and chained to the
// current head. On the first failing transaction, Propose returns the
// wrapped error and leaves the chain unmodified — a round never
// partially commits a block.
func (c *Chain[S]) Propose(at time.Time, txs []*txmodel.Transaction) (*Block, error) {
	state := c.state
	for _, tx := range txs {
		next, err := c.apply(state, tx)
		if err != nil {
			return nil, fmt.Errorf("block: propose: %w", err)
		}
		state = next
	}

	block := &Block{
		Height:       c.Head().Height + 1,
		Parent:       c.Head().Hash(),
		Timestamp:    at,
		Transactions: txs,
	}
	c.blocks = append(c.blocks, block)
	c.state = state
	return block, nil
}

// Append validates that block chains onto the current head and, if so,
// replays its transactions to advance the state, mirroring what a peer
// that did not itself propose the block does when it learns of it.
func (c *Chain[S]) Append(block *Block) error {
	if block.Parent != c.Head().Hash() {
		return ErrParentMismatch
	}
	state := c.state
	for _, tx := range block.Transactions {
		next, err := c.apply(state, tx)
		if err != nil {
			return fmt.Errorf("block: append: %w", err)
		}
		state = next
	}
	c.blocks = append(c.blocks, block)
	c.state = state
	return nil
}
