// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package quorum runs one committee's consensus round: the four-phase,
// RPCA-inspired agreement sequence every Authenticator or Tabulator
// round executes over its fixed Roster, generic over the committee's
// ledger state type S.
package quorum

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/luxfi/votechain/block"
	"github.com/luxfi/votechain/committee"
	"github.com/luxfi/votechain/signing"
	"github.com/luxfi/votechain/txmodel"
)

// CommitThreshold is the minimum approval ratio — votes from peers that
// also verified a transaction, divided by total committee size — a
// transaction needs to be committed in a round.
const CommitThreshold = 0.8

// ErrOutOfSync is recorded against a node whose chain head does not
// match the committee's majority head at the start of a round. An
// out-of-sync node sits out phases B through D entirely: it neither
// votes nor commits until it resynchronizes, matching a silently
// non-participating or forked replica's effect on the round rather than
// crashing it.
var ErrOutOfSync = errors.New("quorum: node head does not match committee majority")

// Result is one round's outcome across every node in a Roster.
type Result struct {
	// Committed maps each participating node to the block it committed
	// this round (nil if the round produced no committable
	// transactions for that node).
	Committed map[signing.Identity]*block.Block
	// OutOfSync lists nodes phase A excluded from the round.
	OutOfSync map[signing.Identity]error
	// Rejected maps each node to the admission rejections it recorded
	// for transactions it saw this round.
	Rejected map[signing.Identity]map[string]error
}

// headCounts tallies how many nodes in the roster report each head
// hash, so phase A can identify the majority.
func headCounts[S any](roster *committee.Roster[S]) map[block.Hash]int {
	counts := make(map[block.Hash]int, roster.Size())
	for _, node := range roster.Nodes {
		counts[node.Chain().Head().Hash()]++
	}
	return counts
}

// agreeOnHead runs phase A: every node compares its chain head against
// the rest of the committee, and any node not on the majority head is
// excluded from the rest of the round.
func agreeOnHead[S any](roster *committee.Roster[S]) (majority block.Hash, outOfSync map[signing.Identity]error) {
	counts := headCounts(roster)
	var best block.Hash
	bestCount := -1
	for hash, count := range counts {
		if count > bestCount {
			best, bestCount = hash, count
		}
	}

	outOfSync = make(map[signing.Identity]error)
	for _, node := range roster.Nodes {
		if node.Chain().Head().Hash() != best {
			outOfSync[node.ID] = fmt.Errorf("%w: node %x", ErrOutOfSync, node.ID)
		}
	}
	return best, outOfSync
}

// broadcastAndVote runs phases B and C for the nodes participating this
// round: every pending transaction is broadcast to every participating
// node (phase B, each node running its own admission algorithm and
// earlier-timestamp conflict resolution), then every node tallies, for
// each transaction it itself verified, how many of its peers also
// verified it (phase C) — a node only ever votes on transactions it
// already knows itself, so a minority of dishonest peers can never
// inject an unseen transaction into the tally.
func broadcastAndVote[S any](participants []*committee.Node[S], pending []*txmodel.Transaction) map[signing.Identity]map[string]error {
	rejections := make(map[signing.Identity]map[string]error, len(participants))
	for _, node := range participants {
		rejections[node.ID] = make(map[string]error)
	}

	for _, tx := range pending {
		for _, node := range participants {
			if err := node.Admit(tx); err != nil {
				rejections[node.ID][tx.Key()] = err
			}
		}
	}

	for _, node := range participants {
		for _, tx := range node.Verified() {
			for _, peer := range participants {
				if peer.ID == node.ID {
					continue
				}
				if peer.Knows(tx) {
					node.RecordVote(tx)
				}
			}
		}
	}
	return rejections
}

// commit runs phase D: every participating node independently computes
// its own approved set — the transactions whose vote count over total
// committee size clears CommitThreshold — and, if non-empty, proposes a
// block carrying it. Honest nodes that broadcast and admitted
// identically converge on the same approved set and so the same block
// hash; a node's approved set can only ever differ because of earlier
// phases (it was out of sync, or a dishonest peer gave it a divergent
// view), not because of anything phase D itself does non-
// deterministically — the approved set is built by sorting candidate
// transactions by hash, so two nodes computing the same set always
// build the same block.
func commit[S any](participants []*committee.Node[S], committeeSize int, at time.Time) (map[signing.Identity]*block.Block, error) {
	committed := make(map[signing.Identity]*block.Block, len(participants))
	for _, node := range participants {
		var approved []*txmodel.Transaction
		for _, tx := range node.Verified() {
			ratio := float64(node.VoteCount(tx)) / float64(committeeSize)
			if ratio >= CommitThreshold {
				approved = append(approved, tx)
			}
		}
		if len(approved) == 0 {
			committed[node.ID] = nil
			continue
		}
		sort.Slice(approved, func(i, j int) bool {
			ai, bi := approved[i].Hash(), approved[j].Hash()
			for k := range ai {
				if ai[k] != bi[k] {
					return ai[k] < bi[k]
				}
			}
			return false
		})

		blk, err := node.Commit(at, approved)
		if err != nil {
			return nil, fmt.Errorf("quorum: commit: node %x: %w", node.ID, err)
		}
		committed[node.ID] = blk
	}
	return committed, nil
}

// RunRound executes one complete four-phase round over roster against
// pending, the transactions submitted to this committee since the last
// round, at the given round timestamp. Every participating node has its
// round pools reset once the round completes, win or lose, so the next
// round starts clean.
func RunRound[S any](roster *committee.Roster[S], pending []*txmodel.Transaction, at time.Time) (*Result, error) {
	_, outOfSync := agreeOnHead(roster)

	participants := make([]*committee.Node[S], 0, roster.Size())
	for _, node := range roster.Nodes {
		if _, excluded := outOfSync[node.ID]; excluded {
			continue
		}
		participants = append(participants, node)
	}

	rejected := broadcastAndVote(participants, pending)
	committed, err := commit(participants, roster.Size(), at)
	if err != nil {
		return nil, err
	}

	for _, node := range participants {
		node.ResetRound()
	}

	return &Result{Committed: committed, OutOfSync: outOfSync, Rejected: rejected}, nil
}
