// Package authledger is the Authenticator committee's ledger state: how
// many claim tickets each voter on the roll has left to be issued.
package authledger

import (
	"errors"
	"fmt"

	"github.com/luxfi/votechain/election"
	"github.com/luxfi/votechain/signing"
	"github.com/luxfi/votechain/txmodel"
)

// ErrUnknownVoterState is returned when a transaction names a voter
// this ledger was never seeded with.
var ErrUnknownVoterState = errors.New("authledger: voter not on roll")

// ErrCounterUnderflow guards an invariant Apply relies on content
// validation to have already enforced: a committed VoterTx must never
// be admitted for a voter with no tickets remaining. Seeing this means
// a transaction reached Apply without having been checked against
// ErrNotEnoughClaimTickets first, which is a bug in the admitting node,
// not a condition callers should recover from.
var ErrCounterUnderflow = errors.New("authledger: voter ticket counter would go negative")

// State maps each voter on the roll to the number of claim tickets they
// have left to be issued.
type State map[signing.Identity]int

// New seeds a State from roll, giving each voter their own allotted
// NumClaimTickets rather than a uniform count — the general case the
// voter-roll schema is built for (spec's roll record carries
// "num_claim_tickets" per voter, not a single committee-wide constant).
func New(roll []election.Voter) (State, error) {
	state := make(State, len(roll))
	for _, v := range roll {
		id, err := v.Identity()
		if err != nil {
			return nil, fmt.Errorf("authledger: new: %w", err)
		}
		state[id] = v.NumClaimTickets
	}
	return state, nil
}

// Remaining reports how many tickets voter has left, 0 if unknown.
func (s State) Remaining(voter signing.Identity) int {
	return s[voter]
}

// Known reports whether voter is on the roll this ledger was seeded
// from, distinguishing a voter with 0 tickets left from one who was
// never on the roll at all.
func (s State) Known(voter signing.Identity) bool {
	_, ok := s[voter]
	return ok
}

func (s State) clone() State {
	next := make(State, len(s))
	for k, v := range s {
		next[k] = v
	}
	return next
}

// Apply decrements the issuing voter's remaining ticket count for a
// committed VoterTx. Non-VoterTx transactions pass through unchanged,
// since this ledger tracks only ticket issuance.
func Apply(s State, tx *txmodel.Transaction) (State, error) {
	vc, ok := tx.Content.(txmodel.VoterContent)
	if !ok {
		return s, nil
	}

	remaining, known := s[vc.Voter]
	if !known {
		return s, fmt.Errorf("%w: %x", ErrUnknownVoterState, vc.Voter)
	}
	if remaining <= 0 {
		panic(fmt.Errorf("%w: voter %x", ErrCounterUnderflow, vc.Voter))
	}

	next := s.clone()
	next[vc.Voter] = remaining - 1
	return next, nil
}
