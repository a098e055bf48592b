// Package adversary builds the malformed and dishonest transactions
// this module's invariants must survive: forged signatures, bypassed
// authentication, out-of-template ("write-in") ballots, and double
// submission of the same claim ticket. Each constructor here produces
// exactly the kind of input a committee's admission algorithm
// (package committee) and content validators (package authn, package
// tally) are responsible for rejecting — this package never weakens
// those checks, it only exercises them.
//
// Silent non-participation, the remaining adversary class the data
// model calls for, needs no dedicated constructor: it is simply a
// voter that never submits anything, which cmd/simvote's "silent"
// scenario models by never calling sim.Driver's Authenticate or Cast
// for that voter. Silent committee nodes are not modeled: every
// in-sync node in a roster takes part in each round.
package adversary

import (
	"fmt"
	"time"

	"github.com/luxfi/votechain/election"
	"github.com/luxfi/votechain/signing"
	"github.com/luxfi/votechain/txmodel"
)

// ForgeSignature builds a transaction that claims to be signed by
// claimedSigner but is actually signed by actualSigner — a stolen- or
// rotated-key attack. The transaction's PublicKey and Signer fields
// name claimedSigner; its Signature verifies only under actualSigner's
// key, so txmodel.Transaction.VerifySignature must reject it.
func ForgeSignature(claimedSigner, actualSigner *signing.KeyPair, at time.Time, content txmodel.Content) (*txmodel.Transaction, error) {
	tx := &txmodel.Transaction{
		Timestamp: at,
		Signer:    claimedSigner.Identity(),
		PublicKey: signing.EncodePublic(claimedSigner.Public),
		Content:   content,
	}
	sig, err := actualSigner.Sign(tx.SigningContent())
	if err != nil {
		return nil, fmt.Errorf("adversary: forge signature: %w", err)
	}
	tx.Signature = sig
	return tx, nil
}

// BypassAuthentication submits a BallotTx against forgedTicket, a
// ticket never issued (or signed) by any Authenticator node — the
// auth-bypass attack. It is a thin, clearly-named wrapper around
// signing a normal-looking BallotTx; package tally's Authenticators
// directory is what actually stops it, since forgedTicket's signature
// never verifies under any key the directory recognizes.
func BypassAuthentication(voterKey *signing.KeyPair, forgedTicket *txmodel.ClaimTicket, ballot election.Ballot, at time.Time) (*txmodel.Transaction, error) {
	content := txmodel.BallotContent{Ticket: forgedTicket, Ballot: ballot, CastAt: at}
	tx, err := txmodel.New(voterKey, at, content)
	if err != nil {
		return nil, fmt.Errorf("adversary: bypass authentication: %w", err)
	}
	return tx, nil
}

// BallotForger casts a ballot against a legitimately-held ticket but
// adds a write-in selection for a position the committee's Template
// never declared. It is the FlexibleBallot attack: the extra selection
// is exactly what election.FlexibleTemplate allows a filled ballot to
// carry, but Template.Validate rejects it regardless of whether the
// template was built flexible, since a write-in is never a legitimate
// submission path.
func BallotForger(voterKey *signing.KeyPair, ticket *txmodel.ClaimTicket, legitimate election.Ballot, writeInPosition string, at time.Time) (*txmodel.Transaction, error) {
	forged := election.Ballot{Selections: append(append([]election.Selection(nil), legitimate.Selections...),
		election.Selection{Position: writeInPosition, Choices: []int{0}})}
	content := txmodel.BallotContent{Ticket: ticket, Ballot: forged, CastAt: at}
	tx, err := txmodel.New(voterKey, at, content)
	if err != nil {
		return nil, fmt.Errorf("adversary: ballot forger: %w", err)
	}
	return tx, nil
}

// DoubleSpend casts two different ballots against the same ticket at
// two different times — a double-spend of a single-use claim ticket.
// It returns both transactions in submission order; a committee's
// conflict resolution (package committee, earlier-timestamp wins) and
// ledger (package ledger/tallyledger, ErrUsedClaimTicket) are each
// independently responsible for making sure only one ever commits.
func DoubleSpend(voterKey *signing.KeyPair, ticket *txmodel.ClaimTicket, first, second election.Ballot, firstAt, secondAt time.Time) (*txmodel.Transaction, *txmodel.Transaction, error) {
	firstTx, err := txmodel.New(voterKey, firstAt, txmodel.BallotContent{Ticket: ticket, Ballot: first, CastAt: firstAt})
	if err != nil {
		return nil, nil, fmt.Errorf("adversary: double spend: %w", err)
	}
	secondTx, err := txmodel.New(voterKey, secondAt, txmodel.BallotContent{Ticket: ticket, Ballot: second, CastAt: secondAt})
	if err != nil {
		return nil, nil, fmt.Errorf("adversary: double spend: %w", err)
	}
	return firstTx, secondTx, nil
}
