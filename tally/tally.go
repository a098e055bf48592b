// Package tally implements the Tabulator committee's admission rules
// and the ballot-casting helper voters use once they hold a claim
// ticket. A Tabulator never talks to the Authenticator committee
// directly (no Non-goal networking layer is crossed): it verifies a
// claim ticket's own signature against its Authenticators directory,
// a trust list of Authenticator node identities the driver seeds each
// Tabulator node's Validator with independently at setup.
package tally

import (
	"fmt"
	"time"

	"github.com/luxfi/votechain/authn"
	"github.com/luxfi/votechain/election"
	"github.com/luxfi/votechain/ledger/tallyledger"
	"github.com/luxfi/votechain/signing"
	"github.com/luxfi/votechain/txmodel"
)

// Validator is the Tabulator committee's ContentValidator: it admits
// only BallotTx content, only for a ticket signed by an Authenticator
// node in Authenticators, signed by the ticket's holder, not already
// spent, and filled out against Template.
type Validator struct {
	Authenticators authn.Directory
	Template       *election.Template
}

// Validate implements committee.ContentValidator[tallyledger.State].
func (v Validator) Validate(state tallyledger.State, tx *txmodel.Transaction) error {
	bc, ok := tx.Content.(txmodel.BallotContent)
	if !ok {
		return fmt.Errorf("%w: tabulator committee only admits ballot transactions", txmodel.ErrInvalidTransition)
	}
	ticket := bc.Ticket
	if ticket == nil {
		return fmt.Errorf("%w: ballot carries no claim ticket", txmodel.ErrInvalidTransition)
	}

	issuerKey, known := v.Authenticators.Lookup(ticket.Issuer)
	if !known {
		return fmt.Errorf("%w: ticket %s issuer not recognized", txmodel.ErrUnrecognizedNode, ticket.ID)
	}
	if err := ticket.VerifySignature(issuerKey); err != nil {
		return err
	}
	if ticket.Voter != tx.Signer {
		return fmt.Errorf("%w: ballot signer does not hold ticket %s", txmodel.ErrBadSignature, ticket.ID)
	}
	if state.Used[ticket.ID] {
		return fmt.Errorf("%w: ticket %s", txmodel.ErrUsedClaimTicket, ticket.ID)
	}
	if err := v.Template.Validate(bc.Ballot); err != nil {
		return fmt.Errorf("%w: %v", txmodel.ErrInvalidBallot, err)
	}
	return nil
}

// CastBallot has a voter fill out and sign a ballot against ticket,
// producing the BallotTx the driver broadcasts to the Tabulator
// committee.
func CastBallot(voterKey *signing.KeyPair, ticket *txmodel.ClaimTicket, ballot election.Ballot, at time.Time) (*txmodel.Transaction, error) {
	content := txmodel.BallotContent{Ticket: ticket, Ballot: ballot, CastAt: at}
	tx, err := txmodel.New(voterKey, at, content)
	if err != nil {
		return nil, fmt.Errorf("tally: cast ballot: %w", err)
	}
	return tx, nil
}
