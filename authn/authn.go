// Package authn implements the Authenticator committee's admission
// rules and the claim-ticket issuance voters use to start the process
// of authenticating themselves.
package authn

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/luxfi/votechain/ledger/authledger"
	"github.com/luxfi/votechain/signing"
	"github.com/luxfi/votechain/txmodel"
)

// Validator is the Authenticator committee's ContentValidator: it
// admits only VoterTx content, only for a voter on the roll, and only
// while that voter still has a claim ticket left to be issued.
type Validator struct{}

// Validate implements committee.ContentValidator[authledger.State].
func (Validator) Validate(state authledger.State, tx *txmodel.Transaction) error {
	vc, ok := tx.Content.(txmodel.VoterContent)
	if !ok {
		return fmt.Errorf("%w: authenticator committee only admits voter transactions", txmodel.ErrInvalidTransition)
	}
	if vc.Voter != tx.Signer {
		return fmt.Errorf("%w: %x", txmodel.ErrUnknownVoter, vc.Voter)
	}
	if !state.Known(vc.Voter) {
		return fmt.Errorf("%w: %x", txmodel.ErrUnknownVoter, vc.Voter)
	}
	if state.Remaining(vc.Voter) <= 0 {
		return fmt.Errorf("%w: voter %x", txmodel.ErrNotEnoughClaimTickets, vc.Voter)
	}
	return nil
}

// IssueClaimTicket has a voter authenticate themselves against the
// Authenticator node identified by issuerKey: it mints a fresh 128-bit
// ticket ID, has the node sign the ticket itself, and has the voter
// sign the VoterTx announcing its issuance. It returns both the ticket
// (for the driver to later redeem with a Tabulator) and the
// transaction (for the driver to broadcast to the Authenticator
// committee).
func IssueClaimTicket(issuerKey, voterKey *signing.KeyPair, at time.Time, ttl time.Duration) (*txmodel.ClaimTicket, *txmodel.Transaction, error) {
	id := uuid.New().String()
	ticket, err := txmodel.NewClaimTicket(id, voterKey.Identity(), at, ttl, issuerKey)
	if err != nil {
		return nil, nil, fmt.Errorf("authn: issue claim ticket: %w", err)
	}

	content := txmodel.VoterContent{Voter: voterKey.Identity(), Ticket: id, IssuedAt: at}
	tx, err := txmodel.New(voterKey, at, content)
	if err != nil {
		return nil, nil, fmt.Errorf("authn: issue claim ticket: %w", err)
	}
	return ticket, tx, nil
}
