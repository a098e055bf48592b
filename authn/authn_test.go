package authn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/votechain/election"
	"github.com/luxfi/votechain/ledger/authledger"
	"github.com/luxfi/votechain/signing"
	"github.com/luxfi/votechain/txmodel"
)

func TestIssueClaimTicketProducesVerifiableTransaction(t *testing.T) {
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)

	ticket, tx, err := IssueClaimTicket(issuer, voter, time.Now(), time.Hour)
	require.NoError(t, err)
	require.NoError(t, tx.VerifySignature())
	require.NoError(t, ticket.VerifySignature(issuer.Public))
	require.Equal(t, ticket.ID, tx.Content.(txmodel.VoterContent).Ticket)
	require.Equal(t, voter.Identity(), ticket.Voter)
	require.Equal(t, issuer.Identity(), ticket.Issuer)
}

func TestValidatorAcceptsVoterWithTicketsRemaining(t *testing.T) {
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)
	voters := []election.Voter{{Name: "alice", PublicKey: signing.EncodePublic(voter.Public), NumClaimTickets: 1}}
	state, err := authledger.New(voters)
	require.NoError(t, err)

	_, tx, err := IssueClaimTicket(issuer, voter, time.Now(), time.Hour)
	require.NoError(t, err)
	require.NoError(t, Validator{}.Validate(state, tx))
}

func TestValidatorRejectsUnknownVoter(t *testing.T) {
	state, err := authledger.New(nil)
	require.NoError(t, err)

	issuer, err := signing.Generate()
	require.NoError(t, err)
	stranger, err := signing.Generate()
	require.NoError(t, err)
	_, tx, err := IssueClaimTicket(issuer, stranger, time.Now(), time.Hour)
	require.NoError(t, err)

	require.ErrorIs(t, Validator{}.Validate(state, tx), txmodel.ErrUnknownVoter)
}

func TestValidatorRejectsExhaustedVoter(t *testing.T) {
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)
	voters := []election.Voter{{Name: "alice", PublicKey: signing.EncodePublic(voter.Public), NumClaimTickets: 0}}
	state, err := authledger.New(voters)
	require.NoError(t, err)

	_, tx, err := IssueClaimTicket(issuer, voter, time.Now(), time.Hour)
	require.NoError(t, err)
	require.ErrorIs(t, Validator{}.Validate(state, tx), txmodel.ErrNotEnoughClaimTickets)
}

func TestValidatorRejectsNonVoterContent(t *testing.T) {
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)
	voters := []election.Voter{{Name: "alice", PublicKey: signing.EncodePublic(voter.Public), NumClaimTickets: 1}}
	state, err := authledger.New(voters)
	require.NoError(t, err)

	ticket, err := txmodel.NewClaimTicket("t1", voter.Identity(), time.Now(), time.Hour, issuer)
	require.NoError(t, err)
	content := txmodel.BallotContent{Ticket: ticket, Ballot: election.Ballot{}, CastAt: time.Now()}
	tx, err := txmodel.New(voter, time.Now(), content)
	require.NoError(t, err)

	require.ErrorIs(t, Validator{}.Validate(state, tx), txmodel.ErrInvalidTransition)
}
