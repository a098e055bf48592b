package txmodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/votechain/election"
	"github.com/luxfi/votechain/signing"
)

func mustTicket(t *testing.T, issuer, voter *signing.KeyPair, issuedAt time.Time, ttl time.Duration) *ClaimTicket {
	t.Helper()
	ticket, err := NewClaimTicket("ticket-1", voter.Identity(), issuedAt, ttl, issuer)
	require.NoError(t, err)
	return ticket
}

func TestClaimTicketSingleUse(t *testing.T) {
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)

	ticket := mustTicket(t, issuer, voter, time.Now(), 0)
	require.Equal(t, TicketCreated, ticket.State())
	require.NoError(t, ticket.MarkUsed())
	require.Equal(t, TicketUsed, ticket.State())
	require.ErrorIs(t, ticket.MarkUsed(), ErrUsedClaimTicket)
}

func TestClaimTicketExpiry(t *testing.T) {
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	ticket := mustTicket(t, issuer, voter, issued, time.Hour)
	require.False(t, ticket.Expired(issued.Add(30*time.Minute)))
	require.True(t, ticket.Expired(issued.Add(2*time.Hour)))
}

func TestClaimTicketNeverExpiresWithZeroTTL(t *testing.T) {
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	ticket := mustTicket(t, issuer, voter, issued, 0)
	require.False(t, ticket.Expired(issued.Add(24*365*time.Hour)))
}

func TestClaimTicketVerifySignatureRoundTrip(t *testing.T) {
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)

	ticket := mustTicket(t, issuer, voter, time.Now(), 0)
	require.NoError(t, ticket.VerifySignature(issuer.Public))
}

func TestClaimTicketVerifySignatureRejectsWrongIssuerKey(t *testing.T) {
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)
	other, err := signing.Generate()
	require.NoError(t, err)

	ticket := mustTicket(t, issuer, voter, time.Now(), 0)
	require.ErrorIs(t, ticket.VerifySignature(other.Public), ErrBadSignature)
}

func TestClaimTicketVerifySignatureRejectsTamperedVoter(t *testing.T) {
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)
	impostor, err := signing.Generate()
	require.NoError(t, err)

	ticket := mustTicket(t, issuer, voter, time.Now(), 0)
	ticket.Voter = impostor.Identity()
	require.ErrorIs(t, ticket.VerifySignature(issuer.Public), ErrBadSignature)
}

func signedBallotTx(t *testing.T, kp, issuer, voter *signing.KeyPair, at time.Time) *Transaction {
	t.Helper()
	ticket := mustTicket(t, issuer, voter, at, 0)
	content := BallotContent{
		Ticket: ticket,
		Ballot: election.Ballot{Selections: []election.Selection{{Position: "mayor", Choices: []int{0}}}},
		CastAt: at,
	}
	tx, err := New(kp, at, content)
	require.NoError(t, err)
	return tx
}

func TestTransactionVerifySignatureRoundTrip(t *testing.T) {
	kp, err := signing.Generate()
	require.NoError(t, err)
	issuer, err := signing.Generate()
	require.NoError(t, err)

	tx := signedBallotTx(t, kp, issuer, kp, time.Now())
	require.NoError(t, tx.VerifySignature())
}

func TestTransactionVerifySignatureRejectsTamperedContent(t *testing.T) {
	kp, err := signing.Generate()
	require.NoError(t, err)
	issuer, err := signing.Generate()
	require.NoError(t, err)

	tx := signedBallotTx(t, kp, issuer, kp, time.Now())
	bc := tx.Content.(BallotContent)
	tx.Content = BallotContent{
		Ticket: bc.Ticket,
		Ballot: election.Ballot{Selections: []election.Selection{{Position: "mayor", Choices: []int{1}}}},
		CastAt: tx.Timestamp,
	}
	require.ErrorIs(t, tx.VerifySignature(), ErrBadSignature)
}

func TestTransactionVerifySignatureRejectsMismatchedKey(t *testing.T) {
	kp, err := signing.Generate()
	require.NoError(t, err)
	issuer, err := signing.Generate()
	require.NoError(t, err)
	other, err := signing.Generate()
	require.NoError(t, err)

	tx := signedBallotTx(t, kp, issuer, kp, time.Now())
	tx.PublicKey = signing.EncodePublic(other.Public)
	require.ErrorIs(t, tx.VerifySignature(), ErrBadSignature)
}

func TestTransactionKeyMatchesContent(t *testing.T) {
	kp, err := signing.Generate()
	require.NoError(t, err)
	issuer, err := signing.Generate()
	require.NoError(t, err)

	tx := signedBallotTx(t, kp, issuer, kp, time.Now())
	require.Equal(t, "ballot:ticket-1", tx.Key())
}

func TestTransactionHashChangesWithSignature(t *testing.T) {
	kp, err := signing.Generate()
	require.NoError(t, err)
	other, err := signing.Generate()
	require.NoError(t, err)
	issuer, err := signing.Generate()
	require.NoError(t, err)

	at := time.Now()
	a := signedBallotTx(t, kp, issuer, kp, at)
	b := signedBallotTx(t, other, issuer, other, at)
	require.NotEqual(t, a.Hash(), b.Hash())
}

func TestVoterContentKeyIsPerVoter(t *testing.T) {
	kp, err := signing.Generate()
	require.NoError(t, err)

	a := VoterContent{Voter: kp.Identity(), Ticket: "t1", IssuedAt: time.Now()}
	b := VoterContent{Voter: kp.Identity(), Ticket: "t2", IssuedAt: time.Now()}
	require.Equal(t, a.Key(), b.Key())
}
