package tally

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/votechain/authn"
	"github.com/luxfi/votechain/election"
	"github.com/luxfi/votechain/ledger/tallyledger"
	"github.com/luxfi/votechain/signing"
	"github.com/luxfi/votechain/txmodel"
)

func mustTemplate(t *testing.T) *election.Template {
	t.Helper()
	tpl, err := election.NewTemplate("general", []election.Position{
		{Name: "mayor", Choices: []string{"alice", "bob"}},
	})
	require.NoError(t, err)
	return tpl
}

func mustTicket(t *testing.T, issuer, voter *signing.KeyPair, id string) *txmodel.ClaimTicket {
	t.Helper()
	ticket, err := txmodel.NewClaimTicket(id, voter.Identity(), time.Now(), time.Hour, issuer)
	require.NoError(t, err)
	return ticket
}

func TestValidatorAcceptsTrustedTicketCastAgainstTemplate(t *testing.T) {
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)
	directory := authn.NewDirectory(issuer.Public)
	ticket := mustTicket(t, issuer, voter, "t1")

	ballot := election.Ballot{Selections: []election.Selection{{Position: "mayor", Choices: []int{0}}}}
	tx, err := CastBallot(voter, ticket, ballot, time.Now())
	require.NoError(t, err)

	v := Validator{Authenticators: directory, Template: mustTemplate(t)}
	require.NoError(t, v.Validate(tallyledger.New(mustTemplate(t)), tx))
}

func TestValidatorRejectsUnrecognizedIssuer(t *testing.T) {
	impostor, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)
	directory := authn.NewDirectory() // empty: impostor is not a recognized Authenticator
	ticket := mustTicket(t, impostor, voter, "unknown-ticket")

	ballot := election.Ballot{Selections: []election.Selection{{Position: "mayor", Choices: []int{0}}}}
	tx, err := CastBallot(voter, ticket, ballot, time.Now())
	require.NoError(t, err)

	v := Validator{Authenticators: directory, Template: mustTemplate(t)}
	require.ErrorIs(t, v.Validate(tallyledger.New(mustTemplate(t)), tx), txmodel.ErrUnrecognizedNode)
}

func TestValidatorRejectsTamperedTicketSignature(t *testing.T) {
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)
	directory := authn.NewDirectory(issuer.Public)
	ticket := mustTicket(t, issuer, voter, "t1")
	ticket.Signature[0] ^= 0xff // tamper the issuer signature after minting

	ballot := election.Ballot{Selections: []election.Selection{{Position: "mayor", Choices: []int{0}}}}
	tx, err := CastBallot(voter, ticket, ballot, time.Now())
	require.NoError(t, err)

	v := Validator{Authenticators: directory, Template: mustTemplate(t)}
	require.ErrorIs(t, v.Validate(tallyledger.New(mustTemplate(t)), tx), txmodel.ErrBadSignature)
}

func TestValidatorRejectsWrongHolder(t *testing.T) {
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)
	impostor, err := signing.Generate()
	require.NoError(t, err)
	directory := authn.NewDirectory(issuer.Public)
	ticket := mustTicket(t, issuer, voter, "t1")

	ballot := election.Ballot{Selections: []election.Selection{{Position: "mayor", Choices: []int{0}}}}
	tx, err := CastBallot(impostor, ticket, ballot, time.Now())
	require.NoError(t, err)

	v := Validator{Authenticators: directory, Template: mustTemplate(t)}
	require.ErrorIs(t, v.Validate(tallyledger.New(mustTemplate(t)), tx), txmodel.ErrBadSignature)
}

func TestValidatorRejectsAlreadySpentTicket(t *testing.T) {
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)
	directory := authn.NewDirectory(issuer.Public)
	ticket := mustTicket(t, issuer, voter, "t1")

	ballot := election.Ballot{Selections: []election.Selection{{Position: "mayor", Choices: []int{0}}}}
	tx, err := CastBallot(voter, ticket, ballot, time.Now())
	require.NoError(t, err)

	state := tallyledger.New(mustTemplate(t))
	state, err = tallyledger.Apply(state, tx)
	require.NoError(t, err)

	v := Validator{Authenticators: directory, Template: mustTemplate(t)}
	require.ErrorIs(t, v.Validate(state, tx), txmodel.ErrUsedClaimTicket)
}

func TestValidatorRejectsBallotNotMatchingTemplate(t *testing.T) {
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)
	directory := authn.NewDirectory(issuer.Public)
	ticket := mustTicket(t, issuer, voter, "t1")

	ballot := election.Ballot{Selections: []election.Selection{{Position: "mayor", Choices: []int{5}}}} // unknown choice
	tx, err := CastBallot(voter, ticket, ballot, time.Now())
	require.NoError(t, err)

	v := Validator{Authenticators: directory, Template: mustTemplate(t)}
	require.ErrorIs(t, v.Validate(tallyledger.New(mustTemplate(t)), tx), txmodel.ErrInvalidBallot)
}
