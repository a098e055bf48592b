package quorum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/votechain/authn"
	"github.com/luxfi/votechain/block"
	"github.com/luxfi/votechain/committee"
	"github.com/luxfi/votechain/election"
	"github.com/luxfi/votechain/ledger/tallyledger"
	"github.com/luxfi/votechain/signing"
	"github.com/luxfi/votechain/tally"
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

func newTabulatorRoster(t *testing.T, size int, tpl *election.Template, directory authn.Directory, peers committee.PeerDirectory) *committee.Roster[tallyledger.State] {
	t.Helper()
	nodes := make([]*committee.Node[tallyledger.State], size)
	for i := 0; i < size; i++ {
		kp, err := signing.Generate()
		require.NoError(t, err)
		chain := block.NewGenesis(tallyledger.New(tpl), block.Applier[tallyledger.State](tallyledger.Apply), time.Now())
		validator := tally.Validator{Authenticators: directory.Clone(), Template: tpl}
		nodes[i] = committee.NewNode(kp.Identity(), chain, validator, peers)
	}
	return committee.NewRoster(nodes...)
}

func TestRunRoundCommitsAboveThreshold(t *testing.T) {
	tpl := mustTemplate(t)
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)
	directory := authn.NewDirectory(issuer.Public)
	peers := committee.NewPeerDirectory(voter.Identity())
	roster := newTabulatorRoster(t, 5, tpl, directory, peers)

	ticket := mustTicket(t, issuer, voter, "t1")
	ballot := election.Ballot{Selections: []election.Selection{{Position: "mayor", Choices: []int{0}}}}
	tx, err := tally.CastBallot(voter, ticket, ballot, time.Now())
	require.NoError(t, err)

	result, err := RunRound(roster, []*txmodel.Transaction{tx}, time.Now())
	require.NoError(t, err)
	require.Empty(t, result.OutOfSync)

	for _, node := range roster.Nodes {
		blk := result.Committed[node.ID]
		require.NotNil(t, blk)
		require.Len(t, blk.Transactions, 1)
		require.Equal(t, 1, node.Chain().State().Tally["mayor"]["alice"])
	}
}

func TestRunRoundRejectsUntrustedTicketAtEveryNode(t *testing.T) {
	tpl := mustTemplate(t)
	impostor, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)
	directory := authn.NewDirectory() // impostor never registered as an Authenticator
	peers := committee.NewPeerDirectory(voter.Identity())
	roster := newTabulatorRoster(t, 4, tpl, directory, peers)

	ticket := mustTicket(t, impostor, voter, "unknown-ticket")
	ballot := election.Ballot{Selections: []election.Selection{{Position: "mayor", Choices: []int{0}}}}
	tx, err := tally.CastBallot(voter, ticket, ballot, time.Now())
	require.NoError(t, err)

	result, err := RunRound(roster, []*txmodel.Transaction{tx}, time.Now())
	require.NoError(t, err)
	for _, node := range roster.Nodes {
		require.Nil(t, result.Committed[node.ID])
		require.Contains(t, result.Rejected[node.ID], tx.Key())
	}
}

func TestRunRoundResetsPoolsBetweenRounds(t *testing.T) {
	tpl := mustTemplate(t)
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)
	directory := authn.NewDirectory(issuer.Public)
	peers := committee.NewPeerDirectory(voter.Identity())
	roster := newTabulatorRoster(t, 3, tpl, directory, peers)

	ticket := mustTicket(t, issuer, voter, "t1")
	ballot := election.Ballot{Selections: []election.Selection{{Position: "mayor", Choices: []int{0}}}}
	tx, err := tally.CastBallot(voter, ticket, ballot, time.Now())
	require.NoError(t, err)

	_, err = RunRound(roster, []*txmodel.Transaction{tx}, time.Now())
	require.NoError(t, err)

	for _, node := range roster.Nodes {
		require.Empty(t, node.Verified())
	}

	result, err := RunRound(roster, nil, time.Now())
	require.NoError(t, err)
	for _, node := range roster.Nodes {
		require.Nil(t, result.Committed[node.ID])
	}
}

func TestRunRoundExcludesOutOfSyncNode(t *testing.T) {
	tpl := mustTemplate(t)
	issuer, err := signing.Generate()
	require.NoError(t, err)
	voter, err := signing.Generate()
	require.NoError(t, err)
	directory := authn.NewDirectory(issuer.Public)
	peers := committee.NewPeerDirectory(voter.Identity())
	roster := newTabulatorRoster(t, 3, tpl, directory, peers)

	// advance one node's chain alone, simulating a replica that forked
	// or missed the committee's last round, so its head diverges.
	forked := roster.Nodes[0]
	_, err = forked.Chain().Propose(time.Now(), nil)
	require.NoError(t, err)

	result, err := RunRound(roster, nil, time.Now())
	require.NoError(t, err)
	require.Contains(t, result.OutOfSync, forked.ID)
	require.ErrorIs(t, result.OutOfSync[forked.ID], ErrOutOfSync)
}

func TestRoundMetricsObserveNilIsNoOp(t *testing.T) {
	var m *RoundMetrics
	require.NotPanics(t, func() {
		m.Observe("tabulator", &Result{Committed: map[signing.Identity]*block.Block{}})
	})
}

func TestRoundMetricsObserveUnregisteredDoesNotPanic(t *testing.T) {
	m, err := NewRoundMetrics(nil)
	require.NoError(t, err)
	require.NotPanics(t, func() {
		m.Observe("tabulator", &Result{
			Committed: map[signing.Identity]*block.Block{},
			Rejected: map[signing.Identity]map[string]error{
				{}: {"ballot:t1": txmodel.ErrInvalidBallot},
			},
		})
	})
}
