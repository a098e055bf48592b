// Package sim implements the Driver: the simulation harness that wires
// an Authenticator committee and a Tabulator committee together, walks
// voters through authentication and ballot casting, and advances both
// committees round by round. It is the one place in this module that
// crosses committees — the Authenticator and Tabulator ledgers never
// talk to each other directly; a Tabulator node instead trusts a claim
// ticket by verifying its signature against its own independent copy
// of the Authenticator committee's public-key directory.
package sim

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/votechain/authn"
	"github.com/luxfi/votechain/block"
	"github.com/luxfi/votechain/committee"
	"github.com/luxfi/votechain/config"
	"github.com/luxfi/votechain/election"
	"github.com/luxfi/votechain/internal/errgroup"
	"github.com/luxfi/votechain/ledger/authledger"
	"github.com/luxfi/votechain/ledger/tallyledger"
	"github.com/luxfi/votechain/log"
	"github.com/luxfi/votechain/quorum"
	"github.com/luxfi/votechain/signing"
	"github.com/luxfi/votechain/tally"
	"github.com/luxfi/votechain/txmodel"
)

// Voter is one simulated participant: the roll entry, its keypair, and
// (once issued) its claim ticket.
type Voter struct {
	Roll   election.Voter
	Key    *signing.KeyPair
	Ticket *txmodel.ClaimTicket
}

// Driver assembles both committees and drives them through rounds.
type Driver struct {
	Params   config.Parameters
	Template *election.Template

	Authenticator *committee.Roster[authledger.State]
	Tabulator     *committee.Roster[tallyledger.State]

	// authenticatorKeys holds the Authenticator committee's own
	// keypairs, so Authenticate can have "any Authenticator" node sign
	// each voter's claim ticket (spec's admission flow names the node,
	// not the voter, as the ticket's signer).
	authenticatorKeys []*signing.KeyPair
	authCursor        int

	Voters []*Voter

	Log     log.Logger
	Metrics *quorum.RoundMetrics

	pendingAuth    []*txmodel.Transaction
	pendingTabular []*txmodel.Transaction
}

// New assembles a Driver for tpl and params, seeding roll as the voter
// population. logger defaults to a no-op logger if nil; reg is an
// optional prometheus.Registerer for round metrics (nil skips
// registration).
func New(params config.Parameters, tpl *election.Template, roll []election.Voter, voterKeys []*signing.KeyPair, logger log.Logger, reg prometheus.Registerer) (*Driver, error) {
	if len(roll) != len(voterKeys) {
		return nil, fmt.Errorf("sim: roll and voterKeys must be the same length, got %d and %d", len(roll), len(voterKeys))
	}
	if logger == nil {
		logger = log.NewNoOpLogger()
	}

	authState, err := authledger.New(roll)
	if err != nil {
		return nil, fmt.Errorf("sim: new: %w", err)
	}

	// The peer directory is built once from the full voter population
	// and shared read-only across every node in both committees,
	// matching spec's "peer directory is read-only after setup" —
	// unlike the per-node Authenticator trust directory below, this is
	// config fixed at construction time, never mutated by a round.
	voterIDs := make([]signing.Identity, len(roll))
	for i, key := range voterKeys {
		voterIDs[i] = key.Identity()
	}
	peers := committee.NewPeerDirectory(voterIDs...)

	now := time.Now()
	authKeys := make([]*signing.KeyPair, params.AuthenticatorNodes)
	authNodes := make([]*committee.Node[authledger.State], params.AuthenticatorNodes)
	for i := range authNodes {
		kp, err := signing.Generate()
		if err != nil {
			return nil, fmt.Errorf("sim: new: authenticator node %d: %w", i, err)
		}
		authKeys[i] = kp
		chain := block.NewGenesis(authState, block.Applier[authledger.State](authledger.Apply), now)
		authNodes[i] = committee.NewNode(kp.Identity(), chain, authn.Validator{}, peers)
	}

	authDirectory := make(authn.Directory, len(authKeys))
	for _, kp := range authKeys {
		authDirectory[kp.Identity()] = kp.Public
	}

	tabNodes := make([]*committee.Node[tallyledger.State], params.TabulatorNodes)
	for i := range tabNodes {
		kp, err := signing.Generate()
		if err != nil {
			return nil, fmt.Errorf("sim: new: tabulator node %d: %w", i, err)
		}
		chain := block.NewGenesis(tallyledger.New(tpl), block.Applier[tallyledger.State](tallyledger.Apply), now)
		// Each Tabulator node gets its own cloned Authenticator
		// directory: replicas must hold independent trust state, not
		// share one mutable object (see committee.Node's independent
		// per-node pools).
		tabNodes[i] = committee.NewNode(kp.Identity(), chain, tally.Validator{Authenticators: authDirectory.Clone(), Template: tpl}, peers)
	}

	voters := make([]*Voter, len(roll))
	for i := range roll {
		voters[i] = &Voter{Roll: roll[i], Key: voterKeys[i]}
	}

	var errs errgroup.Errs
	metrics := quorum.NewRoundMetricsWithErrs(reg, &errs)
	if errs.Errored() {
		return nil, fmt.Errorf("sim: new: %w", errs.Err())
	}

	return &Driver{
		Params:            params,
		Template:          tpl,
		Authenticator:     committee.NewRoster(authNodes...),
		Tabulator:         committee.NewRoster(tabNodes...),
		authenticatorKeys: authKeys,
		Voters:            voters,
		Log:               logger,
		Metrics:           metrics,
	}, nil
}

// nextAuthenticator returns any Authenticator node's keypair, cycling
// through the committee so ticket-issuance load spreads across nodes
// rather than always landing on the first.
func (d *Driver) nextAuthenticator() *signing.KeyPair {
	kp := d.authenticatorKeys[d.authCursor%len(d.authenticatorKeys)]
	d.authCursor++
	return kp
}

// Authenticate has voter authenticate themselves against any
// Authenticator node, queuing the resulting VoterTx for the next
// Authenticator round.
func (d *Driver) Authenticate(voter *Voter, at time.Time) error {
	issuer := d.nextAuthenticator()
	ticket, tx, err := authn.IssueClaimTicket(issuer, voter.Key, at, d.Params.ClaimTicketTTL)
	if err != nil {
		return fmt.Errorf("sim: authenticate: %w", err)
	}
	voter.Ticket = ticket
	d.pendingAuth = append(d.pendingAuth, tx)
	return nil
}

// Cast has voter submit ballot against their already-issued ticket,
// queuing the resulting BallotTx for the next Tabulator round.
func (d *Driver) Cast(voter *Voter, ballot election.Ballot, at time.Time) error {
	if voter.Ticket == nil {
		return fmt.Errorf("sim: cast: voter %x has no claim ticket", voter.Key.Identity())
	}
	if voter.Ticket.Expired(at) {
		return fmt.Errorf("sim: cast: voter %x's claim ticket expired", voter.Key.Identity())
	}
	tx, err := tally.CastBallot(voter.Key, voter.Ticket, ballot, at)
	if err != nil {
		return fmt.Errorf("sim: cast: %w", err)
	}
	d.pendingTabular = append(d.pendingTabular, tx)
	return nil
}

// RunAuthenticatorRound advances the Authenticator committee one round
// over every queued VoterTx. A voter's claim ticket is already
// independently verifiable by the Tabulator committee once issued —
// it carries its own issuer signature — so committing the VoterTx here
// only needs to update the Authenticator committee's own ledger state.
func (d *Driver) RunAuthenticatorRound(at time.Time) (*quorum.Result, error) {
	result, err := quorum.RunRound(d.Authenticator, d.pendingAuth, at)
	if err != nil {
		return nil, fmt.Errorf("sim: run authenticator round: %w", err)
	}
	d.pendingAuth = nil
	d.Metrics.Observe("authenticator", result)
	d.Log.Info("authenticator round complete", "committed_nodes", len(result.Committed), "out_of_sync", len(result.OutOfSync))
	return result, nil
}

// RunTabulatorRound advances the Tabulator committee one round over
// every queued BallotTx.
func (d *Driver) RunTabulatorRound(at time.Time) (*quorum.Result, error) {
	result, err := quorum.RunRound(d.Tabulator, d.pendingTabular, at)
	if err != nil {
		return nil, fmt.Errorf("sim: run tabulator round: %w", err)
	}
	d.pendingTabular = nil
	d.Metrics.Observe("tabulator", result)
	d.Log.Info("tabulator round complete", "committed_nodes", len(result.Committed), "out_of_sync", len(result.OutOfSync))
	return result, nil
}

// InjectAuthenticatorTransaction queues tx for the next Authenticator
// round directly, bypassing Authenticate. It exists so callers building
// adversarial scenarios (package adversary) can submit a malformed or
// dishonest transaction the normal helper would never construct.
func (d *Driver) InjectAuthenticatorTransaction(tx *txmodel.Transaction) {
	d.pendingAuth = append(d.pendingAuth, tx)
}

// InjectTabulatorTransaction is InjectAuthenticatorTransaction for the
// Tabulator committee's queue.
func (d *Driver) InjectTabulatorTransaction(tx *txmodel.Transaction) {
	d.pendingTabular = append(d.pendingTabular, tx)
}

// Summary is the structured, observable outcome of a simulation run: a
// post-round report, not an interactive console session.
type Summary struct {
	AuthenticatorHeight uint64
	TabulatorHeight     uint64
	Results             map[string]map[string]int
}

// Summary reports the current state of both committees as seen from
// their first node — every node in a healthy, in-sync roster agrees,
// so any one of them is representative.
func (d *Driver) Summary() Summary {
	return Summary{
		AuthenticatorHeight: d.Authenticator.Nodes[0].Chain().Height(),
		TabulatorHeight:     d.Tabulator.Nodes[0].Chain().Height(),
		Results:             d.Tabulator.Nodes[0].Chain().State().Results(),
	}
}
