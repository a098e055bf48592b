// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command simvote drives the simulated election this module implements
// end to end: it assembles both committees, walks a voter population
// through authentication and ballot casting, advances each committee
// through consensus rounds, and reports the result. It is the external
// driver the core package sim treats as just another caller — not an
// interactive front-end, which is explicitly out of scope.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/luxfi/votechain/adversary"
	"github.com/luxfi/votechain/config"
	"github.com/luxfi/votechain/election"
	"github.com/luxfi/votechain/sim"
	"github.com/luxfi/votechain/signing"
	"github.com/luxfi/votechain/txmodel"
)

var logger = slog.Default().With("module", "simvote")

var scenarioFlag = &cli.StringFlag{
	Name:  "scenario",
	Value: "baseline",
	Usage: "scenario to run: baseline, silent, forged-signature, auth-bypass, ballot-forger, double-spend",
}

var votersFlag = &cli.IntFlag{
	Name:  "voters",
	Value: 0,
	Usage: "voter population size (0 uses the preset's default)",
}

var presetFlag = &cli.StringFlag{
	Name:  "preset",
	Value: "small",
	Usage: "parameter preset: small, default, stress",
}

func main() {
	app := &cli.App{
		Name:  "simvote",
		Usage: "run a simulated federated-ballot consensus election",
		Commands: []*cli.Command{
			runCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		logger.Error("simvote failed", "error", err)
		os.Exit(1)
	}
}

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "assemble both committees and run one scenario to completion",
	Flags: []cli.Flag{scenarioFlag, votersFlag, presetFlag},
	Action: func(c *cli.Context) error {
		params, err := presetByName(c.String(presetFlag.Name))
		if err != nil {
			return err
		}
		if v := c.Int(votersFlag.Name); v > 0 {
			params.Voters = v
		}

		tpl, err := election.NewTemplate("2026 simvote election", []election.Position{
			{Name: "mayor", Choices: []string{"alice", "bob"}},
		})
		if err != nil {
			return fmt.Errorf("simvote: build template: %w", err)
		}

		roll, keys, err := generateRoll(params.Voters, params.TicketsPerVoter)
		if err != nil {
			return fmt.Errorf("simvote: generate roll: %w", err)
		}

		driver, err := sim.New(params, tpl, roll, keys, nil, nil)
		if err != nil {
			return fmt.Errorf("simvote: new driver: %w", err)
		}

		logger.Info("running scenario", "scenario", c.String(scenarioFlag.Name), "voters", params.Voters,
			"authenticator_nodes", params.AuthenticatorNodes, "tabulator_nodes", params.TabulatorNodes)

		if err := runScenario(c.String(scenarioFlag.Name), driver, keys); err != nil {
			return err
		}

		summary := driver.Summary()
		logger.Info("scenario complete",
			"authenticator_height", summary.AuthenticatorHeight,
			"tabulator_height", summary.TabulatorHeight,
			"results", summary.Results)
		return nil
	},
}

func presetByName(name string) (config.Parameters, error) {
	switch name {
	case "small":
		return config.Small(), nil
	case "default":
		return config.Default(), nil
	case "stress":
		return config.Stress(), nil
	default:
		return config.Parameters{}, fmt.Errorf("simvote: unknown preset %q", name)
	}
}

func generateRoll(n, ticketsPerVoter int) ([]election.Voter, []*signing.KeyPair, error) {
	roll := make([]election.Voter, n)
	keys := make([]*signing.KeyPair, n)
	for i := 0; i < n; i++ {
		kp, err := signing.Generate()
		if err != nil {
			return nil, nil, err
		}
		keys[i] = kp
		roll[i] = election.Voter{
			Name:            fmt.Sprintf("voter-%d", i),
			PublicKey:       signing.EncodePublic(kp.Public),
			NumClaimTickets: ticketsPerVoter,
		}
	}
	return roll, keys, nil
}

// runScenario authenticates and casts ballots for every voter, then
// runs one Authenticator and one Tabulator round, injecting the named
// scenario's adversarial behavior alongside the honest traffic.
func runScenario(name string, d *sim.Driver, keys []*signing.KeyPair) error {
	now := time.Now()
	ballot := election.Ballot{Selections: []election.Selection{{Position: "mayor", Choices: []int{0}}}} // alice

	for i, v := range d.Voters {
		if name == "silent" && i < d.Params.AdversarialVoters {
			continue // silently never authenticates — the non-participation class
		}
		if err := d.Authenticate(v, now); err != nil {
			return err
		}
	}

	if name == "forged-signature" && len(keys) >= 2 {
		forged, err := adversary.ForgeSignature(keys[0], keys[1], now,
			mustVoterContent(keys[0], "forged-ticket", now))
		if err != nil {
			return err
		}
		d.InjectAuthenticatorTransaction(forged)
	}

	if _, err := d.RunAuthenticatorRound(now); err != nil {
		return err
	}

	for i, v := range d.Voters {
		if name == "silent" && i < d.Params.AdversarialVoters {
			continue
		}
		if v.Ticket == nil {
			continue
		}
		if err := d.Cast(v, ballot, now); err != nil {
			return err
		}
	}

	switch name {
	case "auth-bypass":
		forged, err := forgedTicket(keys[0], now)
		if err != nil {
			return err
		}
		tx, err := adversary.BypassAuthentication(keys[0], forged, ballot, now)
		if err != nil {
			return err
		}
		d.InjectTabulatorTransaction(tx)
	case "ballot-forger":
		if v := firstTicketed(d); v != nil {
			tx, err := adversary.BallotForger(v.Key, v.Ticket, ballot, "write-in-senate", now)
			if err != nil {
				return err
			}
			d.InjectTabulatorTransaction(tx)
		}
	case "double-spend":
		if v := firstTicketed(d); v != nil {
			alt := election.Ballot{Selections: []election.Selection{{Position: "mayor", Choices: []int{1}}}} // bob
			_, second, err := adversary.DoubleSpend(v.Key, v.Ticket, ballot, alt, now, now.Add(time.Minute))
			if err != nil {
				return err
			}
			d.InjectTabulatorTransaction(second)
		}
	}

	_, err := d.RunTabulatorRound(now)
	return err
}

func mustVoterContent(voter *signing.KeyPair, ticket string, at time.Time) txmodel.Content {
	return txmodel.VoterContent{Voter: voter.Identity(), Ticket: ticket, IssuedAt: at}
}

// forgedTicket mints a claim ticket for voter signed by a throwaway key
// that is not part of any Authenticator committee the driver built —
// the auth-bypass attack's ticket never redeems against a real
// Authenticator directory.
func forgedTicket(voter *signing.KeyPair, at time.Time) (*txmodel.ClaimTicket, error) {
	impostor, err := signing.Generate()
	if err != nil {
		return nil, err
	}
	ticket, err := txmodel.NewClaimTicket(uuid.New().String(), voter.Identity(), at, 0, impostor)
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func firstTicketed(d *sim.Driver) *sim.Voter {
	for _, v := range d.Voters {
		if v.Ticket != nil {
			return v
		}
	}
	return nil
}
