// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "time"

// Parameters contains simulation and consensus tuning knobs for a
// committee pair (Authenticator, Tabulator).
type Parameters struct {
	// Committee shape
	AuthenticatorNodes int
	TabulatorNodes     int

	// Voting population. TicketsPerVoter is the default allotment used
	// only when generating a synthetic roll (package sim, cmd/simvote);
	// a real voter roll carries its own per-voter NumClaimTickets
	// (package election), which ledger/authledger seeds from directly.
	Voters          int
	TicketsPerVoter int
	ClaimTicketTTL  time.Duration

	// Round pacing
	RoundInterval time.Duration

	// Adversary injection: how many voters, taken from the front of
	// the roll, cmd/simvote's "silent" scenario leaves out entirely. No
	// committee node runs an adversarial strategy, and the other
	// scenarios each inject a single adversarial transaction regardless
	// of this count.
	AdversarialVoters int
}

// Small returns parameters for a quick, single-process demonstration
// run: a handful of nodes and voters, enough to exercise every
// invariant without simulating a realistic deployment size.
func Small() Parameters {
	return Parameters{
		AuthenticatorNodes: 5,
		TabulatorNodes:     5,
		Voters:             20,
		TicketsPerVoter:    1,
		ClaimTicketTTL:     time.Hour,
		RoundInterval:      time.Minute,
		AdversarialVoters:  0,
	}
}

// Default returns parameters sized for the scenarios in this module's
// simulation harness (package sim): enough nodes that an 80% commit
// threshold has room to tolerate the standard adversary fraction.
func Default() Parameters {
	return Parameters{
		AuthenticatorNodes: 9,
		TabulatorNodes:     9,
		Voters:             200,
		TicketsPerVoter:    1,
		ClaimTicketTTL:     2 * time.Hour,
		RoundInterval:      time.Minute,
		AdversarialVoters:  20,
	}
}

// Stress returns parameters sized for a large simulated election with
// a heavier adversarial fraction, for exercising the commit threshold
// under closer-to-worst-case conditions.
func Stress() Parameters {
	return Parameters{
		AuthenticatorNodes: 21,
		TabulatorNodes:     21,
		Voters:             5000,
		TicketsPerVoter:    1,
		ClaimTicketTTL:     6 * time.Hour,
		RoundInterval:      time.Minute,
		AdversarialVoters:  800,
	}
}
