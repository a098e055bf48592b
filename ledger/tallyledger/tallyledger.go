// Package tallyledger is the Tabulator committee's ledger state: the
// running vote tally per position and choice, and the set of claim
// tickets already redeemed against it.
package tallyledger

import (
	"fmt"

	"github.com/luxfi/votechain/election"
	"github.com/luxfi/votechain/txmodel"
)

// State holds the running tally, keyed by position then choice, and
// the tickets already spent against this ledger.
type State struct {
	Tally map[string]map[string]int
	Used  map[string]bool
	tpl   *election.Template // resolves a selection's choice indices to names
}

// New seeds a zeroed State from tpl: every declared position/choice
// pair starts at 0, so Results always reports every choice even before
// any vote for it is cast.
func New(tpl *election.Template) State {
	tally := make(map[string]map[string]int, len(tpl.Positions))
	for _, pos := range tpl.Positions {
		choices := make(map[string]int, len(pos.Choices))
		for _, choice := range pos.Choices {
			choices[choice] = 0
		}
		tally[pos.Name] = choices
	}
	return State{Tally: tally, Used: make(map[string]bool), tpl: tpl}
}

func (s State) clone() State {
	tally := make(map[string]map[string]int, len(s.Tally))
	for pos, choices := range s.Tally {
		inner := make(map[string]int, len(choices))
		for choice, n := range choices {
			inner[choice] = n
		}
		tally[pos] = inner
	}
	used := make(map[string]bool, len(s.Used))
	for k, v := range s.Used {
		used[k] = v
	}
	return State{Tally: tally, Used: used, tpl: s.tpl}
}

// Results returns the position/choice vote counts as of this state.
func (s State) Results() map[string]map[string]int {
	return s.Tally
}

// Apply records a committed BallotTx's selections against the tally.
// Selections naming a position or choice this ledger was not seeded
// with are skipped rather than rejected: by the time a ballot reaches
// Apply, content validation has already checked it against the
// template, so an unknown position here reflects a ledger seeded from
// a different template than the one admission validated against, not a
// transaction the ledger itself must police.
func Apply(s State, tx *txmodel.Transaction) (State, error) {
	bc, ok := tx.Content.(txmodel.BallotContent)
	if !ok {
		return s, nil
	}
	ticketID := bc.Ticket.ID
	if s.Used[ticketID] {
		return s, fmt.Errorf("%w: ticket %s already tallied", txmodel.ErrUsedClaimTicket, ticketID)
	}

	next := s.clone()
	next.Used[ticketID] = true
	for _, sel := range bc.Ballot.Selections {
		choices, known := next.Tally[sel.Position]
		if !known {
			continue
		}
		pos, known := next.tpl.Position(sel.Position)
		if !known {
			continue
		}
		for _, idx := range sel.Choices {
			if idx < 0 || idx >= len(pos.Choices) {
				continue
			}
			choices[pos.Choices[idx]]++
		}
	}
	return next, nil
}
