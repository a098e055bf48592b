// Package election holds the static election data: the ballot template
// a Tabulator committee declares up front, the voter roll an
// Authenticator committee is seeded with, and the filled ballots voters
// submit against a template.
package election

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/luxfi/votechain/codec"
	"github.com/luxfi/votechain/signing"
)

// ErrUnknownPosition is returned when a ballot selects a position the
// template does not declare.
var ErrUnknownPosition = errors.New("election: unknown position")

// ErrUnknownChoice is returned when a ballot selects a choice index the
// position's template entry does not declare.
var ErrUnknownChoice = errors.New("election: unknown choice for position")

// ErrTooManySelections is returned when a selection names more choices
// for a position than that position's MaxChoices allows.
var ErrTooManySelections = errors.New("election: too many selections for position")

// ErrDuplicatePosition is returned when a template declares the same
// position twice.
var ErrDuplicatePosition = errors.New("election: duplicate position in template")

// Voter is a single entry on the roll an Authenticator committee is
// seeded with.
type Voter struct {
	Name            string
	PublicKey       []byte // DER, see signing.EncodePublic
	NumClaimTickets int    // allotted claim-ticket budget; seeds ledger/authledger.State
}

// Identity is the Voter's signing fingerprint.
func (v Voter) Identity() (signing.Identity, error) {
	pub, err := signing.DecodePublic(v.PublicKey)
	if err != nil {
		return signing.Identity{}, fmt.Errorf("election: decode voter key %s: %w", v.Name, err)
	}
	return signing.IdentityOf(pub), nil
}

// Position is a single office or question on a ballot: an ordered
// choice list and the maximum number of choices a single ballot may
// select for it.
type Position struct {
	Name        string
	Description string
	Choices     []string
	// MaxChoices bounds how many choices a single selection for this
	// position may carry. Zero means the default of one (the common
	// single-choice office or question).
	MaxChoices int
}

// maxChoices is MaxChoices with its zero-value default applied.
func (p Position) maxChoices() int {
	if p.MaxChoices <= 0 {
		return 1
	}
	return p.MaxChoices
}

// Template is the fixed set of positions a Tabulator committee declares
// before an election starts. Ballots are validated against a Template;
// a Template is itself immutable once constructed.
type Template struct {
	Label     string
	Positions []Position
	// flexible allows filled ballots to add a write-in position that
	// was not declared here. This is a supplemented capability
	// (FlexibleTemplate below) exercised by the write-in adversary
	// class, not a legitimate submission path: Validate never honors it.
	flexible bool
}

// NewTemplate builds a Template and validates it has no duplicate
// position names.
func NewTemplate(label string, positions []Position) (*Template, error) {
	seen := make(map[string]bool, len(positions))
	for _, p := range positions {
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePosition, p.Name)
		}
		seen[p.Name] = true
	}
	return &Template{Label: label, Positions: append([]Position(nil), positions...)}, nil
}

// FlexibleTemplate is NewTemplate with the write-in capability flagged,
// so adversary.BallotForger can exercise a ballot that names a position
// outside the declared set. It does not change Validate's behavior: a
// write-in still fails validation, matching spec's rejection of
// out-of-template selections.
func FlexibleTemplate(label string, positions []Position) (*Template, error) {
	t, err := NewTemplate(label, positions)
	if err != nil {
		return nil, err
	}
	t.flexible = true
	return t, nil
}

// Flexible reports whether t was built with FlexibleTemplate.
func (t *Template) Flexible() bool {
	return t.flexible
}

// Position looks up a declared position by name.
func (t *Template) Position(name string) (Position, bool) {
	for _, p := range t.Positions {
		if p.Name == name {
			return p, true
		}
	}
	return Position{}, false
}

// Selection is one voter's choices for one position: zero or more
// indices into that position's declared Choices, bounded by
// MaxChoices. A position may be left unselected (abstention); nothing
// in the data model requires every declared position to receive a
// vote.
type Selection struct {
	Position string
	Choices  []int
}

// Ballot is a filled ballot: a set of selections a voter submits
// against a Template.
type Ballot struct {
	Selections []Selection
}

// Validate checks b against t: every selection must name a declared
// position, no position may be selected twice, every choice index must
// be in range for that position's Choices, and a selection may not
// carry more choices than the position's MaxChoices allows. A ballot
// may omit positions entirely — abstaining from a position is not a
// rejection reason.
func (t *Template) Validate(b Ballot) error {
	seen := make(map[string]bool, len(b.Selections))
	for _, sel := range b.Selections {
		if seen[sel.Position] {
			return fmt.Errorf("%w: %s", ErrUnknownPosition, sel.Position)
		}
		seen[sel.Position] = true

		pos, ok := t.Position(sel.Position)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPosition, sel.Position)
		}
		if len(sel.Choices) > pos.maxChoices() {
			return fmt.Errorf("%w: %s allows at most %d, got %d", ErrTooManySelections, sel.Position, pos.maxChoices(), len(sel.Choices))
		}
		for _, idx := range sel.Choices {
			if idx < 0 || idx >= len(pos.Choices) {
				return fmt.Errorf("%w: %s/%d", ErrUnknownChoice, sel.Position, idx)
			}
		}
	}
	return nil
}

// Canonical returns b's canonical encoding, in position-sorted order so
// two ballots with the same selections in different submission order
// encode identically. When includeSelections is false, only the
// position names are encoded; this module always signs with
// includeSelections=true (see txmodel.BallotContent), but the flag is
// kept because the canonical-encoding scheme generally allows signing a
// ballot's shape independent of its choices.
func (b Ballot) Canonical(includeSelections bool) []byte {
	sorted := append([]Selection(nil), b.Selections...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	enc := codec.NewBuilder()
	for _, sel := range sorted {
		enc.Add(sel.Position)
		if includeSelections {
			choices := append([]int(nil), sel.Choices...)
			sort.Ints(choices)
			for _, idx := range choices {
				enc.Add(strconv.Itoa(idx))
			}
		}
	}
	return enc.Bytes()
}
