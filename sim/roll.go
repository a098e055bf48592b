package sim

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/luxfi/votechain/election"
)

// rollEntry is the on-disk shape of one voter-roll record: a flat,
// fixed-shape list with no versioning or nesting, which is exactly what
// encoding/json is for.
type rollEntry struct {
	Name            string `json:"name"`
	PublicKey       string `json:"public_key"` // base64 of the DER-encoded RSA public key
	NumClaimTickets int    `json:"num_claim_tickets"`
}

// LoadRoll reads a JSON voter roll from r, the static input an
// Authenticator committee is seeded from before a simulation starts.
func LoadRoll(r io.Reader) ([]election.Voter, error) {
	var entries []rollEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("sim: load roll: %w", err)
	}

	roll := make([]election.Voter, len(entries))
	for i, e := range entries {
		der, err := base64.StdEncoding.DecodeString(e.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("sim: load roll: voter %s: %w", e.Name, err)
		}
		roll[i] = election.Voter{Name: e.Name, PublicKey: der, NumClaimTickets: e.NumClaimTickets}
	}
	return roll, nil
}

// EncodeRoll is LoadRoll's inverse: it writes roll in the JSON shape
// LoadRoll reads.
func EncodeRoll(w io.Writer, roll []election.Voter) error {
	entries := make([]rollEntry, len(roll))
	for i, v := range roll {
		entries[i] = rollEntry{Name: v.Name, PublicKey: base64.StdEncoding.EncodeToString(v.PublicKey), NumClaimTickets: v.NumClaimTickets}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
