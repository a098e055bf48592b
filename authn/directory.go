package authn

import (
	"crypto/rsa"

	"github.com/luxfi/votechain/signing"
)

// Directory is the set of Authenticator node public keys a Tabulator
// trusts to have issued a claim ticket. A Tabulator resolves a
// ticket's claimed Issuer against its own Directory before honoring
// the ticket's signature (package tally); the driver populates one
// Directory per Tabulator node from the Authenticator committee's
// roster at setup, never sharing a single mutable instance across
// replicas.
type Directory map[signing.Identity]*rsa.PublicKey

// NewDirectory builds a Directory from the given Authenticator node
// public keys.
func NewDirectory(keys ...*rsa.PublicKey) Directory {
	d := make(Directory, len(keys))
	for _, pub := range keys {
		d[signing.IdentityOf(pub)] = pub
	}
	return d
}

// Lookup returns the public key registered for issuer, if any.
func (d Directory) Lookup(issuer signing.Identity) (*rsa.PublicKey, bool) {
	pub, ok := d[issuer]
	return pub, ok
}

// Clone returns an independent copy of d, so each Tabulator node gets
// its own Directory instance rather than sharing the driver's.
func (d Directory) Clone() Directory {
	next := make(Directory, len(d))
	for id, pub := range d {
		next[id] = pub
	}
	return next
}
