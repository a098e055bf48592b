// Package txmodel defines the signed transaction envelope both
// committees admit and commit, and the vocabulary of rejection reasons
// a committee's content-validation rules raise against it. A
// Transaction is a tagged union over VoterContent and BallotContent: a
// VoterTx records that an Authenticator issued a claim ticket to a
// voter; a BallotTx records that a Tabulator accepted a filled ballot
// cast against one such ticket.
package txmodel

import (
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/votechain/codec"
	"github.com/luxfi/votechain/election"
	"github.com/luxfi/votechain/signing"
)

// Kind tags which variant a Transaction's Content carries.
type Kind string

const (
	VoterKind  Kind = "voter"
	BallotKind Kind = "ballot"
)

// TicketState is the two-state lifecycle of a ClaimTicket: issued, then
// spent by exactly one BallotTx.
type TicketState int

const (
	TicketCreated TicketState = iota
	TicketUsed
)

func (s TicketState) String() string {
	if s == TicketUsed {
		return "used"
	}
	return "created"
}

// Rejection reasons a ContentValidator (see package committee) raises
// while admitting a Transaction. Each is a sentinel so callers can test
// with errors.Is even though the concrete error is usually wrapped with
// %w to carry the offending value.
var (
	ErrBadSignature          = errors.New("txmodel: bad signature")
	ErrUnrecognizedNode      = errors.New("txmodel: transaction signed by an unrecognized node")
	ErrUnknownVoter          = errors.New("txmodel: unknown voter")
	ErrNotEnoughClaimTickets = errors.New("txmodel: voter has no claim tickets remaining")
	ErrUsedClaimTicket       = errors.New("txmodel: claim ticket already used")
	ErrInvalidBallot         = errors.New("txmodel: ballot does not match the declared template")
	ErrInvalidTransition     = errors.New("txmodel: invalid state transition")
	ErrConflictingTransaction = errors.New("txmodel: conflicts with an already-admitted transaction")
)

// ClaimTicket is the single-use credential an Authenticator issues a
// voter and the voter later redeems with a Tabulator. Its ID is a
// 128-bit random value (package github.com/google/uuid), matching the
// "128-bit random identifier" the data model calls for. A ticket is
// signed by the issuing Authenticator node's own key, not the voter's:
// a Tabulator verifies that signature against a trust list of
// Authenticator identities before honoring the ticket (see package
// tally), so the ticket must carry its issuer's identity and signature
// to be independently verifiable.
type ClaimTicket struct {
	ID        string
	Voter     signing.Identity
	Issuer    signing.Identity
	IssuedAt  time.Time
	ExpiresAt time.Time // zero means no expiry; checked only by the driver, never by committee admission
	Signature []byte
	state     TicketState
}

// NewClaimTicket issues a ticket for voter at issuedAt, expiring after
// ttl, signed by issuer. A zero ttl means the ticket never expires.
func NewClaimTicket(id string, voter signing.Identity, issuedAt time.Time, ttl time.Duration, issuer *signing.KeyPair) (*ClaimTicket, error) {
	t := &ClaimTicket{ID: id, Voter: voter, Issuer: issuer.Identity(), IssuedAt: issuedAt, state: TicketCreated}
	if ttl > 0 {
		t.ExpiresAt = issuedAt.Add(ttl)
	}
	sig, err := issuer.Sign(t.SigningContent())
	if err != nil {
		return nil, fmt.Errorf("txmodel: sign claim ticket: %w", err)
	}
	t.Signature = sig
	return t, nil
}

// SigningContent returns the canonical bytes a ticket's Signature is
// computed and verified over: its ID, the voter it was issued to, and
// its minute-truncated issuance time, in that fixed order. The issuer
// identity and expiry are deliberately excluded: they are carried
// alongside the signature, not folded into what it covers.
func (t *ClaimTicket) SigningContent() []byte {
	return codec.NewBuilder().
		Add(t.ID).
		AddBytes(t.Voter[:]).
		Add(codec.FormatMinute(t.IssuedAt)).
		Bytes()
}

// VerifySignature checks t's Signature against issuerKey, the public
// key of the Authenticator node a Tabulator's trust list resolved t's
// claimed Issuer to.
func (t *ClaimTicket) VerifySignature(issuerKey *rsa.PublicKey) error {
	if signing.IdentityOf(issuerKey) != t.Issuer {
		return fmt.Errorf("%w: ticket %s issuer key does not match claimed issuer", ErrBadSignature, t.ID)
	}
	if err := signing.Verify(issuerKey, t.SigningContent(), t.Signature); err != nil {
		return fmt.Errorf("%w: ticket %s: %v", ErrBadSignature, t.ID, err)
	}
	return nil
}

// Canonical returns t's canonical encoding for embedding inside a
// BallotContent: every field a Tabulator's copy of the ticket must
// agree on, including the issuer's signature itself, so a ballot
// signed over a tampered ticket never verifies.
func (t *ClaimTicket) Canonical() []byte {
	return codec.NewBuilder().
		Add(t.ID).
		AddBytes(t.Voter[:]).
		AddBytes(t.Issuer[:]).
		Add(codec.FormatMinute(t.IssuedAt)).
		Add(codec.FormatMinute(t.ExpiresAt)).
		AddBytes(t.Signature).
		Bytes()
}

// State reports whether t has been redeemed yet.
func (t *ClaimTicket) State() TicketState {
	return t.state
}

// MarkUsed redeems t, failing if it was already redeemed.
func (t *ClaimTicket) MarkUsed() error {
	if t.state == TicketUsed {
		return fmt.Errorf("%w: ticket %s", ErrUsedClaimTicket, t.ID)
	}
	t.state = TicketUsed
	return nil
}

// Expired reports whether t has passed its expiry as of now. A ticket
// with a zero ExpiresAt never expires. This is a driver-level check
// only: committee admission never consults wall-clock time.
func (t *ClaimTicket) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// Content is the tagged payload a Transaction carries.
type Content interface {
	// Kind identifies the variant.
	Kind() Kind
	// Canonical returns the content's canonical encoding.
	Canonical() []byte
	// Key returns the logical identity two conflicting submissions of
	// this content would share: a voter's identity for VoterContent, a
	// ticket ID for BallotContent. Two transactions with the same Key
	// submitted in the same round are conflicting, not independent.
	Key() string
}

// VoterContent records that a voter was authenticated and issued ticket.
type VoterContent struct {
	Voter    signing.Identity
	Ticket   string
	IssuedAt time.Time
}

func (v VoterContent) Kind() Kind { return VoterKind }

func (v VoterContent) Canonical() []byte {
	return codec.NewBuilder().
		Add(string(VoterKind)).
		AddBytes(v.Voter[:]).
		Add(v.Ticket).
		Add(codec.FormatMinute(v.IssuedAt)).
		Bytes()
}

func (v VoterContent) Key() string {
	return fmt.Sprintf("voter:%x", v.Voter)
}

// BallotContent records a filled ballot cast against Ticket, the
// signed credential the issuing Authenticator committed for the
// voter casting it.
type BallotContent struct {
	Ticket *ClaimTicket
	Ballot election.Ballot
	CastAt time.Time
}

func (b BallotContent) Kind() Kind { return BallotKind }

func (b BallotContent) Canonical() []byte {
	return codec.NewBuilder().
		Add(string(BallotKind)).
		AddBytes(b.Ticket.Canonical()).
		AddBytes(b.Ballot.Canonical(true)).
		Add(codec.FormatMinute(b.CastAt)).
		Bytes()
}

func (b BallotContent) Key() string {
	return "ballot:" + b.Ticket.ID
}

// Transaction is the signed envelope both committees admit: a Content
// payload, the timestamp it was submitted at, and a signature over the
// whole thing by the submitter's key.
type Transaction struct {
	Timestamp time.Time
	Signer    signing.Identity
	PublicKey []byte
	Content   Content
	Signature []byte
}

// New signs content as kp and returns the resulting Transaction.
func New(kp *signing.KeyPair, timestamp time.Time, content Content) (*Transaction, error) {
	tx := &Transaction{
		Timestamp: timestamp,
		Signer:    kp.Identity(),
		PublicKey: signing.EncodePublic(kp.Public),
		Content:   content,
	}
	sig, err := kp.Sign(tx.SigningContent())
	if err != nil {
		return nil, fmt.Errorf("txmodel: sign transaction: %w", err)
	}
	tx.Signature = sig
	return tx, nil
}

// SigningContent returns the canonical bytes VerifySignature checks the
// Signature against: the content's kind, the minute-truncated
// timestamp, the signer's identity, and the content's own canonical
// encoding, in that fixed order.
func (tx *Transaction) SigningContent() []byte {
	return codec.NewBuilder().
		Add(string(tx.Content.Kind())).
		Add(codec.FormatMinute(tx.Timestamp)).
		AddBytes(tx.Signer[:]).
		AddBytes(tx.Content.Canonical()).
		Bytes()
}

// VerifySignature checks that tx's PublicKey hashes to its claimed
// Signer and that Signature verifies over SigningContent.
func (tx *Transaction) VerifySignature() error {
	pub, err := signing.DecodePublic(tx.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if signing.IdentityOf(pub) != tx.Signer {
		return fmt.Errorf("%w: public key does not match claimed signer", ErrBadSignature)
	}
	if err := signing.Verify(pub, tx.SigningContent(), tx.Signature); err != nil {
		return ErrBadSignature
	}
	return nil
}

// Key delegates to the transaction's Content, identifying what this
// transaction conflicts with.
func (tx *Transaction) Key() string {
	return tx.Content.Key()
}

// Hash is the transaction's broadcast identity: the SHA-256 digest of
// its signing content and signature together, so two transactions with
// identical content but different signatures (or vice versa) never
// collide.
func (tx *Transaction) Hash() [32]byte {
	enc := codec.NewBuilder().AddBytes(tx.SigningContent()).AddBytes(tx.Signature).Bytes()
	return sha256.Sum256(enc)
}
