// Package signing provides the asymmetric primitives every node identity
// and every signed transaction in this module is built on: RSA-PSS
// signatures over SHA-256 digests, and a fixed-size Identity derived from
// a public key.
package signing

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
)

// KeyBits is the RSA modulus size new key pairs are generated with.
const KeyBits = 2048

// ErrBadSignature is returned when a signature fails to verify against
// the content and public key it is checked against.
var ErrBadSignature = errors.New("signing: signature does not verify")

// Identity fingerprints a public key: the SHA-256 hash of its DER
// encoding. Two KeyPairs never collide in Identity without colliding in
// key material, so Identity is safe to use as a map key or roster index.
type Identity [32]byte

// IdentityOf derives the Identity of pub.
func IdentityOf(pub *rsa.PublicKey) Identity {
	return sha256.Sum256(x509.MarshalPKCS1PublicKey(pub))
}

// KeyPair is a node or voter's signing identity: a private key kept by
// its owner and a public key every peer can verify against.
type KeyPair struct {
	Public  *rsa.PublicKey
	private *rsa.PrivateKey
}

// Generate creates a fresh KeyPair.
func Generate() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Public: &priv.PublicKey, private: priv}, nil
}

// Identity returns the fingerprint of kp's public key.
func (kp *KeyPair) Identity() Identity {
	return IdentityOf(kp.Public)
}

// Sign produces an RSA-PSS signature over the SHA-256 digest of content.
func (kp *KeyPair) Sign(content []byte) ([]byte, error) {
	digest := sha256.Sum256(content)
	return rsa.SignPSS(rand.Reader, kp.private, crypto.SHA256, digest[:], nil)
}

// Verify checks sig against content under pub, returning ErrBadSignature
// if it does not verify.
func Verify(pub *rsa.PublicKey, content, sig []byte) error {
	digest := sha256.Sum256(content)
	if err := rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sig, nil); err != nil {
		return ErrBadSignature
	}
	return nil
}

// EncodePublic DER-encodes pub, the form transactions carry alongside
// their signature so any verifier can recover both the signer's
// Identity and the key to verify against.
func EncodePublic(pub *rsa.PublicKey) []byte {
	return x509.MarshalPKCS1PublicKey(pub)
}

// DecodePublic parses a DER-encoded RSA public key produced by
// EncodePublic.
func DecodePublic(der []byte) (*rsa.PublicKey, error) {
	return x509.ParsePKCS1PublicKey(der)
}
