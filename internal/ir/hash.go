package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSequent = "aesop/sequent/v1"
	DomainCert    = "aesop/cert/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SequentHash computes the content-addressed fingerprint of a sequent.
// Two structurally equal sequents always hash identically; the hash is used
// for failed-rule bookkeeping and trace correlation, never for identity of
// tree nodes (those use arena ids).
func (s Sequent) Hash() (string, error) {
	canonical, err := MarshalCanonical(SequentCanonical(s))
	if err != nil {
		return "", fmt.Errorf("SequentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSequent, canonical), nil
}

// MustHash is like Hash but panics on error. Use only in tests or when the
// sequent is known to be canonically representable.
func (s Sequent) MustHash() string {
	h, err := s.Hash()
	if err != nil {
		panic(err)
	}
	return h
}

// CertHash computes the content-addressed fingerprint of a certificate.
func CertHash(c Cert) (string, error) {
	canonical, err := MarshalCanonical(CertCanonical(c))
	if err != nil {
		return "", fmt.Errorf("CertHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCert, canonical), nil
}
