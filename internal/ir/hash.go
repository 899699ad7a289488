package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed fingerprints.
// The version suffix allows the encoding to change without collisions.
const (
	DomainQuery = "nl2sql/query/v1"
	DomainText  = "nl2sql/text/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content address of a canonical document.
// Two translations producing the same query document share a fingerprint.
func Fingerprint(doc IRObject) (string, error) {
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

// TextFingerprint computes the content address of an input request after
// NFC normalization, so visually identical requests collapse to one key.
func TextFingerprint(text string) string {
	canonical, err := marshalCanonicalString(text)
	if err != nil {
		return hashWithDomain(DomainText, []byte(text))
	}
	return hashWithDomain(DomainText, canonical)
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(doc IRObject) string {
	fp, err := Fingerprint(doc)
	if err != nil {
		panic(err)
	}
	return fp
}
