// Package ir defines the typed literal values that flow through the
// translation pipeline.
//
// Entity values, condition values and the JSON form of query documents are
// all built from the sealed IRValue interface:
//
//	IRNull, IRString, IRInt, IRFloat, IRBool, IRArray, IRObject
//
// # Canonical JSON
//
// MarshalCanonical produces RFC 8785 style canonical JSON: object keys in
// UTF-16 code unit order, NFC-normalized strings, no HTML escaping. It is
// the encoding used for golden files and for Fingerprint, which
// content-addresses a query document with SHA-256 and a domain prefix.
//
// Repeated translations of the same text must produce byte-identical
// canonical output; tests compare fingerprints to check this.
package ir
