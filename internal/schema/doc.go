// Package schema describes the single table that nl2sql queries.
//
// A Schema is immutable once built. It answers the lookups the pipeline
// needs: which column a word refers to, which columns are boolean, numeric
// or multi-valued, and which column a bare literal shape (a CVE identifier,
// an IPv4 address) implies.
//
// Schemas are written in CUE. The default assets schema is embedded in the
// binary; Load reads an alternate file and Compile validates any cue.Value.
package schema
