// Package annotate defines the linguistic document model consumed by the
// translation pipeline and the Annotator port that produces it.
//
// A Document is a dense, zero-based sequence of tokens. Each token carries
// its surface text, lemma, coarse and fine part-of-speech tags, dependency
// label and the index of its syntactic head; the root token is its own head.
// Children, ancestors, descendants and dependency paths are derived from the
// head indices on demand.
//
// Tree helpers never panic. Out-of-range indices yield empty results, and
// malformed head data containing cycles is cut off after MaxDependencyDepth
// steps.
//
// Two Annotator implementations ship with the package:
//
//   - HTTPAnnotator talks to a spaCy-style annotation service over JSON.
//   - FixtureAnnotator serves pre-annotated documents loaded from YAML.
package annotate
