// Package harness runs translation scenarios as executable contract tests.
//
// A scenario seeds the asset table, translates each request, runs the
// compiled query against the seeded rows and records the translation in the
// log. Step expectations and scenario assertions are then checked against
// what actually happened.
//
// # Scenario Format
//
//	name: site_filter
//	description: "Requests naming a site filter on it"
//	table: assets            # optional
//	fixtures:                # optional, default: built-in parses
//	  - parses.yaml
//	seed:
//	  - { id: a1, site: 54, hostname: plc-01 }
//	steps:
//	  - text: "Find assets in site 54"
//	    expect:
//	      intent: select
//	      sql: "SELECT * FROM assets WHERE site = 54"
//	      where: [{ column: site, operator: "=", value: 54 }]
//	      rows: 1
//	assertions:
//	  - type: history_count
//	    count: 1
//
// Expect clauses use subset semantics: only the fields given are checked.
//
// # Assertion Types
//
//   - history_count: the translation log holds exactly count entries
//   - same_query: the listed steps produced the same query fingerprint
//   - result_contains: a step's rows include the given values in a column
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory database with a
// testutil.DeterministicClock and the fixture annotator, so the trace is
// identical across runs and can be compared with a golden file.
package harness
