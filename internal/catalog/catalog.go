// Package catalog holds the static lexical tables of the translator: literal
// value patterns, known vendor names, and the keyword sets for operators,
// booleans, connectors, intents and query modifiers.
//
// A Catalog is read-only after construction. Default returns a process-wide
// instance built once; New builds a private one for tests.
package catalog

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/nl2sql/internal/annotate"
)

// Search window limits shared by the recognizer and extractor.
const (
	// MaxProximityDistance is the widest token gap for proximity pairing.
	MaxProximityDistance = 5

	// MaxDependencyDepth bounds walks up the dependency tree.
	MaxDependencyDepth = annotate.MaxDependencyDepth

	// MaxTreeSearchDepth bounds the descendant search from a column token.
	MaxTreeSearchDepth = 3

	// MaxLimitSearchDistance is the widest gap between a limit keyword and its numeral.
	MaxLimitSearchDistance = 3

	// MaxOrderSearchDistance is the widest gap between an ordering keyword and its column.
	MaxOrderSearchDistance = 4

	// MaxNegationDistance is how far before a column a negation word still applies.
	MaxNegationDistance = 2
)

// OperatorKind is the normalized label of an operator keyword.
type OperatorKind string

const (
	OpEquals    OperatorKind = "equals"
	OpNotEquals OperatorKind = "not_equals"
	OpGreater   OperatorKind = "greater"
	OpLess      OperatorKind = "less"
	OpLike      OperatorKind = "like"
	OpIn        OperatorKind = "in"
)

// SQL returns the SQL operator for k.
func (k OperatorKind) SQL() string {
	switch k {
	case OpNotEquals:
		return "!="
	case OpGreater:
		return ">"
	case OpLess:
		return "<"
	case OpLike:
		return "LIKE"
	case OpIn:
		return "IN"
	default:
		return "="
	}
}

// Connector labels.
const (
	ConnAnd = "and"
	ConnOr  = "or"
)

// Intent keyword labels.
const (
	IntentCount  = "count"
	IntentSelect = "select"
	IntentExists = "exists"
)

// Modifier keyword labels.
const (
	ModOrder = "order"
	ModDesc  = "desc"
	ModAsc   = "asc"
	ModLimit = "limit"
)

// PolarIndicator is a word that asserts a boolean column's value, such as
// "invalid" for valid = false.
type PolarIndicator struct {
	Column string
	Value  bool
}

// Phrase is a multiword keyword with its label.
type Phrase struct {
	Words []string
	Label string
}

// Catalog is the immutable set of lexical tables.
type Catalog struct {
	cve        *regexp.Regexp
	cvePrefix  *regexp.Regexp
	mac        *regexp.Regexp
	vendors    map[string]bool
	stopWords  map[string]bool
	properStop map[string]bool
	skipNum    map[string]bool

	trueWords  map[string]bool
	falseWords map[string]bool
	polar      map[string]PolarIndicator

	operators       map[string]OperatorKind
	operatorPhrases []Phrase
	connectors      map[string]string
	connPhrases     []Phrase
	intents         map[string]string
	intentPhrases   []Phrase
	quantifiers     map[string]string
	modifiers       map[string]string

	negation     map[string]bool
	greaterWords map[string]bool
	lessWords    map[string]bool
	likeWords    map[string]bool
	prefixWords  map[string]bool
	suffixWords  map[string]bool
	affected     map[string]bool
	countLemmas  map[string]bool
	existsLemmas map[string]bool
	auxOpeners   map[string]bool
	quantityWord map[string]bool
	aggregations map[string]string
	aggPhrases   []Phrase
}

var defaultCatalog = sync.OnceValue(New)

// Default returns the shared catalog.
func Default() *Catalog {
	return defaultCatalog()
}

// New builds a catalog.
func New() *Catalog {
	return &Catalog{
		cve:       regexp.MustCompile(`(?i)^CVE-\d{4}-\d{4,}$`),
		cvePrefix: regexp.MustCompile(`(?i)^CVE-\d{4}$`),
		mac:       regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}$`),
		vendors: set(
			"siemens", "rockwell", "schneider", "abb", "ge", "honeywell",
			"yokogawa", "emerson", "cisco", "dell", "hp", "lenovo",
			"microsoft", "linux", "windows", "ubuntu", "debian", "redhat",
			"plc", "scada", "hmi", "dcs",
		),
		stopWords: set(
			"a", "an", "the", "this", "that", "these", "those", "is", "are", "was",
			"were", "be", "been", "have", "has", "had", "do", "does", "did", "of",
			"in", "on", "at", "by", "for", "with", "from", "to", "and", "or", "but",
			"not", "no", "all", "any", "some", "every", "me", "my", "i", "it", "its",
			"there", "which", "what", "who", "how", "many", "much", "where", "when",
			"show", "list", "find", "get", "give", "please", "than", "more", "less",
		),
		properStop: set(
			"ip", "cve", "site", "asset", "assets", "vulnerability", "vulnerabilities",
			"information", "status", "devices", "device", "network", "system", "systems",
		),
		skipNum: set("a", "i", "s", "o"),

		trueWords:  set("true", "yes"),
		falseWords: set("false", "no"),
		polar: map[string]PolarIndicator{
			"invalid":      {Column: "valid", Value: false},
			"unapproved":   {Column: "approved", Value: false},
			"unparsed":     {Column: "parsed", Value: false},
			"non-approved": {Column: "approved", Value: false},
		},

		operators: map[string]OperatorKind{
			"equals":   OpEquals,
			"equal":    OpEquals,
			"is":       OpEquals,
			"=":        OpEquals,
			"==":       OpEquals,
			"!=":       OpNotEquals,
			"greater":  OpGreater,
			"more":     OpGreater,
			"above":    OpGreater,
			"over":     OpGreater,
			">":        OpGreater,
			"less":     OpLess,
			"fewer":    OpLess,
			"below":    OpLess,
			"under":    OpLess,
			"<":        OpLess,
			"contains": OpLike,
			"like":     OpLike,
			"includes": OpLike,
			"in":       OpIn,
		},
		operatorPhrases: []Phrase{
			{Words: []string{"greater", "than"}, Label: string(OpGreater)},
			{Words: []string{"more", "than"}, Label: string(OpGreater)},
			{Words: []string{"less", "than"}, Label: string(OpLess)},
			{Words: []string{"fewer", "than"}, Label: string(OpLess)},
			{Words: []string{"is", "not"}, Label: string(OpNotEquals)},
			{Words: []string{"not", "equal"}, Label: string(OpNotEquals)},
			{Words: []string{"not", "equals"}, Label: string(OpNotEquals)},
			{Words: []string{"not", "is"}, Label: string(OpNotEquals)},
			{Words: []string{"similar", "to"}, Label: string(OpLike)},
		},
		connectors: map[string]string{
			"and": ConnAnd,
			"but": ConnAnd,
			"or":  ConnOr,
		},
		connPhrases: []Phrase{
			{Words: []string{"as", "well", "as"}, Label: ConnAnd},
		},
		intents: map[string]string{
			"count":    IntentCount,
			"show":     IntentSelect,
			"display":  IntentSelect,
			"list":     IntentSelect,
			"get":      IntentSelect,
			"find":     IntentSelect,
			"fetch":    IntentSelect,
			"give":     IntentSelect,
			"return":   IntentSelect,
			"retrieve": IntentSelect,
			"select":   IntentSelect,
			"view":     IntentSelect,
			"exist":    IntentExists,
			"exists":   IntentExists,
		},
		intentPhrases: []Phrase{
			{Words: []string{"how", "many"}, Label: IntentCount},
			{Words: []string{"number", "of"}, Label: IntentCount},
		},
		quantifiers: map[string]string{
			"all":   "all",
			"every": "all",
			"any":   "any",
			"some":  "any",
		},
		modifiers: map[string]string{
			"sort":       ModOrder,
			"sorted":     ModOrder,
			"order":      ModOrder,
			"ordered":    ModOrder,
			"ascending":  ModAsc,
			"asc":        ModAsc,
			"increasing": ModAsc,
			"descending": ModDesc,
			"desc":       ModDesc,
			"reverse":    ModDesc,
			"decreasing": ModDesc,
			"top":        ModLimit,
			"first":      ModLimit,
			"limit":      ModLimit,
		},

		negation:     set("not", "no", "never", "without", "excluding", "except", "non", "n't"),
		greaterWords: set("greater", "more", "above", "over", "exceeding"),
		lessWords:    set("less", "fewer", "below", "under"),
		likeWords:    set("contains", "contain", "containing", "like", "includes", "include", "including"),
		prefixWords:  set("starts", "start", "starting", "begins", "begin", "beginning"),
		suffixWords:  set("ends", "end", "ending", "finishes"),
		affected:     set("affected", "vulnerable", "impacted"),
		countLemmas:  set("be", "count"),
		existsLemmas: set("have", "be", "exist", "do"),
		auxOpeners:   set("has", "have", "is", "are", "does", "do"),
		quantityWord: set("many", "much", "number"),
		aggregations: map[string]string{
			"count":   "COUNT",
			"total":   "COUNT",
			"sum":     "SUM",
			"average": "AVG",
			"avg":     "AVG",
			"mean":    "AVG",
			"maximum": "MAX",
			"max":     "MAX",
			"highest": "MAX",
			"minimum": "MIN",
			"min":     "MIN",
			"lowest":  "MIN",
		},
		aggPhrases: []Phrase{
			{Words: []string{"how", "many"}, Label: "COUNT"},
			{Words: []string{"number", "of"}, Label: "COUNT"},
		},
	}
}

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// IsCVE reports whether text is a complete CVE identifier.
func (c *Catalog) IsCVE(text string) bool {
	return c.cve.MatchString(text)
}

// IsCVEPrefix reports whether text is the "CVE-YYYY" head of a split CVE.
func (c *Catalog) IsCVEPrefix(text string) bool {
	return c.cvePrefix.MatchString(text)
}

// IsMAC reports whether text is a colon or hyphen separated hex sextet.
func (c *Catalog) IsMAC(text string) bool {
	return c.mac.MatchString(text)
}

// ParseIPv4 classifies text as a full IPv4 address or a dotted prefix.
// A full address has four octets in 0..255. A prefix is any other run of
// two to four dotted parts, each an octet or "*", except that two plain
// octets ("2.5") read as a decimal number rather than a prefix.
func (c *Catalog) ParseIPv4(text string) (ok, prefix bool) {
	parts := strings.Split(text, ".")
	if len(parts) < 2 || len(parts) > 4 {
		return false, false
	}
	digits := 0
	wildcard := false
	for _, p := range parts {
		if p == "*" {
			wildcard = true
			continue
		}
		if p == "" || len(p) > 3 {
			return false, false
		}
		n, err := strconv.Atoi(p)
		if err != nil || n > 255 || p[0] == '+' || p[0] == '-' {
			return false, false
		}
		digits++
	}
	if digits == 0 {
		return false, false
	}
	switch {
	case len(parts) == 4 && !wildcard:
		return true, false
	case len(parts) == 2 && !wildcard:
		return false, false
	}
	return true, true
}

// IsVendor reports whether word is a known vendor or platform name.
func (c *Catalog) IsVendor(word string) bool {
	return c.vendors[strings.ToLower(word)]
}

// IsStopWord reports whether word is a function word that never carries a value.
func (c *Catalog) IsStopWord(word string) bool {
	return c.stopWords[strings.ToLower(word)]
}

// IsProperNounStop reports whether a proper-noun tagged word is a domain
// noun that must not become a value.
func (c *Catalog) IsProperNounStop(word string) bool {
	return c.properStop[strings.ToLower(word)]
}

// SkipNumeric reports whether a numeric-looking token is a stray letter.
func (c *Catalog) SkipNumeric(word string) bool {
	return c.skipNum[strings.ToLower(word)]
}

// BooleanLiteral resolves true/false/yes/no.
func (c *Catalog) BooleanLiteral(word string) (value, ok bool) {
	w := strings.ToLower(word)
	switch {
	case c.trueWords[w]:
		return true, true
	case c.falseWords[w]:
		return false, true
	}
	return false, false
}

// Polar resolves a word that asserts a boolean column's value.
func (c *Catalog) Polar(word string) (PolarIndicator, bool) {
	p, ok := c.polar[strings.ToLower(word)]
	return p, ok
}

// Operator resolves a single-word operator keyword.
func (c *Catalog) Operator(word string) (OperatorKind, bool) {
	k, ok := c.operators[strings.ToLower(word)]
	return k, ok
}

// OperatorPhrases lists multiword operator keywords, longest first.
func (c *Catalog) OperatorPhrases() []Phrase {
	return c.operatorPhrases
}

// Connector resolves a single-word connector.
func (c *Catalog) Connector(word string) (string, bool) {
	k, ok := c.connectors[strings.ToLower(word)]
	return k, ok
}

// ConnectorPhrases lists multiword connectors.
func (c *Catalog) ConnectorPhrases() []Phrase {
	return c.connPhrases
}

// Intent resolves a single-word intent keyword.
func (c *Catalog) Intent(word string) (string, bool) {
	k, ok := c.intents[strings.ToLower(word)]
	return k, ok
}

// IntentPhrases lists multiword intent keywords.
func (c *Catalog) IntentPhrases() []Phrase {
	return c.intentPhrases
}

// Quantifier resolves all/every/any/some.
func (c *Catalog) Quantifier(word string) (string, bool) {
	k, ok := c.quantifiers[strings.ToLower(word)]
	return k, ok
}

// Modifier resolves ordering, direction and limit keywords.
func (c *Catalog) Modifier(word string) (string, bool) {
	k, ok := c.modifiers[strings.ToLower(word)]
	return k, ok
}

// IsNegation reports whether word negates what follows it.
func (c *Catalog) IsNegation(word string) bool {
	return c.negation[strings.ToLower(word)]
}

// ComparisonOperator maps comparison words to > or <.
func (c *Catalog) ComparisonOperator(word string) (string, bool) {
	w := strings.ToLower(word)
	switch {
	case c.greaterWords[w]:
		return ">", true
	case c.lessWords[w]:
		return "<", true
	}
	return "", false
}

// Containment kinds returned by Containment.
const (
	ContainsAnywhere = "contains"
	ContainsPrefix   = "prefix"
	ContainsSuffix   = "suffix"
)

// Containment maps likeness words to a wildcard placement.
func (c *Catalog) Containment(word string) (string, bool) {
	w := strings.ToLower(word)
	switch {
	case c.likeWords[w]:
		return ContainsAnywhere, true
	case c.prefixWords[w]:
		return ContainsPrefix, true
	case c.suffixWords[w]:
		return ContainsSuffix, true
	}
	return "", false
}

// IsAffectedHead reports words like "affected" whose object is matched by
// containment, as in "assets affected by CVE-2021-44228".
func (c *Catalog) IsAffectedHead(word string) bool {
	return c.affected[strings.ToLower(word)]
}

// IsCountRoot reports root lemmas that pair with a quantity word for count intent.
func (c *Catalog) IsCountRoot(lemma string) bool {
	return c.countLemmas[strings.ToLower(lemma)]
}

// IsExistsRoot reports root lemmas of existential questions.
func (c *Catalog) IsExistsRoot(lemma string) bool {
	return c.existsLemmas[strings.ToLower(lemma)]
}

// IsAuxOpener reports auxiliaries that open a yes/no question.
func (c *Catalog) IsAuxOpener(word string) bool {
	return c.auxOpeners[strings.ToLower(word)]
}

// IsQuantityWord reports many/much/number.
func (c *Catalog) IsQuantityWord(word string) bool {
	return c.quantityWord[strings.ToLower(word)]
}

// Aggregation resolves a single aggregation lemma.
func (c *Catalog) Aggregation(lemma string) (string, bool) {
	a, ok := c.aggregations[strings.ToLower(lemma)]
	return a, ok
}

// AggregationPhrases lists multiword aggregation cues.
func (c *Catalog) AggregationPhrases() []Phrase {
	return c.aggPhrases
}

// MatchPhrase reports whether the lower-cased token texts of doc starting
// at i spell out p.
func MatchPhrase(doc *annotate.Document, i int, p Phrase) bool {
	if i < 0 || i+len(p.Words) > doc.Len() {
		return false
	}
	for k, w := range p.Words {
		if doc.Lower(i+k) != w {
			return false
		}
	}
	return true
}
