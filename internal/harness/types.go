package harness

import "github.com/roach88/nl2sql/internal/queryir"

// TraceEvent records one translated step.
type TraceEvent struct {
	Seq         int64         `json:"seq"`
	Text        string        `json:"text"`
	Intent      string        `json:"intent"`
	Query       queryir.Query `json:"query"`
	SQL         string        `json:"sql"`
	Fingerprint string        `json:"fingerprint"`
	Rows        int           `json:"rows"`

	// values holds the executed rows keyed by column, for result_contains.
	values map[string][]any
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds the translated steps in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds the failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a translated step.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
