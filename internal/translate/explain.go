package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/nl2sql/internal/ir"
)

const rule = "------------------------------------------------------------"

// ExplainTranslation describes how text was translated: intent, SQL, the
// parse, the recognized entities and the extracted conditions.
func (t *Translator) ExplainTranslation(ctx context.Context, text string) (string, error) {
	d, err := t.TranslateWithDetails(ctx, text)
	if err != nil {
		return "", err
	}
	return Explain(d), nil
}

// Explain formats d for people.
func Explain(d *Details) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n", d.Text)
	fmt.Fprintf(&b, "Intent: %s (%s, confidence %.2f)\n", d.Intent.Type, d.Intent.Strategy, d.Intent.Confidence)
	if d.Intent.Aggregation != "" {
		fmt.Fprintf(&b, "Aggregation: %s\n", d.Intent.Aggregation)
	}
	fmt.Fprintf(&b, "SQL: %s\n", d.SQL)

	section(&b, "Dependency Analysis")
	for _, tok := range NewTree(d.doc).Tokens {
		fmt.Fprintf(&b, "  %-15s | POS: %-5s | DEP: %-10s | HEAD: %s\n", tok.Text, tok.POS, tok.Dep, tok.Head)
	}

	section(&b, "Recognized Entities")
	if d.Entities != nil {
		for _, col := range d.Entities.Columns {
			note := ""
			if col.Synthetic {
				note = " implied"
			}
			fmt.Fprintf(&b, "  Column: %s ('%s')%s\n", col.Label, col.Text, note)
		}
		for _, v := range d.Entities.Values {
			fmt.Fprintf(&b, "  Value: %s (type: %s, text: '%s')\n", ir.Format(v.Value), v.Type, v.Text)
		}
	}

	section(&b, "Extracted Conditions")
	for _, c := range d.Query.Where {
		fmt.Fprintf(&b, "  %s %s %s\n", c.Column, c.Operator, ir.Format(c.Value))
	}
	if logic := d.Query.Logic(); logic != "" {
		fmt.Fprintf(&b, "  joined by %s\n", logic)
	}
	for _, p := range d.Pairs {
		fmt.Fprintf(&b, "  %s <- [%s] via %s: %s %s\n", p.Column, strings.Join(p.Values, ", "), p.Strategy, p.Operator, p.Reason)
	}

	for _, w := range d.Validation.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	return strings.TrimRight(b.String(), "\n")
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n%s:\n%s\n", title, rule)
}
