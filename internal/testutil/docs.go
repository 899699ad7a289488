package testutil

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/nl2sql/internal/annotate"
)

// Doc builds a document from compact token rows of the form
//
//	text|lemma|POS|dep|head
//
// A row may omit the head, which then points at the token itself. The
// document text is the token texts joined by spaces.
func Doc(t testing.TB, rows ...string) *annotate.Document {
	t.Helper()
	doc := &annotate.Document{}
	texts := make([]string, 0, len(rows))
	for i, row := range rows {
		parts := strings.Split(row, "|")
		require.GreaterOrEqual(t, len(parts), 4, "row %d %q: want text|lemma|POS|dep[|head]", i, row)

		head := i
		if len(parts) > 4 {
			h, err := strconv.Atoi(parts[4])
			require.NoError(t, err, "row %d head", i)
			head = h
		}
		doc.Tokens = append(doc.Tokens, annotate.Token{
			I: i, Text: parts[0], Lemma: parts[1], POS: parts[2], Dep: parts[3], Head: head,
		})
		texts = append(texts, parts[0])
	}
	doc.Text = strings.Join(texts, " ")
	return doc
}

// Corpus returns the built-in fixture document for text, failing the test
// when the corpus does not cover it.
func Corpus(t testing.TB, text string) *annotate.Document {
	t.Helper()
	doc, err := annotate.Builtin().Annotate(context.Background(), text)
	require.NoError(t, err, "fixture corpus has no document for %q", text)
	return doc
}
