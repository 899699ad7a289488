package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/nl2sql/internal/translate"
)

// TreeOptions holds flags for the tree command.
type TreeOptions struct {
	*RootOptions
	Stdin bool
}

// NewTreeCommand creates the tree command.
func NewTreeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TreeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tree [text...]",
		Short: "Show the dependency parse of a request",
		Long: `Show the tokens, dependency arcs, noun chunks and named entities the
annotator produced for a request, without interpreting it.

Examples:
  nl2sql tree "Find assets in site 54"
  nl2sql tree --output json "Show me approved assets"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Stdin, "stdin", false, "read the request from stdin")

	return cmd
}

func runTree(opts *TreeOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	text, err := requestText(args, opts.Stdin, cmd.InOrStdin())
	if err != nil {
		return formatter.fail(ErrCodeGeneric, err)
	}
	sess, err := opts.newSession(cmd.Context(), cmd)
	if err != nil {
		return formatter.fail(ErrCodeConfig, err)
	}
	tree, err := sess.translator.AnalyzeDependencyTree(cmd.Context(), text)
	if err != nil {
		return formatter.fail(ErrCodeAnnotator, translationError(err))
	}
	if tree.Text == "" {
		tree.Text = text
	}

	if formatter.IsJSON() {
		return formatter.Success(tree)
	}
	writeTreeText(cmd.OutOrStdout(), tree)
	return nil
}

func writeTreeText(w io.Writer, tree *translate.Tree) {
	fmt.Fprintf(w, "Text: %s\n", tree.Text)
	fmt.Fprintln(w, "Tokens:")
	for _, tok := range tree.Tokens {
		fmt.Fprintf(w, "  [%d] %-15s lemma=%-12s pos=%-5s dep=%-10s head=%s[%d]\n",
			tok.Index, tok.Text, tok.Lemma, tok.POS, tok.Dep, tok.Head, tok.HeadIndex)
	}
	if len(tree.NounChunks) > 0 {
		fmt.Fprintln(w, "Noun chunks:")
		for _, c := range tree.NounChunks {
			fmt.Fprintf(w, "  %s (root %s, %s)\n", c.Text, c.Root, c.Dep)
		}
	}
	if len(tree.Entities) > 0 {
		fmt.Fprintln(w, "Entities:")
		for _, e := range tree.Entities {
			fmt.Fprintf(w, "  %s [%s]\n", e.Text, e.Label)
		}
	}
}

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	Stdin bool
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain [text...]",
		Short: "Explain how a request is translated",
		Long: `Explain a translation step by step: the classified intent, the SQL, the
parse, the recognized entities and the extracted conditions.

Examples:
  nl2sql explain "Show me approved assets in site 54"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Stdin, "stdin", false, "read the request from stdin")

	return cmd
}

func runExplain(opts *ExplainOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	text, err := requestText(args, opts.Stdin, cmd.InOrStdin())
	if err != nil {
		return formatter.fail(ErrCodeGeneric, err)
	}
	sess, err := opts.newSession(cmd.Context(), cmd)
	if err != nil {
		return formatter.fail(ErrCodeConfig, err)
	}
	d, err := sess.translator.TranslateWithDetails(cmd.Context(), text)
	if err != nil {
		return formatter.fail(ErrCodeTranslate, translationError(err))
	}

	explanation := translate.Explain(d)
	if formatter.IsJSON() {
		return formatter.Success(map[string]any{
			"text":        text,
			"sql":         d.SQL,
			"explanation": explanation,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), explanation)
	return nil
}
