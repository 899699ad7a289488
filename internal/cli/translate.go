package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/nl2sql/internal/translate"
)

// Translate output formats.
const (
	FormatJSON = "json"
	FormatSQL  = "sql"
	FormatBoth = "both"
)

// ValidFormats defines the allowed translate output formats.
var ValidFormats = []string{FormatJSON, FormatSQL, FormatBoth}

// TranslateOptions holds flags for the translate command.
type TranslateOptions struct {
	*RootOptions
	Format  string
	SQL     bool // shorthand for --format sql
	Pretty  bool
	Stdin   bool
	Details bool
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TranslateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate an English request",
		Long: `Translate an English request into a query document, SQL, or both.

Examples:
  nl2sql translate "Show me all assets"
  nl2sql translate --format sql "Find assets in site 54"
  nl2sql translate --format both --pretty "List assets in site 100"
  nl2sql translate --details "How many assets are there?"
  echo "Show me all assets" | nl2sql translate --stdin`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", FormatJSON, "output format (json|sql|both)")
	cmd.Flags().BoolVar(&opts.SQL, "sql", false, "output SQL (shorthand for --format sql)")
	cmd.Flags().BoolVar(&opts.Pretty, "pretty", false, "pretty-print JSON output")
	cmd.Flags().BoolVar(&opts.Stdin, "stdin", false, "read the request from stdin")
	cmd.Flags().BoolVar(&opts.Details, "details", false, "output intent, entities and validation too")

	return cmd
}

func runTranslate(opts *TranslateOptions, args []string, cmd *cobra.Command) error {
	format := opts.Format
	if opts.SQL {
		format = FormatSQL
	}
	if !slices.Contains(ValidFormats, format) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid format %q: must be one of %v", format, ValidFormats))
	}

	text, err := requestText(args, opts.Stdin, cmd.InOrStdin())
	if err != nil {
		return err
	}

	sess, err := opts.newSession(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	d, err := sess.translator.TranslateWithDetails(cmd.Context(), text)
	if err != nil {
		return translationError(err)
	}

	w := cmd.OutOrStdout()
	if opts.Details {
		return writeJSON(w, d, opts.Pretty)
	}
	return writeTranslation(w, d, format, opts.Pretty)
}

// requestText joins args, or reads stdin when fromStdin is set. Blank
// requests are rejected.
func requestText(args []string, fromStdin bool, stdin io.Reader) (string, error) {
	var text string
	if fromStdin {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", WrapExitError(ExitCommandError, "read stdin", err)
		}
		text = string(data)
	} else {
		text = strings.Join(args, " ")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		if !fromStdin && len(args) == 0 {
			return "", NewExitError(ExitCommandError, "no request given (pass text or --stdin)")
		}
		return "", NewExitError(ExitFailure, "empty request")
	}
	return text, nil
}

// writeTranslation prints the query document in canonical JSON, the SQL,
// or both with labels.
func writeTranslation(w io.Writer, d *translate.Details, format string, pretty bool) error {
	doc, err := d.Query.Canonical()
	if err != nil {
		return fmt.Errorf("encode query: %w", err)
	}
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, doc, "", "  "); err != nil {
			return fmt.Errorf("indent query: %w", err)
		}
		doc = buf.Bytes()
	}

	switch format {
	case FormatSQL:
		_, err = fmt.Fprintln(w, d.SQL)
	case FormatBoth:
		if pretty {
			_, err = fmt.Fprintf(w, "SQL:\n%s\n\nJSON:\n%s\n", d.SQL, doc)
		} else {
			_, err = fmt.Fprintf(w, "SQL: %s\nJSON: %s\n", d.SQL, doc)
		}
	default:
		_, err = fmt.Fprintf(w, "%s\n", doc)
	}
	return err
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
