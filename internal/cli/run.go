package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/nl2sql/internal/config"
	"github.com/roach88/nl2sql/internal/ir"
	"github.com/roach88/nl2sql/internal/schema"
	"github.com/roach88/nl2sql/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	DB    string
	Seed  string
	Stdin bool
}

// RunResult is the outcome of one executed request.
type RunResult struct {
	ID          string   `json:"id"`
	Seq         int64    `json:"seq"`
	Text        string   `json:"text"`
	Intent      string   `json:"intent"`
	SQL         string   `json:"sql"`
	Fingerprint string   `json:"fingerprint"`
	Seeded      int      `json:"seeded,omitempty"`
	Columns     []string `json:"columns"`
	Rows        [][]any  `json:"rows"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [text...]",
		Short: "Translate a request and execute it",
		Long: `Translate a request, execute the query against the SQLite asset
database, and append the translation to the log.

The database and its tables are created on first use. --seed loads a YAML
list of rows into the asset table before the query runs.

Examples:
  nl2sql run --db ./assets.db "Find assets in site 54"
  nl2sql run --db ./assets.db --seed rows.yaml "How many assets are there?"
  nl2sql run --output json "Show me approved assets"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to SQLite database (default: $NL2SQL_DB)")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "YAML file of rows to insert first")
	cmd.Flags().BoolVar(&opts.Stdin, "stdin", false, "read the request from stdin")

	return cmd
}

func runRun(opts *RunOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	text, err := requestText(args, opts.Stdin, cmd.InOrStdin())
	if err != nil {
		return formatter.fail(ErrCodeGeneric, err)
	}
	sess, err := opts.newSession(ctx, cmd)
	if err != nil {
		return formatter.fail(ErrCodeConfig, err)
	}

	st, err := openStore(sess.cfg, opts.DB, sess.schema)
	if err != nil {
		return formatter.fail(ErrCodeNotFound, err)
	}
	defer st.Close()

	result := RunResult{Text: text}
	if opts.Seed != "" {
		rows, err := loadSeed(opts.Seed)
		if err != nil {
			return formatter.fail(ErrCodeNotFound, err)
		}
		n, err := st.InsertAssets(ctx, rows)
		if err != nil {
			return formatter.fail(ErrCodeExecute, WrapExitError(ExitFailure, "seed", err))
		}
		result.Seeded = n
		formatter.VerboseLog("Seeded %d row(s) from %s", n, opts.Seed)
	}

	d, err := sess.translator.TranslateWithDetails(ctx, text)
	if err != nil {
		return formatter.fail(ErrCodeTranslate, translationError(err))
	}
	result.Intent = d.Intent.Type
	result.SQL = d.SQL
	result.Fingerprint = d.Fingerprint

	query, queryArgs, err := sess.translator.Compiler().Compile(d.Query)
	if err != nil {
		return formatter.fail(ErrCodeExecute, WrapExitError(ExitFailure, "compile query", err))
	}
	formatter.VerboseLog("Executing: %s %v", query, queryArgs)
	res, err := st.Execute(ctx, query, queryArgs...)
	if err != nil {
		return formatter.fail(ErrCodeExecute, WrapExitError(ExitFailure, "execute query", err))
	}
	result.Columns = res.Columns
	result.Rows = res.Rows

	clock, err := st.Clock(ctx)
	if err != nil {
		return formatter.fail(ErrCodeGeneric, err)
	}
	t, err := store.NewTranslation(clock.Next(), text, d.Intent.Type, d.Query, d.SQL)
	if err != nil {
		return formatter.fail(ErrCodeGeneric, err)
	}
	n := int64(len(res.Rows))
	t.Rows = &n
	id, err := st.RecordTranslation(ctx, t)
	if err != nil {
		return formatter.fail(ErrCodeGeneric, err)
	}
	result.ID = id
	result.Seq = t.Seq

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "SQL: %s\n", result.SQL)
	writeRows(w, res)
	fmt.Fprintf(w, "(%d row(s), recorded as #%d)\n", len(res.Rows), result.Seq)
	return nil
}

// openStore opens the database named by override, or the configured path,
// creating its directory when needed.
func openStore(cfg config.Config, override string, s *schema.Schema) (*store.Store, error) {
	path := cfg.Store.DBPath
	if override != "" {
		path = override
	}
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "create database directory", err)
		}
	}
	st, err := store.Open(path, s)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}
	return st, nil
}

// loadSeed reads a YAML list of rows keyed by column name.
func loadSeed(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "read seed file", err)
	}
	var rows []map[string]any
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&rows); err != nil && err != io.EOF {
		return nil, WrapExitError(ExitCommandError, "parse seed file", err)
	}
	return rows, nil
}

// writeRows prints a result as an aligned table.
func writeRows(w io.Writer, res store.Result) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, col := range res.Columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, col)
	}
	fmt.Fprintln(tw)
	for _, row := range res.Rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, formatCell(cell))
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	if iv, err := ir.FromNative(v); err == nil {
		return ir.Format(iv)
	}
	return fmt.Sprint(v)
}
