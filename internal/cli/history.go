package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/nl2sql/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB          string
	Limit       int
	Fingerprint string
	ID          string
}

// HistoryResult holds the listed log entries.
type HistoryResult struct {
	Translations []store.Translation `json:"translations"`
	Count        int                 `json:"count"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded translations",
		Long: `List the translation log written by the run command, oldest first.

Examples:
  nl2sql history --db ./assets.db
  nl2sql history --db ./assets.db --limit 5
  nl2sql history --db ./assets.db --fingerprint 3f2a...
  nl2sql history --db ./assets.db --id 01890a5d-ac96-774b-bcce-b302099a8057`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "path to SQLite database (default: $NL2SQL_DB)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "show only the newest N entries (0 for all)")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "show entries that produced this query")
	cmd.Flags().StringVar(&opts.ID, "id", "", "show a single entry")
	cmd.MarkFlagsMutuallyExclusive("fingerprint", "id")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return formatter.fail(ErrCodeConfig, err)
	}
	s, err := loadSchema(cfg)
	if err != nil {
		return formatter.fail(ErrCodeInvalidSchema, err)
	}
	st, err := openStore(cfg, opts.DB, s)
	if err != nil {
		return formatter.fail(ErrCodeNotFound, err)
	}
	defer st.Close()

	var entries []store.Translation
	switch {
	case opts.ID != "":
		t, err := st.ReadTranslation(ctx, opts.ID)
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.fail(ErrCodeNotFound,
				NewExitError(ExitFailure, fmt.Sprintf("translation not found: %s", opts.ID)))
		}
		if err != nil {
			return formatter.fail(ErrCodeGeneric, err)
		}
		entries = []store.Translation{t}
	case opts.Fingerprint != "":
		entries, err = st.ByFingerprint(ctx, opts.Fingerprint)
	default:
		entries, err = st.History(ctx, opts.Limit)
	}
	if err != nil {
		return formatter.fail(ErrCodeGeneric, err)
	}

	if formatter.IsJSON() {
		return formatter.Success(HistoryResult{Translations: entries, Count: len(entries)})
	}
	writeHistoryText(cmd.OutOrStdout(), entries)
	return nil
}

func writeHistoryText(w io.Writer, entries []store.Translation) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No translations recorded.")
		return
	}
	for _, t := range entries {
		rows := "-"
		if t.Rows != nil {
			rows = fmt.Sprint(*t.Rows)
		}
		fmt.Fprintf(w, "[%d] %s %q\n", t.Seq, t.Intent, t.Text)
		fmt.Fprintf(w, "     SQL: %s\n", t.SQL)
		fmt.Fprintf(w, "     Rows: %s  ID: %s  Fingerprint: %s\n", rows, t.ID, truncateID(t.Fingerprint))
	}
}

// truncateID shortens an identifier for display.
func truncateID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}
