package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/nl2sql/internal/config"
	"github.com/roach88/nl2sql/internal/observability"
)

// RootOptions holds global flags for all commands. Non-empty flags
// override the matching NL2SQL_* environment variable.
type RootOptions struct {
	Verbose      bool
	LogJSON      bool
	Metrics      bool
	Output       string // "json" | "text"
	AnnotatorURL string
	Model        string
	Fixtures     string
	Schema       string
	Table        string

	lookup   config.LookupFunc
	registry *prometheus.Registry
}

// ValidOutputs defines the allowed output formats.
var ValidOutputs = []string{"text", "json"}

// NewRootCommand creates the root command for the nl2sql CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(os.LookupEnv)
}

func newRootCommand(lookup config.LookupFunc) *cobra.Command {
	opts := &RootOptions{
		lookup:   lookup,
		registry: prometheus.NewRegistry(),
	}

	cmd := &cobra.Command{
		Use:   "nl2sql",
		Short: "Translate English requests into SQL",
		Long: `Translate free-text English requests about the asset inventory into
single-table SELECT queries.

Requests are parsed by a linguistic annotation service (or recorded
fixtures), interpreted into a query document, and rendered as SQL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidOutputs, opts.Output) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid output %q: must be one of %v", opts.Output, ValidOutputs))
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Metrics {
				return nil
			}
			return observability.WriteText(cmd.ErrOrStderr(), opts.registry)
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	pf.BoolVar(&opts.LogJSON, "log-json", false, "write logs as JSON")
	pf.BoolVar(&opts.Metrics, "metrics", false, "dump metrics to stderr on exit")
	pf.StringVarP(&opts.Output, "output", "o", "text", "output format (json|text)")
	pf.StringVar(&opts.AnnotatorURL, "annotator-url", "", "annotation service base URL")
	pf.StringVar(&opts.Model, "model", "", "annotation model name")
	pf.StringVar(&opts.Fixtures, "fixtures", "", `comma-separated fixture files, or "builtin"`)
	pf.StringVar(&opts.Schema, "schema", "", "CUE schema file (default: embedded assets schema)")
	pf.StringVar(&opts.Table, "table", "", "table name override")

	cmd.AddCommand(NewTranslateCommand(opts))
	cmd.AddCommand(NewTreeCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// formatter returns an OutputFormatter bound to cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Output,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
