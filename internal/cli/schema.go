package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/nl2sql/internal/schema"
	"github.com/roach88/nl2sql/internal/store"
)

// SchemaInfo describes a compiled schema.
type SchemaInfo struct {
	Table   string          `json:"table"`
	Columns []schema.Column `json:"columns"`
	DDL     string          `json:"ddl"`
}

// SchemaValidation is the result of compiling a schema file.
type SchemaValidation struct {
	File    string `json:"file"`
	Valid   bool   `json:"valid"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// NewSchemaCommand creates the schema command with its subcommands.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show or validate the table schema",
		Long: `Show the table schema requests are translated against: its columns,
types, synonyms and the DDL used to create the table.

Examples:
  nl2sql schema
  nl2sql schema --schema ./hosts.cue --output json
  nl2sql schema validate ./hosts.cue
  nl2sql schema source`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaShow(rootOpts, cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "validate <file>",
		Short:         "Compile a CUE schema file and report errors",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaValidate(rootOpts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "source",
		Short:         "Print the embedded CUE schema",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(schema.DefaultSource())
			return err
		},
	})

	return cmd
}

func runSchemaShow(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return formatter.fail(ErrCodeConfig, err)
	}
	s, err := loadSchema(cfg)
	if err != nil {
		return formatter.fail(ErrCodeInvalidSchema, err)
	}

	info := SchemaInfo{Table: s.Table(), Columns: s.Columns(), DDL: store.AssetsDDL(s)}
	if formatter.IsJSON() {
		return formatter.Success(info)
	}
	writeSchemaText(cmd.OutOrStdout(), info)
	return nil
}

func writeSchemaText(w io.Writer, info SchemaInfo) {
	fmt.Fprintf(w, "Table: %s\n\n", info.Table)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tFLAGS\tSYNONYMS")
	for _, c := range info.Columns {
		var flags []string
		if c.PrimaryKey {
			flags = append(flags, "pk")
		}
		if c.MultiValue {
			flags = append(flags, "multi")
		}
		if c.TextList {
			flags = append(flags, "list")
		}
		if c.Identifier != "" {
			flags = append(flags, "id:"+c.Identifier)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name, c.Type, strings.Join(flags, ","), strings.Join(c.Synonyms, ", "))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%s\n", info.DDL)
}

func runSchemaValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	result := SchemaValidation{File: path, Valid: true}
	s, err := schema.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return formatter.fail(ErrCodeNotFound, WrapExitError(ExitCommandError, "schema file not found", err))
	}
	if err != nil {
		result.Valid = false
		result.Message = err.Error()
		var cerr *schema.CompileError
		if errors.As(err, &cerr) {
			result.Field = cerr.Field
			result.Message = cerr.Message
			if cerr.Pos.IsValid() {
				result.Line = cerr.Pos.Line()
				result.Column = cerr.Pos.Column()
			}
		}
	}

	if formatter.IsJSON() {
		if !result.Valid {
			formatter.Error(ErrCodeInvalidSchema, result.Message, result)
			return WrapExitError(ExitFailure, "invalid schema", err)
		}
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	if !result.Valid {
		fmt.Fprintf(w, "✗ %s\n", path)
		fmt.Fprintf(w, "  %v\n", err)
		return WrapExitError(ExitFailure, "invalid schema", err)
	}
	fmt.Fprintf(w, "✓ %s (table %s, %d columns)\n", path, s.Table(), len(s.Columns()))
	return nil
}
