package schema

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed assets.cue
var assetsCUE []byte

// DefaultFile is the filename reported in positions from the embedded schema.
const DefaultFile = "assets.cue"

var defaultSchema = sync.OnceValue(func() *Schema {
	s, err := LoadBytes(DefaultFile, assetsCUE)
	if err != nil {
		panic(fmt.Sprintf("embedded schema: %v", err))
	}
	return s
})

// Default returns the embedded assets schema. It is built once and shared.
func Default() *Schema {
	return defaultSchema()
}

// DefaultSource returns the CUE source of the embedded schema.
func DefaultSource() []byte {
	return assetsCUE
}

// CompileError reports an invalid schema with its CUE position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and compiles a CUE schema file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return LoadBytes(path, data)
}

// LoadBytes compiles CUE source; filename is used in error positions.
func LoadBytes(filename string, data []byte) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	return Compile(v)
}

// columnDef mirrors #Column for decoding.
type columnDef struct {
	Type       string   `json:"type"`
	PrimaryKey bool     `json:"primary_key"`
	MultiValue bool     `json:"multi_value"`
	TextList   bool     `json:"text_list"`
	Identifier string   `json:"identifier"`
	Synonyms   []string `json:"synonyms"`
}

// Compile builds a Schema from a CUE value with the layout of assets.cue:
// a top-level table string and a columns struct in declaration order.
func Compile(v cue.Value) (*Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	tableVal := v.LookupPath(cue.ParsePath("table"))
	if !tableVal.Exists() {
		return nil, &CompileError{Field: "table", Message: "table is required", Pos: v.Pos()}
	}
	table, err := tableVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	colsVal := v.LookupPath(cue.ParsePath("columns"))
	if !colsVal.Exists() {
		return nil, &CompileError{Field: "columns", Message: "columns is required", Pos: v.Pos()}
	}
	iter, err := colsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var (
		columns   []Column
		positions []token.Pos
	)
	for iter.Next() {
		var def columnDef
		if err := iter.Value().Decode(&def); err != nil {
			return nil, formatCUEError(err)
		}
		columns = append(columns, Column{
			Name:       iter.Label(),
			Type:       def.Type,
			PrimaryKey: def.PrimaryKey,
			MultiValue: def.MultiValue,
			TextList:   def.TextList,
			Identifier: def.Identifier,
			Synonyms:   def.Synonyms,
		})
		positions = append(positions, iter.Value().Pos())
	}

	s, cerr := build(table, columns, func(i int) token.Pos {
		if i < 0 || i >= len(positions) {
			return colsVal.Pos()
		}
		return positions[i]
	})
	if cerr != nil {
		return nil, cerr
	}
	return s, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &CompileError{Field: "cue", Message: first.Error()}
}
