package opform

import (
	"sort"
	"strings"

	"dalgoctl/internal/types"
)

// Operation adapts one operation type's persisted config to form rows.
type Operation interface {
	Slug() string
	Label() string
	// Hydrate returns the rows and source columns of a persisted config.
	Hydrate(cfg types.RenameConfig) (Rows, []string)
	Normalize(rows Rows) types.OperationColumns
}

const RenameColumnsSlug = "renamecolumns"

type RenameColumns struct{}

func (RenameColumns) Slug() string  { return RenameColumnsSlug }
func (RenameColumns) Label() string { return "Rename columns" }

func (RenameColumns) Hydrate(cfg types.RenameConfig) (Rows, []string) {
	source := append([]string{}, cfg.SourceColumns...)
	rows := RowsFromMapping(cfg.Columns, source)
	if len(rows) < len(source) {
		rows = append(rows, Row{})
	}
	return rows, source
}

func (RenameColumns) Normalize(rows Rows) types.OperationColumns {
	return types.OperationColumns{Columns: rows.Mapping()}
}

// RowsFromMapping orders the pairs by their position in order, then by name
// for keys that order does not mention.
func RowsFromMapping(mapping map[string]string, order []string) Rows {
	rows := make(Rows, 0, len(mapping))
	used := make(map[string]struct{}, len(mapping))
	for _, col := range order {
		if next, ok := mapping[col]; ok {
			if _, dup := used[col]; dup {
				continue
			}
			rows = append(rows, Row{Old: col, New: next})
			used[col] = struct{}{}
		}
	}
	rest := make([]string, 0, len(mapping)-len(used))
	for col := range mapping {
		if _, ok := used[col]; !ok {
			rest = append(rest, col)
		}
	}
	sort.Strings(rest)
	for _, col := range rest {
		rows = append(rows, Row{Old: col, New: mapping[col]})
	}
	return rows
}

// OperationBySlug resolves a slug to a known operation.
func OperationBySlug(slug string) (Operation, bool) {
	switch strings.ToLower(strings.TrimSpace(slug)) {
	case RenameColumnsSlug, "rename", "rename_columns":
		return RenameColumns{}, true
	default:
		return nil, false
	}
}
