package opform

import (
	"fmt"
	"strings"
)

type Field int

const (
	FieldOld Field = iota
	FieldNew
)

func (f Field) String() string {
	if f == FieldNew {
		return "new"
	}
	return "old"
}

// Row is one {old, new} pair of the dynamic form.
type Row struct {
	Old string `json:"old" yaml:"old" toml:"old"`
	New string `json:"new" yaml:"new" toml:"new"`
}

func (r Row) Complete() bool {
	return strings.TrimSpace(r.Old) != "" && strings.TrimSpace(r.New) != ""
}

func (r Row) Blank() bool {
	return strings.TrimSpace(r.Old) == "" && strings.TrimSpace(r.New) == ""
}

type Rows []Row

func BlankRows() Rows {
	return Rows{{}}
}

func (rs Rows) Clone() Rows {
	if rs == nil {
		return nil
	}
	out := make(Rows, len(rs))
	copy(out, rs)
	return out
}

// CanAdd reports whether another blank row may be appended: there must be a
// source column left for it and the last row must be filled in.
func (rs Rows) CanAdd(sourceColumns int) bool {
	if len(rs) >= sourceColumns {
		return false
	}
	if len(rs) == 0 {
		return true
	}
	last := rs[len(rs)-1]
	return strings.TrimSpace(last.Old) != "" && strings.TrimSpace(last.New) != ""
}

// Options returns the source columns selectable as the old value of row i.
// Values chosen in other rows are excluded; the row's own value stays.
func (rs Rows) Options(i int, sourceColumns []string) []string {
	taken := make(map[string]struct{}, len(rs))
	for j, row := range rs {
		if j == i {
			continue
		}
		if old := strings.TrimSpace(row.Old); old != "" {
			taken[old] = struct{}{}
		}
	}
	out := make([]string, 0, len(sourceColumns))
	for _, col := range sourceColumns {
		if _, ok := taken[col]; ok {
			continue
		}
		out = append(out, col)
	}
	return out
}

// Mapping drops incomplete rows and returns old -> new.
func (rs Rows) Mapping() map[string]string {
	out := make(map[string]string, len(rs))
	for _, row := range rs {
		if !row.Complete() {
			continue
		}
		out[strings.TrimSpace(row.Old)] = strings.TrimSpace(row.New)
	}
	return out
}

// Merge applies updates over rs by old column name: a matching row takes the
// update's new name, other updates are appended. Blank rows are dropped.
func (rs Rows) Merge(updates Rows) Rows {
	out := make(Rows, 0, len(rs)+len(updates))
	index := make(map[string]int, len(rs))
	for _, row := range rs {
		if row.Blank() {
			continue
		}
		if old := strings.TrimSpace(row.Old); old != "" {
			index[old] = len(out)
		}
		out = append(out, row)
	}
	for _, row := range updates {
		if row.Blank() {
			continue
		}
		old := strings.TrimSpace(row.Old)
		if i, ok := index[old]; ok && old != "" {
			out[i].New = row.New
			continue
		}
		if old != "" {
			index[old] = len(out)
		}
		out = append(out, row)
	}
	return out
}

const requiredMessage = "At least one column is required"

// Violation is a single failed form rule. Row is -1 for form-level rules.
type Violation struct {
	Row     int
	Field   Field
	Message string
}

func (v Violation) String() string {
	if v.Row < 0 {
		return v.Message
	}
	return fmt.Sprintf("row %d %s: %s", v.Row+1, v.Field, v.Message)
}

// Validate checks the rules that need nothing but the rows themselves.
func Validate(rows Rows) []Violation {
	var out []Violation
	complete := false
	for _, row := range rows {
		if row.Complete() {
			complete = true
			break
		}
	}
	if !complete {
		out = append(out, Violation{Row: -1, Message: requiredMessage})
	}
	seen := make(map[string]int, len(rows))
	for i, row := range rows {
		old := strings.TrimSpace(row.Old)
		if old == "" {
			continue
		}
		if first, ok := seen[old]; ok {
			out = append(out, Violation{
				Row:     i,
				Field:   FieldOld,
				Message: fmt.Sprintf("column %q is already renamed in row %d", old, first+1),
			})
			continue
		}
		seen[old] = i
	}
	return out
}

// ValidateSources flags old values that are not among the source columns.
// An empty column list skips the check.
func ValidateSources(rows Rows, sourceColumns []string) []Violation {
	if len(sourceColumns) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(sourceColumns))
	for _, col := range sourceColumns {
		known[col] = struct{}{}
	}
	var out []Violation
	for i, row := range rows {
		old := strings.TrimSpace(row.Old)
		if old == "" {
			continue
		}
		if _, ok := known[old]; !ok {
			out = append(out, Violation{
				Row:     i,
				Field:   FieldOld,
				Message: fmt.Sprintf("column %q is not a source column", old),
			})
		}
	}
	return out
}

type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "invalid form"
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return strings.Join(parts, "; ")
}
