package core

import (
	"fmt"
	"strconv"
	"strings"
)

type ColumnKind int

const (
	IntKind ColumnKind = iota
	StrKind
)

// ColumnType is the declared type of a column. MaxLen is only meaningful for
// StrKind.
type ColumnType struct {
	Kind   ColumnKind
	MaxLen int
}

func Int() ColumnType {
	return ColumnType{Kind: IntKind}
}

func Str(maxLen int) ColumnType {
	return ColumnType{Kind: StrKind, MaxLen: maxLen}
}

func (t ColumnType) String() string {
	if t.Kind == IntKind {
		return "int"
	}
	return fmt.Sprintf("char[%d]", t.MaxLen)
}

// ParseColumnType parses the textual form used in configuration files:
// "int", "char[N]" or "string[N]".
func ParseColumnType(s string) (ColumnType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "int" {
		return Int(), nil
	}

	open := strings.IndexByte(s, '[')
	if open < 0 || !strings.HasSuffix(s, "]") {
		return ColumnType{}, fmt.Errorf("unknown column type %q", s)
	}
	switch s[:open] {
	case "char", "string":
	default:
		return ColumnType{}, fmt.Errorf("unknown column type %q", s)
	}

	n, err := strconv.Atoi(s[open+1 : len(s)-1])
	if err != nil || n <= 0 || n > MaxStrTypeSize {
		return ColumnType{}, fmt.Errorf("invalid string size in column type %q", s)
	}
	return Str(n), nil
}

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// ColumnIndex returns the position of the named column.
func (t Table) ColumnIndex(name string) (int, bool) {
	for i, col := range t.Columns {
		if col.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Identity identifies the author of history commits.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (identity Identity) String() string {
	return fmt.Sprintf("%s <%s>", identity.Name, identity.Email)
}
