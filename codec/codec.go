// Package codec converts row values between their wire form and typed fields.
//
// The wire form of a row is an ordered, comma separated list of
// "<column> <value>" pairs, one per column of the table:
//
//	id 3, label abc
package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nickyhof/tablekv/core"
)

// Value is a single decoded field. Which member is meaningful depends on the
// kind of the column it belongs to.
type Value struct {
	Int int64
	Str string
}

// Row holds one Value per column, in column order.
type Row []Value

const (
	fieldSeparator = ","
	pairSeparator  = " "
)

// Decode validates raw against the table schema and returns its typed fields.
// Every failure wraps core.ErrInvalidParam.
func Decode(raw string, table core.Table) (Row, error) {
	fields := strings.Split(raw, fieldSeparator)
	if len(fields) != len(table.Columns) {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", core.ErrInvalidParam, len(table.Columns), len(fields))
	}

	row := make(Row, len(fields))
	for i, field := range fields {
		col := table.Columns[i]

		name, value, ok := strings.Cut(strings.TrimSpace(field), pairSeparator)
		if !ok {
			return nil, fmt.Errorf("%w: field %d has no value", core.ErrInvalidParam, i)
		}
		if name != col.Name {
			return nil, fmt.Errorf("%w: field %d is %q, expected column %s", core.ErrInvalidParam, i, name, col.Name)
		}

		v, err := DecodeValue(strings.TrimLeft(value, pairSeparator), col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		row[i] = v
	}
	return row, nil
}

// DecodeValue parses a single literal for a column of type t.
func DecodeValue(s string, t core.ColumnType) (Value, error) {
	switch t.Kind {
	case core.IntKind:
		n, err := ParseInt(s)
		if err != nil {
			return Value{}, err
		}
		return Value{Int: n}, nil
	case core.StrKind:
		if s == "" {
			return Value{}, fmt.Errorf("%w: empty string", core.ErrInvalidParam)
		}
		if len(s) > t.MaxLen {
			return Value{}, fmt.Errorf("%w: %q is longer than %d", core.ErrInvalidParam, s, t.MaxLen)
		}
		return Value{Str: s}, nil
	default:
		return Value{}, fmt.Errorf("%w: unknown column type", core.ErrInvalidParam)
	}
}

// ParseInt parses a strictly formatted decimal integer: an optional sign
// followed by digits, with no leading zeros. "0" is the only numeral that
// may start with a zero, and it may not carry a sign.
func ParseInt(s string) (int64, error) {
	digits := s
	if strings.HasPrefix(digits, "-") || strings.HasPrefix(digits, "+") {
		digits = digits[1:]
	}
	if digits == "" {
		return 0, fmt.Errorf("%w: %q is not an integer", core.ErrInvalidParam, s)
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, fmt.Errorf("%w: %q is not an integer", core.ErrInvalidParam, s)
		}
	}
	if digits[0] == '0' && s != "0" {
		return 0, fmt.Errorf("%w: %q has a leading zero", core.ErrInvalidParam, s)
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is out of range", core.ErrInvalidParam, s)
	}
	return n, nil
}

// Encode renders row in wire form.
func Encode(row Row, table core.Table) string {
	var sb strings.Builder
	for i, col := range table.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col.Name)
		sb.WriteString(pairSeparator)
		sb.WriteString(FormatValue(row[i], col.Type))
	}
	return sb.String()
}

// FormatValue renders a single field value.
func FormatValue(v Value, t core.ColumnType) string {
	if t.Kind == core.IntKind {
		return strconv.FormatInt(v.Int, 10)
	}
	return v.Str
}
