package query

import (
	"github.com/nickyhof/tablekv/codec"
	"github.com/nickyhof/tablekv/core"
)

// Match reports whether every predicate holds for row.
func (predicates Predicates) Match(row codec.Row) bool {
	for _, pred := range predicates {
		if !pred.Match(row) {
			return false
		}
	}
	return true
}

func (pred Predicate) Match(row codec.Row) bool {
	field := row[pred.Column]
	if pred.Kind == core.StrKind {
		return field.Str == pred.Value.Str
	}

	switch pred.Op {
	case Less:
		return field.Int < pred.Value.Int
	case Greater:
		return field.Int > pred.Value.Int
	default:
		return field.Int == pred.Value.Int
	}
}
