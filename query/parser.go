package query

import (
	"fmt"
	"strings"

	"github.com/nickyhof/tablekv/codec"
	"github.com/nickyhof/tablekv/core"
)

type Operator int

const (
	Equal Operator = iota
	Less
	Greater
)

func (op Operator) String() string {
	switch op {
	case Less:
		return "<"
	case Greater:
		return ">"
	default:
		return "="
	}
}

// Predicate is a single validated "column op literal" clause.
type Predicate struct {
	Column int
	Kind   core.ColumnKind
	Op     Operator
	Value  codec.Value
}

// Predicates is a parsed predicate list covering every column of a table
// exactly once.
type Predicates []Predicate

type Parser struct {
	lexer   *Lexer
	current Token
	table   core.Table
}

func NewParser(input string, table core.Table) *Parser {
	p := &Parser{lexer: NewLexer(input), table: table}
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.current = p.lexer.NextToken()
}

// Parse parses and validates input against table. Every failure wraps
// core.ErrInvalidParam.
func Parse(input string, table core.Table) (Predicates, error) {
	return NewParser(input, table).Parse()
}

func (p *Parser) Parse() (Predicates, error) {
	var predicates Predicates
	seen := make([]bool, len(p.table.Columns))

	for {
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		if seen[pred.Column] {
			return nil, fmt.Errorf("%w: column %s referenced twice", core.ErrInvalidParam, p.table.Columns[pred.Column].Name)
		}
		seen[pred.Column] = true
		predicates = append(predicates, pred)

		if p.current.Type == EOF {
			break
		}
		if p.current.Type != Comma {
			return nil, fmt.Errorf("%w: unexpected %s", core.ErrInvalidParam, p.current.Type)
		}
		p.advance()
	}

	if len(predicates) != len(p.table.Columns) {
		return nil, fmt.Errorf("%w: expected %d predicates, got %d", core.ErrInvalidParam, len(p.table.Columns), len(predicates))
	}
	return predicates, nil
}

func (p *Parser) parsePredicate() (Predicate, error) {
	if p.current.Type != Identifier {
		return Predicate{}, fmt.Errorf("%w: expected column name, got %s", core.ErrInvalidParam, p.current.Type)
	}
	name := strings.TrimSpace(p.current.Value)
	column, ok := p.table.ColumnIndex(name)
	if !ok {
		return Predicate{}, fmt.Errorf("%w: unknown column %q", core.ErrInvalidParam, name)
	}
	colType := p.table.Columns[column].Type
	p.advance()

	var op Operator
	switch p.current.Type {
	case Equals:
		op = Equal
	case LessThan:
		op = Less
	case GreaterThan:
		op = Greater
	default:
		return Predicate{}, fmt.Errorf("%w: expected operator after %s", core.ErrInvalidParam, name)
	}
	if colType.Kind == core.StrKind && op != Equal {
		return Predicate{}, fmt.Errorf("%w: operator %s not allowed on string column %s", core.ErrInvalidParam, op, name)
	}
	p.advance()

	if p.current.Type != Literal {
		return Predicate{}, fmt.Errorf("%w: missing value for %s", core.ErrInvalidParam, name)
	}
	literal := strings.TrimSpace(p.current.Value)
	p.advance()

	var value codec.Value
	switch colType.Kind {
	case core.IntKind:
		n, err := codec.ParseInt(literal)
		if err != nil {
			return Predicate{}, fmt.Errorf("column %s: %w", name, err)
		}
		value.Int = n
	default:
		value.Str = literal
	}

	return Predicate{Column: column, Kind: colType.Kind, Op: op, Value: value}, nil
}
