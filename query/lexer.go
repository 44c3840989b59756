package query

type Token struct {
	Type  TokenType
	Value string
}

type TokenType int

const (
	Identifier TokenType = iota
	Literal
	Equals
	LessThan
	GreaterThan
	Comma
	EOF
)

func (t TokenType) String() string {
	switch t {
	case Identifier:
		return "Identifier"
	case Literal:
		return "Literal"
	case Equals:
		return "="
	case LessThan:
		return "<"
	case GreaterThan:
		return ">"
	case Comma:
		return ","
	case EOF:
		return "EOF"
	default:
		return "Unknown"
	}
}

// Lexer splits a predicate list into tokens. Text before an operator is a
// column identifier, text after it up to the next comma is a literal, so
// literals may contain spaces and operator characters.
type Lexer struct {
	input         string
	pos           int
	afterOperator bool
}

func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

func (l *Lexer) NextToken() Token {
	if l.pos >= len(l.input) {
		return Token{Type: EOF}
	}

	switch c := l.input[l.pos]; {
	case c == ',':
		l.pos++
		l.afterOperator = false
		return Token{Type: Comma, Value: ","}
	case !l.afterOperator && isOperator(c):
		l.pos++
		l.afterOperator = true
		return Token{Type: operatorType(c), Value: string(c)}
	}

	start := l.pos
	if l.afterOperator {
		for l.pos < len(l.input) && l.input[l.pos] != ',' {
			l.pos++
		}
		l.afterOperator = false
		return Token{Type: Literal, Value: l.input[start:l.pos]}
	}

	for l.pos < len(l.input) && l.input[l.pos] != ',' && !isOperator(l.input[l.pos]) {
		l.pos++
	}
	return Token{Type: Identifier, Value: l.input[start:l.pos]}
}

func isOperator(c byte) bool {
	return c == '=' || c == '<' || c == '>'
}

func operatorType(c byte) TokenType {
	switch c {
	case '<':
		return LessThan
	case '>':
		return GreaterThan
	default:
		return Equals
	}
}
