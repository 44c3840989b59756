package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/tablekv/codec"
	"github.com/nickyhof/tablekv/core"
)

var t1 = core.Table{Name: "t1", Columns: []core.Column{
	{Name: "id", Type: core.Int()},
	{Name: "label", Type: core.Str(5)},
}}

func TestParsePredicates(t *testing.T) {
	predicates, err := Parse("id>2,label=abc", t1)
	require.NoError(t, err)
	assert.Equal(t, Predicates{
		{Column: 0, Kind: core.IntKind, Op: Greater, Value: codec.Value{Int: 2}},
		{Column: 1, Kind: core.StrKind, Op: Equal, Value: codec.Value{Str: "abc"}},
	}, predicates)

	// Order of predicates does not need to follow column order.
	predicates, err = Parse(" label = abc , id < -5 ", t1)
	require.NoError(t, err)
	assert.Equal(t, 1, predicates[0].Column)
	assert.Equal(t, Less, predicates[1].Op)
	assert.Equal(t, int64(-5), predicates[1].Value.Int)
}

func TestParseRejects(t *testing.T) {
	for name, input := range map[string]string{
		"tooFew":          "id>2",
		"tooMany":         "id>2,label=abc,id<9",
		"duplicate":       "id>2,id<9",
		"unknownColumn":   "id>2,name=abc",
		"stringLessThan":  "id>2,label<abc",
		"stringGreater":   "id>2,label>abc",
		"badInt":          "id>007,label=abc",
		"alphaInt":        "id>2x,label=abc",
		"missingOperator": "id,label=abc",
		"missingLiteral":  "id>,label=abc",
		"trailingComma":   "id>2,label=abc,",
		"empty":           "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(input, t1)
			assert.ErrorIs(t, err, core.ErrInvalidParam)
		})
	}
}

func TestMatch(t *testing.T) {
	row := codec.Row{{Int: 3}, {Str: "abc"}}

	for input, want := range map[string]bool{
		"id>2,label=abc": true,
		"id=3,label=abc": true,
		"id<4,label=abc": true,
		"id>3,label=abc": false,
		"id<3,label=abc": false,
		"id=3,label=abd": false,
		"id>2,label=ab":  false,
	} {
		predicates, err := Parse(input, t1)
		require.NoError(t, err, input)
		assert.Equal(t, want, predicates.Match(row), input)
	}
}
