package db

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickyhof/tablekv/core"
	"github.com/nickyhof/tablekv/ps"
	"github.com/nickyhof/tablekv/wire"
)

func testCatalog(t *testing.T) *core.Catalog {
	t.Helper()
	catalog, err := core.NewCatalog([]core.Table{
		{Name: "t1", Columns: []core.Column{
			{Name: "id", Type: core.Int()},
			{Name: "label", Type: core.Str(5)},
		}},
		{Name: "people", Columns: []core.Column{
			{Name: "name", Type: core.Str(10)},
			{Name: "age", Type: core.Int()},
		}},
	})
	require.NoError(t, err)
	return catalog
}

func setupTestEngine(t *testing.T) *Engine {
	catalog := testCatalog(t)
	return NewEngine(catalog, ps.NewMemoryStore(catalog))
}

func execute(t *testing.T, engine *Engine, line string) (Result, error) {
	t.Helper()
	request, err := wire.ParseRequest(line)
	require.NoError(t, err)
	return engine.Execute(request)
}

func TestEngineScenario(t *testing.T) {
	engine := setupTestEngine(t)

	result, err := execute(t, engine, "SET;t1;k1;id 3, label abc")
	require.NoError(t, err)
	assert.Equal(t, 1, result.(CommitResult).RecordsWritten)

	result, err = execute(t, engine, "GET;t1;k1")
	require.NoError(t, err)
	value := result.(ValueResult)
	assert.Equal(t, "id 3, label abc", value.Value)
	assert.NotZero(t, value.Version)

	result, err = execute(t, engine, "QUERY;t1;id>2,label=abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"k1"}, result.(QueryResult).Keys)

	result, err = execute(t, engine, "DELETE;t1;k1;_")
	require.NoError(t, err)
	assert.Equal(t, 1, result.(CommitResult).RecordsDeleted)

	_, err = execute(t, engine, "GET;t1;k1")
	assert.ErrorIs(t, err, core.ErrKeyNotFound)
}

func TestEngineCanonicalValue(t *testing.T) {
	engine := setupTestEngine(t)

	_, err := engine.Set("t1", "k1", "  id   -4 ,label   a b ", 0)
	require.NoError(t, err)

	result, err := engine.Get("t1", "k1")
	require.NoError(t, err)
	assert.Equal(t, "id -4, label a b", result.Value)
}

func TestEngineErrors(t *testing.T) {
	engine := setupTestEngine(t)
	_, err := engine.Set("people", "bob", "name bob, age 30", 0)
	require.NoError(t, err)

	tests := []struct {
		line string
		want error
	}{
		{"GET;nope;k1", core.ErrTableNotFound},
		{"GET;t1;missing", core.ErrKeyNotFound},
		{"GET;t1;", core.ErrInvalidParam},
		{"SET;t1;aaaaaaaaaaaaaaaaaaaaa;id 1, label a", core.ErrInvalidParam},
		{"SET;t1;a:b;id 1, label a", core.ErrInvalidParam},
		{"SET;nope;k1;id 1", core.ErrTableNotFound},
		{"SET;people;k1;name 007, age 12a", core.ErrInvalidParam},
		{"SET;people;k1;age 12, name bob", core.ErrInvalidParam},
		{"SET;people;k1;name bob", core.ErrInvalidParam},
		{"SET;people;bob;name bob, age 31;12345", core.ErrTransactionAbort},
		{"DELETE;t1;missing;_", core.ErrKeyNotFound},
		{"QUERY;people;age>1", core.ErrInvalidParam},
		{"QUERY;people;name<bob,age>1", core.ErrInvalidParam},
		{"QUERY;nope;a=1", core.ErrTableNotFound},
		{"AUTH;u;p", core.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := execute(t, engine, tt.line)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// The rejected conditional write left the row alone.
	result, err := engine.Get("people", "bob")
	require.NoError(t, err)
	assert.Equal(t, "name bob, age 30", result.Value)
}

func TestEngineConditionalSet(t *testing.T) {
	engine := setupTestEngine(t)

	_, err := engine.Set("people", "ann", "name ann, age 40", 0)
	require.NoError(t, err)
	first, err := engine.Get("people", "ann")
	require.NoError(t, err)

	_, err = engine.Set("people", "ann", "name ann, age 41", first.Version)
	require.NoError(t, err)

	second, err := engine.Get("people", "ann")
	require.NoError(t, err)
	assert.Greater(t, second.Version, first.Version)

	// The old version is stale now.
	_, err = engine.Set("people", "ann", "name ann, age 42", first.Version)
	assert.ErrorIs(t, err, core.ErrTransactionAbort)
}

func TestEngineQuery(t *testing.T) {
	engine := setupTestEngine(t)
	for _, row := range []struct{ key, value string }{
		{"a", "name ann, age 30"},
		{"b", "name bob, age 25"},
		{"c", "name ann, age 35"},
	} {
		_, err := engine.Set("people", row.key, row.value, 0)
		require.NoError(t, err)
	}

	result, err := engine.Query("people", "name=ann,age>28")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, result.Keys)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 3, result.RecordsRead)

	result, err = engine.Query("people", "age<20,name=ann")
	require.NoError(t, err)
	assert.Empty(t, result.Keys)
}

func TestResultDisplay(t *testing.T) {
	var buf bytes.Buffer

	ValueResult{Key: "k1", Value: "id 3, label abc", Version: 17}.Display(&buf)
	assert.Contains(t, buf.String(), "| k1  | id 3, label abc | 17      |")

	buf.Reset()
	QueryResult{Keys: []string{"a", "b"}, Total: 5}.Display(&buf)
	assert.Contains(t, buf.String(), "2 of 5 matches")

	buf.Reset()
	CommitResult{RecordsDeleted: 1}.Display(&buf)
	assert.Contains(t, buf.String(), "1 record(s) deleted")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "<1ms", formatDuration(0.0001))
	assert.Equal(t, "5.0ms", formatDuration(0.005))
	assert.Equal(t, "250ms", formatDuration(0.25))
	assert.Equal(t, "2.5s", formatDuration(2.5))
	assert.Equal(t, "2m", formatDuration(120))
	assert.Equal(t, "2m5s", formatDuration(125))
}
