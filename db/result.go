package db

import (
	"fmt"
	"io"
	"strconv"
)

type ResultType int

const (
	ValueResultType ResultType = iota
	CommitResultType
	QueryResultType
)

type Result interface {
	Type() ResultType
	Display(w io.Writer)
}

// ValueResult is the outcome of GET. Value is the canonical encoding of the
// row.
type ValueResult struct {
	Table            string
	Key              string
	Value            string
	Version          uint64
	ExecutionTimeSec float64
}

type CommitResult struct {
	Table            string
	Key              string
	RecordsWritten   int
	RecordsDeleted   int
	ExecutionTimeSec float64
}

// QueryResult lists matching keys in storage order. Total can exceed
// len(Keys) when the caller capped the number of keys it kept.
type QueryResult struct {
	Table            string
	Keys             []string
	Total            int
	RecordsRead      int
	ExecutionTimeSec float64
}

func (result ValueResult) Type() ResultType {
	return ValueResultType
}

func (result CommitResult) Type() ResultType {
	return CommitResultType
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	switch {
	case secs < 0.001:
		return "<1ms"
	case secs < 1:
		ms := secs * 1000
		if ms < 10 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%dms", int(ms))
	case secs < 60:
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	default:
		mins := int(secs / 60)
		remainSecs := int(secs) % 60
		if remainSecs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm%ds", mins, remainSecs)
	}
}

func (result ValueResult) Display(w io.Writer) {
	renderTable(w, []string{"key", "value", "version"}, [][]string{
		{result.Key, result.Value, strconv.FormatUint(result.Version, 10)},
	})
	fmt.Fprintf(w, "1 row (%s)\n", formatDuration(result.ExecutionTimeSec))
}

func (result CommitResult) Display(w io.Writer) {
	switch {
	case result.RecordsWritten > 0:
		fmt.Fprintf(w, "%d record(s) written (%s)\n", result.RecordsWritten, formatDuration(result.ExecutionTimeSec))
	case result.RecordsDeleted > 0:
		fmt.Fprintf(w, "%d record(s) deleted (%s)\n", result.RecordsDeleted, formatDuration(result.ExecutionTimeSec))
	default:
		fmt.Fprintf(w, "OK (%s)\n", formatDuration(result.ExecutionTimeSec))
	}
}

func (result QueryResult) Display(w io.Writer) {
	if len(result.Keys) > 0 {
		rows := make([][]string, len(result.Keys))
		for i, key := range result.Keys {
			rows[i] = []string{key}
		}
		renderTable(w, []string{"key"}, rows)
	}

	total := result.Total
	if total < len(result.Keys) {
		total = len(result.Keys)
	}
	if total > len(result.Keys) {
		fmt.Fprintf(w, "%d of %d matches (%s)\n", len(result.Keys), total, formatDuration(result.ExecutionTimeSec))
		return
	}
	fmt.Fprintf(w, "%d matches (%s)\n", total, formatDuration(result.ExecutionTimeSec))
}
