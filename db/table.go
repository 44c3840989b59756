package db

import (
	"fmt"
	"io"
	"strings"
)

// renderTable writes rows as a bordered, left-aligned text table.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = max(len(h), 1)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], len(row[i]))
		}
	}

	parts := make([]string, len(widths))
	for i, width := range widths {
		parts[i] = strings.Repeat("-", width+2)
	}
	separator := "+" + strings.Join(parts, "+") + "+"

	line := func(cells []string) string {
		out := make([]string, len(widths))
		for i, width := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			out[i] = " " + cell + strings.Repeat(" ", width-len(cell)+1)
		}
		return "|" + strings.Join(out, "|") + "|"
	}

	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, line(headers))
	fmt.Fprintln(w, separator)
	for _, row := range rows {
		fmt.Fprintln(w, line(row))
	}
	fmt.Fprintln(w, separator)
}
