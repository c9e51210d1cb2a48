package db

import (
	"fmt"
	"io"
	"strings"
)

// Table is a plain text table renderer for result display.
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
}

func NewTable(w io.Writer) *Table {
	return &Table{writer: w}
}

func (t *Table) Header(headers []string) {
	t.headers = headers
}

func (t *Table) Row(row []string) {
	t.rows = append(t.rows, row)
}

func (t *Table) Bulk(rows [][]string) {
	t.rows = append(t.rows, rows...)
}

func (t *Table) Render() {
	if len(t.headers) == 0 && len(t.rows) == 0 {
		return
	}

	widths := t.widths()
	separator := t.separator(widths)

	fmt.Fprintln(t.writer, separator)
	if len(t.headers) > 0 {
		fmt.Fprintln(t.writer, t.formatRow(t.headers, widths))
		fmt.Fprintln(t.writer, separator)
	}
	for _, row := range t.rows {
		fmt.Fprintln(t.writer, t.formatRow(row, widths))
	}
	fmt.Fprintln(t.writer, separator)
}

func (t *Table) widths() []int {
	cols := len(t.headers)
	for _, row := range t.rows {
		if len(row) > cols {
			cols = len(row)
		}
	}

	widths := make([]int, cols)
	for i, h := range t.headers {
		if len(h) > widths[i] {
			widths[i] = len(h)
		}
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < cols && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	return widths
}

func (t *Table) separator(widths []int) string {
	var sb strings.Builder
	sb.WriteByte('+')
	for _, w := range widths {
		sb.WriteString(strings.Repeat("-", w+2))
		sb.WriteByte('+')
	}
	return sb.String()
}

func (t *Table) formatRow(cells []string, widths []int) string {
	var sb strings.Builder
	sb.WriteByte('|')
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		sb.WriteString(" " + cell + strings.Repeat(" ", w-len(cell)) + " ")
		sb.WriteByte('|')
	}
	return sb.String()
}
