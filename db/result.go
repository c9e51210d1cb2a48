package db

import (
	"fmt"
	"os"

	"github.com/tesseradb/tessera/core"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	ExecResultType
	AckResultType
)

// Result is the outcome of one executed statement.
type Result interface {
	Type() ResultType
	Display()
}

// QueryResult carries the rows a SELECT produced.
type QueryResult struct {
	Columns          []string
	Rows             [][]core.Value
	ExecutionTimeSec float64
}

// ExecResult reports how many rows a DML statement touched.
type ExecResult struct {
	RowsAffected     int
	ExecutionTimeSec float64
}

// AckResult acknowledges a DDL statement.
type AckResult struct {
	Message          string
	ExecutionTimeSec float64
}

func (result QueryResult) Type() ResultType { return QueryResultType }
func (result ExecResult) Type() ResultType  { return ExecResultType }
func (result AckResult) Type() ResultType   { return AckResultType }

// Data renders the rows as display strings.
func (result QueryResult) Data() [][]string {
	data := make([][]string, len(result.Rows))
	for i, row := range result.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = v.String()
		}
		data[i] = cells
	}
	return data
}

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
	case secs < 10:
		return fmt.Sprintf("%.1fs", secs)
	default:
		return fmt.Sprintf("%ds", int(secs))
	}
}

func (result QueryResult) Display() {
	if len(result.Rows) > 0 {
		table := NewTable(os.Stdout)
		table.Header(result.Columns)
		table.Bulk(result.Data())
		table.Render()
	}
	noun := "rows"
	if len(result.Rows) == 1 {
		noun = "row"
	}
	fmt.Printf("%d %s (%s)\n", len(result.Rows), noun, formatDuration(result.ExecutionTimeSec))
}

func (result ExecResult) Display() {
	noun := "rows"
	if result.RowsAffected == 1 {
		noun = "row"
	}
	fmt.Printf("%d %s affected (%s)\n", result.RowsAffected, noun, formatDuration(result.ExecutionTimeSec))
}

func (result AckResult) Display() {
	fmt.Printf("%s (%s)\n", result.Message, formatDuration(result.ExecutionTimeSec))
}
