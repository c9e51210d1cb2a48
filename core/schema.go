package core

import "strings"

// Column describes a single table column and its constraints.
type Column struct {
	Name       string   `json:"name"`
	Type       DataType `json:"type"`
	PrimaryKey bool     `json:"primary_key,omitempty"`
	Unique     bool     `json:"unique,omitempty"`
	NotNull    bool     `json:"not_null,omitempty"`
}

// TableSchema is the ordered column definition of a table. Column name
// lookups are case-insensitive, matching identifier handling in SQL text.
type TableSchema struct {
	Table   string   `json:"table"`
	Columns []Column `json:"columns"`
}

// NewTableSchema validates the column list: names must be unique
// (case-insensitively) and at most one column may be the primary key.
func NewTableSchema(table string, columns []Column) (*TableSchema, error) {
	if len(columns) == 0 {
		return nil, NewSchemaError("table %q must have at least one column", table)
	}
	seen := make(map[string]bool, len(columns))
	pk := ""
	for _, col := range columns {
		key := strings.ToLower(col.Name)
		if seen[key] {
			return nil, NewSchemaError("duplicate column %q in table %q", col.Name, table)
		}
		seen[key] = true
		if col.PrimaryKey {
			if pk != "" {
				return nil, NewSchemaError("table %q has multiple PRIMARY KEY columns (%q and %q)", table, pk, col.Name)
			}
			pk = col.Name
		}
	}
	return &TableSchema{Table: table, Columns: columns}, nil
}

// Column returns the column definition and its position, or ok=false.
func (s *TableSchema) Column(name string) (Column, int, bool) {
	for i, col := range s.Columns {
		if strings.EqualFold(col.Name, name) {
			return col, i, true
		}
	}
	return Column{}, -1, false
}

// ColumnNames returns the column names in definition order.
func (s *TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// PrimaryKey returns the primary key column, if any.
func (s *TableSchema) PrimaryKey() (Column, bool) {
	for _, col := range s.Columns {
		if col.PrimaryKey {
			return col, true
		}
	}
	return Column{}, false
}
