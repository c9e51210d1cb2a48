package storage

import (
	"sort"
	"strings"

	"github.com/tesseradb/tessera/core"
)

// Database is the catalog: a case-insensitive map from table name to
// Table. It starts empty and carries no implicit global state.
type Database struct {
	tables map[string]*Table
}

func NewDatabase() *Database {
	return &Database{tables: make(map[string]*Table)}
}

// Create adds a table for the schema. The schema's table name decides
// the catalog key.
func (d *Database) Create(schema *core.TableSchema) (*Table, error) {
	key := strings.ToLower(schema.Table)
	if _, exists := d.tables[key]; exists {
		return nil, core.NewTableExists(schema.Table)
	}
	t := NewTable(schema)
	d.tables[key] = t
	return t, nil
}

// Drop removes a table and all its indexes.
func (d *Database) Drop(name string) error {
	key := strings.ToLower(name)
	if _, exists := d.tables[key]; !exists {
		return core.NewTableNotFound(name)
	}
	delete(d.tables, key)
	return nil
}

// Get resolves a table name case-insensitively.
func (d *Database) Get(name string) (*Table, error) {
	t, ok := d.tables[strings.ToLower(name)]
	if !ok {
		return nil, core.NewTableNotFound(name)
	}
	return t, nil
}

// Has reports whether a table exists.
func (d *Database) Has(name string) bool {
	_, ok := d.tables[strings.ToLower(name)]
	return ok
}

// List returns the declared table names in sorted order.
func (d *Database) List() []string {
	names := make([]string, 0, len(d.tables))
	for _, t := range d.tables {
		names = append(names, t.Schema.Table)
	}
	sort.Strings(names)
	return names
}

// Clear drops every table.
func (d *Database) Clear() {
	d.tables = make(map[string]*Table)
}
