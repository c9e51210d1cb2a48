package storage

import (
	"github.com/tesseradb/tessera/core"
)

// TableSnapshot is the serializable form of one table: its schema and
// its rows as ordered value tuples. Indexes are never serialized; they
// are rebuilt on restore.
type TableSnapshot struct {
	Name    string        `json:"name"`
	Columns []core.Column `json:"columns"`
	Rows    [][]any       `json:"rows"`
}

// Snapshot is the serializable form of the whole catalog.
type Snapshot struct {
	Tables []TableSnapshot `json:"tables"`
}

// BuildSnapshot captures the catalog. Tables appear in sorted name
// order; rows keep insertion order.
func BuildSnapshot(db *Database) *Snapshot {
	snap := &Snapshot{}
	for _, name := range db.List() {
		t, err := db.Get(name)
		if err != nil {
			continue
		}
		ts := TableSnapshot{
			Name:    t.Schema.Table,
			Columns: t.Schema.Columns,
		}
		for _, row := range t.Scan() {
			tuple := make([]any, len(row.Values))
			for i, v := range row.Values {
				tuple[i] = v.Native()
			}
			ts.Rows = append(ts.Rows, tuple)
		}
		snap.Tables = append(snap.Tables, ts)
	}
	return snap
}

// RestoreSnapshot replaces the catalog contents with the snapshot,
// recreating every table and rebuilding every index from the rows.
func RestoreSnapshot(db *Database, snap *Snapshot) error {
	db.Clear()
	for _, ts := range snap.Tables {
		schema, err := core.NewTableSchema(ts.Name, ts.Columns)
		if err != nil {
			return err
		}
		t, err := db.Create(schema)
		if err != nil {
			return err
		}
		for _, tuple := range ts.Rows {
			if len(tuple) != len(ts.Columns) {
				return core.NewSchemaError(
					"snapshot row for table %q has %d values, expected %d",
					ts.Name, len(tuple), len(ts.Columns))
			}
			values := make([]core.Value, len(tuple))
			for i, raw := range tuple {
				v, err := core.FromNative(raw, ts.Columns[i].Type, ts.Columns[i].Name)
				if err != nil {
					return err
				}
				values[i] = v
			}
			if _, err := t.Insert(values); err != nil {
				return err
			}
		}
	}
	return nil
}
