package storage

import (
	"sort"
	"strings"

	"github.com/tesseradb/tessera/core"
	"github.com/tesseradb/tessera/index"
)

// Row is one stored record. ID is table-scoped, monotonic, and never
// reused; it is distinct from any user-visible primary key.
type Row struct {
	ID     int64
	Values []core.Value
}

// Table owns its rows and one B-tree per constrained column. Index
// entries track non-null values only, so UNIQUE columns admit any
// number of NULLs.
type Table struct {
	Schema  *core.TableSchema
	rows    map[int64]*Row
	order   []int64
	indexes map[string]*index.BTree
	nextID  int64
}

// NewTable builds an empty table and auto-creates an index for every
// PRIMARY KEY and UNIQUE column.
func NewTable(schema *core.TableSchema) *Table {
	t := &Table{
		Schema:  schema,
		rows:    make(map[int64]*Row),
		indexes: make(map[string]*index.BTree),
		nextID:  1,
	}
	for _, col := range schema.Columns {
		if col.PrimaryKey || col.Unique {
			t.indexes[strings.ToLower(col.Name)] = index.New(index.DefaultOrder)
		}
	}
	return t
}

// Index returns the B-tree for a column, if the column is indexed.
func (t *Table) Index(column string) (*index.BTree, bool) {
	idx, ok := t.indexes[strings.ToLower(column)]
	return idx, ok
}

// IndexedColumns returns the indexed column names in schema order.
func (t *Table) IndexedColumns() []string {
	var names []string
	for _, col := range t.Schema.Columns {
		if _, ok := t.indexes[strings.ToLower(col.Name)]; ok {
			names = append(names, col.Name)
		}
	}
	return names
}

// Len returns the live row count.
func (t *Table) Len() int {
	return len(t.rows)
}

// Get returns the row with the given id.
func (t *Table) Get(id int64) (*Row, bool) {
	r, ok := t.rows[id]
	return r, ok
}

// Scan returns all rows in insertion order.
func (t *Table) Scan() []*Row {
	out := make([]*Row, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

// validate coerces values against the schema and enforces arity and
// NOT NULL. It returns the coerced row.
func (t *Table) validate(values []core.Value) ([]core.Value, error) {
	if len(values) != len(t.Schema.Columns) {
		return nil, core.NewSchemaError(
			"table %q expects %d values, got %d",
			t.Schema.Table, len(t.Schema.Columns), len(values))
	}
	out := make([]core.Value, len(values))
	for i, col := range t.Schema.Columns {
		v, err := values[i].Coerce(col.Type, col.Name)
		if err != nil {
			return nil, err
		}
		if v.IsNull() && (col.NotNull || col.PrimaryKey) {
			return nil, core.NewNotNullViolation(col.Name)
		}
		out[i] = v
	}
	return out, nil
}

// checkUnique verifies the value is absent from the column's index.
func (t *Table) checkUnique(col core.Column, v core.Value) error {
	idx, ok := t.Index(col.Name)
	if !ok || v.IsNull() {
		return nil
	}
	if len(idx.Search(v)) > 0 {
		if col.PrimaryKey {
			return core.NewPrimaryKeyViolation(col.Name, v)
		}
		return core.NewUniqueViolation(col.Name, v)
	}
	return nil
}

// Insert validates and stores one row, returning its new row id.
func (t *Table) Insert(values []core.Value) (int64, error) {
	row, err := t.validate(values)
	if err != nil {
		return 0, err
	}
	for i, col := range t.Schema.Columns {
		if err := t.checkUnique(col, row[i]); err != nil {
			return 0, err
		}
	}

	id := t.nextID
	t.nextID++
	t.rows[id] = &Row{ID: id, Values: row}
	t.order = append(t.order, id)
	for i, col := range t.Schema.Columns {
		if idx, ok := t.Index(col.Name); ok && !row[i].IsNull() {
			idx.Insert(row[i], id)
		}
	}
	return id, nil
}

// InsertMany stores every row or none: a failure on any row removes
// the rows of this call that were already admitted.
func (t *Table) InsertMany(rows [][]core.Value) (int, error) {
	inserted := make([]int64, 0, len(rows))
	for _, values := range rows {
		id, err := t.Insert(values)
		if err != nil {
			for _, undo := range inserted {
				t.Delete(undo)
			}
			return 0, err
		}
		inserted = append(inserted, id)
	}
	return len(inserted), nil
}

// Update replaces the full value tuple of a row. Index maintenance is
// remove-then-insert so a row never collides with its own old value.
func (t *Table) Update(id int64, values []core.Value) error {
	row, ok := t.rows[id]
	if !ok {
		return core.NewRuntimeError("row %d does not exist in table %q", id, t.Schema.Table)
	}
	next, err := t.validate(values)
	if err != nil {
		return err
	}

	type change struct {
		idx      *index.BTree
		old, new core.Value
	}
	var changes []change
	for i, col := range t.Schema.Columns {
		idx, indexed := t.Index(col.Name)
		if !indexed || row.Values[i].Compare(next[i]) == 0 {
			continue
		}
		changes = append(changes, change{idx, row.Values[i], next[i]})
	}

	for _, ch := range changes {
		if !ch.old.IsNull() {
			ch.idx.Delete(ch.old, id)
		}
	}
	for ci, ch := range changes {
		if !ch.new.IsNull() && len(ch.idx.Search(ch.new)) > 0 {
			// Put the old entries back before reporting the clash.
			for _, undo := range changes[:ci] {
				if !undo.new.IsNull() {
					undo.idx.Delete(undo.new, id)
				}
			}
			for _, undo := range changes {
				if !undo.old.IsNull() {
					undo.idx.Insert(undo.old, id)
				}
			}
			col := t.columnForIndex(ch.idx)
			if col.PrimaryKey {
				return core.NewPrimaryKeyViolation(col.Name, ch.new)
			}
			return core.NewUniqueViolation(col.Name, ch.new)
		}
		if !ch.new.IsNull() {
			ch.idx.Insert(ch.new, id)
		}
	}

	row.Values = next
	return nil
}

func (t *Table) columnForIndex(idx *index.BTree) core.Column {
	for _, col := range t.Schema.Columns {
		if got, ok := t.Index(col.Name); ok && got == idx {
			return col
		}
	}
	return core.Column{}
}

// Delete removes a row and its index entries. Unknown ids are ignored.
func (t *Table) Delete(id int64) {
	row, ok := t.rows[id]
	if !ok {
		return
	}
	for i, col := range t.Schema.Columns {
		if idx, indexed := t.Index(col.Name); indexed && !row.Values[i].IsNull() {
			idx.Delete(row.Values[i], id)
		}
	}
	delete(t.rows, id)
	at := sort.Search(len(t.order), func(i int) bool { return t.order[i] >= id })
	if at < len(t.order) && t.order[at] == id {
		t.order = append(t.order[:at], t.order[at+1:]...)
	}
}
