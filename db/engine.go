package db

import (
	"fmt"
	"sort"
	"time"

	"github.com/tesseradb/tessera/core"
	"github.com/tesseradb/tessera/sql"
	"github.com/tesseradb/tessera/storage"
)

// Engine executes statements against one catalog. It is single-writer:
// callers that share an Engine across goroutines must serialize access
// per statement.
type Engine struct {
	DB *storage.Database
}

func NewEngine(db *storage.Database) *Engine {
	return &Engine{DB: db}
}

// Execute parses and runs a single statement.
func (engine *Engine) Execute(query string) (Result, error) {
	started := time.Now()
	statement, err := sql.Parse(query)
	if err != nil {
		return nil, err
	}
	result, err := engine.ExecuteStatement(statement)
	if err != nil {
		return nil, err
	}
	return withElapsed(result, time.Since(started).Seconds()), nil
}

// ExecuteStatement runs an already parsed statement.
func (engine *Engine) ExecuteStatement(statement sql.Statement) (Result, error) {
	switch statement.Type() {
	case sql.SelectType:
		return engine.executeSelect(statement.(*sql.SelectStatement))
	case sql.InsertType:
		return engine.executeInsert(statement.(*sql.InsertStatement))
	case sql.UpdateType:
		return engine.executeUpdate(statement.(*sql.UpdateStatement))
	case sql.DeleteType:
		return engine.executeDelete(statement.(*sql.DeleteStatement))
	case sql.CreateTableType:
		return engine.executeCreateTable(statement.(*sql.CreateTableStatement))
	case sql.DropTableType:
		return engine.executeDropTable(statement.(*sql.DropTableStatement))
	default:
		return nil, core.NewRuntimeError("unsupported statement")
	}
}

func withElapsed(result Result, secs float64) Result {
	switch r := result.(type) {
	case QueryResult:
		r.ExecutionTimeSec = secs
		return r
	case ExecResult:
		r.ExecutionTimeSec = secs
		return r
	case AckResult:
		r.ExecutionTimeSec = secs
		return r
	default:
		return result
	}
}

func (engine *Engine) executeCreateTable(statement *sql.CreateTableStatement) (Result, error) {
	if engine.DB.Has(statement.Table) && statement.IfNotExists {
		return AckResult{Message: fmt.Sprintf("Table %q already exists, skipped", statement.Table)}, nil
	}
	schema, err := core.NewTableSchema(statement.Table, statement.Columns)
	if err != nil {
		return nil, err
	}
	if _, err := engine.DB.Create(schema); err != nil {
		return nil, err
	}
	return AckResult{Message: fmt.Sprintf("Table %q created", statement.Table)}, nil
}

func (engine *Engine) executeDropTable(statement *sql.DropTableStatement) (Result, error) {
	if !engine.DB.Has(statement.Table) && statement.IfExists {
		return AckResult{Message: fmt.Sprintf("Table %q does not exist, skipped", statement.Table)}, nil
	}
	if err := engine.DB.Drop(statement.Table); err != nil {
		return nil, err
	}
	return AckResult{Message: fmt.Sprintf("Table %q dropped", statement.Table)}, nil
}

func (engine *Engine) executeInsert(statement *sql.InsertStatement) (Result, error) {
	table, err := engine.DB.Get(statement.Table)
	if err != nil {
		return nil, err
	}
	schema := table.Schema

	// Map the optional column list onto schema positions.
	positions := make([]int, 0, len(statement.Columns))
	for _, name := range statement.Columns {
		_, pos, ok := schema.Column(name)
		if !ok {
			return nil, core.NewSchemaError("column %q does not exist in table %q", name, schema.Table)
		}
		for _, seen := range positions {
			if seen == pos {
				return nil, core.NewSchemaError("column %q listed twice", name)
			}
		}
		positions = append(positions, pos)
	}

	empty := &rowContext{}
	rows := make([][]core.Value, 0, len(statement.Rows))
	for _, tuple := range statement.Rows {
		values := make([]core.Value, len(tuple))
		for i, expr := range tuple {
			v, err := evaluate(expr, empty)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}

		if len(statement.Columns) == 0 {
			if len(values) != len(schema.Columns) {
				return nil, core.NewSchemaError(
					"table %q expects %d values, got %d",
					schema.Table, len(schema.Columns), len(values))
			}
			rows = append(rows, values)
			continue
		}

		if len(values) != len(positions) {
			return nil, core.NewSchemaError(
				"INSERT lists %d columns but %d values",
				len(positions), len(values))
		}
		full := make([]core.Value, len(schema.Columns))
		for i := range full {
			full[i] = core.Null()
		}
		for i, pos := range positions {
			full[pos] = values[i]
		}
		rows = append(rows, full)
	}

	count, err := table.InsertMany(rows)
	if err != nil {
		return nil, err
	}
	return ExecResult{RowsAffected: count}, nil
}

func (engine *Engine) executeUpdate(statement *sql.UpdateStatement) (Result, error) {
	table, err := engine.DB.Get(statement.Table)
	if err != nil {
		return nil, err
	}
	matched, err := engine.matchRows(table, "", statement.Where)
	if err != nil {
		return nil, err
	}

	// Evaluate every new tuple before mutating anything, so an
	// evaluation fault leaves the table untouched.
	type pending struct {
		id     int64
		values []core.Value
	}
	updates := make([]pending, 0, len(matched))
	for _, row := range matched {
		ctx := singleTableContext(table, "")
		ctx.slots[0].values = row.Values

		next := make([]core.Value, len(row.Values))
		copy(next, row.Values)
		for _, assignment := range statement.Assignments {
			_, pos, ok := table.Schema.Column(assignment.Column)
			if !ok {
				return nil, core.NewColumnNotFound(assignment.Column, table.Schema.Table)
			}
			v, err := evaluate(assignment.Value, ctx)
			if err != nil {
				return nil, err
			}
			next[pos] = v
		}
		updates = append(updates, pending{id: row.ID, values: next})
	}

	for _, u := range updates {
		if err := table.Update(u.id, u.values); err != nil {
			return nil, err
		}
	}
	return ExecResult{RowsAffected: len(updates)}, nil
}

func (engine *Engine) executeDelete(statement *sql.DeleteStatement) (Result, error) {
	table, err := engine.DB.Get(statement.Table)
	if err != nil {
		return nil, err
	}
	matched, err := engine.matchRows(table, "", statement.Where)
	if err != nil {
		return nil, err
	}
	for _, row := range matched {
		table.Delete(row.ID)
	}
	return ExecResult{RowsAffected: len(matched)}, nil
}

// matchRows returns the rows of one table satisfying the predicate, in
// insertion order. A single equality test on an indexed column is
// answered from the index instead of a scan; the predicate is still
// applied to every candidate, so semantics never depend on the path.
func (engine *Engine) matchRows(table *storage.Table, alias string, where sql.Expression) ([]*storage.Row, error) {
	var candidates []*storage.Row
	if ids, ok := indexedEqualityLookup(table, alias, where); ok {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			if row, exists := table.Get(id); exists {
				candidates = append(candidates, row)
			}
		}
	} else {
		candidates = table.Scan()
	}

	if where == nil {
		return candidates, nil
	}

	ctx := singleTableContext(table, alias)
	matched := make([]*storage.Row, 0, len(candidates))
	for _, row := range candidates {
		ctx.slots[0].values = row.Values
		v, err := evaluate(where, ctx)
		if err != nil {
			return nil, err
		}
		if isTrue(v) {
			matched = append(matched, row)
		}
	}
	return matched, nil
}

// indexedEqualityLookup recognizes `col = literal` (either operand
// order) over an indexed column and answers it from the B-tree.
func indexedEqualityLookup(table *storage.Table, alias string, where sql.Expression) ([]int64, bool) {
	binary, ok := where.(*sql.BinaryExpr)
	if !ok || binary.Op != sql.OpEquals {
		return nil, false
	}

	ref, lit := asRefAndLiteral(binary.Left, binary.Right)
	if ref == nil {
		ref, lit = asRefAndLiteral(binary.Right, binary.Left)
	}
	if ref == nil || lit.Value.IsNull() {
		return nil, false
	}
	if ref.Table != "" {
		slot := tableSlot{alias: alias, name: table.Schema.Table}
		if slot.alias == "" {
			slot.alias = table.Schema.Table
		}
		if !slot.matches(ref.Table) {
			return nil, false
		}
	}

	idx, indexed := table.Index(ref.Column)
	if !indexed {
		return nil, false
	}
	return idx.Search(lit.Value), true
}

func asRefAndLiteral(a, b sql.Expression) (*sql.ColumnRefExpr, *sql.LiteralExpr) {
	ref, ok := a.(*sql.ColumnRefExpr)
	if !ok {
		return nil, nil
	}
	lit, ok := b.(*sql.LiteralExpr)
	if !ok {
		return nil, nil
	}
	return ref, lit
}

// joinRow holds the current row values of every joined table in slot
// order; a nil entry is the NULL side of an outer join.
type joinRow [][]core.Value

func contextFor(slots []tableSlot, row joinRow) *rowContext {
	ctxSlots := make([]tableSlot, len(slots))
	copy(ctxSlots, slots)
	for i := range ctxSlots {
		ctxSlots[i].values = row[i]
	}
	return &rowContext{slots: ctxSlots}
}

func extend(row joinRow, values []core.Value) joinRow {
	next := make(joinRow, len(row)+1)
	copy(next, row)
	next[len(row)] = values
	return next
}

func (engine *Engine) executeSelect(statement *sql.SelectStatement) (Result, error) {
	base, err := engine.DB.Get(statement.From.Name)
	if err != nil {
		return nil, err
	}
	alias := statement.From.Alias
	if alias == "" {
		alias = base.Schema.Table
	}
	slots := []tableSlot{{alias: alias, name: base.Schema.Table, schema: base.Schema}}

	var rows []joinRow
	if len(statement.Joins) == 0 {
		matched, err := engine.matchRows(base, statement.From.Alias, statement.Where)
		if err != nil {
			return nil, err
		}
		for _, row := range matched {
			rows = append(rows, joinRow{row.Values})
		}
	} else {
		for _, row := range base.Scan() {
			rows = append(rows, joinRow{row.Values})
		}
		for _, join := range statement.Joins {
			slots, rows, err = engine.applyJoin(slots, rows, join)
			if err != nil {
				return nil, err
			}
		}
		if statement.Where != nil {
			filtered := rows[:0]
			for _, row := range rows {
				v, err := evaluate(statement.Where, contextFor(slots, row))
				if err != nil {
					return nil, err
				}
				if isTrue(v) {
					filtered = append(filtered, row)
				}
			}
			rows = filtered
		}
	}

	if len(statement.OrderBy) > 0 {
		if err := orderRows(slots, rows, statement.OrderBy); err != nil {
			return nil, err
		}
	}

	rows = paginate(rows, statement.Offset, statement.Limit)

	columns, picks, err := resolveProjection(slots, statement.Projection)
	if err != nil {
		return nil, err
	}
	result := QueryResult{Columns: columns}
	for _, row := range rows {
		out := make([]core.Value, len(picks))
		for i, pick := range picks {
			if row[pick.slot] == nil {
				out[i] = core.Null()
			} else {
				out[i] = row[pick.slot][pick.col]
			}
		}
		result.Rows = append(result.Rows, out)
	}
	return result, nil
}

func (engine *Engine) applyJoin(slots []tableSlot, rows []joinRow, join sql.JoinClause) ([]tableSlot, []joinRow, error) {
	right, err := engine.DB.Get(join.Table.Name)
	if err != nil {
		return nil, nil, err
	}
	alias := join.Table.Alias
	if alias == "" {
		alias = right.Schema.Table
	}
	nextSlots := append(append([]tableSlot{}, slots...), tableSlot{
		alias:  alias,
		name:   right.Schema.Table,
		schema: right.Schema,
	})
	rightRows := right.Scan()

	onMatches := func(row joinRow) (bool, error) {
		if join.On == nil {
			return true, nil
		}
		v, err := evaluate(join.On, contextFor(nextSlots, row))
		if err != nil {
			return false, err
		}
		return isTrue(v), nil
	}

	var combined []joinRow
	switch join.Kind {
	case sql.CrossJoin:
		for _, left := range rows {
			for _, r := range rightRows {
				combined = append(combined, extend(left, r.Values))
			}
		}

	case sql.InnerJoin, sql.LeftJoin:
		for _, left := range rows {
			matched := false
			for _, r := range rightRows {
				candidate := extend(left, r.Values)
				ok, err := onMatches(candidate)
				if err != nil {
					return nil, nil, err
				}
				if ok {
					combined = append(combined, candidate)
					matched = true
				}
			}
			if !matched && join.Kind == sql.LeftJoin {
				combined = append(combined, extend(left, nil))
			}
		}

	case sql.RightJoin:
		for _, r := range rightRows {
			matched := false
			for _, left := range rows {
				candidate := extend(left, r.Values)
				ok, err := onMatches(candidate)
				if err != nil {
					return nil, nil, err
				}
				if ok {
					combined = append(combined, candidate)
					matched = true
				}
			}
			if !matched {
				nulls := make(joinRow, len(slots)+1)
				nulls[len(slots)] = r.Values
				combined = append(combined, nulls)
			}
		}
	}
	return nextSlots, combined, nil
}

// orderRows stable-sorts in place by the ORDER BY items. NULL keys
// sort lowest, consistent with index key ordering.
func orderRows(slots []tableSlot, rows []joinRow, items []sql.OrderItem) error {
	type keyed struct {
		row joinRow
		key []core.Value
	}
	entries := make([]keyed, len(rows))
	for i, row := range rows {
		ctx := contextFor(slots, row)
		key := make([]core.Value, len(items))
		for j, item := range items {
			v, err := ctx.resolve(item.Table, item.Column)
			if err != nil {
				return err
			}
			key[j] = v
		}
		entries[i] = keyed{row: row, key: key}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		for k, item := range items {
			c := entries[i].key[k].Compare(entries[j].key[k])
			if c == 0 {
				continue
			}
			if item.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	for i, entry := range entries {
		rows[i] = entry.row
	}
	return nil
}

func paginate(rows []joinRow, offset, limit *int64) []joinRow {
	if offset != nil {
		skip := *offset
		if skip > int64(len(rows)) {
			skip = int64(len(rows))
		}
		rows = rows[skip:]
	}
	if limit != nil && *limit < int64(len(rows)) {
		rows = rows[:*limit]
	}
	return rows
}

type projectionPick struct {
	slot int
	col  int
}

func resolveProjection(slots []tableSlot, items []sql.SelectItem) ([]string, []projectionPick, error) {
	var columns []string
	var picks []projectionPick

	addAll := func(slot int) {
		for col, def := range slots[slot].schema.Columns {
			columns = append(columns, def.Name)
			picks = append(picks, projectionPick{slot: slot, col: col})
		}
	}

	for _, item := range items {
		switch {
		case item.Star && item.Table == "":
			for slot := range slots {
				addAll(slot)
			}

		case item.Star:
			found := false
			for slot := range slots {
				if slots[slot].matches(item.Table) {
					addAll(slot)
					found = true
					break
				}
			}
			if !found {
				return nil, nil, core.NewRuntimeError("unknown table or alias %q", item.Table)
			}

		case item.Table != "":
			resolved := false
			for slot := range slots {
				if !slots[slot].matches(item.Table) {
					continue
				}
				def, col, ok := slots[slot].schema.Column(item.Column)
				if !ok {
					return nil, nil, core.NewColumnNotFound(item.Column, slots[slot].name)
				}
				columns = append(columns, def.Name)
				picks = append(picks, projectionPick{slot: slot, col: col})
				resolved = true
				break
			}
			if !resolved {
				return nil, nil, core.NewRuntimeError("unknown table or alias %q", item.Table)
			}

		default:
			at := -1
			colAt := -1
			for slot := range slots {
				if _, col, ok := slots[slot].schema.Column(item.Column); ok {
					if at >= 0 {
						return nil, nil, core.NewAmbiguousColumn(item.Column)
					}
					at, colAt = slot, col
				}
			}
			if at < 0 {
				return nil, nil, core.NewColumnNotFound(item.Column, "")
			}
			columns = append(columns, slots[at].schema.Columns[colAt].Name)
			picks = append(picks, projectionPick{slot: at, col: colAt})
		}
	}
	return columns, picks, nil
}
