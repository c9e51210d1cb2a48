package db

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tesseradb/tessera/core"
	"github.com/tesseradb/tessera/storage"
)

func newTestEngine(t *testing.T, setup ...string) *Engine {
	t.Helper()
	engine := NewEngine(storage.NewDatabase())
	for _, query := range setup {
		if _, err := engine.Execute(query); err != nil {
			t.Fatalf("setup %q: %v", query, err)
		}
	}
	return engine
}

func query(t *testing.T, engine *Engine, text string) QueryResult {
	t.Helper()
	result, err := engine.Execute(text)
	if err != nil {
		t.Fatalf("Execute(%q): %v", text, err)
	}
	qr, ok := result.(QueryResult)
	if !ok {
		t.Fatalf("Execute(%q) returned %T", text, result)
	}
	return qr
}

func rowStrings(result QueryResult) [][]string {
	return result.Data()
}

func TestCreateInsertSelect(t *testing.T) {
	engine := newTestEngine(t,
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)",
		"INSERT INTO users VALUES (1, 'Ann', 30), (2, 'Bob', 25)",
	)

	result := query(t, engine, "SELECT * FROM users")
	if !reflect.DeepEqual(result.Columns, []string{"id", "name", "age"}) {
		t.Errorf("columns = %v", result.Columns)
	}
	want := [][]string{{"1", "Ann", "30"}, {"2", "Bob", "25"}}
	if !reflect.DeepEqual(rowStrings(result), want) {
		t.Errorf("rows = %v, want %v", rowStrings(result), want)
	}
}

func TestPrimaryKeyLookup(t *testing.T) {
	engine := newTestEngine(t,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)",
		"INSERT INTO t VALUES (1, 'a'), (2, 'b'), (3, 'c')",
	)
	result := query(t, engine, "SELECT v FROM t WHERE id = 2")
	if !reflect.DeepEqual(rowStrings(result), [][]string{{"b"}}) {
		t.Errorf("rows = %v", rowStrings(result))
	}
}

func TestInsertStatementIsAtomic(t *testing.T) {
	engine := newTestEngine(t,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT UNIQUE)",
		"INSERT INTO t VALUES (1, 'a'), (2, 'b')",
	)

	_, err := engine.Execute("INSERT INTO t VALUES (3, 'c'), (4, 'a')")
	if !errors.Is(err, core.ErrKind(core.ConstraintViolation)) {
		t.Fatalf("err = %v, want constraint violation", err)
	}
	result := query(t, engine, "SELECT * FROM t")
	if len(result.Rows) != 2 {
		t.Errorf("row count = %d after rolled-back insert, want 2", len(result.Rows))
	}
}

func TestEndToEndUpdateCycle(t *testing.T) {
	engine := newTestEngine(t,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT UNIQUE)",
		"INSERT INTO t VALUES (1, 'a'), (2, 'b')",
	)

	if _, err := engine.Execute("INSERT INTO t VALUES (3, 'a')"); err == nil {
		t.Fatal("duplicate unique value accepted")
	}
	if len(query(t, engine, "SELECT * FROM t").Rows) != 2 {
		t.Fatal("table changed by failed insert")
	}

	if _, err := engine.Execute("UPDATE t SET v = 'c' WHERE id = 1"); err != nil {
		t.Fatal(err)
	}
	if len(query(t, engine, "SELECT * FROM t WHERE v = 'a'").Rows) != 0 {
		t.Error("old unique value still matches")
	}
	got := rowStrings(query(t, engine, "SELECT * FROM t WHERE v = 'c'"))
	if !reflect.DeepEqual(got, [][]string{{"1", "c"}}) {
		t.Errorf("rows = %v", got)
	}
}

func TestInsertColumnList(t *testing.T) {
	engine := newTestEngine(t,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)",
		"INSERT INTO t (age, id) VALUES (41, 7)",
	)
	got := rowStrings(query(t, engine, "SELECT * FROM t"))
	if !reflect.DeepEqual(got, [][]string{{"7", "NULL", "41"}}) {
		t.Errorf("rows = %v", got)
	}

	_, err := engine.Execute("INSERT INTO t (id, name) VALUES (8)")
	if !errors.Is(err, core.ErrKind(core.SchemaError)) {
		t.Errorf("arity mismatch err = %v, want schema error", err)
	}
	_, err = engine.Execute("INSERT INTO t (id, nosuch) VALUES (8, 1)")
	if !errors.Is(err, core.ErrKind(core.SchemaError)) {
		t.Errorf("unknown column err = %v, want schema error", err)
	}
}

func TestDelete(t *testing.T) {
	engine := newTestEngine(t,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, age INTEGER)",
		"INSERT INTO t VALUES (1, 10), (2, 20), (3, 30)",
	)
	result, err := engine.Execute("DELETE FROM t WHERE age > 15")
	if err != nil {
		t.Fatal(err)
	}
	if result.(ExecResult).RowsAffected != 2 {
		t.Errorf("affected = %d", result.(ExecResult).RowsAffected)
	}
	if len(query(t, engine, "SELECT * FROM t").Rows) != 1 {
		t.Error("wrong rows left")
	}
}

func TestWhereNullNeverMatches(t *testing.T) {
	engine := newTestEngine(t,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, v INTEGER)",
		"INSERT INTO t VALUES (1, NULL), (2, 5)",
	)
	if got := query(t, engine, "SELECT id FROM t WHERE v = NULL"); len(got.Rows) != 0 {
		t.Errorf("v = NULL matched %d rows", len(got.Rows))
	}
	if got := query(t, engine, "SELECT id FROM t WHERE v <> 5"); len(got.Rows) != 0 {
		t.Errorf("v <> 5 matched NULL row: %v", rowStrings(got))
	}
	got := query(t, engine, "SELECT id FROM t WHERE v IS NULL")
	if !reflect.DeepEqual(rowStrings(got), [][]string{{"1"}}) {
		t.Errorf("IS NULL rows = %v", rowStrings(got))
	}
}

func TestLikeFilter(t *testing.T) {
	engine := newTestEngine(t,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)",
		"INSERT INTO t VALUES (1, 'Bob'), (2, 'Rob'), (3, 'Roberto')",
	)
	got := rowStrings(query(t, engine, "SELECT name FROM t WHERE name LIKE '%ob'"))
	if !reflect.DeepEqual(got, [][]string{{"Bob"}, {"Rob"}}) {
		t.Errorf("%%ob rows = %v", got)
	}
	got = rowStrings(query(t, engine, "SELECT name FROM t WHERE name LIKE '_ob'"))
	if !reflect.DeepEqual(got, [][]string{{"Bob"}, {"Rob"}}) {
		t.Errorf("_ob rows = %v", got)
	}
}

func joinFixture(t *testing.T) *Engine {
	return newTestEngine(t,
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)",
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER, total REAL)",
		"INSERT INTO users VALUES (1, 'Ann'), (2, 'Bob'), (3, 'Cid')",
		"INSERT INTO orders VALUES (10, 1, 9.5)",
	)
}

func TestInnerJoin(t *testing.T) {
	engine := joinFixture(t)
	got := rowStrings(query(t, engine,
		"SELECT u.name, o.total FROM users u INNER JOIN orders o ON u.id = o.user_id"))
	if !reflect.DeepEqual(got, [][]string{{"Ann", "9.5"}}) {
		t.Errorf("rows = %v", got)
	}
}

func TestLeftJoin(t *testing.T) {
	engine := joinFixture(t)
	got := rowStrings(query(t, engine,
		"SELECT u.name, o.total FROM users u LEFT JOIN orders o ON u.id = o.user_id"))
	want := [][]string{{"Ann", "9.5"}, {"Bob", "NULL"}, {"Cid", "NULL"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestRightJoin(t *testing.T) {
	engine := newTestEngine(t,
		"CREATE TABLE a (id INTEGER PRIMARY KEY)",
		"CREATE TABLE b (id INTEGER PRIMARY KEY, a_id INTEGER)",
		"INSERT INTO a VALUES (1)",
		"INSERT INTO b VALUES (10, 1), (11, 99)",
	)
	got := rowStrings(query(t, engine,
		"SELECT a.id, b.id FROM a RIGHT JOIN b ON a.id = b.a_id"))
	want := [][]string{{"1", "10"}, {"NULL", "11"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestCrossJoin(t *testing.T) {
	engine := newTestEngine(t,
		"CREATE TABLE a (x INTEGER)",
		"CREATE TABLE b (y INTEGER)",
		"INSERT INTO a VALUES (1), (2)",
		"INSERT INTO b VALUES (10), (20)",
	)
	got := query(t, engine, "SELECT * FROM a CROSS JOIN b")
	if len(got.Rows) != 4 {
		t.Errorf("cross join produced %d rows, want 4", len(got.Rows))
	}
}

func TestChainedJoins(t *testing.T) {
	engine := newTestEngine(t,
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)",
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER)",
		"CREATE TABLE items (order_id INTEGER, sku TEXT)",
		"INSERT INTO users VALUES (1, 'Ann')",
		"INSERT INTO orders VALUES (10, 1)",
		"INSERT INTO items VALUES (10, 'widget')",
	)
	got := rowStrings(query(t, engine,
		"SELECT u.name, i.sku FROM users u INNER JOIN orders o ON u.id = o.user_id INNER JOIN items i ON o.id = i.order_id"))
	if !reflect.DeepEqual(got, [][]string{{"Ann", "widget"}}) {
		t.Errorf("rows = %v", got)
	}
}

func TestAmbiguousColumn(t *testing.T) {
	engine := joinFixture(t)
	_, err := engine.Execute("SELECT id FROM users u INNER JOIN orders o ON u.id = o.user_id")
	if !errors.Is(err, core.ErrKind(core.RuntimeError)) {
		t.Errorf("err = %v, want runtime error", err)
	}
}

func TestOrderByLimitOffset(t *testing.T) {
	engine := newTestEngine(t,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, age INTEGER)",
		"INSERT INTO t VALUES (1, 30), (2, 50), (3, 10), (4, 40), (5, 20)",
	)
	got := rowStrings(query(t, engine, "SELECT age FROM t ORDER BY age DESC LIMIT 2 OFFSET 1"))
	if !reflect.DeepEqual(got, [][]string{{"40"}, {"30"}}) {
		t.Errorf("rows = %v, want 2nd and 3rd largest", got)
	}
}

func TestOrderByIsStable(t *testing.T) {
	engine := newTestEngine(t,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, age INTEGER)",
		"INSERT INTO t VALUES (1, 20), (2, 10), (3, 20), (4, 10)",
	)
	got := rowStrings(query(t, engine, "SELECT id FROM t ORDER BY age"))
	want := [][]string{{"2"}, {"4"}, {"1"}, {"3"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want insertion order within equal keys %v", got, want)
	}
}

func TestOrderByNullLowest(t *testing.T) {
	engine := newTestEngine(t,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, v INTEGER)",
		"INSERT INTO t VALUES (1, 5), (2, NULL), (3, 1)",
	)
	got := rowStrings(query(t, engine, "SELECT id FROM t ORDER BY v"))
	if !reflect.DeepEqual(got, [][]string{{"2"}, {"3"}, {"1"}}) {
		t.Errorf("ascending rows = %v", got)
	}
	got = rowStrings(query(t, engine, "SELECT id FROM t ORDER BY v DESC"))
	if !reflect.DeepEqual(got, [][]string{{"1"}, {"3"}, {"2"}}) {
		t.Errorf("descending rows = %v", got)
	}
}

func TestIfNotExistsAndIfExists(t *testing.T) {
	engine := newTestEngine(t, "CREATE TABLE t (a INTEGER)")

	if _, err := engine.Execute("CREATE TABLE t (a INTEGER)"); err == nil {
		t.Error("duplicate CREATE should fail")
	}
	if _, err := engine.Execute("CREATE TABLE IF NOT EXISTS t (a INTEGER)"); err != nil {
		t.Errorf("IF NOT EXISTS: %v", err)
	}
	if _, err := engine.Execute("DROP TABLE t"); err != nil {
		t.Errorf("DROP: %v", err)
	}
	if _, err := engine.Execute("DROP TABLE t"); err == nil {
		t.Error("second DROP should fail")
	}
	if _, err := engine.Execute("DROP TABLE IF EXISTS t"); err != nil {
		t.Errorf("IF EXISTS: %v", err)
	}
}

func TestUpdateWithExpression(t *testing.T) {
	engine := newTestEngine(t,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, age INTEGER)",
		"INSERT INTO t VALUES (1, 30), (2, 40)",
	)
	if _, err := engine.Execute("UPDATE t SET age = age + 1"); err != nil {
		t.Fatal(err)
	}
	got := rowStrings(query(t, engine, "SELECT age FROM t ORDER BY id"))
	if !reflect.DeepEqual(got, [][]string{{"31"}, {"41"}}) {
		t.Errorf("rows = %v", got)
	}
}

func TestRealColumnAcceptsIntegerLiteral(t *testing.T) {
	engine := newTestEngine(t, "CREATE TABLE t (x REAL)")
	if _, err := engine.Execute("INSERT INTO t VALUES (3)"); err != nil {
		t.Fatalf("integer into REAL: %v", err)
	}
	_, err := engine.Execute("CREATE TABLE t2 (x INTEGER)")
	if err != nil {
		t.Fatal(err)
	}
	_, err = engine.Execute("INSERT INTO t2 VALUES (3.5)")
	if !errors.Is(err, core.ErrKind(core.TypeError)) {
		t.Errorf("real into INTEGER err = %v, want type error", err)
	}
}

func TestIndexFastPathMatchesScan(t *testing.T) {
	engine := newTestEngine(t,
		"CREATE TABLE t (id INTEGER PRIMARY KEY, v INTEGER)",
		"INSERT INTO t VALUES (1, 100), (2, 200), (3, 100)",
	)
	// id is indexed, v is not; both predicates must agree on shape.
	indexed := rowStrings(query(t, engine, "SELECT * FROM t WHERE id = 2"))
	scanned := rowStrings(query(t, engine, "SELECT * FROM t WHERE id + 0 = 2"))
	if !reflect.DeepEqual(indexed, scanned) {
		t.Errorf("indexed %v != scanned %v", indexed, scanned)
	}

	// A literal of the wrong kind matches nothing on both paths, with
	// no error from either.
	for _, q := range []string{
		"SELECT * FROM t WHERE id = 'abc'", // indexed column
		"SELECT * FROM t WHERE v = 'abc'",  // scanned column
	} {
		result, err := engine.Execute(q)
		if err != nil {
			t.Fatalf("%s: %v", q, err)
		}
		if rows := result.(QueryResult).Rows; len(rows) != 0 {
			t.Errorf("%s returned %d rows, want 0", q, len(rows))
		}
	}
}

func TestSelectMissingTable(t *testing.T) {
	engine := newTestEngine(t)
	_, err := engine.Execute("SELECT * FROM nosuch")
	if !errors.Is(err, core.ErrKind(core.SchemaError)) {
		t.Errorf("err = %v, want schema error", err)
	}
}
