package sql

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tesseradb/tessera/core"
)

func mustParse(t *testing.T, text string) Statement {
	t.Helper()
	statement, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return statement
}

func TestParseCreateTable(t *testing.T) {
	statement := mustParse(t, "CREATE TABLE IF NOT EXISTS users (id INTEGER PRIMARY KEY, email TEXT UNIQUE, name VARCHAR NOT NULL, score REAL)")
	create, ok := statement.(*CreateTableStatement)
	if !ok {
		t.Fatalf("statement type = %T", statement)
	}
	want := &CreateTableStatement{
		Table:       "users",
		IfNotExists: true,
		Columns: []core.Column{
			{Name: "id", Type: core.Integer, PrimaryKey: true},
			{Name: "email", Type: core.Text, Unique: true},
			{Name: "name", Type: core.Text, NotNull: true},
			{Name: "score", Type: core.Real},
		},
	}
	if !reflect.DeepEqual(create, want) {
		t.Errorf("got %+v, want %+v", create, want)
	}
}

func TestParseDropTable(t *testing.T) {
	statement := mustParse(t, "DROP TABLE IF EXISTS users")
	drop := statement.(*DropTableStatement)
	if drop.Table != "users" || !drop.IfExists {
		t.Errorf("got %+v", drop)
	}
}

func TestParseInsert(t *testing.T) {
	statement := mustParse(t, "INSERT INTO users (id, name) VALUES (1, 'Ann'), (2, NULL)")
	insert := statement.(*InsertStatement)
	if insert.Table != "users" {
		t.Errorf("table = %q", insert.Table)
	}
	if !reflect.DeepEqual(insert.Columns, []string{"id", "name"}) {
		t.Errorf("columns = %v", insert.Columns)
	}
	if len(insert.Rows) != 2 || len(insert.Rows[0]) != 2 {
		t.Fatalf("rows = %+v", insert.Rows)
	}
	first := insert.Rows[0][0].(*LiteralExpr)
	if first.Value.Int != 1 {
		t.Errorf("first value = %v", first.Value)
	}
	if lit := insert.Rows[1][1].(*LiteralExpr); !lit.Value.IsNull() {
		t.Errorf("expected NULL literal, got %v", lit.Value)
	}
}

func TestParseInsertNegativeLiteral(t *testing.T) {
	statement := mustParse(t, "INSERT INTO t VALUES (-5, -2.5)")
	insert := statement.(*InsertStatement)
	if lit := insert.Rows[0][0].(*LiteralExpr); lit.Value.Int != -5 {
		t.Errorf("first = %v", lit.Value)
	}
	if lit := insert.Rows[0][1].(*LiteralExpr); lit.Value.Flt != -2.5 {
		t.Errorf("second = %v", lit.Value)
	}
}

func TestParseSelect(t *testing.T) {
	statement := mustParse(t, "SELECT u.name, o.total FROM users u LEFT JOIN orders o ON u.id = o.user_id WHERE o.total > 10 ORDER BY o.total DESC, u.name LIMIT 5 OFFSET 2")
	sel := statement.(*SelectStatement)

	wantProj := []SelectItem{
		{Table: "u", Column: "name"},
		{Table: "o", Column: "total"},
	}
	if !reflect.DeepEqual(sel.Projection, wantProj) {
		t.Errorf("projection = %+v", sel.Projection)
	}
	if sel.From != (TableRef{Name: "users", Alias: "u"}) {
		t.Errorf("from = %+v", sel.From)
	}
	if len(sel.Joins) != 1 || sel.Joins[0].Kind != LeftJoin || sel.Joins[0].Table != (TableRef{Name: "orders", Alias: "o"}) {
		t.Errorf("joins = %+v", sel.Joins)
	}
	on, ok := sel.Joins[0].On.(*BinaryExpr)
	if !ok || on.Op != OpEquals {
		t.Errorf("on = %+v", sel.Joins[0].On)
	}
	wantOrder := []OrderItem{
		{Table: "o", Column: "total", Desc: true},
		{Table: "u", Column: "name"},
	}
	if !reflect.DeepEqual(sel.OrderBy, wantOrder) {
		t.Errorf("order by = %+v", sel.OrderBy)
	}
	if sel.Limit == nil || *sel.Limit != 5 || sel.Offset == nil || *sel.Offset != 2 {
		t.Errorf("limit/offset = %v/%v", sel.Limit, sel.Offset)
	}
}

func TestParseSelectStar(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM t").(*SelectStatement)
	if len(sel.Projection) != 1 || !sel.Projection[0].Star {
		t.Errorf("projection = %+v", sel.Projection)
	}

	sel = mustParse(t, "SELECT u.* FROM users u").(*SelectStatement)
	if !sel.Projection[0].Star || sel.Projection[0].Table != "u" {
		t.Errorf("projection = %+v", sel.Projection)
	}
}

func TestParseCrossJoin(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM a CROSS JOIN b").(*SelectStatement)
	if sel.Joins[0].Kind != CrossJoin || sel.Joins[0].On != nil {
		t.Errorf("joins = %+v", sel.Joins)
	}

	_, err := Parse("SELECT * FROM a CROSS JOIN b ON a.x = b.x")
	if !errors.Is(err, core.ErrKind(core.ParseError)) {
		t.Errorf("CROSS JOIN with ON: err = %v, want parse error", err)
	}

	_, err = Parse("SELECT * FROM a INNER JOIN b")
	if !errors.Is(err, core.ErrKind(core.ParseError)) {
		t.Errorf("INNER JOIN without ON: err = %v, want parse error", err)
	}
}

func TestParseUpdate(t *testing.T) {
	statement := mustParse(t, "UPDATE users SET name = 'Bob', age = age + 1 WHERE id = 3")
	update := statement.(*UpdateStatement)
	if update.Table != "users" || len(update.Assignments) != 2 {
		t.Fatalf("got %+v", update)
	}
	if update.Assignments[0].Column != "name" {
		t.Errorf("first assignment = %+v", update.Assignments[0])
	}
	add, ok := update.Assignments[1].Value.(*BinaryExpr)
	if !ok || add.Op != OpAdd {
		t.Errorf("second assignment = %+v", update.Assignments[1].Value)
	}
	if update.Where == nil {
		t.Error("missing where")
	}
}

func TestParseDelete(t *testing.T) {
	statement := mustParse(t, "DELETE FROM users WHERE age IS NOT NULL")
	del := statement.(*DeleteStatement)
	isNull, ok := del.Where.(*IsNullExpr)
	if !ok || !isNull.Negated {
		t.Errorf("where = %+v", del.Where)
	}
}

func TestExpressionPrecedence(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM t WHERE a = 1 OR b = 2 AND NOT c > 3 + 4 * 5").(*SelectStatement)

	or, ok := sel.Where.(*BinaryExpr)
	if !ok || or.Op != OpOr {
		t.Fatalf("root = %+v", sel.Where)
	}
	and, ok := or.Right.(*BinaryExpr)
	if !ok || and.Op != OpAnd {
		t.Fatalf("or.Right = %+v", or.Right)
	}
	not, ok := and.Right.(*UnaryExpr)
	if !ok || not.Op != OpNot {
		t.Fatalf("and.Right = %+v", and.Right)
	}
	cmp, ok := not.Operand.(*BinaryExpr)
	if !ok || cmp.Op != OpGreaterThan {
		t.Fatalf("not.Operand = %+v", not.Operand)
	}
	add, ok := cmp.Right.(*BinaryExpr)
	if !ok || add.Op != OpAdd {
		t.Fatalf("cmp.Right = %+v", cmp.Right)
	}
	mul, ok := add.Right.(*BinaryExpr)
	if !ok || mul.Op != OpMultiply {
		t.Fatalf("add.Right = %+v", add.Right)
	}
}

func TestParseLike(t *testing.T) {
	sel := mustParse(t, "SELECT * FROM t WHERE name LIKE '%ob'").(*SelectStatement)
	like, ok := sel.Where.(*LikeExpr)
	if !ok || like.Pattern != "%ob" {
		t.Errorf("where = %+v", sel.Where)
	}
}

func TestParseAll(t *testing.T) {
	statements, err := ParseAll("CREATE TABLE t (a INT); INSERT INTO t VALUES (1); SELECT * FROM t;")
	if err != nil {
		t.Fatal(err)
	}
	if len(statements) != 3 {
		t.Fatalf("got %d statements", len(statements))
	}
	if statements[0].Type() != CreateTableType || statements[1].Type() != InsertType || statements[2].Type() != SelectType {
		t.Errorf("statement types wrong: %v %v %v", statements[0].Type(), statements[1].Type(), statements[2].Type())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"FROBNICATE users",
		"SELECT FROM t",
		"CREATE TABLE t (a BLOB)",
		"INSERT INTO t VALUES (1",
		"SELECT * FROM t WHERE",
		"UPDATE t SET",
		"SELECT * FROM t LIMIT x",
		"CREATE TABLE t (id INTEGER PRIMARY)",
	}
	for _, text := range tests {
		if _, err := Parse(text); !errors.Is(err, core.ErrKind(core.ParseError)) {
			t.Errorf("Parse(%q) err = %v, want parse error", text, err)
		}
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse("SELECT *\nFROM")
	var parseErr *core.Error
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v", err)
	}
	if parseErr.Line != 2 {
		t.Errorf("line = %d, want 2", parseErr.Line)
	}
}
