package tessera

import (
	"testing"

	"github.com/tesseradb/tessera/core"
	"github.com/tesseradb/tessera/db"
)

var testIdentity = core.Identity{Name: "test", Email: "test@test.com"}

// runWithBothPersistence runs a test against both memory and file
// backed instances.
func runWithBothPersistence(t *testing.T, testFunc func(t *testing.T, instance *Instance)) {
	t.Run("Memory", func(t *testing.T) {
		instance, err := OpenMemory()
		if err != nil {
			t.Fatalf("Failed to initialize memory persistence: %v", err)
		}
		testFunc(t, instance)
	})

	t.Run("File", func(t *testing.T) {
		instance, err := OpenFile(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to initialize file persistence: %v", err)
		}
		testFunc(t, instance)
	})
}

func mustExec(t *testing.T, engine *db.Engine, query string) db.Result {
	t.Helper()
	result, err := engine.Execute(query)
	if err != nil {
		t.Fatalf("Execute(%q): %v", query, err)
	}
	return result
}

func TestIntegrationWorkflow(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, instance *Instance) {
		engine := instance.Engine()

		mustExec(t, engine, "CREATE TABLE employees (id INTEGER PRIMARY KEY, name TEXT NOT NULL, department TEXT, salary INTEGER)")
		mustExec(t, engine, `INSERT INTO employees VALUES
			(1, 'Ann', 'eng', 120),
			(2, 'Bob', 'eng', 100),
			(3, 'Cid', 'sales', 90),
			(4, 'Dee', NULL, 80)`)

		result := mustExec(t, engine,
			"SELECT name FROM employees WHERE department = 'eng' ORDER BY salary DESC")
		rows := result.(db.QueryResult).Data()
		if len(rows) != 2 || rows[0][0] != "Ann" || rows[1][0] != "Bob" {
			t.Fatalf("eng rows = %v", rows)
		}

		mustExec(t, engine, "UPDATE employees SET salary = salary + 10 WHERE department IS NULL")
		result = mustExec(t, engine, "SELECT salary FROM employees WHERE id = 4")
		if got := result.(db.QueryResult).Data(); got[0][0] != "90" {
			t.Errorf("salary after update = %v", got)
		}

		affected := mustExec(t, engine, "DELETE FROM employees WHERE salary < 95")
		if affected.(db.ExecResult).RowsAffected != 2 {
			t.Errorf("deleted = %d, want 2", affected.(db.ExecResult).RowsAffected)
		}

		if _, err := instance.Save(testIdentity, "after cleanup"); err != nil {
			t.Fatalf("Save: %v", err)
		}
	})
}

func TestSnapshotRoundTripThroughPersistence(t *testing.T) {
	runWithBothPersistence(t, func(t *testing.T, instance *Instance) {
		engine := instance.Engine()
		mustExec(t, engine, "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT UNIQUE)")
		mustExec(t, engine, "INSERT INTO notes VALUES (1, 'first'), (2, 'second')")

		if _, err := instance.Save(testIdentity, "two notes"); err != nil {
			t.Fatal(err)
		}

		mustExec(t, engine, "DELETE FROM notes WHERE id = 2")
		if err := instance.Load(); err != nil {
			t.Fatal(err)
		}

		result := mustExec(t, engine, "SELECT * FROM notes")
		if got := len(result.(db.QueryResult).Rows); got != 2 {
			t.Fatalf("rows after reload = %d, want 2", got)
		}

		// The rebuilt unique index still enforces constraints.
		if _, err := engine.Execute("INSERT INTO notes VALUES (3, 'first')"); err == nil {
			t.Error("duplicate unique value accepted after restore")
		}
	})
}

func TestLoadAtOlderCommit(t *testing.T) {
	instance, err := OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	engine := instance.Engine()

	mustExec(t, engine, "CREATE TABLE t (id INTEGER PRIMARY KEY)")
	mustExec(t, engine, "INSERT INTO t VALUES (1)")
	first, err := instance.Save(testIdentity, "v1")
	if err != nil {
		t.Fatal(err)
	}

	mustExec(t, engine, "INSERT INTO t VALUES (2), (3)")
	if _, err := instance.Save(testIdentity, "v2"); err != nil {
		t.Fatal(err)
	}

	if err := instance.LoadAt(first.ID); err != nil {
		t.Fatal(err)
	}
	result := mustExec(t, engine, "SELECT * FROM t")
	if got := len(result.(db.QueryResult).Rows); got != 1 {
		t.Errorf("rows at v1 = %d, want 1", got)
	}

	history, err := instance.Persistence.History()
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Errorf("history length = %d, want 2", len(history))
	}
}

func TestOpenRestoresExistingData(t *testing.T) {
	dir := t.TempDir()

	instance, err := OpenFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	engine := instance.Engine()
	mustExec(t, engine, "CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)")
	mustExec(t, engine, "INSERT INTO t VALUES (1, 'kept')")
	if _, err := instance.Save(testIdentity, "persist"); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	result := mustExec(t, reopened.Engine(), "SELECT v FROM t WHERE id = 1")
	got := result.(db.QueryResult).Data()
	if len(got) != 1 || got[0][0] != "kept" {
		t.Errorf("reopened rows = %v", got)
	}
}
