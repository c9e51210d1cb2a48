// Package tessera is a small relational SQL engine with git-backed
// snapshot persistence.
//
// Statements are parsed into an AST, executed against in-memory tables,
// and answered with structured results. PRIMARY KEY and UNIQUE columns
// are backed by B-tree indexes. The catalog can be captured as a
// snapshot, committed to a git repository, and restored later —
// including from any older commit.
//
// # Quick Start
//
// Create an in-memory instance:
//
//	instance, _ := tessera.OpenMemory()
//	engine := instance.Engine()
//
//	engine.Execute("CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)")
//	engine.Execute("INSERT INTO users VALUES (1, 'Alice')")
//
//	result, _ := engine.Execute("SELECT * FROM users")
//	result.Display()
//
// # Supported SQL
//
//   - CREATE TABLE [IF NOT EXISTS], DROP TABLE [IF EXISTS]
//   - column constraints: PRIMARY KEY, UNIQUE, NOT NULL
//   - INSERT (multi-row, optional column list), SELECT, UPDATE, DELETE
//   - WHERE with three-valued NULL logic, IS [NOT] NULL, LIKE
//   - arithmetic expressions (+ - * /)
//   - JOINs: INNER, LEFT, RIGHT, CROSS
//   - ORDER BY, LIMIT, OFFSET
package tessera
