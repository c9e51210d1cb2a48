// Package core provides the types shared by every layer of Tessera.
//
// The package defines the typed Value scalar, the DataType enumeration,
// table schemas, structured engine errors, and the Identity used to
// author snapshot commits.
//
// # Values
//
// Value is a closed tagged union over INTEGER, REAL, TEXT, BOOLEAN and
// NULL. NULL is a distinct variant, not absence:
//
//	v := core.NewInteger(42)
//	n := core.Null()
//	v.Compare(n) // > 0, NULL sorts lowest
//
// # Schemas
//
// A TableSchema is an ordered list of column definitions:
//
//	schema, err := core.NewTableSchema("users", []core.Column{
//	    {Name: "id", Type: core.Integer, PrimaryKey: true},
//	    {Name: "email", Type: core.Text, Unique: true},
//	})
//
// Table and column names are normalized to lower case at the catalog
// boundary; lookups are case-insensitive.
//
// # Errors
//
// Engine faults are reported as *core.Error values carrying a Kind
// (LexError, ParseError, SchemaError, ConstraintViolation, TypeError,
// RuntimeError) plus position or table/column context.
package core
