// Package sql contains the SQL front end: the lexer that turns raw
// statement text into positioned tokens, the statement and expression
// AST, and the recursive-descent parser.
package sql
