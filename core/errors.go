package core

import "fmt"

type ErrorKind int

const (
	LexError ErrorKind = iota
	ParseError
	SchemaError
	ConstraintViolation
	TypeError
	RuntimeError
)

func (k ErrorKind) String() string {
	switch k {
	case LexError:
		return "lex error"
	case ParseError:
		return "parse error"
	case SchemaError:
		return "schema error"
	case ConstraintViolation:
		return "constraint violation"
	case TypeError:
		return "type error"
	case RuntimeError:
		return "runtime error"
	default:
		return "error"
	}
}

// Error is the structured fault value returned across the engine API.
// Line/Col are set for lex and parse errors; Table/Column/Value carry
// context for schema, constraint and type errors.
type Error struct {
	Kind    ErrorKind
	Message string
	Line    int
	Col     int
	Table   string
	Column  string
	Value   string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d, column %d: %s", e.Kind, e.Line, e.Col, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is makes errors.Is match on the error kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == ""
}

// ErrKind returns a sentinel for use with errors.Is.
func ErrKind(kind ErrorKind) *Error {
	return &Error{Kind: kind}
}

func NewLexError(message string, line, col int) *Error {
	return &Error{Kind: LexError, Message: message, Line: line, Col: col}
}

func NewParseError(message string, line, col int) *Error {
	return &Error{Kind: ParseError, Message: message, Line: line, Col: col}
}

func NewSchemaError(format string, args ...any) *Error {
	return &Error{Kind: SchemaError, Message: fmt.Sprintf(format, args...)}
}

func NewRuntimeError(format string, args ...any) *Error {
	return &Error{Kind: RuntimeError, Message: fmt.Sprintf(format, args...)}
}

func NewTableNotFound(table string) *Error {
	return &Error{
		Kind:    SchemaError,
		Message: fmt.Sprintf("table %q does not exist", table),
		Table:   table,
	}
}

func NewTableExists(table string) *Error {
	return &Error{
		Kind:    SchemaError,
		Message: fmt.Sprintf("table %q already exists", table),
		Table:   table,
	}
}

func NewColumnNotFound(column, table string) *Error {
	msg := fmt.Sprintf("column %q does not exist", column)
	if table != "" {
		msg = fmt.Sprintf("column %q does not exist in table %q", column, table)
	}
	return &Error{Kind: RuntimeError, Message: msg, Table: table, Column: column}
}

func NewAmbiguousColumn(column string) *Error {
	return &Error{
		Kind:    RuntimeError,
		Message: fmt.Sprintf("ambiguous column reference %q", column),
		Column:  column,
	}
}

func NewPrimaryKeyViolation(column string, value Value) *Error {
	return &Error{
		Kind:    ConstraintViolation,
		Message: fmt.Sprintf("PRIMARY KEY violation: duplicate value %q for column %q", value.String(), column),
		Column:  column,
		Value:   value.String(),
	}
}

func NewUniqueViolation(column string, value Value) *Error {
	return &Error{
		Kind:    ConstraintViolation,
		Message: fmt.Sprintf("UNIQUE constraint violation: duplicate value %q for column %q", value.String(), column),
		Column:  column,
		Value:   value.String(),
	}
}

func NewNotNullViolation(column string) *Error {
	return &Error{
		Kind:    ConstraintViolation,
		Message: fmt.Sprintf("NOT NULL constraint violation: column %q cannot be NULL", column),
		Column:  column,
	}
}

func NewTypeError(column string, expected DataType, got Value) *Error {
	return &Error{
		Kind:    TypeError,
		Message: fmt.Sprintf("type error for column %q: expected %s, got %s %q", column, expected, got.TypeName(), got.String()),
		Column:  column,
		Value:   got.String(),
	}
}

func NewTypeErrorMessage(column string, expected DataType, detail string) *Error {
	return &Error{
		Kind:    TypeError,
		Message: fmt.Sprintf("type error for column %q: expected %s: %s", column, expected, detail),
		Column:  column,
	}
}
