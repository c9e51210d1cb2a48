package core

import "strings"

type DataType int

const (
	Integer DataType = iota
	Real
	Text
	Boolean
)

// ParseDataType resolves a declared type name or alias to a DataType.
func ParseDataType(name string) (DataType, bool) {
	switch strings.ToUpper(name) {
	case "INTEGER", "INT":
		return Integer, true
	case "REAL", "FLOAT", "DOUBLE":
		return Real, true
	case "TEXT", "VARCHAR", "STRING":
		return Text, true
	case "BOOLEAN", "BOOL":
		return Boolean, true
	default:
		return 0, false
	}
}

func (t DataType) String() string {
	switch t {
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	case Text:
		return "TEXT"
	case Boolean:
		return "BOOLEAN"
	default:
		return "UNKNOWN"
	}
}
