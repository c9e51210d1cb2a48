package core

import (
	"strconv"
	"strings"
)

type ValueKind int

const (
	KindNull ValueKind = iota
	KindInteger
	KindReal
	KindText
	KindBoolean
)

// Value is a typed, nullable SQL scalar. The zero Value is NULL.
type Value struct {
	Kind ValueKind
	Int  int64
	Flt  float64
	Str  string
	Bool bool
}

func Null() Value {
	return Value{Kind: KindNull}
}

func NewInteger(v int64) Value {
	return Value{Kind: KindInteger, Int: v}
}

func NewReal(v float64) Value {
	return Value{Kind: KindReal, Flt: v}
}

func NewText(v string) Value {
	return Value{Kind: KindText, Str: v}
}

func NewBoolean(v bool) Value {
	return Value{Kind: KindBoolean, Bool: v}
}

func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// Numeric returns the value as a float64 for cross-type arithmetic and
// comparison between INTEGER and REAL.
func (v Value) Numeric() (float64, bool) {
	switch v.Kind {
	case KindInteger:
		return float64(v.Int), true
	case KindReal:
		return v.Flt, true
	default:
		return 0, false
	}
}

// Compare orders two values: NULL lowest, numerics numerically across
// INTEGER/REAL, TEXT by code points, false before true. Values of
// incomparable kinds are ordered by kind so sorting stays total.
func (v Value) Compare(other Value) int {
	if v.Kind == KindNull || other.Kind == KindNull {
		if v.Kind == other.Kind {
			return 0
		}
		if v.Kind == KindNull {
			return -1
		}
		return 1
	}

	if a, ok := v.Numeric(); ok {
		if b, ok := other.Numeric(); ok {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		}
	}

	if v.Kind == KindText && other.Kind == KindText {
		return strings.Compare(v.Str, other.Str)
	}

	if v.Kind == KindBoolean && other.Kind == KindBoolean {
		switch {
		case v.Bool == other.Bool:
			return 0
		case !v.Bool:
			return -1
		default:
			return 1
		}
	}

	return int(v.Kind) - int(other.Kind)
}

// Equal reports strict equality under the Compare ordering; NULL is
// never equal to anything, including NULL.
func (v Value) Equal(other Value) bool {
	if v.IsNull() || other.IsNull() {
		return false
	}
	return v.Compare(other) == 0
}

// Coerce validates v against a declared column type, widening integer
// literals into REAL columns. NULL passes through unchanged.
func (v Value) Coerce(t DataType, column string) (Value, error) {
	if v.IsNull() {
		return v, nil
	}

	switch t {
	case Integer:
		if v.Kind == KindInteger {
			return v, nil
		}
	case Real:
		if v.Kind == KindReal {
			return v, nil
		}
		if v.Kind == KindInteger {
			return NewReal(float64(v.Int)), nil
		}
	case Text:
		if v.Kind == KindText {
			return v, nil
		}
	case Boolean:
		if v.Kind == KindBoolean {
			return v, nil
		}
	}

	return Null(), NewTypeError(column, t, v)
}

// TypeName names the runtime type of the value for error messages.
func (v Value) TypeName() string {
	switch v.Kind {
	case KindInteger:
		return "INTEGER"
	case KindReal:
		return "REAL"
	case KindText:
		return "TEXT"
	case KindBoolean:
		return "BOOLEAN"
	default:
		return "NULL"
	}
}

// String renders the value the way the REPL displays it.
func (v Value) String() string {
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindReal:
		if v.Flt == float64(int64(v.Flt)) {
			return strconv.FormatInt(int64(v.Flt), 10)
		}
		return strconv.FormatFloat(v.Flt, 'g', -1, 64)
	case KindText:
		return v.Str
	case KindBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	default:
		return "NULL"
	}
}

// Native converts the value to its JSON-friendly Go representation,
// used by the snapshot encoder.
func (v Value) Native() any {
	switch v.Kind {
	case KindInteger:
		return v.Int
	case KindReal:
		return v.Flt
	case KindText:
		return v.Str
	case KindBoolean:
		return v.Bool
	default:
		return nil
	}
}

// FromNative rebuilds a Value of the given column type from a decoded
// JSON scalar. JSON numbers arrive as float64; integer columns accept
// them only when they carry no fractional part.
func FromNative(raw any, t DataType, column string) (Value, error) {
	if raw == nil {
		return Null(), nil
	}

	switch t {
	case Integer:
		switch n := raw.(type) {
		case float64:
			if n == float64(int64(n)) {
				return NewInteger(int64(n)), nil
			}
		case int64:
			return NewInteger(n), nil
		}
	case Real:
		switch n := raw.(type) {
		case float64:
			return NewReal(n), nil
		case int64:
			return NewReal(float64(n)), nil
		}
	case Text:
		if s, ok := raw.(string); ok {
			return NewText(s), nil
		}
	case Boolean:
		if b, ok := raw.(bool); ok {
			return NewBoolean(b), nil
		}
	}

	return Null(), NewTypeErrorMessage(column, t, "unsupported snapshot value")
}
