package db

import (
	"regexp"
	"strings"

	"github.com/tesseradb/tessera/core"
	"github.com/tesseradb/tessera/sql"
	"github.com/tesseradb/tessera/storage"
)

// tableSlot is one joined table within a row context: its alias, its
// schema, and the values of the current row. values is nil for the
// missing side of an outer join, which resolves every column to NULL.
type tableSlot struct {
	alias  string
	name   string
	schema *core.TableSchema
	values []core.Value
}

func (slot *tableSlot) matches(qualifier string) bool {
	return strings.EqualFold(slot.alias, qualifier) || strings.EqualFold(slot.name, qualifier)
}

// rowContext is the namespace one expression evaluates against: the
// current row of every joined table, in join order.
type rowContext struct {
	slots []tableSlot
}

// resolve finds a column value. A qualified reference must name a
// joined table; an unqualified one must match exactly one column
// across all joined tables.
func (ctx *rowContext) resolve(qualifier, column string) (core.Value, error) {
	if qualifier != "" {
		for i := range ctx.slots {
			slot := &ctx.slots[i]
			if !slot.matches(qualifier) {
				continue
			}
			if _, pos, ok := slot.schema.Column(column); ok {
				return slot.value(pos), nil
			}
			return core.Null(), core.NewColumnNotFound(column, slot.name)
		}
		return core.Null(), core.NewRuntimeError("unknown table or alias %q", qualifier)
	}

	found := false
	var result core.Value
	for i := range ctx.slots {
		slot := &ctx.slots[i]
		if _, pos, ok := slot.schema.Column(column); ok {
			if found {
				return core.Null(), core.NewAmbiguousColumn(column)
			}
			found = true
			result = slot.value(pos)
		}
	}
	if !found {
		return core.Null(), core.NewColumnNotFound(column, "")
	}
	return result, nil
}

func (slot *tableSlot) value(pos int) core.Value {
	if slot.values == nil {
		return core.Null()
	}
	return slot.values[pos]
}

func singleTableContext(table *storage.Table, alias string) *rowContext {
	if alias == "" {
		alias = table.Schema.Table
	}
	return &rowContext{slots: []tableSlot{{
		alias:  alias,
		name:   table.Schema.Table,
		schema: table.Schema,
	}}}
}

// evaluate walks the expression against the row context. NULL
// propagates through arithmetic and comparison; AND/OR/NOT follow the
// three-valued truth tables; IS [NOT] NULL is always determinate.
func evaluate(expr sql.Expression, ctx *rowContext) (core.Value, error) {
	switch e := expr.(type) {
	case *sql.LiteralExpr:
		return e.Value, nil

	case *sql.ColumnRefExpr:
		return ctx.resolve(e.Table, e.Column)

	case *sql.UnaryExpr:
		return evaluateUnary(e, ctx)

	case *sql.BinaryExpr:
		return evaluateBinary(e, ctx)

	case *sql.IsNullExpr:
		operand, err := evaluate(e.Operand, ctx)
		if err != nil {
			return core.Null(), err
		}
		return core.NewBoolean(operand.IsNull() != e.Negated), nil

	case *sql.LikeExpr:
		operand, err := evaluate(e.Operand, ctx)
		if err != nil {
			return core.Null(), err
		}
		if operand.IsNull() {
			return core.Null(), nil
		}
		if operand.Kind != core.KindText {
			return core.Null(), core.NewRuntimeError("LIKE requires a TEXT operand, got %s", operand.TypeName())
		}
		matched, err := likeMatch(operand.Str, e.Pattern)
		if err != nil {
			return core.Null(), err
		}
		return core.NewBoolean(matched), nil

	default:
		return core.Null(), core.NewRuntimeError("unsupported expression")
	}
}

func evaluateUnary(e *sql.UnaryExpr, ctx *rowContext) (core.Value, error) {
	operand, err := evaluate(e.Operand, ctx)
	if err != nil {
		return core.Null(), err
	}
	if operand.IsNull() {
		return core.Null(), nil
	}

	switch e.Op {
	case sql.OpNegate:
		switch operand.Kind {
		case core.KindInteger:
			return core.NewInteger(-operand.Int), nil
		case core.KindReal:
			return core.NewReal(-operand.Flt), nil
		}
		return core.Null(), core.NewRuntimeError("cannot negate %s", operand.TypeName())
	case sql.OpNot:
		if operand.Kind != core.KindBoolean {
			return core.Null(), core.NewRuntimeError("NOT requires a boolean operand, got %s", operand.TypeName())
		}
		return core.NewBoolean(!operand.Bool), nil
	}
	return core.Null(), core.NewRuntimeError("unsupported unary operator")
}

func evaluateBinary(e *sql.BinaryExpr, ctx *rowContext) (core.Value, error) {
	left, err := evaluate(e.Left, ctx)
	if err != nil {
		return core.Null(), err
	}
	right, err := evaluate(e.Right, ctx)
	if err != nil {
		return core.Null(), err
	}

	switch e.Op {
	case sql.OpAnd:
		return threeValuedAnd(left, right)
	case sql.OpOr:
		return threeValuedOr(left, right)
	}

	// Everything below propagates NULL operands.
	if left.IsNull() || right.IsNull() {
		return core.Null(), nil
	}

	switch e.Op {
	case sql.OpEquals, sql.OpNotEquals, sql.OpLessThan, sql.OpLessThanOrEqual,
		sql.OpGreaterThan, sql.OpGreaterThanOrEqual:
		return compare(e.Op, left, right)
	case sql.OpAdd, sql.OpSubtract, sql.OpMultiply, sql.OpDivide:
		return arithmetic(e.Op, left, right)
	}
	return core.Null(), core.NewRuntimeError("unsupported binary operator %s", e.Op)
}

func boolOrNull(v core.Value) (bool, bool, error) {
	if v.IsNull() {
		return false, true, nil
	}
	if v.Kind != core.KindBoolean {
		return false, false, core.NewRuntimeError("logical operator requires boolean operands, got %s", v.TypeName())
	}
	return v.Bool, false, nil
}

func threeValuedAnd(left, right core.Value) (core.Value, error) {
	l, lNull, err := boolOrNull(left)
	if err != nil {
		return core.Null(), err
	}
	r, rNull, err := boolOrNull(right)
	if err != nil {
		return core.Null(), err
	}
	switch {
	case (!lNull && !l) || (!rNull && !r):
		return core.NewBoolean(false), nil
	case lNull || rNull:
		return core.Null(), nil
	default:
		return core.NewBoolean(true), nil
	}
}

func threeValuedOr(left, right core.Value) (core.Value, error) {
	l, lNull, err := boolOrNull(left)
	if err != nil {
		return core.Null(), err
	}
	r, rNull, err := boolOrNull(right)
	if err != nil {
		return core.Null(), err
	}
	switch {
	case (!lNull && l) || (!rNull && r):
		return core.NewBoolean(true), nil
	case lNull || rNull:
		return core.Null(), nil
	default:
		return core.NewBoolean(false), nil
	}
}

func kindsComparable(left, right core.Value) bool {
	if _, ok := left.Numeric(); ok {
		_, ok := right.Numeric()
		return ok
	}
	return left.Kind == right.Kind
}

func compare(op sql.BinaryOp, left, right core.Value) (core.Value, error) {
	if !kindsComparable(left, right) {
		// Mismatched kinds are never equal; ordering them is an error.
		switch op {
		case sql.OpEquals:
			return core.NewBoolean(false), nil
		case sql.OpNotEquals:
			return core.NewBoolean(true), nil
		default:
			return core.Null(), core.NewRuntimeError("cannot compare %s and %s", left.TypeName(), right.TypeName())
		}
	}
	c := left.Compare(right)
	switch op {
	case sql.OpEquals:
		return core.NewBoolean(c == 0), nil
	case sql.OpNotEquals:
		return core.NewBoolean(c != 0), nil
	case sql.OpLessThan:
		return core.NewBoolean(c < 0), nil
	case sql.OpLessThanOrEqual:
		return core.NewBoolean(c <= 0), nil
	case sql.OpGreaterThan:
		return core.NewBoolean(c > 0), nil
	default:
		return core.NewBoolean(c >= 0), nil
	}
}

func arithmetic(op sql.BinaryOp, left, right core.Value) (core.Value, error) {
	if left.Kind == core.KindInteger && right.Kind == core.KindInteger {
		a, b := left.Int, right.Int
		switch op {
		case sql.OpAdd:
			return core.NewInteger(a + b), nil
		case sql.OpSubtract:
			return core.NewInteger(a - b), nil
		case sql.OpMultiply:
			return core.NewInteger(a * b), nil
		default:
			if b == 0 {
				return core.Null(), core.NewRuntimeError("division by zero")
			}
			return core.NewInteger(a / b), nil
		}
	}

	a, aok := left.Numeric()
	b, bok := right.Numeric()
	if !aok || !bok {
		return core.Null(), core.NewRuntimeError("cannot apply %s to %s and %s", op, left.TypeName(), right.TypeName())
	}
	switch op {
	case sql.OpAdd:
		return core.NewReal(a + b), nil
	case sql.OpSubtract:
		return core.NewReal(a - b), nil
	case sql.OpMultiply:
		return core.NewReal(a * b), nil
	default:
		if b == 0 {
			return core.Null(), core.NewRuntimeError("division by zero")
		}
		return core.NewReal(a / b), nil
	}
}

// likeMatch compiles a LIKE pattern: % matches any run of characters,
// _ matches exactly one. Matching is case-sensitive and anchored.
func likeMatch(text, pattern string) (bool, error) {
	var sb strings.Builder
	sb.WriteString(`(?s)\A`)
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString(`\z`)

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return false, core.NewRuntimeError("invalid LIKE pattern %q", pattern)
	}
	return re.MatchString(text), nil
}

// isTrue reports whether a predicate result keeps a row: only a
// boolean true does; false and NULL both exclude it.
func isTrue(v core.Value) bool {
	return v.Kind == core.KindBoolean && v.Bool
}
