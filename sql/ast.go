package sql

import "github.com/tesseradb/tessera/core"

type StatementType int

const (
	CreateTableType StatementType = iota
	DropTableType
	InsertType
	SelectType
	UpdateType
	DeleteType
)

// Statement is one parsed SQL statement.
type Statement interface {
	Type() StatementType
}

type CreateTableStatement struct {
	Table       string
	IfNotExists bool
	Columns     []core.Column
}

func (s *CreateTableStatement) Type() StatementType { return CreateTableType }

type DropTableStatement struct {
	Table    string
	IfExists bool
}

func (s *DropTableStatement) Type() StatementType { return DropTableType }

type InsertStatement struct {
	Table   string
	Columns []string // empty means full schema order
	Rows    [][]Expression
}

func (s *InsertStatement) Type() StatementType { return InsertType }

// TableRef names a table with an optional alias.
type TableRef struct {
	Name  string
	Alias string
}

type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	CrossJoin
)

func (k JoinKind) String() string {
	switch k {
	case LeftJoin:
		return "LEFT JOIN"
	case RightJoin:
		return "RIGHT JOIN"
	case CrossJoin:
		return "CROSS JOIN"
	default:
		return "INNER JOIN"
	}
}

type JoinClause struct {
	Kind  JoinKind
	Table TableRef
	On    Expression // nil for CROSS JOIN
}

// SelectItem is one projection entry: a column reference or a star,
// optionally qualified (`t.*`, `t.col`).
type SelectItem struct {
	Star   bool
	Table  string
	Column string
}

type OrderItem struct {
	Table  string
	Column string
	Desc   bool
}

type SelectStatement struct {
	Projection []SelectItem
	From       TableRef
	Joins      []JoinClause
	Where      Expression
	OrderBy    []OrderItem
	Limit      *int64
	Offset     *int64
}

func (s *SelectStatement) Type() StatementType { return SelectType }

type Assignment struct {
	Column string
	Value  Expression
}

type UpdateStatement struct {
	Table       string
	Assignments []Assignment
	Where       Expression
}

func (s *UpdateStatement) Type() StatementType { return UpdateType }

type DeleteStatement struct {
	Table string
	Where Expression
}

func (s *DeleteStatement) Type() StatementType { return DeleteType }

// Expression is a node of the parsed expression tree. Evaluation is an
// exhaustive type switch in the executor.
type Expression interface {
	expr()
}

type LiteralExpr struct {
	Value core.Value
}

type ColumnRefExpr struct {
	Table  string // optional alias qualifier
	Column string
	Line   int
	Col    int
}

type BinaryOp int

const (
	OpEquals BinaryOp = iota
	OpNotEquals
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpAnd
	OpOr
)

func (op BinaryOp) String() string {
	switch op {
	case OpEquals:
		return "="
	case OpNotEquals:
		return "<>"
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	default:
		return "?"
	}
}

type BinaryExpr struct {
	Op    BinaryOp
	Left  Expression
	Right Expression
}

type UnaryOp int

const (
	OpNegate UnaryOp = iota
	OpNot
)

type UnaryExpr struct {
	Op      UnaryOp
	Operand Expression
}

type IsNullExpr struct {
	Operand Expression
	Negated bool
}

type LikeExpr struct {
	Operand Expression
	Pattern string
}

func (*LiteralExpr) expr()   {}
func (*ColumnRefExpr) expr() {}
func (*BinaryExpr) expr()    {}
func (*UnaryExpr) expr()     {}
func (*IsNullExpr) expr()    {}
func (*LikeExpr) expr()      {}
