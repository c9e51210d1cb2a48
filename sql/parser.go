package sql

import (
	"fmt"
	"strconv"

	"github.com/tesseradb/tessera/core"
)

// Parser performs recursive descent over an eagerly produced token
// slice. Expression parsing climbs precedence tiers from OR down to
// primary terms.
type Parser struct {
	tokens []Token
	pos    int
}

func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse tokenizes and parses a single statement. A trailing semicolon
// is allowed; anything after it is an error.
func Parse(text string) (Statement, error) {
	statements, err := ParseAll(text)
	if err != nil {
		return nil, err
	}
	if len(statements) == 0 {
		return nil, core.NewParseError("empty statement", 1, 1)
	}
	if len(statements) > 1 {
		return nil, core.NewParseError("expected a single statement", 1, 1)
	}
	return statements[0], nil
}

// ParseAll parses a semicolon-separated script into its statement
// sequence. Each statement is later executed independently.
func ParseAll(text string) ([]Statement, error) {
	tokens, err := Tokenize(text)
	if err != nil {
		return nil, err
	}
	parser := NewParser(tokens)

	var statements []Statement
	for {
		for parser.cur().Type == Semicolon {
			parser.advance()
		}
		if parser.cur().Type == EOF {
			return statements, nil
		}
		statement, err := parser.parseStatement()
		if err != nil {
			return nil, err
		}
		statements = append(statements, statement)
		if tok := parser.cur(); tok.Type != Semicolon && tok.Type != EOF {
			return nil, parser.errorf(tok, "expected ';' or end of input, found %q", tok)
		}
	}
}

func (parser *Parser) cur() Token {
	return parser.tokens[parser.pos]
}

func (parser *Parser) advance() Token {
	token := parser.tokens[parser.pos]
	if token.Type != EOF {
		parser.pos++
	}
	return token
}

func (parser *Parser) accept(tokenType TokenType) bool {
	if parser.cur().Type == tokenType {
		parser.advance()
		return true
	}
	return false
}

func (parser *Parser) expect(tokenType TokenType, what string) (Token, error) {
	token := parser.cur()
	if token.Type != tokenType {
		return Token{}, parser.errorf(token, "expected %s, found %q", what, token)
	}
	parser.advance()
	return token, nil
}

func (parser *Parser) errorf(token Token, format string, args ...any) error {
	return core.NewParseError(fmt.Sprintf(format, args...), token.Line, token.Col)
}

func (parser *Parser) parseStatement() (Statement, error) {
	switch token := parser.cur(); token.Type {
	case Create:
		return parser.parseCreateTable()
	case Drop:
		return parser.parseDropTable()
	case Insert:
		return parser.parseInsert()
	case Select:
		return parser.parseSelect()
	case Update:
		return parser.parseUpdate()
	case Delete:
		return parser.parseDelete()
	default:
		return nil, parser.errorf(token, "expected a statement keyword, found %q", token)
	}
}

func (parser *Parser) parseCreateTable() (*CreateTableStatement, error) {
	parser.advance() // CREATE
	if _, err := parser.expect(Table, "TABLE"); err != nil {
		return nil, err
	}

	statement := &CreateTableStatement{}
	if parser.cur().Type == If {
		parser.advance()
		if _, err := parser.expect(Not, "NOT"); err != nil {
			return nil, err
		}
		if _, err := parser.expect(Exists, "EXISTS"); err != nil {
			return nil, err
		}
		statement.IfNotExists = true
	}

	name, err := parser.expect(Identifier, "table name")
	if err != nil {
		return nil, err
	}
	statement.Table = name.Value

	if _, err := parser.expect(ParenOpen, "'('"); err != nil {
		return nil, err
	}
	for {
		column, err := parser.parseColumnDef()
		if err != nil {
			return nil, err
		}
		statement.Columns = append(statement.Columns, column)
		if !parser.accept(Comma) {
			break
		}
	}
	if _, err := parser.expect(ParenClose, "')'"); err != nil {
		return nil, err
	}
	return statement, nil
}

func (parser *Parser) parseColumnDef() (core.Column, error) {
	name, err := parser.expect(Identifier, "column name")
	if err != nil {
		return core.Column{}, err
	}
	typeToken, err := parser.expect(Identifier, "column type")
	if err != nil {
		return core.Column{}, err
	}
	dataType, ok := core.ParseDataType(typeToken.Value)
	if !ok {
		return core.Column{}, parser.errorf(typeToken, "unknown column type %q", typeToken.Value)
	}

	column := core.Column{Name: name.Value, Type: dataType}
	for {
		switch parser.cur().Type {
		case Primary:
			parser.advance()
			if _, err := parser.expect(Key, "KEY"); err != nil {
				return core.Column{}, err
			}
			column.PrimaryKey = true
		case Unique:
			parser.advance()
			column.Unique = true
		case Not:
			parser.advance()
			if _, err := parser.expect(Null, "NULL"); err != nil {
				return core.Column{}, err
			}
			column.NotNull = true
		default:
			return column, nil
		}
	}
}

func (parser *Parser) parseDropTable() (*DropTableStatement, error) {
	parser.advance() // DROP
	if _, err := parser.expect(Table, "TABLE"); err != nil {
		return nil, err
	}

	statement := &DropTableStatement{}
	if parser.cur().Type == If {
		parser.advance()
		if _, err := parser.expect(Exists, "EXISTS"); err != nil {
			return nil, err
		}
		statement.IfExists = true
	}

	name, err := parser.expect(Identifier, "table name")
	if err != nil {
		return nil, err
	}
	statement.Table = name.Value
	return statement, nil
}

func (parser *Parser) parseInsert() (*InsertStatement, error) {
	parser.advance() // INSERT
	if _, err := parser.expect(Into, "INTO"); err != nil {
		return nil, err
	}
	name, err := parser.expect(Identifier, "table name")
	if err != nil {
		return nil, err
	}
	statement := &InsertStatement{Table: name.Value}

	if parser.accept(ParenOpen) {
		for {
			column, err := parser.expect(Identifier, "column name")
			if err != nil {
				return nil, err
			}
			statement.Columns = append(statement.Columns, column.Value)
			if !parser.accept(Comma) {
				break
			}
		}
		if _, err := parser.expect(ParenClose, "')'"); err != nil {
			return nil, err
		}
	}

	if _, err := parser.expect(Values, "VALUES"); err != nil {
		return nil, err
	}
	for {
		if _, err := parser.expect(ParenOpen, "'('"); err != nil {
			return nil, err
		}
		var row []Expression
		for {
			value, err := parser.parseExpression()
			if err != nil {
				return nil, err
			}
			row = append(row, value)
			if !parser.accept(Comma) {
				break
			}
		}
		if _, err := parser.expect(ParenClose, "')'"); err != nil {
			return nil, err
		}
		statement.Rows = append(statement.Rows, row)
		if !parser.accept(Comma) {
			break
		}
	}
	return statement, nil
}

func (parser *Parser) parseSelect() (*SelectStatement, error) {
	parser.advance() // SELECT
	statement := &SelectStatement{}

	for {
		item, err := parser.parseSelectItem()
		if err != nil {
			return nil, err
		}
		statement.Projection = append(statement.Projection, item)
		if !parser.accept(Comma) {
			break
		}
	}

	if _, err := parser.expect(From, "FROM"); err != nil {
		return nil, err
	}
	from, err := parser.parseTableRef()
	if err != nil {
		return nil, err
	}
	statement.From = from

	for {
		join, ok, err := parser.parseJoinClause()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		statement.Joins = append(statement.Joins, join)
	}

	if parser.accept(Where) {
		where, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		statement.Where = where
	}

	if parser.accept(Order) {
		if _, err := parser.expect(By, "BY"); err != nil {
			return nil, err
		}
		for {
			item, err := parser.parseOrderItem()
			if err != nil {
				return nil, err
			}
			statement.OrderBy = append(statement.OrderBy, item)
			if !parser.accept(Comma) {
				break
			}
		}
	}

	if parser.accept(Limit) {
		n, err := parser.parseIntegerBound("LIMIT")
		if err != nil {
			return nil, err
		}
		statement.Limit = &n
	}
	if parser.accept(Offset) {
		n, err := parser.parseIntegerBound("OFFSET")
		if err != nil {
			return nil, err
		}
		statement.Offset = &n
	}
	return statement, nil
}

func (parser *Parser) parseSelectItem() (SelectItem, error) {
	if parser.accept(Asterisk) {
		return SelectItem{Star: true}, nil
	}
	name, err := parser.expect(Identifier, "column name or '*'")
	if err != nil {
		return SelectItem{}, err
	}
	if !parser.accept(Dot) {
		return SelectItem{Column: name.Value}, nil
	}
	if parser.accept(Asterisk) {
		return SelectItem{Star: true, Table: name.Value}, nil
	}
	column, err := parser.expect(Identifier, "column name or '*'")
	if err != nil {
		return SelectItem{}, err
	}
	return SelectItem{Table: name.Value, Column: column.Value}, nil
}

func (parser *Parser) parseTableRef() (TableRef, error) {
	name, err := parser.expect(Identifier, "table name")
	if err != nil {
		return TableRef{}, err
	}
	ref := TableRef{Name: name.Value}
	if parser.cur().Type == Identifier {
		ref.Alias = parser.advance().Value
	}
	return ref, nil
}

// parseJoinClause parses one JOIN segment if the next tokens begin
// one; ok is false when the clause list has ended.
func (parser *Parser) parseJoinClause() (JoinClause, bool, error) {
	kind := InnerJoin
	switch parser.cur().Type {
	case Join:
		parser.advance()
	case Inner:
		parser.advance()
		if _, err := parser.expect(Join, "JOIN"); err != nil {
			return JoinClause{}, false, err
		}
	case Left:
		kind = LeftJoin
		parser.advance()
		if _, err := parser.expect(Join, "JOIN"); err != nil {
			return JoinClause{}, false, err
		}
	case Right:
		kind = RightJoin
		parser.advance()
		if _, err := parser.expect(Join, "JOIN"); err != nil {
			return JoinClause{}, false, err
		}
	case Cross:
		kind = CrossJoin
		parser.advance()
		if _, err := parser.expect(Join, "JOIN"); err != nil {
			return JoinClause{}, false, err
		}
	default:
		return JoinClause{}, false, nil
	}

	table, err := parser.parseTableRef()
	if err != nil {
		return JoinClause{}, false, err
	}
	clause := JoinClause{Kind: kind, Table: table}

	if kind == CrossJoin {
		if token := parser.cur(); token.Type == On {
			return JoinClause{}, false, parser.errorf(token, "CROSS JOIN does not take an ON clause")
		}
		return clause, true, nil
	}

	if _, err := parser.expect(On, "ON"); err != nil {
		return JoinClause{}, false, err
	}
	on, err := parser.parseExpression()
	if err != nil {
		return JoinClause{}, false, err
	}
	clause.On = on
	return clause, true, nil
}

func (parser *Parser) parseOrderItem() (OrderItem, error) {
	name, err := parser.expect(Identifier, "column name")
	if err != nil {
		return OrderItem{}, err
	}
	item := OrderItem{Column: name.Value}
	if parser.accept(Dot) {
		column, err := parser.expect(Identifier, "column name")
		if err != nil {
			return OrderItem{}, err
		}
		item.Table = name.Value
		item.Column = column.Value
	}
	switch parser.cur().Type {
	case Asc:
		parser.advance()
	case Desc:
		parser.advance()
		item.Desc = true
	}
	return item, nil
}

func (parser *Parser) parseIntegerBound(clause string) (int64, error) {
	token, err := parser.expect(Int, clause+" count")
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(token.Value, 10, 64)
	if err != nil {
		return 0, parser.errorf(token, "invalid %s count %q", clause, token.Value)
	}
	return n, nil
}

func (parser *Parser) parseUpdate() (*UpdateStatement, error) {
	parser.advance() // UPDATE
	name, err := parser.expect(Identifier, "table name")
	if err != nil {
		return nil, err
	}
	statement := &UpdateStatement{Table: name.Value}

	if _, err := parser.expect(Set, "SET"); err != nil {
		return nil, err
	}
	for {
		column, err := parser.expect(Identifier, "column name")
		if err != nil {
			return nil, err
		}
		if _, err := parser.expect(Equals, "'='"); err != nil {
			return nil, err
		}
		value, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		statement.Assignments = append(statement.Assignments, Assignment{Column: column.Value, Value: value})
		if !parser.accept(Comma) {
			break
		}
	}

	if parser.accept(Where) {
		where, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		statement.Where = where
	}
	return statement, nil
}

func (parser *Parser) parseDelete() (*DeleteStatement, error) {
	parser.advance() // DELETE
	if _, err := parser.expect(From, "FROM"); err != nil {
		return nil, err
	}
	name, err := parser.expect(Identifier, "table name")
	if err != nil {
		return nil, err
	}
	statement := &DeleteStatement{Table: name.Value}

	if parser.accept(Where) {
		where, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		statement.Where = where
	}
	return statement, nil
}

// Expression grammar, lowest binding first:
//
//	or      := and (OR and)*
//	and     := not (AND not)*
//	not     := NOT not | comparison
//	compare := additive (cmp-op additive | IS [NOT] NULL | LIKE string)?
//	additive:= multiplicative ((+|-) multiplicative)*
//	multi   := unary ((*|/) unary)*
//	unary   := - unary | primary
//	primary := literal | [alias .] column | ( or )
func (parser *Parser) parseExpression() (Expression, error) {
	return parser.parseOr()
}

func (parser *Parser) parseOr() (Expression, error) {
	left, err := parser.parseAnd()
	if err != nil {
		return nil, err
	}
	for parser.accept(Or) {
		right, err := parser.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (parser *Parser) parseAnd() (Expression, error) {
	left, err := parser.parseNot()
	if err != nil {
		return nil, err
	}
	for parser.accept(And) {
		right, err := parser.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (parser *Parser) parseNot() (Expression, error) {
	if parser.accept(Not) {
		operand, err := parser.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: OpNot, Operand: operand}, nil
	}
	return parser.parseComparison()
}

func (parser *Parser) parseComparison() (Expression, error) {
	left, err := parser.parseAdditive()
	if err != nil {
		return nil, err
	}

	switch token := parser.cur(); token.Type {
	case Equals, NotEquals, LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual:
		parser.advance()
		right, err := parser.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: comparisonOp(token.Type), Left: left, Right: right}, nil
	case Is:
		parser.advance()
		negated := parser.accept(Not)
		if _, err := parser.expect(Null, "NULL"); err != nil {
			return nil, err
		}
		return &IsNullExpr{Operand: left, Negated: negated}, nil
	case Like:
		parser.advance()
		pattern, err := parser.expect(String, "pattern string")
		if err != nil {
			return nil, err
		}
		return &LikeExpr{Operand: left, Pattern: pattern.Value}, nil
	default:
		return left, nil
	}
}

func comparisonOp(tokenType TokenType) BinaryOp {
	switch tokenType {
	case Equals:
		return OpEquals
	case NotEquals:
		return OpNotEquals
	case LessThan:
		return OpLessThan
	case LessThanOrEqual:
		return OpLessThanOrEqual
	case GreaterThan:
		return OpGreaterThan
	default:
		return OpGreaterThanOrEqual
	}
}

func (parser *Parser) parseAdditive() (Expression, error) {
	left, err := parser.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op BinaryOp
		switch parser.cur().Type {
		case Plus:
			op = OpAdd
		case Minus:
			op = OpSubtract
		default:
			return left, nil
		}
		parser.advance()
		right, err := parser.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (parser *Parser) parseMultiplicative() (Expression, error) {
	left, err := parser.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op BinaryOp
		switch parser.cur().Type {
		case Asterisk:
			op = OpMultiply
		case Slash:
			op = OpDivide
		default:
			return left, nil
		}
		parser.advance()
		right, err := parser.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (parser *Parser) parseUnary() (Expression, error) {
	if parser.accept(Minus) {
		operand, err := parser.parseUnary()
		if err != nil {
			return nil, err
		}
		// Fold the sign into numeric literals so -3 stays one token
		// of meaning.
		if lit, ok := operand.(*LiteralExpr); ok {
			switch lit.Value.Kind {
			case core.KindInteger:
				return &LiteralExpr{Value: core.NewInteger(-lit.Value.Int)}, nil
			case core.KindReal:
				return &LiteralExpr{Value: core.NewReal(-lit.Value.Flt)}, nil
			}
		}
		return &UnaryExpr{Op: OpNegate, Operand: operand}, nil
	}
	return parser.parsePrimary()
}

func (parser *Parser) parsePrimary() (Expression, error) {
	switch token := parser.cur(); token.Type {
	case Int:
		parser.advance()
		n, err := strconv.ParseInt(token.Value, 10, 64)
		if err != nil {
			return nil, parser.errorf(token, "invalid integer literal %q", token.Value)
		}
		return &LiteralExpr{Value: core.NewInteger(n)}, nil
	case Float:
		parser.advance()
		f, err := strconv.ParseFloat(token.Value, 64)
		if err != nil {
			return nil, parser.errorf(token, "invalid numeric literal %q", token.Value)
		}
		return &LiteralExpr{Value: core.NewReal(f)}, nil
	case String:
		parser.advance()
		return &LiteralExpr{Value: core.NewText(token.Value)}, nil
	case True:
		parser.advance()
		return &LiteralExpr{Value: core.NewBoolean(true)}, nil
	case False:
		parser.advance()
		return &LiteralExpr{Value: core.NewBoolean(false)}, nil
	case Null:
		parser.advance()
		return &LiteralExpr{Value: core.Null()}, nil
	case Identifier:
		parser.advance()
		ref := &ColumnRefExpr{Column: token.Value, Line: token.Line, Col: token.Col}
		if parser.accept(Dot) {
			column, err := parser.expect(Identifier, "column name")
			if err != nil {
				return nil, err
			}
			ref.Table = token.Value
			ref.Column = column.Value
		}
		return ref, nil
	case ParenOpen:
		parser.advance()
		inner, err := parser.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := parser.expect(ParenClose, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, parser.errorf(token, "expected an expression, found %q", token)
	}
}
