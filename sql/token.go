package sql

type TokenType int

const (
	Identifier TokenType = iota
	Int
	Float
	String
	True
	False
	Null

	Create
	Table
	Drop
	If
	Exists
	Primary
	Key
	Unique
	Insert
	Into
	Values
	Select
	From
	Where
	Join
	Inner
	Left
	Right
	Cross
	On
	Order
	By
	Asc
	Desc
	Limit
	Offset
	Update
	Set
	Delete
	And
	Or
	Not
	Is
	Like

	Equals
	NotEquals
	LessThan
	GreaterThan
	LessThanOrEqual
	GreaterThanOrEqual
	Plus
	Minus
	Asterisk
	Slash
	ParenOpen
	ParenClose
	Comma
	Semicolon
	Dot

	EOF
)

// Token is one lexical unit with its source position (1-based).
type Token struct {
	Type  TokenType
	Value string
	Line  int
	Col   int
}

func (token Token) String() string {
	switch token.Type {
	case Identifier:
		return "Identifier(" + token.Value + ")"
	case Int:
		return "Int(" + token.Value + ")"
	case Float:
		return "Float(" + token.Value + ")"
	case String:
		return "String(" + token.Value + ")"
	case EOF:
		return "EOF"
	default:
		return token.Value
	}
}
