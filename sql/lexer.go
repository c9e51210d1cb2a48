package sql

import (
	"strings"
	"unicode/utf8"

	"github.com/tesseradb/tessera/core"
)

// Lexer walks the statement text one byte at a time, tracking line and
// column for error reporting.
type Lexer struct {
	sql          string
	position     int
	readPosition int
	ch           byte
	line         int
	col          int
}

func NewLexer(sql string) *Lexer {
	lexer := &Lexer{sql: sql, line: 1, col: 0}
	lexer.readChar()
	return lexer
}

// Tokenize produces the full token stream; the last token is always
// EOF. It fails with a positioned LexError on an unterminated string
// or an unrecognized character.
func Tokenize(text string) ([]Token, error) {
	lexer := NewLexer(text)
	var tokens []Token
	for {
		token, err := lexer.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
		if token.Type == EOF {
			return tokens, nil
		}
	}
}

func (lexer *Lexer) readChar() {
	if lexer.ch == '\n' {
		lexer.line++
		lexer.col = 0
	}
	if lexer.readPosition >= len(lexer.sql) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.sql[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
	lexer.col++
}

func (lexer *Lexer) peekChar() byte {
	if lexer.readPosition >= len(lexer.sql) {
		return 0
	}
	return lexer.sql[lexer.readPosition]
}

func (lexer *Lexer) NextToken() (Token, error) {
	lexer.skipWhitespaceAndComments()

	line, col := lexer.line, lexer.col
	at := func(tokenType TokenType, value string) Token {
		return Token{Type: tokenType, Value: value, Line: line, Col: col}
	}

	switch lexer.ch {
	case 0:
		return at(EOF, ""), nil
	case ',':
		lexer.readChar()
		return at(Comma, ","), nil
	case ';':
		lexer.readChar()
		return at(Semicolon, ";"), nil
	case '.':
		lexer.readChar()
		return at(Dot, "."), nil
	case '(':
		lexer.readChar()
		return at(ParenOpen, "("), nil
	case ')':
		lexer.readChar()
		return at(ParenClose, ")"), nil
	case '+':
		lexer.readChar()
		return at(Plus, "+"), nil
	case '-':
		lexer.readChar()
		return at(Minus, "-"), nil
	case '*':
		lexer.readChar()
		return at(Asterisk, "*"), nil
	case '/':
		lexer.readChar()
		return at(Slash, "/"), nil
	case '=':
		lexer.readChar()
		return at(Equals, "="), nil
	case '!':
		if lexer.peekChar() == '=' {
			lexer.readChar()
			lexer.readChar()
			return at(NotEquals, "!="), nil
		}
		return Token{}, core.NewLexError("unexpected character '!'", line, col)
	case '<':
		switch lexer.peekChar() {
		case '=':
			lexer.readChar()
			lexer.readChar()
			return at(LessThanOrEqual, "<="), nil
		case '>':
			lexer.readChar()
			lexer.readChar()
			return at(NotEquals, "<>"), nil
		default:
			lexer.readChar()
			return at(LessThan, "<"), nil
		}
	case '>':
		if lexer.peekChar() == '=' {
			lexer.readChar()
			lexer.readChar()
			return at(GreaterThanOrEqual, ">="), nil
		}
		lexer.readChar()
		return at(GreaterThan, ">"), nil
	case '\'':
		str, err := lexer.readString()
		if err != nil {
			return Token{}, err
		}
		return at(String, str), nil
	}

	if isDigit(lexer.ch) {
		num := lexer.readNumber()
		if lexer.ch == '.' && isDigit(lexer.peekChar()) {
			lexer.readChar() // consume '.'
			decimal := lexer.readNumber()
			return at(Float, num+"."+decimal), nil
		}
		return at(Int, num), nil
	}

	if isLetter(lexer.ch) {
		literal := lexer.readIdentifier()
		return at(lookupIdentifier(literal), literal), nil
	}

	// Decode the full rune so multi-byte characters read correctly.
	r, _ := utf8.DecodeRuneInString(lexer.sql[lexer.position:])
	return Token{}, core.NewLexError("unexpected character '"+string(r)+"'", line, col)
}

func (lexer *Lexer) skipWhitespaceAndComments() {
	for {
		for lexer.ch == ' ' || lexer.ch == '\t' || lexer.ch == '\n' || lexer.ch == '\r' {
			lexer.readChar()
		}
		if lexer.ch == '-' && lexer.peekChar() == '-' {
			for lexer.ch != '\n' && lexer.ch != 0 {
				lexer.readChar()
			}
			continue
		}
		return
	}
}

func (lexer *Lexer) readIdentifier() string {
	position := lexer.position
	for isLetter(lexer.ch) || isDigit(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

// readString reads a single-quoted literal. A doubled quote escapes a
// quote; backslash escapes the next character (\n, \t, \', \\).
func (lexer *Lexer) readString() (string, error) {
	line, col := lexer.line, lexer.col
	lexer.readChar() // skip opening quote
	var sb strings.Builder
	for {
		switch lexer.ch {
		case 0:
			return "", core.NewLexError("unterminated string literal", line, col)
		case '\'':
			if lexer.peekChar() == '\'' {
				sb.WriteByte('\'')
				lexer.readChar()
				lexer.readChar()
				continue
			}
			lexer.readChar() // closing quote
			return sb.String(), nil
		case '\\':
			lexer.readChar()
			switch lexer.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 0:
				return "", core.NewLexError("unterminated string literal", line, col)
			default:
				sb.WriteByte(lexer.ch)
			}
			lexer.readChar()
		default:
			sb.WriteByte(lexer.ch)
			lexer.readChar()
		}
	}
}

func (lexer *Lexer) readNumber() string {
	position := lexer.position
	for isDigit(lexer.ch) {
		lexer.readChar()
	}
	return lexer.sql[position:lexer.position]
}

func isLetter(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func lookupIdentifier(id string) TokenType {
	switch strings.ToUpper(id) {
	case "CREATE":
		return Create
	case "TABLE":
		return Table
	case "DROP":
		return Drop
	case "IF":
		return If
	case "EXISTS":
		return Exists
	case "PRIMARY":
		return Primary
	case "KEY":
		return Key
	case "UNIQUE":
		return Unique
	case "INSERT":
		return Insert
	case "INTO":
		return Into
	case "VALUES":
		return Values
	case "SELECT":
		return Select
	case "FROM":
		return From
	case "WHERE":
		return Where
	case "JOIN":
		return Join
	case "INNER":
		return Inner
	case "LEFT":
		return Left
	case "RIGHT":
		return Right
	case "CROSS":
		return Cross
	case "ON":
		return On
	case "ORDER":
		return Order
	case "BY":
		return By
	case "ASC":
		return Asc
	case "DESC":
		return Desc
	case "LIMIT":
		return Limit
	case "OFFSET":
		return Offset
	case "UPDATE":
		return Update
	case "SET":
		return Set
	case "DELETE":
		return Delete
	case "AND":
		return And
	case "OR":
		return Or
	case "NOT":
		return Not
	case "IS":
		return Is
	case "LIKE":
		return Like
	case "TRUE":
		return True
	case "FALSE":
		return False
	case "NULL":
		return Null
	default:
		return Identifier
	}
}
