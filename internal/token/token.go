package token

import "fmt"

// Type identifies the category of a token.
type Type string

// Token carries the lexical item along with its source position.
type Token struct {
	Type    Type
	Literal string
	Pos     Position
}

// Position describes a byte offset and 1-based line/column.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span represents an inclusive start and end position for a node.
type Span struct {
	Start Position
	End   Position
}

const (
	Illegal Type = "ILLEGAL"
	EOF     Type = "EOF"

	// identifiers and literals
	Ident  Type = "IDENT"
	Int    Type = "INT"
	String Type = "STRING"

	// keywords
	Let    Type = "LET"
	If     Type = "IF"
	Else   Type = "ELSE"
	Return Type = "RETURN"
	True   Type = "TRUE"
	False  Type = "FALSE"

	// operators
	Assign   Type = "ASSIGN"   // =
	Plus     Type = "PLUS"     // +
	Minus    Type = "MINUS"    // -
	Star     Type = "STAR"     // *
	Slash    Type = "SLASH"    // /
	Bang     Type = "BANG"     // !
	Equal    Type = "EQUAL"    // ==
	NotEqual Type = "NOTEQUAL" // !=
	Less     Type = "LESS"     // <
	Greater  Type = "GREATER"  // >

	// delimiters
	Comma     Type = "COMMA"
	Semicolon Type = "SEMICOLON"
	LParen    Type = "LPAREN"
	RParen    Type = "RPAREN"
	LBrace    Type = "LBRACE"
	RBrace    Type = "RBRACE"
)

var keywords = map[string]Type{
	"let":    Let,
	"if":     If,
	"else":   Else,
	"return": Return,
	"true":   True,
	"false":  False,
}

// LookupIdent returns the keyword token type or Ident.
func LookupIdent(ident string) Type {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return Ident
}
