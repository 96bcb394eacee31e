package ast

import (
	"strconv"
	"strings"

	"github.com/xirelogy/go-slate/internal/token"
)

// Node represents any AST node.
type Node interface {
	Pos() token.Position
	Span() token.Span
	String() string
}

// Statement is an executable node.
type Statement interface {
	Node
	stmtNode()
}

// Expression produces a value.
type Expression interface {
	Node
	exprNode()
}

// Program is the root node.
type Program struct {
	Statements []Statement
	NodeSpan   token.Span
}

func (p *Program) Pos() token.Position {
	if len(p.Statements) == 0 {
		return token.Position{}
	}
	return p.Statements[0].Pos()
}
func (p *Program) Span() token.Span { return p.NodeSpan }
func (p *Program) String() string {
	var sb strings.Builder
	for _, s := range p.Statements {
		sb.WriteString(s.String())
	}
	return sb.String()
}

// Statements

type BlockStmt struct {
	LBrace     token.Position
	Statements []Statement
	BlockSpan  token.Span
}

func (b *BlockStmt) Pos() token.Position { return b.LBrace }
func (b *BlockStmt) Span() token.Span    { return b.BlockSpan }
func (b *BlockStmt) stmtNode()           {}
func (b *BlockStmt) String() string {
	var sb strings.Builder
	sb.WriteString("{ ")
	for _, s := range b.Statements {
		sb.WriteString(s.String())
		sb.WriteString(" ")
	}
	sb.WriteString("}")
	return sb.String()
}

type ExprStmt struct {
	Expression Expression
	Start      token.Position
	StmtSpan   token.Span
}

func (e *ExprStmt) Pos() token.Position { return e.Start }
func (e *ExprStmt) Span() token.Span    { return e.StmtSpan }
func (e *ExprStmt) stmtNode()           {}
func (e *ExprStmt) String() string {
	if e.Expression == nil {
		return ""
	}
	return e.Expression.String()
}

// LetStmt binds the value of an expression to a name.
type LetStmt struct {
	LetPos   token.Position
	Name     *Identifier
	Value    Expression
	StmtSpan token.Span
}

func (l *LetStmt) Pos() token.Position { return l.LetPos }
func (l *LetStmt) Span() token.Span    { return l.StmtSpan }
func (l *LetStmt) stmtNode()           {}
func (l *LetStmt) String() string {
	return "let " + l.Name.String() + " = " + l.Value.String() + ";"
}

type ReturnStmt struct {
	Return   token.Position
	Value    Expression
	StmtSpan token.Span
}

func (r *ReturnStmt) Pos() token.Position { return r.Return }
func (r *ReturnStmt) Span() token.Span    { return r.StmtSpan }
func (r *ReturnStmt) stmtNode()           {}
func (r *ReturnStmt) String() string {
	if r.Value == nil {
		return "return;"
	}
	return "return " + r.Value.String() + ";"
}

// Expressions

type Identifier struct {
	Name string
	PosT token.Position
	Sp   token.Span
}

func (i *Identifier) Pos() token.Position { return i.PosT }
func (i *Identifier) Span() token.Span    { return i.Sp }
func (i *Identifier) exprNode()           {}
func (i *Identifier) String() string      { return i.Name }

type IntegerLiteral struct {
	Value int64
	PosT  token.Position
	Sp    token.Span
}

func (n *IntegerLiteral) Pos() token.Position { return n.PosT }
func (n *IntegerLiteral) Span() token.Span    { return n.Sp }
func (n *IntegerLiteral) exprNode()           {}
func (n *IntegerLiteral) String() string      { return strconv.FormatInt(n.Value, 10) }

type StringLiteral struct {
	Value string
	PosT  token.Position
	Sp    token.Span
}

func (s *StringLiteral) Pos() token.Position { return s.PosT }
func (s *StringLiteral) Span() token.Span    { return s.Sp }
func (s *StringLiteral) exprNode()           {}
func (s *StringLiteral) String() string      { return strconv.Quote(s.Value) }

type BoolLiteral struct {
	Value bool
	PosT  token.Position
	Sp    token.Span
}

func (b *BoolLiteral) Pos() token.Position { return b.PosT }
func (b *BoolLiteral) Span() token.Span    { return b.Sp }
func (b *BoolLiteral) exprNode()           {}
func (b *BoolLiteral) String() string      { return strconv.FormatBool(b.Value) }

type BinaryExpr struct {
	Left     Expression
	Operator token.Type
	Literal  string
	Right    Expression
	PosT     token.Position
	Sp       token.Span
}

func (b *BinaryExpr) Pos() token.Position { return b.PosT }
func (b *BinaryExpr) Span() token.Span    { return b.Sp }
func (b *BinaryExpr) exprNode()           {}
func (b *BinaryExpr) String() string {
	return "(" + b.Left.String() + " " + b.Literal + " " + b.Right.String() + ")"
}

type UnaryExpr struct {
	Operator token.Type
	Literal  string
	Right    Expression
	PosT     token.Position
	Sp       token.Span
}

func (u *UnaryExpr) Pos() token.Position { return u.PosT }
func (u *UnaryExpr) Span() token.Span    { return u.Sp }
func (u *UnaryExpr) exprNode()           {}
func (u *UnaryExpr) String() string      { return "(" + u.Literal + u.Right.String() + ")" }

// IfExpr is a conditional that yields the value of the branch taken.
// Alt is nil when there is no else branch.
type IfExpr struct {
	IfPos     token.Position
	Condition Expression
	Conseq    *BlockStmt
	Alt       *BlockStmt
	Sp        token.Span
}

func (i *IfExpr) Pos() token.Position { return i.IfPos }
func (i *IfExpr) Span() token.Span    { return i.Sp }
func (i *IfExpr) exprNode()           {}
func (i *IfExpr) String() string {
	s := "if " + i.Condition.String() + " " + i.Conseq.String()
	if i.Alt != nil {
		s += " else " + i.Alt.String()
	}
	return s
}
