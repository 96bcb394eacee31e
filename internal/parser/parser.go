package parser

import (
	"fmt"
	"strconv"

	"github.com/xirelogy/go-slate/internal/ast"
	"github.com/xirelogy/go-slate/internal/lexer"
	"github.com/xirelogy/go-slate/internal/token"
)

type Parser struct {
	l         *lexer.Lexer
	curToken  token.Token
	peekToken token.Token
	errors    []string
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:      l,
		errors: []string{},
	}
	// Read two tokens, so curToken and peekToken are set
	p.nextToken()
	p.nextToken()
	return p
}

// Errors returns the accumulated "line:col: message" diagnostics.
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// ParseProgram parses the whole input. Statement parsers leave curToken on
// the first token after the statement; expression parsers leave it on the
// last token of the expression.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}

	for p.curToken.Type != token.EOF {
		if p.curToken.Type == token.Semicolon {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if stmt == nil {
			p.synchronize()
			if p.curToken.Type == token.RBrace {
				p.nextToken()
			}
			continue
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	if len(prog.Statements) > 0 {
		prog.NodeSpan = token.Span{Start: prog.Statements[0].Span().Start, End: prog.Statements[len(prog.Statements)-1].Span().End}
	}
	return prog
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.Let:
		return p.parseLet()
	case token.Return:
		return p.parseReturn()
	case token.LBrace:
		block := p.parseBlock()
		if block == nil {
			return nil
		}
		p.nextToken()
		return block
	default:
		return p.parseExprStatement()
	}
}

// parseBlock leaves curToken on the closing brace.
func (p *Parser) parseBlock() *ast.BlockStmt {
	block := &ast.BlockStmt{LBrace: p.curToken.Pos}
	p.nextToken()
	for p.curToken.Type != token.RBrace && p.curToken.Type != token.EOF {
		if p.curToken.Type == token.Semicolon {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if stmt == nil {
			p.synchronize()
			continue
		}
		block.Statements = append(block.Statements, stmt)
	}
	if p.curToken.Type != token.RBrace {
		p.errorf(p.curToken.Pos, "expected '}' to close block opened at %s", block.LBrace)
		return nil
	}
	block.BlockSpan = token.Span{Start: block.LBrace, End: p.curToken.Pos}
	return block
}

func (p *Parser) parseLet() ast.Statement {
	stmt := &ast.LetStmt{LetPos: p.curToken.Pos}
	if !p.expectPeek(token.Ident) {
		return nil
	}
	p.nextToken()
	stmt.Name = &ast.Identifier{Name: p.curToken.Literal, PosT: p.curToken.Pos, Sp: token.Span{Start: p.curToken.Pos, End: p.curToken.Pos}}
	if !p.expectPeek(token.Assign) {
		return nil
	}
	p.nextToken() // move to '='
	p.nextToken() // move to value
	stmt.Value = p.parseExpression(lowest)
	if stmt.Value == nil {
		return nil
	}
	stmt.StmtSpan = token.Span{Start: stmt.LetPos, End: p.finishStatement(stmt.Value.Span().End)}
	return stmt
}

func (p *Parser) parseReturn() ast.Statement {
	ret := &ast.ReturnStmt{Return: p.curToken.Pos}
	p.nextToken()
	if p.isEndOfStatement(p.curToken.Type) {
		end := ret.Return
		if p.curToken.Type == token.Semicolon {
			end = p.curToken.Pos
			p.nextToken()
		}
		ret.StmtSpan = token.Span{Start: ret.Return, End: end}
		return ret
	}
	ret.Value = p.parseExpression(lowest)
	if ret.Value == nil {
		return nil
	}
	ret.StmtSpan = token.Span{Start: ret.Return, End: p.finishStatement(ret.Value.Span().End)}
	return ret
}

func (p *Parser) parseExprStatement() ast.Statement {
	stmt := &ast.ExprStmt{Start: p.curToken.Pos}
	stmt.Expression = p.parseExpression(lowest)
	if stmt.Expression == nil {
		return nil
	}
	stmt.StmtSpan = token.Span{Start: stmt.Start, End: p.finishStatement(stmt.Expression.Span().End)}
	return stmt
}

// finishStatement steps past the last token of a statement's expression and
// an optional semicolon, returning the statement's end position.
func (p *Parser) finishStatement(end token.Position) token.Position {
	p.nextToken()
	if p.curToken.Type == token.Semicolon {
		end = p.curToken.Pos
		p.nextToken()
	}
	return end
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	var left ast.Expression

	switch p.curToken.Type {
	case token.Ident:
		left = &ast.Identifier{Name: p.curToken.Literal, PosT: p.curToken.Pos, Sp: token.Span{Start: p.curToken.Pos, End: p.curToken.Pos}}
	case token.Int:
		n, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
		if err != nil {
			p.errorf(p.curToken.Pos, "integer literal %s out of range", p.curToken.Literal)
			return nil
		}
		left = &ast.IntegerLiteral{Value: n, PosT: p.curToken.Pos, Sp: token.Span{Start: p.curToken.Pos, End: p.curToken.Pos}}
	case token.String:
		left = &ast.StringLiteral{Value: p.curToken.Literal, PosT: p.curToken.Pos, Sp: token.Span{Start: p.curToken.Pos, End: p.curToken.Pos}}
	case token.True:
		left = &ast.BoolLiteral{Value: true, PosT: p.curToken.Pos, Sp: token.Span{Start: p.curToken.Pos, End: p.curToken.Pos}}
	case token.False:
		left = &ast.BoolLiteral{Value: false, PosT: p.curToken.Pos, Sp: token.Span{Start: p.curToken.Pos, End: p.curToken.Pos}}
	case token.If:
		left = p.parseIf()
	case token.LParen:
		p.nextToken()
		left = p.parseExpression(lowest)
		if left == nil {
			return nil
		}
		if !p.expectPeek(token.RParen) {
			return nil
		}
		p.nextToken()
	case token.Bang, token.Minus:
		left = p.parsePrefixExpression()
	case token.Illegal:
		p.errorf(p.curToken.Pos, "illegal token %q", p.curToken.Literal)
		return nil
	default:
		p.errorf(p.curToken.Pos, "unexpected token %s", p.curToken.Type)
		return nil
	}

	if left == nil {
		return nil
	}

	for p.peekToken.Type != token.Semicolon && precedence < p.peekPrecedence() {
		p.nextToken()
		left = p.parseInfixExpression(left)
		if left == nil {
			return nil
		}
	}

	return left
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.UnaryExpr{
		Operator: p.curToken.Type,
		Literal:  p.curToken.Literal,
		PosT:     p.curToken.Pos,
	}
	p.nextToken()
	expr.Right = p.parseExpression(prefixPrecedence)
	if expr.Right == nil {
		return nil
	}
	expr.Sp = token.Span{Start: expr.PosT, End: expr.Right.Span().End}
	return expr
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.BinaryExpr{
		Left:     left,
		Operator: p.curToken.Type,
		Literal:  p.curToken.Literal,
		PosT:     p.curToken.Pos,
	}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	if expr.Right == nil {
		return nil
	}
	expr.Sp = token.Span{Start: left.Span().Start, End: expr.Right.Span().End}
	return expr
}

// parseIf leaves curToken on the closing brace of the last branch.
func (p *Parser) parseIf() ast.Expression {
	expr := &ast.IfExpr{IfPos: p.curToken.Pos}
	if !p.expectPeek(token.LParen) {
		return nil
	}
	p.nextToken() // move to '('
	p.nextToken() // move to condition
	expr.Condition = p.parseExpression(lowest)
	if expr.Condition == nil {
		return nil
	}
	if !p.expectPeek(token.RParen) {
		return nil
	}
	p.nextToken()
	if !p.expectPeek(token.LBrace) {
		return nil
	}
	p.nextToken()
	expr.Conseq = p.parseBlock()
	if expr.Conseq == nil {
		return nil
	}
	end := expr.Conseq.Span().End

	if p.peekToken.Type == token.Else {
		p.nextToken()
		if !p.expectPeek(token.LBrace) {
			return nil
		}
		p.nextToken()
		expr.Alt = p.parseBlock()
		if expr.Alt == nil {
			return nil
		}
		end = expr.Alt.Span().End
	}
	expr.Sp = token.Span{Start: expr.IfPos, End: end}
	return expr
}

// synchronize discards tokens after an error up to the next statement
// boundary so one mistake yields one diagnostic.
func (p *Parser) synchronize() {
	for {
		switch p.curToken.Type {
		case token.EOF, token.RBrace:
			return
		case token.Semicolon:
			p.nextToken()
			return
		}
		p.nextToken()
	}
}

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekToken.Type == t {
		return true
	}
	p.errorf(p.peekToken.Pos, "expected next token to be %s, got %s", t, p.peekToken.Type)
	return false
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return lowest
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return lowest
}

func (p *Parser) isEndOfStatement(t token.Type) bool {
	switch t {
	case token.Semicolon, token.RBrace, token.EOF:
		return true
	default:
		return false
	}
}

func (p *Parser) errorf(pos token.Position, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.errors = append(p.errors, fmt.Sprintf("%d:%d: %s", pos.Line, pos.Column, msg))
}

const (
	lowest = iota + 1
	equalPrecedence
	lessGreaterPrecedence
	sumPrecedence
	productPrecedence
	prefixPrecedence
)

var precedences = map[token.Type]int{
	token.Equal:    equalPrecedence,
	token.NotEqual: equalPrecedence,
	token.Less:     lessGreaterPrecedence,
	token.Greater:  lessGreaterPrecedence,
	token.Plus:     sumPrecedence,
	token.Minus:    sumPrecedence,
	token.Star:     productPrecedence,
	token.Slash:    productPrecedence,
}
