package compiler

import (
	"errors"
	"fmt"
	"math"

	"github.com/xirelogy/go-slate/internal/ast"
	"github.com/xirelogy/go-slate/internal/bytecode"
	"github.com/xirelogy/go-slate/internal/token"
	"github.com/xirelogy/go-slate/internal/value"
)

var (
	ErrUndefinedVariable   = errors.New("undefined variable")
	ErrUnsupportedNode     = errors.New("unsupported node")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrOperandOverflow     = errors.New("operand overflow")
)

// Error is a compile failure tied to a source position.
type Error struct {
	Pos token.Position
	Err error
}

func (e *Error) Error() string {
	if e.Pos.Line == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%d:%d: %v", e.Pos.Line, e.Pos.Column, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// jumpPlaceholder marks a jump operand that still needs patching.
const jumpPlaceholder = 0xffff

type emitted struct {
	op  bytecode.Opcode
	pos int
}

// Compiler lowers an AST into a single instruction stream and constant
// pool. A Compiler is used for one compilation.
type Compiler struct {
	instructions bytecode.Instructions
	constants    []value.Value
	lines        []bytecode.LineInfo
	line         int

	symbols *SymbolTable

	last     emitted
	previous emitted
}

// New returns a compiler with an empty global scope.
func New() *Compiler {
	return &Compiler{symbols: NewSymbolTable()}
}

// Compile is a convenience wrapper that compiles prog with a fresh
// Compiler. No bytecode is returned on failure.
func Compile(prog *ast.Program) (*bytecode.Bytecode, error) {
	c := New()
	if err := c.Compile(prog); err != nil {
		return nil, err
	}
	return c.Bytecode(), nil
}

// Symbols exposes the global scope, mainly for callers that want to map
// global slots back to names.
func (c *Compiler) Symbols() *SymbolTable {
	return c.symbols
}

// Bytecode returns the compiled artifact.
func (c *Compiler) Bytecode() *bytecode.Bytecode {
	return &bytecode.Bytecode{
		Instructions: c.instructions,
		Constants:    c.constants,
		Lines:        c.lines,
	}
}

// Compile emits code for node. Every complete statement leaves the stack
// depth unchanged.
func (c *Compiler) Compile(node ast.Node) error {
	switch n := node.(type) {
	case *ast.Program:
		for _, stmt := range n.Statements {
			if err := c.compileStatement(stmt); err != nil {
				return err
			}
		}
		return nil
	case ast.Statement:
		return c.compileStatement(n)
	case ast.Expression:
		return c.compileExpr(n)
	default:
		return c.errorf(node.Pos(), ErrUnsupportedNode, "%T", node)
	}
}

func (c *Compiler) compileStatement(stmt ast.Statement) error {
	c.setLine(stmt.Pos().Line)
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		if err := c.compileExpr(s.Expression); err != nil {
			return err
		}
		c.emit(bytecode.OP_POP, 0)
	case *ast.LetStmt:
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		sym := c.symbols.Define(s.Name.Name)
		if sym.Index > math.MaxUint16 {
			return c.errorf(s.Name.Pos(), ErrOperandOverflow, "global slot %d for %s", sym.Index, s.Name.Name)
		}
		c.emit(bytecode.OP_SET_GLOBAL, uint16(sym.Index))
	case *ast.BlockStmt:
		return c.compileBlock(s)
	case *ast.ReturnStmt:
		return c.errorf(s.Pos(), ErrUnsupportedNode, "return statement")
	default:
		return c.errorf(stmt.Pos(), ErrUnsupportedNode, "%T", stmt)
	}
	return nil
}

func (c *Compiler) compileBlock(block *ast.BlockStmt) error {
	for _, stmt := range block.Statements {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileExpr(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		idx, err := c.addConstant(value.Int(e.Value), e.Pos())
		if err != nil {
			return err
		}
		c.emit(bytecode.OP_CONST, idx)
	case *ast.BoolLiteral:
		if e.Value {
			c.emit(bytecode.OP_TRUE, 0)
		} else {
			c.emit(bytecode.OP_FALSE, 0)
		}
	case *ast.Identifier:
		sym, ok := c.symbols.Resolve(e.Name)
		if !ok {
			return c.errorf(e.Pos(), ErrUndefinedVariable, "%s", e.Name)
		}
		if sym.Scope != GlobalScope {
			return c.errorf(e.Pos(), ErrUnsupportedNode, "%s binding %s", sym.Scope, e.Name)
		}
		c.emit(bytecode.OP_GET_GLOBAL, uint16(sym.Index))
	case *ast.UnaryExpr:
		if err := c.compileExpr(e.Right); err != nil {
			return err
		}
		switch e.Operator {
		case token.Minus:
			c.emit(bytecode.OP_NEG, 0)
		case token.Bang:
			c.emit(bytecode.OP_NOT, 0)
		default:
			return c.errorf(e.Pos(), ErrUnsupportedOperator, "prefix %s", e.Literal)
		}
	case *ast.BinaryExpr:
		op, ok := binaryOps[e.Operator]
		if !ok {
			return c.errorf(e.Pos(), ErrUnsupportedOperator, "infix %s", e.Literal)
		}
		if err := c.compileExpr(e.Left); err != nil {
			return err
		}
		if err := c.compileExpr(e.Right); err != nil {
			return err
		}
		c.emit(op, 0)
	case *ast.IfExpr:
		return c.compileIf(e)
	case *ast.StringLiteral:
		return c.errorf(e.Pos(), ErrUnsupportedNode, "string literal")
	default:
		return c.errorf(expr.Pos(), ErrUnsupportedNode, "%T", expr)
	}
	return nil
}

var binaryOps = map[token.Type]bytecode.Opcode{
	token.Plus:     bytecode.OP_ADD,
	token.Minus:    bytecode.OP_SUB,
	token.Star:     bytecode.OP_MUL,
	token.Slash:    bytecode.OP_DIV,
	token.Greater:  bytecode.OP_GT,
	token.Less:     bytecode.OP_LT,
	token.Equal:    bytecode.OP_EQ,
	token.NotEqual: bytecode.OP_NEQ,
}

// compileIf lays out
//
//	<cond> JumpIfFalse(else) <conseq> Jump(end) else: <alt or Null> end:
//
// so that either path leaves exactly one value on the stack.
func (c *Compiler) compileIf(e *ast.IfExpr) error {
	if err := c.compileExpr(e.Condition); err != nil {
		return err
	}
	jumpIfFalsePos := c.emit(bytecode.OP_JUMP_IF_FALSE, jumpPlaceholder)

	if err := c.compileBranch(e.Conseq); err != nil {
		return err
	}
	jumpPos := c.emit(bytecode.OP_JUMP, jumpPlaceholder)

	if err := c.patchJump(jumpIfFalsePos, e.Pos()); err != nil {
		return err
	}

	if e.Alt == nil {
		c.emit(bytecode.OP_NULL, 0)
	} else if err := c.compileBranch(e.Alt); err != nil {
		return err
	}
	return c.patchJump(jumpPos, e.Pos())
}

// compileBranch compiles a block so that it leaves its value on the stack:
// a trailing Pop is dropped, and a block that ends without an expression
// yields Null.
func (c *Compiler) compileBranch(block *ast.BlockStmt) error {
	start := len(c.instructions)
	if err := c.compileBlock(block); err != nil {
		return err
	}
	if len(c.instructions) > start && c.lastInstructionIs(bytecode.OP_POP) {
		c.removeLastPop()
		return nil
	}
	c.emit(bytecode.OP_NULL, 0)
	return nil
}

func (c *Compiler) patchJump(pos int, at token.Position) error {
	target := len(c.instructions)
	if target > math.MaxUint16 {
		return c.errorf(at, ErrOperandOverflow, "jump target %d", target)
	}
	return c.replaceOperand(pos, uint16(target))
}

func (c *Compiler) addConstant(v value.Value, at token.Position) (uint16, error) {
	if len(c.constants) > math.MaxUint16 {
		return 0, c.errorf(at, ErrOperandOverflow, "constant pool holds more than %d entries", math.MaxUint16+1)
	}
	c.constants = append(c.constants, v)
	return uint16(len(c.constants) - 1), nil
}

// emit appends one instruction and returns the byte offset it starts at.
func (c *Compiler) emit(op bytecode.Opcode, operand uint16) int {
	pos := len(c.instructions)
	c.recordLine()
	c.instructions = append(c.instructions, bytecode.Encode(op, operand)...)
	c.previous = c.last
	c.last = emitted{op: op, pos: pos}
	return pos
}

// replaceOperand rewrites the operand of the instruction at pos in place.
// Only operand-bearing instructions can be patched, so widths never change.
func (c *Compiler) replaceOperand(pos int, operand uint16) error {
	ins, err := bytecode.Decode(c.instructions, pos)
	if err != nil {
		return err
	}
	if !bytecode.HasOperand(ins.Op) {
		return fmt.Errorf("compiler: cannot patch operand of %s at %d", ins.Op, pos)
	}
	bytecode.PutOperand(c.instructions[pos+1:], operand)
	return nil
}

func (c *Compiler) lastInstructionIs(op bytecode.Opcode) bool {
	return len(c.instructions) > 0 && c.last.op == op
}

func (c *Compiler) removeLastPop() {
	c.instructions = c.instructions[:c.last.pos]
	for len(c.lines) > 0 && c.lines[len(c.lines)-1].Offset >= c.last.pos {
		c.lines = c.lines[:len(c.lines)-1]
	}
	c.last = c.previous
}

func (c *Compiler) setLine(line int) {
	if line > 0 {
		c.line = line
	}
}

func (c *Compiler) recordLine() {
	if c.line == 0 {
		return
	}
	off := len(c.instructions)
	if n := len(c.lines); n > 0 && c.lines[n-1].Line == c.line {
		return
	}
	c.lines = append(c.lines, bytecode.LineInfo{Offset: off, Line: c.line})
}

func (c *Compiler) errorf(pos token.Position, kind error, format string, args ...any) error {
	return &Error{Pos: pos, Err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))}
}
