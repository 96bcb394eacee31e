// Package eval walks the AST directly. It accepts the whole language,
// including the string and return forms the compiler rejects, and serves as
// the reference the VM is checked against.
package eval

import (
	"errors"
	"fmt"

	"github.com/xirelogy/go-slate/internal/ast"
	"github.com/xirelogy/go-slate/internal/token"
	"github.com/xirelogy/go-slate/internal/value"
)

var (
	ErrUndefinedVariable = errors.New("undefined variable")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrDivisionByZero    = errors.New("division by zero")
	ErrUnsupportedNode   = errors.New("unsupported node")
)

// Error is an evaluation failure tied to a source position.
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

// Eval evaluates node in env. A Program yields the value most recently
// discarded by an expression statement, which is what the VM reports as its
// last popped value, or Null; a top-level return yields its operand.
func Eval(node ast.Node, env *Environment) (value.Value, error) {
	if env == nil {
		env = NewEnvironment()
	}
	ev := &evaluator{env: env, popped: value.Null()}
	switch n := node.(type) {
	case *ast.Program:
		var p pending
		ret, err := ev.evalStatements(n.Statements, &p)
		if err != nil {
			return value.Null(), err
		}
		if ret.Kind == value.KindReturn {
			return value.Unwrap(ret), nil
		}
		ev.discard(&p)
		return ev.popped, nil
	case ast.Statement:
		v, err := ev.evalStatement(n)
		return value.Unwrap(v), err
	case ast.Expression:
		v, err := ev.evalExpr(n)
		return value.Unwrap(v), err
	default:
		return value.Null(), errorf(node.Pos(), ErrUnsupportedNode, "%T", node)
	}
}

type evaluator struct {
	env *Environment
	// popped is the value most recently discarded by an expression
	// statement.
	popped value.Value
}

// pending holds the value of the latest expression statement in a block.
// The next statement that does any work discards it; a branch that ends
// while it is still held yields it.
type pending struct {
	v  value.Value
	ok bool
}

func (ev *evaluator) discard(p *pending) {
	if p.ok {
		ev.popped = p.v
		p.ok = false
	}
}

// evalStatements runs stmts in order. Nested blocks share p, so an empty
// block discards nothing. A Return stops the run and is passed up still
// wrapped so enclosing blocks stop too; otherwise the result is Null.
func (ev *evaluator) evalStatements(stmts []ast.Statement, p *pending) (value.Value, error) {
	for _, stmt := range stmts {
		if block, ok := stmt.(*ast.BlockStmt); ok {
			ret, err := ev.evalStatements(block.Statements, p)
			if err != nil || ret.Kind == value.KindReturn {
				return ret, err
			}
			continue
		}
		ev.discard(p)
		v, err := ev.evalStatement(stmt)
		if err != nil {
			return value.Null(), err
		}
		if v.Kind == value.KindReturn {
			return v, nil
		}
		if _, ok := stmt.(*ast.ExprStmt); ok {
			p.v, p.ok = v, true
		}
	}
	return value.Null(), nil
}

// evalBranch yields the value of block's trailing expression statement, or
// Null when the block ends any other way.
func (ev *evaluator) evalBranch(block *ast.BlockStmt) (value.Value, error) {
	var p pending
	ret, err := ev.evalStatements(block.Statements, &p)
	if err != nil || ret.Kind == value.KindReturn {
		return ret, err
	}
	if p.ok {
		return p.v, nil
	}
	return value.Null(), nil
}

func (ev *evaluator) evalStatement(stmt ast.Statement) (value.Value, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		return ev.evalExpr(s.Expression)
	case *ast.LetStmt:
		v, err := ev.evalExpr(s.Value)
		if err != nil || v.Kind == value.KindReturn {
			return v, err
		}
		ev.env.Set(s.Name.Name, v)
		return value.Null(), nil
	case *ast.ReturnStmt:
		if s.Value == nil {
			return value.Return(value.Null()), nil
		}
		v, err := ev.evalExpr(s.Value)
		if err != nil || v.Kind == value.KindReturn {
			return v, err
		}
		return value.Return(v), nil
	case *ast.BlockStmt:
		return ev.evalBranch(s)
	default:
		return value.Null(), errorf(stmt.Pos(), ErrUnsupportedNode, "%T", stmt)
	}
}

// evalExpr passes a Return produced inside an if branch straight up.
func (ev *evaluator) evalExpr(expr ast.Expression) (value.Value, error) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return value.Int(e.Value), nil
	case *ast.BoolLiteral:
		return value.Bool(e.Value), nil
	case *ast.StringLiteral:
		return value.String(e.Value), nil
	case *ast.Identifier:
		v, ok := ev.env.Get(e.Name)
		if !ok {
			return value.Null(), errorf(e.Pos(), ErrUndefinedVariable, "%s", e.Name)
		}
		return v, nil
	case *ast.UnaryExpr:
		right, err := ev.evalExpr(e.Right)
		if err != nil || right.Kind == value.KindReturn {
			return right, err
		}
		return evalUnary(e, right)
	case *ast.BinaryExpr:
		left, err := ev.evalExpr(e.Left)
		if err != nil || left.Kind == value.KindReturn {
			return left, err
		}
		right, err := ev.evalExpr(e.Right)
		if err != nil || right.Kind == value.KindReturn {
			return right, err
		}
		return evalBinary(e, left, right)
	case *ast.IfExpr:
		return ev.evalIf(e)
	default:
		return value.Null(), errorf(expr.Pos(), ErrUnsupportedNode, "%T", expr)
	}
}

func evalUnary(e *ast.UnaryExpr, right value.Value) (value.Value, error) {
	switch e.Operator {
	case token.Bang:
		if right.Kind != value.KindBool {
			return value.Null(), errorf(e.Pos(), ErrTypeMismatch, "%s%s", e.Literal, right.Kind)
		}
		return value.Bool(!right.B), nil
	case token.Minus:
		if right.Kind != value.KindInt {
			return value.Null(), errorf(e.Pos(), ErrTypeMismatch, "%s%s", e.Literal, right.Kind)
		}
		return value.Int(-right.Int), nil
	default:
		return value.Null(), errorf(e.Pos(), ErrUnsupportedNode, "prefix %s", e.Literal)
	}
}

func evalBinary(e *ast.BinaryExpr, left, right value.Value) (value.Value, error) {
	mismatch := func() (value.Value, error) {
		return value.Null(), errorf(e.Pos(), ErrTypeMismatch, "%s %s %s", left.Kind, e.Literal, right.Kind)
	}

	switch e.Operator {
	case token.Equal, token.NotEqual:
		if left.Kind != right.Kind {
			return mismatch()
		}
		eq := value.Equal(left, right)
		if e.Operator == token.NotEqual {
			eq = !eq
		}
		return value.Bool(eq), nil
	case token.Plus:
		if left.Kind == value.KindString && right.Kind == value.KindString {
			return value.String(left.Str + right.Str), nil
		}
	}

	if left.Kind != value.KindInt || right.Kind != value.KindInt {
		return mismatch()
	}
	l, r := left.Int, right.Int
	switch e.Operator {
	case token.Plus:
		return value.Int(l + r), nil
	case token.Minus:
		return value.Int(l - r), nil
	case token.Star:
		return value.Int(l * r), nil
	case token.Slash:
		if r == 0 {
			return value.Null(), errorf(e.Pos(), ErrDivisionByZero, "%d / 0", l)
		}
		return value.Int(l / r), nil
	case token.Greater:
		return value.Bool(l > r), nil
	case token.Less:
		return value.Bool(l < r), nil
	default:
		return value.Null(), errorf(e.Pos(), ErrUnsupportedNode, "infix %s", e.Literal)
	}
}

func (ev *evaluator) evalIf(e *ast.IfExpr) (value.Value, error) {
	cond, err := ev.evalExpr(e.Condition)
	if err != nil || cond.Kind == value.KindReturn {
		return cond, err
	}
	if cond.Kind != value.KindBool {
		return value.Null(), errorf(e.Condition.Pos(), ErrTypeMismatch, "if condition is %s", cond.Kind)
	}
	if cond.B {
		return ev.evalBranch(e.Conseq)
	}
	if e.Alt == nil {
		return value.Null(), nil
	}
	return ev.evalBranch(e.Alt)
}

func errorf(pos token.Position, kind error, format string, args ...any) error {
	return &Error{Pos: pos, Err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))}
}
