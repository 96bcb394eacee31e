package compiler

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xirelogy/go-slate/internal/ast"
	"github.com/xirelogy/go-slate/internal/bytecode"
	"github.com/xirelogy/go-slate/internal/lexer"
	"github.com/xirelogy/go-slate/internal/parser"
	"github.com/xirelogy/go-slate/internal/value"
)

func parseSource(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	if len(p.Errors()) != 0 {
		t.Fatalf("parser errors: %v", p.Errors())
	}
	return prog
}

func compileSource(t *testing.T, src string) *bytecode.Bytecode {
	t.Helper()
	bc, err := Compile(parseSource(t, src))
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return bc
}

type ins = bytecode.Instruction

type compilerTestCase struct {
	input        string
	constants    []int64
	instructions []ins
}

func runCompilerTests(t *testing.T, tests []compilerTestCase) {
	t.Helper()
	for _, tt := range tests {
		bc := compileSource(t, tt.input)
		expected := bytecode.Assemble(tt.instructions...)
		if !bytes.Equal(bc.Instructions, expected) {
			t.Fatalf("%q: wrong instructions\nwant:\n%s\ngot:\n%s", tt.input, expected, bc.Instructions)
		}
		if len(bc.Constants) != len(tt.constants) {
			t.Fatalf("%q: expected %d constants, got %d", tt.input, len(tt.constants), len(bc.Constants))
		}
		for i, c := range tt.constants {
			if !value.Equal(bc.Constants[i], value.Int(c)) {
				t.Fatalf("%q: constant %d: expected %d, got %v", tt.input, i, c, bc.Constants[i])
			}
		}
	}
}

func TestCompileIntegerArithmetic(t *testing.T) {
	runCompilerTests(t, []compilerTestCase{
		{
			input:     "3",
			constants: []int64{3},
			instructions: []ins{
				{Op: bytecode.OP_CONST, Operand: 0},
				{Op: bytecode.OP_POP},
			},
		},
		{
			input:     "1 + 2",
			constants: []int64{1, 2},
			instructions: []ins{
				{Op: bytecode.OP_CONST, Operand: 0},
				{Op: bytecode.OP_CONST, Operand: 1},
				{Op: bytecode.OP_ADD},
				{Op: bytecode.OP_POP},
			},
		},
		{
			input:     "1; 2",
			constants: []int64{1, 2},
			instructions: []ins{
				{Op: bytecode.OP_CONST, Operand: 0},
				{Op: bytecode.OP_POP},
				{Op: bytecode.OP_CONST, Operand: 1},
				{Op: bytecode.OP_POP},
			},
		},
		{
			input:     "1 - 2 * 3 / 1",
			constants: []int64{1, 2, 3, 1},
			instructions: []ins{
				{Op: bytecode.OP_CONST, Operand: 0},
				{Op: bytecode.OP_CONST, Operand: 1},
				{Op: bytecode.OP_CONST, Operand: 2},
				{Op: bytecode.OP_MUL},
				{Op: bytecode.OP_CONST, Operand: 3},
				{Op: bytecode.OP_DIV},
				{Op: bytecode.OP_SUB},
				{Op: bytecode.OP_POP},
			},
		},
		{
			input:     "-1",
			constants: []int64{1},
			instructions: []ins{
				{Op: bytecode.OP_CONST, Operand: 0},
				{Op: bytecode.OP_NEG},
				{Op: bytecode.OP_POP},
			},
		},
	})
}

func TestCompileBooleanExpressions(t *testing.T) {
	runCompilerTests(t, []compilerTestCase{
		{
			input: "true",
			instructions: []ins{
				{Op: bytecode.OP_TRUE},
				{Op: bytecode.OP_POP},
			},
		},
		{
			input: "false",
			instructions: []ins{
				{Op: bytecode.OP_FALSE},
				{Op: bytecode.OP_POP},
			},
		},
		{
			input:     "1 > 2",
			constants: []int64{1, 2},
			instructions: []ins{
				{Op: bytecode.OP_CONST, Operand: 0},
				{Op: bytecode.OP_CONST, Operand: 1},
				{Op: bytecode.OP_GT},
				{Op: bytecode.OP_POP},
			},
		},
		{
			input:     "1 < 2",
			constants: []int64{1, 2},
			instructions: []ins{
				{Op: bytecode.OP_CONST, Operand: 0},
				{Op: bytecode.OP_CONST, Operand: 1},
				{Op: bytecode.OP_LT},
				{Op: bytecode.OP_POP},
			},
		},
		{
			input:     "1 == 2",
			constants: []int64{1, 2},
			instructions: []ins{
				{Op: bytecode.OP_CONST, Operand: 0},
				{Op: bytecode.OP_CONST, Operand: 1},
				{Op: bytecode.OP_EQ},
				{Op: bytecode.OP_POP},
			},
		},
		{
			input: "true != false",
			instructions: []ins{
				{Op: bytecode.OP_TRUE},
				{Op: bytecode.OP_FALSE},
				{Op: bytecode.OP_NEQ},
				{Op: bytecode.OP_POP},
			},
		},
		{
			input: "!true",
			instructions: []ins{
				{Op: bytecode.OP_TRUE},
				{Op: bytecode.OP_NOT},
				{Op: bytecode.OP_POP},
			},
		},
	})
}

func TestCompileConditionals(t *testing.T) {
	runCompilerTests(t, []compilerTestCase{
		{
			input:     "if (true) { 10 } else { 20 }; 3333;",
			constants: []int64{10, 20, 3333},
			instructions: []ins{
				{Op: bytecode.OP_TRUE},                     // 0000
				{Op: bytecode.OP_JUMP_IF_FALSE, Operand: 10}, // 0001
				{Op: bytecode.OP_CONST, Operand: 0},     // 0004
				{Op: bytecode.OP_JUMP, Operand: 13},        // 0007
				{Op: bytecode.OP_CONST, Operand: 1},     // 0010
				{Op: bytecode.OP_POP},                      // 0013
				{Op: bytecode.OP_CONST, Operand: 2},     // 0014
				{Op: bytecode.OP_POP},                      // 0017
			},
		},
		{
			input:     "if (true) { 10 }; 3333;",
			constants: []int64{10, 3333},
			instructions: []ins{
				{Op: bytecode.OP_TRUE},                     // 0000
				{Op: bytecode.OP_JUMP_IF_FALSE, Operand: 10}, // 0001
				{Op: bytecode.OP_CONST, Operand: 0},     // 0004
				{Op: bytecode.OP_JUMP, Operand: 11},        // 0007
				{Op: bytecode.OP_NULL},                     // 0010
				{Op: bytecode.OP_POP},                      // 0011
				{Op: bytecode.OP_CONST, Operand: 1},     // 0012
				{Op: bytecode.OP_POP},                      // 0015
			},
		},
		{
			input: "if (false) { }",
			instructions: []ins{
				{Op: bytecode.OP_FALSE},                   // 0000
				{Op: bytecode.OP_JUMP_IF_FALSE, Operand: 8}, // 0001
				{Op: bytecode.OP_NULL},                    // 0004
				{Op: bytecode.OP_JUMP, Operand: 9},        // 0005
				{Op: bytecode.OP_NULL},                    // 0008
				{Op: bytecode.OP_POP},                     // 0009
			},
		},
		{
			input:     "if (true) { let a = 1; }",
			constants: []int64{1},
			instructions: []ins{
				{Op: bytecode.OP_TRUE},                     // 0000
				{Op: bytecode.OP_JUMP_IF_FALSE, Operand: 14}, // 0001
				{Op: bytecode.OP_CONST, Operand: 0},     // 0004
				{Op: bytecode.OP_SET_GLOBAL, Operand: 0},    // 0007
				{Op: bytecode.OP_NULL},                     // 0010
				{Op: bytecode.OP_JUMP, Operand: 15},        // 0011
				{Op: bytecode.OP_NULL},                     // 0014
				{Op: bytecode.OP_POP},                      // 0015
			},
		},
	})
}

func TestCompileNestedConditionalKeepsInnerValue(t *testing.T) {
	runCompilerTests(t, []compilerTestCase{
		{
			input:     "if (true) { if (false) { 1 } else { 2 } } else { 3 }",
			constants: []int64{1, 2, 3},
			instructions: []ins{
				{Op: bytecode.OP_TRUE},                     // 0000
				{Op: bytecode.OP_JUMP_IF_FALSE, Operand: 20}, // 0001
				{Op: bytecode.OP_FALSE},                    // 0004
				{Op: bytecode.OP_JUMP_IF_FALSE, Operand: 14}, // 0005
				{Op: bytecode.OP_CONST, Operand: 0},     // 0008
				{Op: bytecode.OP_JUMP, Operand: 17},        // 0011
				{Op: bytecode.OP_CONST, Operand: 1},     // 0014
				{Op: bytecode.OP_JUMP, Operand: 23},        // 0017
				{Op: bytecode.OP_CONST, Operand: 2},     // 0020
				{Op: bytecode.OP_POP},                      // 0023
			},
		},
	})
}

func TestCompileGlobalLetStatements(t *testing.T) {
	runCompilerTests(t, []compilerTestCase{
		{
			input:     "let one = 1; let two = 2;",
			constants: []int64{1, 2},
			instructions: []ins{
				{Op: bytecode.OP_CONST, Operand: 0},
				{Op: bytecode.OP_SET_GLOBAL, Operand: 0},
				{Op: bytecode.OP_CONST, Operand: 1},
				{Op: bytecode.OP_SET_GLOBAL, Operand: 1},
			},
		},
		{
			input:     "let one = 1; one;",
			constants: []int64{1},
			instructions: []ins{
				{Op: bytecode.OP_CONST, Operand: 0},
				{Op: bytecode.OP_SET_GLOBAL, Operand: 0},
				{Op: bytecode.OP_GET_GLOBAL, Operand: 0},
				{Op: bytecode.OP_POP},
			},
		},
		{
			input:     "let one = 1; let two = one; two;",
			constants: []int64{1},
			instructions: []ins{
				{Op: bytecode.OP_CONST, Operand: 0},
				{Op: bytecode.OP_SET_GLOBAL, Operand: 0},
				{Op: bytecode.OP_GET_GLOBAL, Operand: 0},
				{Op: bytecode.OP_SET_GLOBAL, Operand: 1},
				{Op: bytecode.OP_GET_GLOBAL, Operand: 1},
				{Op: bytecode.OP_POP},
			},
		},
	})
}

func TestCompileAssignsSlotsInDeclarationOrder(t *testing.T) {
	c := New()
	if err := c.Compile(parseSource(t, "let one = 1; let two = 2;")); err != nil {
		t.Fatalf("compile: %v", err)
	}
	for name, slot := range map[string]int{"one": 0, "two": 1} {
		sym, ok := c.Symbols().Resolve(name)
		if !ok || sym.Index != slot || sym.Scope != GlobalScope {
			t.Fatalf("%s: expected global slot %d, got %+v (%v)", name, slot, sym, ok)
		}
	}
}

func TestCompileConstantsAreNotDeduplicated(t *testing.T) {
	bc := compileSource(t, "1 + 1")
	if len(bc.Constants) != 2 {
		t.Fatalf("expected 2 pool entries, got %d", len(bc.Constants))
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  error
		msg   string
	}{
		{"x", ErrUndefinedVariable, "1:1: undefined variable: x"},
		{"let a = 1;\nlet b = a + c;", ErrUndefinedVariable, "2:13: undefined variable: c"},
		{"let a = a;", ErrUndefinedVariable, "undefined variable: a"},
		{`"str"`, ErrUnsupportedNode, "string literal"},
		{"return 1;", ErrUnsupportedNode, "return statement"},
		{"if (true) { return 1; }", ErrUnsupportedNode, "return statement"},
	}

	for _, tt := range tests {
		bc, err := Compile(parseSource(t, tt.input))
		if err == nil {
			t.Fatalf("%q: expected error", tt.input)
		}
		if bc != nil {
			t.Fatalf("%q: no bytecode should be returned on failure", tt.input)
		}
		if !errors.Is(err, tt.kind) {
			t.Fatalf("%q: expected %v, got %v", tt.input, tt.kind, err)
		}
		var cerr *Error
		if !errors.As(err, &cerr) {
			t.Fatalf("%q: expected *Error, got %T", tt.input, err)
		}
		if !strings.Contains(err.Error(), tt.msg) {
			t.Fatalf("%q: expected message containing %q, got %q", tt.input, tt.msg, err.Error())
		}
	}
}

func TestReplaceOperand(t *testing.T) {
	c := New()
	pos := c.emit(bytecode.OP_JUMP, jumpPlaceholder)
	popPos := c.emit(bytecode.OP_POP, 0)
	if pos != 0 || popPos != 3 {
		t.Fatalf("unexpected positions %d, %d", pos, popPos)
	}
	if err := c.replaceOperand(pos, 256); err != nil {
		t.Fatalf("replace: %v", err)
	}
	want := bytecode.Assemble(ins{Op: bytecode.OP_JUMP, Operand: 256}, ins{Op: bytecode.OP_POP})
	if !bytes.Equal(c.instructions, want) {
		t.Fatalf("expected % x, got % x", want, c.instructions)
	}
	if err := c.replaceOperand(popPos, 1); err == nil {
		t.Fatalf("patching a one-byte instruction must fail")
	}
}

func TestCompileRecordsLines(t *testing.T) {
	bc := compileSource(t, "let a = 1;\nlet b = 2;\n\na + b")
	tests := map[int]int{0: 1, 3: 1, 6: 2, 9: 2, 12: 4, 15: 4, 18: 4}
	for offset, line := range tests {
		if got := bc.LineForOffset(offset); got != line {
			t.Fatalf("offset %d: expected line %d, got %d", offset, line, got)
		}
	}
}
