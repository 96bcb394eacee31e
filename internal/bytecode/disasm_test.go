package bytecode

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xirelogy/go-slate/internal/value"
)

func TestDisassembleBytecode(t *testing.T) {
	bc := &Bytecode{
		Instructions: Assemble(
			Instruction{Op: OP_CONST, Operand: 0},
			Instruction{Op: OP_SET_GLOBAL, Operand: 0},
			Instruction{Op: OP_TRUE},
			Instruction{Op: OP_JUMP_IF_FALSE, Operand: 11},
			Instruction{Op: OP_NULL},
			Instruction{Op: OP_POP},
		),
		Constants: []value.Value{value.Int(42)},
		Lines:     []LineInfo{{Offset: 0, Line: 1}, {Offset: 6, Line: 2}},
	}

	var buf bytes.Buffer
	dis := NewDisassembler(&buf)
	if err := dis.Disassemble("test", bc); err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"== test (12 bytes, 1 constants)",
		"0000    1 OP_CONST         0 ; const[0]=42",
		"0003    1 OP_SET_GLOBAL    0 ; slot",
		"0006    2 OP_TRUE",
		"0007    2 OP_JUMP_IF_FALSE 11 ; -> 0011",
		"0010    2 OP_NULL",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestDisassembleSections(t *testing.T) {
	bc := &Bytecode{Instructions: Assemble(Instruction{Op: OP_TRUE}, Instruction{Op: OP_POP})}

	var buf bytes.Buffer
	dis := NewDisassembler(&buf)
	if err := dis.Disassemble("a", bc); err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	if err := dis.Disassemble("", bc); err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "\n\n== <main>") {
		t.Fatalf("expected blank line between sections:\n%s", out)
	}
	if !strings.Contains(out, "0000    - OP_TRUE") {
		t.Fatalf("expected '-' for missing line info:\n%s", out)
	}
}

func TestDisassembleMalformed(t *testing.T) {
	bc := &Bytecode{Instructions: Instructions{byte(OP_POP), 0xee}}
	var buf bytes.Buffer
	if err := NewDisassembler(&buf).Disassemble("bad", bc); err == nil {
		t.Fatalf("expected error for unknown opcode")
	}
}

func TestValidate(t *testing.T) {
	good := &Bytecode{
		Instructions: Assemble(Instruction{Op: OP_CONST, Operand: 0}, Instruction{Op: OP_JUMP, Operand: 4}, Instruction{Op: OP_POP}),
		Constants:    []value.Value{value.Int(1)},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	badConst := &Bytecode{Instructions: Assemble(Instruction{Op: OP_CONST, Operand: 3})}
	if err := badConst.Validate(); err == nil {
		t.Fatalf("expected constant index error")
	}

	badJump := &Bytecode{Instructions: Assemble(Instruction{Op: OP_JUMP, Operand: 100})}
	if err := badJump.Validate(); err == nil {
		t.Fatalf("expected jump target error")
	}
}
