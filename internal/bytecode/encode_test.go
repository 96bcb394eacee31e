package bytecode

import (
	"bytes"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestEncodeTagsAndWidths(t *testing.T) {
	tests := []struct {
		op    Opcode
		tag   byte
		width int
	}{
		{OP_CONST, 0x01, 3},
		{OP_ADD, 0x02, 1},
		{OP_SUB, 0x03, 1},
		{OP_MUL, 0x04, 1},
		{OP_DIV, 0x05, 1},
		{OP_POP, 0x06, 1},
		{OP_TRUE, 0x07, 1},
		{OP_FALSE, 0x08, 1},
		{OP_GT, 0x09, 1},
		{OP_LT, 0x0a, 1},
		{OP_EQ, 0x0b, 1},
		{OP_NEQ, 0x0c, 1},
		{OP_NOT, 0x0d, 1},
		{OP_NEG, 0x0e, 1},
		{OP_JUMP, 0x0f, 3},
		{OP_JUMP_IF_FALSE, 0x10, 3},
		{OP_SET_GLOBAL, 0x11, 3},
		{OP_GET_GLOBAL, 0x12, 3},
		{OP_NULL, 0x13, 1},
	}

	for _, tt := range tests {
		if byte(tt.op) != tt.tag {
			t.Fatalf("%s: expected tag 0x%02x, got 0x%02x", tt.op, tt.tag, byte(tt.op))
		}
		if w := Width(tt.op); w != tt.width {
			t.Fatalf("%s: expected width %d, got %d", tt.op, tt.width, w)
		}
		for _, operand := range []uint16{0, 7, 65535} {
			enc := Encode(tt.op, operand)
			if len(enc) != tt.width {
				t.Fatalf("%s operand %d: encoded width %d, want %d", tt.op, operand, len(enc), tt.width)
			}
			if enc[0] != tt.tag {
				t.Fatalf("%s: first byte 0x%02x, want 0x%02x", tt.op, enc[0], tt.tag)
			}
		}
	}
}

func TestEncodeBigEndian(t *testing.T) {
	tests := []struct {
		operand  uint16
		expected []byte
	}{
		{0, []byte{0x01, 0x00, 0x00}},
		{1, []byte{0x01, 0x00, 0x01}},
		{255, []byte{0x01, 0x00, 0xff}},
		{256, []byte{0x01, 0x01, 0x00}},
		{65534, []byte{0x01, 0xff, 0xfe}},
		{65535, []byte{0x01, 0xff, 0xff}},
	}

	for _, tt := range tests {
		enc := Encode(OP_CONST, tt.operand)
		if !bytes.Equal(enc, tt.expected) {
			t.Fatalf("operand %d: expected % x, got % x", tt.operand, tt.expected, enc)
		}
		if got := DecodeOperand(enc[1], enc[2]); got != tt.operand {
			t.Fatalf("operand %d: round trip gave %d", tt.operand, got)
		}
	}
}

func TestOperandRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)

	properties.Property("decode(encode(v)) == v for every u16 operand", prop.ForAll(
		func(v uint16) bool {
			for _, op := range []Opcode{OP_CONST, OP_JUMP, OP_JUMP_IF_FALSE, OP_SET_GLOBAL, OP_GET_GLOBAL} {
				enc := Encode(op, v)
				if len(enc) != 3 || DecodeOperand(enc[1], enc[2]) != v {
					return false
				}
				ins, err := Decode(enc, 0)
				if err != nil || ins.Op != op || ins.Operand != v {
					return false
				}
			}
			return true
		},
		gen.UInt16(),
	))

	properties.Property("PutOperand rewrites in place without changing width", prop.ForAll(
		func(first, second uint16) bool {
			enc := Encode(OP_JUMP, first)
			PutOperand(enc[1:], second)
			return len(enc) == 3 && enc[0] == byte(OP_JUMP) && DecodeOperand(enc[1], enc[2]) == second
		},
		gen.UInt16(),
		gen.UInt16(),
	))

	properties.TestingRun(t)
}

func TestEncodeIgnoresOperandForBareOpcodes(t *testing.T) {
	if enc := Encode(OP_ADD, 513); !bytes.Equal(enc, []byte{0x02}) {
		t.Fatalf("expected single tag byte, got % x", enc)
	}
	if enc := Encode(Opcode(0xfe), 513); !bytes.Equal(enc, []byte{0xfe}) {
		t.Fatalf("unknown opcode should encode as its tag, got % x", enc)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode([]byte{0xfe}, 0); !errors.Is(err, ErrUnknownOpcode) {
		t.Fatalf("expected ErrUnknownOpcode, got %v", err)
	}
	if _, err := Decode([]byte{0x00}, 0); !errors.Is(err, ErrUnknownOpcode) {
		t.Fatalf("tag 0x00 is unassigned, got %v", err)
	}
	if _, err := Decode([]byte{byte(OP_CONST), 0x00}, 0); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	if _, err := Decode([]byte{byte(OP_POP)}, 1); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated past end, got %v", err)
	}
	if _, err := Lookup(Opcode(0x99)); !errors.Is(err, ErrUnknownOpcode) {
		t.Fatalf("expected lookup failure, got %v", err)
	}
}

func TestAssembleAndWalk(t *testing.T) {
	code := Assemble(
		Instruction{Op: OP_CONST, Operand: 1},
		Instruction{Op: OP_CONST, Operand: 2},
		Instruction{Op: OP_ADD},
		Instruction{Op: OP_JUMP_IF_FALSE, Operand: 11},
		Instruction{Op: OP_POP},
	)

	expected := []Instruction{
		{Offset: 0, Op: OP_CONST, Operand: 1},
		{Offset: 3, Op: OP_CONST, Operand: 2},
		{Offset: 6, Op: OP_ADD},
		{Offset: 7, Op: OP_JUMP_IF_FALSE, Operand: 11},
		{Offset: 10, Op: OP_POP},
	}

	var got []Instruction
	if err := Walk(code, func(ins Instruction) error {
		got = append(got, ins)
		return nil
	}); err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(got) != len(expected) {
		t.Fatalf("expected %d instructions, got %d", len(expected), len(got))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("instruction %d: expected %+v, got %+v", i, expected[i], got[i])
		}
	}
}

func TestInstructionsString(t *testing.T) {
	code := Assemble(
		Instruction{Op: OP_CONST, Operand: 65535},
		Instruction{Op: OP_NEG},
	)
	expected := "0000 OP_CONST 65535\n0003 OP_NEG\n"
	if got := code.String(); got != expected {
		t.Fatalf("expected:\n%s\ngot:\n%s", expected, got)
	}
}
