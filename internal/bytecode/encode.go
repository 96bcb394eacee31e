package bytecode

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownOpcode = errors.New("bytecode: unknown opcode")
	ErrTruncated     = errors.New("bytecode: truncated instruction")
)

// Instruction is one decoded instruction. Operand is zero for opcodes
// without one.
type Instruction struct {
	Offset  int
	Op      Opcode
	Operand uint16
}

// Width returns the encoded size of ins.
func (ins Instruction) Width() int { return Width(ins.Op) }

func (ins Instruction) String() string {
	if HasOperand(ins.Op) {
		return fmt.Sprintf("%s %d", ins.Op, ins.Operand)
	}
	return ins.Op.String()
}

// Encode returns the wire bytes for one instruction: the tag alone, or the
// tag followed by the operand in big-endian order. The operand is ignored
// for opcodes that take none. Unknown opcodes encode as their bare tag.
func Encode(op Opcode, operand uint16) []byte {
	if !HasOperand(op) {
		return []byte{byte(op)}
	}
	return []byte{byte(op), byte(operand >> 8), byte(operand)}
}

// DecodeOperand rebuilds a u16 operand from its two wire bytes.
func DecodeOperand(hi, lo byte) uint16 {
	return uint16(hi)<<8 | uint16(lo)
}

// PutOperand writes operand big-endian into the first two bytes of dst.
func PutOperand(dst []byte, operand uint16) {
	dst[0] = byte(operand >> 8)
	dst[1] = byte(operand)
}

// Assemble encodes instructions back to back. Offsets are ignored.
func Assemble(ins ...Instruction) Instructions {
	var out Instructions
	for _, in := range ins {
		out = append(out, Encode(in.Op, in.Operand)...)
	}
	return out
}

// Decode reads the instruction starting at offset.
func Decode(code []byte, offset int) (Instruction, error) {
	if offset < 0 || offset >= len(code) {
		return Instruction{}, fmt.Errorf("%w: no opcode at offset %d", ErrTruncated, offset)
	}
	ins := Instruction{Offset: offset, Op: Opcode(code[offset])}
	def, err := Lookup(ins.Op)
	if err != nil {
		return ins, err
	}
	if def.OperandWidth == 2 {
		if offset+2 >= len(code) {
			return ins, fmt.Errorf("%w: %s at offset %d needs 2 operand bytes", ErrTruncated, ins.Op, offset)
		}
		ins.Operand = DecodeOperand(code[offset+1], code[offset+2])
	}
	return ins, nil
}

// Walk decodes every instruction in code in order, stopping at the first
// decode error or when fn returns an error.
func Walk(code []byte, fn func(Instruction) error) error {
	for ip := 0; ip < len(code); {
		ins, err := Decode(code, ip)
		if err != nil {
			return err
		}
		if err := fn(ins); err != nil {
			return err
		}
		ip += ins.Width()
	}
	return nil
}
