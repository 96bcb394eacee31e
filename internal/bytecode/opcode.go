package bytecode

import "fmt"

// Opcode is the one-byte tag that starts every instruction.
// Tag values are part of the wire format and must never be renumbered.
type Opcode byte

const (
	OP_CONST         Opcode = 0x01 // idx:u16
	OP_ADD           Opcode = 0x02
	OP_SUB           Opcode = 0x03
	OP_MUL           Opcode = 0x04
	OP_DIV           Opcode = 0x05
	OP_POP           Opcode = 0x06
	OP_TRUE          Opcode = 0x07
	OP_FALSE         Opcode = 0x08
	OP_GT            Opcode = 0x09
	OP_LT            Opcode = 0x0a
	OP_EQ            Opcode = 0x0b
	OP_NEQ           Opcode = 0x0c
	OP_NOT           Opcode = 0x0d
	OP_NEG           Opcode = 0x0e
	OP_JUMP          Opcode = 0x0f // target:u16
	OP_JUMP_IF_FALSE Opcode = 0x10 // target:u16
	OP_SET_GLOBAL    Opcode = 0x11 // slot:u16
	OP_GET_GLOBAL    Opcode = 0x12 // slot:u16
	OP_NULL          Opcode = 0x13
)

// Definition describes an opcode's mnemonic and operand layout.
type Definition struct {
	Name string
	// OperandWidth is the operand size in bytes: 0 or 2.
	OperandWidth int
}

var definitions = map[Opcode]Definition{
	OP_CONST:         {"OP_CONST", 2},
	OP_ADD:           {"OP_ADD", 0},
	OP_SUB:           {"OP_SUB", 0},
	OP_MUL:           {"OP_MUL", 0},
	OP_DIV:           {"OP_DIV", 0},
	OP_POP:           {"OP_POP", 0},
	OP_TRUE:          {"OP_TRUE", 0},
	OP_FALSE:         {"OP_FALSE", 0},
	OP_GT:            {"OP_GT", 0},
	OP_LT:            {"OP_LT", 0},
	OP_EQ:            {"OP_EQ", 0},
	OP_NEQ:           {"OP_NEQ", 0},
	OP_NOT:           {"OP_NOT", 0},
	OP_NEG:           {"OP_NEG", 0},
	OP_JUMP:          {"OP_JUMP", 2},
	OP_JUMP_IF_FALSE: {"OP_JUMP_IF_FALSE", 2},
	OP_SET_GLOBAL:    {"OP_SET_GLOBAL", 2},
	OP_GET_GLOBAL:    {"OP_GET_GLOBAL", 2},
	OP_NULL:          {"OP_NULL", 0},
}

// Lookup returns the definition for op.
func Lookup(op Opcode) (Definition, error) {
	def, ok := definitions[op]
	if !ok {
		return Definition{}, fmt.Errorf("%w: 0x%02x", ErrUnknownOpcode, byte(op))
	}
	return def, nil
}

// Width returns the encoded size of an instruction starting with op:
// 1 or 3 bytes, or 0 when op is unknown.
func Width(op Opcode) int {
	def, ok := definitions[op]
	if !ok {
		return 0
	}
	return 1 + def.OperandWidth
}

// HasOperand reports whether op carries a u16 operand.
func HasOperand(op Opcode) bool {
	return definitions[op].OperandWidth == 2
}

func (op Opcode) String() string {
	if def, ok := definitions[op]; ok {
		return def.Name
	}
	return fmt.Sprintf("OP_0x%02X", byte(op))
}
