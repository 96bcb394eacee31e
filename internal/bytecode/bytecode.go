package bytecode

import (
	"fmt"

	"github.com/xirelogy/go-slate/internal/value"
)

// Instructions is a raw instruction stream. It has no header or length
// prefix; it ends where the slice ends.
type Instructions []byte

// Bytecode is the output of one compilation: the instruction stream with
// its constant pool.
type Bytecode struct {
	Instructions Instructions
	Constants    []value.Value
	// Lines maps instruction offsets to source lines (start-inclusive).
	Lines []LineInfo
}

// LineInfo marks the source line of the instructions from Offset onwards.
type LineInfo struct {
	Offset int `cbor:"1,keyasint"`
	Line   int `cbor:"2,keyasint"`
}

// LineForOffset returns the source line of the instruction at offset, or 0
// when no line information covers it.
func (bc *Bytecode) LineForOffset(offset int) int {
	if bc == nil {
		return 0
	}
	line := 0
	for _, info := range bc.Lines {
		if info.Offset > offset {
			break
		}
		line = info.Line
	}
	return line
}

// Validate decodes the whole stream and checks every operand against the
// constant pool and the stream bounds. It is meant for artifacts that did
// not come straight from the compiler.
func (bc *Bytecode) Validate() error {
	if bc == nil {
		return fmt.Errorf("bytecode: nil artifact")
	}
	return Walk(bc.Instructions, func(ins Instruction) error {
		switch ins.Op {
		case OP_CONST:
			if int(ins.Operand) >= len(bc.Constants) {
				return fmt.Errorf("bytecode: offset %d: constant index %d out of range (pool size %d)", ins.Offset, ins.Operand, len(bc.Constants))
			}
		case OP_JUMP, OP_JUMP_IF_FALSE:
			if int(ins.Operand) > len(bc.Instructions) {
				return fmt.Errorf("bytecode: offset %d: jump target %d beyond end of stream", ins.Offset, ins.Operand)
			}
		}
		return nil
	})
}
