package bytecode

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Disassembler formats bytecode as a readable assembly-style dump.
type Disassembler struct {
	w       io.Writer
	printed bool
}

// NewDisassembler constructs a disassembler that writes to w.
func NewDisassembler(w io.Writer) *Disassembler {
	return &Disassembler{w: w}
}

// Disassemble emits a section for bc headed by label. Sections written by
// the same disassembler are separated by a blank line.
func (d *Disassembler) Disassemble(label string, bc *Bytecode) error {
	if bc == nil {
		return fmt.Errorf("nil bytecode")
	}
	if d.printed {
		fmt.Fprintln(d.w)
	}
	d.printed = true
	if label == "" {
		label = "<main>"
	}
	fmt.Fprintf(d.w, "== %s (%d bytes, %d constants)\n", label, len(bc.Instructions), len(bc.Constants))

	return Walk(bc.Instructions, func(ins Instruction) error {
		lineStr := "-"
		if line := bc.LineForOffset(ins.Offset); line > 0 {
			lineStr = strconv.Itoa(line)
		}
		fmt.Fprintf(d.w, "%04d %4s %-16s", ins.Offset, lineStr, ins.Op)
		if detail := describeOperand(ins, bc); detail != "" {
			fmt.Fprintf(d.w, " %s", detail)
		}
		fmt.Fprintln(d.w)
		return nil
	})
}

func describeOperand(ins Instruction, bc *Bytecode) string {
	switch ins.Op {
	case OP_CONST:
		if int(ins.Operand) >= len(bc.Constants) {
			return fmt.Sprintf("%d ; const[%d]=<invalid>", ins.Operand, ins.Operand)
		}
		return fmt.Sprintf("%d ; const[%d]=%s", ins.Operand, ins.Operand, bc.Constants[ins.Operand])
	case OP_SET_GLOBAL, OP_GET_GLOBAL:
		return fmt.Sprintf("%d ; slot", ins.Operand)
	case OP_JUMP, OP_JUMP_IF_FALSE:
		return fmt.Sprintf("%d ; -> %04d", ins.Operand, ins.Operand)
	default:
		return ""
	}
}

// String renders the stream one instruction per line. Decoding stops at
// the first malformed instruction, which is reported inline.
func (ins Instructions) String() string {
	var sb strings.Builder
	err := Walk(ins, func(in Instruction) error {
		fmt.Fprintf(&sb, "%04d %s\n", in.Offset, in)
		return nil
	})
	if err != nil {
		fmt.Fprintf(&sb, "ERROR: %v\n", err)
	}
	return sb.String()
}
