package vm

import (
	"errors"
	"fmt"

	"github.com/xirelogy/go-slate/internal/bytecode"
)

// Error kinds. Every RuntimeError wraps exactly one of these.
var (
	ErrStackOverflow    = errors.New("vm: stack overflow")
	ErrStackUnderflow   = errors.New("vm: stack underflow")
	ErrUnknownOpcode    = bytecode.ErrUnknownOpcode
	ErrTruncated        = bytecode.ErrTruncated
	ErrTypeMismatch     = errors.New("vm: type mismatch")
	ErrDivisionByZero   = errors.New("vm: division by zero")
	ErrUndefinedGlobal  = errors.New("vm: undefined global")
	ErrBadOperand       = errors.New("vm: operand out of range")
	ErrInstructionLimit = errors.New("vm: instruction limit exceeded")
)

// TraceInfo describes a single instruction dispatch for debugging/tracing.
type TraceInfo struct {
	Op         bytecode.Opcode
	Operand    uint16
	IP         int
	Line       int
	StackDepth int
}

// TraceHook observes instruction dispatch for debugging/profiling.
type TraceHook func(TraceInfo)

// RuntimeError carries the failing instruction for VM failures.
type RuntimeError struct {
	Op         bytecode.Opcode
	Operand    uint16
	HasOperand bool
	IP         int
	Line       int
	Cause      error
}

func (e *RuntimeError) Error() string {
	loc := fmt.Sprintf("ip %04d %s", e.IP, e.Op)
	if e.HasOperand {
		loc = fmt.Sprintf("%s %d", loc, e.Operand)
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("line %d: %s", e.Line, loc)
	}
	return fmt.Sprintf("%s: %v", loc, e.Cause)
}

// Unwrap exposes the underlying error kind.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

func (vm *VM) fail(ins bytecode.Instruction, cause error) error {
	return &RuntimeError{
		Op:         ins.Op,
		Operand:    ins.Operand,
		HasOperand: bytecode.HasOperand(ins.Op),
		IP:         ins.Offset,
		Line:       vm.bytecode.LineForOffset(ins.Offset),
		Cause:      cause,
	}
}

func (vm *VM) trace(ins bytecode.Instruction) {
	if vm.traceHook == nil {
		return
	}
	vm.traceHook(TraceInfo{
		Op:         ins.Op,
		Operand:    ins.Operand,
		IP:         ins.Offset,
		Line:       vm.bytecode.LineForOffset(ins.Offset),
		StackDepth: vm.sp,
	})
}

func typeMismatch(op bytecode.Opcode, operands ...fmt.Stringer) error {
	switch len(operands) {
	case 1:
		return fmt.Errorf("%w: %s on %s", ErrTypeMismatch, op, operands[0])
	case 2:
		return fmt.Errorf("%w: %s on %s and %s", ErrTypeMismatch, op, operands[0], operands[1])
	default:
		return fmt.Errorf("%w: %s", ErrTypeMismatch, op)
	}
}
