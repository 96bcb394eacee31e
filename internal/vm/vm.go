package vm

import (
	"github.com/xirelogy/go-slate/internal/bytecode"
	"github.com/xirelogy/go-slate/internal/value"
)

// StackSize is the default number of value slots in a VM stack.
const StackSize = 2048

// Config tunes a VM. The zero Config gives the defaults.
type Config struct {
	// StackSize is the stack capacity in slots; 0 means StackSize.
	StackSize int
	// InstructionLimit caps instructions per Run; 0 means unlimited.
	InstructionLimit int
	// IntegerOnlyEquality restricts Equal/NotEqual to integer operands.
	IntegerOnlyEquality bool
	TraceHook           TraceHook
}

// VM executes one compiled artifact on a fixed-capacity value stack.
type VM struct {
	bytecode     *bytecode.Bytecode
	instructions bytecode.Instructions
	constants    []value.Value

	// stack is pre-sized; slots at or above sp hold Null.
	stack []value.Value
	sp    int // next free slot, equal to the stack depth
	ip    int

	globals    []value.Value
	lastPopped value.Value

	intOnlyEquality bool
	traceHook       TraceHook
	instLimit       int
	instCount       int
}

// New constructs a VM for bc with the default configuration.
func New(bc *bytecode.Bytecode) *VM {
	return NewWithConfig(bc, Config{})
}

// NewWithConfig constructs a VM for bc.
func NewWithConfig(bc *bytecode.Bytecode, cfg Config) *VM {
	if bc == nil {
		bc = &bytecode.Bytecode{}
	}
	size := cfg.StackSize
	if size <= 0 {
		size = StackSize
	}
	vm := &VM{
		bytecode:        bc,
		instructions:    bc.Instructions,
		constants:       bc.Constants,
		stack:           make([]value.Value, size),
		intOnlyEquality: cfg.IntegerOnlyEquality,
		traceHook:       cfg.TraceHook,
	}
	vm.SetInstructionLimit(cfg.InstructionLimit)
	return vm
}

// SetTraceHook registers a callback for instruction-level tracing.
func (vm *VM) SetTraceHook(h TraceHook) {
	vm.traceHook = h
}

// SetInstructionLimit caps the number of instructions executed per Run (0 for unlimited).
func (vm *VM) SetInstructionLimit(limit int) {
	if limit < 0 {
		limit = 0
	}
	vm.instLimit = limit
}

// ResetState clears everything a previous Run left behind: stack, globals,
// instruction pointer and the last popped value.
func (vm *VM) ResetState() {
	for i := 0; i < vm.sp; i++ {
		vm.stack[i] = value.Null()
	}
	vm.sp = 0
	vm.ip = 0
	vm.globals = vm.globals[:0]
	vm.lastPopped = value.Null()
	vm.instCount = 0
}

// Run executes the instruction stream from the start until it falls off the
// end or an instruction fails. Each call starts from a clean state.
func (vm *VM) Run() error {
	vm.ResetState()
	code := vm.instructions

	for vm.ip < len(code) {
		ins, err := bytecode.Decode(code, vm.ip)
		if err != nil {
			return vm.fail(ins, err)
		}
		if vm.instLimit > 0 {
			vm.instCount++
			if vm.instCount > vm.instLimit {
				return vm.fail(ins, ErrInstructionLimit)
			}
		}
		vm.trace(ins)

		next := vm.ip + ins.Width()
		switch ins.Op {
		case bytecode.OP_CONST:
			if int(ins.Operand) >= len(vm.constants) {
				err = ErrBadOperand
				break
			}
			err = vm.push(vm.constants[ins.Operand])
		case bytecode.OP_ADD, bytecode.OP_SUB, bytecode.OP_MUL, bytecode.OP_DIV:
			err = vm.executeArithmetic(ins.Op)
		case bytecode.OP_GT, bytecode.OP_LT:
			err = vm.executeComparison(ins.Op)
		case bytecode.OP_EQ, bytecode.OP_NEQ:
			err = vm.executeEquality(ins.Op)
		case bytecode.OP_NOT:
			err = vm.executeNot()
		case bytecode.OP_NEG:
			err = vm.executeNegate()
		case bytecode.OP_TRUE:
			err = vm.push(value.Bool(true))
		case bytecode.OP_FALSE:
			err = vm.push(value.Bool(false))
		case bytecode.OP_NULL:
			err = vm.push(value.Null())
		case bytecode.OP_POP:
			vm.lastPopped, err = vm.pop()
		case bytecode.OP_JUMP:
			next, err = vm.jumpTarget(ins.Operand)
		case bytecode.OP_JUMP_IF_FALSE:
			var cond value.Value
			cond, err = vm.pop()
			if err != nil {
				break
			}
			if cond.Kind != value.KindBool {
				err = typeMismatch(ins.Op, cond.Kind)
				break
			}
			if !cond.B {
				next, err = vm.jumpTarget(ins.Operand)
			}
		case bytecode.OP_SET_GLOBAL:
			var v value.Value
			v, err = vm.pop()
			if err == nil {
				vm.setGlobal(int(ins.Operand), v)
			}
		case bytecode.OP_GET_GLOBAL:
			slot := int(ins.Operand)
			if slot >= len(vm.globals) {
				err = ErrUndefinedGlobal
				break
			}
			err = vm.push(vm.globals[slot])
		}
		if err != nil {
			return vm.fail(ins, err)
		}
		vm.ip = next
	}
	return nil
}

// LastPopped returns the value most recently removed by Pop. After a
// successful Run it is the value of the program's last expression
// statement, or Null if there was none.
func (vm *VM) LastPopped() value.Value {
	return vm.lastPopped
}

// StackTop returns the value on top of the stack, if any.
func (vm *VM) StackTop() (value.Value, bool) {
	if vm.sp == 0 {
		return value.Null(), false
	}
	return vm.stack[vm.sp-1], true
}

// StackDepth returns the number of values currently on the stack.
func (vm *VM) StackDepth() int {
	return vm.sp
}

// Global returns the value stored in slot.
func (vm *VM) Global(slot int) (value.Value, bool) {
	if slot < 0 || slot >= len(vm.globals) {
		return value.Null(), false
	}
	return vm.globals[slot], true
}

// Globals returns a copy of the global store, indexed by slot.
func (vm *VM) Globals() []value.Value {
	out := make([]value.Value, len(vm.globals))
	copy(out, vm.globals)
	return out
}

func (vm *VM) push(v value.Value) error {
	if vm.sp >= len(vm.stack) {
		return ErrStackOverflow
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) pop() (value.Value, error) {
	if vm.sp == 0 {
		return value.Null(), ErrStackUnderflow
	}
	vm.sp--
	v := vm.stack[vm.sp]
	vm.stack[vm.sp] = value.Null()
	return v, nil
}

func (vm *VM) popPair() (left, right value.Value, err error) {
	right, err = vm.pop()
	if err != nil {
		return
	}
	left, err = vm.pop()
	return
}

// setGlobal stores v at slot, growing the store with Null as needed.
func (vm *VM) setGlobal(slot int, v value.Value) {
	for len(vm.globals) <= slot {
		vm.globals = append(vm.globals, value.Null())
	}
	vm.globals[slot] = v
}

func (vm *VM) jumpTarget(target uint16) (int, error) {
	if int(target) > len(vm.instructions) {
		return 0, ErrBadOperand
	}
	return int(target), nil
}

func (vm *VM) executeArithmetic(op bytecode.Opcode) error {
	left, right, err := vm.popPair()
	if err != nil {
		return err
	}
	if left.Kind != value.KindInt || right.Kind != value.KindInt {
		return typeMismatch(op, left.Kind, right.Kind)
	}
	l, r := left.Int, right.Int
	var result int64
	switch op {
	case bytecode.OP_ADD:
		result = l + r
	case bytecode.OP_SUB:
		result = l - r
	case bytecode.OP_MUL:
		result = l * r
	case bytecode.OP_DIV:
		if r == 0 {
			return ErrDivisionByZero
		}
		result = l / r
	}
	return vm.push(value.Int(result))
}

func (vm *VM) executeComparison(op bytecode.Opcode) error {
	left, right, err := vm.popPair()
	if err != nil {
		return err
	}
	if left.Kind != value.KindInt || right.Kind != value.KindInt {
		return typeMismatch(op, left.Kind, right.Kind)
	}
	if op == bytecode.OP_GT {
		return vm.push(value.Bool(left.Int > right.Int))
	}
	return vm.push(value.Bool(left.Int < right.Int))
}

// executeEquality compares two integers, two booleans or two nulls.
// Mixed kinds are a type mismatch rather than simply unequal.
func (vm *VM) executeEquality(op bytecode.Opcode) error {
	left, right, err := vm.popPair()
	if err != nil {
		return err
	}
	switch {
	case left.Kind == value.KindInt && right.Kind == value.KindInt:
	case vm.intOnlyEquality:
		return typeMismatch(op, left.Kind, right.Kind)
	case left.Kind != right.Kind:
		return typeMismatch(op, left.Kind, right.Kind)
	case left.Kind != value.KindBool && left.Kind != value.KindNull:
		return typeMismatch(op, left.Kind, right.Kind)
	}
	eq := value.Equal(left, right)
	if op == bytecode.OP_NEQ {
		eq = !eq
	}
	return vm.push(value.Bool(eq))
}

func (vm *VM) executeNot() error {
	operand, err := vm.pop()
	if err != nil {
		return err
	}
	if operand.Kind != value.KindBool {
		return typeMismatch(bytecode.OP_NOT, operand.Kind)
	}
	return vm.push(value.Bool(!operand.B))
}

func (vm *VM) executeNegate() error {
	operand, err := vm.pop()
	if err != nil {
		return err
	}
	if operand.Kind != value.KindInt {
		return typeMismatch(bytecode.OP_NEG, operand.Kind)
	}
	return vm.push(value.Int(-operand.Int))
}
