package slate

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/xirelogy/go-slate/internal/bytecode"
)

// Program is a compiled source unit. It can be run any number of times,
// concurrently, and shipped between processes with MarshalBinary.
type Program struct {
	Name string
	ID   uuid.UUID

	bc *bytecode.Bytecode
	// globals names each global slot in slot order.
	globals []string
}

// programEnvelope is the CBOR shape of a marshaled Program. Code carries the
// bytecode wire envelope unchanged.
type programEnvelope struct {
	Name    string    `cbor:"1,keyasint"`
	ID      uuid.UUID `cbor:"2,keyasint"`
	Code    []byte    `cbor:"3,keyasint"`
	Globals []string  `cbor:"4,keyasint,omitempty"`
}

var programEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("slate: failed to create CBOR enc mode: %v", err))
	}
	programEncMode = em
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p *Program) MarshalBinary() ([]byte, error) {
	if p == nil || p.bc == nil {
		return nil, errors.New("slate: marshal empty program")
	}
	code, err := bytecode.Marshal(p.bc)
	if err != nil {
		return nil, err
	}
	return programEncMode.Marshal(programEnvelope{
		Name:    p.Name,
		ID:      p.ID,
		Code:    code,
		Globals: p.globals,
	})
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The decoded
// instruction stream is validated before it is accepted.
func (p *Program) UnmarshalBinary(data []byte) error {
	var env programEnvelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("slate: unmarshal program: %w", err)
	}
	bc, err := bytecode.Unmarshal(env.Code)
	if err != nil {
		return err
	}
	if err := bc.Validate(); err != nil {
		return err
	}
	*p = Program{Name: env.Name, ID: env.ID, bc: bc, globals: env.Globals}
	return nil
}

// Disassemble writes a human-readable listing of the program to w.
func (p *Program) Disassemble(w io.Writer) error {
	if p == nil || p.bc == nil {
		return errors.New("slate: disassemble empty program")
	}
	return bytecode.NewDisassembler(w).Disassemble(p.Name, p.bc)
}

// Size returns the length of the instruction stream in bytes.
func (p *Program) Size() int {
	if p == nil || p.bc == nil {
		return 0
	}
	return len(p.bc.Instructions)
}

// Globals returns the global names in slot order. A name bound twice
// appears twice.
func (p *Program) Globals() []string {
	out := make([]string, len(p.globals))
	copy(out, p.globals)
	return out
}
