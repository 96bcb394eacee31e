package bytecode

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/xirelogy/go-slate/internal/value"
)

// WireVersion is the envelope version written by Marshal.
const WireVersion = 1

var ErrWireVersion = errors.New("bytecode: unsupported wire version")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// envelope is the CBOR shape of a shipped artifact. The instruction stream
// is carried verbatim as a byte string.
type envelope struct {
	Version      uint          `cbor:"1,keyasint"`
	Instructions []byte        `cbor:"2,keyasint"`
	Constants    []value.Value `cbor:"3,keyasint"`
	Lines        []LineInfo    `cbor:"4,keyasint,omitempty"`
}

// Marshal serializes bc to canonical CBOR.
func Marshal(bc *Bytecode) ([]byte, error) {
	if bc == nil {
		return nil, fmt.Errorf("bytecode: marshal nil artifact")
	}
	return cborEncMode.Marshal(envelope{
		Version:      WireVersion,
		Instructions: bc.Instructions,
		Constants:    bc.Constants,
		Lines:        bc.Lines,
	})
}

// Unmarshal deserializes an artifact written by Marshal. The instruction
// stream is not validated; call Validate before running untrusted input.
func Unmarshal(data []byte) (*Bytecode, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal: %w", err)
	}
	if env.Version != WireVersion {
		return nil, fmt.Errorf("%w: %d", ErrWireVersion, env.Version)
	}
	return &Bytecode{
		Instructions: env.Instructions,
		Constants:    env.Constants,
		Lines:        env.Lines,
	}, nil
}
