package eval

import "github.com/xirelogy/go-slate/internal/value"

// Environment maps names to values. Blocks do not open a new scope, so a
// single Environment serves a whole program.
type Environment struct {
	table map[string]value.Value
}

func NewEnvironment() *Environment {
	return &Environment{table: make(map[string]value.Value)}
}

func (e *Environment) Get(name string) (value.Value, bool) {
	v, ok := e.table[name]
	return v, ok
}

// Set binds name, replacing any earlier binding.
func (e *Environment) Set(name string, v value.Value) {
	e.table[name] = v
}

// Snapshot copies the current bindings.
func (e *Environment) Snapshot() map[string]value.Value {
	out := make(map[string]value.Value, len(e.table))
	for name, v := range e.table {
		out[name] = v
	}
	return out
}
