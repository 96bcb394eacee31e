package compiler

// SymbolScope tags where a symbol's slot lives.
type SymbolScope string

const (
	GlobalScope SymbolScope = "GLOBAL"
	LocalScope  SymbolScope = "LOCAL"
)

// Symbol is a resolved name: its scope and slot index within that scope.
type Symbol struct {
	Name  string
	Scope SymbolScope
	Index int
}

// SymbolTable maps names to slots for one scope and links to the scope
// that encloses it. Slot indices are local to each table.
type SymbolTable struct {
	Outer *SymbolTable

	store          map[string]Symbol
	names          []string
	numDefinitions int
}

// NewSymbolTable returns the outermost (global) scope.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{store: make(map[string]Symbol)}
}

// NewEnclosedSymbolTable pushes a scope on top of outer. Popping is just
// going back to Outer.
func NewEnclosedSymbolTable(outer *SymbolTable) *SymbolTable {
	s := NewSymbolTable()
	s.Outer = outer
	return s
}

// Define binds name to the next slot of this scope. Redefining a name
// rebinds it to a fresh slot; the old slot is never reused.
func (s *SymbolTable) Define(name string) Symbol {
	sym := Symbol{Name: name, Scope: GlobalScope, Index: s.numDefinitions}
	if s.Outer != nil {
		sym.Scope = LocalScope
	}
	s.store[name] = sym
	s.names = append(s.names, name)
	s.numDefinitions++
	return sym
}

// Resolve looks name up in this scope, then in each enclosing scope.
func (s *SymbolTable) Resolve(name string) (Symbol, bool) {
	for t := s; t != nil; t = t.Outer {
		if sym, ok := t.store[name]; ok {
			return sym, true
		}
	}
	return Symbol{}, false
}

// Len reports how many slots this scope has handed out.
func (s *SymbolTable) Len() int {
	return s.numDefinitions
}

// Names returns the name bound to each slot of this scope, in slot order.
// A rebound name appears once per slot it was given.
func (s *SymbolTable) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}
