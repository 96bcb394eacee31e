// Package slate compiles and runs slate programs: integer and boolean
// arithmetic, comparisons, if/else expressions and global let bindings,
// executed either on a stack-based bytecode VM or by walking the syntax
// tree directly.
package slate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/xirelogy/go-slate/internal/ast"
	"github.com/xirelogy/go-slate/internal/compiler"
	"github.com/xirelogy/go-slate/internal/config"
	"github.com/xirelogy/go-slate/internal/eval"
	"github.com/xirelogy/go-slate/internal/lexer"
	"github.com/xirelogy/go-slate/internal/logging"
	"github.com/xirelogy/go-slate/internal/parser"
	"github.com/xirelogy/go-slate/internal/vm"
)

// Strategy selects how RunSource executes a program.
type Strategy string

const (
	StrategyVM   Strategy = config.StrategyVM
	StrategyEval Strategy = config.StrategyEval
)

// Runtime error kinds, for use with errors.Is.
var (
	ErrStackOverflow    = vm.ErrStackOverflow
	ErrStackUnderflow   = vm.ErrStackUnderflow
	ErrUnknownOpcode    = vm.ErrUnknownOpcode
	ErrTypeMismatch     = vm.ErrTypeMismatch
	ErrDivisionByZero   = vm.ErrDivisionByZero
	ErrUndefinedGlobal  = vm.ErrUndefinedGlobal
	ErrInstructionLimit = vm.ErrInstructionLimit

	ErrUndefinedVariable = compiler.ErrUndefinedVariable
	ErrUnsupported       = compiler.ErrUnsupportedNode
)

// Options tunes an Engine. The zero Options runs on the VM with defaults.
type Options struct {
	Strategy            Strategy
	StackSize           int
	InstructionLimit    int
	IntegerOnlyEquality bool
}

// OptionsFromConfig maps a loaded slate.toml onto engine options.
func OptionsFromConfig(c *config.Config) Options {
	if c == nil {
		c = config.Default()
	}
	return Options{
		Strategy:            Strategy(c.Engine.Strategy),
		StackSize:           c.VM.StackSize,
		InstructionLimit:    c.VM.InstructionLimit,
		IntegerOnlyEquality: c.VM.IntegerOnlyEquality,
	}
}

// ParseError lists every syntax error found in one source unit.
type ParseError struct {
	Name     string
	Messages []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse errors: %s", e.Name, strings.Join(e.Messages, "; "))
}

// CompileError is a compile failure in a named source unit.
type CompileError struct {
	Name  string
	Cause error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Cause)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *CompileError) Unwrap() error {
	return e.Cause
}

// RuntimeError is a source-aware execution error.
type RuntimeError struct {
	Program string
	Line    int
	// IP and Op locate the failing instruction; both are unset for errors
	// raised by the evaluator.
	IP    int
	Op    string
	Cause error
}

func (e *RuntimeError) Error() string {
	var parts []string
	if e.Program != "" {
		if e.Line > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", e.Program, e.Line))
		} else {
			parts = append(parts, e.Program)
		}
	} else if e.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", e.Line))
	}
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("at %04d %s", e.IP, e.Op))
	}
	loc := strings.Join(parts, " ")
	if loc != "" {
		return fmt.Sprintf("%s: %v", loc, e.Cause)
	}
	return e.Cause.Error()
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

func convertRuntimeError(name string, err error) error {
	if err == nil {
		return nil
	}
	var rte *vm.RuntimeError
	if errors.As(err, &rte) {
		return &RuntimeError{
			Program: name,
			Line:    rte.Line,
			IP:      rte.IP,
			Op:      rte.Op.String(),
			Cause:   rte.Cause,
		}
	}
	var ee *eval.Error
	if errors.As(err, &ee) {
		return &RuntimeError{Program: name, Line: ee.Pos.Line, Cause: ee.Err}
	}
	return err
}

// TraceInfo captures one instruction dispatch for debug hooks.
type TraceInfo struct {
	Program    string
	Op         string
	Operand    uint16
	IP         int
	Line       int
	StackDepth int
}

// TraceHook observes instruction dispatch for debugging/profiling. During
// RunBatch it is called from several goroutines.
type TraceHook func(TraceInfo)

// Result is the outcome of one run.
type Result struct {
	// Value is the value most recently discarded by an expression
	// statement, or null. A branch's trailing expression is its if's value
	// and is not discarded on its own.
	Value Value
	// Globals maps each bound name to its final value.
	Globals map[string]Value
}

// Engine compiles and runs programs. Programs do not share state, so an
// Engine can run any number of them concurrently.
type Engine struct {
	opts Options
	log  commonlog.Logger

	mu    sync.RWMutex
	trace TraceHook
}

// NewEngine validates opts and constructs an engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Strategy == "" {
		opts.Strategy = StrategyVM
	}
	switch opts.Strategy {
	case StrategyVM, StrategyEval:
	default:
		return nil, fmt.Errorf("unknown strategy %q", opts.Strategy)
	}
	if opts.StackSize < 0 || opts.StackSize > config.MaxStackSize {
		return nil, fmt.Errorf("stack size %d out of range 0..%d", opts.StackSize, config.MaxStackSize)
	}
	if opts.InstructionLimit < 0 {
		return nil, errors.New("instruction limit must not be negative")
	}
	return &Engine{opts: opts, log: logging.Logger("engine")}, nil
}

// Options returns the engine's options after defaults were applied.
func (e *Engine) Options() Options {
	return e.opts
}

// SetTraceHook attaches a debug hook that observes VM instruction dispatch.
func (e *Engine) SetTraceHook(h TraceHook) {
	e.mu.Lock()
	e.trace = h
	e.mu.Unlock()
}

// CompileFile reads and compiles a source file.
func (e *Engine) CompileFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return e.Compile(path, string(data))
}

// Compile parses and compiles src. The name is used in diagnostics.
func (e *Engine) Compile(name string, src string) (*Program, error) {
	prog, err := parse(name, src)
	if err != nil {
		return nil, err
	}
	c := compiler.New()
	if err := c.Compile(prog); err != nil {
		e.log.Debugf("compile %s failed: %v", name, err)
		return nil, &CompileError{Name: name, Cause: err}
	}
	p := &Program{
		Name:    name,
		ID:      uuid.New(),
		bc:      c.Bytecode(),
		globals: c.Symbols().Names(),
	}
	e.log.Debug("compiled", "program", name, "id", p.ID.String(), "bytes", p.Size(), "constants", len(p.bc.Constants))
	return p, nil
}

// Run executes prog on a fresh VM.
func (e *Engine) Run(prog *Program) (Result, error) {
	if prog == nil || prog.bc == nil {
		return Result{}, errors.New("slate: run empty program")
	}
	runID := uuid.New()
	machine := vm.NewWithConfig(prog.bc, vm.Config{
		StackSize:           e.opts.StackSize,
		InstructionLimit:    e.opts.InstructionLimit,
		IntegerOnlyEquality: e.opts.IntegerOnlyEquality,
		TraceHook:           e.vmTraceHook(prog.Name),
	})

	if err := machine.Run(); err != nil {
		e.log.Info("run failed", "program", prog.Name, "run", runID.String(), "error", err.Error())
		return Result{}, convertRuntimeError(prog.Name, err)
	}

	res := Result{Value: wrapValue(machine.LastPopped()), Globals: map[string]Value{}}
	for slot, name := range prog.globals {
		if v, ok := machine.Global(slot); ok {
			res.Globals[name] = wrapValue(v)
		}
	}
	e.log.Debug("run finished", "program", prog.Name, "run", runID.String(), "result", res.Value.Inspect())
	return res, nil
}

func (e *Engine) vmTraceHook(name string) vm.TraceHook {
	e.mu.RLock()
	h := e.trace
	e.mu.RUnlock()
	if h == nil {
		return nil
	}
	return func(info vm.TraceInfo) {
		h(TraceInfo{
			Program:    name,
			Op:         info.Op.String(),
			Operand:    info.Operand,
			IP:         info.IP,
			Line:       info.Line,
			StackDepth: info.StackDepth,
		})
	}
}

// Evaluate parses src and runs it with the tree-walking evaluator. It
// accepts string literals and return statements, which the compiler
// rejects.
func (e *Engine) Evaluate(name string, src string) (Result, error) {
	prog, err := parse(name, src)
	if err != nil {
		return Result{}, err
	}
	env := eval.NewEnvironment()
	v, err := eval.Eval(prog, env)
	if err != nil {
		e.log.Info("evaluation failed", "program", name, "error", err.Error())
		return Result{}, convertRuntimeError(name, err)
	}
	res := Result{Value: wrapValue(v), Globals: map[string]Value{}}
	for k, gv := range env.Snapshot() {
		res.Globals[k] = wrapValue(gv)
	}
	return res, nil
}

// RunSource compiles and runs src with the engine's strategy.
func (e *Engine) RunSource(name string, src string) (Result, error) {
	if e.opts.Strategy == StrategyEval {
		return e.Evaluate(name, src)
	}
	prog, err := e.Compile(name, src)
	if err != nil {
		return Result{}, err
	}
	return e.Run(prog)
}

// RunFuture represents an in-flight run. Await may be called any number of
// times and from several goroutines; every call sees the same outcome.
type RunFuture struct {
	done chan struct{}
	res  Result
	err  error
}

// Await waits for completion or context cancellation.
func (f *RunFuture) Await(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-f.done:
		return f.res, f.err
	}
}

// RunAsync executes prog on its own goroutine. A context that is already
// done prevents the run from starting; a started run is not interrupted.
func (e *Engine) RunAsync(ctx context.Context, prog *Program) *RunFuture {
	f := &RunFuture{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.res, f.err = e.Run(prog)
	}()
	return f
}

// RunBatch runs progs concurrently, at most GOMAXPROCS at a time. Results
// are in input order. The first failure cancels runs that have not started
// yet and is returned.
func (e *Engine) RunBatch(ctx context.Context, progs []*Program) ([]Result, error) {
	results := make([]Result, len(progs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, prog := range progs {
		i, prog := i, prog
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.Run(prog)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func parse(name string, src string) (*ast.Program, error) {
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, &ParseError{Name: name, Messages: errs}
	}
	return prog, nil
}
