// slate CLI - compiles and runs slate programs
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xirelogy/go-slate"
	"github.com/xirelogy/go-slate/internal/config"
	"github.com/xirelogy/go-slate/internal/logging"
)

// compiledExt marks files holding a marshaled program rather than source.
const compiledExt = ".slatec"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type source struct {
	name string
	text string
	prog *slate.Program
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("slate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Configuration file (default: nearest "+config.FileName+")")
	strategy := fs.String("strategy", "", "Execution strategy: vm or eval")
	disasm := fs.Bool("disasm", false, "Print the bytecode listing instead of running")
	logLevel := fs.String("log-level", "", "Log level: none, critical, error, warning, notice, info, debug")
	expr := fs.String("e", "", "Run the given source text")
	output := fs.String("o", "", "Write the compiled program to this file instead of running")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: slate [options] [files...]\n\n")
		fmt.Fprintf(stderr, "Compiles and runs slate programs. Files ending in %s are loaded as compiled programs.\n\n", compiledExt)
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  slate -e '1 + 2'               # Print 3\n")
		fmt.Fprintf(stderr, "  slate -disasm prog.slate       # Show bytecode\n")
		fmt.Fprintf(stderr, "  slate -o prog.slatec prog.slate # Compile only\n")
		fmt.Fprintf(stderr, "  slate a.slate b.slate          # Run several programs concurrently\n")
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *strategy != "" {
		cfg.Engine.Strategy = *strategy
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if err := logging.Configure(cfg.Log.Level, cfg.Log.File); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	engine, err := slate.NewEngine(slate.OptionsFromConfig(cfg))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	sources, err := collectSources(*expr, fs.Args())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(sources) == 0 {
		fs.Usage()
		return 2
	}

	switch {
	case *output != "":
		return writeCompiled(engine, sources, *output, stderr)
	case *disasm:
		return disassemble(engine, sources, stdout, stderr)
	default:
		return execute(engine, sources, stdout, stderr)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.FindAndLoad(wd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

func collectSources(expr string, files []string) ([]source, error) {
	var sources []source
	if expr != "" {
		sources = append(sources, source{name: "<expr>", text: expr})
	}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if filepath.Ext(path) == compiledExt {
			prog := new(slate.Program)
			if err := prog.UnmarshalBinary(data); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			sources = append(sources, source{name: path, prog: prog})
			continue
		}
		sources = append(sources, source{name: path, text: string(data)})
	}
	return sources, nil
}

func compile(engine *slate.Engine, src source) (*slate.Program, error) {
	if src.prog != nil {
		return src.prog, nil
	}
	return engine.Compile(src.name, src.text)
}

func writeCompiled(engine *slate.Engine, sources []source, path string, stderr io.Writer) int {
	if len(sources) != 1 {
		fmt.Fprintf(stderr, "Error: -o needs exactly one program, got %d\n", len(sources))
		return 2
	}
	prog, err := compile(engine, sources[0])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	data, err := prog.MarshalBinary()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func disassemble(engine *slate.Engine, sources []source, stdout, stderr io.Writer) int {
	for i, src := range sources {
		prog, err := compile(engine, src)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		if err := prog.Disassemble(stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	return 0
}

func execute(engine *slate.Engine, sources []source, stdout, stderr io.Writer) int {
	results := make([]slate.Result, len(sources))

	if engine.Options().Strategy == slate.StrategyEval {
		for i, src := range sources {
			if src.prog != nil {
				fmt.Fprintf(stderr, "Error: %s: compiled programs need the vm strategy\n", src.name)
				return 1
			}
			res, err := engine.Evaluate(src.name, src.text)
			if err != nil {
				return reportError(err, stderr)
			}
			results[i] = res
		}
	} else {
		progs := make([]*slate.Program, len(sources))
		for i, src := range sources {
			prog, err := compile(engine, src)
			if err != nil {
				return reportError(err, stderr)
			}
			progs[i] = prog
		}
		var err error
		if len(progs) == 1 {
			results[0], err = engine.Run(progs[0])
		} else {
			results, err = engine.RunBatch(context.Background(), progs)
		}
		if err != nil {
			return reportError(err, stderr)
		}
	}

	for i, res := range results {
		if len(sources) > 1 {
			fmt.Fprintf(stdout, "%s: %s\n", sources[i].name, res.Value.Inspect())
		} else {
			fmt.Fprintln(stdout, res.Value.Inspect())
		}
	}
	return 0
}

func reportError(err error, stderr io.Writer) int {
	var perr *slate.ParseError
	if errors.As(err, &perr) {
		fmt.Fprintf(stderr, "Parse errors in %s:\n\t%s\n", perr.Name, strings.Join(perr.Messages, "\n\t"))
		return 1
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
