// Package config handles slate.toml engine configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/xirelogy/go-slate/internal/logging"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "slate.toml"

// Execution strategies.
const (
	StrategyVM   = "vm"
	StrategyEval = "eval"
)

// MaxStackSize bounds [vm] stack_size.
const MaxStackSize = 1 << 20

// Config represents a slate.toml file.
type Config struct {
	Engine Engine `toml:"engine"`
	VM     VM     `toml:"vm"`
	Log    Log    `toml:"log"`

	// Path is the file the configuration was loaded from (set at load time).
	Path string `toml:"-"`
}

// Engine selects how programs are executed.
type Engine struct {
	Strategy string `toml:"strategy"`
}

// VM configures the bytecode machine.
type VM struct {
	StackSize           int  `toml:"stack_size"`
	InstructionLimit    int  `toml:"instruction_limit"`
	IntegerOnlyEquality bool `toml:"integer_only_equality"`
}

// Log configures the commonlog backend.
type Log struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Engine: Engine{Strategy: StrategyVM},
		VM:     VM{StackSize: 2048},
		Log:    Log{Level: "warning"},
	}
}

// Parse decodes data on top of the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	c.Path, err = filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a slate.toml file and loads
// it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	switch c.Engine.Strategy {
	case StrategyVM, StrategyEval:
	default:
		errs = append(errs, fmt.Errorf("engine.strategy: unknown strategy %q", c.Engine.Strategy))
	}
	if c.VM.StackSize <= 0 || c.VM.StackSize > MaxStackSize {
		errs = append(errs, fmt.Errorf("vm.stack_size: %d out of range 1..%d", c.VM.StackSize, MaxStackSize))
	}
	if c.VM.InstructionLimit < 0 {
		errs = append(errs, fmt.Errorf("vm.instruction_limit: must not be negative"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}
