package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if c.Engine.Strategy != StrategyVM || c.VM.StackSize != 2048 || c.Log.Level != "warning" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
[engine]
strategy = "eval"

[vm]
stack_size = 64
instruction_limit = 1000
integer_only_equality = true

[log]
level = "debug"
file = "slate.log"
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Engine.Strategy != StrategyEval {
		t.Fatalf("strategy = %q, want eval", c.Engine.Strategy)
	}
	if c.VM.StackSize != 64 || c.VM.InstructionLimit != 1000 || !c.VM.IntegerOnlyEquality {
		t.Fatalf("unexpected vm section: %+v", c.VM)
	}
	if c.Log.Level != "debug" || c.Log.File != "slate.log" {
		t.Fatalf("unexpected log section: %+v", c.Log)
	}
}

func TestParseKeepsDefaults(t *testing.T) {
	c, err := Parse([]byte("[vm]\ninstruction_limit = 5\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.VM.StackSize != 2048 || c.Engine.Strategy != StrategyVM || c.Log.Level != "warning" {
		t.Fatalf("omitted keys should keep defaults: %+v", c)
	}
	if c.VM.InstructionLimit != 5 {
		t.Fatalf("instruction_limit = %d, want 5", c.VM.InstructionLimit)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"[engine]\nstrategy = \"jit\"\n", "engine.strategy"},
		{"[vm]\nstack_size = 0\n", "vm.stack_size"},
		{"[vm]\nstack_size = 2000000\n", "vm.stack_size"},
		{"[vm]\ninstruction_limit = -1\n", "vm.instruction_limit"},
		{"[log]\nlevel = \"loud\"\n", "log.level"},
		{"[vm]\nstacksize = 10\n", "unknown keys: vm.stacksize"},
		{"[vm\n", ""},
	}
	for _, tt := range tests {
		_, err := Parse([]byte(tt.input))
		if err == nil {
			t.Fatalf("%q: expected error", tt.input)
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("%q: expected error mentioning %q, got %v", tt.input, tt.want, err)
		}
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	c := Default()
	c.Engine.Strategy = ""
	c.VM.StackSize = -1
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"engine.strategy", "vm.stack_size"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	if err := os.WriteFile(path, []byte("[engine]\nstrategy = \"eval\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Engine.Strategy != StrategyEval {
		t.Fatalf("strategy = %q, want eval", c.Engine.Strategy)
	}
	if !filepath.IsAbs(c.Path) || filepath.Base(c.Path) != "custom.toml" {
		t.Fatalf("unexpected path %q", c.Path)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil || !strings.Contains(err.Error(), "cannot read") {
		t.Fatalf("expected read error, got %v", err)
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("[vm]\nstack_size = \"big\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "parse error in") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("[vm]\nstack_size = 16\n"), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if c == nil {
		t.Fatalf("expected to find %s in a parent directory", FileName)
	}
	if c.VM.StackSize != 16 {
		t.Fatalf("stack_size = %d, want 16", c.VM.StackSize)
	}
}
