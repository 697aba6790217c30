package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vgtool/pkg/cpu"
	"vgtool/pkg/isa"
)

const squares = `["stmts",
	["func", "square", ["n"], [["return", ["*", "n", "n"]]]],
	["func", "main", [], [
		["var", "i", 0],
		["var", "sq"],
		["while", ["lt", "i", 5], [
			["call_set", "sq", ["square", "i"]],
			["set", "vram[i]", "sq"],
			["set", "i", ["+", "i", 1]]
		]],
		["return", "sq"]
	]]
]`

func writeTree(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "squares.json")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultOutputPath(t *testing.T) {
	if got := defaultOutputPath("dir/squares.json"); got != "dir/squares.prog.json" {
		t.Errorf("got %q", got)
	}
}

func TestBuild(t *testing.T) {
	in := writeTree(t, squares)
	out := defaultOutputPath(in)

	withListing = true
	defer func() { withListing = false }()

	var stderr bytes.Buffer
	if err := build(in, out, &stderr); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stderr.String(), "size (") {
		t.Errorf("stderr = %q", stderr.String())
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	prog, err := isa.ReadJSON(f)
	if err != nil {
		t.Fatal(err)
	}

	vm := cpu.NewCPU(cpu.DefaultConfig())
	if err := vm.Load(prog); err != nil {
		t.Fatal(err)
	}
	if err := vm.Run(); err != nil {
		t.Fatal(err)
	}
	if got := vm.VRAM[:5]; got[0] != 0 || got[2] != 4 || got[4] != 16 {
		t.Errorf("vram = %v", got)
	}

	listing, err := os.ReadFile(filepath.Join(filepath.Dir(out), "squares.prog.lst"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(listing), "call main\nexit\n") {
		t.Errorf("listing:\n%s", listing)
	}
}

func TestCompileAndRun(t *testing.T) {
	var out bytes.Buffer
	cfg := cpu.DefaultConfig()
	cfg.Color = false
	cfg.DumpEvery = 50

	vm, err := compileAndRun(writeTree(t, squares), cfg, &out)
	if err != nil {
		t.Fatal(err)
	}
	if vm.Regs[isa.RegA] != 16 {
		t.Errorf("reg_a = %d, want 16", vm.Regs[isa.RegA])
	}
	if !strings.Contains(out.String(), "---- memory (vram) ----") {
		t.Error("expected cadence dumps")
	}
	if s := summary(vm); !strings.Contains(s, "reg_a=16") || !strings.Contains(s, "sp=39") {
		t.Errorf("summary = %q", s)
	}
}

func TestCompileAndRunFault(t *testing.T) {
	cfg := cpu.DefaultConfig()
	cfg.DumpEvery = 0
	cfg.MaxSteps = 10

	vm, err := compileAndRun(writeTree(t, squares), cfg, nil)
	if !errors.Is(err, cpu.ErrStepLimit) {
		t.Fatalf("error = %v, want step limit", err)
	}
	if vm == nil || vm.Steps != 10 {
		t.Error("machine should be returned for the summary")
	}

	if _, err := compileAndRun(writeTree(t, `["func", "main"]`), cfg, nil); err == nil {
		t.Error("expected a compile error")
	}
}
