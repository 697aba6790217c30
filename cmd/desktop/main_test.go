package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"vgtool/pkg/compiler"
	"vgtool/pkg/cpu"
)

const blink = `["func", "main", [], [
	["set", "vram[0]", 1],
	["set", "vram[26]", 1],
	["return", 3]
]]`

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndStep(t *testing.T) {
	vm, err := loadMachine(zap.NewNop(), writeFile(t, "blink.json", blink), false)
	if err != nil {
		t.Fatal(err)
	}

	g := NewGame(vm, 4, 3)
	g.step(g.stepsPerFrame)
	if vm.Steps != 3 {
		t.Errorf("steps = %d after one frame, want 3", vm.Steps)
	}

	g.step(1000)
	if !vm.Halted || g.err != nil {
		t.Fatalf("halted=%v err=%v", vm.Halted, g.err)
	}
	if vm.VRAM[0] != 1 || vm.VRAM[26] != 1 {
		t.Errorf("vram not drawn: %v", vm.VRAM[:30])
	}

	steps := vm.Steps
	g.step(5)
	if vm.Steps != steps {
		t.Error("halted machine kept stepping")
	}
	if !strings.Contains(g.status(), "halted") || !strings.Contains(g.status(), "reg_a(3)") {
		t.Errorf("status:\n%s", g.status())
	}
}

func TestLoadAssembledProgram(t *testing.T) {
	_, prog, err := compiler.CompileJSON([]byte(blink), nil)
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	if err := prog.WriteJSON(&sb); err != nil {
		t.Fatal(err)
	}

	vm, err := loadMachine(zap.NewNop(), writeFile(t, "blink.prog.json", sb.String()), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(vm.Program()) != len(prog) {
		t.Errorf("loaded %d words, want %d", len(vm.Program()), len(prog))
	}

	if _, err := loadMachine(zap.NewNop(), writeFile(t, "tree.json", blink), true); err == nil {
		t.Error("a source tree is not a valid assembled program")
	}
}

func TestStatusFault(t *testing.T) {
	vm, err := loadMachine(zap.NewNop(), writeFile(t, "bad.json", `["func", "main", [], [["set", "vram[99]", 1]]]`), false)
	if err != nil {
		t.Fatal(err)
	}
	g := NewGame(vm, 1, 100)
	g.step(100)
	if g.err == nil {
		t.Fatal("expected a vram fault")
	}
	if !strings.Contains(g.status(), "vram") {
		t.Errorf("status should name the fault:\n%s", g.status())
	}
}

func TestLayout(t *testing.T) {
	g := NewGame(cpu.NewCPU(cpu.DefaultConfig()), 10, 1)
	w, h := g.Layout(0, 0)
	if w != 320 || h != 5*10+3*margin+statusHeight {
		t.Errorf("layout = %dx%d", w, h)
	}

	// two 5x5 panels with a one-cell gap
	g = NewGame(cpu.NewCPU(cpu.DefaultConfig()), 40, 1)
	w, h = g.Layout(0, 0)
	if w != 11*40+2*margin || h != 5*40+3*margin+statusHeight {
		t.Errorf("layout = %dx%d", w, h)
	}
}
