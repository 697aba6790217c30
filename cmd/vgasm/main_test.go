package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"vgtool/pkg/asm"
	"vgtool/pkg/isa"
)

func TestAssemble(t *testing.T) {
	var stdout, stderr bytes.Buffer
	src := strings.NewReader("call main\nexit\nlabel main\nret\n")
	if err := assemble(zap.NewNop(), "-", src, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	if got, want := stdout.String(), `["call",5,"exit","label","main","ret"]`+"\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
	if got := stderr.String(); got != "size (6)\n" {
		t.Errorf("stderr = %q", got)
	}

	prog, err := isa.ReadJSON(&stdout)
	if err != nil {
		t.Fatal(err)
	}
	if len(prog) != 6 {
		t.Errorf("decoded program has %d words", len(prog))
	}
}

func TestAssembleLabels(t *testing.T) {
	showLabels = true
	defer func() { showLabels = false }()

	var stdout, stderr bytes.Buffer
	src := strings.NewReader("label b\nlabel a\nnoop\nlabel c\n")
	if err := assemble(zap.NewNop(), "-", src, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	want := "size (7)\n   0 b\n   2 a\n   5 c\n"
	if stderr.String() != want {
		t.Errorf("stderr = %q, want %q", stderr.String(), want)
	}
}

func TestAssembleErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := assemble(zap.NewNop(), "-", strings.NewReader("jump nowhere\n"), &stdout, &stderr)
	if !errors.Is(err, asm.ErrUndefinedLabel) {
		t.Errorf("error = %v, want undefined label", err)
	}
	if stdout.Len() != 0 || stderr.Len() != 0 {
		t.Errorf("output on error: %q %q", stdout.String(), stderr.String())
	}

	if err := assemble(zap.NewNop(), "-", strings.NewReader("bogus_op 1\n"), &stdout, &stderr); err == nil {
		t.Error("expected an error for an unknown mnemonic")
	}
}
