package compiler

import (
	"fmt"

	"go.uber.org/zap"

	"vgtool/pkg/asm"
	"vgtool/pkg/isa"
)

// Compile lowers tree and assembles the result. It returns the symbolic
// listing alongside the program so callers can print either.
func Compile(tree *Node, log *zap.Logger) ([]isa.Instruction, isa.Program, error) {
	insts, err := NewCodeGen(log).Generate(tree)
	if err != nil {
		return nil, nil, err
	}
	prog, err := asm.NewAssembler(log).Assemble(insts)
	if err != nil {
		return insts, nil, fmt.Errorf("assembly error: %w", err)
	}
	return insts, prog, nil
}

// CompileJSON is Compile over the JSON form of a source tree.
func CompileJSON(src []byte, log *zap.Logger) ([]isa.Instruction, isa.Program, error) {
	tree, err := ParseTree(src)
	if err != nil {
		return nil, nil, err
	}
	return Compile(tree, log)
}
