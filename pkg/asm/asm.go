// Package asm resolves symbolic labels in an instruction stream to absolute
// program addresses.
package asm

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"vgtool/pkg/isa"
)

var (
	ErrUndefinedLabel = errors.New("undefined label")
	ErrDuplicateLabel = errors.New("duplicate label")
	ErrOperandCount   = errors.New("operand count mismatch")
)

// AssembleError reports the instruction that could not be assembled.
type AssembleError struct {
	Index int // position in the input instruction list
	Inst  isa.Instruction
	Label string
	Err   error
}

func (e *AssembleError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("assemble: instruction %d (%s): %v %q", e.Index, e.Inst, e.Err, e.Label)
	}
	return fmt.Sprintf("assemble: instruction %d (%s): %v", e.Index, e.Inst, e.Err)
}

func (e *AssembleError) Unwrap() error { return e.Err }

type Assembler struct {
	labels map[string]int
	log    *zap.Logger
}

func NewAssembler(log *zap.Logger) *Assembler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{
		labels: make(map[string]int),
		log:    log,
	}
}

// Assemble runs both passes with a fresh assembler.
func Assemble(insts []isa.Instruction) (isa.Program, error) {
	return NewAssembler(nil).Assemble(insts)
}

func (a *Assembler) Assemble(insts []isa.Instruction) (isa.Program, error) {
	if err := a.pass1(insts); err != nil {
		return nil, err
	}
	resolved, err := a.pass2(insts)
	if err != nil {
		return nil, err
	}
	p := isa.Flatten(resolved)
	a.log.Debug("assembled",
		zap.Int("instructions", len(insts)),
		zap.Int("labels", len(a.labels)),
		zap.Int("size", len(p)))
	return p, nil
}

// Labels returns the label table built by the last Assemble call.
func (a *Assembler) Labels() map[string]int {
	out := make(map[string]int, len(a.labels))
	for k, v := range a.labels {
		out[k] = v
	}
	return out
}

// pass1 records the address of every label marker. The counter advances by
// each instruction's table size, the same amount the CPU steps its pc by.
func (a *Assembler) pass1(insts []isa.Instruction) error {
	a.labels = make(map[string]int)
	address := 0

	for i, in := range insts {
		if err := in.Check(); err != nil {
			return &AssembleError{Index: i, Inst: in, Err: fmt.Errorf("%w: %v", ErrOperandCount, err)}
		}
		if in.Op == isa.OpLabel {
			name := in.Args[0].Name
			if _, exists := a.labels[name]; exists {
				return &AssembleError{Index: i, Inst: in, Label: name, Err: ErrDuplicateLabel}
			}
			a.labels[name] = address
		}
		address += in.Size()
	}
	return nil
}

// pass2 rewrites branch targets to the first instruction after the label marker.
func (a *Assembler) pass2(insts []isa.Instruction) ([]isa.Instruction, error) {
	out := make([]isa.Instruction, len(insts))

	for i, in := range insts {
		if !in.Op.IsBranch() {
			for _, arg := range in.Args {
				if arg.Kind == isa.KindLabel {
					return nil, &AssembleError{Index: i, Inst: in, Label: arg.Name, Err: isa.ErrBadOperand}
				}
			}
			out[i] = in
			continue
		}

		target := in.Args[0]
		if target.Kind == isa.KindLabel {
			addr, ok := a.labels[target.Name]
			if !ok {
				return nil, &AssembleError{Index: i, Inst: in, Label: target.Name, Err: ErrUndefinedLabel}
			}
			target = isa.Imm(addr + isa.OpLabel.Size())
		}
		out[i] = isa.New(in.Op, target)
	}
	return out, nil
}
