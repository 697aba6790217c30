package isa

import (
	"fmt"
	"strings"
)

// Instruction is an opcode with its operands.
type Instruction struct {
	Op   Opcode
	Args []Operand
}

// New builds an instruction.
func New(op Opcode, args ...Operand) Instruction {
	return Instruction{Op: op, Args: args}
}

// Size is the number of program slots the instruction occupies.
func (in Instruction) Size() int { return in.Op.Size() }

// Check reports an operand count that disagrees with the opcode table.
func (in Instruction) Check() error {
	if !in.Op.Valid() {
		return fmt.Errorf("undefined opcode %d", in.Op)
	}
	if len(in.Args) != in.Op.Arity() {
		return fmt.Errorf("%s takes %d operand(s), got %d", in.Op, in.Op.Arity(), len(in.Args))
	}
	return nil
}

// String renders the listing form, e.g. "cp reg_a [bp-1]".
func (in Instruction) String() string {
	var b strings.Builder
	b.WriteString(in.Op.String())
	for _, a := range in.Args {
		b.WriteByte(' ')
		b.WriteString(a.String())
	}
	return b.String()
}

// ParseInstruction parses a mnemonic and its textual operands.
func ParseInstruction(mnemonic string, operands []string) (Instruction, error) {
	op, ok := Lookup(mnemonic)
	if !ok {
		return Instruction{}, fmt.Errorf("unknown opcode %q", mnemonic)
	}
	in := Instruction{Op: op}
	for _, tok := range operands {
		arg, err := ParseArg(op, tok)
		if err != nil {
			return Instruction{}, fmt.Errorf("%s: %w", mnemonic, err)
		}
		in.Args = append(in.Args, arg)
	}
	if err := in.Check(); err != nil {
		return Instruction{}, err
	}
	return in, nil
}
