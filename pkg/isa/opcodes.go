// Package isa is the vocabulary shared by the code generator, the assembler
// and the virtual CPU: opcodes, operands, instructions and flat programs.
//
// The opcode table in this file is the only place operand counts are
// written down. The assembler sizes instructions with it, the CPU advances
// its program counter with it, and the dump renderer walks programs with it.
package isa

import "fmt"

// Opcode identifies an instruction's operation.
type Opcode uint8

const (
	OpNoop Opcode = iota
	OpSetRegA
	OpSetRegB
	OpSetRegD
	OpSetVRAM
	OpGetVRAM
	OpLabel
	OpJump
	OpCompare
	OpJumpEq
	OpJumpAbove
	OpJumpBelow
	OpExit
	OpCall
	OpRet
	OpPush
	OpPop
	OpCp
	OpAddAB
	OpSubAB
	OpMultAB
	OpAdd
	OpSub
	OpDebug

	numOpcodes
)

// ArgClass tells decoders how to read an opcode's operands.
type ArgClass uint8

const (
	// ArgValue operands are immediates, registers, sp/bp, frame slots or vram cells.
	ArgValue ArgClass = iota
	// ArgTarget operands name a label before assembly and hold an address after.
	ArgTarget
	// ArgName operands are free symbolic text (label markers, debug tags).
	ArgName
)

// Info describes one opcode.
type Info struct {
	Mnemonic string
	Arity    int
	Class    ArgClass
}

var table = [numOpcodes]Info{
	OpNoop:      {"noop", 0, ArgValue},
	OpSetRegA:   {"set_reg_a", 1, ArgValue},
	OpSetRegB:   {"set_reg_b", 1, ArgValue},
	OpSetRegD:   {"set_reg_d", 1, ArgValue},
	OpSetVRAM:   {"set_vram", 2, ArgValue},
	OpGetVRAM:   {"get_vram", 2, ArgValue},
	OpLabel:     {"label", 1, ArgName},
	OpJump:      {"jump", 1, ArgTarget},
	OpCompare:   {"compare_v2", 0, ArgValue},
	OpJumpEq:    {"jump_eq", 1, ArgTarget},
	OpJumpAbove: {"jump_above", 1, ArgTarget},
	OpJumpBelow: {"jump_below", 1, ArgTarget},
	OpExit:      {"exit", 0, ArgValue},
	OpCall:      {"call", 1, ArgTarget},
	OpRet:       {"ret", 0, ArgValue},
	OpPush:      {"push", 1, ArgValue},
	OpPop:       {"pop", 1, ArgValue},
	OpCp:        {"cp", 2, ArgValue},
	OpAddAB:     {"add_ab_v2", 0, ArgValue},
	OpSubAB:     {"sub_ab", 0, ArgValue},
	OpMultAB:    {"mult_ab", 0, ArgValue},
	OpAdd:       {"add", 2, ArgValue},
	OpSub:       {"sub", 2, ArgValue},
	OpDebug:     {"_debug", 1, ArgName},
}

var byMnemonic = func() map[string]Opcode {
	m := make(map[string]Opcode, len(table))
	for op, info := range table {
		m[info.Mnemonic] = Opcode(op)
	}
	return m
}()

// Lookup returns the opcode for a mnemonic.
func Lookup(mnemonic string) (Opcode, bool) {
	op, ok := byMnemonic[mnemonic]
	return op, ok
}

// Opcodes lists every defined opcode in table order.
func Opcodes() []Opcode {
	ops := make([]Opcode, numOpcodes)
	for i := range ops {
		ops[i] = Opcode(i)
	}
	return ops
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool { return op < numOpcodes }

// Info returns the table entry for op. It panics on an undefined opcode.
func (op Opcode) Info() Info {
	if !op.Valid() {
		panic(fmt.Sprintf("isa: undefined opcode %d", op))
	}
	return table[op]
}

// Arity is the number of operand slots following op.
func (op Opcode) Arity() int { return op.Info().Arity }

// Size is the number of program slots op occupies: its head plus operands.
func (op Opcode) Size() int { return 1 + op.Arity() }

// IsBranch reports whether op's operand is a jump or call target.
func (op Opcode) IsBranch() bool { return op.Info().Class == ArgTarget }

func (op Opcode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("opcode(%d)", uint8(op))
	}
	return table[op].Mnemonic
}
