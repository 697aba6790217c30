package isa

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Register names one of the four general registers.
type Register uint8

const (
	RegA Register = iota
	RegB
	RegC
	RegD
)

// NumRegisters is the size of the register file.
const NumRegisters = 4

var registerNames = [NumRegisters]string{"reg_a", "reg_b", "reg_c", "reg_d"}

func (r Register) String() string {
	if int(r) < len(registerNames) {
		return registerNames[r]
	}
	return fmt.Sprintf("reg(%d)", uint8(r))
}

// Kind is the addressing form of an operand.
type Kind uint8

const (
	KindNone  Kind = iota
	KindImm        // integer literal or resolved address
	KindReg        // reg_a .. reg_d
	KindSP         // sp
	KindBP         // bp
	KindFrame      // [bp+N] / [bp-N]
	KindVRAM       // vram[N]
	KindLabel      // branch target by name, before assembly
	KindName       // label marker name or debug text
)

// Operand is a decoded operand. Only the fields matching Kind are meaningful:
// N holds the immediate, the frame offset or the vram index.
type Operand struct {
	Kind Kind
	N    int
	Reg  Register
	Name string
}

var ErrBadOperand = errors.New("malformed operand")

func Imm(n int) Operand            { return Operand{Kind: KindImm, N: n} }
func Reg(r Register) Operand       { return Operand{Kind: KindReg, Reg: r} }
func SP() Operand                  { return Operand{Kind: KindSP} }
func BP() Operand                  { return Operand{Kind: KindBP} }
func Frame(offset int) Operand     { return Operand{Kind: KindFrame, N: offset} }
func VRAM(index int) Operand       { return Operand{Kind: KindVRAM, N: index} }
func LabelRef(name string) Operand { return Operand{Kind: KindLabel, Name: name} }
func Name(text string) Operand     { return Operand{Kind: KindName, Name: text} }

// Local addresses the 1-based local slot below the base pointer.
func Local(index int) Operand { return Frame(-(index + 1)) }

// Param addresses the 0-based argument above the saved bp and return address.
func Param(index int) Operand { return Frame(index + 2) }

func (o Operand) String() string {
	switch o.Kind {
	case KindImm:
		return strconv.Itoa(o.N)
	case KindReg:
		return o.Reg.String()
	case KindSP:
		return "sp"
	case KindBP:
		return "bp"
	case KindFrame:
		if o.N < 0 {
			return fmt.Sprintf("[bp-%d]", -o.N)
		}
		return fmt.Sprintf("[bp+%d]", o.N)
	case KindVRAM:
		return fmt.Sprintf("vram[%d]", o.N)
	case KindLabel, KindName:
		return o.Name
	}
	return "<none>"
}

// Token is the interchange form: an int for immediates, a string otherwise.
func (o Operand) Token() any {
	if o.Kind == KindImm {
		return o.N
	}
	return o.String()
}

// ParseValue parses a value-class operand token.
func ParseValue(tok string) (Operand, error) {
	if n, err := strconv.Atoi(tok); err == nil {
		return Imm(n), nil
	}
	switch tok {
	case "sp":
		return SP(), nil
	case "bp":
		return BP(), nil
	}
	for i, name := range registerNames {
		if tok == name {
			return Reg(Register(i)), nil
		}
	}
	if inner, ok := cut(tok, "[bp", "]"); ok && len(inner) > 1 {
		n, err := strconv.Atoi(inner[1:])
		if err == nil && n >= 0 {
			switch inner[0] {
			case '+':
				return Frame(n), nil
			case '-':
				return Frame(-n), nil
			}
		}
	}
	if inner, ok := cut(tok, "vram[", "]"); ok {
		if n, err := strconv.Atoi(inner); err == nil && n >= 0 {
			return VRAM(n), nil
		}
	}
	return Operand{}, fmt.Errorf("%w: %q", ErrBadOperand, tok)
}

// ParseArg parses the textual operand tok for opcode op according to the
// opcode's argument class.
func ParseArg(op Opcode, tok string) (Operand, error) {
	switch op.Info().Class {
	case ArgTarget:
		if n, err := strconv.Atoi(tok); err == nil {
			return Imm(n), nil
		}
		if tok == "" {
			return Operand{}, fmt.Errorf("%w: empty target", ErrBadOperand)
		}
		return LabelRef(tok), nil
	case ArgName:
		return Name(tok), nil
	}
	return ParseValue(tok)
}

func cut(s, prefix, suffix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, suffix) || len(s) < len(prefix)+len(suffix) {
		return "", false
	}
	return s[len(prefix) : len(s)-len(suffix)], true
}
