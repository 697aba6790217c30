package isa

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Slot is one cell of an assembled program: an opcode head or one of its operands.
type Slot struct {
	Head bool
	Op   Opcode
	Arg  Operand
}

// Program is a flat instruction stream; slot indices are addresses.
type Program []Slot

var ErrNotInstruction = errors.New("address is not an instruction head")

// Flatten lays instructions out back to back.
func Flatten(insts []Instruction) Program {
	n := 0
	for _, in := range insts {
		n += in.Size()
	}
	p := make(Program, 0, n)
	for _, in := range insts {
		p = append(p, Slot{Head: true, Op: in.Op})
		for _, a := range in.Args {
			p = append(p, Slot{Arg: a})
		}
	}
	return p
}

// At decodes the instruction whose head is at addr.
func (p Program) At(addr int) (Instruction, error) {
	if addr < 0 || addr >= len(p) || !p[addr].Head {
		return Instruction{}, fmt.Errorf("%w: %d", ErrNotInstruction, addr)
	}
	op := p[addr].Op
	end := addr + op.Size()
	if end > len(p) {
		return Instruction{}, fmt.Errorf("%s at %d: truncated operands", op, addr)
	}
	in := Instruction{Op: op}
	if n := op.Arity(); n > 0 {
		in.Args = make([]Operand, n)
		for i := range in.Args {
			in.Args[i] = p[addr+1+i].Arg
		}
	}
	return in, nil
}

// Placed is an instruction with its address.
type Placed struct {
	Addr int
	Instruction
}

// Walk decodes the program from address 0, sizing each step with the opcode table.
func (p Program) Walk() ([]Placed, error) {
	var out []Placed
	for addr := 0; addr < len(p); {
		in, err := p.At(addr)
		if err != nil {
			return out, err
		}
		out = append(out, Placed{Addr: addr, Instruction: in})
		addr += in.Size()
	}
	return out, nil
}

// Tokens is the interchange form: a flat list of ints and strings.
func (p Program) Tokens() []any {
	toks := make([]any, len(p))
	for i, s := range p {
		if s.Head {
			toks[i] = s.Op.String()
			continue
		}
		toks[i] = s.Arg.Token()
	}
	return toks
}

// DecodeTokens rebuilds a program from interchange tokens. Integer tokens
// may be int, int64, float64 or json.Number.
func DecodeTokens(toks []any) (Program, error) {
	p := make(Program, 0, len(toks))
	for i := 0; i < len(toks); {
		name, ok := toks[i].(string)
		if !ok {
			return nil, fmt.Errorf("token %d: expected opcode, got %v", i, toks[i])
		}
		op, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("token %d: unknown opcode %q", i, name)
		}
		if i+op.Size() > len(toks) {
			return nil, fmt.Errorf("token %d: %s is missing operands", i, op)
		}
		p = append(p, Slot{Head: true, Op: op})
		for j := 1; j <= op.Arity(); j++ {
			arg, err := decodeArg(op, toks[i+j])
			if err != nil {
				return nil, fmt.Errorf("token %d: %w", i+j, err)
			}
			p = append(p, Slot{Arg: arg})
		}
		i += op.Size()
	}
	return p, nil
}

func decodeArg(op Opcode, tok any) (Operand, error) {
	switch v := tok.(type) {
	case string:
		return ParseArg(op, v)
	case int:
		return intArg(op, v), nil
	case int64:
		return intArg(op, int(v)), nil
	case float64:
		if v != float64(int(v)) {
			return Operand{}, fmt.Errorf("%w: non-integer %v", ErrBadOperand, v)
		}
		return intArg(op, int(v)), nil
	case json.Number:
		n, err := strconv.Atoi(v.String())
		if err != nil {
			return Operand{}, fmt.Errorf("%w: %v", ErrBadOperand, err)
		}
		return intArg(op, n), nil
	}
	return Operand{}, fmt.Errorf("%w: %T", ErrBadOperand, tok)
}

func intArg(op Opcode, n int) Operand {
	if op.Info().Class == ArgName {
		return Name(strconv.Itoa(n))
	}
	return Imm(n)
}

// WriteJSON writes the token form as a JSON array.
func (p Program) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(p.Tokens())
}

// ReadJSON reads a program written by WriteJSON.
func ReadJSON(r io.Reader) (Program, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var toks []any
	if err := dec.Decode(&toks); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}
	return DecodeTokens(toks)
}
