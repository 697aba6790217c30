// Package cpu executes assembled programs on a small stack machine: four
// registers, two comparison flags, a downward-growing stack addressed through
// sp and bp, and a vram array.
package cpu

import (
	"fmt"

	"go.uber.org/zap"

	"vgtool/pkg/isa"
)

// noOp marks a fault raised before an instruction could be fetched.
const noOp = isa.Opcode(0xFF)

type CPU struct {
	PC   int
	Regs [isa.NumRegisters]int

	ZF bool
	CF bool

	// SP and BP index Stack. Both start at the top slot and the stack grows
	// toward index 0.
	SP int
	BP int

	Stack []int
	VRAM  []int

	Steps  int
	Halted bool

	// MaxSteps stops a run with ErrStepLimit; 0 means no limit.
	MaxSteps int

	// Tracer, if set, is called after every TraceEvery executed steps.
	Tracer     Tracer
	TraceEvery int

	Log *zap.Logger

	prog isa.Program
}

// NewCPU creates a machine sized by cfg.
func NewCPU(cfg Config) *CPU {
	cfg = cfg.withDefaults()
	c := &CPU{
		Stack:      make([]int, cfg.StackSize),
		VRAM:       make([]int, cfg.VRAMSize),
		MaxSteps:   cfg.MaxSteps,
		TraceEvery: cfg.DumpEvery,
		Log:        zap.NewNop(),
	}
	c.Reset()
	return c
}

// Reset clears all machine state but keeps the loaded program.
func (c *CPU) Reset() {
	c.PC = 0
	c.Regs = [isa.NumRegisters]int{}
	c.ZF, c.CF = false, false
	clear(c.Stack)
	clear(c.VRAM)
	c.SP = len(c.Stack) - 1
	c.BP = len(c.Stack) - 1
	c.Steps = 0
	c.Halted = false
}

// Load installs prog and resets the machine. Every instruction head must
// name a known opcode.
func (c *CPU) Load(prog isa.Program) error {
	for addr, s := range prog {
		if s.Head && !s.Op.Valid() {
			return &Fault{PC: addr, Op: noOp, Err: fmt.Errorf("%w: %d", ErrUnknownOpcode, s.Op), State: c.Snapshot()}
		}
	}
	if _, err := prog.Walk(); err != nil {
		return &Fault{PC: 0, Op: noOp, Err: fmt.Errorf("%w: %v", ErrBadAddress, err), State: c.Snapshot()}
	}
	c.prog = prog
	c.Reset()
	return nil
}

// Program returns the loaded program.
func (c *CPU) Program() isa.Program { return c.prog }

// StackSize is the stack capacity in slots.
func (c *CPU) StackSize() int { return len(c.Stack) }

func (c *CPU) fault(op isa.Opcode, err error) *Fault {
	return &Fault{PC: c.PC, Op: op, Step: c.Steps, Err: err, State: c.Snapshot()}
}

// Step fetches and executes one instruction.
func (c *CPU) Step() error {
	if c.Halted {
		return nil
	}
	if c.prog == nil {
		return c.fault(noOp, ErrNoProgram)
	}
	if c.MaxSteps > 0 && c.Steps >= c.MaxSteps {
		return c.fault(noOp, ErrStepLimit)
	}

	in, err := c.prog.At(c.PC)
	if err != nil {
		return c.fault(noOp, fmt.Errorf("%w: %v", ErrBadAddress, err))
	}

	c.Steps++
	if err := c.exec(in); err != nil {
		return c.fault(in.Op, err)
	}

	if c.Tracer != nil && c.TraceEvery > 0 && c.Steps%c.TraceEvery == 0 {
		return c.Tracer.Trace(c)
	}
	return nil
}

// Run steps until the program exits or a fault occurs.
func (c *CPU) Run() error {
	for !c.Halted {
		if err := c.Step(); err != nil {
			c.Log.Debug("run stopped", zap.Int("pc", c.PC), zap.Int("steps", c.Steps), zap.Error(err))
			return err
		}
	}
	c.Log.Info("halted", zap.Int("steps", c.Steps), zap.Int("reg_a", c.Regs[isa.RegA]))
	return nil
}

func (c *CPU) exec(in isa.Instruction) error {
	next := c.PC + in.Size()
	a := in.Args

	switch in.Op {
	case isa.OpNoop, isa.OpLabel, isa.OpDebug:

	case isa.OpSetRegA, isa.OpSetRegD:
		v, err := c.read(a[0])
		if err != nil {
			return err
		}
		if in.Op == isa.OpSetRegA {
			c.Regs[isa.RegA] = v
		} else {
			c.Regs[isa.RegD] = v
		}

	case isa.OpSetRegB:
		if a[0].Kind != isa.KindImm {
			return fmt.Errorf("%w: set_reg_b takes an immediate, got %s", ErrBadOperand, a[0])
		}
		c.Regs[isa.RegB] = a[0].N

	case isa.OpSetVRAM:
		idx, err := c.read(a[0])
		if err != nil {
			return err
		}
		v, err := c.read(a[1])
		if err != nil {
			return err
		}
		if err := c.checkVRAM(idx); err != nil {
			return err
		}
		c.VRAM[idx] = v

	case isa.OpGetVRAM:
		if a[1].Kind != isa.KindReg || a[1].Reg != isa.RegA {
			return fmt.Errorf("%w: get_vram writes reg_a only, got %s", ErrBadOperand, a[1])
		}
		idx, err := c.read(a[0])
		if err != nil {
			return err
		}
		if err := c.checkVRAM(idx); err != nil {
			return err
		}
		c.Regs[isa.RegA] = c.VRAM[idx]

	case isa.OpCompare:
		delta := c.Regs[isa.RegB] - c.Regs[isa.RegA]
		c.CF = delta < 0
		c.ZF = delta == 0

	case isa.OpJump, isa.OpJumpEq, isa.OpJumpAbove, isa.OpJumpBelow:
		target, err := branchTarget(a[0])
		if err != nil {
			return err
		}
		if c.taken(in.Op) {
			next = target
		}

	case isa.OpCall:
		target, err := branchTarget(a[0])
		if err != nil {
			return err
		}
		if err := c.push(next); err != nil {
			return err
		}
		next = target

	case isa.OpRet:
		v, err := c.pop()
		if err != nil {
			return err
		}
		next = v

	case isa.OpExit:
		c.Halted = true

	case isa.OpPush:
		v, err := c.read(a[0])
		if err != nil {
			return err
		}
		if err := c.push(v); err != nil {
			return err
		}

	case isa.OpPop:
		if a[0].Kind != isa.KindBP {
			return fmt.Errorf("%w: pop restores bp only, got %s", ErrBadOperand, a[0])
		}
		v, err := c.pop()
		if err != nil {
			return err
		}
		c.BP = v

	case isa.OpCp:
		v, err := c.read(a[0])
		if err != nil {
			return err
		}
		if err := c.write(a[1], v); err != nil {
			return err
		}

	case isa.OpAddAB:
		c.Regs[isa.RegA] += c.Regs[isa.RegB]
	case isa.OpSubAB:
		c.Regs[isa.RegA] -= c.Regs[isa.RegB]
	case isa.OpMultAB:
		c.Regs[isa.RegA] *= c.Regs[isa.RegB]

	case isa.OpAdd, isa.OpSub:
		if a[0].Kind != isa.KindSP || a[1].Kind != isa.KindImm {
			return fmt.Errorf("%w: %s wants sp and an immediate", ErrBadOperand, in.Op)
		}
		n := a[1].N
		if in.Op == isa.OpSub {
			n = -n
		}
		if err := c.setSP(c.SP + n); err != nil {
			return err
		}

	default:
		return fmt.Errorf("%w: %d", ErrUnknownOpcode, in.Op)
	}

	c.PC = next
	return nil
}

func (c *CPU) taken(op isa.Opcode) bool {
	switch op {
	case isa.OpJumpEq:
		return c.ZF
	case isa.OpJumpAbove:
		return !c.CF && !c.ZF
	case isa.OpJumpBelow:
		return c.CF
	}
	return true
}

func branchTarget(o isa.Operand) (int, error) {
	if o.Kind != isa.KindImm {
		return 0, fmt.Errorf("%w: unresolved branch target %s", ErrBadOperand, o)
	}
	return o.N, nil
}

func (c *CPU) setSP(n int) error {
	switch {
	case n < 0:
		return fmt.Errorf("%w: sp %d", ErrStackOverflow, n)
	case n > len(c.Stack)-1:
		return fmt.Errorf("%w: sp %d", ErrStackUnderflow, n)
	}
	c.SP = n
	return nil
}

// push writes below sp then moves sp down. Nothing is written when the move
// would overflow.
func (c *CPU) push(v int) error {
	if err := c.setSP(c.SP - 1); err != nil {
		return err
	}
	c.Stack[c.SP] = v
	return nil
}

func (c *CPU) pop() (int, error) {
	v := c.Stack[c.SP]
	if err := c.setSP(c.SP + 1); err != nil {
		return 0, err
	}
	return v, nil
}

func (c *CPU) frameIndex(o isa.Operand) (int, error) {
	i := c.BP + o.N
	if i < 0 || i >= len(c.Stack) {
		return 0, fmt.Errorf("%w: %s with bp %d", ErrStackBounds, o, c.BP)
	}
	return i, nil
}

func (c *CPU) checkVRAM(i int) error {
	if i < 0 || i >= len(c.VRAM) {
		return fmt.Errorf("%w: %d", ErrVRAMBounds, i)
	}
	return nil
}

func (c *CPU) read(o isa.Operand) (int, error) {
	switch o.Kind {
	case isa.KindImm:
		return o.N, nil
	case isa.KindReg:
		return c.Regs[o.Reg], nil
	case isa.KindSP:
		return c.SP, nil
	case isa.KindBP:
		return c.BP, nil
	case isa.KindFrame:
		i, err := c.frameIndex(o)
		if err != nil {
			return 0, err
		}
		return c.Stack[i], nil
	case isa.KindVRAM:
		if err := c.checkVRAM(o.N); err != nil {
			return 0, err
		}
		return c.VRAM[o.N], nil
	}
	return 0, fmt.Errorf("%w: cannot read %s", ErrBadOperand, o)
}

func (c *CPU) write(o isa.Operand, v int) error {
	switch o.Kind {
	case isa.KindReg:
		c.Regs[o.Reg] = v
	case isa.KindSP:
		return c.setSP(v)
	case isa.KindBP:
		c.BP = v
	case isa.KindFrame:
		i, err := c.frameIndex(o)
		if err != nil {
			return err
		}
		c.Stack[i] = v
	case isa.KindVRAM:
		if err := c.checkVRAM(o.N); err != nil {
			return err
		}
		c.VRAM[o.N] = v
	default:
		return fmt.Errorf("%w: cannot write %s", ErrBadOperand, o)
	}
	return nil
}
