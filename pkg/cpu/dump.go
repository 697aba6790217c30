package cpu

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/logrusorgru/aurora"

	"vgtool/pkg/grid"
	"vgtool/pkg/isa"
)

const (
	DefaultProgramWindow = 30
	DefaultStackWindow   = 8
)

// Dumper renders the machine state as text: registers and flags, the program
// around pc, the live part of the stack and the vram panels.
type Dumper struct {
	w  io.Writer
	au aurora.Aurora

	ProgramWindow int // addresses shown on each side of pc
	StackWindow   int // slots shown below sp and above bp
}

func NewDumper(w io.Writer, color bool) *Dumper {
	return &Dumper{
		w:             w,
		au:            aurora.NewAurora(color),
		ProgramWindow: DefaultProgramWindow,
		StackWindow:   DefaultStackWindow,
	}
}

// Trace lets a Dumper be installed as the machine's tracer.
func (d *Dumper) Trace(c *CPU) error { return d.Dump(c) }

func (d *Dumper) Dump(c *CPU) error {
	bw := bufio.NewWriter(d.w)
	fmt.Fprintln(bw, "================================")
	fmt.Fprintf(bw, "%d: %s zf(%d) cf(%d)\n", c.Steps, registers(c), b2i(c.ZF), b2i(c.CF))
	fmt.Fprintf(bw, "---- memory ---- pc(%d)\n", c.PC)
	d.program(bw, c)
	fmt.Fprintf(bw, "---- memory (stack) ---- sp(%d) bp(%d)\n", c.SP, c.BP)
	d.stack(bw, c)
	fmt.Fprintln(bw, "---- memory (vram) ----")
	vram(bw, c)
	return bw.Flush()
}

func registers(c *CPU) string {
	parts := make([]string, isa.NumRegisters)
	for i, v := range c.Regs {
		parts[i] = fmt.Sprintf("%s(%d)", isa.Register(i), v)
	}
	return strings.Join(parts, " ")
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (d *Dumper) program(w io.Writer, c *CPU) {
	placed, err := c.prog.Walk()
	for _, p := range placed {
		if p.Addr < c.PC-d.ProgramWindow || p.Addr > c.PC+d.ProgramWindow {
			continue
		}
		head := "     "
		if p.Addr == c.PC {
			head = "pc =>"
		}
		indent := "  "
		if p.Op == isa.OpLabel {
			indent = ""
		}
		line := fmt.Sprintf("%s %02d %s%s", head, p.Addr, indent, p.Instruction)

		switch {
		case p.Addr == c.PC:
			fmt.Fprintln(w, d.au.Bold(line))
		case p.Op == isa.OpDebug:
			fmt.Fprintln(w, d.au.Blue(line))
		case p.Op.IsBranch() || p.Op == isa.OpRet:
			fmt.Fprintln(w, d.au.Red(line))
		case p.Op == isa.OpLabel:
			fmt.Fprintln(w, d.au.Magenta(line))
		default:
			fmt.Fprintln(w, line)
		}
	}
	if err != nil {
		fmt.Fprintln(w, d.au.Red(fmt.Sprintf("      %v", err)))
	}
}

func (d *Dumper) stack(w io.Writer, c *CPU) {
	for i, v := range c.Stack {
		if i < c.SP-d.StackWindow || i > c.BP+d.StackWindow {
			continue
		}
		var head string
		switch {
		case i == c.SP && i == c.BP:
			head = "sp bp => "
		case i == c.SP:
			head = "sp    => "
		case i == c.BP:
			head = "   bp => "
		default:
			head = "         "
		}
		line := fmt.Sprintf("%s%d %d", head, i, v)
		if i == c.SP || i == c.BP {
			fmt.Fprintln(w, d.au.Cyan(line))
			continue
		}
		fmt.Fprintln(w, line)
	}
}

// vram draws each panel as rows of '@' (lit) and '.' cells, panels side by side.
func vram(w io.Writer, c *CPU) {
	panels := grid.Panels(len(c.VRAM), PanelCols, PanelRows)
	if panels == 0 {
		return
	}
	width := panels*(PanelCols+1) - 1
	rows := make([][]byte, PanelRows)
	for y := range rows {
		rows[y] = []byte(strings.Repeat(" ", width))
	}
	for i, v := range c.VRAM {
		panel, x, y := grid.PanelCoords(i, PanelCols, PanelRows)
		ch := byte('.')
		if Lit(v) {
			ch = '@'
		}
		rows[y][panel*(PanelCols+1)+x] = ch
	}
	for _, r := range rows {
		fmt.Fprintln(w, strings.TrimRight(string(r), " "))
	}
}
