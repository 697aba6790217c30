package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vgtool/pkg/compiler"
	"vgtool/pkg/cpu"
	"vgtool/pkg/isa"
	"vgtool/pkg/logging"
	"vgtool/pkg/utils"
)

const (
	margin       = 8
	statusHeight = 64
)

type Game struct {
	vm            *cpu.CPU
	scale         int
	stepsPerFrame int
	paused        bool
	err           error
	canvas        *ebiten.Image // reused vram bitmap
}

func NewGame(vm *cpu.CPU, scale, stepsPerFrame int) *Game {
	if scale < 1 {
		scale = 1
	}
	if stepsPerFrame < 1 {
		stepsPerFrame = 1
	}
	return &Game{vm: vm, scale: scale, stepsPerFrame: stepsPerFrame}
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if g.paused {
		if inpututil.IsKeyJustPressed(ebiten.KeyN) {
			g.step(1)
		}
		return nil
	}
	g.step(g.stepsPerFrame)
	return nil
}

// step runs up to n instructions, stopping at exit or the first fault.
func (g *Game) step(n int) {
	for i := 0; i < n && !g.vm.Halted && g.err == nil; i++ {
		g.err = g.vm.Step()
	}
}

func (g *Game) status() string {
	state := "running  [space] pause"
	switch {
	case g.err != nil:
		state = g.err.Error()
	case g.vm.Halted:
		state = "halted"
	case g.paused:
		state = "paused  [space] run  [n] step"
	}

	regs := make([]string, isa.NumRegisters)
	for i, v := range g.vm.Regs {
		regs[i] = fmt.Sprintf("%s(%d)", isa.Register(i), v)
	}
	zf, cf := 0, 0
	if g.vm.ZF {
		zf = 1
	}
	if g.vm.CF {
		cf = 1
	}
	return fmt.Sprintf("step %d  pc(%d) sp(%d) bp(%d)\n%s\nzf(%d) cf(%d)\n%s",
		g.vm.Steps, g.vm.PC, g.vm.SP, g.vm.BP, strings.Join(regs, " "), zf, cf, state)
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(cpu.BackgroundColor)

	img := g.vm.VRAMImage(g.scale)
	if g.canvas == nil {
		g.canvas = ebiten.NewImage(img.Bounds().Dx(), img.Bounds().Dy())
	}
	g.canvas.WritePixels(img.Pix)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(margin, margin)
	screen.DrawImage(g.canvas, op)

	_, h := g.vm.VRAMImageSize(g.scale)
	ebitenutil.DebugPrintAt(screen, g.status(), margin, 2*margin+h)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	w, h := g.vm.VRAMImageSize(g.scale)
	// wide enough for the register line
	w = max(w+2*margin, 320)
	return w, h + 3*margin + statusHeight
}

// loadMachine builds a machine from a source tree, or from an assembled
// program when assembled is set.
func loadMachine(log *zap.Logger, path string, assembled bool) (*cpu.CPU, error) {
	data, err := utils.ReadInput(path, os.Stdin)
	if err != nil {
		return nil, err
	}

	var prog isa.Program
	if assembled {
		prog, err = isa.ReadJSON(bytes.NewReader(data))
	} else {
		_, prog, err = compiler.CompileJSON(data, log)
	}
	if err != nil {
		return nil, err
	}

	cfg := cpu.ConfigFromEnv()
	cfg.DumpEvery = 0
	vm := cpu.NewCPU(cfg)
	vm.Log = log
	if err := vm.Load(prog); err != nil {
		return nil, err
	}
	return vm, nil
}

var (
	assembled bool
	scale     int
	speed     int
	paused    bool
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "desktop <tree.json>",
	Short: "Watch a program draw into vram",
	Long: `desktop compiles a source tree (or loads an assembled program with
--program) and runs it in a window that shows the vram panels, registers
and flags. Space pauses, n steps once while paused, escape quits.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New("desktop", verbose)
		defer log.Sync()

		vm, err := loadMachine(log, args[0], assembled)
		if err != nil {
			return err
		}
		game := NewGame(vm, scale, speed)
		game.paused = paused

		w, h := game.Layout(0, 0)
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
		ebiten.SetWindowSize(w*2, h*2)
		ebiten.SetWindowTitle("vgtool vram")
		if err := ebiten.RunGame(game); err != nil {
			return err
		}
		log.Info("closed", zap.Int("steps", vm.Steps), zap.Bool("halted", vm.Halted))
		return game.err
	},
}

func init() {
	rootCmd.Flags().BoolVar(&assembled, "program", false, "the input is an assembled program, not a source tree")
	rootCmd.Flags().IntVar(&scale, "scale", 16, "pixels per vram cell")
	rootCmd.Flags().IntVar(&speed, "speed", 2, "instructions per frame")
	rootCmd.Flags().BoolVar(&paused, "paused", false, "start paused")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "desktop:", err)
		os.Exit(1)
	}
}
