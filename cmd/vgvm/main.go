package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vgtool/pkg/cpu"
	"vgtool/pkg/isa"
	"vgtool/pkg/logging"
	"vgtool/pkg/utils"
)

type options struct {
	every      int
	maxSteps   int
	stackSize  int
	vramSize   int
	color      bool
	pause      bool
	quiet      bool
	snapshot   string
	hibernate  string
	resume     string
	screenshot string
	scale      int
}

var (
	opts    options
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "vgvm [program.json]",
	Short: "Run an assembled program on the stack machine",
	Long: `vgvm loads a program written by vgasm and runs it until exit or a fault.
The machine state is dumped before the first step and every --every steps.
With --pause the run stops at each dump and waits for the operator:
enter steps on, "c" continues without pausing, "q" quits.

Defaults for the machine size and dump cadence come from VGVM_STACK_SIZE,
VGVM_VRAM_SIZE, VGVM_DUMP_EVERY, VGVM_MAX_STEPS and VGVM_COLOR.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New("vgvm", verbose)
		defer log.Sync()

		in := utils.Stdin
		if len(args) == 1 {
			in = args[0]
		}
		var p *pauser
		if opts.pause {
			p = newPauser()
			defer p.Close()
		}
		return runVM(log, opts, p, in, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	env := cpu.ConfigFromEnv()
	f := rootCmd.Flags()
	f.IntVar(&opts.every, "every", env.DumpEvery, "dump the machine every N steps (0 disables)")
	f.IntVar(&opts.maxSteps, "max-steps", env.MaxSteps, "fault after N steps (0 is unlimited)")
	f.IntVar(&opts.stackSize, "stack", env.StackSize, "stack size in slots")
	f.IntVar(&opts.vramSize, "vram", env.VRAMSize, "vram size in cells")
	f.BoolVar(&opts.color, "color", env.Color, "colour the dumps")
	f.BoolVar(&opts.pause, "pause", false, "wait for the operator at every dump")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "no dumps")
	f.StringVar(&opts.snapshot, "snapshot", "", "write the final machine state as JSON to this file")
	f.StringVar(&opts.hibernate, "hibernate", "", "write a resumable archive of the final state to this file")
	f.StringVar(&opts.resume, "resume", "", "resume from an archive written by --hibernate instead of loading a program")
	f.StringVar(&opts.screenshot, "screenshot", "", "save the final vram as a PNG to this file")
	f.IntVar(&opts.scale, "scale", 16, "pixels per vram cell in screenshots")
	f.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

func newMachine(log *zap.Logger, o options, in string, stdin io.Reader) (*cpu.CPU, error) {
	c := cpu.NewCPU(cpu.Config{
		StackSize: o.stackSize,
		VRAMSize:  o.vramSize,
		MaxSteps:  o.maxSteps,
		DumpEvery: o.every,
		Color:     o.color,
	})
	c.Log = log

	if o.resume != "" {
		if err := c.RestoreFromFile(o.resume); err != nil {
			return nil, fmt.Errorf("resume %s: %w", o.resume, err)
		}
		log.Info("resumed", zap.String("archive", o.resume), zap.Int("pc", c.PC), zap.Int("steps", c.Steps))
		return c, nil
	}

	data, err := utils.ReadInput(in, stdin)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	prog, err := isa.ReadJSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := c.Load(prog); err != nil {
		return nil, err
	}
	log.Debug("loaded", zap.Int("size", len(prog)))
	return c, nil
}

// runVM runs the program and writes any requested artifacts even when the
// run ends in a fault.
func runVM(log *zap.Logger, o options, p *pauser, in string, stdin io.Reader, stdout io.Writer) error {
	c, err := newMachine(log, o, in, stdin)
	if err != nil {
		return err
	}

	var tracers cpu.Tracers
	var dumper *cpu.Dumper
	if !o.quiet {
		dumper = cpu.NewDumper(stdout, o.color)
		tracers = append(tracers, dumper)
		if err := dumper.Dump(c); err != nil {
			return err
		}
	}
	if p != nil {
		tracers = append(tracers, p)
	}
	if len(tracers) > 0 {
		c.Tracer = tracers
	}

	runErr := c.Run()
	if errors.Is(runErr, errQuit) {
		log.Info("stopped by operator", zap.Int("pc", c.PC), zap.Int("steps", c.Steps))
		runErr = nil
	}
	var fault *cpu.Fault
	if errors.As(runErr, &fault) {
		log.Error("fault", zap.Int("pc", fault.PC), zap.Int("step", fault.Step), zap.Error(fault.Err))
	}

	// The last cadence dump already shows a machine that stopped on it.
	if dumper != nil && (o.every <= 0 || c.Steps%o.every != 0 || runErr != nil) {
		if err := dumper.Dump(c); err != nil {
			return errors.Join(runErr, err)
		}
	}

	return errors.Join(runErr, writeArtifacts(log, o, c, stdout))
}

func writeArtifacts(log *zap.Logger, o options, c *cpu.CPU, stdout io.Writer) error {
	var errs []error
	if o.snapshot != "" {
		w, closeOut, err := utils.CreateOutput(o.snapshot, stdout)
		if err == nil {
			err = c.WriteSnapshot(w)
			if cerr := closeOut(); err == nil {
				err = cerr
			}
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("snapshot: %w", err))
		} else {
			log.Debug("snapshot written", zap.String("path", o.snapshot))
		}
	}
	if o.hibernate != "" {
		if err := c.HibernateToFile(o.hibernate); err != nil {
			errs = append(errs, fmt.Errorf("hibernate: %w", err))
		} else {
			log.Debug("archive written", zap.String("path", o.hibernate))
		}
	}
	if o.screenshot != "" {
		if err := c.SaveScreenshot(o.screenshot, o.scale); err != nil {
			errs = append(errs, fmt.Errorf("screenshot: %w", err))
		} else {
			log.Debug("screenshot written", zap.String("path", o.screenshot))
		}
	}
	return errors.Join(errs...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vgvm:", err)
		os.Exit(1)
	}
}
