//go:build !js

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vgtool/pkg/asm"
	"vgtool/pkg/compiler"
	"vgtool/pkg/cpu"
	"vgtool/pkg/isa"
	"vgtool/pkg/logging"
	"vgtool/pkg/utils"
)

var (
	verbose     bool
	outPath     string
	withListing bool
	dumpEvery   int
	maxSteps    int
)

var rootCmd = &cobra.Command{
	Use:   "vgtool",
	Short: "Compile and run source trees for the vg stack machine",
	Long: `vgtool chains the code generator, the assembler and the virtual CPU in
one process. The single-phase tools are vgcg, vgasm and vgvm.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log = logging.New("vgtool", verbose)
	},
}

var log = zap.NewNop()

var buildCmd = &cobra.Command{
	Use:   "build <tree.json>",
	Short: "Compile a source tree into an assembled program",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := outPath
		if out == "" {
			out = defaultOutputPath(args[0])
		}
		return build(args[0], out, cmd.ErrOrStderr())
	},
}

var runCmd = &cobra.Command{
	Use:   "run <tree.json>",
	Short: "Compile a source tree and run it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := cpu.ConfigFromEnv()
		if cmd.Flags().Changed("every") {
			cfg.DumpEvery = dumpEvery
		}
		if cmd.Flags().Changed("max-steps") {
			cfg.MaxSteps = maxSteps
		}
		vm, err := compileAndRun(args[0], cfg, cmd.OutOrStdout())
		if vm != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", summary(vm))
		}
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	buildCmd.Flags().StringVarP(&outPath, "out", "o", "", "program output path (default: input with .prog.json)")
	buildCmd.Flags().BoolVar(&withListing, "listing", false, "also write the listing next to the program")

	runCmd.Flags().IntVar(&dumpEvery, "every", 0, "dump the machine every N steps")
	runCmd.Flags().IntVar(&maxSteps, "max-steps", 0, "fault after N steps")

	rootCmd.AddCommand(buildCmd, runCmd)
}

func defaultOutputPath(inPath string) string {
	return utils.WithExt(inPath, ".prog.json")
}

func compileFile(path string) ([]isa.Instruction, isa.Program, error) {
	src, err := utils.ReadInput(path, os.Stdin)
	if err != nil {
		return nil, nil, err
	}
	return compiler.CompileJSON(src, log)
}

func build(in, out string, stderr io.Writer) error {
	insts, prog, err := compileFile(in)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := prog.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if withListing {
		lst, err := os.Create(utils.WithExt(out, ".lst"))
		if err != nil {
			return err
		}
		if err := asm.WriteListing(lst, insts); err != nil {
			lst.Close()
			return err
		}
		if err := lst.Close(); err != nil {
			return err
		}
	}

	fmt.Fprintf(stderr, "size (%d) -> %s\n", len(prog), out)
	return nil
}

// compileAndRun returns the machine whenever it got as far as loading, so a
// fault can still be summarized.
func compileAndRun(path string, cfg cpu.Config, stdout io.Writer) (*cpu.CPU, error) {
	_, prog, err := compileFile(path)
	if err != nil {
		return nil, err
	}

	vm := cpu.NewCPU(cfg)
	vm.Log = log
	if err := vm.Load(prog); err != nil {
		return nil, err
	}
	if cfg.DumpEvery > 0 {
		vm.Tracer = cpu.NewDumper(stdout, cfg.Color)
	}
	return vm, vm.Run()
}

func summary(vm *cpu.CPU) string {
	return fmt.Sprintf("run complete: steps=%d pc=%d sp=%d bp=%d zf=%t cf=%t reg_a=%d reg_b=%d reg_c=%d reg_d=%d",
		vm.Steps, vm.PC, vm.SP, vm.BP, vm.ZF, vm.CF,
		vm.Regs[isa.RegA], vm.Regs[isa.RegB], vm.Regs[isa.RegC], vm.Regs[isa.RegD])
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vgtool:", err)
		os.Exit(1)
	}
}
