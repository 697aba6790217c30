package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vgtool/pkg/asm"
	"vgtool/pkg/compiler"
	"vgtool/pkg/logging"
	"vgtool/pkg/utils"
)

var (
	outPath  string
	verbose  bool
	showSyms bool
)

var rootCmd = &cobra.Command{
	Use:   "vgcg [tree.json]",
	Short: "Lower a JSON source tree to an assembly listing",
	Long: `vgcg reads a source tree written as nested JSON arrays and prints the
instruction listing for it, one instruction per line. The listing still
uses symbolic labels; feed it to vgasm to get a loadable program.

With no file argument, or "-", the tree is read from standard input.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New("vgcg", verbose)
		defer log.Sync()

		in := utils.Stdin
		if len(args) == 1 {
			in = args[0]
		}
		return generate(log, in, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the listing to this file instead of stdout")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	rootCmd.Flags().BoolVar(&showSyms, "show-symbols", false, "log each function's frame layout")
}

func generate(log *zap.Logger, in string, stdin io.Reader, stdout io.Writer) error {
	src, err := utils.ReadInput(in, stdin)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	tree, err := compiler.ParseTree(src)
	if err != nil {
		return err
	}

	cg := compiler.NewCodeGen(log)
	if showSyms {
		cg.OnFunction = func(st *compiler.SymbolTable) {
			log.Debug("frame layout", zap.String("func", st.Function()), zap.String("symbols", st.String()))
		}
	}
	insts, err := cg.Generate(tree)
	if err != nil {
		var ce *compiler.CompileError
		if errors.As(err, &ce) {
			log.Debug("offending node", zap.String("dump", ce.Dump()))
		}
		return err
	}

	w, closeOut, err := utils.CreateOutput(outPath, stdout)
	if err != nil {
		return err
	}
	if err := asm.WriteListing(w, insts); err != nil {
		closeOut()
		return err
	}
	log.Debug("listing written", zap.Int("instructions", len(insts)))
	return closeOut()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vgcg:", err)
		os.Exit(1)
	}
}
