package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vgtool/pkg/asm"
	"vgtool/pkg/logging"
	"vgtool/pkg/utils"
)

var (
	outPath    string
	verbose    bool
	showLabels bool
)

var rootCmd = &cobra.Command{
	Use:   "vgasm [listing]",
	Short: "Assemble a listing into a loadable program",
	Long: `vgasm resolves the labels in an instruction listing and writes the
program as a flat JSON array of opcode names and operands. The program
size in words is reported on stderr.

With no file argument, or "-", the listing is read from standard input.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New("vgasm", verbose)
		defer log.Sync()

		in := utils.Stdin
		if len(args) == 1 {
			in = args[0]
		}
		return assemble(log, in, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the program to this file instead of stdout")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	rootCmd.Flags().BoolVar(&showLabels, "labels", false, "print the label table on stderr")
}

func assemble(log *zap.Logger, in string, stdin io.Reader, stdout, stderr io.Writer) error {
	src, err := utils.ReadInput(in, stdin)
	if err != nil {
		return fmt.Errorf("read listing: %w", err)
	}
	insts, err := asm.ParseListing(bytes.NewReader(src))
	if err != nil {
		return err
	}

	a := asm.NewAssembler(log)
	prog, err := a.Assemble(insts)
	if err != nil {
		return err
	}

	w, closeOut, err := utils.CreateOutput(outPath, stdout)
	if err != nil {
		return err
	}
	if err := prog.WriteJSON(w); err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}

	fmt.Fprintf(stderr, "size (%d)\n", len(prog))
	if showLabels {
		printLabels(stderr, a.Labels())
	}
	return nil
}

func printLabels(w io.Writer, labels map[string]int) {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if labels[names[i]] != labels[names[j]] {
			return labels[names[i]] < labels[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		fmt.Fprintf(w, "%4d %s\n", labels[name], name)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vgasm:", err)
		os.Exit(1)
	}
}
