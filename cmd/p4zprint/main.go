// Command p4zprint decodes a serialized program and prints the flattened
// leaf paths of every pipeline stage main() instantiates.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"p4z3/cliconfig"
	"p4z3/p4ir"
	"p4z3/symbolic"
)

var rootCmd = &cobra.Command{
	Use:   "p4zprint [flags] program.bin",
	Short: "Print the symbolic leaf paths of every pipeline stage in a program.",
	Run:   runPrint,
}

func init() {
	rootCmd.Flags().BoolP("verbose", "v", false, "increase logging verbosity")
	rootCmd.Flags().String("config", "", "path to a YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPrint(cmd *cobra.Command, args []string) {
	if getFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}
	if len(args) != 1 {
		fmt.Println(cmd.UsageString())
		os.Exit(1)
	}

	_, err := cliconfig.Load(getString(cmd, "config"))
	if err != nil {
		log.Error(err)
		os.Exit(2)
	}

	prog := decodeProgramOrExit(args[0])

	leaves, err := symbolic.Interpret(prog)
	if err != nil {
		log.Error(err)
		os.Exit(4)
	}

	for _, stage := range sortedKeys(leaves) {
		fmt.Printf("== %s ==\n", stage)
		fmt.Print(symbolic.String(leaves[stage]))
	}
}

func decodeProgramOrExit(filename string) *p4ir.Program {
	f, err := os.Open(filename)
	if err != nil {
		log.Error(err)
		os.Exit(2)
	}
	defer f.Close()

	prog, err := p4ir.DecodeProgram(f)
	if err != nil {
		log.Error(err)
		os.Exit(3)
	}
	return prog
}
