// Command p4zcompare decodes a comma-separated list of serialized programs
// and checks every successive pair for symbolic equivalence.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aclements/go-z3/z3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"p4z3/cliconfig"
	"p4z3/p4ir"
	"p4z3/symbolic"
	"p4z3/symbolic/cmp"
	"p4z3/value"
)

var rootCmd = &cobra.Command{
	Use:   "p4zcompare [flags] progA.bin,progB.bin,...",
	Short: "Check every successive pair of programs for symbolic equivalence.",
	Run:   runCompare,
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

func runCompare(cmd *cobra.Command, args []string) {
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

	filenames := strings.Split(args[0], ",")
	if len(filenames) < 2 {
		fmt.Println("p4zcompare: need at least two programs to compare")
		os.Exit(1)
	}

	leaves := make([]map[string][]value.LeafPath, len(filenames))
	for i, filename := range filenames {
		prog := decodeProgramOrExit(filename)
		out, err := symbolic.Interpret(prog)
		if err != nil {
			log.Error(err)
			os.Exit(4)
		}
		leaves[i] = out
	}

	ctx := z3.NewContext(nil)
	anyMismatch := false
	for i := 0; i+1 < len(filenames); i++ {
		before := flattenAll(leaves[i])
		after := flattenAll(leaves[i+1])

		res, err := cmp.Compare(ctx, before, after)
		if err != nil {
			log.Error(err)
			os.Exit(5)
		}
		if res.Equivalent {
			fmt.Printf("%s == %s\n", filenames[i], filenames[i+1])
			continue
		}
		anyMismatch = true
		fmt.Printf("%s != %s\n", filenames[i], filenames[i+1])
		fmt.Println(res.Counterexample)
	}

	if anyMismatch {
		os.Exit(6)
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

// flattenAll concatenates a program's per-stage leaf paths in stage-name
// order, so two programs whose main() instantiates the same stages in the
// same order compare leaf-for-leaf.
func flattenAll(stages map[string][]value.LeafPath) []value.LeafPath {
	var out []value.LeafPath
	for _, stage := range sortedKeys(stages) {
		out = append(out, stages[stage]...)
	}
	return out
}
