// Command p4zvalidate drives an external compiler through its pass
// pipeline, dumping each pass's serialized program to disk, and checks
// that every pass preserves the semantics of the one before it.
//
// The compiler is invoked as:
//
//	<compiler-path> --dump-dir=<dir> <source-file>
//
// and is expected to write one p4ir.Program dump per pass into dir, named
// so that lexical sort order matches pass order (e.g. pass-0000.bin,
// pass-0001.bin, ...). Adjacent dumps with byte-identical contents are a
// no-op pass and are skipped rather than compared (comparing a program
// against itself would always report equivalence and wastes a solver
// call).
package main

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

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
	Use:   "p4zvalidate [flags] source.p4",
	Short: "Validate that every compiler pass preserves program semantics.",
	Run:   runValidate,
}

func init() {
	rootCmd.Flags().BoolP("verbose", "v", false, "increase logging verbosity")
	rootCmd.Flags().String("config", "", "path to a YAML config file")
	rootCmd.Flags().String("compiler", "", "path to the compiler binary (overrides config)")
	rootCmd.Flags().String("dump-dir", "", "directory the compiler writes pass dumps into (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runValidate(cmd *cobra.Command, args []string) {
	if getFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}
	if len(args) != 1 {
		fmt.Println(cmd.UsageString())
		os.Exit(1)
	}

	cfg, err := cliconfig.Load(getString(cmd, "config"))
	if err != nil {
		log.Error(err)
		os.Exit(2)
	}
	if v := getString(cmd, "compiler"); v != "" {
		cfg.CompilerPath = v
	}
	if v := getString(cmd, "dump-dir"); v != "" {
		cfg.DumpDir = v
	}
	if cfg.CompilerPath == "" {
		fmt.Println("p4zvalidate: no compiler path given (--compiler or config compiler_path)")
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DumpDir, 0755); err != nil {
		log.Error(err)
		os.Exit(2)
	}

	runCompiler(cfg.CompilerPath, cfg.DumpDir, args[0])

	dumps, err := listDumps(cfg.DumpDir)
	if err != nil {
		log.Error(err)
		os.Exit(2)
	}
	dumps = prunePasses(dumps)
	if len(dumps) < 2 {
		fmt.Println("p4zvalidate: fewer than two distinct passes dumped, nothing to validate")
		return
	}

	ctx := z3.NewContext(nil)
	var prevLeaves []value.LeafPath
	var prevName string
	anyRegression := false

	for i, dump := range dumps {
		prog := decodeProgramOrExit(dump.path)
		stages, err := symbolic.Interpret(prog)
		if err != nil {
			log.Error(err)
			os.Exit(4)
		}
		leaves := flattenAll(stages)

		if i > 0 {
			res, err := cmp.Compare(ctx, prevLeaves, leaves)
			if err != nil {
				log.Error(err)
				os.Exit(5)
			}
			if res.Equivalent {
				fmt.Printf("%s -> %s: equivalent\n", prevName, dump.name)
			} else {
				anyRegression = true
				fmt.Printf("%s -> %s: DIVERGED\n", prevName, dump.name)
				fmt.Println(res.Counterexample)
			}
		}
		prevLeaves, prevName = leaves, dump.name
	}

	if anyRegression {
		os.Exit(6)
	}
}

func runCompiler(compilerPath, dumpDir, source string) {
	c := exec.Command(compilerPath, "--dump-dir="+dumpDir, source)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		log.Error(err)
		os.Exit(3)
	}
}

type passDump struct {
	name string
	path string
}

func listDumps(dir string) ([]passDump, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []passDump
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, passDump{name: e.Name(), path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

// prunePasses drops any dump whose bytes are identical to the one
// immediately before it, keeping only the first of each run of
// byte-identical dumps.
func prunePasses(dumps []passDump) []passDump {
	if len(dumps) == 0 {
		return dumps
	}
	out := []passDump{dumps[0]}
	prevBytes := mustRead(dumps[0].path)
	for _, d := range dumps[1:] {
		b := mustRead(d.path)
		if !bytes.Equal(prevBytes, b) {
			out = append(out, d)
			prevBytes = b
		}
	}
	return out
}

func mustRead(path string) []byte {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Error(err)
		os.Exit(2)
	}
	return b
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

func flattenAll(stages map[string][]value.LeafPath) []value.LeafPath {
	var out []value.LeafPath
	for _, stage := range sortedKeys(stages) {
		out = append(out, stages[stage]...)
	}
	return out
}
