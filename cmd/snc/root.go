// Command snc is the compiler's CLI: a Cobra subcommand surface over
// the generator, driver, and package file (spec.md §6's "CLI" external
// interface made concrete per SPEC_FULL.md).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sindarin-lang/snc/internal/carena"
	"github.com/sindarin-lang/snc/internal/codegen"
	"github.com/sindarin-lang/snc/internal/diag"
	"github.com/sindarin-lang/snc/internal/driver"
	"github.com/sindarin-lang/snc/internal/symtab"
)

// compilerArenaSize is generous enough for any realistic single-file
// compile; the compiler-internal arena never needs to grow dynamically
// within one CLI invocation.
const compilerArenaSize = 1 << 20

func newSymtab() *symtab.SymbolTable {
	return symtab.New(carena.New(compilerArenaSize))
}

// Frontend turns source text into the AST the generator consumes. snc
// does not own the lexer/parser (spec.md §1 names them external
// collaborators); a real build wires a lexer/parser package in here.
// Tests in this package supply a fake Frontend to exercise the rest of
// the CLI without a real front end.
type Frontend func(src []byte, filename string) (*codegen.Program, error)

var frontend Frontend

var (
	flagOutput  string
	flagVerbose bool
	flagRelease bool
	flagCC      string
	flagStd     string
	flagRuntime string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "snc",
		Short: "snc compiles Sindarin source to native binaries via C",
	}
	root.PersistentFlags().StringVarP(&flagOutput, "output", "o", "", "output file")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVar(&flagRelease, "release", false, "build with release optimizations")
	root.PersistentFlags().StringVar(&flagCC, "cc", "gcc", "C compiler to invoke")
	root.PersistentFlags().StringVar(&flagStd, "std", "c99", "C standard to target")
	root.PersistentFlags().StringVar(&flagRuntime, "runtime", "sdk", "SDK root for sdk/ imports (accepted; no subcommand reads it)")

	root.AddCommand(newBuildCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newEmitCCmd())
	root.AddCommand(newPkgCmd())
	return root
}

func newLogger() *zap.Logger {
	if !flagVerbose {
		return zap.NewNop()
	}
	l, _ := zap.NewDevelopment()
	return l
}

func newDriver() *driver.Driver {
	d := driver.New(newLogger())
	d.CC = flagCC
	d.Std = flagStd
	d.Release = flagRelease
	return d
}

func parseSource(path string) (*codegen.Program, error) {
	if frontend == nil {
		return nil, fmt.Errorf("snc: no lexer/parser front end registered (see cmd/snc.Frontend)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return frontend(data, path)
}

func generateC(prog *codegen.Program) (string, error) {
	gen := codegen.New(newSymtab(), diag.New(newLogger()))
	return gen.Generate(prog)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
