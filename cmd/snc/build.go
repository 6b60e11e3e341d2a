package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sindarin-lang/snc/internal/diag"
)

func newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build <file.sn>",
		Short: "Compile a source file to a native binary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := buildBinary(args[0])
			return err
		},
	}
}

// buildBinary runs the full pipeline: parse, generate C, invoke the
// backend, and print the colored compile_success/compile_failed summary
// (spec.md §6/§7).
func buildBinary(srcPath string) (string, error) {
	start := time.Now()
	sink := diag.New(newLogger())

	prog, err := parseSource(srcPath)
	if err != nil {
		return "", errors.Wrap(err, "snc build")
	}

	code, err := generateC(prog)
	if err != nil {
		sink.CompileFailed()
		return "", errors.Wrap(err, "snc build: codegen")
	}

	out := flagOutput
	if out == "" {
		out = "a.out"
	}
	d := newDriver()
	res, err := d.RunDiagnosed(context.Background(), sink, code, out)
	if err != nil {
		sink.CompileFailed()
		fmt.Fprintln(os.Stderr, res.Output)
		return "", errors.Wrap(err, "snc build: backend")
	}

	info, statErr := os.Stat(res.BinaryPath)
	var size int64
	if statErr == nil {
		size = info.Size()
	}
	sink.CompileSuccess(res.BinaryPath, size, time.Since(start))
	return res.BinaryPath, nil
}
