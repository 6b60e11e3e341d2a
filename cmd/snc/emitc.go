package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newEmitCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "emit-c <file.sn>",
		Short: "Generate C source without invoking the backend compiler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := parseSource(args[0])
			if err != nil {
				return errors.Wrap(err, "snc emit-c")
			}
			code, err := generateC(prog)
			if err != nil {
				return errors.Wrap(err, "snc emit-c: codegen")
			}
			if flagOutput == "" {
				fmt.Print(code)
				return nil
			}
			if err := os.WriteFile(flagOutput, []byte(code), 0o644); err != nil {
				return errors.Wrapf(err, "snc emit-c: write %s", flagOutput)
			}
			if flagVerbose {
				fmt.Fprintf(os.Stderr, "C code written to %s\n", flagOutput)
			}
			return nil
		},
	}
}
