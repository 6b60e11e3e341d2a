package main

import (
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file.sn>",
		Short: "Compile and immediately execute a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			binOutput := flagOutput
			flagOutput = "" // force the temp-binary path below regardless of -o
			defer func() { flagOutput = binOutput }()

			tmpDir, err := os.MkdirTemp("", "snc_run_")
			if err != nil {
				return err
			}
			defer os.RemoveAll(tmpDir)

			flagOutput = tmpDir + "/program"
			binPath, err := buildBinary(args[0])
			if err != nil {
				return err
			}

			run := exec.Command(binPath)
			run.Stdin = os.Stdin
			run.Stdout = os.Stdout
			run.Stderr = os.Stderr
			if err := run.Run(); err != nil {
				if exitErr, ok := err.(*exec.ExitError); ok {
					os.Exit(exitErr.ExitCode())
				}
				return err
			}
			return nil
		},
	}
}
