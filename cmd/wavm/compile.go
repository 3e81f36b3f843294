package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCompileCmd exists because spec.md §6 names `wavm compile` as part of
// the CLI's interface surface, but lowering IR to machine code is an
// external collaborator this module deliberately does not implement
// (spec.md §1 Non-goals). The subcommand reports that plainly instead of
// silently accepting a module it cannot act on.
func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile in.wasm",
		Short: "Not implemented: lowering to machine code is outside this module's scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("compile: no engine is linked into this build; wavm only assembles and disassembles")
		},
	}
}
