package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wavmgo/wavm/internal/wasm"
)

// featureSet is a pflag.Value collecting repeated --enable <name> flags
// into a wasm.Features bitset, rejecting unknown feature names up front
// rather than silently ignoring them.
type featureSet struct {
	value wasm.Features
	names []string
}

func (f *featureSet) String() string { return f.value.String() }
func (f *featureSet) Type() string   { return "feature" }

func (f *featureSet) Set(name string) error {
	flag, ok := wasm.FeatureByName(name)
	if !ok {
		return fmt.Errorf("unknown feature %q", name)
	}
	f.value = f.value.Set(flag, true)
	f.names = append(f.names, name)
	return nil
}

var _ pflag.Value = (*featureSet)(nil)

var (
	logger   *zap.Logger
	features = &featureSet{value: wasm.Features20220419}
)

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "wavm",
		Short: "Assemble and disassemble WebAssembly modules",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if verbose {
				cfg = zap.NewDevelopmentConfig()
			}
			l, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().VarP(features, "enable", "e", "enable a WebAssembly feature (repeatable); defaults to the 2022-04-19 feature set")

	root.AddCommand(newAssembleCmd(), newDisassembleCmd(), newCompileCmd())
	return root
}

// run builds and executes the root command, returning the process exit
// code (0 on success, 1 on any reported error).
func run() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Println(err)
		return 1
	}
	return 0
}
