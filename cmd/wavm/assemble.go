package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wavmgo/wavm/internal/wasm"
	"github.com/wavmgo/wavm/internal/wasm/binary"
	"github.com/wavmgo/wavm/internal/wasm/text"
)

func newAssembleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assemble in.wast out.wasm",
		Short: "Parse a WebAssembly text module and encode it as binary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return assemble(args[0], args[1])
		},
	}
}

func assemble(inPath, outPath string) error {
	src, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", inPath, err)
	}

	m, err := text.ParseModule(src, features.value, wasm.DefaultLimits)
	if err != nil {
		logger.Error("parse failed", loggerFields(inPath, err)...)
		return fmt.Errorf("parse %s: %w", inPath, err)
	}

	if err := os.WriteFile(outPath, binary.Encode(m), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	logger.Info("assembled module", loggerFields(outPath, nil)...)
	return nil
}
