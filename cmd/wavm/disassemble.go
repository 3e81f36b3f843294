package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wavmgo/wavm/internal/wasm/binary"
	"github.com/wavmgo/wavm/internal/wasm/text"
)

func newDisassembleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disassemble in.wasm [out.wast]",
		Short: "Decode a WebAssembly binary module and print its text form",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outPath := ""
			if len(args) == 2 {
				outPath = args[1]
			}
			return disassemble(args[0], outPath)
		},
	}
}

func disassemble(inPath, outPath string) error {
	buf, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", inPath, err)
	}

	m, err := binary.Decode(buf, features.value)
	if err != nil {
		logger.Error("decode failed", loggerFields(inPath, err)...)
		return fmt.Errorf("decode %s: %w", inPath, err)
	}

	out := text.PrintModule(m)
	if outPath == "" {
		fmt.Print(out)
		return nil
	}
	if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	logger.Info("disassembled module", loggerFields(outPath, nil)...)
	return nil
}
