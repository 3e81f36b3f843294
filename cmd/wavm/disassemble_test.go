package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDisassembleRoundTripsAssembledModule(t *testing.T) {
	dir := t.TempDir()
	watPath := filepath.Join(dir, "add.wat")
	wasmPath := filepath.Join(dir, "add.wasm")
	outPath := filepath.Join(dir, "add.out.wast")

	logger = zap.NewNop()
	require.NoError(t, os.WriteFile(watPath, []byte(`(module
		(func $add (param i32 i32) (result i32)
			local.get 0
			local.get 1
			i32.add)
		(export "add" (func $add)))`), 0o644))
	require.NoError(t, assemble(watPath, wasmPath))
	require.NoError(t, disassemble(wasmPath, outPath))

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(out), "(export \"add\""))
	require.True(t, strings.Contains(string(out), "i32.add"))
}

func TestDisassembleReportsDecodeError(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "bad.wasm")
	require.NoError(t, os.WriteFile(inPath, []byte("not wasm"), 0o644))

	logger = zap.NewNop()
	err := disassemble(inPath, "")
	require.Error(t, err)
}
