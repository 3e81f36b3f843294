package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wavmgo/wavm/internal/wasm/binary"
)

func TestAssembleProducesLoadableBinary(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "add.wat")
	outPath := filepath.Join(dir, "add.wasm")

	require.NoError(t, os.WriteFile(inPath, []byte(`(module
		(func $add (param i32 i32) (result i32)
			local.get 0
			local.get 1
			i32.add)
		(export "add" (func $add)))`), 0o644))

	logger = zap.NewNop()
	require.NoError(t, assemble(inPath, outPath))

	buf, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 'a', 's', 'm'}, buf[:4])

	m, err := binary.Decode(buf, features.value)
	require.NoError(t, err)
	require.EqualValues(t, 1, m.FunctionSpace.Size())
	require.Len(t, m.ExportSection, 1)
}

func TestAssembleReportsParseError(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "bad.wat")
	require.NoError(t, os.WriteFile(inPath, []byte(`(module (func (bogus.op)))`), 0o644))

	logger = zap.NewNop()
	err := assemble(inPath, filepath.Join(dir, "bad.wasm"))
	require.Error(t, err)
}
