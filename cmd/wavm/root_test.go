package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wavmgo/wavm/internal/wasm"
)

func TestFeatureSetRejectsUnknownName(t *testing.T) {
	fs := &featureSet{}
	require.Error(t, fs.Set("not-a-real-feature"))
}

func TestFeatureSetAccumulatesFlags(t *testing.T) {
	fs := &featureSet{}
	require.NoError(t, fs.Set("threads"))
	require.NoError(t, fs.Set("multi-memory"))
	require.True(t, fs.value.Get(wasm.FeatureThreads))
	require.True(t, fs.value.Get(wasm.FeatureMultiMemory))
	require.False(t, fs.value.Get(wasm.FeatureSIMD))
}

func TestNewRootCmdRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	require.True(t, names["assemble"])
	require.True(t, names["disassemble"])
	require.True(t, names["compile"])
}
