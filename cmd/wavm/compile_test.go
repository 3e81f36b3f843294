package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileReportsUnimplemented(t *testing.T) {
	cmd := newCompileCmd()
	cmd.SetArgs([]string{"whatever.wasm"})
	err := cmd.Execute()
	require.Error(t, err)
}
