package wasm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wavmgo/wavm/internal/wasm"
)

func TestNewMalformedError(t *testing.T) {
	err := wasm.NewMalformedError(0x12, "unexpected end of section %s", "type")
	var le *wasm.LoadError
	require.ErrorAs(t, err, &le)
	require.Equal(t, wasm.LoadErrorMalformed, le.Kind)
	require.Equal(t, 0x12, le.Offset)
	require.Equal(t, "malformed module: unexpected end of section type (offset 0x12)", err.Error())
}

func TestNewInvalidError(t *testing.T) {
	err := wasm.NewInvalidError(7, "type index %d out of range", 3)
	var le *wasm.LoadError
	require.ErrorAs(t, err, &le)
	require.Equal(t, wasm.LoadErrorInvalid, le.Kind)
	require.Equal(t, "invalid module: type index 3 out of range (offset 0x7)", err.Error())
}

func TestLoadErrorKindString(t *testing.T) {
	require.Equal(t, "malformed", wasm.LoadErrorMalformed.String())
	require.Equal(t, "invalid", wasm.LoadErrorInvalid.String())
}
