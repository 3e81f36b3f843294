package binary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wavmgo/wavm/internal/wasm"
)

func TestEncodeEmptyModuleHeader(t *testing.T) {
	data := Encode(&wasm.Module{})
	require.Equal(t, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, data)
}

func TestEncodeTypeSection(t *testing.T) {
	m := &wasm.Module{
		TypeSection: []*wasm.FunctionType{
			{Params: []wasm.ValueType{wasm.ValueTypeI32}, Results: []wasm.ValueType{wasm.ValueTypeI32}},
		},
	}
	data := Encode(m)
	// header(8) + section id(1) + size(1) + [count=1, tag 0x60, 1 param i32, 1 result i32]
	want := append([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		byte(wasm.SectionIDType), 0x06, 0x01, 0x60, 0x01, 0x7f, 0x01, 0x7f)
	require.Equal(t, want, data)
}

func TestEncodeLocalsRunLengthEncoded(t *testing.T) {
	locals := []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32, wasm.ValueTypeF64}
	data := encodeLocals(locals)
	// 2 runs: (count=2, i32), (count=1, f64)
	require.Equal(t, []byte{0x02, 0x02, 0x7f, 0x01, 0x7c}, data)
}

func TestEncodeCustomSectionOrdering(t *testing.T) {
	m := &wasm.Module{
		TypeSection: []*wasm.FunctionType{{}},
		CustomSections: []wasm.CustomSection{
			{Name: "before-type", Data: []byte("a"), AfterSection: wasm.SectionIDCustom},
			{Name: "after-type", Data: []byte("b"), AfterSection: wasm.SectionIDType},
		},
	}
	data := Encode(m)
	decoded, err := Decode(data, 0)
	require.NoError(t, err)
	require.Len(t, decoded.CustomSections, 2)
	require.Equal(t, "before-type", decoded.CustomSections[0].Name)
	require.Equal(t, "after-type", decoded.CustomSections[1].Name)
}
