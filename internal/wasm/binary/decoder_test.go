package binary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wavmgo/wavm/internal/leb128"
	"github.com/wavmgo/wavm/internal/wasm"
)

// TestDecodeModule relies on Encode to build known-correct byte arrays,
// avoiding hand-written byte literals for every case (P1: decode(encode(m))
// reproduces m).
func TestDecodeModule(t *testing.T) {
	i32, f32 := wasm.ValueTypeI32, wasm.ValueTypeF32

	constI32Body := func(v int32) []byte {
		b := []byte{byte(wasm.OpcodeI32Const)}
		b = append(b, leb128.EncodeInt32(v)...)
		return append(b, byte(wasm.OpcodeEnd))
	}

	tests := []struct {
		name  string
		input *wasm.Module
	}{
		{name: "empty", input: &wasm.Module{}},
		{
			name: "type section",
			input: &wasm.Module{
				TypeSection: []*wasm.FunctionType{
					{},
					{Params: []wasm.ValueType{i32, i32}, Results: []wasm.ValueType{i32}},
				},
			},
		},
		{
			name: "type, import, function, code, export",
			input: &wasm.Module{
				TypeSection: []*wasm.FunctionType{
					{Results: []wasm.ValueType{i32}},
					{Params: []wasm.ValueType{f32, f32}, Results: []wasm.ValueType{f32}},
				},
				FunctionSpace: wasm.IndexSpace[wasm.FunctionDef, wasm.Index]{
					Imports: []wasm.Import[wasm.Index]{{Module: "math", Name: "id", Type: 1}},
					Defs:    []wasm.FunctionDef{{TypeIndex: 0, Body: constI32Body(42)}},
				},
				ExportSection: []wasm.Export{{Name: "answer", Type: wasm.ExternTypeFunc, Index: 1}},
			},
		},
		{
			name: "memory and global",
			input: &wasm.Module{
				MemorySpace: wasm.IndexSpace[wasm.MemoryDef, wasm.MemoryType]{
					Defs: []wasm.MemoryDef{{Type: wasm.MemoryType{Min: 1, Max: 2}}},
				},
				GlobalSpace: wasm.IndexSpace[wasm.GlobalDef, wasm.GlobalType]{
					Defs: []wasm.GlobalDef{{
						Type: wasm.GlobalType{ValType: i32, Mutable: true},
						Init: wasm.InitializerExpression{Opcode: wasm.InitExprI32Const, I32: 7},
					}},
				},
			},
		},
		{
			name: "name section round trip",
			input: &wasm.Module{
				Names: &wasm.DisassemblyNames{ModuleName: "simple"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := Encode(tt.input)
			got, err := Decode(data, wasm.Features20220419)
			require.NoError(t, err)
			require.Equal(t, tt.input.TypeSection, got.TypeSection)
			require.Equal(t, tt.input.FunctionSpace, got.FunctionSpace)
			require.Equal(t, tt.input.ExportSection, got.ExportSection)
			require.Equal(t, tt.input.MemorySpace, got.MemorySpace)
			require.Equal(t, tt.input.GlobalSpace, got.GlobalSpace)
			require.Equal(t, tt.input.Names, got.Names)
		})
	}
}

func TestDecodeInvalidMagic(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x61, 0x73, 0x6e, 0x01, 0x00, 0x00, 0x00}, 0)
	require.Error(t, err)
	var le *wasm.LoadError
	require.ErrorAs(t, err, &le)
	require.Equal(t, wasm.LoadErrorMalformed, le.Kind)
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	buf := append([]byte{}, magic[:]...)
	buf = append(buf, 0x02, 0x00, 0x00, 0x00)
	_, err := Decode(buf, 0)
	require.Error(t, err)
}

func TestDecodeSectionOutOfOrder(t *testing.T) {
	buf := append([]byte{}, magic[:]...)
	buf = append(buf, encodeU32raw(version)...)
	// type(1), import(2), then type(1) again: sections must strictly
	// increase in id, so the repeated type section is out of order.
	buf = append(buf, byte(wasm.SectionIDType), 0x01, 0x00)
	buf = append(buf, byte(wasm.SectionIDImport), 0x01, 0x00)
	buf = append(buf, byte(wasm.SectionIDType), 0x01, 0x00)
	_, err := Decode(buf, 0)
	require.Error(t, err)
	var le *wasm.LoadError
	require.ErrorAs(t, err, &le)
	require.Equal(t, wasm.LoadErrorMalformed, le.Kind)
}

func TestDecodeTruncatedSection(t *testing.T) {
	buf := append([]byte{}, magic[:]...)
	buf = append(buf, encodeU32raw(version)...)
	buf = append(buf, byte(wasm.SectionIDType), 0x05, 0x01, 0x60, 0x00)
	_, err := Decode(buf, 0)
	require.Error(t, err)
}

func TestDecodeInvalidModuleSurfacesLoadError(t *testing.T) {
	m := &wasm.Module{
		ExportSection: []wasm.Export{{Name: "missing", Type: wasm.ExternTypeFunc, Index: 0}},
	}
	data := Encode(m)
	_, err := Decode(data, 0)
	require.Error(t, err)
	var le *wasm.LoadError
	require.ErrorAs(t, err, &le)
	require.Equal(t, wasm.LoadErrorInvalid, le.Kind)
}
