package wasm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wavmgo/wavm/internal/leb128"
	"github.com/wavmgo/wavm/internal/wasm"
)

func body(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	out = append(out, byte(wasm.OpcodeEnd))
	return out
}

func op(o wasm.Opcode) []byte { return []byte{byte(o)} }

func i32Const(v int32) []byte {
	return append(op(wasm.OpcodeI32Const), leb128.EncodeInt32(v)...)
}

// f64Const encodes an f64.const with an arbitrary fixed-width immediate; the
// validator only skips the 8 immediate bytes; it never interprets them.
func f64Const() []byte {
	return append(op(wasm.OpcodeF64Const), make([]byte, 8)...)
}

func u32Imm(o wasm.Opcode, idx uint32) []byte {
	return append(op(o), leb128.EncodeUint32(idx)...)
}

func moduleWithFunc(types []*wasm.FunctionType, fnTypeIdx wasm.Index, locals []wasm.ValueType, code []byte) *wasm.Module {
	return &wasm.Module{
		TypeSection: types,
		FunctionSpace: wasm.IndexSpace[wasm.FunctionDef, wasm.Index]{
			Defs: []wasm.FunctionDef{{TypeIndex: fnTypeIdx, LocalTypes: locals, Body: code}},
		},
	}
}

func TestValidateFunctionsAddIsWellTyped(t *testing.T) {
	ft := &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI32}}
	code := body(i32Const(1), i32Const(2), op(wasm.OpcodeI32Add))
	m := moduleWithFunc([]*wasm.FunctionType{ft}, 0, nil, code)
	require.NoError(t, wasm.ValidateFunctions(m))
}

func TestValidateFunctionsTypeMismatchRejected(t *testing.T) {
	ft := &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI32}}
	code := body(i32Const(1), op(wasm.OpcodeI64Eqz))
	m := moduleWithFunc([]*wasm.FunctionType{ft}, 0, nil, code)
	err := wasm.ValidateFunctions(m)
	require.Error(t, err)
}

func TestValidateFunctionsMissingResultRejected(t *testing.T) {
	ft := &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI32}}
	code := body() // falls straight to end with nothing on the stack
	m := moduleWithFunc([]*wasm.FunctionType{ft}, 0, nil, code)
	require.Error(t, wasm.ValidateFunctions(m))
}

func TestValidateFunctionsLocalGetOutOfRange(t *testing.T) {
	ft := &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI32}}
	code := body(u32Imm(wasm.OpcodeLocalGet, 5))
	m := moduleWithFunc([]*wasm.FunctionType{ft}, 0, nil, code)
	require.Error(t, wasm.ValidateFunctions(m))
}

func TestValidateFunctionsCallUnknownFunctionRejected(t *testing.T) {
	ft := &wasm.FunctionType{}
	code := body(u32Imm(wasm.OpcodeCall, 99))
	m := moduleWithFunc([]*wasm.FunctionType{ft}, 0, nil, code)
	require.Error(t, wasm.ValidateFunctions(m))
}

func TestValidateFunctionsUnreachableIsPolymorphic(t *testing.T) {
	// unreachable, followed by an i32.add with nothing real on the stack,
	// followed by a drop: none of this should be flagged since the frame
	// is marked unreachable as soon as `unreachable` runs (§4.H).
	ft := &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI32}}
	code := body(op(wasm.OpcodeUnreachable), op(wasm.OpcodeI32Add), op(wasm.OpcodeDrop))
	m := moduleWithFunc([]*wasm.FunctionType{ft}, 0, nil, code)
	require.NoError(t, wasm.ValidateFunctions(m))
}

func TestValidateFunctionsBlockWithResultMustLeaveValue(t *testing.T) {
	ft := &wasm.FunctionType{}
	blockOpen := append(op(wasm.OpcodeBlock), byte(wasm.ValueTypeI32))
	code := append(blockOpen, byte(wasm.OpcodeEnd))
	code = append(code, byte(wasm.OpcodeEnd))
	m := moduleWithFunc([]*wasm.FunctionType{ft}, 0, nil, code)
	require.Error(t, wasm.ValidateFunctions(m))
}

func TestValidateFunctionsBrExitsBlockWithCorrectType(t *testing.T) {
	ft := &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI32}}
	blockOpen := append(op(wasm.OpcodeBlock), byte(wasm.ValueTypeI32))
	var code []byte
	code = append(code, blockOpen...)
	code = append(code, i32Const(7)...)
	code = append(code, u32Imm(wasm.OpcodeBr, 0)...)
	code = append(code, byte(wasm.OpcodeEnd))
	code = append(code, byte(wasm.OpcodeEnd))
	m := moduleWithFunc([]*wasm.FunctionType{ft}, 0, nil, code)
	require.NoError(t, wasm.ValidateFunctions(m))
}

func TestValidateFunctionsSelectPicksOperandType(t *testing.T) {
	ft := &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI32}}
	code := body(i32Const(1), i32Const(2), i32Const(0), op(wasm.OpcodeSelect))
	m := moduleWithFunc([]*wasm.FunctionType{ft}, 0, nil, code)
	require.NoError(t, wasm.ValidateFunctions(m))
}

func TestValidateFunctionsSelectUnreachableNestedInNonEmptyOuterFrame(t *testing.T) {
	// Two real f64s sit on the *outer* frame's stack (pushed before the
	// block opens) when a nested block goes unreachable and immediately
	// runs `select` with nothing of its own on the stack yet: the block's
	// relative operand count is 0, but the absolute stack length is 2.
	// select must treat this as the fully-polymorphic case (producing an
	// unknownType result the block's declared i32 result absorbs), not
	// misread the outer f64s as its own operands - that would push an f64
	// where an i32 is expected and fail the block's own end check.
	ft := &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeF64, wasm.ValueTypeF64, wasm.ValueTypeI32}}
	blockOpen := append(op(wasm.OpcodeBlock), byte(wasm.ValueTypeI32))
	var code []byte
	code = append(code, f64Const()...)
	code = append(code, f64Const()...)
	code = append(code, blockOpen...)
	code = append(code, op(wasm.OpcodeUnreachable)...)
	code = append(code, op(wasm.OpcodeSelect)...)
	code = append(code, byte(wasm.OpcodeEnd))
	code = append(code, byte(wasm.OpcodeEnd))
	m := moduleWithFunc([]*wasm.FunctionType{ft}, 0, nil, code)
	require.NoError(t, wasm.ValidateFunctions(m))
}

func TestValidateFunctionsSelectUnderflowRejected(t *testing.T) {
	ft := &wasm.FunctionType{Results: []wasm.ValueType{wasm.ValueTypeI32}}
	code := body(i32Const(0), op(wasm.OpcodeSelect))
	m := moduleWithFunc([]*wasm.FunctionType{ft}, 0, nil, code)
	require.Error(t, wasm.ValidateFunctions(m))
}

func TestValidateFunctionsGlobalSetImmutableRejected(t *testing.T) {
	ft := &wasm.FunctionType{}
	code := body(i32Const(1), u32Imm(wasm.OpcodeGlobalSet, 0))
	m := moduleWithFunc([]*wasm.FunctionType{ft}, 0, nil, code)
	m.GlobalSpace = wasm.IndexSpace[wasm.GlobalDef, wasm.GlobalType]{
		Defs: []wasm.GlobalDef{{Type: wasm.GlobalType{ValType: wasm.ValueTypeI32, Mutable: false}}},
	}
	require.Error(t, wasm.ValidateFunctions(m))
}
