package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wavmgo/wavm/internal/wasm"
)

func mustParse(t *testing.T, src string) *wasm.Module {
	t.Helper()
	m, err := ParseModule([]byte(src), wasm.Features20220419, wasm.DefaultLimits)
	require.NoError(t, err)
	return m
}

func TestParseModuleEmpty(t *testing.T) {
	m := mustParse(t, `(module)`)
	require.Empty(t, m.TypeSection)
	require.Zero(t, m.FunctionSpace.Size())
}

func TestParseModuleAddFunctionFlat(t *testing.T) {
	m := mustParse(t, `(module
		(func $add (param $a i32) (param $b i32) (result i32)
			local.get $a
			local.get $b
			i32.add))`)
	require.Len(t, m.TypeSection, 1)
	require.Equal(t, []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32}, m.TypeSection[0].Params)
	require.Equal(t, []wasm.ValueType{wasm.ValueTypeI32}, m.TypeSection[0].Results)
	require.EqualValues(t, 1, m.FunctionSpace.Size())

	def := m.FunctionSpace.Defs[0]
	require.Equal(t, []byte{
		byte(wasm.OpcodeLocalGet), 0x00,
		byte(wasm.OpcodeLocalGet), 0x01,
		byte(wasm.OpcodeI32Add),
		byte(wasm.OpcodeEnd),
	}, def.Body)
}

func TestParseModuleAddFunctionFolded(t *testing.T) {
	m := mustParse(t, `(module
		(func $add (param $a i32) (param $b i32) (result i32)
			(i32.add (local.get $a) (local.get $b))))`)
	def := m.FunctionSpace.Defs[0]
	require.Equal(t, []byte{
		byte(wasm.OpcodeLocalGet), 0x00,
		byte(wasm.OpcodeLocalGet), 0x01,
		byte(wasm.OpcodeI32Add),
		byte(wasm.OpcodeEnd),
	}, def.Body)
}

func TestParseModuleForwardReferenceToLaterFunction(t *testing.T) {
	m := mustParse(t, `(module
		(func $caller (result i32) (call $callee))
		(func $callee (result i32) (i32.const 42)))`)
	require.EqualValues(t, 2, m.FunctionSpace.Size())
	callerBody := m.FunctionSpace.Defs[0].Body
	require.Equal(t, []byte{byte(wasm.OpcodeCall), 0x01, byte(wasm.OpcodeEnd)}, callerBody)
}

func TestParseModuleBlockLoopWithNamedLabels(t *testing.T) {
	m := mustParse(t, `(module
		(func $loop (param $n i32)
			(block $done
				(loop $top
					local.get $n
					br_if $done
					br $top))))`)
	def := m.FunctionSpace.Defs[0]
	require.Equal(t, []byte{
		byte(wasm.OpcodeBlock), 0x40,
		byte(wasm.OpcodeLoop), 0x40,
		byte(wasm.OpcodeLocalGet), 0x00,
		byte(wasm.OpcodeBrIf), 0x01,
		byte(wasm.OpcodeBr), 0x00,
		byte(wasm.OpcodeEnd),
		byte(wasm.OpcodeEnd),
		byte(wasm.OpcodeEnd),
	}, def.Body)
}

func TestParseModuleIfElse(t *testing.T) {
	m := mustParse(t, `(module
		(func $f (param $c i32) (result i32)
			local.get $c
			(if (result i32)
				(then (i32.const 1))
				(else (i32.const 2)))))`)
	def := m.FunctionSpace.Defs[0]
	require.Equal(t, []byte{
		byte(wasm.OpcodeLocalGet), 0x00,
		byte(wasm.OpcodeIf), byte(wasm.ValueTypeI32),
		byte(wasm.OpcodeI32Const), 0x01,
		byte(wasm.OpcodeElse),
		byte(wasm.OpcodeI32Const), 0x02,
		byte(wasm.OpcodeEnd),
		byte(wasm.OpcodeEnd),
	}, def.Body)
}

func TestParseModuleMemoryAndData(t *testing.T) {
	m := mustParse(t, `(module
		(memory $mem 1)
		(data (i32.const 0) "hi"))`)
	require.EqualValues(t, 1, m.MemorySpace.Size())
	require.Len(t, m.DataSection, 1)
	seg := m.DataSection[0]
	require.True(t, seg.Active)
	require.Equal(t, []byte("hi"), seg.Init)
	require.Equal(t, int32(0), seg.OffsetExpr.I32)
}

func TestParseModuleElemFuncref(t *testing.T) {
	m := mustParse(t, `(module
		(table $t 2 funcref)
		(func $f (result i32) (i32.const 0))
		(elem (table $t) (i32.const 0) func $f))`)
	require.Len(t, m.ElemSection, 1)
	seg := m.ElemSection[0]
	require.Equal(t, wasm.ElemModeActive, seg.Mode)
	require.Len(t, seg.Exprs, 1)
	require.False(t, seg.Exprs[0].IsNull)
	require.EqualValues(t, 0, seg.Exprs[0].Index)
}

func TestParseModuleGlobalAndExport(t *testing.T) {
	m := mustParse(t, `(module
		(global $g (mut i32) (i32.const 5))
		(export "g" (global $g)))`)
	require.EqualValues(t, 1, m.GlobalSpace.Size())
	require.True(t, m.GlobalSpace.Defs[0].Type.Mutable)
	require.Len(t, m.ExportSection, 1)
	require.Equal(t, "g", m.ExportSection[0].Name)
	require.Equal(t, wasm.ExternTypeGlobal, m.ExportSection[0].Type)
}

func TestParseModuleImportFunction(t *testing.T) {
	m := mustParse(t, `(module
		(import "env" "double" (func $double (param i32) (result i32)))
		(func $user (param $x i32) (result i32) (call $double (local.get $x))))`)
	require.EqualValues(t, 2, m.FunctionSpace.Size())
	require.Len(t, m.FunctionSpace.Imports, 1)
	require.Equal(t, "env", m.FunctionSpace.Imports[0].Module)
	userBody := m.FunctionSpace.Defs[0].Body
	require.Equal(t, []byte{
		byte(wasm.OpcodeLocalGet), 0x00,
		byte(wasm.OpcodeCall), 0x00,
		byte(wasm.OpcodeEnd),
	}, userBody)
}

func TestParseModuleCallIndirect(t *testing.T) {
	m := mustParse(t, `(module
		(type $sig (func (param i32) (result i32)))
		(table $t 1 funcref)
		(func $f (param $i i32) (result i32)
			(call_indirect (type $sig) (local.get $i) (local.get $i))))`)
	def := m.FunctionSpace.Defs[0]
	require.Equal(t, []byte{
		byte(wasm.OpcodeLocalGet), 0x00,
		byte(wasm.OpcodeLocalGet), 0x00,
		byte(wasm.OpcodeCallIndirect), 0x00, 0x00,
		byte(wasm.OpcodeEnd),
	}, def.Body)
}

func TestParseModuleConstFloats(t *testing.T) {
	m := mustParse(t, `(module (func $f (f32.const 1.5) (f64.const 2.5) drop drop))`)
	def := m.FunctionSpace.Defs[0]
	require.Equal(t, byte(wasm.OpcodeF32Const), def.Body[0])
	require.Equal(t, byte(wasm.OpcodeF64Const), def.Body[5])
}

func TestParseModuleDuplicateIdentifierIsRecoverable(t *testing.T) {
	_, err := ParseModule([]byte(`(module
		(func $f (result i32) (i32.const 1))
		(func $f (result i32) (i32.const 2)))`), wasm.Features20220419, wasm.DefaultLimits)
	require.Error(t, err)
}

// TestParseModuleUnknownIdentifierReference covers scenario S4: referencing
// an identifier that was never bound must fail with a diagnostic containing
// "unknown name".
func TestParseModuleUnknownIdentifierReference(t *testing.T) {
	_, err := ParseModule([]byte(`(module
		(func $f (result i32) (call $nope)))`), wasm.Features20220419, wasm.DefaultLimits)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown name")
}

func TestParseModuleMalformedInstructionIsRecoverable(t *testing.T) {
	_, err := ParseModule([]byte(`(module (func $f (result i32) (bogus.op)))`), wasm.Features20220419, wasm.DefaultLimits)
	require.Error(t, err)
}

// TestParseModuleDeeplyFoldedExpressionHitsRecursionBound exercises P6: a
// folded expression nested well past a tight MaxSyntaxRecursion must fail
// with a recoverable ParseError rather than overflowing the host stack.
func TestParseModuleDeeplyFoldedExpressionHitsRecursionBound(t *testing.T) {
	const depth = 50
	body := "(i32.const 0)"
	for i := 0; i < depth; i++ {
		body = "(i32.add " + body + " (i32.const 1))"
	}
	src := []byte(`(module (func $f (result i32) ` + body + `))`)

	tight := wasm.DefaultLimits
	tight.MaxSyntaxRecursion = 10
	_, err := ParseModule(src, wasm.Features20220419, tight)
	require.Error(t, err)
	require.Contains(t, err.Error(), "recursion")

	_, err = ParseModule(src, wasm.Features20220419, wasm.DefaultLimits)
	require.NoError(t, err)
}

// TestParseModuleDeeplyNestedBlocksHitRecursionBound covers the other
// recursive chain bounded by MaxSyntaxRecursion: nested block/loop bodies.
func TestParseModuleDeeplyNestedBlocksHitRecursionBound(t *testing.T) {
	const depth = 50
	src := []byte(`(module (func $f ` +
		strings.Repeat("(block ", depth) +
		strings.Repeat(")", depth) +
		`))`)

	tight := wasm.DefaultLimits
	tight.MaxSyntaxRecursion = 10
	_, err := ParseModule(src, wasm.Features20220419, tight)
	require.Error(t, err)
	require.Contains(t, err.Error(), "recursion")
}
