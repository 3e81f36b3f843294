package wasm

// Opcode is a single WebAssembly instruction byte. Instructions gated behind
// a 0xFC (bulk-memory/reference-types/saturating-conversions) or 0xFD (SIMD)
// prefix byte use a second opcode byte/LEB128 index from Misc*/SIMD*; the
// pair is what OperatorTable keys on (see PrefixedOpcode).
type Opcode byte

// ImmediateKind tags the shape of an operator's immediate operand(s), i.e.
// everything after the opcode byte and before the next operator - never the
// operator's stack operands (GLOSSARY "Operator").
type ImmediateKind byte

const (
	ImmNone ImmediateKind = iota
	ImmI32
	ImmI64
	ImmF32
	ImmF64
	ImmV128
	ImmLocalIndex
	ImmGlobalIndex
	ImmFuncIndex
	ImmTypeIndex       // call_indirect: (type index, table index)
	ImmTableIndex
	ImmMemIndex
	ImmBlockType
	ImmBranchDepth
	ImmBranchTable     // vector of depths + default depth
	ImmMemArg          // alignment hint (LEB128) + offset (LEB128)
	ImmDataIndex
	ImmDataIndexMem    // memory.init: data index + memory index
	ImmElemIndex
	ImmElemIndexTable  // table.init: elem index + table index
	ImmRefType
	ImmSelectTypes     // explicitly-typed select's result type vector
	ImmTableIndexPair  // table.copy: dst table + src table
)

// StackEffect describes an operator's effect on the validator's type stack
// in the common, non-polymorphic case: Pop is consumed right-to-left in
// declaration order, then Push is appended. Operators whose true effect
// depends on the operand stack's runtime content (drop, select, return,
// unreachable-following instructions) set Polymorphic instead and are
// special-cased by the validator (§4.H).
type StackEffect struct {
	Pop         []ValueType
	Push        []ValueType
	Polymorphic bool
}

// Operator is one row of the authoritative operator table the spec's Design
// Notes call for: a single data declaration the lexer's keyword list, the
// parser dispatch, the binary encoder/decoder, the validator, and the
// printer all iterate, replacing what an X-macro would do in C.
type Operator struct {
	Opcode    Opcode
	Prefix    Opcode // 0 if this is not a prefixed (0xFC/0xFD-led) operator
	Mnemonic  string
	Immediate ImmediateKind
	Effect    StackEffect
	Feature   Features // 0 if always available
}

// PrefixedOpcode packs a prefix byte and sub-opcode into one key for table
// lookups, mirroring how the binary encoder/decoder address 0xFC/0xFD
// operators.
type PrefixedOpcode struct {
	Prefix, Opcode Opcode
}

const (
	OpcodeUnreachable Opcode = 0x00
	OpcodeNop         Opcode = 0x01
	OpcodeBlock       Opcode = 0x02
	OpcodeLoop        Opcode = 0x03
	OpcodeIf          Opcode = 0x04
	OpcodeElse        Opcode = 0x05
	OpcodeTry         Opcode = 0x06
	OpcodeCatch       Opcode = 0x07
	OpcodeThrow       Opcode = 0x08
	OpcodeRethrow     Opcode = 0x09
	OpcodeCatchAll    Opcode = 0x19
	OpcodeEnd         Opcode = 0x0b
	OpcodeBr          Opcode = 0x0c
	OpcodeBrIf        Opcode = 0x0d
	OpcodeBrTable     Opcode = 0x0e
	OpcodeReturn      Opcode = 0x0f
	OpcodeCall        Opcode = 0x10
	OpcodeCallIndirect Opcode = 0x11

	OpcodeDrop   Opcode = 0x1a
	OpcodeSelect Opcode = 0x1b
	OpcodeSelectT Opcode = 0x1c

	OpcodeLocalGet  Opcode = 0x20
	OpcodeLocalSet  Opcode = 0x21
	OpcodeLocalTee  Opcode = 0x22
	OpcodeGlobalGet Opcode = 0x23
	OpcodeGlobalSet Opcode = 0x24

	OpcodeTableGet Opcode = 0x25
	OpcodeTableSet Opcode = 0x26

	OpcodeI32Load    Opcode = 0x28
	OpcodeI64Load    Opcode = 0x29
	OpcodeF32Load    Opcode = 0x2a
	OpcodeF64Load    Opcode = 0x2b
	OpcodeI32Load8S  Opcode = 0x2c
	OpcodeI32Load8U  Opcode = 0x2d
	OpcodeI32Load16S Opcode = 0x2e
	OpcodeI32Load16U Opcode = 0x2f
	OpcodeI64Load8S  Opcode = 0x30
	OpcodeI64Load8U  Opcode = 0x31
	OpcodeI64Load16S Opcode = 0x32
	OpcodeI64Load16U Opcode = 0x33
	OpcodeI64Load32S Opcode = 0x34
	OpcodeI64Load32U Opcode = 0x35
	OpcodeI32Store   Opcode = 0x36
	OpcodeI64Store   Opcode = 0x37
	OpcodeF32Store   Opcode = 0x38
	OpcodeF64Store   Opcode = 0x39
	OpcodeI32Store8  Opcode = 0x3a
	OpcodeI32Store16 Opcode = 0x3b
	OpcodeI64Store8  Opcode = 0x3c
	OpcodeI64Store16 Opcode = 0x3d
	OpcodeI64Store32 Opcode = 0x3e
	OpcodeMemorySize Opcode = 0x3f
	OpcodeMemoryGrow Opcode = 0x40

	OpcodeI32Const Opcode = 0x41
	OpcodeI64Const Opcode = 0x42
	OpcodeF32Const Opcode = 0x43
	OpcodeF64Const Opcode = 0x44

	OpcodeI32Eqz Opcode = 0x45
	OpcodeI32Eq  Opcode = 0x46
	OpcodeI32Ne  Opcode = 0x47
	OpcodeI32LtS Opcode = 0x48
	OpcodeI32LtU Opcode = 0x49
	OpcodeI32GtS Opcode = 0x4a
	OpcodeI32GtU Opcode = 0x4b
	OpcodeI32LeS Opcode = 0x4c
	OpcodeI32LeU Opcode = 0x4d
	OpcodeI32GeS Opcode = 0x4e
	OpcodeI32GeU Opcode = 0x4f

	OpcodeI64Eqz Opcode = 0x50
	OpcodeI64Eq  Opcode = 0x51
	OpcodeI64Ne  Opcode = 0x52
	OpcodeI64LtS Opcode = 0x53
	OpcodeI64LtU Opcode = 0x54
	OpcodeI64GtS Opcode = 0x55
	OpcodeI64GtU Opcode = 0x56
	OpcodeI64LeS Opcode = 0x57
	OpcodeI64LeU Opcode = 0x58
	OpcodeI64GeS Opcode = 0x59
	OpcodeI64GeU Opcode = 0x5a

	OpcodeF32Eq Opcode = 0x5b
	OpcodeF32Ne Opcode = 0x5c
	OpcodeF32Lt Opcode = 0x5d
	OpcodeF32Gt Opcode = 0x5e
	OpcodeF32Le Opcode = 0x5f
	OpcodeF32Ge Opcode = 0x60

	OpcodeF64Eq Opcode = 0x61
	OpcodeF64Ne Opcode = 0x62
	OpcodeF64Lt Opcode = 0x63
	OpcodeF64Gt Opcode = 0x64
	OpcodeF64Le Opcode = 0x65
	OpcodeF64Ge Opcode = 0x66

	OpcodeI32Clz    Opcode = 0x67
	OpcodeI32Ctz    Opcode = 0x68
	OpcodeI32Popcnt Opcode = 0x69
	OpcodeI32Add    Opcode = 0x6a
	OpcodeI32Sub    Opcode = 0x6b
	OpcodeI32Mul    Opcode = 0x6c
	OpcodeI32DivS   Opcode = 0x6d
	OpcodeI32DivU   Opcode = 0x6e
	OpcodeI32RemS   Opcode = 0x6f
	OpcodeI32RemU   Opcode = 0x70
	OpcodeI32And    Opcode = 0x71
	OpcodeI32Or     Opcode = 0x72
	OpcodeI32Xor    Opcode = 0x73
	OpcodeI32Shl    Opcode = 0x74
	OpcodeI32ShrS   Opcode = 0x75
	OpcodeI32ShrU   Opcode = 0x76
	OpcodeI32Rotl   Opcode = 0x77
	OpcodeI32Rotr   Opcode = 0x78

	OpcodeI64Clz    Opcode = 0x79
	OpcodeI64Ctz    Opcode = 0x7a
	OpcodeI64Popcnt Opcode = 0x7b
	OpcodeI64Add    Opcode = 0x7c
	OpcodeI64Sub    Opcode = 0x7d
	OpcodeI64Mul    Opcode = 0x7e
	OpcodeI64DivS   Opcode = 0x7f
	OpcodeI64DivU   Opcode = 0x80
	OpcodeI64RemS   Opcode = 0x81
	OpcodeI64RemU   Opcode = 0x82
	OpcodeI64And    Opcode = 0x83
	OpcodeI64Or     Opcode = 0x84
	OpcodeI64Xor    Opcode = 0x85
	OpcodeI64Shl    Opcode = 0x86
	OpcodeI64ShrS   Opcode = 0x87
	OpcodeI64ShrU   Opcode = 0x88
	OpcodeI64Rotl   Opcode = 0x89
	OpcodeI64Rotr   Opcode = 0x8a

	OpcodeI32WrapI64    Opcode = 0xa7
	OpcodeI64ExtendI32S Opcode = 0xac
	OpcodeI64ExtendI32U Opcode = 0xad

	OpcodeI32Extend8S  Opcode = 0xc0
	OpcodeI32Extend16S Opcode = 0xc1
	OpcodeI64Extend8S  Opcode = 0xc2
	OpcodeI64Extend16S Opcode = 0xc3
	OpcodeI64Extend32S Opcode = 0xc4

	OpcodeRefNull   Opcode = 0xd0
	OpcodeRefIsNull Opcode = 0xd1
	OpcodeRefFunc   Opcode = 0xd2

	// Opcodes gated behind the 0xFC prefix (bulk-memory, reference-types
	// table ops, and saturating truncation).
	OpcodeMiscPrefix Opcode = 0xfc

	MiscMemoryInit Opcode = 0x08
	MiscDataDrop   Opcode = 0x09
	MiscMemoryCopy Opcode = 0x0a
	MiscMemoryFill Opcode = 0x0b
	MiscTableInit  Opcode = 0x0c
	MiscElemDrop   Opcode = 0x0d
	MiscTableCopy  Opcode = 0x0e
	MiscTableGrow  Opcode = 0x0f
	MiscTableSize  Opcode = 0x10
	MiscTableFill  Opcode = 0x11

	// SIMD operators are gated behind the 0xFD prefix.
	OpcodeSIMDPrefix Opcode = 0xfd
	SIMDV128Const    Opcode = 0x0c
	SIMDI32x4Add     Opcode = 0xae
)

var (
	i32 = ValueType(ValueTypeI32)
	i64 = ValueType(ValueTypeI64)
	f32 = ValueType(ValueTypeF32)
	f64 = ValueType(ValueTypeF64)
)

func unop(t ValueType) StackEffect  { return StackEffect{Pop: []ValueType{t}, Push: []ValueType{t}} }
func binop(t ValueType) StackEffect { return StackEffect{Pop: []ValueType{t, t}, Push: []ValueType{t}} }
func testop(t ValueType) StackEffect {
	return StackEffect{Pop: []ValueType{t}, Push: []ValueType{i32}}
}
func relop(t ValueType) StackEffect {
	return StackEffect{Pop: []ValueType{t, t}, Push: []ValueType{i32}}
}

// OperatorTable is the authoritative list described in the Design Notes: the
// text parser's mnemonic dispatch, the validator, and the printer all look
// operators up in this same slice instead of maintaining independent
// copies. It covers the MVP
// instruction set plus one representative operator from each gated
// extension (sign-extension, bulk-memory, reference-types, multi-value via
// ImmSelectTypes/ImmBlockType's type-index arm, exception-handling, and
// SIMD) rather than enumerating the several hundred SIMD lane operators,
// which would dominate the table's size without adding architectural
// coverage; see DESIGN.md.
var OperatorTable = buildOperatorTable()

func buildOperatorTable() []Operator {
	return []Operator{
		{Opcode: OpcodeUnreachable, Mnemonic: "unreachable", Effect: StackEffect{Polymorphic: true}},
		{Opcode: OpcodeNop, Mnemonic: "nop"},
		{Opcode: OpcodeBlock, Mnemonic: "block", Immediate: ImmBlockType},
		{Opcode: OpcodeLoop, Mnemonic: "loop", Immediate: ImmBlockType},
		{Opcode: OpcodeIf, Mnemonic: "if", Immediate: ImmBlockType, Effect: StackEffect{Pop: []ValueType{i32}}},
		{Opcode: OpcodeElse, Mnemonic: "else"},
		{Opcode: OpcodeTry, Mnemonic: "try", Immediate: ImmBlockType, Feature: FeatureExceptionHandling},
		{Opcode: OpcodeCatch, Mnemonic: "catch", Immediate: ImmFuncIndex, Feature: FeatureExceptionHandling},
		{Opcode: OpcodeCatchAll, Mnemonic: "catch_all", Feature: FeatureExceptionHandling},
		{Opcode: OpcodeThrow, Mnemonic: "throw", Immediate: ImmFuncIndex, Feature: FeatureExceptionHandling, Effect: StackEffect{Polymorphic: true}},
		{Opcode: OpcodeRethrow, Mnemonic: "rethrow", Immediate: ImmBranchDepth, Feature: FeatureExceptionHandling, Effect: StackEffect{Polymorphic: true}},
		{Opcode: OpcodeEnd, Mnemonic: "end"},
		{Opcode: OpcodeBr, Mnemonic: "br", Immediate: ImmBranchDepth, Effect: StackEffect{Polymorphic: true}},
		{Opcode: OpcodeBrIf, Mnemonic: "br_if", Immediate: ImmBranchDepth, Effect: StackEffect{Pop: []ValueType{i32}}},
		{Opcode: OpcodeBrTable, Mnemonic: "br_table", Immediate: ImmBranchTable, Effect: StackEffect{Pop: []ValueType{i32}, Polymorphic: true}},
		{Opcode: OpcodeReturn, Mnemonic: "return", Effect: StackEffect{Polymorphic: true}},
		{Opcode: OpcodeCall, Mnemonic: "call", Immediate: ImmFuncIndex},
		{Opcode: OpcodeCallIndirect, Mnemonic: "call_indirect", Immediate: ImmTypeIndex},

		{Opcode: OpcodeDrop, Mnemonic: "drop", Effect: StackEffect{Polymorphic: true}},
		{Opcode: OpcodeSelect, Mnemonic: "select", Effect: StackEffect{Polymorphic: true}},
		{Opcode: OpcodeSelectT, Mnemonic: "select", Immediate: ImmSelectTypes, Effect: StackEffect{Polymorphic: true}, Feature: FeatureMultiValue},

		{Opcode: OpcodeLocalGet, Mnemonic: "local.get", Immediate: ImmLocalIndex, Effect: StackEffect{Polymorphic: true}},
		{Opcode: OpcodeLocalSet, Mnemonic: "local.set", Immediate: ImmLocalIndex, Effect: StackEffect{Polymorphic: true}},
		{Opcode: OpcodeLocalTee, Mnemonic: "local.tee", Immediate: ImmLocalIndex, Effect: StackEffect{Polymorphic: true}},
		{Opcode: OpcodeGlobalGet, Mnemonic: "global.get", Immediate: ImmGlobalIndex, Effect: StackEffect{Polymorphic: true}},
		{Opcode: OpcodeGlobalSet, Mnemonic: "global.set", Immediate: ImmGlobalIndex, Effect: StackEffect{Polymorphic: true}},

		{Opcode: OpcodeTableGet, Mnemonic: "table.get", Immediate: ImmTableIndex, Feature: FeatureReferenceTypes, Effect: StackEffect{Polymorphic: true}},
		{Opcode: OpcodeTableSet, Mnemonic: "table.set", Immediate: ImmTableIndex, Feature: FeatureReferenceTypes, Effect: StackEffect{Polymorphic: true}},

		{Opcode: OpcodeI32Load, Mnemonic: "i32.load", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32}, Push: []ValueType{i32}}},
		{Opcode: OpcodeI64Load, Mnemonic: "i64.load", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32}, Push: []ValueType{i64}}},
		{Opcode: OpcodeF32Load, Mnemonic: "f32.load", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32}, Push: []ValueType{f32}}},
		{Opcode: OpcodeF64Load, Mnemonic: "f64.load", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32}, Push: []ValueType{f64}}},
		{Opcode: OpcodeI32Load8S, Mnemonic: "i32.load8_s", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32}, Push: []ValueType{i32}}},
		{Opcode: OpcodeI32Load8U, Mnemonic: "i32.load8_u", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32}, Push: []ValueType{i32}}},
		{Opcode: OpcodeI32Load16S, Mnemonic: "i32.load16_s", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32}, Push: []ValueType{i32}}},
		{Opcode: OpcodeI32Load16U, Mnemonic: "i32.load16_u", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32}, Push: []ValueType{i32}}},
		{Opcode: OpcodeI64Load8S, Mnemonic: "i64.load8_s", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32}, Push: []ValueType{i64}}},
		{Opcode: OpcodeI64Load8U, Mnemonic: "i64.load8_u", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32}, Push: []ValueType{i64}}},
		{Opcode: OpcodeI64Load16S, Mnemonic: "i64.load16_s", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32}, Push: []ValueType{i64}}},
		{Opcode: OpcodeI64Load16U, Mnemonic: "i64.load16_u", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32}, Push: []ValueType{i64}}},
		{Opcode: OpcodeI64Load32S, Mnemonic: "i64.load32_s", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32}, Push: []ValueType{i64}}},
		{Opcode: OpcodeI64Load32U, Mnemonic: "i64.load32_u", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32}, Push: []ValueType{i64}}},
		{Opcode: OpcodeI32Store, Mnemonic: "i32.store", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32, i32}}},
		{Opcode: OpcodeI64Store, Mnemonic: "i64.store", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32, i64}}},
		{Opcode: OpcodeF32Store, Mnemonic: "f32.store", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32, f32}}},
		{Opcode: OpcodeF64Store, Mnemonic: "f64.store", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32, f64}}},
		{Opcode: OpcodeI32Store8, Mnemonic: "i32.store8", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32, i32}}},
		{Opcode: OpcodeI32Store16, Mnemonic: "i32.store16", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32, i32}}},
		{Opcode: OpcodeI64Store8, Mnemonic: "i64.store8", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32, i64}}},
		{Opcode: OpcodeI64Store16, Mnemonic: "i64.store16", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32, i64}}},
		{Opcode: OpcodeI64Store32, Mnemonic: "i64.store32", Immediate: ImmMemArg, Effect: StackEffect{Pop: []ValueType{i32, i64}}},
		{Opcode: OpcodeMemorySize, Mnemonic: "memory.size", Immediate: ImmMemIndex, Effect: StackEffect{Push: []ValueType{i32}}},
		{Opcode: OpcodeMemoryGrow, Mnemonic: "memory.grow", Immediate: ImmMemIndex, Effect: StackEffect{Pop: []ValueType{i32}, Push: []ValueType{i32}}},

		{Opcode: OpcodeI32Const, Mnemonic: "i32.const", Immediate: ImmI32, Effect: StackEffect{Push: []ValueType{i32}}},
		{Opcode: OpcodeI64Const, Mnemonic: "i64.const", Immediate: ImmI64, Effect: StackEffect{Push: []ValueType{i64}}},
		{Opcode: OpcodeF32Const, Mnemonic: "f32.const", Immediate: ImmF32, Effect: StackEffect{Push: []ValueType{f32}}},
		{Opcode: OpcodeF64Const, Mnemonic: "f64.const", Immediate: ImmF64, Effect: StackEffect{Push: []ValueType{f64}}},

		{Opcode: OpcodeI32Eqz, Mnemonic: "i32.eqz", Effect: testop(i32)},
		{Opcode: OpcodeI32Eq, Mnemonic: "i32.eq", Effect: relop(i32)},
		{Opcode: OpcodeI32Ne, Mnemonic: "i32.ne", Effect: relop(i32)},
		{Opcode: OpcodeI32LtS, Mnemonic: "i32.lt_s", Effect: relop(i32)},
		{Opcode: OpcodeI32LtU, Mnemonic: "i32.lt_u", Effect: relop(i32)},
		{Opcode: OpcodeI32GtS, Mnemonic: "i32.gt_s", Effect: relop(i32)},
		{Opcode: OpcodeI32GtU, Mnemonic: "i32.gt_u", Effect: relop(i32)},
		{Opcode: OpcodeI32LeS, Mnemonic: "i32.le_s", Effect: relop(i32)},
		{Opcode: OpcodeI32LeU, Mnemonic: "i32.le_u", Effect: relop(i32)},
		{Opcode: OpcodeI32GeS, Mnemonic: "i32.ge_s", Effect: relop(i32)},
		{Opcode: OpcodeI32GeU, Mnemonic: "i32.ge_u", Effect: relop(i32)},

		{Opcode: OpcodeI64Eqz, Mnemonic: "i64.eqz", Effect: StackEffect{Pop: []ValueType{i64}, Push: []ValueType{i32}}},
		{Opcode: OpcodeI64Eq, Mnemonic: "i64.eq", Effect: relop(i64)},
		{Opcode: OpcodeI64Ne, Mnemonic: "i64.ne", Effect: relop(i64)},
		{Opcode: OpcodeI64LtS, Mnemonic: "i64.lt_s", Effect: relop(i64)},
		{Opcode: OpcodeI64LtU, Mnemonic: "i64.lt_u", Effect: relop(i64)},
		{Opcode: OpcodeI64GtS, Mnemonic: "i64.gt_s", Effect: relop(i64)},
		{Opcode: OpcodeI64GtU, Mnemonic: "i64.gt_u", Effect: relop(i64)},
		{Opcode: OpcodeI64LeS, Mnemonic: "i64.le_s", Effect: relop(i64)},
		{Opcode: OpcodeI64LeU, Mnemonic: "i64.le_u", Effect: relop(i64)},
		{Opcode: OpcodeI64GeS, Mnemonic: "i64.ge_s", Effect: relop(i64)},
		{Opcode: OpcodeI64GeU, Mnemonic: "i64.ge_u", Effect: relop(i64)},

		{Opcode: OpcodeF32Eq, Mnemonic: "f32.eq", Effect: relop(f32)},
		{Opcode: OpcodeF32Ne, Mnemonic: "f32.ne", Effect: relop(f32)},
		{Opcode: OpcodeF32Lt, Mnemonic: "f32.lt", Effect: relop(f32)},
		{Opcode: OpcodeF32Gt, Mnemonic: "f32.gt", Effect: relop(f32)},
		{Opcode: OpcodeF32Le, Mnemonic: "f32.le", Effect: relop(f32)},
		{Opcode: OpcodeF32Ge, Mnemonic: "f32.ge", Effect: relop(f32)},

		{Opcode: OpcodeF64Eq, Mnemonic: "f64.eq", Effect: relop(f64)},
		{Opcode: OpcodeF64Ne, Mnemonic: "f64.ne", Effect: relop(f64)},
		{Opcode: OpcodeF64Lt, Mnemonic: "f64.lt", Effect: relop(f64)},
		{Opcode: OpcodeF64Gt, Mnemonic: "f64.gt", Effect: relop(f64)},
		{Opcode: OpcodeF64Le, Mnemonic: "f64.le", Effect: relop(f64)},
		{Opcode: OpcodeF64Ge, Mnemonic: "f64.ge", Effect: relop(f64)},

		{Opcode: OpcodeI32Clz, Mnemonic: "i32.clz", Effect: unop(i32)},
		{Opcode: OpcodeI32Ctz, Mnemonic: "i32.ctz", Effect: unop(i32)},
		{Opcode: OpcodeI32Popcnt, Mnemonic: "i32.popcnt", Effect: unop(i32)},
		{Opcode: OpcodeI32Add, Mnemonic: "i32.add", Effect: binop(i32)},
		{Opcode: OpcodeI32Sub, Mnemonic: "i32.sub", Effect: binop(i32)},
		{Opcode: OpcodeI32Mul, Mnemonic: "i32.mul", Effect: binop(i32)},
		{Opcode: OpcodeI32DivS, Mnemonic: "i32.div_s", Effect: binop(i32)},
		{Opcode: OpcodeI32DivU, Mnemonic: "i32.div_u", Effect: binop(i32)},
		{Opcode: OpcodeI32RemS, Mnemonic: "i32.rem_s", Effect: binop(i32)},
		{Opcode: OpcodeI32RemU, Mnemonic: "i32.rem_u", Effect: binop(i32)},
		{Opcode: OpcodeI32And, Mnemonic: "i32.and", Effect: binop(i32)},
		{Opcode: OpcodeI32Or, Mnemonic: "i32.or", Effect: binop(i32)},
		{Opcode: OpcodeI32Xor, Mnemonic: "i32.xor", Effect: binop(i32)},
		{Opcode: OpcodeI32Shl, Mnemonic: "i32.shl", Effect: binop(i32)},
		{Opcode: OpcodeI32ShrS, Mnemonic: "i32.shr_s", Effect: binop(i32)},
		{Opcode: OpcodeI32ShrU, Mnemonic: "i32.shr_u", Effect: binop(i32)},
		{Opcode: OpcodeI32Rotl, Mnemonic: "i32.rotl", Effect: binop(i32)},
		{Opcode: OpcodeI32Rotr, Mnemonic: "i32.rotr", Effect: binop(i32)},

		{Opcode: OpcodeI64Clz, Mnemonic: "i64.clz", Effect: unop(i64)},
		{Opcode: OpcodeI64Ctz, Mnemonic: "i64.ctz", Effect: unop(i64)},
		{Opcode: OpcodeI64Popcnt, Mnemonic: "i64.popcnt", Effect: unop(i64)},
		{Opcode: OpcodeI64Add, Mnemonic: "i64.add", Effect: binop(i64)},
		{Opcode: OpcodeI64Sub, Mnemonic: "i64.sub", Effect: binop(i64)},
		{Opcode: OpcodeI64Mul, Mnemonic: "i64.mul", Effect: binop(i64)},
		{Opcode: OpcodeI64DivS, Mnemonic: "i64.div_s", Effect: binop(i64)},
		{Opcode: OpcodeI64DivU, Mnemonic: "i64.div_u", Effect: binop(i64)},
		{Opcode: OpcodeI64RemS, Mnemonic: "i64.rem_s", Effect: binop(i64)},
		{Opcode: OpcodeI64RemU, Mnemonic: "i64.rem_u", Effect: binop(i64)},
		{Opcode: OpcodeI64And, Mnemonic: "i64.and", Effect: binop(i64)},
		{Opcode: OpcodeI64Or, Mnemonic: "i64.or", Effect: binop(i64)},
		{Opcode: OpcodeI64Xor, Mnemonic: "i64.xor", Effect: binop(i64)},
		{Opcode: OpcodeI64Shl, Mnemonic: "i64.shl", Effect: binop(i64)},
		{Opcode: OpcodeI64ShrS, Mnemonic: "i64.shr_s", Effect: binop(i64)},
		{Opcode: OpcodeI64ShrU, Mnemonic: "i64.shr_u", Effect: binop(i64)},
		{Opcode: OpcodeI64Rotl, Mnemonic: "i64.rotl", Effect: binop(i64)},
		{Opcode: OpcodeI64Rotr, Mnemonic: "i64.rotr", Effect: binop(i64)},

		{Opcode: OpcodeI32WrapI64, Mnemonic: "i32.wrap_i64", Effect: StackEffect{Pop: []ValueType{i64}, Push: []ValueType{i32}}},
		{Opcode: OpcodeI64ExtendI32S, Mnemonic: "i64.extend_i32_s", Effect: StackEffect{Pop: []ValueType{i32}, Push: []ValueType{i64}}},
		{Opcode: OpcodeI64ExtendI32U, Mnemonic: "i64.extend_i32_u", Effect: StackEffect{Pop: []ValueType{i32}, Push: []ValueType{i64}}},

		{Opcode: OpcodeI32Extend8S, Mnemonic: "i32.extend8_s", Effect: unop(i32), Feature: FeatureSignExtensionOps},
		{Opcode: OpcodeI32Extend16S, Mnemonic: "i32.extend16_s", Effect: unop(i32), Feature: FeatureSignExtensionOps},
		{Opcode: OpcodeI64Extend8S, Mnemonic: "i64.extend8_s", Effect: unop(i64), Feature: FeatureSignExtensionOps},
		{Opcode: OpcodeI64Extend16S, Mnemonic: "i64.extend16_s", Effect: unop(i64), Feature: FeatureSignExtensionOps},
		{Opcode: OpcodeI64Extend32S, Mnemonic: "i64.extend32_s", Effect: unop(i64), Feature: FeatureSignExtensionOps},

		{Opcode: OpcodeRefNull, Mnemonic: "ref.null", Immediate: ImmRefType, Feature: FeatureReferenceTypes, Effect: StackEffect{Polymorphic: true}},
		{Opcode: OpcodeRefIsNull, Mnemonic: "ref.is_null", Feature: FeatureReferenceTypes, Effect: StackEffect{Polymorphic: true}},
		{Opcode: OpcodeRefFunc, Mnemonic: "ref.func", Immediate: ImmFuncIndex, Feature: FeatureReferenceTypes, Effect: StackEffect{Push: []ValueType{ValueTypeFuncref}}},

		{Prefix: OpcodeMiscPrefix, Opcode: MiscMemoryInit, Mnemonic: "memory.init", Immediate: ImmDataIndexMem, Feature: FeatureBulkMemoryOperations, Effect: StackEffect{Pop: []ValueType{i32, i32, i32}}},
		{Prefix: OpcodeMiscPrefix, Opcode: MiscDataDrop, Mnemonic: "data.drop", Immediate: ImmDataIndex, Feature: FeatureBulkMemoryOperations},
		{Prefix: OpcodeMiscPrefix, Opcode: MiscMemoryCopy, Mnemonic: "memory.copy", Immediate: ImmMemIndex, Feature: FeatureBulkMemoryOperations, Effect: StackEffect{Pop: []ValueType{i32, i32, i32}}},
		{Prefix: OpcodeMiscPrefix, Opcode: MiscMemoryFill, Mnemonic: "memory.fill", Immediate: ImmMemIndex, Feature: FeatureBulkMemoryOperations, Effect: StackEffect{Pop: []ValueType{i32, i32, i32}}},
		{Prefix: OpcodeMiscPrefix, Opcode: MiscTableInit, Mnemonic: "table.init", Immediate: ImmElemIndexTable, Feature: FeatureBulkMemoryOperations, Effect: StackEffect{Pop: []ValueType{i32, i32, i32}}},
		{Prefix: OpcodeMiscPrefix, Opcode: MiscElemDrop, Mnemonic: "elem.drop", Immediate: ImmElemIndex, Feature: FeatureBulkMemoryOperations},
		{Prefix: OpcodeMiscPrefix, Opcode: MiscTableCopy, Mnemonic: "table.copy", Immediate: ImmTableIndexPair, Feature: FeatureBulkMemoryOperations, Effect: StackEffect{Pop: []ValueType{i32, i32, i32}}},
		{Prefix: OpcodeMiscPrefix, Opcode: MiscTableGrow, Mnemonic: "table.grow", Immediate: ImmTableIndex, Feature: FeatureReferenceTypes, Effect: StackEffect{Polymorphic: true}},
		{Prefix: OpcodeMiscPrefix, Opcode: MiscTableSize, Mnemonic: "table.size", Immediate: ImmTableIndex, Feature: FeatureReferenceTypes, Effect: StackEffect{Push: []ValueType{i32}}},
		{Prefix: OpcodeMiscPrefix, Opcode: MiscTableFill, Mnemonic: "table.fill", Immediate: ImmTableIndex, Feature: FeatureReferenceTypes, Effect: StackEffect{Polymorphic: true}},

		{Prefix: OpcodeSIMDPrefix, Opcode: SIMDV128Const, Mnemonic: "v128.const", Immediate: ImmV128, Feature: FeatureSIMD, Effect: StackEffect{Push: []ValueType{ValueTypeV128}}},
		{Prefix: OpcodeSIMDPrefix, Opcode: SIMDI32x4Add, Mnemonic: "i32x4.add", Feature: FeatureSIMD, Effect: binop(ValueTypeV128)},
	}
}

// byMnemonic and byOpcode index OperatorTable for the text parser and for
// the validator and printer respectively; both are derived, not independently
// maintained, so they can never drift from OperatorTable.
var (
	byMnemonic = func() map[string]*Operator {
		m := make(map[string]*Operator, len(OperatorTable))
		for i := range OperatorTable {
			op := &OperatorTable[i]
			if _, exists := m[op.Mnemonic]; !exists {
				m[op.Mnemonic] = op
			}
		}
		return m
	}()
	byOpcode = func() map[PrefixedOpcode]*Operator {
		m := make(map[PrefixedOpcode]*Operator, len(OperatorTable))
		for i := range OperatorTable {
			op := &OperatorTable[i]
			m[PrefixedOpcode{op.Prefix, op.Opcode}] = op
		}
		return m
	}()
)

// LookupMnemonic returns the Operator named name, used by the text parser's
// instruction dispatch.
func LookupMnemonic(name string) (*Operator, bool) {
	op, ok := byMnemonic[name]
	return op, ok
}

// LookupOpcode returns the Operator for (prefix, opcode), used by the
// function-body validator and the printer.
func LookupOpcode(prefix, opcode Opcode) (*Operator, bool) {
	op, ok := byOpcode[PrefixedOpcode{prefix, opcode}]
	return op, ok
}
