package wasm

import (
	"fmt"

	"github.com/wavmgo/wavm/internal/leb128"
)

// unknownType is the polymorphic stack-slot marker. After unreachable, br,
// br_table or return the frame is marked unreachable: pops that reach the
// frame's base succeed without checking types, while values pushed afterwards
// keep their real types and are checked as usual. select pushes unknownType
// when its operands are not both above the frame's base, a popped
// unknownType matches any wanted type, and pop(unknownType) accepts any
// value, as the streaming validator in WAVM's Validate.cpp treats
// "impossible" control flow (§4.H "polymorphic stack-typed values").
const unknownType ValueType = 0

// controlFrame is one entry of the validator's control-frame stack: one per
// currently open block/loop/if/try. paramTypes and resultTypes are resolved
// once when the frame is pushed (from the instruction's BlockType, or
// directly from the function signature for the outermost implicit frame)
// so a multi-value signature never needs to be re-derived from a BlockType
// that cannot represent it.
type controlFrame struct {
	opcode      Opcode
	paramTypes  []ValueType
	resultTypes []ValueType
	startHeight int
	unreachable bool
	elseSeen    bool
}

// funcValidator walks a single function body's raw operator stream once,
// maintaining an operand-type stack and a control-frame stack, exactly the
// two data structures the spec's streaming visitor design calls for (§4.H).
// It never builds an AST; it only ever looks one operator ahead.
type funcValidator struct {
	m      *Module
	fn     *FunctionDef
	ft     *FunctionType
	locals []ValueType

	stack  []ValueType
	frames []controlFrame

	pos int
}

// ValidateFunctions runs the operand-stack validator (component H) over
// every module-local function body. Module.Validate should be called first
// so index-space invariants already hold; this pass additionally requires
// well-typed control flow within each body (I6).
func ValidateFunctions(m *Module) error {
	for i := range m.FunctionSpace.Defs {
		fn := &m.FunctionSpace.Defs[i]
		idx := Index(len(m.FunctionSpace.Imports) + i)
		ft := m.FunctionType(idx)
		v := &funcValidator{
			m:      m,
			fn:     fn,
			ft:     ft,
			locals: append(append([]ValueType{}, ft.Params...), fn.LocalTypes...),
		}
		if err := v.run(); err != nil {
			return fmt.Errorf("function %d: %w", idx, err)
		}
	}
	return nil
}

func (v *funcValidator) run() error {
	v.pushFrame(controlFrame{
		opcode:      OpcodeBlock,
		resultTypes: v.ft.Results,
		startHeight: 0,
	})

	for v.pos < len(v.fn.Body) {
		if err := v.step(); err != nil {
			return err
		}
	}
	if len(v.frames) != 0 {
		return fmt.Errorf("function body missing final end")
	}
	return nil
}

func (v *funcValidator) pushFrame(f controlFrame) {
	v.frames = append(v.frames, f)
}

func (v *funcValidator) curFrame() *controlFrame {
	return &v.frames[len(v.frames)-1]
}

func (v *funcValidator) push(t ValueType) {
	v.stack = append(v.stack, t)
}

func (v *funcValidator) pushN(ts []ValueType) {
	for _, t := range ts {
		v.push(t)
	}
}

// pop removes and returns the top operand, type-checking it against want
// unless the enclosing frame is unreachable (polymorphic), in which case an
// exhausted stack yields unknownType and always succeeds (§4.H).
func (v *funcValidator) pop(want ValueType) error {
	f := v.curFrame()
	if len(v.stack) == f.startHeight {
		if f.unreachable {
			return nil
		}
		return fmt.Errorf("type mismatch: expected %s, stack is empty", ValueTypeName(want))
	}
	got := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	if got != unknownType && want != unknownType && got != want {
		return fmt.Errorf("type mismatch: expected %s, got %s", ValueTypeName(want), ValueTypeName(got))
	}
	return nil
}

func (v *funcValidator) popN(ts []ValueType) error {
	for i := len(ts) - 1; i >= 0; i-- {
		if err := v.pop(ts[i]); err != nil {
			return err
		}
	}
	return nil
}

// setUnreachable discards the frame's operand stack down to startHeight and
// marks it polymorphic, used by unreachable/br/br_table/return (§4.H).
func (v *funcValidator) setUnreachable() {
	f := v.curFrame()
	v.stack = v.stack[:f.startHeight]
	f.unreachable = true
}

// labelTypes returns the operand types a branch targeting frame f must
// carry: a loop's own parameter types (branching re-enters the loop), any
// other frame's result types (branching exits it).
func (v *funcValidator) labelTypes(f *controlFrame) []ValueType {
	if f.opcode == OpcodeLoop {
		return f.paramTypes
	}
	return f.resultTypes
}

// blockSignature resolves a decoded BlockType into its (params, results)
// pair, looking up TypeSection once at frame-creation time.
func (v *funcValidator) blockSignature(bt BlockType) (params, results []ValueType, err error) {
	switch bt.Kind {
	case BlockTypeKindEmpty:
		return nil, nil, nil
	case BlockTypeKindValue:
		return nil, []ValueType{bt.Value}, nil
	case BlockTypeKindIndex:
		if int(bt.Index) >= len(v.m.TypeSection) {
			return nil, nil, fmt.Errorf("block type index %d out of range (I2)", bt.Index)
		}
		ft := v.m.TypeSection[bt.Index]
		return ft.Params, ft.Results, nil
	}
	return nil, nil, fmt.Errorf("unknown block type kind %d", bt.Kind)
}

func (v *funcValidator) readByte() (byte, error) {
	if v.pos >= len(v.fn.Body) {
		return 0, fmt.Errorf("unexpected end of function body")
	}
	b := v.fn.Body[v.pos]
	v.pos++
	return b, nil
}

func (v *funcValidator) readU32() (uint32, error) {
	val, n, err := leb128.LoadUint32(v.fn.Body[v.pos:])
	if err != nil {
		return 0, err
	}
	v.pos += int(n)
	return val, nil
}

func (v *funcValidator) readI32() (int32, error) {
	val, n, err := leb128.LoadInt32(v.fn.Body[v.pos:])
	if err != nil {
		return 0, err
	}
	v.pos += int(n)
	return val, nil
}

func (v *funcValidator) readI64() (int64, error) {
	val, n, err := leb128.LoadInt64(v.fn.Body[v.pos:])
	if err != nil {
		return 0, err
	}
	v.pos += int(n)
	return val, nil
}

// readBlockType decodes a BlockType immediate: 0x40 (empty), a ValueType
// byte, or a signed LEB128 type index (the three arms the binary format
// overlays onto one varint per the multi-value proposal).
func (v *funcValidator) readBlockType() (BlockType, error) {
	peek := v.fn.Body[v.pos]
	if peek == 0x40 {
		v.pos++
		return BlockType{Kind: BlockTypeKindEmpty}, nil
	}
	switch ValueType(peek) {
	case ValueTypeI32, ValueTypeI64, ValueTypeF32, ValueTypeF64, ValueTypeV128, ValueTypeFuncref, ValueTypeExternref:
		v.pos++
		return BlockType{Kind: BlockTypeKindValue, Value: ValueType(peek)}, nil
	}
	idx, err := v.readI32()
	if err != nil {
		return BlockType{}, err
	}
	if idx < 0 {
		return BlockType{}, fmt.Errorf("negative block type index %d", idx)
	}
	return BlockType{Kind: BlockTypeKindIndex, Index: uint32(idx)}, nil
}

func (v *funcValidator) localType(idx uint32) (ValueType, error) {
	if int(idx) >= len(v.locals) {
		return 0, fmt.Errorf("local index %d out of range (I1)", idx)
	}
	return v.locals[idx], nil
}

// step decodes and validates exactly one operator, advancing v.pos past it.
func (v *funcValidator) step() error {
	opcodeByte, err := v.readByte()
	if err != nil {
		return err
	}
	opcode := Opcode(opcodeByte)
	prefix := Opcode(0)
	if opcode == OpcodeMiscPrefix || opcode == OpcodeSIMDPrefix {
		prefix = opcode
		sub, err := v.readU32()
		if err != nil {
			return err
		}
		opcode = Opcode(sub)
	}

	switch {
	case prefix == 0 && opcode == OpcodeBlock, prefix == 0 && opcode == OpcodeLoop:
		bt, err := v.readBlockType()
		if err != nil {
			return err
		}
		params, results, err := v.blockSignature(bt)
		if err != nil {
			return err
		}
		if err := v.popN(params); err != nil {
			return err
		}
		v.pushFrame(controlFrame{opcode: opcode, paramTypes: params, resultTypes: results, startHeight: len(v.stack)})
		v.pushN(params)
		return nil

	case prefix == 0 && opcode == OpcodeIf:
		bt, err := v.readBlockType()
		if err != nil {
			return err
		}
		params, results, err := v.blockSignature(bt)
		if err != nil {
			return err
		}
		if err := v.pop(ValueTypeI32); err != nil {
			return err
		}
		if err := v.popN(params); err != nil {
			return err
		}
		v.pushFrame(controlFrame{opcode: opcode, paramTypes: params, resultTypes: results, startHeight: len(v.stack)})
		v.pushN(params)
		return nil

	case prefix == 0 && opcode == OpcodeElse:
		f := v.curFrame()
		if f.opcode != OpcodeIf {
			return fmt.Errorf("else without matching if")
		}
		if err := v.popN(f.resultTypes); err != nil {
			return err
		}
		if len(v.stack) != f.startHeight {
			return fmt.Errorf("type mismatch: operands remain at else")
		}
		f.elseSeen = true
		f.unreachable = false
		v.pushN(f.paramTypes)
		return nil

	case prefix == 0 && opcode == OpcodeEnd:
		f := v.curFrame()
		if err := v.popN(f.resultTypes); err != nil {
			return err
		}
		if len(v.stack) != f.startHeight {
			return fmt.Errorf("type mismatch: operands remain at end")
		}
		if f.opcode == OpcodeIf && !f.elseSeen && !blockTypesEqual(f.paramTypes, f.resultTypes) {
			return fmt.Errorf("if without else must have matching param/result types (I6)")
		}
		results := f.resultTypes
		v.frames = v.frames[:len(v.frames)-1]
		if len(v.frames) > 0 {
			v.pushN(results)
		}
		return nil

	case prefix == 0 && opcode == OpcodeBr:
		depth, err := v.readU32()
		if err != nil {
			return err
		}
		f, err := v.frameAt(depth)
		if err != nil {
			return err
		}
		if err := v.popN(v.labelTypes(f)); err != nil {
			return err
		}
		v.setUnreachable()
		return nil

	case prefix == 0 && opcode == OpcodeBrIf:
		depth, err := v.readU32()
		if err != nil {
			return err
		}
		f, err := v.frameAt(depth)
		if err != nil {
			return err
		}
		if err := v.pop(ValueTypeI32); err != nil {
			return err
		}
		if err := v.popN(v.labelTypes(f)); err != nil {
			return err
		}
		v.pushN(v.labelTypes(f))
		return nil

	case prefix == 0 && opcode == OpcodeBrTable:
		count, err := v.readU32()
		if err != nil {
			return err
		}
		depths := make([]uint32, count+1)
		for i := range depths {
			d, err := v.readU32()
			if err != nil {
				return err
			}
			depths[i] = d
		}
		if err := v.pop(ValueTypeI32); err != nil {
			return err
		}
		defaultFrame, err := v.frameAt(depths[len(depths)-1])
		if err != nil {
			return err
		}
		arity := len(v.labelTypes(defaultFrame))
		for _, d := range depths {
			f, err := v.frameAt(d)
			if err != nil {
				return err
			}
			if len(v.labelTypes(f)) != arity {
				return fmt.Errorf("br_table: inconsistent label arity (I6)")
			}
		}
		if err := v.popN(v.labelTypes(defaultFrame)); err != nil {
			return err
		}
		v.setUnreachable()
		return nil

	case prefix == 0 && opcode == OpcodeReturn:
		if err := v.popN(v.ft.Results); err != nil {
			return err
		}
		v.setUnreachable()
		return nil

	case prefix == 0 && opcode == OpcodeCall:
		idx, err := v.readU32()
		if err != nil {
			return err
		}
		if idx >= v.m.FunctionSpace.Size() {
			return fmt.Errorf("call: function index %d out of range (I1)", idx)
		}
		ft := v.m.FunctionType(idx)
		if err := v.popN(ft.Params); err != nil {
			return err
		}
		v.pushN(ft.Results)
		return nil

	case prefix == 0 && opcode == OpcodeCallIndirect:
		typeIdx, err := v.readU32()
		if err != nil {
			return err
		}
		tableIdx, err := v.readU32()
		if err != nil {
			return err
		}
		if int(typeIdx) >= len(v.m.TypeSection) {
			return fmt.Errorf("call_indirect: type index %d out of range (I2)", typeIdx)
		}
		if tableIdx >= v.m.TableSpace.Size() {
			return fmt.Errorf("call_indirect: table index %d out of range (I1)", tableIdx)
		}
		if err := v.pop(ValueTypeI32); err != nil {
			return err
		}
		ft := v.m.TypeSection[typeIdx]
		if err := v.popN(ft.Params); err != nil {
			return err
		}
		v.pushN(ft.Results)
		return nil

	case prefix == 0 && opcode == OpcodeLocalGet:
		idx, err := v.readU32()
		if err != nil {
			return err
		}
		t, err := v.localType(idx)
		if err != nil {
			return err
		}
		v.push(t)
		return nil

	case prefix == 0 && opcode == OpcodeLocalSet, prefix == 0 && opcode == OpcodeLocalTee:
		idx, err := v.readU32()
		if err != nil {
			return err
		}
		t, err := v.localType(idx)
		if err != nil {
			return err
		}
		if err := v.pop(t); err != nil {
			return err
		}
		if opcode == OpcodeLocalTee {
			v.push(t)
		}
		return nil

	case prefix == 0 && opcode == OpcodeGlobalGet:
		idx, err := v.readU32()
		if err != nil {
			return err
		}
		if idx >= v.m.GlobalSpace.Size() {
			return fmt.Errorf("global.get: index %d out of range (I1)", idx)
		}
		v.push(v.m.GlobalType(idx).ValType)
		return nil

	case prefix == 0 && opcode == OpcodeGlobalSet:
		idx, err := v.readU32()
		if err != nil {
			return err
		}
		if idx >= v.m.GlobalSpace.Size() {
			return fmt.Errorf("global.set: index %d out of range (I1)", idx)
		}
		gt := v.m.GlobalType(idx)
		if !gt.Mutable {
			return fmt.Errorf("global.set: global %d is immutable", idx)
		}
		return v.pop(gt.ValType)

	case prefix == 0 && opcode == OpcodeI32Const:
		if _, err := v.readI32(); err != nil {
			return err
		}
		v.push(ValueTypeI32)
		return nil

	case prefix == 0 && opcode == OpcodeI64Const:
		if _, err := v.readI64(); err != nil {
			return err
		}
		v.push(ValueTypeI64)
		return nil

	case prefix == 0 && opcode == OpcodeF32Const:
		v.pos += 4
		v.push(ValueTypeF32)
		return nil

	case prefix == 0 && opcode == OpcodeF64Const:
		v.pos += 8
		v.push(ValueTypeF64)
		return nil

	case prefix == 0 && opcode == OpcodeDrop:
		return v.pop(unknownType)

	case prefix == 0 && opcode == OpcodeSelect:
		if err := v.pop(ValueTypeI32); err != nil {
			return err
		}
		f := v.curFrame()
		if len(v.stack)-f.startHeight >= 2 {
			t := v.stack[len(v.stack)-1]
			if err := v.pop(t); err != nil {
				return err
			}
			if err := v.pop(t); err != nil {
				return err
			}
			v.push(t)
			return nil
		}
		// Underflow relative to the current frame: only valid when the frame
		// is unreachable (polymorphic), in which case the missing operands
		// are unknownType and the result is too (§4.H).
		if err := v.pop(unknownType); err != nil {
			return err
		}
		if err := v.pop(unknownType); err != nil {
			return err
		}
		v.push(unknownType)
		return nil

	case prefix == 0 && opcode == OpcodeSelectT:
		count, err := v.readU32()
		if err != nil {
			return err
		}
		var t ValueType
		for i := uint32(0); i < count; i++ {
			b, err := v.readByte()
			if err != nil {
				return err
			}
			t = ValueType(b)
		}
		if err := v.pop(ValueTypeI32); err != nil {
			return err
		}
		if err := v.pop(t); err != nil {
			return err
		}
		if err := v.pop(t); err != nil {
			return err
		}
		v.push(t)
		return nil

	case prefix == 0 && opcode == OpcodeMemorySize, prefix == 0 && opcode == OpcodeMemoryGrow:
		if _, err := v.readU32(); err != nil {
			return err
		}
		if opcode == OpcodeMemoryGrow {
			if err := v.pop(ValueTypeI32); err != nil {
				return err
			}
		}
		v.push(ValueTypeI32)
		return nil

	case prefix == 0 && opcode == OpcodeRefNull:
		b, err := v.readByte()
		if err != nil {
			return err
		}
		v.push(ValueType(b))
		return nil

	case prefix == 0 && opcode == OpcodeRefIsNull:
		if err := v.pop(unknownType); err != nil {
			return err
		}
		v.push(ValueTypeI32)
		return nil

	case prefix == 0 && opcode == OpcodeRefFunc:
		idx, err := v.readU32()
		if err != nil {
			return err
		}
		if idx >= v.m.FunctionSpace.Size() {
			return fmt.Errorf("ref.func: function index %d out of range (I1)", idx)
		}
		v.push(ValueTypeFuncref)
		return nil

	case prefix == 0 && opcode == OpcodeUnreachable:
		v.setUnreachable()
		return nil

	case prefix == 0 && opcode == OpcodeNop:
		return nil

	default:
		return v.stepMemOrNumeric(prefix, opcode)
	}
}

// stepMemOrNumeric handles load/store (with a memarg immediate) and the
// remaining arithmetic/comparison/conversion operators via OperatorTable's
// declared StackEffect, which covers every operator not given bespoke
// control-flow handling above.
func (v *funcValidator) stepMemOrNumeric(prefix, opcode Opcode) error {
	op, ok := LookupOpcode(prefix, opcode)
	if !ok {
		return fmt.Errorf("unknown opcode %#x/%#x", prefix, opcode)
	}
	if err := v.m.Features.Require(op.Feature); err != nil {
		return err
	}
	switch op.Immediate {
	case ImmMemArg:
		if _, err := v.readU32(); err != nil { // align
			return err
		}
		if _, err := v.readU32(); err != nil { // offset
			return err
		}
	case ImmV128:
		if v.pos+16 > len(v.fn.Body) {
			return fmt.Errorf("unexpected end of function body")
		}
		v.pos += 16
	case ImmDataIndexMem, ImmElemIndexTable, ImmTableIndexPair:
		if _, err := v.readU32(); err != nil {
			return err
		}
		if _, err := v.readU32(); err != nil {
			return err
		}
	case ImmNone:
	default:
		if _, err := v.readU32(); err != nil {
			return err
		}
	}
	if op.Effect.Polymorphic {
		if err := v.popN(op.Effect.Pop); err != nil {
			return err
		}
		v.setUnreachable()
		return nil
	}
	if err := v.popN(op.Effect.Pop); err != nil {
		return err
	}
	v.pushN(op.Effect.Push)
	return nil
}

func (v *funcValidator) frameAt(depth uint32) (*controlFrame, error) {
	if int(depth) >= len(v.frames) {
		return nil, fmt.Errorf("branch depth %d exceeds nesting (I1)", depth)
	}
	return &v.frames[len(v.frames)-1-int(depth)], nil
}

func blockTypesEqual(a, b []ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
