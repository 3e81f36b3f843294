package text

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wavmgo/wavm/internal/leb128"
	"github.com/wavmgo/wavm/internal/wasm"
)

// PrintModule renders m as canonical WebAssembly text (component K). Every
// name present in m.Names is used as written; every unnamed function,
// table, memory, global, elem segment, data segment and local gets a
// synthesized name ("$f3", "$l1", ...) and an unnamed type is referred to
// by its numeric index, so the output always resolves
// deterministically regardless of whether the module carries a name
// section.
func PrintModule(m *wasm.Module) string {
	p := &printer{m: m}
	p.writeLine(0, "(module")
	p.printTypes()
	p.printImports()
	p.printFuncs()
	p.printTables()
	p.printMemories()
	p.printGlobals()
	p.printExports()
	p.printStart()
	p.printElems()
	p.printData()
	p.writeLine(0, ")")
	return p.buf.String()
}

type printer struct {
	m   *wasm.Module
	buf strings.Builder
}

func (p *printer) writeLine(indent int, format string, args ...any) {
	p.buf.WriteString(strings.Repeat("  ", indent))
	fmt.Fprintf(&p.buf, format, args...)
	p.buf.WriteByte('\n')
}

func (p *printer) typeName(idx wasm.Index) string {
	if p.m.Names != nil {
		if n, ok := p.m.Names.Types[idx]; ok {
			return "$" + n
		}
	}
	return fmt.Sprintf("%d", idx)
}

func (p *printer) funcName(idx wasm.Index) string {
	if p.m.Names != nil {
		if n, ok := p.m.Names.Functions[idx]; ok {
			return "$" + n
		}
	}
	return fmt.Sprintf("$f%d", idx)
}

func (p *printer) tableName(idx wasm.Index) string {
	if p.m.Names != nil {
		if n, ok := p.m.Names.Tables[idx]; ok {
			return "$" + n
		}
	}
	return fmt.Sprintf("$t%d", idx)
}

func (p *printer) memName(idx wasm.Index) string {
	if p.m.Names != nil {
		if n, ok := p.m.Names.Memories[idx]; ok {
			return "$" + n
		}
	}
	return fmt.Sprintf("$m%d", idx)
}

func (p *printer) globalName(idx wasm.Index) string {
	if p.m.Names != nil {
		if n, ok := p.m.Names.Globals[idx]; ok {
			return "$" + n
		}
	}
	return fmt.Sprintf("$g%d", idx)
}

func (p *printer) elemName(idx wasm.Index) string {
	if p.m.Names != nil {
		if n, ok := p.m.Names.Elems[idx]; ok {
			return "$" + n
		}
	}
	return fmt.Sprintf("$e%d", idx)
}

func (p *printer) dataName(idx wasm.Index) string {
	if p.m.Names != nil {
		if n, ok := p.m.Names.Data[idx]; ok {
			return "$" + n
		}
	}
	return fmt.Sprintf("$d%d", idx)
}

func (p *printer) localName(funcIdx, localIdx wasm.Index) string {
	if p.m.Names != nil {
		if locs, ok := p.m.Names.Locals[funcIdx]; ok {
			if n, ok := locs[localIdx]; ok {
				return "$" + n
			}
		}
	}
	return fmt.Sprintf("$l%d", localIdx)
}

func valueTypesText(ts []wasm.ValueType) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = wasm.ValueTypeName(t)
	}
	return strings.Join(parts, " ")
}

func paramsText(ts []wasm.ValueType) string {
	if len(ts) == 0 {
		return ""
	}
	return " (param " + valueTypesText(ts) + ")"
}

func resultsText(ts []wasm.ValueType) string {
	if len(ts) == 0 {
		return ""
	}
	return " (result " + valueTypesText(ts) + ")"
}

func limitsText(min, max uint64) string {
	if max == wasm.MaxUnbounded {
		return fmt.Sprintf("%d", min)
	}
	return fmt.Sprintf("%d %d", min, max)
}

func tableTypeText(tt wasm.TableType) string {
	return limitsText(tt.Min, tt.Max) + " " + wasm.ValueTypeName(tt.ElementType)
}

func memoryTypeText(mt wasm.MemoryType) string {
	return limitsText(mt.Min, mt.Max)
}

func globalTypeText(gt wasm.GlobalType) string {
	if gt.Mutable {
		return fmt.Sprintf("(mut %s)", wasm.ValueTypeName(gt.ValType))
	}
	return wasm.ValueTypeName(gt.ValType)
}

func (p *printer) printTypes() {
	for i, ft := range p.m.TypeSection {
		p.writeLine(1, "(type %s (func%s%s))", p.typeName(wasm.Index(i)), paramsText(ft.Params), resultsText(ft.Results))
	}
}

func (p *printer) printImports() {
	for i, imp := range p.m.FunctionSpace.Imports {
		p.writeLine(1, "(import %q %q (func %s (type %s)))", imp.Module, imp.Name, p.funcName(wasm.Index(i)), p.typeName(imp.Type))
	}
	for i, imp := range p.m.TableSpace.Imports {
		p.writeLine(1, "(import %q %q (table %s %s))", imp.Module, imp.Name, p.tableName(wasm.Index(i)), tableTypeText(imp.Type))
	}
	for i, imp := range p.m.MemorySpace.Imports {
		p.writeLine(1, "(import %q %q (memory %s %s))", imp.Module, imp.Name, p.memName(wasm.Index(i)), memoryTypeText(imp.Type))
	}
	for i, imp := range p.m.GlobalSpace.Imports {
		p.writeLine(1, "(import %q %q (global %s %s))", imp.Module, imp.Name, p.globalName(wasm.Index(i)), globalTypeText(imp.Type))
	}
}

func (p *printer) printFuncs() {
	base := wasm.Index(len(p.m.FunctionSpace.Imports))
	for i := range p.m.FunctionSpace.Defs {
		def := p.m.FunctionSpace.Defs[i]
		idx := base + wasm.Index(i)
		ft := p.m.TypeSection[def.TypeIndex]

		var sb strings.Builder
		for pi, t := range ft.Params {
			fmt.Fprintf(&sb, " (param %s %s)", p.localName(idx, wasm.Index(pi)), wasm.ValueTypeName(t))
		}
		p.writeLine(1, "(func %s (type %s)%s%s", p.funcName(idx), p.typeName(def.TypeIndex), sb.String(), resultsText(ft.Results))

		base2 := wasm.Index(len(ft.Params))
		for li, t := range def.LocalTypes {
			p.writeLine(2, "(local %s %s)", p.localName(idx, base2+wasm.Index(li)), wasm.ValueTypeName(t))
		}

		d := &disasm{p: p, body: def.Body, funcIdx: idx, indent: 2}
		for d.pos < len(d.body) {
			if d.step() {
				break
			}
		}

		p.writeLine(1, ")")
	}
}

func (p *printer) printTables() {
	base := wasm.Index(len(p.m.TableSpace.Imports))
	for i, def := range p.m.TableSpace.Defs {
		p.writeLine(1, "(table %s %s)", p.tableName(base+wasm.Index(i)), tableTypeText(def.Type))
	}
}

func (p *printer) printMemories() {
	base := wasm.Index(len(p.m.MemorySpace.Imports))
	for i, def := range p.m.MemorySpace.Defs {
		p.writeLine(1, "(memory %s %s)", p.memName(base+wasm.Index(i)), memoryTypeText(def.Type))
	}
}

func (p *printer) printGlobals() {
	base := wasm.Index(len(p.m.GlobalSpace.Imports))
	for i, def := range p.m.GlobalSpace.Defs {
		idx := base + wasm.Index(i)
		p.writeLine(1, "(global %s %s (%s))", p.globalName(idx), globalTypeText(def.Type), initExprText(p, def.Init))
	}
}

func (p *printer) printExports() {
	for _, exp := range p.m.ExportSection {
		p.writeLine(1, "(export %q (%s %s))", exp.Name, wasm.ExternTypeName(exp.Type), p.externRefText(exp.Type, exp.Index))
	}
}

func (p *printer) externRefText(et wasm.ExternType, idx wasm.Index) string {
	switch et {
	case wasm.ExternTypeFunc:
		return p.funcName(idx)
	case wasm.ExternTypeTable:
		return p.tableName(idx)
	case wasm.ExternTypeMemory:
		return p.memName(idx)
	case wasm.ExternTypeGlobal:
		return p.globalName(idx)
	default:
		return fmt.Sprintf("%d", idx)
	}
}

func (p *printer) printStart() {
	if p.m.StartFunction != nil {
		p.writeLine(1, "(start %s)", p.funcName(*p.m.StartFunction))
	}
}

func (p *printer) printElems() {
	for i, seg := range p.m.ElemSection {
		idx := wasm.Index(i)
		var items []string
		for _, e := range seg.Exprs {
			if e.IsNull {
				items = append(items, "(ref.null func)")
			} else {
				items = append(items, p.funcName(e.Index))
			}
		}
		switch seg.Mode {
		case wasm.ElemModeActive:
			p.writeLine(1, "(elem %s (table %s) (%s) func %s)", p.elemName(idx), p.tableName(seg.TableIndex),
				initExprText(p, seg.OffsetExpr), strings.Join(items, " "))
		case wasm.ElemModeDeclared:
			p.writeLine(1, "(elem %s declare func %s)", p.elemName(idx), strings.Join(items, " "))
		default:
			p.writeLine(1, "(elem %s func %s)", p.elemName(idx), strings.Join(items, " "))
		}
	}
}

func (p *printer) printData() {
	for i, seg := range p.m.DataSection {
		idx := wasm.Index(i)
		if seg.Active {
			p.writeLine(1, "(data %s (memory %s) (%s) %s)", p.dataName(idx), p.memName(seg.MemoryIndex),
				initExprText(p, seg.OffsetExpr), quoteBytes(seg.Init))
		} else {
			p.writeLine(1, "(data %s %s)", p.dataName(idx), quoteBytes(seg.Init))
		}
	}
}

func quoteBytes(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range b {
		switch {
		case c == '"' || c == '\\':
			fmt.Fprintf(&sb, "\\%02x", c)
		case c >= 0x20 && c < 0x7f:
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, "\\%02x", c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

func initExprText(p *printer, e wasm.InitializerExpression) string {
	switch e.Opcode {
	case wasm.InitExprI32Const:
		return fmt.Sprintf("i32.const %d", e.I32)
	case wasm.InitExprI64Const:
		return fmt.Sprintf("i64.const %d", e.I64)
	case wasm.InitExprF32Const:
		return "f32.const " + formatF32(e.F32)
	case wasm.InitExprF64Const:
		return "f64.const " + formatF64(e.F64)
	case wasm.InitExprGlobalGet:
		return "global.get " + p.globalName(e.Index)
	case wasm.InitExprRefNull:
		if e.RefType == wasm.ValueTypeExternref {
			return "ref.null extern"
		}
		return "ref.null func"
	case wasm.InitExprRefFunc:
		return "ref.func " + p.funcName(e.Index)
	default:
		return "unreachable"
	}
}

func formatF32(bits uint32) string {
	f := math.Float32frombits(bits)
	switch {
	case math.IsNaN(float64(f)):
		return "nan"
	case math.IsInf(float64(f), 1):
		return "inf"
	case math.IsInf(float64(f), -1):
		return "-inf"
	default:
		return strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
}

func formatF64(bits uint64) string {
	f := math.Float64frombits(bits)
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// disasm walks a function's raw opcode stream and renders flat-form
// instruction text, mirroring func_validation.go's step/stepMemOrNumeric
// decode logic opcode-for-opcode so anything func_parser.go can encode,
// this can print back.
type disasm struct {
	p       *printer
	body    []byte
	pos     int
	funcIdx wasm.Index
	indent  int
	depth   int
}

func (d *disasm) line(format string, args ...any) {
	d.p.writeLine(d.indent, format, args...)
}

func (d *disasm) readByte() byte {
	b := d.body[d.pos]
	d.pos++
	return b
}

func (d *disasm) readU32() uint32 {
	v, n, _ := leb128.LoadUint32(d.body[d.pos:])
	d.pos += int(n)
	return v
}

func (d *disasm) readI32() int32 {
	v, n, _ := leb128.LoadInt32(d.body[d.pos:])
	d.pos += int(n)
	return v
}

func (d *disasm) readI64() int64 {
	v, n, _ := leb128.LoadInt64(d.body[d.pos:])
	d.pos += int(n)
	return v
}

func (d *disasm) readRaw4() uint32 {
	b := d.body[d.pos : d.pos+4]
	d.pos += 4
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func (d *disasm) readRaw8() uint64 {
	lo := uint64(d.readRaw4())
	hi := uint64(d.readRaw4())
	return lo | hi<<32
}

func (d *disasm) readBlockType() wasm.BlockType {
	peek := d.body[d.pos]
	if peek == 0x40 {
		d.pos++
		return wasm.BlockType{Kind: wasm.BlockTypeKindEmpty}
	}
	if isValueTypeByte(peek) {
		d.pos++
		return wasm.BlockType{Kind: wasm.BlockTypeKindValue, Value: wasm.ValueType(peek)}
	}
	idx := d.readI32()
	return wasm.BlockType{Kind: wasm.BlockTypeKindIndex, Index: wasm.Index(idx)}
}

func isValueTypeByte(b byte) bool {
	switch wasm.ValueType(b) {
	case wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64,
		wasm.ValueTypeV128, wasm.ValueTypeFuncref, wasm.ValueTypeExternref:
		return true
	default:
		return false
	}
}

func blockTypeText(bt wasm.BlockType, p *printer) string {
	switch bt.Kind {
	case wasm.BlockTypeKindEmpty:
		return ""
	case wasm.BlockTypeKindValue:
		return " (result " + wasm.ValueTypeName(bt.Value) + ")"
	default:
		ft := p.m.TypeSection[bt.Index]
		return " (type " + p.typeName(bt.Index) + ")" + paramsText(ft.Params) + resultsText(ft.Results)
	}
}

// step decodes and prints exactly one operator, reporting whether it was
// the function body's own closing end (which has no textual counterpart;
// the function's closing paren plays that role).
func (d *disasm) step() bool {
	op := wasm.Opcode(d.readByte())
	switch op {
	case wasm.OpcodeUnreachable:
		d.line("unreachable")
	case wasm.OpcodeNop:
		d.line("nop")
	case wasm.OpcodeBlock, wasm.OpcodeLoop:
		bt := d.readBlockType()
		mnem := "block"
		if op == wasm.OpcodeLoop {
			mnem = "loop"
		}
		d.line("%s%s", mnem, blockTypeText(bt, d.p))
		d.depth++
		d.indent++
	case wasm.OpcodeIf:
		bt := d.readBlockType()
		d.line("if%s", blockTypeText(bt, d.p))
		d.depth++
		d.indent++
	case wasm.OpcodeElse:
		d.indent--
		d.line("else")
		d.indent++
	case wasm.OpcodeTry:
		bt := d.readBlockType()
		d.line("try%s", blockTypeText(bt, d.p))
		d.depth++
		d.indent++
	case wasm.OpcodeCatch:
		idx := d.readU32()
		d.indent--
		d.line("catch %d", idx)
		d.indent++
	case wasm.OpcodeCatchAll:
		d.indent--
		d.line("catch_all")
		d.indent++
	case wasm.OpcodeEnd:
		if d.depth == 0 {
			return true
		}
		d.depth--
		d.indent--
		d.line("end")
	case wasm.OpcodeBr:
		d.line("br %d", d.readU32())
	case wasm.OpcodeBrIf:
		d.line("br_if %d", d.readU32())
	case wasm.OpcodeBrTable:
		count := d.readU32()
		depths := make([]string, count+1)
		for i := range depths {
			depths[i] = fmt.Sprintf("%d", d.readU32())
		}
		d.line("br_table %s", strings.Join(depths, " "))
	case wasm.OpcodeReturn:
		d.line("return")
	case wasm.OpcodeCall:
		d.line("call %s", d.p.funcName(d.readU32()))
	case wasm.OpcodeCallIndirect:
		typeIdx := d.readU32()
		tableIdx := d.readU32()
		if tableIdx != 0 {
			d.line("call_indirect (table %s) (type %s)", d.p.tableName(tableIdx), d.p.typeName(typeIdx))
		} else {
			d.line("call_indirect (type %s)", d.p.typeName(typeIdx))
		}
	case wasm.OpcodeDrop:
		d.line("drop")
	case wasm.OpcodeSelect:
		d.line("select")
	case wasm.OpcodeSelectT:
		count := d.readU32()
		types := make([]string, count)
		for i := range types {
			types[i] = wasm.ValueTypeName(wasm.ValueType(d.readByte()))
		}
		d.line("select (result %s)", strings.Join(types, " "))
	case wasm.OpcodeLocalGet:
		d.line("local.get %s", d.p.localName(d.funcIdx, d.readU32()))
	case wasm.OpcodeLocalSet:
		d.line("local.set %s", d.p.localName(d.funcIdx, d.readU32()))
	case wasm.OpcodeLocalTee:
		d.line("local.tee %s", d.p.localName(d.funcIdx, d.readU32()))
	case wasm.OpcodeGlobalGet:
		d.line("global.get %s", d.p.globalName(d.readU32()))
	case wasm.OpcodeGlobalSet:
		d.line("global.set %s", d.p.globalName(d.readU32()))
	case wasm.OpcodeI32Const:
		d.line("i32.const %d", d.readI32())
	case wasm.OpcodeI64Const:
		d.line("i64.const %d", d.readI64())
	case wasm.OpcodeF32Const:
		d.line("f32.const %s", formatF32(d.readRaw4()))
	case wasm.OpcodeF64Const:
		d.line("f64.const %s", formatF64(d.readRaw8()))
	case wasm.OpcodeRefNull:
		if wasm.ValueType(d.readByte()) == wasm.ValueTypeExternref {
			d.line("ref.null extern")
		} else {
			d.line("ref.null func")
		}
	case wasm.OpcodeRefIsNull:
		d.line("ref.is_null")
	case wasm.OpcodeRefFunc:
		d.line("ref.func %s", d.p.funcName(d.readU32()))
	case wasm.OpcodeMemorySize:
		d.line("memory.size %s", d.p.memName(d.readU32()))
	case wasm.OpcodeMemoryGrow:
		d.line("memory.grow %s", d.p.memName(d.readU32()))
	case wasm.OpcodeMiscPrefix, wasm.OpcodeSIMDPrefix:
		sub := wasm.Opcode(d.readU32())
		d.stepGeneric(op, sub)
	default:
		d.stepGeneric(0, op)
	}
	return false
}

// stepGeneric prints every table-driven operator not handled by bespoke
// cases above, dispatching purely on ImmediateKind (mirrors
// func_validation.go's stepMemOrNumeric).
func (d *disasm) stepGeneric(prefix, opcode wasm.Opcode) {
	op, ok := wasm.LookupOpcode(prefix, opcode)
	if !ok {
		d.line(";; unknown opcode %#x %#x", prefix, opcode)
		return
	}
	switch op.Immediate {
	case wasm.ImmMemArg:
		align := d.readU32()
		offset := d.readU32()
		d.line("%s%s", op.Mnemonic, memArgText(op.Mnemonic, align, offset))
	case wasm.ImmV128:
		lanes := make([]string, 4)
		for i := range lanes {
			lanes[i] = fmt.Sprintf("%d", int32(d.readRaw4()))
		}
		d.line("v128.const i32x4 %s", strings.Join(lanes, " "))
	case wasm.ImmDataIndexMem:
		didx := d.readU32()
		midx := d.readU32()
		d.line("%s %s %s", op.Mnemonic, d.p.dataName(didx), d.p.memName(midx))
	case wasm.ImmElemIndexTable:
		eidx := d.readU32()
		tidx := d.readU32()
		d.line("%s %s %s", op.Mnemonic, d.p.elemName(eidx), d.p.tableName(tidx))
	case wasm.ImmTableIndexPair:
		dst := d.readU32()
		src := d.readU32()
		d.line("%s %s %s", op.Mnemonic, d.p.tableName(dst), d.p.tableName(src))
	case wasm.ImmTableIndex:
		d.line("%s %s", op.Mnemonic, d.p.tableName(d.readU32()))
	case wasm.ImmDataIndex:
		d.line("%s %s", op.Mnemonic, d.p.dataName(d.readU32()))
	case wasm.ImmElemIndex:
		d.line("%s %s", op.Mnemonic, d.p.elemName(d.readU32()))
	case wasm.ImmMemIndex:
		d.line("%s %s", op.Mnemonic, d.p.memName(d.readU32()))
	case wasm.ImmFuncIndex:
		d.line("%s %d", op.Mnemonic, d.readU32())
	case wasm.ImmBranchDepth:
		d.line("%s %d", op.Mnemonic, d.readU32())
	default:
		d.line("%s", op.Mnemonic)
	}
}

// memArgText renders a memory access's offset/align clauses, omitting each
// one that equals its default (0 for offset, the access's natural width
// for align) to keep common cases terse.
func memArgText(mnemonic string, align, offset uint32) string {
	var sb strings.Builder
	if offset != 0 {
		fmt.Fprintf(&sb, " offset=%d", offset)
	}
	if align != naturalAlignLog2(mnemonic) {
		fmt.Fprintf(&sb, " align=%d", uint32(1)<<align)
	}
	return sb.String()
}
