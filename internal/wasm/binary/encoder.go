package binary

import (
	"github.com/wavmgo/wavm/internal/leb128"
	"github.com/wavmgo/wavm/internal/wasm"
)

// Encode renders m as standard WebAssembly binary bytes. It assumes m has
// already passed Module.Validate and wasm.ValidateFunctions; Encode itself
// performs no validation (component J mirrors the decoder's section layout
// exactly, so a Decode(Encode(m)) round trip reproduces m, P1).
func Encode(m *wasm.Module) []byte {
	var out []byte
	out = append(out, magic[:]...)
	out = append(out, encodeU32raw(version)...)

	emitCustoms := customSectionEmitter(m.CustomSections)
	emitCustoms(wasm.SectionIDCustom, &out)

	if len(m.TypeSection) > 0 {
		out = append(out, encodeSection(wasm.SectionIDType, encodeTypeSection(m))...)
	}
	emitCustoms(wasm.SectionIDType, &out)

	if len(m.FunctionSpace.Imports) > 0 || len(m.TableSpace.Imports) > 0 ||
		len(m.MemorySpace.Imports) > 0 || len(m.GlobalSpace.Imports) > 0 {
		out = append(out, encodeSection(wasm.SectionIDImport, encodeImportSection(m))...)
	}
	emitCustoms(wasm.SectionIDImport, &out)

	if len(m.FunctionSpace.Defs) > 0 {
		out = append(out, encodeSection(wasm.SectionIDFunction, encodeFunctionSection(m))...)
	}
	emitCustoms(wasm.SectionIDFunction, &out)

	if len(m.TableSpace.Defs) > 0 {
		out = append(out, encodeSection(wasm.SectionIDTable, encodeTableSection(m))...)
	}
	emitCustoms(wasm.SectionIDTable, &out)

	if len(m.MemorySpace.Defs) > 0 {
		out = append(out, encodeSection(wasm.SectionIDMemory, encodeMemorySection(m))...)
	}
	emitCustoms(wasm.SectionIDMemory, &out)

	if len(m.GlobalSpace.Defs) > 0 {
		out = append(out, encodeSection(wasm.SectionIDGlobal, encodeGlobalSection(m))...)
	}
	emitCustoms(wasm.SectionIDGlobal, &out)

	if len(m.ExportSection) > 0 {
		out = append(out, encodeSection(wasm.SectionIDExport, encodeExportSection(m))...)
	}
	emitCustoms(wasm.SectionIDExport, &out)

	if m.StartFunction != nil {
		out = append(out, encodeSection(wasm.SectionIDStart, leb128.EncodeUint32(*m.StartFunction))...)
	}
	emitCustoms(wasm.SectionIDStart, &out)

	if len(m.ElemSection) > 0 {
		out = append(out, encodeSection(wasm.SectionIDElement, encodeElementSection(m))...)
	}
	emitCustoms(wasm.SectionIDElement, &out)

	if len(m.FunctionSpace.Defs) > 0 {
		out = append(out, encodeSection(wasm.SectionIDCode, encodeCodeSection(m))...)
	}
	emitCustoms(wasm.SectionIDCode, &out)

	if len(m.DataSection) > 0 {
		out = append(out, encodeSection(wasm.SectionIDData, encodeDataSection(m))...)
	}
	emitCustoms(wasm.SectionIDData, &out)

	emitCustoms(wasm.SectionIDTag, &out) // flush any customs marked after data/datacount

	if m.Names != nil {
		body := encodeName("name")
		body = append(body, encodeNameSection(m.Names)...)
		out = append(out, encodeSection(wasm.SectionIDCustom, body)...)
	}

	return out
}

// customSectionEmitter returns a function that, called with each standard
// SectionID in ascending order as Encode walks them, appends any custom
// sections whose AfterSection marker matches (I5 ordering).
func customSectionEmitter(customs []wasm.CustomSection) func(wasm.SectionID, *[]byte) {
	i := 0
	return func(after wasm.SectionID, out *[]byte) {
		for i < len(customs) && customs[i].AfterSection <= after {
			cs := customs[i]
			body := encodeName(cs.Name)
			body = append(body, cs.Data...)
			*out = append(*out, encodeSection(wasm.SectionIDCustom, body)...)
			i++
		}
	}
}

func encodeU32raw(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func encodeSection(id wasm.SectionID, body []byte) []byte {
	out := []byte{byte(id)}
	out = append(out, leb128.EncodeUint32(uint32(len(body)))...)
	return append(out, body...)
}

func encodeValueTypeVec(vs []wasm.ValueType) []byte {
	out := leb128.EncodeUint32(uint32(len(vs)))
	for _, v := range vs {
		out = append(out, byte(v))
	}
	return out
}

func encodeFunctionType(ft *wasm.FunctionType) []byte {
	out := []byte{0x60}
	out = append(out, encodeValueTypeVec(ft.Params)...)
	out = append(out, encodeValueTypeVec(ft.Results)...)
	return out
}

func encodeTypeSection(m *wasm.Module) []byte {
	out := leb128.EncodeUint32(uint32(len(m.TypeSection)))
	for _, ft := range m.TypeSection {
		out = append(out, encodeFunctionType(ft)...)
	}
	return out
}

func encodeLimits(min, max uint64, hasMax, shared, index64 bool) []byte {
	var flags byte
	if hasMax {
		flags |= 0x01
	}
	if shared {
		flags |= 0x02
	}
	if index64 {
		flags |= 0x04
	}
	out := []byte{flags}
	if index64 {
		out = append(out, leb128.EncodeUint64(min)...)
		if hasMax {
			out = append(out, leb128.EncodeUint64(max)...)
		}
	} else {
		out = append(out, leb128.EncodeUint32(uint32(min))...)
		if hasMax {
			out = append(out, leb128.EncodeUint32(uint32(max))...)
		}
	}
	return out
}

func encodeTableType(tt wasm.TableType) []byte {
	out := []byte{byte(tt.ElementType)}
	out = append(out, encodeLimits(tt.Min, tt.Max, tt.Max != wasm.MaxUnbounded, tt.Shared, tt.Index64)...)
	return out
}

func encodeMemoryType(mt wasm.MemoryType) []byte {
	return encodeLimits(mt.Min, mt.Max, mt.Max != wasm.MaxUnbounded, mt.Shared, mt.Index64)
}

func encodeGlobalType(gt wasm.GlobalType) []byte {
	mut := byte(0)
	if gt.Mutable {
		mut = 1
	}
	return []byte{byte(gt.ValType), mut}
}

func encodeImportSection(m *wasm.Module) []byte {
	n := len(m.FunctionSpace.Imports) + len(m.TableSpace.Imports) +
		len(m.MemorySpace.Imports) + len(m.GlobalSpace.Imports)
	out := leb128.EncodeUint32(uint32(n))
	for _, imp := range m.FunctionSpace.Imports {
		out = append(out, encodeImportHeader(imp.Module, imp.Name, wasm.ExternTypeFunc)...)
		out = append(out, leb128.EncodeUint32(imp.Type)...)
	}
	for _, imp := range m.TableSpace.Imports {
		out = append(out, encodeImportHeader(imp.Module, imp.Name, wasm.ExternTypeTable)...)
		out = append(out, encodeTableType(imp.Type)...)
	}
	for _, imp := range m.MemorySpace.Imports {
		out = append(out, encodeImportHeader(imp.Module, imp.Name, wasm.ExternTypeMemory)...)
		out = append(out, encodeMemoryType(imp.Type)...)
	}
	for _, imp := range m.GlobalSpace.Imports {
		out = append(out, encodeImportHeader(imp.Module, imp.Name, wasm.ExternTypeGlobal)...)
		out = append(out, encodeGlobalType(imp.Type)...)
	}
	return out
}

func encodeImportHeader(mod, field string, kind wasm.ExternType) []byte {
	out := encodeName(mod)
	out = append(out, encodeName(field)...)
	return append(out, byte(kind))
}

func encodeFunctionSection(m *wasm.Module) []byte {
	out := leb128.EncodeUint32(uint32(len(m.FunctionSpace.Defs)))
	for _, d := range m.FunctionSpace.Defs {
		out = append(out, leb128.EncodeUint32(d.TypeIndex)...)
	}
	return out
}

func encodeTableSection(m *wasm.Module) []byte {
	out := leb128.EncodeUint32(uint32(len(m.TableSpace.Defs)))
	for _, d := range m.TableSpace.Defs {
		out = append(out, encodeTableType(d.Type)...)
	}
	return out
}

func encodeMemorySection(m *wasm.Module) []byte {
	out := leb128.EncodeUint32(uint32(len(m.MemorySpace.Defs)))
	for _, d := range m.MemorySpace.Defs {
		out = append(out, encodeMemoryType(d.Type)...)
	}
	return out
}

func encodeInitExpr(e wasm.InitializerExpression) []byte {
	var out []byte
	switch e.Opcode {
	case wasm.InitExprI32Const:
		out = append(out, byte(wasm.OpcodeI32Const))
		out = append(out, leb128.EncodeInt32(e.I32)...)
	case wasm.InitExprI64Const:
		out = append(out, byte(wasm.OpcodeI64Const))
		out = append(out, leb128.EncodeInt64(e.I64)...)
	case wasm.InitExprF32Const:
		out = append(out, byte(wasm.OpcodeF32Const))
		out = append(out, encodeU32raw(e.F32)...)
	case wasm.InitExprF64Const:
		out = append(out, byte(wasm.OpcodeF64Const))
		out = append(out, encodeU64raw(e.F64)...)
	case wasm.InitExprGlobalGet:
		out = append(out, byte(wasm.OpcodeGlobalGet))
		out = append(out, leb128.EncodeUint32(e.Index)...)
	case wasm.InitExprRefNull:
		out = append(out, byte(wasm.OpcodeRefNull), byte(e.RefType))
	case wasm.InitExprRefFunc:
		out = append(out, byte(wasm.OpcodeRefFunc))
		out = append(out, leb128.EncodeUint32(e.Index)...)
	}
	return append(out, byte(wasm.OpcodeEnd))
}

func encodeU64raw(v uint64) []byte {
	out := encodeU32raw(uint32(v))
	return append(out, encodeU32raw(uint32(v>>32))...)
}

func encodeGlobalSection(m *wasm.Module) []byte {
	out := leb128.EncodeUint32(uint32(len(m.GlobalSpace.Defs)))
	for _, d := range m.GlobalSpace.Defs {
		out = append(out, encodeGlobalType(d.Type)...)
		out = append(out, encodeInitExpr(d.Init)...)
	}
	return out
}

func encodeExportSection(m *wasm.Module) []byte {
	out := leb128.EncodeUint32(uint32(len(m.ExportSection)))
	for _, e := range m.ExportSection {
		out = append(out, encodeName(e.Name)...)
		out = append(out, byte(e.Type))
		out = append(out, leb128.EncodeUint32(e.Index)...)
	}
	return out
}

func encodeElementSection(m *wasm.Module) []byte {
	out := leb128.EncodeUint32(uint32(len(m.ElemSection)))
	for _, seg := range m.ElemSection {
		switch seg.Mode {
		case wasm.ElemModeActive:
			if seg.TableIndex == 0 {
				out = append(out, leb128.EncodeUint32(0)...)
				out = append(out, encodeInitExpr(seg.OffsetExpr)...)
				out = append(out, encodeFuncIndexVec(seg.Exprs)...)
			} else {
				out = append(out, leb128.EncodeUint32(2)...)
				out = append(out, leb128.EncodeUint32(seg.TableIndex)...)
				out = append(out, encodeInitExpr(seg.OffsetExpr)...)
				out = append(out, 0x00) // elemkind: funcref
				out = append(out, encodeFuncIndexVec(seg.Exprs)...)
			}
		case wasm.ElemModePassive:
			out = append(out, leb128.EncodeUint32(1)...)
			out = append(out, 0x00)
			out = append(out, encodeFuncIndexVec(seg.Exprs)...)
		case wasm.ElemModeDeclared:
			out = append(out, leb128.EncodeUint32(3)...)
			out = append(out, 0x00)
			out = append(out, encodeFuncIndexVec(seg.Exprs)...)
		}
	}
	return out
}

func encodeFuncIndexVec(exprs []wasm.ElemExpr) []byte {
	out := leb128.EncodeUint32(uint32(len(exprs)))
	for _, e := range exprs {
		out = append(out, leb128.EncodeUint32(e.Index)...)
	}
	return out
}

func encodeCodeSection(m *wasm.Module) []byte {
	out := leb128.EncodeUint32(uint32(len(m.FunctionSpace.Defs)))
	for _, fn := range m.FunctionSpace.Defs {
		body := encodeLocals(fn.LocalTypes)
		body = append(body, fn.Body...)
		out = append(out, leb128.EncodeUint32(uint32(len(body)))...)
		out = append(out, body...)
	}
	return out
}

// encodeLocals groups consecutive equal-typed locals into runs, the same
// compression the binary format's locals vector always uses (a singleton
// run per local is legal but wasteful; producers emit maximal runs).
func encodeLocals(locals []wasm.ValueType) []byte {
	type run struct {
		vt    wasm.ValueType
		count uint32
	}
	var runs []run
	for _, vt := range locals {
		if len(runs) > 0 && runs[len(runs)-1].vt == vt {
			runs[len(runs)-1].count++
		} else {
			runs = append(runs, run{vt: vt, count: 1})
		}
	}
	out := leb128.EncodeUint32(uint32(len(runs)))
	for _, r := range runs {
		out = append(out, leb128.EncodeUint32(r.count)...)
		out = append(out, byte(r.vt))
	}
	return out
}

func encodeDataSection(m *wasm.Module) []byte {
	out := leb128.EncodeUint32(uint32(len(m.DataSection)))
	for _, seg := range m.DataSection {
		switch {
		case seg.Active && seg.MemoryIndex == 0:
			out = append(out, leb128.EncodeUint32(0)...)
			out = append(out, encodeInitExpr(seg.OffsetExpr)...)
		case seg.Active:
			out = append(out, leb128.EncodeUint32(2)...)
			out = append(out, leb128.EncodeUint32(seg.MemoryIndex)...)
			out = append(out, encodeInitExpr(seg.OffsetExpr)...)
		default:
			out = append(out, leb128.EncodeUint32(1)...)
		}
		out = append(out, leb128.EncodeUint32(uint32(len(seg.Init)))...)
		out = append(out, seg.Init...)
	}
	return out
}
