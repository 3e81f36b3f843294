// Package binary implements the standard WebAssembly binary format codec:
// Decode parses bytes into the internal/wasm IR (spec.md component I),
// Encode serializes the IR back to bytes byte-exactly reproducing any input
// that was itself produced by Encode (component J, P1 round-trip).
package binary

import (
	"github.com/wavmgo/wavm/internal/leb128"
	"github.com/wavmgo/wavm/internal/wasm"
)

var magic = [4]byte{0x00, 0x61, 0x73, 0x6d}

const version uint32 = 1

// decoder is a forward-only cursor over a binary module's bytes, grounded
// on WAVM's Source/WASM/WASMSerialization.cpp input stream, which tracks a
// byte offset for LoadError reporting the same way.
type decoder struct {
	buf      []byte
	pos      int
	features wasm.Features
}

// Decode parses buf as a binary WebAssembly module. On success the
// returned Module has already passed Module.Validate and
// wasm.ValidateFunctions; on failure the error is always a *wasm.LoadError.
func Decode(buf []byte, features wasm.Features) (*wasm.Module, error) {
	d := &decoder{buf: buf, features: features}
	m, err := d.decodeModule()
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, wasm.NewInvalidError(d.pos, "%s", err)
	}
	if err := wasm.ValidateFunctions(m); err != nil {
		return nil, wasm.NewInvalidError(d.pos, "%s", err)
	}
	return m, nil
}

func (d *decoder) malformed(format string, args ...any) error {
	return wasm.NewMalformedError(d.pos, format, args...)
}

func (d *decoder) invalid(format string, args ...any) error {
	return wasm.NewInvalidError(d.pos, format, args...)
}

func (d *decoder) byte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, d.malformed("unexpected end of input")
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) bytesN(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, d.malformed("unexpected end of input")
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) u32() (uint32, error) {
	v, n, err := leb128.LoadUint32(d.buf[d.pos:])
	if err != nil {
		return 0, d.malformed("malformed varuint32: %s", err)
	}
	d.pos += int(n)
	return v, nil
}

func (d *decoder) u64() (uint64, error) {
	v, n, err := leb128.LoadUint64(d.buf[d.pos:])
	if err != nil {
		return 0, d.malformed("malformed varuint64: %s", err)
	}
	d.pos += int(n)
	return v, nil
}

func (d *decoder) i32() (int32, error) {
	v, n, err := leb128.LoadInt32(d.buf[d.pos:])
	if err != nil {
		return 0, d.malformed("malformed varint32: %s", err)
	}
	d.pos += int(n)
	return v, nil
}

func (d *decoder) i64() (int64, error) {
	v, n, err := leb128.LoadInt64(d.buf[d.pos:])
	if err != nil {
		return 0, d.malformed("malformed varint64: %s", err)
	}
	d.pos += int(n)
	return v, nil
}

func (d *decoder) name() (string, error) {
	n, err := d.u32()
	if err != nil {
		return "", err
	}
	b, err := d.bytesN(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) valueType() (wasm.ValueType, error) {
	b, err := d.byte()
	if err != nil {
		return 0, err
	}
	switch wasm.ValueType(b) {
	case wasm.ValueTypeI32, wasm.ValueTypeI64, wasm.ValueTypeF32, wasm.ValueTypeF64,
		wasm.ValueTypeV128, wasm.ValueTypeFuncref, wasm.ValueTypeExternref:
		return wasm.ValueType(b), nil
	}
	return 0, d.malformed("invalid value type %#x", b)
}

func (d *decoder) valueTypeVec() ([]wasm.ValueType, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]wasm.ValueType, n)
	for i := range out {
		if out[i], err = d.valueType(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *decoder) decodeModule() (*wasm.Module, error) {
	hdr, err := d.bytesN(4)
	if err != nil {
		return nil, err
	}
	if [4]byte(hdr[0:4:4]) != magic {
		return nil, d.malformed("invalid magic number")
	}
	ver, err := d.u32raw()
	if err != nil {
		return nil, err
	}
	if ver != version {
		return nil, d.malformed("unsupported binary version %d", ver)
	}

	m := &wasm.Module{Features: d.features}
	var lastSection wasm.SectionID = wasm.SectionIDCustom
	var funcTypeIdxs []wasm.Index
	var codeBodies [][]byte
	var codeLocals [][]wasm.ValueType

	for d.pos < len(d.buf) {
		id, err := d.byte()
		if err != nil {
			return nil, err
		}
		size, err := d.u32()
		if err != nil {
			return nil, err
		}
		sectionEnd := d.pos + int(size)
		if sectionEnd > len(d.buf) {
			return nil, d.malformed("section size exceeds input")
		}
		sid := wasm.SectionID(id)
		if sid != wasm.SectionIDCustom {
			if sid <= lastSection && sid != wasm.SectionIDCustom {
				return nil, d.malformed("section %s out of order", wasm.SectionIDName(sid))
			}
			lastSection = sid
		}
		switch sid {
		case wasm.SectionIDCustom:
			if err := d.decodeCustomSection(m, sectionEnd, lastSection); err != nil {
				return nil, err
			}
		case wasm.SectionIDType:
			if err := d.decodeTypeSection(m); err != nil {
				return nil, err
			}
		case wasm.SectionIDImport:
			if err := d.decodeImportSection(m); err != nil {
				return nil, err
			}
		case wasm.SectionIDFunction:
			if funcTypeIdxs, err = d.decodeFunctionSection(); err != nil {
				return nil, err
			}
		case wasm.SectionIDTable:
			if err := d.decodeTableSection(m); err != nil {
				return nil, err
			}
		case wasm.SectionIDMemory:
			if err := d.decodeMemorySection(m); err != nil {
				return nil, err
			}
		case wasm.SectionIDGlobal:
			if err := d.decodeGlobalSection(m); err != nil {
				return nil, err
			}
		case wasm.SectionIDExport:
			if err := d.decodeExportSection(m); err != nil {
				return nil, err
			}
		case wasm.SectionIDStart:
			idx, err := d.u32()
			if err != nil {
				return nil, err
			}
			m.StartFunction = &idx
		case wasm.SectionIDElement:
			if err := d.decodeElementSection(m); err != nil {
				return nil, err
			}
		case wasm.SectionIDDataCount:
			if _, err := d.u32(); err != nil {
				return nil, err
			}
		case wasm.SectionIDCode:
			if codeBodies, codeLocals, err = d.decodeCodeSection(); err != nil {
				return nil, err
			}
		case wasm.SectionIDData:
			if err := d.decodeDataSection(m); err != nil {
				return nil, err
			}
		default:
			d.pos = sectionEnd // skip unknown/unsupported section kind
		}
		if d.pos != sectionEnd {
			return nil, d.malformed("section %s: declared size does not match contents", wasm.SectionIDName(sid))
		}
	}

	if len(funcTypeIdxs) != len(codeBodies) {
		return nil, d.invalid("function and code section counts differ (%d vs %d)", len(funcTypeIdxs), len(codeBodies))
	}
	for i, typeIdx := range funcTypeIdxs {
		m.FunctionSpace.Defs = append(m.FunctionSpace.Defs, wasm.FunctionDef{
			TypeIndex:  typeIdx,
			LocalTypes: codeLocals[i],
			Body:       codeBodies[i],
		})
	}
	return m, nil
}

// u32raw reads a plain 4-byte little-endian value, used only for the fixed
// version field (not LEB128-encoded).
func (d *decoder) u32raw() (uint32, error) {
	b, err := d.bytesN(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (d *decoder) decodeFunctionType() (*wasm.FunctionType, error) {
	tag, err := d.byte()
	if err != nil {
		return nil, err
	}
	if tag != 0x60 {
		return nil, d.malformed("invalid function type tag %#x", tag)
	}
	params, err := d.valueTypeVec()
	if err != nil {
		return nil, err
	}
	results, err := d.valueTypeVec()
	if err != nil {
		return nil, err
	}
	return &wasm.FunctionType{Params: params, Results: results}, nil
}

func (d *decoder) decodeTypeSection(m *wasm.Module) error {
	n, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		ft, err := d.decodeFunctionType()
		if err != nil {
			return err
		}
		m.TypeSection = append(m.TypeSection, ft)
	}
	return nil
}

func (d *decoder) decodeLimits() (min, max uint64, hasMax bool, shared bool, index64 bool, err error) {
	flags, err := d.byte()
	if err != nil {
		return
	}
	hasMax = flags&0x01 != 0
	shared = flags&0x02 != 0
	index64 = flags&0x04 != 0
	if index64 {
		if min, err = d.u64(); err != nil {
			return
		}
		if hasMax {
			if max, err = d.u64(); err != nil {
				return
			}
		}
	} else {
		var m32 uint32
		if m32, err = d.u32(); err != nil {
			return
		}
		min = uint64(m32)
		if hasMax {
			var x32 uint32
			if x32, err = d.u32(); err != nil {
				return
			}
			max = uint64(x32)
		}
	}
	return
}

func (d *decoder) decodeTableType() (wasm.TableType, error) {
	elemType, err := d.byte()
	if err != nil {
		return wasm.TableType{}, err
	}
	if !wasm.IsReferenceType(wasm.ValueType(elemType)) {
		return wasm.TableType{}, d.malformed("invalid table element type %#x", elemType)
	}
	min, max, hasMax, shared, index64, err := d.decodeLimits()
	if err != nil {
		return wasm.TableType{}, err
	}
	tt := wasm.TableType{ElementType: wasm.ValueType(elemType), Shared: shared, Index64: index64, Min: min, Max: wasm.MaxUnbounded}
	if hasMax {
		tt.Max = max
	}
	return tt, nil
}

func (d *decoder) decodeMemoryType() (wasm.MemoryType, error) {
	min, max, hasMax, shared, index64, err := d.decodeLimits()
	if err != nil {
		return wasm.MemoryType{}, err
	}
	mt := wasm.MemoryType{Shared: shared, Index64: index64, Min: min, Max: wasm.MaxUnbounded}
	if hasMax {
		mt.Max = max
	}
	return mt, nil
}

func (d *decoder) decodeGlobalType() (wasm.GlobalType, error) {
	vt, err := d.valueType()
	if err != nil {
		return wasm.GlobalType{}, err
	}
	mutByte, err := d.byte()
	if err != nil {
		return wasm.GlobalType{}, err
	}
	if mutByte > 1 {
		return wasm.GlobalType{}, d.malformed("invalid global mutability %#x", mutByte)
	}
	return wasm.GlobalType{ValType: vt, Mutable: mutByte == 1}, nil
}

func (d *decoder) decodeImportSection(m *wasm.Module) error {
	n, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		mod, err := d.name()
		if err != nil {
			return err
		}
		field, err := d.name()
		if err != nil {
			return err
		}
		kind, err := d.byte()
		if err != nil {
			return err
		}
		switch wasm.ExternType(kind) {
		case wasm.ExternTypeFunc:
			idx, err := d.u32()
			if err != nil {
				return err
			}
			m.FunctionSpace.Imports = append(m.FunctionSpace.Imports, wasm.Import[wasm.Index]{Module: mod, Name: field, Type: idx})
		case wasm.ExternTypeTable:
			tt, err := d.decodeTableType()
			if err != nil {
				return err
			}
			m.TableSpace.Imports = append(m.TableSpace.Imports, wasm.Import[wasm.TableType]{Module: mod, Name: field, Type: tt})
		case wasm.ExternTypeMemory:
			mt, err := d.decodeMemoryType()
			if err != nil {
				return err
			}
			m.MemorySpace.Imports = append(m.MemorySpace.Imports, wasm.Import[wasm.MemoryType]{Module: mod, Name: field, Type: mt})
		case wasm.ExternTypeGlobal:
			gt, err := d.decodeGlobalType()
			if err != nil {
				return err
			}
			m.GlobalSpace.Imports = append(m.GlobalSpace.Imports, wasm.Import[wasm.GlobalType]{Module: mod, Name: field, Type: gt})
		default:
			return d.malformed("invalid import kind %#x", kind)
		}
	}
	return nil
}

func (d *decoder) decodeFunctionSection() ([]wasm.Index, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Index, n)
	for i := range out {
		if out[i], err = d.u32(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *decoder) decodeTableSection(m *wasm.Module) error {
	n, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		tt, err := d.decodeTableType()
		if err != nil {
			return err
		}
		m.TableSpace.Defs = append(m.TableSpace.Defs, wasm.TableDef{Type: tt})
	}
	return nil
}

func (d *decoder) decodeMemorySection(m *wasm.Module) error {
	n, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		mt, err := d.decodeMemoryType()
		if err != nil {
			return err
		}
		m.MemorySpace.Defs = append(m.MemorySpace.Defs, wasm.MemoryDef{Type: mt})
	}
	return nil
}

// decodeInitExpr decodes a constant expression: one const/global.get/
// ref.null/ref.func instruction followed by `end` (0x0b).
func (d *decoder) decodeInitExpr() (wasm.InitializerExpression, error) {
	op, err := d.byte()
	if err != nil {
		return wasm.InitializerExpression{}, err
	}
	var expr wasm.InitializerExpression
	switch wasm.Opcode(op) {
	case wasm.OpcodeI32Const:
		v, err := d.i32()
		if err != nil {
			return expr, err
		}
		expr = wasm.InitializerExpression{Opcode: wasm.InitExprI32Const, I32: v}
	case wasm.OpcodeI64Const:
		v, err := d.i64()
		if err != nil {
			return expr, err
		}
		expr = wasm.InitializerExpression{Opcode: wasm.InitExprI64Const, I64: v}
	case wasm.OpcodeF32Const:
		b, err := d.bytesN(4)
		if err != nil {
			return expr, err
		}
		expr = wasm.InitializerExpression{Opcode: wasm.InitExprF32Const, F32: le32(b)}
	case wasm.OpcodeF64Const:
		b, err := d.bytesN(8)
		if err != nil {
			return expr, err
		}
		expr = wasm.InitializerExpression{Opcode: wasm.InitExprF64Const, F64: le64(b)}
	case wasm.OpcodeGlobalGet:
		idx, err := d.u32()
		if err != nil {
			return expr, err
		}
		expr = wasm.InitializerExpression{Opcode: wasm.InitExprGlobalGet, Index: idx}
	case wasm.OpcodeRefNull:
		rt, err := d.byte()
		if err != nil {
			return expr, err
		}
		expr = wasm.InitializerExpression{Opcode: wasm.InitExprRefNull, RefType: wasm.ValueType(rt)}
	case wasm.OpcodeRefFunc:
		idx, err := d.u32()
		if err != nil {
			return expr, err
		}
		expr = wasm.InitializerExpression{Opcode: wasm.InitExprRefFunc, Index: idx}
	default:
		return expr, d.malformed("unsupported constant expression opcode %#x", op)
	}
	end, err := d.byte()
	if err != nil {
		return expr, err
	}
	if wasm.Opcode(end) != wasm.OpcodeEnd {
		return expr, d.malformed("constant expression missing end marker")
	}
	return expr, nil
}

func le32(b []byte) uint32 { return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24 }
func le64(b []byte) uint64 {
	return uint64(le32(b[0:4])) | uint64(le32(b[4:8]))<<32
}

func (d *decoder) decodeGlobalSection(m *wasm.Module) error {
	n, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		gt, err := d.decodeGlobalType()
		if err != nil {
			return err
		}
		init, err := d.decodeInitExpr()
		if err != nil {
			return err
		}
		m.GlobalSpace.Defs = append(m.GlobalSpace.Defs, wasm.GlobalDef{Type: gt, Init: init})
	}
	return nil
}

func (d *decoder) decodeExportSection(m *wasm.Module) error {
	n, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		name, err := d.name()
		if err != nil {
			return err
		}
		kind, err := d.byte()
		if err != nil {
			return err
		}
		idx, err := d.u32()
		if err != nil {
			return err
		}
		m.ExportSection = append(m.ExportSection, wasm.Export{Name: name, Type: wasm.ExternType(kind), Index: idx})
	}
	return nil
}

func (d *decoder) decodeElementSection(m *wasm.Module) error {
	n, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		flags, err := d.u32()
		if err != nil {
			return err
		}
		seg := wasm.ElemSegment{Type: wasm.ValueTypeFuncref}
		switch flags {
		case 0:
			seg.Mode = wasm.ElemModeActive
			off, err := d.decodeInitExpr()
			if err != nil {
				return err
			}
			seg.OffsetExpr = off
			idxs, err := d.funcIndexVec()
			if err != nil {
				return err
			}
			seg.Exprs = idxsToExprs(idxs)
		case 1:
			seg.Mode = wasm.ElemModePassive
			kind, err := d.byte()
			if err != nil {
				return err
			}
			_ = kind
			idxs, err := d.funcIndexVec()
			if err != nil {
				return err
			}
			seg.Exprs = idxsToExprs(idxs)
		case 2:
			seg.Mode = wasm.ElemModeActive
			seg.TableIndex, err = d.u32()
			if err != nil {
				return err
			}
			off, err := d.decodeInitExpr()
			if err != nil {
				return err
			}
			seg.OffsetExpr = off
			if _, err := d.byte(); err != nil {
				return err
			}
			idxs, err := d.funcIndexVec()
			if err != nil {
				return err
			}
			seg.Exprs = idxsToExprs(idxs)
		case 3:
			seg.Mode = wasm.ElemModeDeclared
			if _, err := d.byte(); err != nil {
				return err
			}
			idxs, err := d.funcIndexVec()
			if err != nil {
				return err
			}
			seg.Exprs = idxsToExprs(idxs)
		default:
			return d.malformed("unsupported element segment flags %d", flags)
		}
		m.ElemSection = append(m.ElemSection, seg)
	}
	return nil
}

func (d *decoder) funcIndexVec() ([]wasm.Index, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Index, n)
	for i := range out {
		if out[i], err = d.u32(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func idxsToExprs(idxs []wasm.Index) []wasm.ElemExpr {
	out := make([]wasm.ElemExpr, len(idxs))
	for i, idx := range idxs {
		out[i] = wasm.ElemExpr{Index: idx}
	}
	return out
}

func (d *decoder) decodeCodeSection() (bodies [][]byte, locals [][]wasm.ValueType, err error) {
	n, err := d.u32()
	if err != nil {
		return nil, nil, err
	}
	bodies = make([][]byte, n)
	locals = make([][]wasm.ValueType, n)
	for i := uint32(0); i < n; i++ {
		size, err := d.u32()
		if err != nil {
			return nil, nil, err
		}
		end := d.pos + int(size)
		if end > len(d.buf) {
			return nil, nil, d.malformed("function body exceeds section")
		}
		localsList, err := d.decodeLocals()
		if err != nil {
			return nil, nil, err
		}
		locals[i] = localsList
		bodies[i] = d.buf[d.pos:end]
		d.pos = end
	}
	return bodies, locals, nil
}

func (d *decoder) decodeLocals() ([]wasm.ValueType, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	var out []wasm.ValueType
	for i := uint32(0); i < n; i++ {
		count, err := d.u32()
		if err != nil {
			return nil, err
		}
		vt, err := d.valueType()
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < count; j++ {
			out = append(out, vt)
		}
	}
	return out, nil
}

func (d *decoder) decodeDataSection(m *wasm.Module) error {
	n, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		flags, err := d.u32()
		if err != nil {
			return err
		}
		var seg wasm.DataSegment
		switch flags {
		case 0:
			seg.Active = true
			off, err := d.decodeInitExpr()
			if err != nil {
				return err
			}
			seg.OffsetExpr = off
		case 1:
			seg.Active = false
		case 2:
			seg.Active = true
			seg.MemoryIndex, err = d.u32()
			if err != nil {
				return err
			}
			off, err := d.decodeInitExpr()
			if err != nil {
				return err
			}
			seg.OffsetExpr = off
		default:
			return d.malformed("unsupported data segment flags %d", flags)
		}
		ln, err := d.u32()
		if err != nil {
			return err
		}
		data, err := d.bytesN(int(ln))
		if err != nil {
			return err
		}
		seg.Init = append([]byte(nil), data...)
		m.DataSection = append(m.DataSection, seg)
	}
	return nil
}

func (d *decoder) decodeCustomSection(m *wasm.Module, sectionEnd int, after wasm.SectionID) error {
	name, err := d.name()
	if err != nil {
		return err
	}
	data := d.buf[d.pos:sectionEnd]
	d.pos = sectionEnd
	if name == "name" {
		// The name section is surfaced structurally via m.Names rather than
		// kept as a raw CustomSection, so Encode can regenerate its bytes
		// from Names instead of re-emitting this copy (which would
		// otherwise duplicate it on a decode/encode round trip).
		if names, err := decodeNameSection(data); err == nil {
			m.Names = names
		}
		return nil
	}
	m.CustomSections = append(m.CustomSections, wasm.CustomSection{
		Name:         name,
		Data:         append([]byte(nil), data...),
		AfterSection: after,
	})
	return nil
}
