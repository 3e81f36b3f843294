package text

import (
	"strconv"
	"strings"

	"github.com/wavmgo/wavm/internal/wasm"
)

// pass1Types fully resolves the type section: function signatures have no
// forward references, so they can be built in one pass over the file.
func (p *parser) pass1Types(children []childSpan) error {
	for _, c := range children {
		if p.keyword(c) != "type" {
			continue
		}
		i := c.Start + 2
		nameTok := -1
		if p.kindAt(i) == TokenID {
			nameTok = i
			i++
		}
		ft, err := p.parseFuncType(i, c.End-1)
		if err != nil {
			return err
		}
		idx := wasm.Index(len(p.m.TypeSection))
		p.m.TypeSection = append(p.m.TypeSection, ft)
		if nameTok >= 0 {
			p.bindName(p.typeNames, nameTok, idx, namesMap(&p.m.Names.Types))
		}
	}
	return nil
}

// parseFuncType parses "(func (param ...)* (result ...)*)" starting at the
// '(' of "(func" within [start, end).
func (p *parser) parseFuncType(start, end int) (*wasm.FunctionType, error) {
	if !(p.isLParen(start) && p.wordAt(start+1) == "func") {
		return &wasm.FunctionType{}, nil
	}
	fc := p.splitChildren(start+2, p.matchingRParen(start))
	var params, results []wasm.ValueType
	for _, c := range fc {
		switch p.keyword(c) {
		case "param":
			vs, err := p.parseValueTypeList(c.Start+2, c.End-1)
			if err != nil {
				return nil, err
			}
			params = append(params, vs...)
		case "result":
			vs, err := p.parseValueTypeList(c.Start+2, c.End-1)
			if err != nil {
				return nil, err
			}
			results = append(results, vs...)
		}
	}
	return &wasm.FunctionType{Params: params, Results: results}, nil
}

func (p *parser) parseValueType(tok int) (wasm.ValueType, error) {
	switch p.wordAt(tok) {
	case "i32":
		return wasm.ValueTypeI32, nil
	case "i64":
		return wasm.ValueTypeI64, nil
	case "f32":
		return wasm.ValueTypeF32, nil
	case "f64":
		return wasm.ValueTypeF64, nil
	case "v128":
		return wasm.ValueTypeV128, nil
	case "funcref":
		return wasm.ValueTypeFuncref, nil
	case "externref":
		return wasm.ValueTypeExternref, nil
	default:
		return 0, p.errAt(tok, "expected value type, got %q", p.textAt(tok))
	}
}

func (p *parser) parseValueTypeList(start, end int) ([]wasm.ValueType, error) {
	var out []wasm.ValueType
	for i := start; i < end; i++ {
		vt, err := p.parseValueType(i)
		if err != nil {
			return nil, err
		}
		out = append(out, vt)
	}
	return out, nil
}

// pass2Register walks every non-type top-level form once, assigning each
// declared item its final index space slot and binding its optional name,
// without yet building bodies/init-expressions. This is what lets pass3
// resolve a forward reference (a call to a function declared later in the
// file, for instance) on first use.
func (p *parser) pass2Register(children []childSpan) error {
	for _, c := range children {
		switch p.keyword(c) {
		case "import":
			if err := p.registerImport(c); err != nil {
				return err
			}
		case "func":
			nameTok := c.Start + 2
			idx := p.m.FunctionSpace.Size()
			if p.kindAt(nameTok) == TokenID {
				p.bindName(p.funcNames, nameTok, idx, namesMap(&p.m.Names.Functions))
			}
			p.m.FunctionSpace.Defs = append(p.m.FunctionSpace.Defs, wasm.FunctionDef{})
		case "table":
			nameTok := c.Start + 2
			idx := p.m.TableSpace.Size()
			if p.kindAt(nameTok) == TokenID {
				p.bindName(p.tableNames, nameTok, idx, namesMap(&p.m.Names.Tables))
			}
			p.m.TableSpace.Defs = append(p.m.TableSpace.Defs, wasm.TableDef{})
		case "memory":
			nameTok := c.Start + 2
			idx := p.m.MemorySpace.Size()
			if p.kindAt(nameTok) == TokenID {
				p.bindName(p.memNames, nameTok, idx, namesMap(&p.m.Names.Memories))
			}
			p.m.MemorySpace.Defs = append(p.m.MemorySpace.Defs, wasm.MemoryDef{})
		case "global":
			nameTok := c.Start + 2
			idx := p.m.GlobalSpace.Size()
			if p.kindAt(nameTok) == TokenID {
				p.bindName(p.globalNames, nameTok, idx, namesMap(&p.m.Names.Globals))
			}
			p.m.GlobalSpace.Defs = append(p.m.GlobalSpace.Defs, wasm.GlobalDef{})
		case "elem":
			nameTok := c.Start + 2
			idx := wasm.Index(len(p.m.ElemSection))
			if p.kindAt(nameTok) == TokenID {
				p.bindName(p.elemNames, nameTok, idx, namesMap(&p.m.Names.Elems))
			}
			p.m.ElemSection = append(p.m.ElemSection, wasm.ElemSegment{})
		case "data":
			if max := p.limits.MaxDataSegments; max > 0 && uint32(len(p.m.DataSection)) >= max {
				return p.errAt(c.Start, "module exceeds the maximum of %d data segments", max)
			}
			nameTok := c.Start + 2
			idx := wasm.Index(len(p.m.DataSection))
			if p.kindAt(nameTok) == TokenID {
				p.bindName(p.dataNames, nameTok, idx, namesMap(&p.m.Names.Data))
			}
			p.m.DataSection = append(p.m.DataSection, wasm.DataSegment{})
		}
	}
	return nil
}

func (p *parser) registerImport(c childSpan) error {
	descStart := c.Start + 4 // "(import" <mod> <name>
	if p.kindAt(descStart) != TokenLParen {
		return p.errAt(descStart, "expected import description")
	}
	kind := p.wordAt(descStart + 1)
	nameTok := descStart + 2
	switch kind {
	case "func":
		idx := p.m.FunctionSpace.Size()
		if p.kindAt(nameTok) == TokenID {
			p.bindName(p.funcNames, nameTok, idx, namesMap(&p.m.Names.Functions))
		}
		p.m.FunctionSpace.Imports = append(p.m.FunctionSpace.Imports, wasm.Import[wasm.Index]{})
	case "table":
		idx := p.m.TableSpace.Size()
		if p.kindAt(nameTok) == TokenID {
			p.bindName(p.tableNames, nameTok, idx, namesMap(&p.m.Names.Tables))
		}
		p.m.TableSpace.Imports = append(p.m.TableSpace.Imports, wasm.Import[wasm.TableType]{})
	case "memory":
		idx := p.m.MemorySpace.Size()
		if p.kindAt(nameTok) == TokenID {
			p.bindName(p.memNames, nameTok, idx, namesMap(&p.m.Names.Memories))
		}
		p.m.MemorySpace.Imports = append(p.m.MemorySpace.Imports, wasm.Import[wasm.MemoryType]{})
	case "global":
		idx := p.m.GlobalSpace.Size()
		if p.kindAt(nameTok) == TokenID {
			p.bindName(p.globalNames, nameTok, idx, namesMap(&p.m.Names.Globals))
		}
		p.m.GlobalSpace.Imports = append(p.m.GlobalSpace.Imports, wasm.Import[wasm.GlobalType]{})
	default:
		return p.errAt(descStart+1, "unknown import description %q", kind)
	}
	return nil
}

// pass3Build builds every declaration's full content in file order, now
// that every index space's final size and name bindings are known. Import
// counters track position within each extern kind's import prefix since
// pass2Register appended placeholder slots in the same file order.
func (p *parser) pass3Build(children []childSpan) error {
	var counters importCounters
	funcIdx := wasm.Index(len(p.m.FunctionSpace.Imports))
	tableIdx := wasm.Index(len(p.m.TableSpace.Imports))
	memIdx := wasm.Index(len(p.m.MemorySpace.Imports))
	globalIdx := wasm.Index(len(p.m.GlobalSpace.Imports))
	var elemIdx, dataIdx wasm.Index
	for _, c := range children {
		switch p.keyword(c) {
		case "import":
			if err := p.buildImport(c, &counters); err != nil {
				return err
			}
		case "func":
			if err := p.buildFunc(c, funcIdx); err != nil {
				p.errs = append(p.errs, err)
			}
			funcIdx++
		case "table":
			if err := p.buildTable(c, tableIdx); err != nil {
				return err
			}
			tableIdx++
		case "memory":
			if err := p.buildMemory(c, memIdx); err != nil {
				return err
			}
			memIdx++
		case "global":
			if err := p.buildGlobal(c, globalIdx); err != nil {
				return err
			}
			globalIdx++
		case "export":
			if err := p.buildExport(c); err != nil {
				return err
			}
		case "start":
			if err := p.buildStart(c); err != nil {
				return err
			}
		case "elem":
			if err := p.buildElem(c, elemIdx); err != nil {
				return err
			}
			elemIdx++
		case "data":
			if err := p.buildData(c, dataIdx); err != nil {
				return err
			}
			dataIdx++
		}
	}
	return nil
}

type importCounters struct {
	fn, table, mem, global wasm.Index
}

func (p *parser) resolveExternKind(word string) (wasm.ExternType, bool) {
	switch word {
	case "func":
		return wasm.ExternTypeFunc, true
	case "table":
		return wasm.ExternTypeTable, true
	case "memory":
		return wasm.ExternTypeMemory, true
	case "global":
		return wasm.ExternTypeGlobal, true
	}
	return 0, false
}

func (p *parser) namesFor(kind wasm.ExternType) map[string]wasm.Index {
	switch kind {
	case wasm.ExternTypeFunc:
		return p.funcNames
	case wasm.ExternTypeTable:
		return p.tableNames
	case wasm.ExternTypeMemory:
		return p.memNames
	case wasm.ExternTypeGlobal:
		return p.globalNames
	}
	return nil
}

func (p *parser) buildImport(c childSpan, counters *importCounters) error {
	modTok, nameTok := c.Start+2, c.Start+3
	mod, field := p.stringLiteral(modTok), p.stringLiteral(nameTok)
	descStart := c.Start + 4
	descEnd := p.matchingRParen(descStart)
	kind, _ := p.resolveExternKind(p.wordAt(descStart + 1))
	body := descStart + 2
	if p.kindAt(body) == TokenID {
		body++ // optional name, already bound in pass2
	}
	switch kind {
	case wasm.ExternTypeFunc:
		typeIdx, _, _, _, err := p.parseTypeUse(body, descEnd)
		if err != nil {
			return err
		}
		p.m.FunctionSpace.Imports[counters.fn] = wasm.Import[wasm.Index]{Module: mod, Name: field, Type: typeIdx}
		counters.fn++
	case wasm.ExternTypeTable:
		tt, err := p.parseTableType(body, descEnd)
		if err != nil {
			return err
		}
		p.m.TableSpace.Imports[counters.table] = wasm.Import[wasm.TableType]{Module: mod, Name: field, Type: tt}
		counters.table++
	case wasm.ExternTypeMemory:
		mt, err := p.parseMemoryType(body, descEnd)
		if err != nil {
			return err
		}
		p.m.MemorySpace.Imports[counters.mem] = wasm.Import[wasm.MemoryType]{Module: mod, Name: field, Type: mt}
		counters.mem++
	case wasm.ExternTypeGlobal:
		gt, err := p.parseGlobalType(body, descEnd)
		if err != nil {
			return err
		}
		p.m.GlobalSpace.Imports[counters.global] = wasm.Import[wasm.GlobalType]{Module: mod, Name: field, Type: gt}
		counters.global++
	}
	return nil
}

func (p *parser) stringLiteral(tok int) string {
	if p.kindAt(tok) != TokenString {
		return ""
	}
	return unescapeString(p.textAt(tok))
}

// unescapeString decodes a lexed string literal's quotes and backslash
// escapes (\n \t \r \\ \' \" \xx raw hex byte, \u{XXXX} unicode scalar).
func unescapeString(raw string) string {
	if len(raw) < 2 {
		return ""
	}
	s := raw[1 : len(raw)-1]
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case '\'':
			b.WriteByte('\'')
		case '"':
			b.WriteByte('"')
		case 'u':
			if i+1 < len(s) && s[i+1] == '{' {
				j := i + 2
				for j < len(s) && s[j] != '}' {
					j++
				}
				if v, err := strconv.ParseUint(s[i+2:j], 16, 32); err == nil {
					b.WriteRune(rune(v))
				}
				i = j
			}
		default:
			if i+1 < len(s) && isHexDigit(s[i]) && isHexDigit(s[i+1]) {
				if v, err := strconv.ParseUint(s[i:i+2], 16, 8); err == nil {
					b.WriteByte(byte(v))
				}
				i++
			}
		}
	}
	return b.String()
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (p *parser) parseTableType(start, end int) (wasm.TableType, error) {
	min, max, hasMax, err := p.parseLimits(start)
	if err != nil {
		return wasm.TableType{}, err
	}
	elemTok := start
	for p.kindAt(elemTok) == TokenWord && LooksLikeNumber(p.wordAt(elemTok)) {
		elemTok++
	}
	vt, err := p.parseValueType(elemTok)
	if err != nil {
		return wasm.TableType{}, err
	}
	tt := wasm.TableType{ElementType: vt, Min: min, Max: wasm.MaxUnbounded}
	if hasMax {
		tt.Max = max
	}
	return tt, nil
}

func (p *parser) parseLimits(start int) (min, max uint64, hasMax bool, err error) {
	min, err = ParseUint64(p.wordAt(start))
	if err != nil {
		return 0, 0, false, p.errAt(start, "expected limits minimum: %s", err)
	}
	if p.kindAt(start+1) == TokenWord && LooksLikeNumber(p.wordAt(start+1)) {
		max, err = ParseUint64(p.wordAt(start + 1))
		if err != nil {
			return 0, 0, false, p.errAt(start+1, "expected limits maximum: %s", err)
		}
		hasMax = true
	}
	return min, max, hasMax, nil
}

func (p *parser) parseMemoryType(start, end int) (wasm.MemoryType, error) {
	min, max, hasMax, err := p.parseLimits(start)
	if err != nil {
		return wasm.MemoryType{}, err
	}
	mt := wasm.MemoryType{Min: min, Max: wasm.MaxUnbounded}
	if hasMax {
		mt.Max = max
	}
	return mt, nil
}

func (p *parser) parseGlobalType(start, end int) (wasm.GlobalType, error) {
	if p.isLParen(start) && p.wordAt(start+1) == "mut" {
		vt, err := p.parseValueType(start + 2)
		return wasm.GlobalType{ValType: vt, Mutable: true}, err
	}
	vt, err := p.parseValueType(start)
	return wasm.GlobalType{ValType: vt}, err
}

// parseTypeUse parses the "typeuse" production: an optional "(type ref)"
// followed by zero or more "(param ...)"/"(result ...)" clauses, returning
// the resolved TypeSection index (deduplicating a freshly-built signature
// when no explicit type reference is given) and the position just past the
// clauses it consumed.
func (p *parser) parseTypeUse(start, end int) (typeIdx wasm.Index, params, results []wasm.ValueType, next int, err error) {
	i := start
	hasType := false
	if p.isLParen(i) && p.wordAt(i+1) == "type" {
		idx, rerr := p.resolveRef(p.typeNames, i+2)
		if rerr != nil {
			return 0, nil, nil, i, rerr
		}
		typeIdx = idx
		hasType = true
		i = p.matchingRParen(i) + 1
	}
loop:
	for i < end && p.isLParen(i) {
		switch p.wordAt(i + 1) {
		case "param":
			vs, perr := p.parseValueTypeList(i+2, p.matchingRParen(i))
			if perr != nil {
				return 0, nil, nil, i, perr
			}
			params = append(params, vs...)
		case "result":
			vs, perr := p.parseValueTypeList(i+2, p.matchingRParen(i))
			if perr != nil {
				return 0, nil, nil, i, perr
			}
			results = append(results, vs...)
		default:
			break loop
		}
		i = p.matchingRParen(i) + 1
	}
	if hasType {
		if len(params) == 0 && len(results) == 0 && int(typeIdx) < len(p.m.TypeSection) {
			ft := p.m.TypeSection[typeIdx]
			params, results = ft.Params, ft.Results
		}
		return typeIdx, params, results, i, nil
	}
	typeIdx = p.m.DedupType(&wasm.FunctionType{Params: params, Results: results})
	return typeIdx, params, results, i, nil
}

func (p *parser) buildTable(c childSpan, idx wasm.Index) error {
	i := c.Start + 2
	if p.kindAt(i) == TokenID {
		i++
	}
	tt, err := p.parseTableType(i, c.End-1)
	if err != nil {
		return err
	}
	*p.m.TableSpace.Def(idx) = wasm.TableDef{Type: tt}
	return nil
}

func (p *parser) buildMemory(c childSpan, idx wasm.Index) error {
	i := c.Start + 2
	if p.kindAt(i) == TokenID {
		i++
	}
	mt, err := p.parseMemoryType(i, c.End-1)
	if err != nil {
		return err
	}
	*p.m.MemorySpace.Def(idx) = wasm.MemoryDef{Type: mt}
	return nil
}

func (p *parser) buildGlobal(c childSpan, idx wasm.Index) error {
	i := c.Start + 2
	if p.kindAt(i) == TokenID {
		i++
	}
	var gt wasm.GlobalType
	var err error
	if p.isLParen(i) && p.wordAt(i+1) == "mut" {
		gt, err = p.parseGlobalType(i, p.matchingRParen(i)+1)
		i = p.matchingRParen(i) + 1
	} else {
		gt, err = p.parseGlobalType(i, i+1)
		i++
	}
	if err != nil {
		return err
	}
	init, err := p.parseConstExpr(i, c.End-1)
	if err != nil {
		return err
	}
	*p.m.GlobalSpace.Def(idx) = wasm.GlobalDef{Type: gt, Init: init}
	return nil
}

// parseConstExpr parses the only constant-expression forms a global
// initializer or a segment base offset may use: a single folded
// instruction "(i32.const 7)" or the equivalent flat form "i32.const 7".
func (p *parser) parseConstExpr(start, end int) (wasm.InitializerExpression, error) {
	if p.isLParen(start) {
		mnem := p.wordAt(start + 1)
		return p.constExprByMnemonic(mnem, start+2, p.matchingRParen(start))
	}
	mnem := p.wordAt(start)
	return p.constExprByMnemonic(mnem, start+1, end)
}

func (p *parser) constExprByMnemonic(mnem string, operandStart, operandEnd int) (wasm.InitializerExpression, error) {
	switch mnem {
	case "i32.const":
		v, err := ParseInt32(p.wordAt(operandStart))
		return wasm.InitializerExpression{Opcode: wasm.InitExprI32Const, I32: v}, err
	case "i64.const":
		v, err := ParseInt64(p.wordAt(operandStart))
		return wasm.InitializerExpression{Opcode: wasm.InitExprI64Const, I64: v}, err
	case "f32.const":
		v, err := ParseFloat32Bits(p.wordAt(operandStart))
		return wasm.InitializerExpression{Opcode: wasm.InitExprF32Const, F32: v}, err
	case "f64.const":
		v, err := ParseFloat64Bits(p.wordAt(operandStart))
		return wasm.InitializerExpression{Opcode: wasm.InitExprF64Const, F64: v}, err
	case "global.get":
		idx, err := p.resolveRef(p.globalNames, operandStart)
		return wasm.InitializerExpression{Opcode: wasm.InitExprGlobalGet, Index: idx}, err
	case "ref.null":
		switch p.wordAt(operandStart) {
		case "func", "funcref":
			return wasm.InitializerExpression{Opcode: wasm.InitExprRefNull, RefType: wasm.ValueTypeFuncref}, nil
		case "extern", "externref":
			return wasm.InitializerExpression{Opcode: wasm.InitExprRefNull, RefType: wasm.ValueTypeExternref}, nil
		default:
			return wasm.InitializerExpression{}, p.errAt(operandStart, "expected func or extern after ref.null")
		}
	case "ref.func":
		idx, err := p.resolveRef(p.funcNames, operandStart)
		return wasm.InitializerExpression{Opcode: wasm.InitExprRefFunc, Index: idx}, err
	default:
		return wasm.InitializerExpression{}, p.errAt(operandStart-1, "unsupported constant expression %q", mnem)
	}
}

func (p *parser) buildExport(c childSpan) error {
	nameTok := c.Start + 2
	descStart := c.Start + 3
	kind, ok := p.resolveExternKind(p.wordAt(descStart + 1))
	if !ok {
		return p.errAt(descStart+1, "unknown export description")
	}
	idx, err := p.resolveRef(p.namesFor(kind), descStart+2)
	if err != nil {
		return err
	}
	p.m.ExportSection = append(p.m.ExportSection, wasm.Export{
		Name: unescapeString(p.textAt(nameTok)), Type: kind, Index: idx,
	})
	return nil
}

func (p *parser) buildStart(c childSpan) error {
	idx, err := p.resolveRef(p.funcNames, c.Start+2)
	if err != nil {
		return err
	}
	p.m.StartFunction = &idx
	return nil
}

func (p *parser) buildElem(c childSpan, idx wasm.Index) error {
	i := c.Start + 2
	if p.kindAt(i) == TokenID {
		i++
	}
	seg := wasm.ElemSegment{Type: wasm.ValueTypeFuncref, Mode: wasm.ElemModeActive}
	switch {
	case p.wordAt(i) == "declare":
		seg.Mode = wasm.ElemModeDeclared
		i++
		if p.wordAt(i) == "func" {
			i++
		}
	case p.isLParen(i) && p.wordAt(i+1) == "table":
		tidx, err := p.resolveRef(p.tableNames, i+2)
		if err != nil {
			return err
		}
		seg.TableIndex = tidx
		i = p.matchingRParen(i) + 1
		off, next, err := p.parseElemOffset(i)
		if err != nil {
			return err
		}
		seg.OffsetExpr = off
		i = next
		if p.wordAt(i) == "func" {
			i++
		}
	case p.isLParen(i) && p.wordAt(i+1) == "offset":
		off, next, err := p.parseElemOffset(i)
		if err != nil {
			return err
		}
		seg.OffsetExpr = off
		i = next
		if p.wordAt(i) == "func" {
			i++
		}
	case p.wordAt(i) == "func":
		i++
	default:
		off, next, err := p.parseElemOffset(i)
		if err != nil {
			return err
		}
		seg.OffsetExpr = off
		i = next
		if p.wordAt(i) == "func" {
			i++
		}
	}
	for j := i; j < c.End-1; j++ {
		if p.isLParen(j) {
			inner := j + 1
			if p.wordAt(inner) == "ref.func" {
				fidx, err := p.resolveRef(p.funcNames, inner+1)
				if err != nil {
					return err
				}
				seg.Exprs = append(seg.Exprs, wasm.ElemExpr{Index: fidx})
			} else {
				seg.Exprs = append(seg.Exprs, wasm.ElemExpr{IsNull: true})
			}
			j = p.matchingRParen(j)
			continue
		}
		fidx, err := p.resolveRef(p.funcNames, j)
		if err != nil {
			return err
		}
		seg.Exprs = append(seg.Exprs, wasm.ElemExpr{Index: fidx})
	}
	p.m.ElemSection[idx] = seg
	return nil
}

// parseElemOffset parses either "(offset expr)" or a bare folded expr
// "(i32.const 0)" at i, returning the offset and the position just past it.
func (p *parser) parseElemOffset(i int) (wasm.InitializerExpression, int, error) {
	if p.wordAt(i+1) == "offset" {
		off, err := p.parseConstExpr(i+2, p.matchingRParen(i))
		return off, p.matchingRParen(i) + 1, err
	}
	off, err := p.parseConstExpr(i, p.matchingRParen(i)+1)
	return off, p.matchingRParen(i) + 1, err
}

func (p *parser) buildData(c childSpan, idx wasm.Index) error {
	i := c.Start + 2
	if p.kindAt(i) == TokenID {
		i++
	}
	seg := wasm.DataSegment{}
	if p.isLParen(i) && p.wordAt(i+1) == "memory" {
		midx, err := p.resolveRef(p.memNames, i+2)
		if err != nil {
			return err
		}
		seg.MemoryIndex = midx
		i = p.matchingRParen(i) + 1
	}
	if p.isLParen(i) {
		off, next, err := p.parseElemOffset(i)
		if err != nil {
			return err
		}
		seg.Active = true
		seg.OffsetExpr = off
		i = next
	}
	var data []byte
	for j := i; j < c.End-1; j++ {
		if p.kindAt(j) == TokenString {
			data = append(data, unescapeString(p.textAt(j))...)
		}
	}
	seg.Init = data
	p.m.DataSection[idx] = seg
	return nil
}
