package text

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/wavmgo/wavm/internal/wasm"
)

// funcBuilder assembles one function body's raw opcode stream: a running
// local name table (params then locals, same index space the validator's
// localType walks), and a label stack so a named branch target resolves to
// the numeric depth the binary format and the validator both expect.
type funcBuilder struct {
	p *parser

	localNames map[string]wasm.Index
	numLocals  wasm.Index

	labels []string

	branchTables [][]uint32

	// depth tracks recursive-descent nesting (folded sub-expressions and
	// block/loop/if/try bodies) so adversarial input cannot blow the host
	// stack (§5, P6); enforced against p.limits.MaxSyntaxRecursion.
	depth int
}

// enterRecursion increments fb.depth and fails once it exceeds the parser's
// configured recursion bound; exitRecursion must be called via defer at
// every call site that increments it.
func (fb *funcBuilder) enterRecursion(tok int) error {
	fb.depth++
	if max := fb.p.limits.MaxSyntaxRecursion; max > 0 && fb.depth > max {
		return fb.p.errAt(tok, "exceeded maximum syntax recursion depth (%d)", max)
	}
	return nil
}

func (fb *funcBuilder) exitRecursion() { fb.depth-- }

func (fb *funcBuilder) pushLabel(name string) {
	fb.labels = append(fb.labels, name)
	if max := fb.p.limits.MaxLabelsPerFunction; max > 0 && uint32(len(fb.labels)) > max {
		fb.p.errs = append(fb.p.errs, fmt.Errorf("function exceeds maximum label nesting depth (%d)", max))
	}
}
func (fb *funcBuilder) popLabel() { fb.labels = fb.labels[:len(fb.labels)-1] }

func (fb *funcBuilder) parseLabelOpt(i int) (string, int) {
	if fb.p.kindAt(i) == TokenID {
		return fb.p.textAt(i), i + 1
	}
	return "", i
}

// resolveLabel resolves a branch target to its numeric depth: a name
// searches the label stack innermost-first, a bare number is the depth
// itself.
func (fb *funcBuilder) resolveLabel(tok int) (uint32, error) {
	p := fb.p
	if p.kindAt(tok) == TokenID {
		name := p.textAt(tok)
		for i := len(fb.labels) - 1; i >= 0; i-- {
			if fb.labels[i] == name {
				return uint32(len(fb.labels) - 1 - i), nil
			}
		}
		return 0, p.errAt(tok, "unknown label %q", name)
	}
	v, err := ParseUint32(p.wordAt(tok))
	if err != nil {
		return 0, p.errAt(tok, "expected label index or identifier")
	}
	return v, nil
}

func (fb *funcBuilder) resolveLocal(tok int) (uint32, error) {
	p := fb.p
	switch p.kindAt(tok) {
	case TokenID:
		name := p.textAt(tok)
		if idx, ok := fb.localNames[name]; ok {
			return idx, nil
		}
		return 0, p.errAt(tok, "unknown local %q", name)
	case TokenWord:
		v, err := ParseUint32(p.textAt(tok))
		if err != nil {
			return 0, p.errAt(tok, "expected local index or identifier")
		}
		return v, nil
	default:
		return 0, p.errAt(tok, "expected local index or identifier")
	}
}

// buildFunc parses a function definition's optional explicit type, its
// params/results (binding parameter names into the function's local index
// space), its locals, and its instruction sequence, and assigns the raw
// body bytes the shared validator and binary encoder both consume.
func (p *parser) buildFunc(c childSpan, idx wasm.Index) error {
	i := c.Start + 2
	if p.kindAt(i) == TokenID {
		i++
	}
	var typeIdx wasm.Index
	hasType := false
	if p.isLParen(i) && p.wordAt(i+1) == "type" {
		tidx, err := p.resolveRef(p.typeNames, i+2)
		if err != nil {
			return err
		}
		typeIdx, hasType = tidx, true
		i = p.matchingRParen(i) + 1
	}

	fb := &funcBuilder{p: p, localNames: map[string]wasm.Index{}}
	var params, results []wasm.ValueType

loop:
	for i < c.End-1 && p.isLParen(i) {
		switch p.wordAt(i + 1) {
		case "param":
			j := i + 2
			if p.kindAt(j) == TokenID {
				vt, err := p.parseValueType(j + 1)
				if err != nil {
					return err
				}
				fb.localNames[p.textAt(j)] = fb.numLocals
				fb.numLocals++
				params = append(params, vt)
			} else {
				vs, err := p.parseValueTypeList(j, p.matchingRParen(i))
				if err != nil {
					return err
				}
				params = append(params, vs...)
				fb.numLocals += wasm.Index(len(vs))
			}
		case "result":
			vs, err := p.parseValueTypeList(i+2, p.matchingRParen(i))
			if err != nil {
				return err
			}
			results = append(results, vs...)
		default:
			break loop
		}
		i = p.matchingRParen(i) + 1
	}

	var localTypes []wasm.ValueType
	for i < c.End-1 && p.isLParen(i) && p.wordAt(i+1) == "local" {
		j := i + 2
		if p.kindAt(j) == TokenID {
			vt, err := p.parseValueType(j + 1)
			if err != nil {
				return err
			}
			fb.localNames[p.textAt(j)] = fb.numLocals
			fb.numLocals++
			localTypes = append(localTypes, vt)
		} else {
			vs, err := p.parseValueTypeList(j, p.matchingRParen(i))
			if err != nil {
				return err
			}
			localTypes = append(localTypes, vs...)
			fb.numLocals += wasm.Index(len(vs))
		}
		i = p.matchingRParen(i) + 1
	}

	if !hasType {
		typeIdx = p.m.DedupType(&wasm.FunctionType{Params: params, Results: results})
	}
	if max := p.limits.MaxLocals; max > 0 && fb.numLocals > max {
		return fmt.Errorf("function has %d locals, exceeding the maximum of %d", fb.numLocals, max)
	}

	body, _, err := fb.parseInstrSeq(i, c.End-1)
	if err != nil {
		return err
	}
	body = append(body, byte(wasm.OpcodeEnd))

	*p.m.FunctionSpace.Def(idx) = wasm.FunctionDef{
		TypeIndex:    typeIdx,
		LocalTypes:   localTypes,
		Body:         body,
		BranchTables: fb.branchTables,
	}
	if len(fb.localNames) > 0 {
		if p.m.Names.Locals == nil {
			p.m.Names.Locals = map[wasm.Index]map[wasm.Index]string{}
		}
		locals := make(map[wasm.Index]string, len(fb.localNames))
		for name, localIdx := range fb.localNames {
			locals[localIdx] = name[1:]
		}
		p.m.Names.Locals[idx] = locals
	}
	return nil
}

// parseInstrSeq parses a run of instructions in either flat or folded form
// up to end, stopping early at a bare "end"/"else"/"catch"/"catch_all"
// keyword (the flat form's block terminators). A malformed instruction is
// recoverable: it is replaced with "unreachable" and the error recorded, so
// the rest of the function (and file) still gets parsed.
func (fb *funcBuilder) parseInstrSeq(i, end int) ([]byte, int, error) {
	p := fb.p
	var out []byte
	for i < end {
		if p.kindAt(i) == TokenWord {
			switch p.wordAt(i) {
			case "end", "else", "catch", "catch_all":
				return out, i, nil
			}
		}
		if p.isLParen(i) {
			code, next, err := fb.parseFoldedInstr(i)
			if err != nil {
				out = append(out, byte(wasm.OpcodeUnreachable))
				p.errs = append(p.errs, err)
				i = p.matchingRParen(i) + 1
				continue
			}
			out = append(out, code...)
			i = next
			continue
		}
		code, next, err := fb.parseFlatInstr(i)
		if err != nil {
			out = append(out, byte(wasm.OpcodeUnreachable))
			p.errs = append(p.errs, err)
			i++
			continue
		}
		out = append(out, code...)
		i = next
	}
	return out, i, nil
}

func (fb *funcBuilder) parseFlatInstr(i int) ([]byte, int, error) {
	p := fb.p
	mnem := p.wordAt(i)
	switch mnem {
	case "block", "loop":
		return fb.parseBlockLikeFlat(i, mnem)
	case "if":
		return fb.parseIfFlat(i)
	case "try":
		return fb.parseTryFlat(i)
	case "":
		return nil, i + 1, p.errAt(i, "expected instruction")
	}
	return fb.encodeInstrImmediate(mnem, i+1, -1)
}

func (fb *funcBuilder) parseFoldedInstr(i int) ([]byte, int, error) {
	p := fb.p
	if err := fb.enterRecursion(i); err != nil {
		fb.exitRecursion()
		return nil, p.matchingRParen(i) + 1, err
	}
	defer fb.exitRecursion()
	end := p.matchingRParen(i)
	mnem := p.wordAt(i + 1)
	switch mnem {
	case "block", "loop":
		return fb.parseBlockLike(i, end, mnem)
	case "if":
		return fb.parseIf(i, end)
	case "try":
		return fb.parseTry(i, end)
	}
	code, next, err := fb.encodeInstrImmediate(mnem, i+2, end)
	if err != nil {
		return nil, end + 1, err
	}
	var operands []byte
	j := next
	for j < end {
		if !p.isLParen(j) {
			return nil, end + 1, p.errAt(j, "expected nested instruction")
		}
		sub, subNext, err := fb.parseFoldedInstr(j)
		if err != nil {
			return nil, end + 1, err
		}
		operands = append(operands, sub...)
		j = subNext
	}
	return append(operands, code...), end + 1, nil
}

func (fb *funcBuilder) parseBlockLike(i, end int, mnem string) ([]byte, int, error) {
	if err := fb.enterRecursion(i); err != nil {
		fb.exitRecursion()
		return nil, end + 1, err
	}
	defer fb.exitRecursion()
	j := i + 2
	label, j := fb.parseLabelOpt(j)
	bt, j, err := fb.parseBlockType(j)
	if err != nil {
		return nil, end + 1, err
	}
	fb.pushLabel(label)
	body, _, err := fb.parseInstrSeq(j, end)
	fb.popLabel()
	if err != nil {
		return nil, end + 1, err
	}
	op := byte(wasm.OpcodeBlock)
	if mnem == "loop" {
		op = byte(wasm.OpcodeLoop)
	}
	out := append([]byte{op}, encodeBlockType(bt)...)
	out = append(out, body...)
	out = append(out, byte(wasm.OpcodeEnd))
	return out, end + 1, nil
}

func (fb *funcBuilder) parseBlockLikeFlat(i int, mnem string) ([]byte, int, error) {
	p := fb.p
	if err := fb.enterRecursion(i); err != nil {
		fb.exitRecursion()
		return nil, i, err
	}
	defer fb.exitRecursion()
	j := i + 1
	label, j := fb.parseLabelOpt(j)
	bt, j, err := fb.parseBlockType(j)
	if err != nil {
		return nil, j, err
	}
	fb.pushLabel(label)
	body, j, err := fb.parseInstrSeq(j, len(p.toks)-1)
	fb.popLabel()
	if err != nil {
		return nil, j, err
	}
	if p.wordAt(j) != "end" {
		return nil, j, p.errAt(j, "expected end")
	}
	j++
	if p.kindAt(j) == TokenID {
		j++
	}
	op := byte(wasm.OpcodeBlock)
	if mnem == "loop" {
		op = byte(wasm.OpcodeLoop)
	}
	out := append([]byte{op}, encodeBlockType(bt)...)
	out = append(out, body...)
	out = append(out, byte(wasm.OpcodeEnd))
	return out, j, nil
}

func (fb *funcBuilder) parseIf(i, end int) ([]byte, int, error) {
	p := fb.p
	if err := fb.enterRecursion(i); err != nil {
		fb.exitRecursion()
		return nil, end + 1, err
	}
	defer fb.exitRecursion()
	j := i + 2
	label, j := fb.parseLabelOpt(j)
	bt, j, err := fb.parseBlockType(j)
	if err != nil {
		return nil, end + 1, err
	}
	var cond []byte
	for j < end && p.isLParen(j) && p.wordAt(j+1) != "then" {
		sub, next, err := fb.parseFoldedInstr(j)
		if err != nil {
			return nil, end + 1, err
		}
		cond = append(cond, sub...)
		j = next
	}
	if !(p.isLParen(j) && p.wordAt(j+1) == "then") {
		return nil, end + 1, p.errAt(j, "expected (then ...)")
	}
	thenEnd := p.matchingRParen(j)
	fb.pushLabel(label)
	thenBody, _, err := fb.parseInstrSeq(j+2, thenEnd)
	if err != nil {
		fb.popLabel()
		return nil, end + 1, err
	}
	j = thenEnd + 1
	var elseBody []byte
	hasElse := false
	if j < end && p.isLParen(j) && p.wordAt(j+1) == "else" {
		elseEnd := p.matchingRParen(j)
		elseBody, _, err = fb.parseInstrSeq(j+2, elseEnd)
		if err != nil {
			fb.popLabel()
			return nil, end + 1, err
		}
		hasElse = true
		j = elseEnd + 1
	}
	fb.popLabel()
	out := append(cond, byte(wasm.OpcodeIf))
	out = append(out, encodeBlockType(bt)...)
	out = append(out, thenBody...)
	if hasElse {
		out = append(out, byte(wasm.OpcodeElse))
		out = append(out, elseBody...)
	}
	out = append(out, byte(wasm.OpcodeEnd))
	return out, end + 1, nil
}

func (fb *funcBuilder) parseIfFlat(i int) ([]byte, int, error) {
	p := fb.p
	if err := fb.enterRecursion(i); err != nil {
		fb.exitRecursion()
		return nil, i, err
	}
	defer fb.exitRecursion()
	j := i + 1
	label, j := fb.parseLabelOpt(j)
	bt, j, err := fb.parseBlockType(j)
	if err != nil {
		return nil, j, err
	}
	fb.pushLabel(label)
	thenBody, j, err := fb.parseInstrSeq(j, len(p.toks)-1)
	if err != nil {
		fb.popLabel()
		return nil, j, err
	}
	var elseBody []byte
	hasElse := false
	if p.wordAt(j) == "else" {
		hasElse = true
		j++
		if p.kindAt(j) == TokenID {
			j++
		}
		elseBody, j, err = fb.parseInstrSeq(j, len(p.toks)-1)
		if err != nil {
			fb.popLabel()
			return nil, j, err
		}
	}
	fb.popLabel()
	if p.wordAt(j) != "end" {
		return nil, j, p.errAt(j, "expected end")
	}
	j++
	if p.kindAt(j) == TokenID {
		j++
	}
	out := []byte{byte(wasm.OpcodeIf)}
	out = append(out, encodeBlockType(bt)...)
	out = append(out, thenBody...)
	if hasElse {
		out = append(out, byte(wasm.OpcodeElse))
		out = append(out, elseBody...)
	}
	out = append(out, byte(wasm.OpcodeEnd))
	return out, j, nil
}

// parseTry supports only the flat exception-handling form; try is a rare,
// feature-gated extension and folded try/catch bodies are not supported.
func (fb *funcBuilder) parseTry(i, end int) ([]byte, int, error) {
	return nil, end + 1, fb.p.errAt(i, "folded try is not supported")
}

func (fb *funcBuilder) parseTryFlat(i int) ([]byte, int, error) {
	p := fb.p
	if err := fb.enterRecursion(i); err != nil {
		fb.exitRecursion()
		return nil, i, err
	}
	defer fb.exitRecursion()
	j := i + 1
	label, j := fb.parseLabelOpt(j)
	bt, j, err := fb.parseBlockType(j)
	if err != nil {
		return nil, j, err
	}
	fb.pushLabel(label)
	body, j, err := fb.parseInstrSeq(j, len(p.toks)-1)
	if err != nil {
		fb.popLabel()
		return nil, j, err
	}
	out := []byte{byte(wasm.OpcodeTry)}
	out = append(out, encodeBlockType(bt)...)
	out = append(out, body...)
	for p.wordAt(j) == "catch" {
		j++
		idx, err := p.resolveRef(p.exceptionNames, j)
		if err != nil {
			fb.popLabel()
			return nil, j, err
		}
		j++
		cbody, next, err := fb.parseInstrSeq(j, len(p.toks)-1)
		if err != nil {
			fb.popLabel()
			return nil, j, err
		}
		out = append(out, byte(wasm.OpcodeCatch))
		out = append(out, encU32(idx)...)
		out = append(out, cbody...)
		j = next
	}
	if p.wordAt(j) == "catch_all" {
		j++
		cbody, next, err := fb.parseInstrSeq(j, len(p.toks)-1)
		if err != nil {
			fb.popLabel()
			return nil, j, err
		}
		out = append(out, byte(wasm.OpcodeCatchAll))
		out = append(out, cbody...)
		j = next
	}
	fb.popLabel()
	if p.wordAt(j) != "end" {
		return nil, j, p.errAt(j, "expected end")
	}
	j++
	if p.kindAt(j) == TokenID {
		j++
	}
	out = append(out, byte(wasm.OpcodeEnd))
	return out, j, nil
}

// parseBlockType decodes a block signature: an explicit "(type $t)", an
// inline (param...)*(result...)* list collapsed to the empty/single-value
// shapes where possible (and to a deduplicated type index otherwise), or
// nothing at all.
func (fb *funcBuilder) parseBlockType(i int) (wasm.BlockType, int, error) {
	p := fb.p
	if p.isLParen(i) && p.wordAt(i+1) == "type" {
		idx, err := p.resolveRef(p.typeNames, i+2)
		if err != nil {
			return wasm.BlockType{}, i, err
		}
		return wasm.BlockType{Kind: wasm.BlockTypeKindIndex, Index: idx}, p.matchingRParen(i) + 1, nil
	}
	var params, results []wasm.ValueType
	j := i
	for p.isLParen(j) && (p.wordAt(j+1) == "param" || p.wordAt(j+1) == "result") {
		vs, err := p.parseValueTypeList(j+2, p.matchingRParen(j))
		if err != nil {
			return wasm.BlockType{}, j, err
		}
		if p.wordAt(j+1) == "param" {
			params = append(params, vs...)
		} else {
			results = append(results, vs...)
		}
		j = p.matchingRParen(j) + 1
	}
	switch {
	case len(params) == 0 && len(results) == 0:
		return wasm.BlockType{Kind: wasm.BlockTypeKindEmpty}, j, nil
	case len(params) == 0 && len(results) == 1:
		return wasm.BlockType{Kind: wasm.BlockTypeKindValue, Value: results[0]}, j, nil
	default:
		idx := p.m.DedupType(&wasm.FunctionType{Params: params, Results: results})
		return wasm.BlockType{Kind: wasm.BlockTypeKindIndex, Index: idx}, j, nil
	}
}

func encodeBlockType(bt wasm.BlockType) []byte {
	switch bt.Kind {
	case wasm.BlockTypeKindEmpty:
		return []byte{0x40}
	case wasm.BlockTypeKindValue:
		return []byte{byte(bt.Value)}
	default:
		return encI32(int32(bt.Index))
	}
}

// encodeInstrImmediate encodes one non-control instruction: its opcode(s)
// and immediate operand(s), starting at i (the first token after the
// mnemonic). end is the folded form's enclosing ')' index, or -1 when
// called from flat context (where most immediates are fixed-width and the
// bound is unnecessary).
func (fb *funcBuilder) encodeInstrImmediate(mnem string, i, end int) ([]byte, int, error) {
	p := fb.p
	switch mnem {
	case "unreachable":
		return []byte{byte(wasm.OpcodeUnreachable)}, i, nil
	case "nop":
		return []byte{byte(wasm.OpcodeNop)}, i, nil
	case "drop":
		return []byte{byte(wasm.OpcodeDrop)}, i, nil
	case "return":
		return []byte{byte(wasm.OpcodeReturn)}, i, nil
	case "ref.is_null":
		return []byte{byte(wasm.OpcodeRefIsNull)}, i, nil
	case "br", "br_if":
		depth, err := fb.resolveLabel(i)
		if err != nil {
			return nil, i + 1, err
		}
		op := byte(wasm.OpcodeBr)
		if mnem == "br_if" {
			op = byte(wasm.OpcodeBrIf)
		}
		return append([]byte{op}, encU32(depth)...), i + 1, nil
	case "br_table":
		return fb.encodeBrTable(i, end)
	case "call":
		idx, err := p.resolveRef(p.funcNames, i)
		if err != nil {
			return nil, i + 1, err
		}
		return append([]byte{byte(wasm.OpcodeCall)}, encU32(idx)...), i + 1, nil
	case "call_indirect":
		return fb.encodeCallIndirect(i, end)
	case "local.get", "local.set", "local.tee":
		idx, err := fb.resolveLocal(i)
		if err != nil {
			return nil, i + 1, err
		}
		var op byte
		switch mnem {
		case "local.get":
			op = byte(wasm.OpcodeLocalGet)
		case "local.set":
			op = byte(wasm.OpcodeLocalSet)
		default:
			op = byte(wasm.OpcodeLocalTee)
		}
		return append([]byte{op}, encU32(idx)...), i + 1, nil
	case "global.get", "global.set":
		idx, err := p.resolveRef(p.globalNames, i)
		if err != nil {
			return nil, i + 1, err
		}
		op := byte(wasm.OpcodeGlobalGet)
		if mnem == "global.set" {
			op = byte(wasm.OpcodeGlobalSet)
		}
		return append([]byte{op}, encU32(idx)...), i + 1, nil
	case "i32.const":
		v, err := ParseInt32(p.wordAt(i))
		if err != nil {
			return nil, i + 1, p.errAt(i, "malformed i32.const operand: %s", err)
		}
		return append([]byte{byte(wasm.OpcodeI32Const)}, encI32(v)...), i + 1, nil
	case "i64.const":
		v, err := ParseInt64(p.wordAt(i))
		if err != nil {
			return nil, i + 1, p.errAt(i, "malformed i64.const operand: %s", err)
		}
		return append([]byte{byte(wasm.OpcodeI64Const)}, encI64(v)...), i + 1, nil
	case "f32.const":
		bits, err := ParseFloat32Bits(p.wordAt(i))
		if err != nil {
			return nil, i + 1, p.errAt(i, "malformed f32.const operand: %s", err)
		}
		return append([]byte{byte(wasm.OpcodeF32Const)}, encU32raw4(bits)...), i + 1, nil
	case "f64.const":
		bits, err := ParseFloat64Bits(p.wordAt(i))
		if err != nil {
			return nil, i + 1, p.errAt(i, "malformed f64.const operand: %s", err)
		}
		return append([]byte{byte(wasm.OpcodeF64Const)}, encU64raw8(bits)...), i + 1, nil
	case "select":
		return fb.encodeSelect(i)
	case "ref.null":
		return fb.encodeRefNull(i)
	case "ref.func":
		idx, err := p.resolveRef(p.funcNames, i)
		if err != nil {
			return nil, i + 1, err
		}
		return append([]byte{byte(wasm.OpcodeRefFunc)}, encU32(idx)...), i + 1, nil
	case "memory.size", "memory.grow":
		return fb.encodeMemIndexOp(mnem, i)
	}
	op, ok := wasm.LookupMnemonic(mnem)
	if !ok {
		return nil, i, p.errAt(i, "unknown instruction %q", mnem)
	}
	if err := p.m.Features.Require(op.Feature); err != nil {
		return nil, i, p.errAt(i, "%s: %s", mnem, err)
	}
	return fb.encodeGeneric(op, i)
}

func (fb *funcBuilder) encodeBrTable(i, end int) ([]byte, int, error) {
	p := fb.p
	var depths []uint32
	j := i
	for (end < 0 || j < end) && (p.kindAt(j) == TokenID || (p.kindAt(j) == TokenWord && LooksLikeNumber(p.wordAt(j)))) {
		d, err := fb.resolveLabel(j)
		if err != nil {
			return nil, j + 1, err
		}
		depths = append(depths, d)
		j++
	}
	if len(depths) == 0 {
		return nil, i + 1, p.errAt(i, "br_table requires at least one label")
	}
	fb.branchTables = append(fb.branchTables, depths)
	out := []byte{byte(wasm.OpcodeBrTable)}
	out = append(out, encU32(uint32(len(depths)-1))...)
	for _, d := range depths {
		out = append(out, encU32(d)...)
	}
	return out, j, nil
}

func (fb *funcBuilder) encodeCallIndirect(i, end int) ([]byte, int, error) {
	p := fb.p
	tableIdx := wasm.Index(0)
	j := i
	if p.isLParen(j) && p.wordAt(j+1) == "table" {
		idx, err := p.resolveRef(p.tableNames, j+2)
		if err != nil {
			return nil, j, err
		}
		tableIdx = idx
		j = p.matchingRParen(j) + 1
	}
	bound := end
	if bound < 0 {
		bound = len(p.toks) - 1
	}
	typeIdx, _, _, next, err := p.parseTypeUse(j, bound)
	if err != nil {
		return nil, j, err
	}
	out := []byte{byte(wasm.OpcodeCallIndirect)}
	out = append(out, encU32(typeIdx)...)
	out = append(out, encU32(tableIdx)...)
	return out, next, nil
}

func (fb *funcBuilder) encodeSelect(i int) ([]byte, int, error) {
	p := fb.p
	if p.isLParen(i) && p.wordAt(i+1) == "result" {
		vs, err := p.parseValueTypeList(i+2, p.matchingRParen(i))
		if err != nil {
			return nil, i, err
		}
		next := p.matchingRParen(i) + 1
		out := []byte{byte(wasm.OpcodeSelectT)}
		out = append(out, encU32(uint32(len(vs)))...)
		for _, v := range vs {
			out = append(out, byte(v))
		}
		return out, next, nil
	}
	return []byte{byte(wasm.OpcodeSelect)}, i, nil
}

func (fb *funcBuilder) encodeRefNull(i int) ([]byte, int, error) {
	p := fb.p
	switch p.wordAt(i) {
	case "func", "funcref":
		return []byte{byte(wasm.OpcodeRefNull), byte(wasm.ValueTypeFuncref)}, i + 1, nil
	case "extern", "externref":
		return []byte{byte(wasm.OpcodeRefNull), byte(wasm.ValueTypeExternref)}, i + 1, nil
	default:
		return nil, i, p.errAt(i, "expected func or extern after ref.null")
	}
}

func (fb *funcBuilder) encodeMemIndexOp(mnem string, i int) ([]byte, int, error) {
	p := fb.p
	op := byte(wasm.OpcodeMemorySize)
	if mnem == "memory.grow" {
		op = byte(wasm.OpcodeMemoryGrow)
	}
	idx := wasm.Index(0)
	next := i
	if p.kindAt(i) == TokenID || (p.kindAt(i) == TokenWord && LooksLikeNumber(p.wordAt(i))) {
		v, err := p.resolveRef(p.memNames, i)
		if err != nil {
			return nil, i, err
		}
		idx = v
		next = i + 1
	}
	return append([]byte{op}, encU32(idx)...), next, nil
}

// encodeGeneric encodes every remaining table-driven operator (arithmetic,
// comparison, conversion, memory load/store, bulk-memory, table, and SIMD
// operators), mirroring func_validation.go's stepMemOrNumeric immediate
// decoding in reverse so the validator reads back exactly what is written.
func (fb *funcBuilder) encodeGeneric(op *wasm.Operator, i int) ([]byte, int, error) {
	p := fb.p
	var head []byte
	if op.Prefix != 0 {
		head = append(head, byte(op.Prefix))
		head = append(head, encU32(uint32(op.Opcode))...)
	} else {
		head = append(head, byte(op.Opcode))
	}
	next := i
	switch op.Immediate {
	case wasm.ImmMemArg:
		align, offset, n, err := fb.parseMemArg(op.Mnemonic, i)
		if err != nil {
			return nil, i, err
		}
		head = append(head, encU32(align)...)
		head = append(head, encU32(offset)...)
		next = n
	case wasm.ImmV128:
		lit, n, err := fb.parseV128Literal(i)
		if err != nil {
			return nil, i, err
		}
		head = append(head, lit...)
		next = n
	case wasm.ImmDataIndexMem:
		didx, err := p.resolveRef(p.dataNames, i)
		if err != nil {
			return nil, i, err
		}
		midx, err := p.resolveRef(p.memNames, i+1)
		if err != nil {
			return nil, i, err
		}
		head = append(head, encU32(didx)...)
		head = append(head, encU32(midx)...)
		next = i + 2
	case wasm.ImmElemIndexTable:
		eidx, err := p.resolveRef(p.elemNames, i)
		if err != nil {
			return nil, i, err
		}
		tidx, err := p.resolveRef(p.tableNames, i+1)
		if err != nil {
			return nil, i, err
		}
		head = append(head, encU32(eidx)...)
		head = append(head, encU32(tidx)...)
		next = i + 2
	case wasm.ImmTableIndexPair:
		dst, err := p.resolveRef(p.tableNames, i)
		if err != nil {
			return nil, i, err
		}
		src, err := p.resolveRef(p.tableNames, i+1)
		if err != nil {
			return nil, i, err
		}
		head = append(head, encU32(dst)...)
		head = append(head, encU32(src)...)
		next = i + 2
	case wasm.ImmTableIndex:
		idx, err := p.resolveRef(p.tableNames, i)
		if err != nil {
			return nil, i, err
		}
		head = append(head, encU32(idx)...)
		next = i + 1
	case wasm.ImmDataIndex:
		idx, err := p.resolveRef(p.dataNames, i)
		if err != nil {
			return nil, i, err
		}
		head = append(head, encU32(idx)...)
		next = i + 1
	case wasm.ImmElemIndex:
		idx, err := p.resolveRef(p.elemNames, i)
		if err != nil {
			return nil, i, err
		}
		head = append(head, encU32(idx)...)
		next = i + 1
	case wasm.ImmMemIndex:
		idx, err := p.resolveRef(p.memNames, i)
		if err != nil {
			return nil, i, err
		}
		head = append(head, encU32(idx)...)
		next = i + 1
	case wasm.ImmFuncIndex:
		idx, err := p.resolveRef(p.exceptionNames, i)
		if err != nil {
			return nil, i, err
		}
		head = append(head, encU32(idx)...)
		next = i + 1
	case wasm.ImmBranchDepth:
		depth, err := fb.resolveLabel(i)
		if err != nil {
			return nil, i, err
		}
		head = append(head, encU32(depth)...)
		next = i + 1
	}
	return head, next, nil
}

// parseMemArg parses a memory instruction's optional "offset=N" and
// "align=N" clauses (lexed as ordinary words since '=' is an idchar),
// defaulting offset to 0 and align to the access's natural width.
func (fb *funcBuilder) parseMemArg(mnemonic string, i int) (align, offset uint32, next int, err error) {
	p := fb.p
	offset = 0
	align = naturalAlignLog2(mnemonic)
	j := i
	for {
		w := p.wordAt(j)
		switch {
		case strings.HasPrefix(w, "offset="):
			v, e := ParseUint64(w[len("offset="):])
			if e != nil {
				return 0, 0, j, p.errAt(j, "malformed offset: %s", e)
			}
			offset = uint32(v)
			j++
		case strings.HasPrefix(w, "align="):
			v, e := ParseUint64(w[len("align="):])
			if e != nil {
				return 0, 0, j, p.errAt(j, "malformed align: %s", e)
			}
			if v == 0 || v&(v-1) != 0 {
				return 0, 0, j, p.errAt(j, "alignment must be a power of two")
			}
			align = uint32(bits.TrailingZeros64(v))
			j++
		default:
			return align, offset, j, nil
		}
	}
}

// naturalAlignLog2 computes a load/store mnemonic's default alignment
// (log2 of the access width) when no explicit align= clause is given.
func naturalAlignLog2(mnemonic string) uint32 {
	dot := strings.IndexByte(mnemonic, '.')
	if dot < 0 {
		return 0
	}
	typ, op := mnemonic[:dot], mnemonic[dot+1:]
	switch {
	case strings.HasPrefix(op, "load8"), strings.HasPrefix(op, "store8"):
		return 0
	case strings.HasPrefix(op, "load16"), strings.HasPrefix(op, "store16"):
		return 1
	case strings.HasPrefix(op, "load32"), strings.HasPrefix(op, "store32"):
		return 2
	}
	switch typ {
	case "i32", "f32":
		return 2
	case "i64", "f64":
		return 3
	}
	return 0
}

// parseV128Literal supports only the i32x4 lane shape, matching
// OperatorTable's single sampled v128.const row.
func (fb *funcBuilder) parseV128Literal(i int) ([]byte, int, error) {
	p := fb.p
	if p.wordAt(i) != "i32x4" {
		return nil, i, p.errAt(i, "unsupported v128 literal shape %q", p.wordAt(i))
	}
	out := make([]byte, 0, 16)
	j := i + 1
	for k := 0; k < 4; k++ {
		v, err := ParseInt32(p.wordAt(j))
		if err != nil {
			return nil, i, p.errAt(j, "malformed i32x4 lane: %s", err)
		}
		out = append(out, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
		j++
	}
	return out, j, nil
}
