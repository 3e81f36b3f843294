package text

import (
	"strings"

	"github.com/wavmgo/wavm/internal/wasm"
)

// CommandKind classifies one top-level form of a WebAssembly test script
// (spec.md §6 parse_test_commands; the quoted module forms are a
// SPEC_FULL supplemented feature drawn from WAVM's ParseTests.cpp).
// Executing any assertion is out of scope - a Command only carries the
// structure and embedded content an external test driver needs.
type CommandKind int

const (
	CmdModule CommandKind = iota
	CmdModuleQuote
	CmdModuleBinary
	CmdRegister
	CmdAction
	CmdAssertReturn
	CmdAssertTrap
	CmdAssertInvalid
	CmdAssertMalformed
	CmdAssertUnlinkable
	CmdAssertExhaustion
)

// ActionKind distinguishes invoking an exported function from reading an
// exported global, the two action forms a test script can perform against
// a registered module.
type ActionKind int

const (
	ActionInvoke ActionKind = iota
	ActionGet
)

// ConstArg is one constant value: an invoke argument, or one of
// assert_return's expected results. NaNPattern is set instead of a
// concrete float bit pattern for the `nan:canonical`/`nan:arithmetic`
// expected-value forms, which name a class of bit patterns rather than one.
type ConstArg struct {
	wasm.InitializerExpression
	NaNPattern string
}

// Action is a bare `(invoke ...)` or `(get ...)` form, either standalone
// or wrapped by an assert_return/assert_trap/assert_exhaustion command.
type Action struct {
	Kind     ActionKind
	ModuleID string // optional $id naming which registered module to act on
	Field    string
	Args     []ConstArg
}

// Command is one parsed test script form. Which fields are populated
// depends on Kind; see ParseTestCommands.
type Command struct {
	Kind           CommandKind
	ModuleID       string
	RegisterName   string // CmdRegister
	Module         *wasm.Module
	Source         string // raw text: CmdModule's source, or CmdModuleQuote's quoted text
	Binary         []byte // CmdModuleBinary's embedded bytes
	Action         *Action
	Expected       []ConstArg // CmdAssertReturn
	FailureMessage string
}

// ParseTestCommands parses a WebAssembly test script - a sequence of
// top-level `(module ...)`, `(register ...)`, `(invoke ...)`/`(get ...)`,
// and `assert_*` forms - into a list of Commands. A malformed command is
// recoverable: it is recorded as an error and parsing continues with the
// next top-level form. A module wrapped by assert_invalid/assert_malformed/
// assert_unlinkable that itself fails to parse or validate is NOT an
// error here - that failure is the point of the assertion, so its Module
// field is simply left nil alongside the raw Source for the (external)
// driver to re-check.
func ParseTestCommands(src []byte, features wasm.Features) ([]Command, []error) {
	lex := NewLexer(src)
	toks, err := lex.Tokenize()
	if err != nil {
		return nil, []error{err}
	}
	p := &parser{lex: lex, toks: toks, m: &wasm.Module{Features: features}}
	children := p.splitChildren(0, len(toks)-1)

	var cmds []Command
	var errs []error
	for _, c := range children {
		cmd, err := p.parseCommand(c, features)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds, errs
}

func (p *parser) parseCommand(c childSpan, features wasm.Features) (Command, error) {
	switch kw := p.keyword(c); kw {
	case "module":
		return p.parseModuleCommand(c, features)
	case "register":
		return p.parseRegisterCommand(c)
	case "invoke", "get":
		act, err := p.parseAction(c, features)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdAction, Action: &act}, nil
	case "assert_return":
		return p.parseAssertReturn(c, features)
	case "assert_trap":
		return p.parseAssertTrap(c, features, CmdAssertTrap)
	case "assert_exhaustion":
		return p.parseAssertTrap(c, features, CmdAssertExhaustion)
	case "assert_invalid":
		return p.parseAssertModuleFailure(c, features, CmdAssertInvalid)
	case "assert_malformed":
		return p.parseAssertModuleFailure(c, features, CmdAssertMalformed)
	case "assert_unlinkable":
		return p.parseAssertModuleFailure(c, features, CmdAssertUnlinkable)
	default:
		return Command{}, p.errAt(c.Start+1, "unknown test script command %q", kw)
	}
}

// rawSpan returns the raw source bytes spanning c, parens included.
func (p *parser) rawSpan(c childSpan) []byte {
	start := p.toks[c.Start].Offset
	end := p.lex.ends[c.End-1]
	return p.lex.src[start:end]
}

// concatStrings concatenates every string literal token in [start, end),
// per the `(module quote "..." "...")`/`(module binary "..." "...")`
// convention of splitting long encodings across several string literals.
func (p *parser) concatStrings(start, end int) string {
	var b strings.Builder
	for i := start; i < end; i++ {
		if p.kindAt(i) == TokenString {
			b.WriteString(unescapeString(p.textAt(i)))
		}
	}
	return b.String()
}

func (p *parser) parseModuleCommand(c childSpan, features wasm.Features) (Command, error) {
	i := c.Start + 2
	modID := ""
	if p.kindAt(i) == TokenID {
		modID = p.textAt(i)
		i++
	}
	switch p.wordAt(i) {
	case "quote":
		return Command{Kind: CmdModuleQuote, ModuleID: modID, Source: p.concatStrings(i+1, c.End-1)}, nil
	case "binary":
		return Command{Kind: CmdModuleBinary, ModuleID: modID, Binary: []byte(p.concatStrings(i+1, c.End-1))}, nil
	default:
		raw := p.rawSpan(c)
		m, err := ParseModule(raw, features, wasm.DefaultLimits)
		cmd := Command{Kind: CmdModule, ModuleID: modID, Source: string(raw)}
		if err == nil {
			cmd.Module = m
		}
		return cmd, nil
	}
}

func (p *parser) parseRegisterCommand(c childSpan) (Command, error) {
	i := c.Start + 2
	name := p.stringLiteral(i)
	i++
	modID := ""
	if p.kindAt(i) == TokenID {
		modID = p.textAt(i)
	}
	return Command{Kind: CmdRegister, RegisterName: name, ModuleID: modID}, nil
}

func (p *parser) parseAction(c childSpan, features wasm.Features) (Action, error) {
	kind := p.keyword(c)
	i := c.Start + 2
	modID := ""
	if p.kindAt(i) == TokenID {
		modID = p.textAt(i)
		i++
	}
	field := p.stringLiteral(i)
	i++
	var args []ConstArg
	if kind == "invoke" {
		for i < c.End-1 {
			if !p.isLParen(i) {
				return Action{}, p.errAt(i, "expected a constant expression argument")
			}
			arg, err := p.parseConstArg(i)
			if err != nil {
				return Action{}, err
			}
			args = append(args, arg)
			i = p.matchingRParen(i) + 1
		}
	}
	ak := ActionInvoke
	if kind == "get" {
		ak = ActionGet
	}
	return Action{Kind: ak, ModuleID: modID, Field: field, Args: args}, nil
}

func (p *parser) parseAssertReturn(c childSpan, features wasm.Features) (Command, error) {
	i := c.Start + 2
	if !p.isLParen(i) {
		return Command{}, p.errAt(i, "expected an action")
	}
	act, err := p.parseAction(childSpan{Start: i, End: p.matchingRParen(i) + 1}, features)
	if err != nil {
		return Command{}, err
	}
	i = p.matchingRParen(i) + 1

	var expected []ConstArg
	for i < c.End-1 {
		if !p.isLParen(i) {
			return Command{}, p.errAt(i, "expected an expected-value expression")
		}
		arg, err := p.parseConstArg(i)
		if err != nil {
			return Command{}, err
		}
		expected = append(expected, arg)
		i = p.matchingRParen(i) + 1
	}
	return Command{Kind: CmdAssertReturn, Action: &act, Expected: expected}, nil
}

// parseAssertTrap handles both `(assert_trap (invoke ...) "msg")` and
// `(assert_trap (module ...) "msg")` (the latter traps during the
// module's start function), and assert_exhaustion, which shares the same
// action-then-message shape.
func (p *parser) parseAssertTrap(c childSpan, features wasm.Features, kind CommandKind) (Command, error) {
	i := c.Start + 2
	if !p.isLParen(i) {
		return Command{}, p.errAt(i, "expected an action or module")
	}
	inner := childSpan{Start: i, End: p.matchingRParen(i) + 1}
	cmd := Command{Kind: kind}
	if p.wordAt(i+1) == "module" {
		modCmd, err := p.parseModuleCommand(inner, features)
		if err != nil {
			return Command{}, err
		}
		cmd.Module, cmd.ModuleID, cmd.Source, cmd.Binary = modCmd.Module, modCmd.ModuleID, modCmd.Source, modCmd.Binary
	} else {
		act, err := p.parseAction(inner, features)
		if err != nil {
			return Command{}, err
		}
		cmd.Action = &act
	}
	i = p.matchingRParen(i) + 1
	cmd.FailureMessage = p.stringLiteral(i)
	return cmd, nil
}

func (p *parser) parseAssertModuleFailure(c childSpan, features wasm.Features, kind CommandKind) (Command, error) {
	i := c.Start + 2
	if !p.isLParen(i) {
		return Command{}, p.errAt(i, "expected a module")
	}
	inner := childSpan{Start: i, End: p.matchingRParen(i) + 1}
	modCmd, err := p.parseModuleCommand(inner, features)
	if err != nil {
		return Command{}, err
	}
	i = p.matchingRParen(i) + 1
	return Command{
		Kind: kind, ModuleID: modCmd.ModuleID, Module: modCmd.Module,
		Source: modCmd.Source, Binary: modCmd.Binary,
		FailureMessage: p.stringLiteral(i),
	}, nil
}

func (p *parser) parseConstArg(i int) (ConstArg, error) {
	mnem := p.wordAt(i + 1)
	operandStart := i + 2
	switch mnem {
	case "f32.const":
		if pat, ok := nanPattern(p.wordAt(operandStart)); ok {
			return ConstArg{InitializerExpression: wasm.InitializerExpression{Opcode: wasm.InitExprF32Const}, NaNPattern: pat}, nil
		}
	case "f64.const":
		if pat, ok := nanPattern(p.wordAt(operandStart)); ok {
			return ConstArg{InitializerExpression: wasm.InitializerExpression{Opcode: wasm.InitExprF64Const}, NaNPattern: pat}, nil
		}
	case "ref.extern":
		v, err := ParseUint32(p.wordAt(operandStart))
		return ConstArg{InitializerExpression: wasm.InitializerExpression{Opcode: wasm.InitExprRefFunc, Index: v}}, err
	}
	expr, err := p.constExprByMnemonic(mnem, operandStart, p.matchingRParen(i))
	return ConstArg{InitializerExpression: expr}, err
}

func nanPattern(word string) (string, bool) {
	switch word {
	case "nan:canonical":
		return "canonical", true
	case "nan:arithmetic":
		return "arithmetic", true
	default:
		return "", false
	}
}
