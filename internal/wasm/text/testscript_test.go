package text

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wavmgo/wavm/internal/wasm"
)

func TestParseTestCommandsModuleAndAssertReturn(t *testing.T) {
	cmds, errs := ParseTestCommands([]byte(`
		(module $m
			(func $add (param i32 i32) (result i32)
				local.get 0
				local.get 1
				i32.add)
			(export "add" (func $add)))
		(assert_return (invoke $m "add" (i32.const 1) (i32.const 2)) (i32.const 3))
	`), wasm.Features20220419)
	require.Empty(t, errs)
	require.Len(t, cmds, 2)

	require.Equal(t, CmdModule, cmds[0].Kind)
	require.NotNil(t, cmds[0].Module)
	require.Equal(t, "$m", cmds[0].ModuleID)

	require.Equal(t, CmdAssertReturn, cmds[1].Kind)
	require.NotNil(t, cmds[1].Action)
	require.Equal(t, ActionInvoke, cmds[1].Action.Kind)
	require.Equal(t, "$m", cmds[1].Action.ModuleID)
	require.Equal(t, "add", cmds[1].Action.Field)
	require.Len(t, cmds[1].Action.Args, 2)
	require.EqualValues(t, 1, cmds[1].Action.Args[0].I32)
	require.EqualValues(t, 2, cmds[1].Action.Args[1].I32)
	require.Len(t, cmds[1].Expected, 1)
	require.EqualValues(t, 3, cmds[1].Expected[0].I32)
}

func TestParseTestCommandsAssertTrap(t *testing.T) {
	cmds, errs := ParseTestCommands([]byte(`
		(assert_trap (invoke "divzero" (i32.const 1) (i32.const 0)) "integer divide by zero")
	`), wasm.Features20220419)
	require.Empty(t, errs)
	require.Len(t, cmds, 1)
	require.Equal(t, CmdAssertTrap, cmds[0].Kind)
	require.Equal(t, "integer divide by zero", cmds[0].FailureMessage)
	require.Equal(t, "divzero", cmds[0].Action.Field)
}

func TestParseTestCommandsAssertMalformedKeepsEmbeddedBytes(t *testing.T) {
	cmds, errs := ParseTestCommands([]byte(`
		(assert_malformed (module binary "\00asm\01\00\00") "unexpected end")
	`), wasm.Features20220419)
	require.Empty(t, errs)
	require.Len(t, cmds, 1)
	require.Equal(t, CmdAssertMalformed, cmds[0].Kind)
	require.Nil(t, cmds[0].Module)
	require.Equal(t, []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00}, cmds[0].Binary)
	require.Equal(t, "unexpected end", cmds[0].FailureMessage)
}

func TestParseTestCommandsAssertInvalidModuleParseFails(t *testing.T) {
	cmds, errs := ParseTestCommands([]byte(`
		(assert_invalid (module (func $f (result i32) (bogus.op))) "type mismatch")
	`), wasm.Features20220419)
	require.Empty(t, errs)
	require.Len(t, cmds, 1)
	require.Equal(t, CmdAssertInvalid, cmds[0].Kind)
	require.Nil(t, cmds[0].Module)
	require.Equal(t, "type mismatch", cmds[0].FailureMessage)
}

func TestParseTestCommandsModuleQuote(t *testing.T) {
	cmds, errs := ParseTestCommands([]byte(`
		(module quote "(module (func))")
	`), wasm.Features20220419)
	require.Empty(t, errs)
	require.Len(t, cmds, 1)
	require.Equal(t, CmdModuleQuote, cmds[0].Kind)
	require.Equal(t, "(module (func))", cmds[0].Source)
}

func TestParseTestCommandsModuleBinary(t *testing.T) {
	cmds, errs := ParseTestCommands([]byte(`
		(module binary "\00asm\01\00\00\00")
	`), wasm.Features20220419)
	require.Empty(t, errs)
	require.Len(t, cmds, 1)
	require.Equal(t, CmdModuleBinary, cmds[0].Kind)
	require.Equal(t, []byte{0x00, 'a', 's', 'm', 0x01, 0x00, 0x00, 0x00}, cmds[0].Binary)
}

func TestParseTestCommandsRegister(t *testing.T) {
	cmds, errs := ParseTestCommands([]byte(`(register "spectest" $m)`), wasm.Features20220419)
	require.Empty(t, errs)
	require.Len(t, cmds, 1)
	require.Equal(t, CmdRegister, cmds[0].Kind)
	require.Equal(t, "spectest", cmds[0].RegisterName)
	require.Equal(t, "$m", cmds[0].ModuleID)
}

func TestParseTestCommandsAssertReturnNanPattern(t *testing.T) {
	cmds, errs := ParseTestCommands([]byte(`
		(assert_return (invoke "f") (f32.const nan:canonical))
	`), wasm.Features20220419)
	require.Empty(t, errs)
	require.Len(t, cmds, 1)
	require.Len(t, cmds[0].Expected, 1)
	require.Equal(t, "canonical", cmds[0].Expected[0].NaNPattern)
}

func TestParseTestCommandsUnknownFormIsRecoverable(t *testing.T) {
	cmds, errs := ParseTestCommands([]byte(`
		(bogus_command 1 2 3)
		(register "ok" $m)
	`), wasm.Features20220419)
	require.Len(t, errs, 1)
	require.Len(t, cmds, 1)
	require.Equal(t, CmdRegister, cmds[0].Kind)
}
