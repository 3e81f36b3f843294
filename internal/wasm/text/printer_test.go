package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrintModuleRoundTripsRecognizableStructure(t *testing.T) {
	m := mustParse(t, `(module
		(type $sig (func (param i32 i32) (result i32)))
		(import "env" "log" (func $log (param i32)))
		(memory $mem 1)
		(global $g (mut i32) (i32.const 5))
		(func $add (param $a i32) (param $b i32) (result i32)
			local.get $a
			local.get $b
			i32.add)
		(func $init)
		(export "add" (func $add))
		(start $init))`)

	out := PrintModule(m)

	require.True(t, strings.HasPrefix(out, "(module\n"))
	require.True(t, strings.HasSuffix(out, ")\n"))
	require.Contains(t, out, "(type $sig (func (param i32 i32) (result i32)))")
	require.Contains(t, out, `(import "env" "log" (func $log (type`)
	require.Contains(t, out, "(memory $mem 1)")
	require.Contains(t, out, "(global $g (mut i32) (i32.const 5))")
	require.Contains(t, out, "local.get $a")
	require.Contains(t, out, "local.get $b")
	require.Contains(t, out, "i32.add")
	require.Contains(t, out, `(export "add" (func $add))`)
	require.Contains(t, out, "(start $init)")
}

func TestPrintModuleSynthesizesNamesWhenUnnamed(t *testing.T) {
	m := mustParse(t, `(module (func (result i32) (i32.const 1)))`)
	out := PrintModule(m)
	require.Contains(t, out, "$f0")
}

func TestPrintModuleBlockIndentation(t *testing.T) {
	m := mustParse(t, `(module
		(func $f (param $n i32)
			(block $done
				(loop $top
					local.get $n
					br_if $done
					br $top))))`)
	out := PrintModule(m)
	require.Contains(t, out, "block")
	require.Contains(t, out, "loop")
	require.Contains(t, out, "br_if 1")
	require.Contains(t, out, "br 0")
	require.Contains(t, out, "end")
}
