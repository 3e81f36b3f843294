// Package wasm holds the in-memory IR shared by the text and binary front
// ends: a single value with no hidden aliasing, built by the parser or
// decoder and read by the validator, encoder, and printer. All
// cross-references inside the IR are small unsigned indices into typed
// index spaces, never pointers, so the IR is trivially serializable.
package wasm

import "fmt"

// ValueType is one of the scalar or reference types a WebAssembly value may
// have. The encodings match the binary format's type section so decoding is
// a direct byte copy.
type ValueType byte

const (
	ValueTypeI32       ValueType = 0x7f
	ValueTypeI64       ValueType = 0x7e
	ValueTypeF32       ValueType = 0x7d
	ValueTypeF64       ValueType = 0x7c
	ValueTypeV128      ValueType = 0x7b
	ValueTypeFuncref   ValueType = 0x70
	ValueTypeExternref ValueType = 0x6f
)

// ValueTypeName returns the WebAssembly text keyword for v.
func ValueTypeName(v ValueType) string {
	switch v {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeV128:
		return "v128"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	default:
		return fmt.Sprintf("0x%x", byte(v))
	}
}

// IsReferenceType reports whether v is funcref or externref.
func IsReferenceType(v ValueType) bool {
	return v == ValueTypeFuncref || v == ValueTypeExternref
}

// BlockTypeKind discriminates the three concrete shapes of BlockType.
type BlockTypeKind byte

const (
	// BlockTypeKindEmpty is a block producing no values ("no result").
	BlockTypeKindEmpty BlockTypeKind = iota
	// BlockTypeKindValue is a block producing a single ValueType.
	BlockTypeKindValue
	// BlockTypeKindIndex is a block whose signature is Module.TypeSection[Index].
	BlockTypeKindIndex
)

// BlockType is the signature carried by block/loop/if/try instructions:
// "no result", "single result ValueType", or "reference to an indexed Type".
type BlockType struct {
	Kind  BlockTypeKind
	Value ValueType
	Index uint32
}

// FunctionType is a function signature: an ordered sequence of parameter
// value types and an ordered sequence of result value types. Two types
// compare equal iff both sequences are equal; the text parser deduplicates
// equal signatures (Module.DedupType) so equal types share a TypeSection
// index, while the binary decoder keeps the type section as encoded.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType

	// cache memoizes String, computed once since signatures are immutable
	// after constructions and hashed often during type deduplication.
	cache string
}

// Equal reports whether ft and o have identical parameter and result
// sequences.
func (ft *FunctionType) Equal(o *FunctionType) bool {
	if ft == o {
		return true
	}
	if len(ft.Params) != len(o.Params) || len(ft.Results) != len(o.Results) {
		return false
	}
	for i := range ft.Params {
		if ft.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range ft.Results {
		if ft.Results[i] != o.Results[i] {
			return false
		}
	}
	return true
}

// String renders a compact key unique to this signature's shape, used both
// for human debug output and as a dedup key.
func (ft *FunctionType) String() string {
	if ft.cache != "" {
		return ft.cache
	}
	ft.cache = signatureKey(ft.Params) + "_" + signatureKey(ft.Results)
	return ft.cache
}

func signatureKey(vs []ValueType) string {
	if len(vs) == 0 {
		return "null"
	}
	out := make([]byte, 0, len(vs)*3)
	for _, v := range vs {
		out = append(out, ValueTypeName(v)...)
	}
	return string(out)
}
