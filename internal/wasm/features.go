package wasm

import (
	"fmt"
	"sort"
	"strings"
)

// Features is a bitset of accepted WebAssembly proposal extensions, gated at
// parse/decode time. Flags occupy bits 0 and up (the first flag is 1<<0), so
// every flag is non-zero and a zero-valued Features means "no features set".
type Features uint64

const (
	FeatureMutableGlobal Features = 1 << iota
	FeatureSignExtensionOps
	FeatureMultiValue
	FeatureSIMD
	FeatureBulkMemoryOperations
	FeatureReferenceTypes
	FeatureNonTrappingFloatToIntConversion
	FeatureExceptionHandling
	FeatureThreads
	FeatureMultiMemory
	FeatureQuotedIdentifiers
	FeatureCustomSectionInText
	FeatureLegacyInstructionNames
)

// Features20220419 is the feature set implemented by the WebAssembly Core
// Specification 2.0 working draft dated 2022-04-19.
const Features20220419 = FeatureMutableGlobal | FeatureSignExtensionOps | FeatureMultiValue |
	FeatureSIMD | FeatureBulkMemoryOperations | FeatureReferenceTypes | FeatureNonTrappingFloatToIntConversion

var featureNames = []struct {
	flag Features
	name string
}{
	{FeatureMutableGlobal, "mutable-global"},
	{FeatureSignExtensionOps, "sign-extension-ops"},
	{FeatureMultiValue, "multi-value"},
	{FeatureSIMD, "simd"},
	{FeatureBulkMemoryOperations, "bulk-memory-operations"},
	{FeatureReferenceTypes, "reference-types"},
	{FeatureNonTrappingFloatToIntConversion, "nontrapping-float-to-int-conversion"},
	{FeatureExceptionHandling, "exception-handling"},
	{FeatureThreads, "threads"},
	{FeatureMultiMemory, "multi-memory"},
	{FeatureQuotedIdentifiers, "quoted-identifiers"},
	{FeatureCustomSectionInText, "custom-section-in-text"},
	{FeatureLegacyInstructionNames, "legacy-instruction-names"},
}

// Get reports whether every bit set in query is also set in f.
func (f Features) Get(query Features) bool {
	return f&query == query
}

// Set returns a copy of f with query's bits set (or cleared if include is
// false).
func (f Features) Set(query Features, include bool) Features {
	if include {
		return f | query
	}
	return f &^ query
}

// Require returns an error unless every bit in query is set in f.
func (f Features) Require(query Features) error {
	for _, fn := range featureNames {
		if query&fn.flag != 0 && !f.Get(fn.flag) {
			return fmt.Errorf("feature %q is disabled", fn.name)
		}
	}
	return nil
}

// String renders the set flags, alphabetically sorted and pipe-joined, so
// output is stable across runs.
func (f Features) String() string {
	var names []string
	for _, fn := range featureNames {
		if f.Get(fn.flag) {
			names = append(names, fn.name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

// FeatureByName returns the flag named by name and true, or 0 and false if
// name does not match any known feature. Used by cmd/wavm's --enable flag.
func FeatureByName(name string) (Features, bool) {
	for _, fn := range featureNames {
		if fn.name == name {
			return fn.flag, true
		}
	}
	return 0, false
}
