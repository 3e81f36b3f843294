package wasm

import "fmt"

// LoadErrorKind distinguishes a binary module that is not well-formed
// (malformed) from one that is well-formed but fails validation (invalid),
// per §7: the binary decoder surfaces this tagged instead of accumulating a
// diagnostic list, so the conformance suite can tell the two failure modes
// apart.
type LoadErrorKind byte

const (
	LoadErrorMalformed LoadErrorKind = iota
	LoadErrorInvalid
)

func (k LoadErrorKind) String() string {
	if k == LoadErrorInvalid {
		return "invalid"
	}
	return "malformed"
}

// LoadError is returned by the binary decoder (component I) in place of the
// parser's accumulated diagnostic list.
type LoadError struct {
	Kind    LoadErrorKind
	Message string
	Offset  int
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s module: %s (offset %#x)", e.Kind, e.Message, e.Offset)
}

// NewMalformedError builds a LoadError reporting a syntactic binary-format
// error at offset.
func NewMalformedError(offset int, format string, args ...any) error {
	return &LoadError{Kind: LoadErrorMalformed, Message: fmt.Sprintf(format, args...), Offset: offset}
}

// NewInvalidError builds a LoadError reporting a validation failure at
// offset.
func NewInvalidError(offset int, format string, args ...any) error {
	return &LoadError{Kind: LoadErrorInvalid, Message: fmt.Sprintf(format, args...), Offset: offset}
}
