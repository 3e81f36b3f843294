package wasm

// Limits bounds text parsing (text.ParseModule) so that adversarial inputs
// cannot blow the host stack or force unbounded allocation (§5).
// binary.Decode and ValidateFunctions take no Limits, so none of these caps
// applies to a decoded binary module. Every field has a package-level
// default matching the values WAVM documents for its parser.
type Limits struct {
	// MaxLocals caps the number of local variable declarations (including
	// parameters) a single function may have.
	MaxLocals uint32
	// MaxLabelsPerFunction caps the number of control-flow labels (nested
	// block/loop/if/try frames) reachable within one function body.
	MaxLabelsPerFunction uint32
	// MaxDataSegments caps the number of entries in the data section.
	MaxDataSegments uint32
	// MaxSyntaxRecursion caps recursive-descent parser nesting, directly
	// bounding host stack usage on malicious input (P6).
	MaxSyntaxRecursion int
	// MaxFunctionValueStack is a per-function operand-stack slot count. No
	// parser, decoder or validator code reads it; ValidateFunctions puts no
	// cap on the operand stack.
	MaxFunctionValueStack int
}

// DefaultLimits mirrors WAVM's compiled-in defaults.
var DefaultLimits = Limits{
	MaxLocals:             50000,
	MaxLabelsPerFunction:  50000,
	MaxDataSegments:       100000,
	MaxSyntaxRecursion:    500,
	MaxFunctionValueStack: 1 << 20,
}
