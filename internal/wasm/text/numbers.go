package text

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseUint32 parses a WebAssembly text integer literal (decimal or
// "0x"-prefixed hex, with optional "_" digit-group separators) as an
// unsigned 32-bit value. Grounded on spec.md §4.F and WAVM's
// LiteralParsers.cpp, which strips separators before handing the digits to
// the platform's own integer parser.
func ParseUint32(lit string) (uint32, error) {
	v, err := parseUintLiteral(lit, 32)
	return uint32(v), err
}

// ParseUint64 parses an unsigned 64-bit integer literal.
func ParseUint64(lit string) (uint64, error) {
	return parseUintLiteral(lit, 64)
}

// ParseInt32 parses a signed 32-bit integer literal, accepting an optional
// leading "+" or "-" per the text format's sign-prefixed integers (which
// additionally allow the full unsigned range when unsigned, so parsing is
// done at 32-bit width and the result is reinterpreted as two's complement
// rather than range-checked as a signed value).
func ParseInt32(lit string) (int32, error) {
	v, err := parseSignedLiteral(lit, 32)
	return int32(v), err
}

// ParseInt64 parses a signed 64-bit integer literal.
func ParseInt64(lit string) (int64, error) {
	return parseSignedLiteral(lit, 64)
}

func stripSeparators(lit string) string {
	if !strings.ContainsRune(lit, '_') {
		return lit
	}
	var b strings.Builder
	b.Grow(len(lit))
	for _, c := range lit {
		if c != '_' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func parseUintLiteral(lit string, bits int) (uint64, error) {
	s := stripSeparators(lit)
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		s = s[2:]
	}
	if s == "" {
		return 0, fmt.Errorf("malformed integer literal %q", lit)
	}
	v, err := strconv.ParseUint(s, base, bits)
	if err != nil {
		return 0, fmt.Errorf("malformed integer literal %q: %w", lit, err)
	}
	return v, nil
}

func parseSignedLiteral(lit string, bits int) (int64, error) {
	neg := false
	s := lit
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	mag, err := parseUintLiteral(s, bits)
	if err != nil {
		return 0, err
	}
	if neg {
		return -int64(mag), nil
	}
	return int64(mag), nil
}

// ParseFloat32Bits parses a float literal (decimal, hex-float "0x1.8p3",
// or one of "inf"/"nan"/"nan:0x<payload>", each with an optional sign) into
// its IEEE-754 single-precision bit pattern.
func ParseFloat32Bits(lit string) (uint32, error) {
	if v, ok, err := parseSpecialFloat32(lit); ok {
		return v, err
	}
	s := stripSeparators(lit)
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed float literal %q: %w", lit, err)
	}
	return math.Float32bits(float32(f)), nil
}

// ParseFloat64Bits parses a float literal into its IEEE-754 double-precision
// bit pattern.
func ParseFloat64Bits(lit string) (uint64, error) {
	if v, ok, err := parseSpecialFloat64(lit); ok {
		return v, err
	}
	s := stripSeparators(lit)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed float literal %q: %w", lit, err)
	}
	return math.Float64bits(f), nil
}

func splitSign(lit string) (neg bool, rest string) {
	switch {
	case strings.HasPrefix(lit, "-"):
		return true, lit[1:]
	case strings.HasPrefix(lit, "+"):
		return false, lit[1:]
	default:
		return false, lit
	}
}

// parseSpecialFloat32 handles the non-numeric-grammar float literals "inf"
// and "nan"/"nan:0x<hex>", which strconv.ParseFloat does not accept in the
// exact form the text format specifies.
func parseSpecialFloat32(lit string) (uint32, bool, error) {
	neg, rest := splitSign(lit)
	sign32 := uint32(0)
	if neg {
		sign32 = 1 << 31
	}
	switch {
	case rest == "inf":
		return sign32 | 0x7f800000, true, nil
	case rest == "nan":
		return sign32 | 0x7fc00000, true, nil
	case strings.HasPrefix(rest, "nan:0x"):
		payload, err := strconv.ParseUint(rest[len("nan:0x"):], 16, 23)
		if err != nil {
			return 0, true, fmt.Errorf("malformed nan payload %q: %w", lit, err)
		}
		if payload == 0 {
			return 0, true, fmt.Errorf("malformed nan payload %q: significand must be non-zero", lit)
		}
		return sign32 | 0x7f800000 | uint32(payload), true, nil
	}
	return 0, false, nil
}

func parseSpecialFloat64(lit string) (uint64, bool, error) {
	neg, rest := splitSign(lit)
	sign64 := uint64(0)
	if neg {
		sign64 = 1 << 63
	}
	switch {
	case rest == "inf":
		return sign64 | 0x7ff0000000000000, true, nil
	case rest == "nan":
		return sign64 | 0x7ff8000000000000, true, nil
	case strings.HasPrefix(rest, "nan:0x"):
		payload, err := strconv.ParseUint(rest[len("nan:0x"):], 16, 52)
		if err != nil {
			return 0, true, fmt.Errorf("malformed nan payload %q: %w", lit, err)
		}
		if payload == 0 {
			return 0, true, fmt.Errorf("malformed nan payload %q: significand must be non-zero", lit)
		}
		return sign64 | 0x7ff0000000000000 | payload, true, nil
	}
	return 0, false, nil
}

// LooksLikeNumber reports whether a TokenWord's raw text has the shape of a
// numeric literal (leading sign, digit, or "."), as opposed to a keyword or
// reserved symbol - the post-lex classification the DFA itself deliberately
// does not perform (see DESIGN.md).
func LooksLikeNumber(text string) bool {
	s := text
	if len(s) == 0 {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "inf") || strings.HasPrefix(s, "nan") {
		return true
	}
	c := s[0]
	return c >= '0' && c <= '9'
}
