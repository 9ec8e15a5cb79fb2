// Package clean normalizes raw source values into typed values or explicit absence.
//
// Every function is total: malformed, suppressed, or out-of-range input
// yields a nil pointer, never an error and never a clamped or zeroed value.
package clean

import (
	"strconv"
	"strings"
)

// Kind is the semantic type of a source field.
type Kind int

const (
	// Text is a free-form string field.
	Text Kind = iota
	// Int is an integer field, optionally range-bounded.
	Int
	// Float is a floating-point field, optionally range-bounded.
	Float
	// Code is a fixed-length string code. Numeric representations shorter
	// than the declared length are zero-padded; longer values are rejected.
	Code
)

// FieldSpec describes one source column: where to read it and how to validate it.
// Specs are plain values; the schema catalog hands an immutable set of them
// to each loader.
type FieldSpec struct {
	Column   string // source header name, matched against the normalized header
	Kind     Kind
	HasRange bool
	Min, Max float64 // inclusive bounds, meaningful only when HasRange
	Length   int     // declared length, meaningful only for Code
}

// sentinels are the upstream "suppressed / not reported" markers, compared
// case-insensitively. The numeric flags are IPEDS missing-value codes.
var sentinels = map[string]bool{
	"":                  true,
	"na":                true,
	"n/a":               true,
	"nan":               true,
	"null":              true,
	"privacysuppressed": true,
	"-2":                true,
	"-3":                true,
	"-999":              true,
}

// IsSentinel reports whether the raw value is a recognized unavailable marker.
func IsSentinel(raw string) bool {
	return sentinels[strings.ToLower(strings.TrimSpace(raw))]
}

// String cleans a free-form text field. Returns nil for sentinels.
func String(spec FieldSpec, raw string) *string {
	v := strings.TrimSpace(raw)
	if IsSentinel(v) {
		return nil
	}
	v = strings.ToValidUTF8(v, "")
	if v == "" {
		return nil
	}
	return &v
}

// IntValue cleans an integer field. Coercion failure or a value outside the
// declared range returns nil.
func IntValue(spec FieldSpec, raw string) *int {
	v := strings.TrimSpace(raw)
	if IsSentinel(v) {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// Some extracts render integers as "1.0".
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != float64(int(f)) {
			return nil
		}
		n = int(f)
	}
	if spec.HasRange && (float64(n) < spec.Min || float64(n) > spec.Max) {
		return nil
	}
	return &n
}

// FloatValue cleans a floating-point field. Coercion failure or a value
// outside the declared range returns nil; boundary values are retained.
func FloatValue(spec FieldSpec, raw string) *float64 {
	v := strings.TrimSpace(raw)
	if IsSentinel(v) {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	if spec.HasRange && (f < spec.Min || f > spec.Max) {
		return nil
	}
	return &f
}

// CodeValue cleans a fixed-length code field (state, FIPS, CBSA/CSA).
// Numeric codes shorter than the declared length are left-padded with
// zeros; codes longer than the declared length are rejected, not truncated.
func CodeValue(spec FieldSpec, raw string) *string {
	v := strings.TrimSpace(raw)
	if IsSentinel(v) {
		return nil
	}
	// Strip a trailing ".0" left behind by float-typed extract columns.
	if dot := strings.IndexByte(v, '.'); dot >= 0 && isDigits(v[:dot]) && isZeros(v[dot+1:]) {
		v = v[:dot]
	}
	if len(v) > spec.Length {
		return nil
	}
	if len(v) < spec.Length {
		if !isDigits(v) {
			return nil
		}
		v = strings.Repeat("0", spec.Length-len(v)) + v
	}
	return &v
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isZeros(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '0' {
			return false
		}
	}
	return len(s) > 0
}
