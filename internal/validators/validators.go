// Package validators holds the text predicates shared by the schema and config
// models and by the editor's form fields.
package validators

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	identifierRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	versionRe    = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)

	// Decimal literals only; a single underscore may sit between digits.
	integerRe = regexp.MustCompile(`^[+-]?[0-9](_?[0-9])*$`)
	floatRe   = regexp.MustCompile(`^[+-]?([0-9](_?[0-9])*(\.([0-9](_?[0-9])*)?)?|\.[0-9](_?[0-9])*)([eE][+-]?[0-9](_?[0-9])*)?$`)
	specialRe = regexp.MustCompile(`(?i)^[+-]?(inf|infinity|nan)$`)

	errSyntax = errors.New("invalid syntax")
)

// Type is the primitive kind a raw value is checked against.
type Type string

const (
	String  Type = "String"
	Boolean Type = "Boolean"
	Integer Type = "Integer"
	Float   Type = "Float"
)

// IsIdentifier reports whether text is a non-empty run of letters, digits and underscores.
func IsIdentifier(text string) bool {
	return identifierRe.MatchString(text)
}

// IsNonBlank reports whether text has at least one non-whitespace character.
func IsNonBlank(text string) bool {
	return strings.TrimSpace(text) != ""
}

// IsVersion reports whether text is exactly x.y.z with non-negative integers.
func IsVersion(text string) bool {
	return versionRe.MatchString(text)
}

// ParseInteger reads text as a decimal int64, ignoring surrounding
// whitespace. Digits may be grouped with single underscores, as in "1_000".
func ParseInteger(text string) (int64, error) {
	text = strings.TrimSpace(text)
	if !integerRe.MatchString(text) {
		return 0, fmt.Errorf("integer %q: %w", text, errSyntax)
	}
	return strconv.ParseInt(strings.ReplaceAll(text, "_", ""), 10, 64)
}

// ParseFloat reads text as a decimal float, ignoring surrounding whitespace.
// It accepts the inf, infinity and nan spellings and underscore-grouped
// digits, but not hexadecimal literals. Overflowing literals read as ±Inf.
func ParseFloat(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if !floatRe.MatchString(text) && !specialRe.MatchString(text) {
		return 0, fmt.Errorf("float %q: %w", text, errSyntax)
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, err
	}
	return f, nil
}

// ParsesAsInteger reports whether ParseInteger accepts text.
func ParsesAsInteger(text string) bool {
	_, err := ParseInteger(text)
	return err == nil
}

// ParsesAsFloat reports whether ParseFloat accepts text.
func ParsesAsFloat(text string) bool {
	_, err := ParseFloat(text)
	return err == nil
}

// ConformsToType reports whether raw is an acceptable value for t.
//
// The rules are stricter than plain parsing: a String must not look like a
// number, a Float must not look like an Integer, and a Boolean must be one
// of "true", "false", "1" or "0". Unknown types never conform.
func ConformsToType(raw string, t Type) bool {
	switch t {
	case String:
		return !ParsesAsInteger(raw) && !ParsesAsFloat(raw)
	case Boolean:
		switch raw {
		case "true", "false", "1", "0":
			return true
		}
		return false
	case Integer:
		return ParsesAsInteger(raw)
	case Float:
		return ParsesAsFloat(raw) && !ParsesAsInteger(raw)
	default:
		return false
	}
}
