package validators

import (
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestIsIdentifier(t *testing.T) {
	cases := map[string]bool{
		"a_b_X_Y_123":      true,
		"name0":            true,
		"_":                true,
		"#":                false,
		"":                 false,
		"a b":              false,
		"<new group name>": false,
	}
	for in, want := range cases {
		if got := IsIdentifier(in); got != want {
			t.Fatalf("IsIdentifier(%q)=%v want %v", in, got, want)
		}
	}
}

func TestIsNonBlank(t *testing.T) {
	for _, in := range []string{"", " ", "\t", "\n", " \t\n "} {
		if IsNonBlank(in) {
			t.Fatalf("IsNonBlank(%q) should be false", in)
		}
	}
	for _, in := range []string{"x", " x ", "\tdesc\n"} {
		if !IsNonBlank(in) {
			t.Fatalf("IsNonBlank(%q) should be true", in)
		}
	}
}

func TestIsVersion(t *testing.T) {
	for _, in := range []string{"0.1.2", "12.34.56", "0.0.0"} {
		if !IsVersion(in) {
			t.Fatalf("IsVersion(%q) should be true", in)
		}
	}
	for _, in := range []string{"0.1", "0.1.0.1", "20240325", "v1.2.3", "1.2.3-rc1", "", "invalid_version"} {
		if IsVersion(in) {
			t.Fatalf("IsVersion(%q) should be false", in)
		}
	}
}

func TestConformsToType(t *testing.T) {
	cases := []struct {
		raw  string
		typ  Type
		want bool
	}{
		{"", String, true},
		{"value", String, true},
		{"100", String, false},
		{"1.5", String, false},
		{" 7 ", String, false},
		{"true", Boolean, true},
		{"false", Boolean, true},
		{"1", Boolean, true},
		{"0", Boolean, true},
		{"", Boolean, false},
		{"True", Boolean, false},
		{"yes", Boolean, false},
		{"1.0", Float, true},
		{"0.0", Float, true},
		{"1e3", Float, true},
		{"1", Float, false},
		{"not a float", Float, false},
		{"1_000.5", Float, true},
		{"1__0.5", Float, false},
		{"0x1p4", Float, false},
		{"0x1p4", String, true},
		{"inf", Float, true},
		{"-Infinity", Float, true},
		{"NaN", String, false},
		{"1", Integer, true},
		{"-42", Integer, true},
		{"1_000", Integer, true},
		{"1_000", String, false},
		{"_1", Integer, false},
		{"1_", Integer, false},
		{"0x10", Integer, false},
		{"1.0", Integer, false},
		{"not an int", Integer, false},
		{"1", Type("Bogus"), false},
	}
	for _, tc := range cases {
		if got := ConformsToType(tc.raw, tc.typ); got != tc.want {
			t.Fatalf("ConformsToType(%q, %s)=%v want %v", tc.raw, tc.typ, got, tc.want)
		}
	}
}

func TestConformsToType_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("every integer conforms to Integer and never to String or Float", prop.ForAll(
		func(n int64) bool {
			s := strconv.FormatInt(n, 10)
			return ConformsToType(s, Integer) && !ConformsToType(s, String) && !ConformsToType(s, Float)
		},
		gen.Int64(),
	))

	properties.Property("letters-only text conforms to String", prop.ForAll(
		func(s string) bool {
			// inf/nan spellings parse as floats
			if ParsesAsFloat(s) {
				return !ConformsToType(s, String)
			}
			return ConformsToType(s, String)
		},
		gen.AlphaString(),
	))

	properties.Property("identifiers are exactly the non-empty word strings", prop.ForAll(
		func(s string) bool {
			return IsIdentifier(s) == (len(s) > 0)
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}
