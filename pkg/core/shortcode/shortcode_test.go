package shortcode

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestGenerateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("generated codes have the requested length and base62 alphabet", prop.ForAll(
		func(length int) bool {
			code, err := Generate(length)
			if err != nil || len(code) != length {
				return false
			}
			for _, c := range code {
				if !strings.ContainsRune(charset, c) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 32),
	))

	properties.Property("generated codes pass the default slug policy", prop.ForAll(
		func(length int) bool {
			code, err := Generate(length)
			return err == nil && DefaultPolicy().Validate(code) == ""
		},
		gen.IntRange(1, 64),
	))

	properties.TestingRun(t)
}

func TestGenerateRejectsNonPositiveLength(t *testing.T) {
	if _, err := Generate(0); err == nil {
		t.Error("expected error for zero length")
	}
}

func TestGenerateIsNotConstant(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		code, err := Generate(8)
		if err != nil {
			t.Fatal(err)
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 45 {
		t.Errorf("expected mostly distinct codes, got %d distinct of 50", len(seen))
	}
}

func TestPolicyValidate(t *testing.T) {
	p := Policy{MinLength: 3, MaxLength: 8}

	tests := []struct {
		slug  string
		valid bool
	}{
		{"abc", true},
		{"my-slug_1", false}, // 9 chars
		{"my-slug", true},
		{"ab", false},
		{"has space", false},
		{"emoji😀", false},
		{"a/b", false},
		{"A_B-9", true},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			reason := p.Validate(tt.slug)
			if got := reason == ""; got != tt.valid {
				t.Errorf("Validate(%q) = %q, want valid=%v", tt.slug, reason, tt.valid)
			}
		})
	}
}
