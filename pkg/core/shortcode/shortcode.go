// Package shortcode generates random short codes and validates custom slugs.
package shortcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var charsetLen = big.NewInt(int64(len(charset)))

// Generate returns a random base62 code of the given length.
func Generate(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("short code length must be positive, got %d", length)
	}
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}

// Policy bounds what a caller may choose as a custom slug.
type Policy struct {
	MinLength int
	MaxLength int
}

// DefaultPolicy accepts slugs between 1 and 64 characters.
func DefaultPolicy() Policy {
	return Policy{MinLength: 1, MaxLength: 64}
}

// Validate returns a human-readable reason when slug is not acceptable, or "".
func (p Policy) Validate(slug string) string {
	if len(slug) < p.MinLength {
		return fmt.Sprintf("must be at least %d characters", p.MinLength)
	}
	if p.MaxLength > 0 && len(slug) > p.MaxLength {
		return fmt.Sprintf("must be at most %d characters", p.MaxLength)
	}
	for _, c := range slug {
		if !isSlugChar(c) {
			return fmt.Sprintf("contains invalid character %q", c)
		}
	}
	return ""
}

func isSlugChar(c rune) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_'
}
