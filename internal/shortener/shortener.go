package shortener

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Base62 character set (0-9, A-Z, a-z) - 62 characters total
// Using base62 instead of base64 avoids special characters that might cause URL issues
const base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// CodeGenerator generates short codes using cryptographically secure random numbers
// Thread-safe and collision-resistant
type CodeGenerator struct {
	length int // Length of generated codes
}

// NewCodeGenerator creates a new code generator with specified length
// - 6 chars = 62^6 = ~56 billion combinations
// - 7 chars = 62^7 = ~3.5 trillion combinations
func NewCodeGenerator(length int) *CodeGenerator {
	if length < 4 {
		length = 6 // Minimum safe length
	}
	if length > 12 {
		length = 12 // Maximum reasonable length
	}

	return &CodeGenerator{
		length: length,
	}
}

// Length returns the size of generated codes
func (g *CodeGenerator) Length() int {
	return g.length
}

// Generate creates a random short code using base62 encoding.
// Codes must not be guessable, so a failing entropy source is an error
// rather than a fallback.
func (g *CodeGenerator) Generate() (string, error) {
	result := make([]byte, g.length)
	max := big.NewInt(int64(len(base62Chars)))

	for i := 0; i < g.length; i++ {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = base62Chars[num.Int64()]
	}

	return string(result), nil
}

// IsValid checks if a generated code contains only base62 characters
func (g *CodeGenerator) IsValid(code string) bool {
	if len(code) != g.length {
		return false
	}
	for _, char := range code {
		if !strings.ContainsRune(base62Chars, char) {
			return false
		}
	}
	return true
}
