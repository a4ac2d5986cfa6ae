// Package sessioncode generates and validates the 8-character codes that
// identify estimation sessions.
package sessioncode

import (
	"crypto/rand"
	"strings"
)

// Length is the fixed session code length.
const Length = 8

// alphabet deliberately omits 0/O/1/I so codes survive being read aloud.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Generate returns a new random session code.
func Generate() string {
	b := make([]byte, Length)
	rand.Read(b)
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b)
}

// Normalize upper-cases and trims a user-supplied code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code has the right length and alphabet.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(alphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
