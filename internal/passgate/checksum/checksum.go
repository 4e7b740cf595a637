// Package checksum appends a short integrity suffix to codes meant for
// manual keypad entry, so a transcription slip is caught before any store
// lookup happens.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SuffixLength is the number of checksum characters appended to a base code.
const SuffixLength = 4

// WithChecksum returns baseCode with its 4-character checksum appended.
func WithChecksum(baseCode string) string {
	return baseCode + suffixFor(baseCode)
}

// Verify splits the trailing checksum off code, recomputes it from the
// remaining prefix and reports the extracted base code on success.  Inputs
// too short to contain a base plus suffix are invalid outright.
func Verify(code string) (string, bool) {
	if len(code) <= SuffixLength {
		return "", false
	}
	base := code[:len(code)-SuffixLength]
	if code[len(code)-SuffixLength:] != suffixFor(base) {
		return "", false
	}
	return base, true
}

func suffixFor(baseCode string) string {
	sum := sha256.Sum256([]byte(baseCode))
	return strings.ToUpper(hex.EncodeToString(sum[:]))[:SuffixLength]
}
