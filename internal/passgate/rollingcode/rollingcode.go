// Package rollingcode derives short time-windowed one-time codes from a
// stable base code.  Codes are a deterministic function of wall-clock time
// and the base secret; nothing is persisted and no state is shared, so the
// package is safe under unbounded concurrency.
package rollingcode

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// CodeLength is the number of uppercase hex characters in a rolling code.
const CodeLength = 16

// verifyWindowDepth is how many past windows Verify accepts in addition to
// the current one.  Exactly one prior window tolerates a code generated
// just before a boundary being checked just after it.  Widening or
// tightening this is a security/usability trade-off, not a tuning knob.
const verifyWindowDepth = 1

// Generate returns the code for the current time window.
func Generate(baseCode string, windowMinutes int) string {
	return GenerateAt(baseCode, windowMinutes, time.Now())
}

// GenerateAt returns the code for the window containing at.
func GenerateAt(baseCode string, windowMinutes int, at time.Time) string {
	return codeForWindow(baseCode, windowIndex(at, windowMinutes))
}

// Verify reports whether candidate matches the code for the current window
// or the immediately preceding one.
func Verify(candidate, baseCode string, windowMinutes int) bool {
	return VerifyAt(candidate, baseCode, windowMinutes, time.Now())
}

// VerifyAt is Verify against an explicit instant.
func VerifyAt(candidate, baseCode string, windowMinutes int, at time.Time) bool {
	w := windowIndex(at, windowMinutes)
	for d := int64(0); d <= verifyWindowDepth; d++ {
		expected := codeForWindow(baseCode, w-d)
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(expected)) == 1 {
			return true
		}
	}
	return false
}

func windowIndex(at time.Time, windowMinutes int) int64 {
	if windowMinutes <= 0 {
		windowMinutes = 1
	}
	return at.UnixMilli() / (int64(windowMinutes) * 60_000)
}

func codeForWindow(baseCode string, window int64) string {
	sum := sha256.Sum256([]byte(baseCode + "-" + strconv.FormatInt(window, 10)))
	return strings.ToUpper(hex.EncodeToString(sum[:]))[:CodeLength]
}
