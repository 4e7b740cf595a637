package checksum_test

import (
	"testing"

	"passgate/internal/passgate/checksum"
)

func TestWithChecksum_RoundTrip(t *testing.T) {
	for _, base := range []string{"ABC123", "X", "visitor-20260301", "00000000"} {
		code := checksum.WithChecksum(base)

		if len(code) != len(base)+checksum.SuffixLength {
			t.Errorf("%q: expected %d characters, got %d", base, len(base)+checksum.SuffixLength, len(code))
		}

		got, ok := checksum.Verify(code)
		if !ok {
			t.Errorf("%q: Verify rejected its own WithChecksum output", base)
		}
		if got != base {
			t.Errorf("%q: extracted base %q", base, got)
		}
	}
}

func TestVerify_MutatedSuffix(t *testing.T) {
	code := checksum.WithChecksum("ABC123")

	// Mutate each suffix character in turn.
	for i := len(code) - checksum.SuffixLength; i < len(code); i++ {
		b := []byte(code)
		if b[i] == 'X' {
			b[i] = 'Y'
		} else {
			b[i] = 'X'
		}
		if _, ok := checksum.Verify(string(b)); ok {
			t.Errorf("mutation at %d accepted: %q", i, string(b))
		}
	}
}

func TestVerify_MutatedBase(t *testing.T) {
	code := checksum.WithChecksum("ABC123")
	b := []byte(code)
	b[0] = 'Z'

	if _, ok := checksum.Verify(string(b)); ok {
		t.Error("mutated base must not verify against the old suffix")
	}
}

func TestVerify_TooShort(t *testing.T) {
	for _, code := range []string{"", "A", "ABCD"} {
		if _, ok := checksum.Verify(code); ok {
			t.Errorf("short input %q must be invalid", code)
		}
	}
}
