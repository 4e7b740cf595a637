package rollingcode_test

import (
	"strings"
	"testing"
	"time"

	"passgate/internal/passgate/rollingcode"
)

func TestGenerate_Format(t *testing.T) {
	code := rollingcode.Generate("BASE", 5)

	if len(code) != rollingcode.CodeLength {
		t.Fatalf("expected %d characters, got %d (%q)", rollingcode.CodeLength, len(code), code)
	}
	if code != strings.ToUpper(code) {
		t.Errorf("expected uppercase, got %q", code)
	}
	if strings.Trim(code, "0123456789ABCDEF") != "" {
		t.Errorf("expected hex characters only, got %q", code)
	}
}

func TestGenerate_StableWithinWindow(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 2, 0, 0, time.UTC)

	a := rollingcode.GenerateAt("BASE", 5, at)
	b := rollingcode.GenerateAt("BASE", 5, at.Add(2*time.Minute+59*time.Second))
	if a != b {
		t.Errorf("codes within one window must match: %q vs %q", a, b)
	}
}

func TestGenerate_ChangesAcrossWindows(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 2, 0, 0, time.UTC)

	a := rollingcode.GenerateAt("BASE", 5, at)
	b := rollingcode.GenerateAt("BASE", 5, at.Add(5*time.Minute))
	if a == b {
		t.Error("codes from adjacent windows must differ")
	}
}

func TestVerify_CurrentAndPreviousWindowOnly(t *testing.T) {
	issued := time.Date(2026, 3, 1, 9, 0, 30, 0, time.UTC)
	code := rollingcode.GenerateAt("BASE", 5, issued)

	cases := []struct {
		name  string
		later time.Duration
		want  bool
	}{
		{"same window", 0, true},
		{"4 minutes later", 4 * time.Minute, true},
		{"next window (boundary skew)", 5 * time.Minute, true},
		{"two windows later", 10 * time.Minute, false},
		{"11 minutes later", 11 * time.Minute, false},
	}

	for _, tc := range cases {
		got := rollingcode.VerifyAt(code, "BASE", 5, issued.Add(tc.later))
		if got != tc.want {
			t.Errorf("%s: VerifyAt=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestVerify_WrongBase(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 30, 0, time.UTC)
	code := rollingcode.GenerateAt("BASE", 5, at)

	if rollingcode.VerifyAt(code, "OTHER", 5, at) {
		t.Error("code for one base must not verify against another")
	}
}

func TestVerify_MalformedCandidate(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 30, 0, time.UTC)

	for _, candidate := range []string{"", "short", strings.Repeat("Z", 16)} {
		if rollingcode.VerifyAt(candidate, "BASE", 5, at) {
			t.Errorf("candidate %q must not verify", candidate)
		}
	}
}
