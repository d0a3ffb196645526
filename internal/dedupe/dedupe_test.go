package dedupe

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases host", "https://X.com/a", "https://x.com/a"},
		{"strips trailing slash", "https://x.com/a/", "https://x.com/a"},
		{"strips repeated trailing slashes", "https://x.com/a///", "https://x.com/a"},
		{"drops fragment", "https://x.com/a#section", "https://x.com/a"},
		{"preserves scheme", "http://x.com/a", "http://x.com/a"},
		{"preserves path case", "https://x.com/Page", "https://x.com/Page"},
		{"drops query", "https://x.com/a?v=2", "https://x.com/a"},
		{"drops tracking params", "https://x.com/a?utm_source=mail&utm_medium=email", "https://x.com/a"},
		{"trims whitespace", "  https://x.com/a  ", "https://x.com/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFingerprintEquivalence(t *testing.T) {
	// Trailing slash, fragment, query string and host case must not
	// affect the fingerprint.
	base := Fingerprint("https://x.com/a")

	for _, variant := range []string{
		"https://x.com/a/",
		"https://X.com/a",
		"https://x.com/a#anchor",
		"https://x.com/a?utm_source=mail",
		"https://x.com/a?utm_source=mail&utm_campaign=weekly",
		" https://x.com/a ",
	} {
		if got := Fingerprint(variant); got != base {
			t.Errorf("Fingerprint(%q) = %q, want same as base %q", variant, got, base)
		}
	}
}

func TestFingerprintDistinguishesPaths(t *testing.T) {
	if Fingerprint("https://x.com/a") == Fingerprint("https://x.com/a/b") {
		t.Error("expected different fingerprints for different paths")
	}

	if Fingerprint("https://x.com/a") == Fingerprint("http://x.com/a") {
		t.Error("expected different fingerprints for different schemes")
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	first := Fingerprint("https://notion.so/workspace/task-123")
	second := Fingerprint("https://notion.so/workspace/task-123")

	if first != second {
		t.Errorf("expected deterministic fingerprint, got %q and %q", first, second)
	}

	if len(first) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(first))
	}
}
