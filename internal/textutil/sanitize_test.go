package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"  clip.m4a ":      "clip.m4a",
		"a/b\\c:d*e?.mp4":  "a-b-c-d-e.mp4",
		"../../etc/passwd": "-..-etc-passwd",
		"ｒｅｃｏｒｄｉｎｇ.m4a":    "recording.m4a",
		"配音\x00作品.mp4":     "配音作品.mp4",
		".hidden":          "hidden",
		"":                 "",
	}
	for in, want := range cases {
		if got := SanitizeFileName(in); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFileNameTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("配", 100) + ".mp4"
	got := SanitizeFileName(long)
	if len(got) > maxFileNameBytes || !utf8.ValidString(got) {
		t.Fatalf("expected valid truncated name, got %d bytes", len(got))
	}
}

func TestSanitizeToken(t *testing.T) {
	cases := map[string]string{
		"Composite Dubbing": "composite_dubbing",
		"12":                "12",
		"  ":                "unknown",
		"../x":              "x",
	}
	for in, want := range cases {
		if got := SanitizeToken(in); got != want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}
