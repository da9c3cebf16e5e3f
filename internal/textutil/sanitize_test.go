package textutil_test

import (
	"testing"

	"hlspack/internal/textutil"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Movie", "Movie"},
		{"spaces", "Some Movie Title", "Some_Movie_Title"},
		{"diacritics", "Olá Mundo", "Ola_Mundo"},
		{"mixed accents", "Çà et là", "Ca_et_la"},
		{"punctuation dropped", "a/b:c*d?.mkv", "abcdmkv"},
		{"keeps dashes and underscores", "one-two_three", "one-two_three"},
		{"empty", "", ""},
		{"only unsafe", "¿¡***!?", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := textutil.SanitizeFileName(tc.input); got != tc.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSanitizeFileNameIdempotent(t *testing.T) {
	inputs := []string{"Olá Mundo", "Some Movie", "já_São-Paulo 4K", "plain"}
	for _, input := range inputs {
		once := textutil.SanitizeFileName(input)
		twice := textutil.SanitizeFileName(once)
		if once != twice {
			t.Fatalf("sanitization not idempotent for %q: %q then %q", input, once, twice)
		}
	}
}

func TestSanitizeFileNameASCIIOnly(t *testing.T) {
	out := textutil.SanitizeFileName("日本語 Ωmega test")
	for _, r := range out {
		ok := r == '-' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			t.Fatalf("unexpected rune %q in %q", r, out)
		}
	}
}
