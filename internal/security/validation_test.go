package security

import (
	"strings"
	"testing"
)

func TestValidateSymbol(t *testing.T) {
	valid := []string{"SPY", "spy", " qqq ", "BRK.B", "BF-B", "ES1"}
	for _, s := range valid {
		if err := ValidateSymbol(s); err != nil {
			t.Errorf("ValidateSymbol(%q) = %v, want nil", s, err)
		}
	}

	invalid := []string{
		"",
		"   ",
		"TOOLONGSYMBOL",
		"SPY;rm -rf /",
		"SPY|cat",
		"$(whoami)",
		"SPY`id`",
		"SPY&QQQ",
		"SPY QQQ",
	}
	for _, s := range invalid {
		if err := ValidateSymbol(s); err == nil {
			t.Errorf("ValidateSymbol(%q) = nil, want error", s)
		}
	}
}

func TestSanitizeSymbol(t *testing.T) {
	tests := []struct{ in, want string }{
		{"spy", "SPY"},
		{" brk.b ", "BRK.B"},
		{"SPY;rm -rf", "SPYRM-RF"},
		{"$(id)", "ID"},
	}
	for _, tt := range tests {
		if got := SanitizeSymbol(tt.in); got != tt.want {
			t.Errorf("SanitizeSymbol(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskCredential(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"abc", "***"},
		{"abcdef", "ab****"},
		{"sk-abcdefghijklmnop", "sk-a***********mnop"},
	}
	for _, tt := range tests {
		if got := MaskCredential(tt.in); got != tt.want {
			t.Errorf("MaskCredential(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskSensitive(t *testing.T) {
	in := "request failed: api_key=sk-abcdefghijklmnopqrstuvwx status 401"
	out := MaskSensitive(in)
	if strings.Contains(out, "sk-abcdefghijklmnopqrstuvwx") {
		t.Errorf("API key not masked: %q", out)
	}

	plain := "nothing sensitive here"
	if MaskSensitive(plain) != plain {
		t.Error("plain text must pass through unchanged")
	}
}
