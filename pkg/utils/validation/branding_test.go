package validation

import (
	"strings"
	"testing"
)

func TestSanitizeColor(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"#6366f1", "#6366f1"},
		{"#FFF", "#fff"},
		{"  #abc123  ", "#abc123"},
		{"red", DefaultPrimaryColor},
		{"#12345", DefaultPrimaryColor},
		{"#gggggg", DefaultPrimaryColor},
		{"", DefaultPrimaryColor},
		{"#fff; background: url(evil)", DefaultPrimaryColor},
	}

	for _, tt := range tests {
		if got := SanitizeColor(tt.input, DefaultPrimaryColor); got != tt.expected {
			t.Errorf("SanitizeColor(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestSanitizeDomain(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"forms.example.com", "forms.example.com"},
		{"FORMS.Example.COM", "forms.example.com"},
		{"https://forms.example.com/", "forms.example.com"},
		{"example", ""},
		{"-bad.example.com", ""},
		{"exa mple.com", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SanitizeDomain(tt.input); got != tt.expected {
			t.Errorf("SanitizeDomain(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestSanitizeCSS(t *testing.T) {
	safe := ".form-title { color: #333; font-size: 18px; }"
	if got := SanitizeCSS(safe); got != safe {
		t.Errorf("Safe CSS should pass through unchanged, got %q", got)
	}

	dangerous := []string{
		"@import url('http://evil.example/steal.css');",
		"width: expression(alert(1));",
		"background: url(javascript:alert(1));",
		"behavior: url(evil.htc);",
		"</style><script>alert(1)</script>",
		"BEHAVIOR: url(evil.htc);",
	}
	for _, css := range dangerous {
		if got := SanitizeCSS(css); got != "" {
			t.Errorf("Dangerous CSS %q should be dropped, got %q", css, got)
		}
	}

	if got := SanitizeCSS(strings.Repeat("a", 10001)); got != "" {
		t.Error("Oversized CSS should be dropped")
	}
}
