package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/jaga42-ui/hopelink-sub000/internal/app/system/htmlsanitize"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "Rice, 5kg bag", "Rice, 5kg bag"},
		{"trims", "  need O+ urgently  ", "need O+ urgently"},
		{"strips tags", "<b>Fresh</b> bread", "Fresh bread"},
		{"ampersand survives", "Pens & pencils", "Pens & pencils"},
		{"comparison survives", "blood units 2 < 3", "blood units 2 < 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlsanitize.PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPlainText_RemovesScript(t *testing.T) {
	got := htmlsanitize.PlainText(`hello<script>alert('xss')</script>`)
	if strings.Contains(got, "script") || strings.Contains(got, "alert") {
		t.Errorf("script survived: %q", got)
	}
}

func TestPlainText_RemovesHandlers(t *testing.T) {
	got := htmlsanitize.PlainText(`<img src=x onerror="alert(1)">hi`)
	if strings.Contains(got, "onerror") {
		t.Errorf("handler survived: %q", got)
	}
	if got != "hi" {
		t.Errorf("got %q, want %q", got, "hi")
	}
}

func TestPlainTextMax(t *testing.T) {
	if got := htmlsanitize.PlainTextMax("abcdef", 3); got != "abc" {
		t.Errorf("got %q", got)
	}
	if got := htmlsanitize.PlainTextMax("ab", 3); got != "ab" {
		t.Errorf("got %q", got)
	}
	if got := htmlsanitize.PlainTextMax("नमस्ते दुनिया", 6); len([]rune(got)) > 6 {
		t.Errorf("rune cap exceeded: %q", got)
	}
}
