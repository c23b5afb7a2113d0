package security

import (
	"strings"
	"testing"
)

// TestSanitize_StripsTags はHTMLタグが除去されテキストのみ残ることを検証する。
func TestSanitize_StripsTags(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "平文はそのまま", input: "Morning run", want: "Morning run"},
		{name: "前後の空白を除去", input: "  lunch  ", want: "lunch"},
		{name: "太字タグを除去", input: "<b>Dal</b>", want: "Dal"},
		{name: "リンクを除去", input: `<a href="https://example.com">felt great</a>`, want: "felt great"},
		{name: "アンパサンドは平文で保持", input: "Rice & Dal", want: "Rice & Dal"},
		{name: "空文字列", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_RemovesScript はscriptタグとその中身が除去されることを検証する。
func TestSanitize_RemovesScript(t *testing.T) {
	sanitizer := NewTextSanitizer()

	got := sanitizer.Sanitize(`notes<script>alert("xss")</script>`)
	if strings.Contains(got, "<script") || strings.Contains(got, "alert") {
		t.Errorf("script not removed: %q", got)
	}
	if !strings.Contains(got, "notes") {
		t.Errorf("text lost: %q", got)
	}
}

// TestSanitize_RemovesEventHandlers はon*属性を含む要素が無害化されることを検証する。
func TestSanitize_RemovesEventHandlers(t *testing.T) {
	sanitizer := NewTextSanitizer()

	got := sanitizer.Sanitize(`<img src=x onerror="alert(1)">yoga`)
	if strings.Contains(got, "onerror") || strings.Contains(got, "<img") {
		t.Errorf("event handler not removed: %q", got)
	}
	if got != "yoga" {
		t.Errorf("Sanitize = %q, want %q", got, "yoga")
	}
}

// TestSanitize_Idempotent は同一入力に対して同一出力を返すことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()
	input := "<p>Leg day</p>"

	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)
	if first != second {
		t.Errorf("not idempotent: %q then %q", first, second)
	}
}
