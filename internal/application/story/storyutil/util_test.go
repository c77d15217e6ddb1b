package storyutil

import "testing"

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"markdown fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose prefix", `Sure, here is the JSON: {"text": "hi"}`, `{"text": "hi"}`},
		{"prose suffix", `{"text": "hi"} Hope that helps!`, `{"text": "hi"}`},
		{"array", `noise [1, 2, 3] noise`, `[1, 2, 3]`},
		{"nested braces", `{"a": {"b": "}"}}`, `{"a": {"b": "}"}}`},
		{"empty", "", ""},
		{"no json", "just prose", "just prose"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractJSONObject(tc.in); got != tc.want {
				t.Errorf("ExtractJSONObject(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTailRunes(t *testing.T) {
	if got := TailRunes("hello world", 5); got != "world" {
		t.Errorf("expected tail %q, got %q", "world", got)
	}
	if got := TailRunes("short", 100); got != "short" {
		t.Errorf("expected whole string, got %q", got)
	}
	if got := TailRunes("anything", 0); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
	// 多字节字符不能被劈开
	if got := TailRunes("абвгд", 2); got != "гд" {
		t.Errorf("expected %q, got %q", "гд", got)
	}
}

func TestTailByApproxTokens(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "abcdefgh"
	}
	got := TailByApproxTokens(long, 10)
	if len(got) != 40 {
		t.Errorf("expected 40 chars for 10 tokens, got %d", len(got))
	}
	if got != long[len(long)-40:] {
		t.Error("expected the tail of the input, got something else")
	}
}

func TestTruncateByRunes(t *testing.T) {
	if got := TruncateByRunes("hello", 3); got != "hel" {
		t.Errorf("expected %q, got %q", "hel", got)
	}
	if got := TruncateByRunes("hi", 10); got != "hi" {
		t.Errorf("expected %q, got %q", "hi", got)
	}
}
