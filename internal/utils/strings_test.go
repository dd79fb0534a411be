package utils

import "testing"

func TestMaskKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", "(empty)"},
		{"short key", "sk-or-123", "****"},
		{"normal key", "sk-or-v1-123456789abcdef", "sk-or-v1...cdef"},
		{"long key", "sk-or-v1-123456789abcdefghijklmnop", "sk-or-v1...mnop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MaskKey(tt.input)
			if result != tt.expected {
				t.Errorf("MaskKey(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{"shorter than limit", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"truncated", "hello world", 5, "hello..."},
		{"zero limit passes through", "hello", 0, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Truncate(tt.input, tt.maxLen)
			if result != tt.expected {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, result, tt.expected)
			}
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("EstimateTokens(\"\") = %d, want 0", got)
	}
	short := EstimateTokens("hello")
	long := EstimateTokens("hello hello hello hello hello hello hello hello")
	if short <= 0 {
		t.Errorf("EstimateTokens(short) = %d, want > 0", short)
	}
	if long <= short {
		t.Errorf("longer text must estimate more tokens: short=%d long=%d", short, long)
	}
}
