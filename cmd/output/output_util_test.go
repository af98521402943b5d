package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSensitiveValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty value", "", "(not set)"},
		{"single character", "a", "*"},
		{"two characters", "ab", "**"},
		{"three characters", "abc", "a*c"},
		{"short value (4-8 chars)", "secret", "s****t"},
		{"exactly 8 characters", "password", "p******d"},
		{"long value (>8 chars)", "verylongsecretpassword", "ver****************ord"},
		{"fernet key example", "cw_0x689RpI-jtRR7oE8h_eQsKImvJapLeSbXpwF4e4=", "cw_" + "**************************************" + "e4="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskSensitiveValue(tt.input))
		})
	}
}

func TestFormatCommitHash(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty commit", "", "-"},
		{"short commit", "abc123", "abc123"},
		{"exactly 8 characters", "12345678", "12345678"},
		{"long commit hash", "1234567890abcdef1234567890abcdef12345678", "12345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatCommitHash(tt.input))
		})
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		maxLength int
		expected  string
	}{
		{"string shorter than max", "hello", 10, "hello"},
		{"string equal to max", "hello", 5, "hello"},
		{"string longer than max", "hello world", 8, "hello..."},
		{"very short max length", "hello world", 3, "..."},
		{"max length 4", "hello world", 4, "h..."},
		{"empty string", "", 5, ""},
		{"single character with max 1", "a", 1, "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, truncateString(tt.input, tt.maxLength))
		})
	}
}
