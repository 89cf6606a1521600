package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "control characters", input: "a\x00b\x07c\x7f", expected: "abc"},
		{name: "newlines and tabs kept", input: "a\n\tb\r\n", expected: "a\n\tb\r\n"},
		{name: "zero width", input: "zero\u200bwidth\ufeff\u2060", expected: "zerowidth"},
		{name: "nbsp", input: "a\u00a0b\u3000c", expected: "a b c"},
		{name: "nfc", input: "e\u0301", expected: "\u00e9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanText(tt.input))
		})
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b\n\nc", NormalizeWhitespace("  a \t b  \r\n\r\n\r\n\n c  "))
	assert.Equal(t, "one\ntwo", NormalizeWhitespace("one  \n   two"))
	assert.Equal(t, "", NormalizeWhitespace(" \n\t "))
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "a b c", CollapseSpaces("\n a \n\n b\tc  "))
}
