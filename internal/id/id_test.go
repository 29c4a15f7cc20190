package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPostingNumber(t *testing.T) {
	tests := []struct {
		prefix    string
		year, seq int
		want      string
	}{
		{"JE", 2024, 1, "JE-2024000001"},
		{"JE", 2025, 99, "JE-2025000099"},
		{"INV", 2024, 123456, "INV-2024123456"},
		{"S1", 2024, MaxSeq, "S1-2024999999"},
	}
	for _, tt := range tests {
		got, err := FormatPostingNumber(tt.prefix, tt.year, tt.seq)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestFormatPostingNumber_Errors(t *testing.T) {
	bad := []struct {
		prefix    string
		year, seq int
	}{
		{"", 2024, 1},
		{"je", 2024, 1},
		{"J-E", 2024, 1},
		{"JE", 0, 1},
		{"JE", 2024, 0},
		{"JE", 2024, MaxSeq + 1},
	}
	for _, tt := range bad {
		_, err := FormatPostingNumber(tt.prefix, tt.year, tt.seq)
		assert.Error(t, err, "expected error for %+v", tt)
	}
}

func TestParsePostingNumber(t *testing.T) {
	tests := []struct {
		input     string
		prefix    string
		year, seq int
	}{
		{"JE-2024000001", "JE", 2024, 1},
		{"INV-2025123456", "INV", 2025, 123456},
	}
	for _, tt := range tests {
		prefix, year, seq, err := ParsePostingNumber(tt.input)
		require.NoError(t, err, "input: %s", tt.input)
		assert.Equal(t, tt.prefix, prefix)
		assert.Equal(t, tt.year, year)
		assert.Equal(t, tt.seq, seq)
	}
}

func TestParsePostingNumber_Errors(t *testing.T) {
	badInputs := []string{
		"",
		"JE2024000001",
		"-2024000001",
		"JE-202400001",
		"JE-xxxx000001",
		"JE-2024abcdef",
	}
	for _, input := range badInputs {
		_, _, _, err := ParsePostingNumber(input)
		assert.Error(t, err, "expected error for input: %s", input)
	}
}

func TestCounterKey(t *testing.T) {
	assert.Equal(t, "JE/2024", CounterKey("JE", 2024))
}
