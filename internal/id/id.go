package id

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxSeq is the largest counter that fits the six-digit number suffix.
const MaxSeq = 999999

// FormatPostingNumber returns a posting number like "JE-2024000001".
func FormatPostingNumber(prefix string, year, seq int) (string, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return "", err
	}
	if year < 1 || year > 9999 {
		return "", fmt.Errorf("year %d out of range", year)
	}
	if seq < 1 || seq > MaxSeq {
		return "", fmt.Errorf("sequence %d out of range 1..%d", seq, MaxSeq)
	}
	return fmt.Sprintf("%s-%04d%06d", prefix, year, seq), nil
}

// ParsePostingNumber parses "JE-2024000001" into prefix, year, seq.
func ParsePostingNumber(number string) (prefix string, year, seq int, err error) {
	i := strings.LastIndexByte(number, '-')
	if i <= 0 {
		return "", 0, 0, fmt.Errorf("invalid posting number format: %q", number)
	}
	prefix, rest := number[:i], number[i+1:]
	if len(rest) != 10 {
		return "", 0, 0, fmt.Errorf("invalid posting number format: %q", number)
	}

	year, err = strconv.Atoi(rest[:4])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid year in posting number %q: %w", number, err)
	}

	seq, err = strconv.Atoi(rest[4:])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid sequence in posting number %q: %w", number, err)
	}

	return prefix, year, seq, nil
}

// ValidatePrefix checks that a document prefix is non-empty upper-case alphanumerics.
func ValidatePrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("empty posting prefix")
	}
	for _, r := range prefix {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fmt.Errorf("invalid posting prefix %q: only A-Z and 0-9 allowed", prefix)
		}
	}
	return nil
}

// CounterKey names the sequence counter for a prefix and year, e.g. "JE/2024".
func CounterKey(prefix string, year int) string {
	return fmt.Sprintf("%s/%04d", prefix, year)
}
