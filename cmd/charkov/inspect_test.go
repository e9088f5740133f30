package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		s    string
		n    int
		want string
	}{
		{"zero width", "abc", 0, ""},
		{"negative width", "abc", -1, ""},
		{"fits", "abc", 3, "abc"},
		{"truncated", "abcdef", 4, "abc…"},
		{"flattens whitespace", "a\nb\tc", 10, "a b c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, preview(tt.s, tt.n))
		})
	}
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "12345678", shortID("123456789abc"))
	assert.Equal(t, "run-1", shortID("run-1"))
}
