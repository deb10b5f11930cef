package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeQueryComponent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice", "alice"},
		{"ann smith", "ann%20smith"},
		{"a+b", "a%2Bb"},
		{"x&y=z", "x%26y%3Dz"},
		{"한글", "%ED%95%9C%EA%B8%80"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapeQueryComponent(tt.in), tt.in)
	}
}

func TestIsDigits(t *testing.T) {
	assert.True(t, IsDigits("12345"))
	assert.False(t, IsDigits(""))
	assert.False(t, IsDigits("12a"))
	assert.False(t, IsDigits("-1"))
	assert.False(t, IsDigits("１２"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abc", 5))
	assert.Equal(t, "ab...", TruncateString("abcdef", 2))
}
