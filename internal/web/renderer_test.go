package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompactNumber(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{-999, "-999"},
		{1000, "1k"},
		{1500, "1.5k"},
		{-1500, "-1.5k"},
		{12345, "12.3k"},
		{250000, "250k"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CompactNumber(tt.in), "input %d", tt.in)
	}
}
