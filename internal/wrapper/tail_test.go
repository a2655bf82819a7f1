package wrapper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTailBuffer(t *testing.T) {
	tests := []struct {
		name   string
		max    int
		writes []string
		want   string
	}{
		{name: "fits", max: 8, writes: []string{"abc", "def"}, want: "abcdef"},
		{name: "exactly full", max: 6, writes: []string{"abc", "def"}, want: "abcdef"},
		{name: "drops head", max: 4, writes: []string{"abc", "def"}, want: truncatedPrefix + "cdef"},
		{name: "single large write", max: 3, writes: []string{"abcdefgh"}, want: truncatedPrefix + "fgh"},
		{name: "large write after small", max: 3, writes: []string{"x", "abc"}, want: truncatedPrefix + "abc"},
		{name: "empty", max: 3, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTailBuffer(tt.max)
			for _, w := range tt.writes {
				n, err := b.Write([]byte(w))
				assert.NoError(t, err)
				assert.Equal(t, len(w), n)
			}
			assert.Equal(t, tt.want, string(b.Bytes()))
		})
	}
}

func TestTailBuffer_StaysBounded(t *testing.T) {
	b := newTailBuffer(1024)
	line := strings.Repeat("x", 100) + "\n"
	for i := 0; i < 10000; i++ {
		_, _ = b.Write([]byte(line))
	}
	assert.LessOrEqual(t, len(b.buf), 1024)
	assert.LessOrEqual(t, cap(b.buf), 2048)
}
