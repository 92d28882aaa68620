package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantChunks int
		wantLast   int
	}{
		{name: "empty", text: "", wantChunks: 1, wantLast: 0},
		{name: "short", text: "hello", wantChunks: 1, wantLast: 5},
		{name: "exact multiple", text: strings.Repeat("a", 1000), wantChunks: 2, wantLast: 500},
		{name: "remainder", text: strings.Repeat("alpha beta", 60), wantChunks: 2, wantLast: 100},
		{name: "one over", text: strings.Repeat("x", 501), wantChunks: 2, wantLast: 1},
		{name: "long", text: strings.Repeat("alpha beta", 300), wantChunks: 6, wantLast: 500},
		{name: "invalid utf8", text: "ab\xffcd", wantChunks: 1, wantLast: 5},
		{name: "invalid utf8 across chunks", text: strings.Repeat("\xff", 600), wantChunks: 2, wantLast: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Split(tt.text)
			require.Len(t, chunks, tt.wantChunks)

			// Concatenation reproduces the input
			assert.Equal(t, tt.text, strings.Join(chunks, ""))

			for i, c := range chunks[:len(chunks)-1] {
				assert.Equal(t, DefaultChunkSize, utf8.RuneCountInString(c), "chunk %d", i)
			}
			assert.Equal(t, tt.wantLast, utf8.RuneCountInString(chunks[len(chunks)-1]))
		})
	}
}

func TestSplit_EmptyReturnsSingleEmptyChunk(t *testing.T) {
	assert.Equal(t, []string{""}, Split(""))
}

func TestSplit_CountsRunes(t *testing.T) {
	c, err := New(WithChunkSize(3))
	require.NoError(t, err)

	chunks := c.Split("héllo wörld")
	assert.Equal(t, []string{"hél", "lo ", "wör", "ld"}, chunks)
	for _, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk))
	}
}

func TestSplit_PreservesInvalidBytes(t *testing.T) {
	c, err := New(WithChunkSize(2))
	require.NoError(t, err)

	text := "ab\xffcd\xe4"
	chunks := c.Split(text)
	assert.Equal(t, []string{"ab", "\xffc", "d\xe4"}, chunks)
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestNew(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	assert.Equal(t, DefaultChunkSize, c.Size())

	c, err = New(WithChunkSize(10))
	require.NoError(t, err)
	assert.Equal(t, 10, c.Size())

	_, err = New(WithChunkSize(0))
	assert.ErrorIs(t, err, ErrInvalidChunkSize)

	_, err = New(WithChunkSize(-5))
	assert.ErrorIs(t, err, ErrInvalidChunkSize)
}
