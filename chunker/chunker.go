// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chunker

import (
	"errors"
	"unicode/utf8"
)

// DefaultChunkSize is the maximum number of characters per fragment.
const DefaultChunkSize = 500

// ErrInvalidChunkSize indicates a non-positive chunk size.
var ErrInvalidChunkSize = errors.New("chunk size must be positive")

// Chunker splits text into contiguous, non-overlapping pieces of at most
// Size characters. Characters are Unicode code points.
type Chunker struct {
	size int
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) error {
		if size <= 0 {
			return ErrInvalidChunkSize
		}
		c.size = size
		return nil
	}
}

// New creates a Chunker using DefaultChunkSize unless overridden.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{size: DefaultChunkSize}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Size returns the configured chunk length.
func (c *Chunker) Size() int {
	return c.size
}

// Split partitions text in order. The final chunk may be shorter than Size.
// Empty text yields a single empty chunk so every document has a fragment.
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return []string{""}
	}

	// Offsets are in bytes so invalid UTF-8 passes through unchanged.
	// An undecodable byte counts as one character.
	var chunks []string
	start, count := 0, 0
	for i := 0; i < len(text); {
		_, width := utf8.DecodeRuneInString(text[i:])
		i += width
		count++
		if count == c.size {
			chunks = append(chunks, text[start:i])
			start, count = i, 0
		}
	}
	if start < len(text) {
		chunks = append(chunks, text[start:])
	}
	return chunks
}

var defaultChunker = &Chunker{size: DefaultChunkSize}

// Default returns a shared Chunker using DefaultChunkSize.
func Default() *Chunker {
	return defaultChunker
}

// Split splits text using DefaultChunkSize.
func Split(text string) []string {
	return defaultChunker.Split(text)
}
