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

package vector

import (
	"math"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// Dimension is the length of every vector produced by Embed.
const Dimension = 64

// digestSize is the per-token digest length in bytes.
const digestSize = 32

// Embed converts text into a unit-length vector of Dimension entries.
// Empty or whitespace-only text yields the zero vector.
func Embed(text string) []float32 {
	vec := make([]float32, Dimension)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		for i, b := range digest(token) {
			vec[i%Dimension] += float32(b)
		}
	}
	return Normalize(vec)
}

func digest(token string) []byte {
	h, _ := blake2b.New(digestSize, nil) // unkeyed, size in range: never fails
	h.Write([]byte(token))
	return h.Sum(nil)
}

// Normalize returns a copy of v scaled to unit length.
// A zero vector is returned unchanged (divided by 1).
func Normalize(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}

	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = float32(float64(val) / norm)
	}
	return result
}

// Similarity returns the dot product of a and b.
// It returns 0 when either vector is empty. When lengths differ only the
// shared prefix is compared.
func Similarity(a, b []float32) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := min(len(a), len(b))

	var dot float64
	for i := range n {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot)
}
