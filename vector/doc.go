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

// Package vector provides the deterministic hash-based embedding used for
// fragments and queries, along with the similarity function used to rank them.
//
// Embeddings are built by hashing each case-folded whitespace token with
// BLAKE2b-256 and folding the digest bytes into a fixed number of buckets.
// The result is L2-normalized, so the dot product of two embeddings is their
// cosine similarity.
//
// The Codec interface lets callers substitute another embedding function with
// the same contract: deterministic, fixed dimension, unit-normalized.
package vector
