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

// Package storage provides the storage abstraction layer for docindex.
//
// This package defines repository interfaces that decouple storage implementation
// from the ingestion and search logic. Two backends implement them:
//
//   - storage/badger: embedded key-value store (default)
//   - storage/sqlite: embedded relational store
//
// # Architecture
//
//   - DocumentRepository: documents and their lifecycle fields
//   - FragmentRepository: fragments and their embeddings
//   - Store: both repositories over one backend
//
// Fragments never outlive their parent document. Deleting a document removes
// its fragments before the document record goes, and ReplaceFragments refuses
// to write fragments for a document that no longer exists.
//
// # Usage
//
//	store, err := badger.Open("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryStore()
//
// # Serialization
//
// Records are encoded with mus-go serializers (DocumentMUS, FragmentMUS, JobMUS).
// Timestamps are stored with microsecond precision.
package storage
