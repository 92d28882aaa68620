// Package sqlite implements the storage interfaces on an embedded SQLite
// database using the pure-Go modernc.org/sqlite driver.
//
// Fragments reference their document with ON DELETE CASCADE, so deleting a
// document removes its fragments in the same statement. Embeddings are stored
// as little-endian float32 BLOBs. Timestamps are stored as Unix microseconds.
package sqlite
