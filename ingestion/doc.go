// Package ingestion turns stored documents into searchable fragments.
//
// A Worker processes one document per job:
//   - marks the document processing before doing any work
//   - loads its content through a ContentLoader
//   - splits the content with a chunker.Chunker
//   - embeds every chunk with a vector.Codec, in parallel
//   - replaces the document's fragments atomically
//   - marks the document ready, or failed with the error message
//
// Delivery is at-least-once. A document that is already ready is skipped, and
// any other redelivery replaces the fragments written by an earlier attempt.
// Errors while recording a failure are logged and do not escape the job.
package ingestion
