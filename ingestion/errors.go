package ingestion

import "errors"

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrFragmentRepositoryRequired is returned when a fragment repository is not provided.
	ErrFragmentRepositoryRequired = errors.New("fragment repository required")

	// ErrContentUnavailable is returned when a document's local content cannot be found.
	ErrContentUnavailable = errors.New("document content unavailable")

	// ErrInvalidConcurrency is returned when the embedding concurrency is below 1.
	ErrInvalidConcurrency = errors.New("concurrency must be at least 1")
)
