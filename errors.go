package docindex

import "errors"

var (
	// ErrNoContent is returned when a new document has no file, URL or text.
	ErrNoContent = errors.New("provide either a file, a url or text")

	// ErrConflictingContent is returned when a new document has more than one source.
	ErrConflictingContent = errors.New("only one of file, url or text may be provided")

	// ErrFileNameRequired is returned when an upload has no file name.
	ErrFileNameRequired = errors.New("file name required for uploads")

	// ErrEnqueueFailed is returned when a document was stored but could not be scheduled.
	ErrEnqueueFailed = errors.New("unable to schedule ingestion")
)
