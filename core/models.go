package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a storage-assigned numeric identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SourceType describes how a document's content reached the system.
type SourceType string

const (
	// SourceTypeUpload is a file uploaded by the user.
	SourceTypeUpload SourceType = "upload"
	// SourceTypeURL is a remote resource referenced by URL.
	SourceTypeURL SourceType = "url"
	// SourceTypeRaw is text submitted inline and stored as a file.
	SourceTypeRaw SourceType = "raw"
)

// DocumentStatus is the lifecycle state of a document.
type DocumentStatus string

const (
	// StatusPending is set when the document is created.
	StatusPending DocumentStatus = "pending"
	// StatusProcessing is set when a worker picks the document up.
	StatusProcessing DocumentStatus = "processing"
	// StatusReady is the terminal success state.
	StatusReady DocumentStatus = "ready"
	// StatusFailed is the terminal error state. Error carries the reason.
	StatusFailed DocumentStatus = "failed"
)

// IsTerminal reports whether no further worker transitions are expected.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusReady || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal lifecycle step.
// Failed documents may be picked up again on redelivery; ready is absorbing.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusReady || next == StatusFailed
	case StatusFailed:
		return next == StatusProcessing
	default:
		return false
	}
}

// Document is a user-submitted unit of content.
// StoragePath and URL are mutually exclusive content locators; both may be empty.
type Document struct {
	ID          string
	Owner       string
	Title       string
	Source      SourceType
	StoragePath string // Local file holding the content
	URL         string // Remote locator, used when StoragePath is empty
	Status      DocumentStatus
	Error       string // Set only while Status is StatusFailed
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasLocalContent reports whether the document points at a local file.
func (d *Document) HasLocalContent() bool {
	return d.StoragePath != ""
}

// HasRemoteLocator reports whether the document points at a URL.
func (d *Document) HasRemoteLocator() bool {
	return d.URL != ""
}

// Fragment is a bounded slice of a document's text paired with its embedding.
// Owner is copied from the parent document so searches can filter without a join.
type Fragment struct {
	ID         ID
	Owner      string
	DocumentID string
	Ordinal    int // Position within the document, assigned at chunk time
	Content    string
	Checksum   ID // IDFromContent(Content)
	Vector     []float32
	CreatedAt  time.Time
}

// JobKind names a registered job handler.
type JobKind string

const (
	// JobKindProcessDocument ingests a single document.
	JobKindProcessDocument JobKind = "process_document"
)

// Job is a unit of background work held by a queue.
type Job struct {
	ID         ID
	Kind       JobKind
	DocumentID string
	Timeout    time.Duration // Hard execution limit, also used as the lease length
	Attempts   int           // Number of times the job has been reserved
	EnqueuedAt time.Time
	VisibleAt  time.Time // Reservable at or after this instant
}

// SearchResult is a ranked fragment returned from a query.
type SearchResult struct {
	DocumentID    string
	DocumentTitle string
	FragmentID    ID
	Ordinal       int
	Content       string
	Score         float32
}
