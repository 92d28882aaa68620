package badger

import (
	"encoding/binary"
	"time"

	"github.com/poiesic/docindex/core"
)

// Key prefixes for different data types
const (
	documentPrefix      = "doc:"
	documentOwnerPrefix = "docown:"
	fragmentPrefix      = "frag:"
	fragmentOwnerPrefix = "fragown:"
	fragmentIDSeq       = "fragseq"
	jobPrefix           = "job:"
	jobReadyPrefix      = "jobrdy:"
	jobIDSeq            = "jobseq"
)

// keySep terminates variable-length components so that prefix scans
// for "a" never match "ab".
const keySep = 0x00

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id string) []byte {
	return append([]byte(documentPrefix), id...)
}

// makeDocumentOwnerPrefix generates the scan prefix for an owner's documents.
// Format: prefix owner 0x00
func makeDocumentOwnerPrefix(owner string) []byte {
	buf := make([]byte, 0, len(documentOwnerPrefix)+len(owner)+1)
	buf = append(buf, documentOwnerPrefix...)
	buf = append(buf, owner...)
	return append(buf, keySep)
}

// makeDocumentOwnerKey generates a composite key for the owner index.
// Format: prefix owner 0x00 createdAt id
func makeDocumentOwnerKey(owner string, createdAt time.Time, id string) []byte {
	buf := makeDocumentOwnerPrefix(owner)
	// BigEndian so lexicographic order is chronological
	buf = binary.BigEndian.AppendUint64(buf, uint64(createdAt.UnixMicro()))
	return append(buf, id...)
}

// makeFragmentPrefix generates the scan prefix for a document's fragments.
// Format: prefix documentID 0x00
func makeFragmentPrefix(documentID string) []byte {
	buf := make([]byte, 0, len(fragmentPrefix)+len(documentID)+1)
	buf = append(buf, fragmentPrefix...)
	buf = append(buf, documentID...)
	return append(buf, keySep)
}

// makeFragmentKey generates a key for a fragment.
// Format: prefix documentID 0x00 ordinal
func makeFragmentKey(documentID string, ordinal int) []byte {
	return binary.BigEndian.AppendUint64(makeFragmentPrefix(documentID), uint64(ordinal))
}

// makeFragmentOwnerPrefix generates the scan prefix for an owner's fragments.
func makeFragmentOwnerPrefix(owner string) []byte {
	buf := make([]byte, 0, len(fragmentOwnerPrefix)+len(owner)+1)
	buf = append(buf, fragmentOwnerPrefix...)
	buf = append(buf, owner...)
	return append(buf, keySep)
}

// makeFragmentOwnerKey generates a composite key for the owner index.
// Format: prefix owner 0x00 documentID 0x00 ordinal
func makeFragmentOwnerKey(owner, documentID string, ordinal int) []byte {
	buf := makeFragmentOwnerPrefix(owner)
	buf = append(buf, documentID...)
	buf = append(buf, keySep)
	return binary.BigEndian.AppendUint64(buf, uint64(ordinal))
}

// makeJobKey generates a key for a job by ID.
func makeJobKey(id core.ID) []byte {
	return binary.BigEndian.AppendUint64([]byte(jobPrefix), uint64(id))
}

// makeJobReadyKey generates a composite key for the visibility index.
// Format: prefix visibleAt id
func makeJobReadyKey(visibleAt time.Time, id core.ID) []byte {
	buf := make([]byte, 0, len(jobReadyPrefix)+16)
	buf = append(buf, jobReadyPrefix...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(visibleAt.UnixMicro()))
	return binary.BigEndian.AppendUint64(buf, uint64(id))
}
