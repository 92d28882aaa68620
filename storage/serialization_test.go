package storage

import (
	"testing"
	"time"

	"github.com/poiesic/docindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalDocument(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name string
		doc  *core.Document
	}{
		{
			name: "pending upload",
			doc: &core.Document{
				ID:          "5d0c7d3c-9f7e-4c1a-8a53-0c2d1e4b6f70",
				Owner:       "user-a",
				Title:       "notes.txt",
				Source:      core.SourceTypeUpload,
				StoragePath: "/data/uploads/5d0c_notes.txt",
				Status:      core.StatusPending,
				CreatedAt:   now,
				UpdatedAt:   now,
			},
		},
		{
			name: "failed url document",
			doc: &core.Document{
				ID:        "doc-2",
				Owner:     "user-b",
				Title:     "https://example.com/page",
				Source:    core.SourceTypeURL,
				URL:       "https://example.com/page",
				Status:    core.StatusFailed,
				Error:     "content unavailable",
				CreatedAt: now,
				UpdatedAt: now.Add(time.Second),
			},
		},
		{
			name: "unicode title",
			doc: &core.Document{
				ID:     "doc-3",
				Owner:  "user-a",
				Title:  "Hello 世界 🌍",
				Source: core.SourceTypeRaw,
				Status: core.StatusReady,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalDocument(tt.doc)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalDocument(data)
			require.NoError(t, err)

			assert.Equal(t, tt.doc.ID, decoded.ID)
			assert.Equal(t, tt.doc.Owner, decoded.Owner)
			assert.Equal(t, tt.doc.Title, decoded.Title)
			assert.Equal(t, tt.doc.Source, decoded.Source)
			assert.Equal(t, tt.doc.StoragePath, decoded.StoragePath)
			assert.Equal(t, tt.doc.URL, decoded.URL)
			assert.Equal(t, tt.doc.Status, decoded.Status)
			assert.Equal(t, tt.doc.Error, decoded.Error)
			assert.True(t, tt.doc.CreatedAt.Equal(decoded.CreatedAt))
			assert.True(t, tt.doc.UpdatedAt.Equal(decoded.UpdatedAt))
		})
	}
}

func TestMarshalUnmarshalFragment(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name     string
		fragment *core.Fragment
	}{
		{
			name: "fragment with vector",
			fragment: &core.Fragment{
				ID:         core.ID(7),
				Owner:      "user-a",
				DocumentID: "doc-1",
				Ordinal:    3,
				Content:    "alpha beta",
				Checksum:   core.IDFromContent("alpha beta"),
				Vector:     []float32{0.1, -0.2, 0.3, 0, 1},
				CreatedAt:  now,
			},
		},
		{
			name: "empty fragment",
			fragment: &core.Fragment{
				ID:         core.ID(8),
				Owner:      "user-a",
				DocumentID: "doc-2",
				Checksum:   core.IDFromContent(""),
				Vector:     make([]float32, 64),
				CreatedAt:  now,
			},
		},
		{
			name: "no vector",
			fragment: &core.Fragment{
				ID:         core.ID(9),
				Owner:      "user-a",
				DocumentID: "doc-3",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalFragment(tt.fragment)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalFragment(data)
			require.NoError(t, err)

			assert.Equal(t, tt.fragment.ID, decoded.ID)
			assert.Equal(t, tt.fragment.Owner, decoded.Owner)
			assert.Equal(t, tt.fragment.DocumentID, decoded.DocumentID)
			assert.Equal(t, tt.fragment.Ordinal, decoded.Ordinal)
			assert.Equal(t, tt.fragment.Content, decoded.Content)
			assert.Equal(t, tt.fragment.Checksum, decoded.Checksum)
			assert.True(t, tt.fragment.CreatedAt.Equal(decoded.CreatedAt))
			// Handle nil vs empty slice
			if len(tt.fragment.Vector) == 0 {
				assert.Empty(t, decoded.Vector)
			} else {
				assert.Equal(t, tt.fragment.Vector, decoded.Vector)
			}
		})
	}
}

func TestMarshalUnmarshalJob(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	job := &core.Job{
		ID:         core.ID(12),
		Kind:       core.JobKindProcessDocument,
		DocumentID: "doc-1",
		Timeout:    10 * time.Minute,
		Attempts:   2,
		EnqueuedAt: now,
		VisibleAt:  now.Add(10 * time.Minute),
	}

	decoded, err := UnmarshalJob(MarshalJob(job))
	require.NoError(t, err)

	assert.Equal(t, job.ID, decoded.ID)
	assert.Equal(t, job.Kind, decoded.Kind)
	assert.Equal(t, job.DocumentID, decoded.DocumentID)
	assert.Equal(t, job.Timeout, decoded.Timeout)
	assert.Equal(t, job.Attempts, decoded.Attempts)
	assert.True(t, job.EnqueuedAt.Equal(decoded.EnqueuedAt))
	assert.True(t, job.VisibleAt.Equal(decoded.VisibleAt))
}

func TestUnmarshal_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"invalid data", []byte{0xFF, 0xFF, 0xFF}},
		{"partial data", []byte{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalDocument(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)

			_, err = UnmarshalFragment(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)

			_, err = UnmarshalJob(tt.data)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}

func TestUnmarshalFragment_Truncated(t *testing.T) {
	data := MarshalFragment(&core.Fragment{
		ID:         core.ID(1),
		Owner:      "user-a",
		DocumentID: "doc-1",
		Vector:     []float32{0.5, 0.5, 0.5, 0.5},
	})

	_, err := UnmarshalFragment(data[:len(data)-6])
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
