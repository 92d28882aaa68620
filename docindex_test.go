package docindex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/docindex/config"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stores = []string{config.StoreBadger, config.StoreSQLite}

func openTestIndex(t *testing.T, store string) *Index {
	t.Helper()
	cfg := config.NewConfig(
		config.WithDataDir(filepath.Join(t.TempDir(), "idx")),
		config.WithStore(store),
		config.WithPoolSize(2),
	)
	idx, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, idx.Close())
	})
	return idx
}

func TestOpen(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		_, err := Open(config.NewConfig(config.WithStore("postgres")))
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("data dir is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(file, []byte("test"), 0o644))

		idx, err := Open(config.NewConfig(config.WithDataDir(file)))
		assert.Error(t, err)
		assert.Nil(t, idx)
	})

	for _, store := range stores {
		t.Run(store, func(t *testing.T) {
			idx := openTestIndex(t, store)
			assert.Equal(t, store, idx.Config().Store)
			assert.DirExists(t, idx.Config().UploadDir)
		})
	}
}

func TestEndToEnd(t *testing.T) {
	for _, store := range stores {
		t.Run(store, func(t *testing.T) {
			idx := openTestIndex(t, store)
			ctx := context.Background()

			text := strings.Repeat("alpha beta ", 60)
			doc, err := idx.CreateDocument(ctx, NewDocument{Owner: "user-a", Title: "greek", Text: text})
			require.NoError(t, err)
			assert.Equal(t, core.StatusPending, doc.Status)
			assert.Equal(t, core.SourceTypeRaw, doc.Source)

			other, err := idx.CreateDocument(ctx, NewDocument{Owner: "user-a", Text: "gamma delta epsilon"})
			require.NoError(t, err)
			assert.Equal(t, "gamma delta epsilon", other.Title)

			pending, err := idx.PendingJobs(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, pending)

			executed, err := idx.Drain(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, executed)

			got, err := idx.GetDocument(ctx, "user-a", doc.ID)
			require.NoError(t, err)
			assert.Equal(t, core.StatusReady, got.Status)
			assert.Empty(t, got.Error)

			fragments, err := idx.store.Fragments().GetFragmentsByDocument(ctx, doc.ID)
			require.NoError(t, err)
			require.Len(t, fragments, 2)
			assert.Len(t, fragments[0].Content, 500)
			assert.Len(t, fragments[1].Content, len(text)-500)

			results, err := idx.Search(ctx, "user-a", "alpha", 5)
			require.NoError(t, err)
			require.Len(t, results, 3)
			assert.Equal(t, doc.ID, results[0].DocumentID)
			assert.Equal(t, "greek", results[0].DocumentTitle)
			assert.Equal(t, doc.ID, results[1].DocumentID)
			assert.Equal(t, other.ID, results[2].DocumentID)
			assert.Greater(t, results[1].Score, results[2].Score)

			results, err = idx.Search(ctx, "user-b", "alpha", 5)
			require.NoError(t, err)
			assert.Empty(t, results)
		})
	}
}

func TestCreateDocumentSources(t *testing.T) {
	idx := openTestIndex(t, config.StoreBadger)
	ctx := context.Background()

	t.Run("upload", func(t *testing.T) {
		doc, err := idx.CreateDocument(ctx, NewDocument{
			Owner:    "user-a",
			FileName: "my notes.txt",
			Content:  strings.NewReader("uploaded body"),
		})
		require.NoError(t, err)
		assert.Equal(t, core.SourceTypeUpload, doc.Source)
		assert.Equal(t, "my notes.txt", doc.Title)
		assert.Equal(t, filepath.Join(idx.Config().UploadDir, doc.ID+"_my_notes.txt"), doc.StoragePath)

		data, err := os.ReadFile(doc.StoragePath)
		require.NoError(t, err)
		assert.Equal(t, "uploaded body", string(data))
	})

	t.Run("url", func(t *testing.T) {
		doc, err := idx.CreateDocument(ctx, NewDocument{Owner: "user-a", URL: "https://example.com/a"})
		require.NoError(t, err)
		assert.Equal(t, core.SourceTypeURL, doc.Source)
		assert.Equal(t, "https://example.com/a", doc.Title)
		assert.Empty(t, doc.StoragePath)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name    string
			nd      NewDocument
			wantErr error
		}{
			{name: "no content", nd: NewDocument{Owner: "user-a"}, wantErr: ErrNoContent},
			{name: "two sources", nd: NewDocument{Owner: "user-a", URL: "https://x", Text: "x"}, wantErr: ErrConflictingContent},
			{name: "upload without name", nd: NewDocument{Owner: "user-a", Content: strings.NewReader("x")}, wantErr: ErrFileNameRequired},
			{name: "no owner", nd: NewDocument{Text: "x"}, wantErr: core.ErrEmptyOwner},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := idx.CreateDocument(ctx, tt.nd)
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}

		// Rejected documents leave no uploads behind
		entries, err := os.ReadDir(idx.Config().UploadDir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), "raw.txt")
		}
	})
}

func TestMissingUploadFails(t *testing.T) {
	idx := openTestIndex(t, config.StoreSQLite)
	ctx := context.Background()

	doc, err := idx.CreateDocument(ctx, NewDocument{
		Owner:    "user-a",
		FileName: "gone.txt",
		Content:  strings.NewReader("soon deleted"),
	})
	require.NoError(t, err)
	require.NoError(t, os.Remove(doc.StoragePath))

	_, err = idx.Drain(ctx)
	require.NoError(t, err)

	got, err := idx.GetDocument(ctx, "user-a", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, got.Status)
	assert.NotEmpty(t, got.Error)

	fragments, err := idx.store.Fragments().GetFragmentsByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, fragments)
}

func TestOwnerScoping(t *testing.T) {
	for _, store := range stores {
		t.Run(store, func(t *testing.T) {
			idx := openTestIndex(t, store)
			ctx := context.Background()

			doc, err := idx.CreateDocument(ctx, NewDocument{Owner: "user-a", Text: "private"})
			require.NoError(t, err)

			_, err = idx.GetDocument(ctx, "user-b", doc.ID)
			assert.ErrorIs(t, err, storage.ErrNotFound)

			err = idx.DeleteDocument(ctx, "user-b", doc.ID)
			assert.ErrorIs(t, err, storage.ErrNotFound)

			listed, err := idx.ListDocuments(ctx, "user-b")
			require.NoError(t, err)
			assert.Empty(t, listed)

			listed, err = idx.ListDocuments(ctx, "user-a")
			require.NoError(t, err)
			require.Len(t, listed, 1)
			assert.Equal(t, doc.ID, listed[0].ID)
		})
	}
}

func TestDeleteDocument(t *testing.T) {
	for _, store := range stores {
		t.Run(store, func(t *testing.T) {
			idx := openTestIndex(t, store)
			ctx := context.Background()

			doc, err := idx.CreateDocument(ctx, NewDocument{Owner: "user-a", Text: "to be removed"})
			require.NoError(t, err)
			_, err = idx.Drain(ctx)
			require.NoError(t, err)

			require.NoError(t, idx.DeleteDocument(ctx, "user-a", doc.ID))

			assert.NoFileExists(t, doc.StoragePath)
			_, err = idx.GetDocument(ctx, "user-a", doc.ID)
			assert.ErrorIs(t, err, storage.ErrNotFound)

			count, err := idx.store.Fragments().CountFragments(ctx, doc.ID)
			require.NoError(t, err)
			assert.Zero(t, count)

			results, err := idx.Search(ctx, "user-a", "removed", 5)
			require.NoError(t, err)
			assert.Empty(t, results)
		})
	}
}

// failingDeletes wraps a store so that document deletes always fail.
type failingDeletes struct {
	storage.Store
}

func (s failingDeletes) Documents() storage.DocumentRepository {
	return failingDeleteRepository{s.Store.Documents()}
}

type failingDeleteRepository struct {
	storage.DocumentRepository
}

func (failingDeleteRepository) DeleteDocuments(context.Context, ...string) error {
	return errors.New("store unavailable")
}

func TestDeleteDocumentKeepsUploadOnFailure(t *testing.T) {
	idx := openTestIndex(t, config.StoreBadger)
	ctx := context.Background()

	doc, err := idx.CreateDocument(ctx, NewDocument{Owner: "user-a", Text: "keep me"})
	require.NoError(t, err)
	require.FileExists(t, doc.StoragePath)

	orig := idx.store
	idx.store = failingDeletes{orig}
	err = idx.DeleteDocument(ctx, "user-a", doc.ID)
	idx.store = orig
	require.Error(t, err)

	assert.FileExists(t, doc.StoragePath)
	_, err = idx.GetDocument(ctx, "user-a", doc.ID)
	require.NoError(t, err)

	require.NoError(t, idx.DeleteDocument(ctx, "user-a", doc.ID))
	assert.NoFileExists(t, doc.StoragePath)
}

func TestTitleFromText(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "first line\nsecond", want: "first line"},
		{text: "\n\n  padded  \n", want: "padded"},
		{text: "   ", want: "untitled"},
		{text: strings.Repeat("é", 100), want: strings.Repeat("é", 80)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, titleFromText(tt.text))
	}
}
