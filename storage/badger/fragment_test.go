package badger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFragments builds n fragments with distinct content and dim-length vectors.
func testFragments(n, dim int) []*core.Fragment {
	fragments := make([]*core.Fragment, n)
	for i := range fragments {
		vec := make([]float32, dim)
		vec[i%dim] = 1
		fragments[i] = &core.Fragment{
			Ordinal: i,
			Content: string(rune('a' + i)),
			Vector:  vec,
		}
	}
	return fragments
}

func TestReplaceFragments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.Documents().AddDocuments(ctx, newDocument("user-a", "notes"))
	require.NoError(t, err)
	doc := added[0]

	stored, err := store.Fragments().ReplaceFragments(ctx, doc.ID, testFragments(3, 4)...)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, f := range stored {
		assert.NotZero(t, f.ID)
		assert.Equal(t, "user-a", f.Owner)
		assert.Equal(t, doc.ID, f.DocumentID)
		assert.Equal(t, core.IDFromContent(f.Content), f.Checksum)
	}

	fragments, err := store.Fragments().GetFragmentsByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, fragments, 3)
	for i, f := range fragments {
		assert.Equal(t, i, f.Ordinal)
		assert.Equal(t, stored[i].Vector, f.Vector)
	}

	// Replacing never duplicates
	_, err = store.Fragments().ReplaceFragments(ctx, doc.ID, testFragments(2, 4)...)
	require.NoError(t, err)

	count, err := store.Fragments().CountFragments(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	owned, err := store.Fragments().GetFragmentsByOwner(ctx, "user-a")
	require.NoError(t, err)
	assert.Len(t, owned, 2)
}

func TestReplaceFragments_MissingParent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Fragments().ReplaceFragments(ctx, "missing", testFragments(1, 4)...)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	count, err := store.Fragments().CountFragments(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReplaceFragments_DimensionMismatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.Documents().AddDocuments(ctx, newDocument("user-a", "notes"))
	require.NoError(t, err)

	fragments := testFragments(2, 4)
	fragments[1].Vector = make([]float32, 3)

	_, err = store.Fragments().ReplaceFragments(ctx, added[0].ID, fragments...)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	count, err := store.Fragments().CountFragments(ctx, added[0].ID)
	require.NoError(t, err)
	assert.Zero(t, count, "failed replace must not write anything")
}

func TestReplaceFragments_OrdinalGap(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.Documents().AddDocuments(ctx, newDocument("user-a", "notes"))
	require.NoError(t, err)

	fragments := testFragments(3, 4)
	fragments[2].Ordinal = 5

	_, err = store.Fragments().ReplaceFragments(ctx, added[0].ID, fragments...)
	assert.ErrorIs(t, err, core.ErrInvalidFragment)
}

func TestGetFragmentsByOwner_Order(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs := []*core.Document{
		newDocument("user-a", "b"),
		newDocument("user-a", "a"),
		newDocument("user-b", "other"),
	}
	docs[0].ID = "doc-b"
	docs[1].ID = "doc-a"
	docs[2].ID = "doc-c"
	_, err := store.Documents().AddDocuments(ctx, docs...)
	require.NoError(t, err)

	for _, doc := range docs {
		_, err := store.Fragments().ReplaceFragments(ctx, doc.ID, testFragments(3, 4)...)
		require.NoError(t, err)
	}

	owned, err := store.Fragments().GetFragmentsByOwner(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, owned, 6)

	assert.True(t, sort.SliceIsSorted(owned, func(i, j int) bool {
		if owned[i].DocumentID != owned[j].DocumentID {
			return owned[i].DocumentID < owned[j].DocumentID
		}
		return owned[i].Ordinal < owned[j].Ordinal
	}))
	assert.Equal(t, "doc-a", owned[0].DocumentID)
	for _, f := range owned {
		assert.Equal(t, "user-a", f.Owner)
	}
}

func TestReplaceFragments_Large(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.Documents().AddDocuments(ctx, newDocument("user-a", "book"))
	require.NoError(t, err)
	doc := added[0]

	// Roughly 12MB of content, well past a single transaction's limit
	large := testFragments(3000, 4)
	for i, f := range large {
		f.Content = fmt.Sprintf("%05d", i) + strings.Repeat("x", 4096)
	}
	_, err = store.Fragments().ReplaceFragments(ctx, doc.ID, large...)
	require.NoError(t, err)

	count, err := store.Fragments().CountFragments(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, len(large), count)

	owned, err := store.Fragments().GetFragmentsByOwner(ctx, "user-a")
	require.NoError(t, err)
	assert.Len(t, owned, len(large))

	// Shrinking drops every ordinal past the new set
	_, err = store.Fragments().ReplaceFragments(ctx, doc.ID, testFragments(10, 4)...)
	require.NoError(t, err)

	fragments, err := store.Fragments().GetFragmentsByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, fragments, 10)
	for i, f := range fragments {
		assert.Equal(t, i, f.Ordinal)
		assert.Equal(t, string(rune('a'+i)), f.Content)
	}

	owned, err = store.Fragments().GetFragmentsByOwner(ctx, "user-a")
	require.NoError(t, err)
	assert.Len(t, owned, 10)

	// Deleting a large document removes all of it
	_, err = store.Fragments().ReplaceFragments(ctx, doc.ID, large...)
	require.NoError(t, err)
	require.NoError(t, store.Documents().DeleteDocuments(ctx, doc.ID))

	count, err = store.Fragments().CountFragments(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	owned, err = store.Fragments().GetFragmentsByOwner(ctx, "user-a")
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestReplaceFragments_Empty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.Documents().AddDocuments(ctx, newDocument("user-a", "notes"))
	require.NoError(t, err)

	_, err = store.Fragments().ReplaceFragments(ctx, added[0].ID, testFragments(3, 4)...)
	require.NoError(t, err)
	_, err = store.Fragments().ReplaceFragments(ctx, added[0].ID)
	require.NoError(t, err)

	count, err := store.Fragments().CountFragments(ctx, added[0].ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestOwnerQueries_EmptyOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Fragments().GetFragmentsByOwner(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	_, err = store.Documents().ListDocumentsByOwner(ctx, "")
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}
