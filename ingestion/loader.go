package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/poiesic/docindex/core"
)

// ContentLoader resolves a document's locator into text.
type ContentLoader interface {
	Load(ctx context.Context, doc *core.Document) (string, error)
}

// FileLoader reads local content from disk.
// Invalid UTF-8 sequences are dropped. Documents that only carry a URL
// use the URL itself as their content, since remote fetching lives outside
// this package. Documents without any locator have empty content.
type FileLoader struct{}

var _ ContentLoader = FileLoader{}

func (FileLoader) Load(ctx context.Context, doc *core.Document) (string, error) {
	switch {
	case doc.HasLocalContent():
		data, err := os.ReadFile(doc.StoragePath)
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrContentUnavailable, doc.StoragePath)
		}
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", doc.StoragePath, err)
		}
		return strings.ToValidUTF8(string(data), ""), nil
	case doc.HasRemoteLocator():
		return doc.URL, nil
	default:
		return "", nil
	}
}
