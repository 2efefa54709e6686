package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	// ErrCorrupted is returned when the archive or a member cannot be decoded.
	ErrCorrupted = errors.New("corrupted archive")

	// ErrPageOutOfRange is returned for a page index outside [0, Len()).
	ErrPageOutOfRange = errors.New("page index out of range")
)

// MaxPageSize caps the decompressed size of a single page.
var MaxPageSize int64 = 64 << 20

// Entry describes one member of the archive as found in its directory.
type Entry struct {
	Name           string
	IsDir          bool
	CompressedSize uint64
}

// Page is an image member selected as a page.
type Page struct {
	// Name is the raw member name, including any directories.
	Name string
	file *zip.File
}

// BaseName is the member name without directories; this is what the
// catalog stores.
func (p Page) BaseName() string { return BaseName(p.Name) }

// ContentType is the media type inferred from the member's extension.
func (p Page) ContentType() string { return ContentTypeFor(p.Name) }

// Size is the uncompressed size declared by the archive.
func (p Page) Size() uint64 { return p.file.UncompressedSize64 }

// Read decompresses this member only.
func (p Page) Read() ([]byte, error) {
	rc, err := p.file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %w", ErrCorrupted, p.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxPageSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %w", ErrCorrupted, p.Name, err)
	}
	if int64(len(data)) > MaxPageSize {
		return nil, fmt.Errorf("%w: %q is larger than %d bytes", ErrCorrupted, p.Name, MaxPageSize)
	}
	return data, nil
}

// Index is the ordered page list of one archive.
type Index struct {
	pages   []Page
	skipped []Entry
}

// Open parses data as a ZIP archive and derives its page order. Only the
// central directory is read; no member is decompressed.
func Open(data []byte) (*Index, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupted, err)
	}

	ix := &Index{pages: make([]Page, 0, len(r.File))}
	for _, f := range r.File {
		isDir := f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/")
		if isDir || !IsPageName(f.Name) {
			ix.skipped = append(ix.skipped, Entry{Name: f.Name, IsDir: isDir, CompressedSize: f.CompressedSize64})
			continue
		}
		ix.pages = append(ix.pages, Page{Name: f.Name, file: f})
	}

	slices.SortStableFunc(ix.pages, func(a, b Page) int { return Compare(a.Name, b.Name) })

	return ix, nil
}

// Len is the page count.
func (ix *Index) Len() int { return len(ix.pages) }

// Pages returns the ordered pages. The slice must not be modified.
func (ix *Index) Pages() []Page { return ix.pages }

// Skipped lists the members that did not become pages, in directory order.
func (ix *Index) Skipped() []Entry { return ix.skipped }

// Page returns the page at index i.
func (ix *Index) Page(i int) (Page, error) {
	if i < 0 || i >= len(ix.pages) {
		return Page{}, fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, i, len(ix.pages))
	}
	return ix.pages[i], nil
}

// Filenames returns the base names of the pages in page order.
func (ix *Index) Filenames() []string {
	out := make([]string, len(ix.pages))
	for i, p := range ix.pages {
		out[i] = p.BaseName()
	}
	return out
}
