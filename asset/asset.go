// Package asset reads files referenced by documents, such as images, from an assets directory.
package asset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"

	latex "github.com/eolymp/go-latex-editor"
)

// MaxSize limits the size of an asset.
const MaxSize = 32 << 20

// Extensions are tried in order when source has no extension, the way \includegraphics looks files up.
var Extensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tif", ".tiff"}

var ErrTooLarge = errors.New("asset is too large")

// Asset is a file read from the assets directory.
type Asset struct {
	// Name is a slash separated path relative to the assets directory
	Name string
	Data []byte
	Kind types.Type
}

// IsImage reports whether the asset is a raster image.
func (a *Asset) IsImage() bool {
	return a.Kind.MIME.Type == "image"
}

// IsDocument reports whether the asset may be included into a compiled document.
func (a *Asset) IsDocument() bool {
	return a.IsImage() || filetype.Is(a.Data, "pdf")
}

// Read reads an asset by source, as written in the markup. Sources can not escape the directory.
func Read(dir, src string) (*Asset, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to open assets directory: %w", err)
	}
	defer root.Close()

	candidates := []string{src}
	if path.Ext(src) == "" {
		candidates = candidates[:0]
		for _, ext := range Extensions {
			candidates = append(candidates, src+ext)
		}
	}

	for _, name := range candidates {
		f, err := root.Open(filepath.FromSlash(name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("unable to open %q: %w", src, err)
		}

		data, err := io.ReadAll(io.LimitReader(f, MaxSize+1))
		f.Close()

		if err != nil {
			return nil, fmt.Errorf("unable to read %q: %w", src, err)
		}

		if len(data) > MaxSize {
			return nil, fmt.Errorf("%q: %w", src, ErrTooLarge)
		}

		kind, err := filetype.Match(data)
		if err != nil {
			return nil, fmt.Errorf("unable to detect type of %q: %w", src, err)
		}

		return &Asset{Name: name, Data: data, Kind: kind}, nil
	}

	return nil, fmt.Errorf("asset %q is not found: %w", src, os.ErrNotExist)
}

// References lists image sources of recognized image constructs in the markup, in order and without duplicates.
func References(markup string) []string {
	var sources []string
	seen := map[string]bool{}

	for _, span := range latex.Locate(markup) {
		if span.Kind != latex.ImageKind {
			continue
		}

		attrs, ok := latex.Parse(span.Kind, span.Fragment(markup))
		if !ok || seen[attrs["src"]] {
			continue
		}

		seen[attrs["src"]] = true
		sources = append(sources, attrs["src"])
	}

	return sources
}
