package visual

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/eolymp/go-latex-editor/asset"
)

// DefaultThumbnailWidth is used when thumbnailer is created with non-positive width.
const DefaultThumbnailWidth = 320

var ErrNotImage = errors.New("asset is not an image")

// Thumbnailer produces PNG previews of images referenced by image constructs. Sources are resolved relative to the
// assets directory. Thumbnails are cached by source.
type Thumbnailer struct {
	dir   string
	width int
	log   *zap.Logger

	mu    sync.Mutex
	cache map[string][]byte
}

func NewThumbnailer(dir string, width int, log *zap.Logger) *Thumbnailer {
	if width <= 0 {
		width = DefaultThumbnailWidth
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Thumbnailer{dir: dir, width: width, log: log, cache: map[string][]byte{}}
}

// Thumbnail returns PNG encoded preview at most thumbnailer width pixels wide.
func (t *Thumbnailer) Thumbnail(src string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if data, ok := t.cache[src]; ok {
		return data, nil
	}

	a, err := asset.Read(t.dir, src)
	if err != nil {
		return nil, err
	}

	if !a.IsImage() {
		return nil, fmt.Errorf("%q (%s): %w", a.Name, a.Kind.MIME.Value, ErrNotImage)
	}

	img, _, err := image.Decode(bytes.NewReader(a.Data))
	if err != nil {
		return nil, fmt.Errorf("unable to decode %q (%s): %w", a.Name, a.Kind.MIME.Value, err)
	}

	if img.Bounds().Dx() > t.width {
		img = imaging.Resize(img, t.width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestSpeed)); err != nil {
		return nil, fmt.Errorf("unable to encode thumbnail of %q: %w", a.Name, err)
	}

	t.log.Debug("Thumbnail created", zap.String("src", a.Name), zap.String("type", a.Kind.MIME.Value),
		zap.Int("width", img.Bounds().Dx()), zap.Int("height", img.Bounds().Dy()))

	t.cache[src] = buf.Bytes()

	return buf.Bytes(), nil
}
