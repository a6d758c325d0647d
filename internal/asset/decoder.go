// Package asset stores uploaded bitmaps and resolves image sources to their
// natural size.
package asset

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/inamate/freecanvas/internal/editor"
)

// URLPrefix is the path under which stored assets are served.
const URLPrefix = "/assets/"

var acceptedTypes = []string{"image/png", "image/jpeg", "image/webp", "image/bmp"}

// Decoder implements editor.ImageDecoder for data URLs and for paths under
// URLPrefix that resolve to files in dir. Only the image header is read.
type Decoder struct {
	dir string
}

func NewDecoder(dir string) *Decoder {
	return &Decoder{dir: dir}
}

var _ editor.ImageDecoder = (*Decoder)(nil)

func (d *Decoder) Decode(ctx context.Context, src string) (editor.ImageInfo, error) {
	if err := ctx.Err(); err != nil {
		return editor.ImageInfo{}, err
	}

	var (
		r   io.Reader
		err error
	)
	switch {
	case strings.HasPrefix(src, "data:"):
		r, err = dataURLReader(src)
	case strings.HasPrefix(src, URLPrefix):
		var f *os.File
		f, err = d.open(strings.TrimPrefix(src, URLPrefix))
		if f != nil {
			defer f.Close()
			r = f
		}
	default:
		err = fmt.Errorf("unsupported image source")
	}
	if err != nil {
		return editor.ImageInfo{}, err
	}

	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return editor.ImageInfo{}, fmt.Errorf("decode image header: %w", err)
	}
	return editor.ImageInfo{Src: src, Width: cfg.Width, Height: cfg.Height}, nil
}

func (d *Decoder) open(name string) (*os.File, error) {
	name, err := url.PathUnescape(name)
	if err != nil {
		return nil, err
	}
	// Only files directly inside dir are reachable.
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("invalid asset path %q", name)
	}
	return os.Open(filepath.Join(d.dir, name))
}

// dataURLReader returns the payload of a base64 data URL with an image
// media type.
func dataURLReader(src string) (io.Reader, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URL")
	}
	if !strings.HasPrefix(header, "image/") || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("data URL is not a base64 image")
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URL: %w", err)
	}
	return bytes.NewReader(b), nil
}
