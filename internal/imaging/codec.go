// Package imaging turns user-selected image files into size-bounded data URLs
// that can be stored inline with a recipe.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// Defaults applied when Codec fields are zero.
const (
	DefaultMaxWidth = 800
	DefaultQuality  = 80
)

const dataURLPrefix = "data:image/jpeg;base64,"

// Source is one selected image file.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// FileSource reads an image from disk.
type FileSource string

// Name returns the base name of the file.
func (f FileSource) Name() string { return filepath.Base(string(f)) }

// Open opens the file.
func (f FileSource) Open() (io.ReadCloser, error) { return os.Open(string(f)) }

// FileSources wraps each path in a FileSource.
func FileSources(paths []string) []Source {
	sources := make([]Source, len(paths))
	for i, p := range paths {
		sources[i] = FileSource(p)
	}
	return sources
}

// ImageReadError reports the file that could not be read or decoded.
type ImageReadError struct {
	Name string
	Err  error
}

func (e *ImageReadError) Error() string {
	return fmt.Sprintf("read image %s: %v", e.Name, e.Err)
}

func (e *ImageReadError) Unwrap() error { return e.Err }

// Codec downsizes and re-encodes images.
type Codec struct {
	MaxWidth int
	Quality  int
	Logger   *slog.Logger
}

// New returns a Codec with the given limits; zero values use the defaults.
func New(maxWidth, quality int, logger *slog.Logger) *Codec {
	return &Codec{MaxWidth: maxWidth, Quality: quality, Logger: logger}
}

func (c *Codec) maxWidth() int {
	if c == nil || c.MaxWidth <= 0 {
		return DefaultMaxWidth
	}
	return c.MaxWidth
}

func (c *Codec) quality() int {
	if c == nil || c.Quality <= 0 || c.Quality > 100 {
		return DefaultQuality
	}
	return c.Quality
}

func (c *Codec) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// EncodeAll encodes every source concurrently and returns the data URLs in
// input order. The first failure cancels the batch and no partial result is
// returned.
func (c *Codec) EncodeAll(ctx context.Context, sources []Source) ([]string, error) {
	if len(sources) == 0 {
		return []string{}, nil
	}

	out := make([]string, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			url, err := c.Encode(src)
			if err != nil {
				return err
			}
			out[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.logger().Warn("image batch failed", "files", len(sources), "error", err)
		return nil, err
	}

	c.logger().Debug("images encoded", "files", len(sources))
	return out, nil
}

// Encode reads a single source and returns its data URL.
func (c *Codec) Encode(src Source) (string, error) {
	rc, err := src.Open()
	if err != nil {
		return "", &ImageReadError{Name: src.Name(), Err: err}
	}
	defer rc.Close()

	img, _, err := image.Decode(rc)
	if err != nil {
		return "", &ImageReadError{Name: src.Name(), Err: err}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Downscale(img, c.maxWidth()), &jpeg.Options{Quality: c.quality()}); err != nil {
		return "", &ImageReadError{Name: src.Name(), Err: fmt.Errorf("encode jpeg: %w", err)}
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Downscale returns img unchanged when it is at most maxWidth wide, otherwise
// a copy scaled to maxWidth with the aspect ratio preserved.
func Downscale(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxWidth {
		return img
	}

	nh := h * maxWidth / w
	if nh < 1 {
		nh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// DecodeDataURL returns the image bytes of a data URL produced by Encode.
func DecodeDataURL(url string) ([]byte, error) {
	if len(url) < len(dataURLPrefix) || url[:len(dataURLPrefix)] != dataURLPrefix {
		return nil, fmt.Errorf("not a jpeg data url")
	}
	return base64.StdEncoding.DecodeString(url[len(dataURLPrefix):])
}
