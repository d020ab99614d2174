package artwork

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"romshelf/internal/catalog"
	"romshelf/internal/library"
	"romshelf/internal/logging"
	"romshelf/internal/services"
)

// DefaultSmallWidth is the width of the small cover variant in pixels.
const DefaultSmallWidth = 264

// Store writes and removes cover files.
type Store struct {
	resolver   *library.Resolver
	smallWidth int
	logger     *slog.Logger
}

// NewStore returns a cover store. A non-positive smallWidth selects
// DefaultSmallWidth.
func NewStore(resolver *library.Resolver, smallWidth int, logger *slog.Logger) *Store {
	if smallWidth <= 0 {
		smallWidth = DefaultSmallWidth
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		resolver:   resolver,
		smallWidth: smallWidth,
		logger:     logging.NewComponentLogger(logger, "artwork"),
	}
}

// Paths are the stored cover locations relative to the resources root.
type Paths struct {
	Small string
	Big   string
}

// SaveCover replaces the ROM's cover with data. The big variant is written
// verbatim; the small variant is scaled to the configured width. Images that
// cannot be decoded are stored verbatim for both.
func (s *Store) SaveCover(ctx context.Context, rom *catalog.Rom, data io.Reader, ext string) (Paths, error) {
	if rom == nil {
		return Paths{}, services.Wrap(services.ErrInvalidRequest, "artwork", "save cover", "rom is nil", nil)
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return Paths{}, services.Wrap(services.ErrInvalidRequest, "artwork", "save cover", "read upload", err)
	}
	if len(raw) == 0 {
		return Paths{}, services.Wrap(services.ErrInvalidRequest, "artwork", "save cover", "empty image", nil)
	}
	ext = normalizeExt(ext)
	paths := s.resolver.BuildCoverPaths(rom.PlatformID, rom.ID, ext)
	logger := logging.WithContext(ctx, s.logger)

	// A previous cover may use another extension.
	if err := os.RemoveAll(paths.Dir); err != nil {
		return Paths{}, services.Wrap(services.ErrTransient, "artwork", "save cover", "clear cover dir", err)
	}
	if err := os.MkdirAll(paths.Dir, 0o755); err != nil {
		return Paths{}, services.Wrap(services.ErrTransient, "artwork", "save cover", "create cover dir", err)
	}

	if err := writeFile(s.resolver.ResourcePath(paths.Big), raw); err != nil {
		return Paths{}, err
	}

	small, err := resize(raw, ext, s.smallWidth)
	if err != nil {
		logger.Warn("cover could not be resized; storing original as small cover",
			logging.Error(err),
			logging.String(logging.FieldEventType, "cover_resize_failed"),
			logging.String(logging.FieldImpact, "list views load the full size cover"),
		)
		small = raw
	}
	if err := writeFile(s.resolver.ResourcePath(paths.Small), small); err != nil {
		return Paths{}, err
	}

	logger.Debug("cover stored",
		logging.String("small", paths.Small),
		logging.String("big", paths.Big),
		logging.Int("bytes", len(raw)),
	)
	return Paths{Small: paths.Small, Big: paths.Big}, nil
}

// RemoveCover deletes the ROM's cover directory. A missing directory is not an
// error.
func (s *Store) RemoveCover(ctx context.Context, rom *catalog.Rom) error {
	if rom == nil {
		return nil
	}
	dir := s.resolver.BuildCoverPaths(rom.PlatformID, rom.ID, "").Dir
	if err := os.RemoveAll(dir); err != nil {
		return services.Wrap(services.ErrTransient, "artwork", "remove cover", "remove cover dir", err)
	}
	logging.WithContext(ctx, s.logger).Debug("cover removed", logging.String("dir", dir))
	return nil
}

func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "artwork", "write cover", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrTransient, "artwork", "write cover", filepath.Base(path), err)
	}
	return nil
}

func normalizeExt(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	switch ext {
	case "":
		return "png"
	case "jpeg":
		return "jpg"
	default:
		return ext
	}
}

// resize scales raw down to width, keeping the aspect ratio, and re-encodes
// it in the format named by ext. Images already narrow enough, or in a format
// that cannot be re-encoded, are returned unchanged.
func resize(raw []byte, ext string, width int) ([]byte, error) {
	switch ext {
	case "png", "jpg", "gif":
	default:
		return raw, nil
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := src.Bounds()
	if bounds.Dx() <= width {
		return raw, nil
	}
	height := max(1, bounds.Dy()*width/bounds.Dx())

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var out bytes.Buffer
	switch ext {
	case "jpg":
		err = jpeg.Encode(&out, dst, &jpeg.Options{Quality: 85})
	case "gif":
		err = gif.Encode(&out, dst, nil)
	case "png":
		err = png.Encode(&out, dst)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ext, err)
	}
	return out.Bytes(), nil
}
