package artwork

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"romshelf/internal/catalog"
	"romshelf/internal/library"
	"romshelf/internal/logging"
)

func newTestStore(t *testing.T) (*Store, *library.Resolver) {
	t.Helper()
	base := t.TempDir()
	resolver, err := library.NewResolver(filepath.Join(base, "library"), filepath.Join(base, "resources"))
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return NewStore(resolver, 0, logging.NewNop()), resolver
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestSaveCoverResizesSmallVariant(t *testing.T) {
	store, resolver := newTestStore(t)
	rom := &catalog.Rom{ID: 12, PlatformID: 3}
	raw := encodePNG(t, 528, 744)

	paths, err := store.SaveCover(context.Background(), rom, bytes.NewReader(raw), ".PNG")
	if err != nil {
		t.Fatalf("SaveCover: %v", err)
	}
	if paths.Big != filepath.Join("roms", "3", "12", "cover", "big.png") {
		t.Fatalf("unexpected big path %q", paths.Big)
	}

	big, err := os.ReadFile(resolver.ResourcePath(paths.Big))
	if err != nil {
		t.Fatalf("read big: %v", err)
	}
	if !bytes.Equal(big, raw) {
		t.Fatal("big cover should be stored verbatim")
	}

	smallFile, err := os.Open(resolver.ResourcePath(paths.Small))
	if err != nil {
		t.Fatalf("open small: %v", err)
	}
	defer smallFile.Close()
	cfg, err := png.DecodeConfig(smallFile)
	if err != nil {
		t.Fatalf("decode small: %v", err)
	}
	if cfg.Width != DefaultSmallWidth || cfg.Height != 372 {
		t.Fatalf("unexpected small dimensions %dx%d", cfg.Width, cfg.Height)
	}
}

func TestSaveCoverStoresUndecodableVerbatim(t *testing.T) {
	store, resolver := newTestStore(t)
	rom := &catalog.Rom{ID: 1, PlatformID: 1}
	raw := []byte("not really an image")

	paths, err := store.SaveCover(context.Background(), rom, bytes.NewReader(raw), "jpg")
	if err != nil {
		t.Fatalf("SaveCover: %v", err)
	}
	small, err := os.ReadFile(resolver.ResourcePath(paths.Small))
	if err != nil {
		t.Fatalf("read small: %v", err)
	}
	if !bytes.Equal(small, raw) {
		t.Fatal("expected undecodable image copied as small cover")
	}
}

func TestSaveCoverReplacesPreviousExtension(t *testing.T) {
	store, resolver := newTestStore(t)
	rom := &catalog.Rom{ID: 5, PlatformID: 2}

	first, err := store.SaveCover(context.Background(), rom, bytes.NewReader(encodePNG(t, 10, 10)), "png")
	if err != nil {
		t.Fatalf("SaveCover png: %v", err)
	}
	if _, err := store.SaveCover(context.Background(), rom, bytes.NewReader([]byte("gifdata")), "gif"); err != nil {
		t.Fatalf("SaveCover gif: %v", err)
	}
	if _, err := os.Stat(resolver.ResourcePath(first.Big)); !os.IsNotExist(err) {
		t.Fatalf("expected old cover removed, stat err=%v", err)
	}
}

func TestRemoveCover(t *testing.T) {
	store, resolver := newTestStore(t)
	rom := &catalog.Rom{ID: 8, PlatformID: 4}
	paths, err := store.SaveCover(context.Background(), rom, bytes.NewReader(encodePNG(t, 4, 4)), "png")
	if err != nil {
		t.Fatalf("SaveCover: %v", err)
	}
	if err := store.RemoveCover(context.Background(), rom); err != nil {
		t.Fatalf("RemoveCover: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(resolver.ResourcePath(paths.Small))); !os.IsNotExist(err) {
		t.Fatalf("expected cover dir removed, stat err=%v", err)
	}
	if err := store.RemoveCover(context.Background(), rom); err != nil {
		t.Fatalf("RemoveCover on missing dir: %v", err)
	}
}
