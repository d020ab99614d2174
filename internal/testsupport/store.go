package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"romshelf/internal/catalog"
	"romshelf/internal/config"
	"romshelf/internal/library"
)

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedPlatform registers a platform and creates its ROM directory.
func SeedPlatform(t testing.TB, cfg *config.Config, store *catalog.Store, fsSlug string) *catalog.Platform {
	t.Helper()

	platform, err := store.AddPlatform(context.Background(), fsSlug, fsSlug)
	if err != nil {
		t.Fatalf("store.AddPlatform: %v", err)
	}
	WriteDir(t, filepath.Join(cfg.Paths.LibraryDir, library.RomDir(fsSlug)))
	return platform
}

// SeedRom writes a single-file ROM of the given content to disk and adds it
// to the catalog.
func SeedRom(t testing.TB, cfg *config.Config, store *catalog.Store, platform *catalog.Platform, fileName string, content []byte) *catalog.Rom {
	t.Helper()

	dir := library.RomDir(platform.FSSlug)
	WriteContent(t, filepath.Join(cfg.Paths.LibraryDir, dir, fileName), content)
	rom, err := store.Add(context.Background(), &catalog.Rom{
		PlatformID:    platform.ID,
		FileName:      fileName,
		FilePath:      dir,
		FileSizeBytes: int64(len(content)),
	})
	if err != nil {
		t.Fatalf("store.Add %s: %v", fileName, err)
	}
	return rom
}

// SeedMultiRom writes a directory ROM with one file per member and adds it to
// the catalog with members in the given order.
func SeedMultiRom(t testing.TB, cfg *config.Config, store *catalog.Store, platform *catalog.Platform, dirName string, members map[string][]byte, order []string) *catalog.Rom {
	t.Helper()

	dir := library.RomDir(platform.FSSlug)
	var total int64
	for _, name := range order {
		data := members[name]
		WriteContent(t, filepath.Join(cfg.Paths.LibraryDir, dir, dirName, name), data)
		total += int64(len(data))
	}
	rom, err := store.Add(context.Background(), &catalog.Rom{
		PlatformID:    platform.ID,
		FileName:      dirName,
		FilePath:      dir,
		FileSizeBytes: total,
		Multi:         true,
		Files:         order,
	})
	if err != nil {
		t.Fatalf("store.Add %s: %v", dirName, err)
	}
	return rom
}
