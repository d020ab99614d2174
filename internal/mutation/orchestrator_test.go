package mutation_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"romshelf/internal/artwork"
	"romshelf/internal/catalog"
	"romshelf/internal/config"
	"romshelf/internal/library"
	"romshelf/internal/logging"
	"romshelf/internal/mutation"
	"romshelf/internal/services"
	"romshelf/internal/testsupport"
)

type fixture struct {
	cfg      *config.Config
	store    *catalog.Store
	resolver *library.Resolver
	orch     *mutation.Orchestrator
	platform *catalog.Platform
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	resolver := testsupport.NewResolver(t, cfg)
	covers := artwork.NewStore(resolver, 0, logging.NewNop())
	return &fixture{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		orch:     mutation.New(store, resolver, covers, logging.NewNop()),
		platform: testsupport.SeedPlatform(t, cfg, store, "n64"),
	}
}

func (f *fixture) romFile(rom *catalog.Rom) string {
	return f.resolver.RomPath(rom.FilePath, rom.FileName)
}

func TestRenameOntoExistingNameLeavesFileUntouched(t *testing.T) {
	f := newFixture(t)
	original := []byte("original bytes")
	rom := testsupport.SeedRom(t, f.cfg, f.store, f.platform, "Zelda (USA).z64", original)
	other := testsupport.SeedRom(t, f.cfg, f.store, f.platform, "Zelda (Europe).z64", []byte("other"))

	_, err := f.orch.Rename(context.Background(), rom.ID, other.FileName)
	if !errors.Is(err, services.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if got := testsupport.ReadFile(t, f.romFile(rom)); !bytes.Equal(got, original) {
		t.Fatalf("original file changed: %q", got)
	}
	if got := testsupport.ReadFile(t, f.romFile(other)); !bytes.Equal(got, []byte("other")) {
		t.Fatalf("target file overwritten: %q", got)
	}
	reloaded, err := f.store.GetByID(context.Background(), rom.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.FileName != rom.FileName {
		t.Fatalf("catalog should be untouched, got %q", reloaded.FileName)
	}
}

func TestRenameMovesFileAndRecord(t *testing.T) {
	f := newFixture(t)
	rom := testsupport.SeedRom(t, f.cfg, f.store, f.platform, "Zelda (USA).z64", []byte("z"))
	ctx := context.Background()

	renamed, err := f.orch.Rename(ctx, rom.ID, "  Ocarina: Master/Quest (USA).z64 ")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	want := "Ocarina- Master-Quest (USA).z64"
	if renamed.FileName != want {
		t.Fatalf("unexpected sanitized name %q", renamed.FileName)
	}
	if renamed.FileNameNoTags != "Ocarina- Master-Quest" {
		t.Fatalf("derived name not refreshed: %q", renamed.FileNameNoTags)
	}
	if _, err := os.Stat(f.romFile(renamed)); err != nil {
		t.Fatalf("renamed file missing: %v", err)
	}
	if _, err := os.Stat(f.romFile(rom)); !os.IsNotExist(err) {
		t.Fatalf("old file should be gone, stat err=%v", err)
	}

	same, err := f.orch.Rename(ctx, rom.ID, want)
	if err != nil || same.FileName != want {
		t.Fatalf("renaming to the same name should be a no-op, got %+v (%v)", same, err)
	}
	if _, err := f.orch.Rename(ctx, rom.ID, "   "); !errors.Is(err, services.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for blank name, got %v", err)
	}
}

func TestRenameRevertsDiskWhenCatalogRejects(t *testing.T) {
	f := newFixture(t)
	rom := testsupport.SeedRom(t, f.cfg, f.store, f.platform, "Kirby (USA).z64", []byte("k"))
	// A catalog record with no file on disk: the disk rename succeeds but the
	// catalog update violates the platform/file name uniqueness.
	ghost, err := f.store.Add(context.Background(), &catalog.Rom{
		PlatformID: f.platform.ID,
		FileName:   "Kirby (Japan).z64",
		FilePath:   rom.FilePath,
	})
	if err != nil {
		t.Fatalf("Add ghost: %v", err)
	}

	_, err = f.orch.Rename(context.Background(), rom.ID, ghost.FileName)
	if !errors.Is(err, services.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists from catalog, got %v", err)
	}
	if _, err := os.Stat(f.romFile(rom)); err != nil {
		t.Fatalf("expected disk rename reverted: %v", err)
	}
	if _, err := os.Stat(f.romFile(ghost)); !os.IsNotExist(err) {
		t.Fatalf("expected no file under the rejected name, stat err=%v", err)
	}
}

func TestUpdateRenameAsSourceAndCover(t *testing.T) {
	f := newFixture(t)
	rom := testsupport.SeedRom(t, f.cfg, f.store, f.platform, "Zelda (USA) [!].z64", []byte("z"))
	ctx := context.Background()

	name := "The Legend of Zelda"
	summary := "Hero of time"
	updated, err := f.orch.Update(ctx, rom.ID, mutation.UpdateRequest{
		Name:           &name,
		Summary:        &summary,
		RenameAsSource: true,
		Artwork:        bytes.NewReader([]byte("cover bytes")),
		ArtworkExt:     "jpg",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.FileName != "The Legend of Zelda (USA) [!].z64" {
		t.Fatalf("unexpected file name %q", updated.FileName)
	}
	if updated.Name != name || updated.Summary != summary {
		t.Fatalf("fields not applied: %+v", updated)
	}
	if !updated.HasCover() {
		t.Fatal("expected cover paths recorded")
	}
	if _, err := os.Stat(f.resolver.ResourcePath(updated.PathCoverL)); err != nil {
		t.Fatalf("big cover missing: %v", err)
	}

	cleared, err := f.orch.Update(ctx, rom.ID, mutation.UpdateRequest{RemoveCover: true})
	if err != nil {
		t.Fatalf("Update remove cover: %v", err)
	}
	if cleared.HasCover() {
		t.Fatalf("expected cover cleared, got %q/%q", cleared.PathCoverS, cleared.PathCoverL)
	}
	if _, err := os.Stat(filepath.Dir(f.resolver.ResourcePath(updated.PathCoverL))); !os.IsNotExist(err) {
		t.Fatalf("expected cover dir removed, stat err=%v", err)
	}

	if _, err := f.orch.Update(ctx, 9999, mutation.UpdateRequest{Summary: &summary}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteReportsEachIDIndependently(t *testing.T) {
	f := newFixture(t)
	keepOnDisk := testsupport.SeedRom(t, f.cfg, f.store, f.platform, "Keep.z64", []byte("k"))
	removeFromDisk := testsupport.SeedRom(t, f.cfg, f.store, f.platform, "Remove.z64", []byte("r"))
	ctx := context.Background()

	resources, err := f.resolver.BuildAssetPath(keepOnDisk.PlatformID, keepOnDisk.ID, library.AssetSaves)
	if err != nil {
		t.Fatalf("BuildAssetPath: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(resources, "Keep.sav"), 8)

	report := f.orch.Delete(ctx, []int64{keepOnDisk.ID, 9999, removeFromDisk.ID}, []int64{removeFromDisk.ID})
	if report.Deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", report.Deleted)
	}
	if len(report.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(report.Results))
	}
	if r := report.Results[1]; r.ID != 9999 || r.Deleted || !errors.Is(r.Err, services.ErrNotFound) {
		t.Fatalf("unexpected result for unknown id: %+v", r)
	}
	if failed := report.Failed(); len(failed) != 1 {
		t.Fatalf("expected only the unknown id to fail, got %+v", failed)
	}

	if _, err := os.Stat(f.romFile(keepOnDisk)); err != nil {
		t.Fatalf("file not listed in deleteFromFS should remain: %v", err)
	}
	if _, err := os.Stat(f.romFile(removeFromDisk)); !os.IsNotExist(err) {
		t.Fatalf("file listed in deleteFromFS should be removed, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Dir(resources)); !os.IsNotExist(err) {
		t.Fatalf("resources dir should be removed, stat err=%v", err)
	}
}

func TestDeleteMissingFileStillRemovesRecord(t *testing.T) {
	f := newFixture(t)
	rom := testsupport.SeedRom(t, f.cfg, f.store, f.platform, "Gone.z64", []byte("g"))
	if err := os.Remove(f.romFile(rom)); err != nil {
		t.Fatalf("remove: %v", err)
	}

	report := f.orch.Delete(context.Background(), []int64{rom.ID}, []int64{rom.ID})
	result := report.Results[0]
	if !result.Deleted || !errors.Is(result.Err, services.ErrNotFound) {
		t.Fatalf("expected deleted record with file error, got %+v", result)
	}
	if _, err := f.store.GetByID(context.Background(), rom.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected record gone, got %v", err)
	}
}

func TestRenameIntoAnotherSiblingGroupKeepsOneMain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	zelda := testsupport.SeedRom(t, f.cfg, f.store, f.platform, "Zelda (USA).sfc", []byte("z"))
	mario := testsupport.SeedRom(t, f.cfg, f.store, f.platform, "Mario (USA).sfc", []byte("m"))
	for _, id := range []int64{zelda.ID, mario.ID} {
		if err := f.store.SetMainSibling(ctx, id, 1); err != nil {
			t.Fatalf("SetMainSibling %d: %v", id, err)
		}
	}

	if _, err := f.orch.Rename(ctx, mario.ID, "Zelda (Europe).sfc"); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	roms, err := f.store.List(ctx, catalog.ListOptions{PlatformID: f.platform.ID, UserID: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	mains := 0
	for _, rom := range roms {
		if rom.FileNameNoTags == "Zelda" && rom.IsMainSibling {
			mains++
		}
	}
	if mains != 1 {
		t.Fatalf("sibling group Zelda has %d main roms for user 1, want 1", mains)
	}
}
