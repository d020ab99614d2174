package catalog_test

import (
	"context"
	"errors"
	"testing"

	"romshelf/internal/catalog"
	"romshelf/internal/services"
	"romshelf/internal/testsupport"
)

func mainFlags(t *testing.T, store *catalog.Store, platformID, userID int64) map[string]bool {
	t.Helper()
	roms, err := store.List(context.Background(), catalog.ListOptions{PlatformID: platformID, UserID: userID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	flags := make(map[string]bool, len(roms))
	for _, rom := range roms {
		flags[rom.FileName] = rom.IsMainSibling
	}
	return flags
}

func TestSetMainSiblingKeepsExactlyOne(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	platform := testsupport.SeedPlatform(t, cfg, store, "snes")
	a := testsupport.SeedRom(t, cfg, store, platform, "Zelda (USA).sfc", []byte("a"))
	b := testsupport.SeedRom(t, cfg, store, platform, "Zelda (Europe).sfc", []byte("b"))
	testsupport.SeedRom(t, cfg, store, platform, "Zelda (Japan) [!].sfc", []byte("c"))
	ctx := context.Background()

	if err := store.SetMainSibling(ctx, a.ID, 1); err != nil {
		t.Fatalf("SetMainSibling A: %v", err)
	}
	if err := store.SetMainSibling(ctx, b.ID, 1); err != nil {
		t.Fatalf("SetMainSibling B: %v", err)
	}

	flags := mainFlags(t, store, platform.ID, 1)
	want := map[string]bool{
		"Zelda (USA).sfc":       false,
		"Zelda (Europe).sfc":    true,
		"Zelda (Japan) [!].sfc": false,
	}
	for name, expected := range want {
		if flags[name] != expected {
			t.Fatalf("main flag for %q: got %v want %v (all: %v)", name, flags[name], expected, flags)
		}
	}

	for name, flag := range mainFlags(t, store, platform.ID, 2) {
		if flag {
			t.Fatalf("user 2 should have no main sibling, %q is flagged", name)
		}
	}
}

func TestSetMainSiblingLeavesOtherGroupsAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	platform := testsupport.SeedPlatform(t, cfg, store, "genesis")
	other := testsupport.SeedPlatform(t, cfg, store, "megacd")
	streets := testsupport.SeedRom(t, cfg, store, platform, "Streets of Rage (USA).md", []byte("s"))
	sonic := testsupport.SeedRom(t, cfg, store, platform, "Sonic (USA).md", []byte("s"))
	elsewhere := testsupport.SeedRom(t, cfg, store, other, "Sonic (Europe).md", []byte("s"))
	ctx := context.Background()

	if err := store.SetMainSibling(ctx, streets.ID, 1); err != nil {
		t.Fatalf("SetMainSibling: %v", err)
	}
	if err := store.SetMainSibling(ctx, elsewhere.ID, 1); err != nil {
		t.Fatalf("SetMainSibling other platform: %v", err)
	}
	if err := store.SetMainSibling(ctx, sonic.ID, 1); err != nil {
		t.Fatalf("SetMainSibling sonic: %v", err)
	}

	flags := mainFlags(t, store, platform.ID, 1)
	if !flags["Streets of Rage (USA).md"] || !flags["Sonic (USA).md"] {
		t.Fatalf("expected both groups to keep their main rom, got %v", flags)
	}
	if !mainFlags(t, store, other.ID, 1)["Sonic (Europe).md"] {
		t.Fatal("same tag-free name on another platform is not a sibling")
	}

	if err := store.SetMainSibling(ctx, 9999, 1); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetSiblingsExcludesSelfOrderedByID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	platform := testsupport.SeedPlatform(t, cfg, store, "nes")
	first := testsupport.SeedRom(t, cfg, store, platform, "Contra (USA).nes", []byte("1"))
	second := testsupport.SeedRom(t, cfg, store, platform, "Contra (Japan).nes", []byte("2"))
	third := testsupport.SeedRom(t, cfg, store, platform, "Contra [T+Eng].nes", []byte("3"))
	testsupport.SeedRom(t, cfg, store, platform, "Super Contra (USA).nes", []byte("4"))
	lonely := testsupport.SeedRom(t, cfg, store, platform, "(Demo).nes", []byte("5"))
	ctx := context.Background()

	siblings, err := store.GetSiblings(ctx, second, 0)
	if err != nil {
		t.Fatalf("GetSiblings: %v", err)
	}
	if len(siblings) != 2 || siblings[0].ID != first.ID || siblings[1].ID != third.ID {
		t.Fatalf("unexpected siblings %v", romNames(siblings))
	}

	if lonely.FileNameNoTags != "" {
		t.Fatalf("expected empty tag-free name, got %q", lonely.FileNameNoTags)
	}
	siblings, err = store.GetSiblings(ctx, lonely, 0)
	if err != nil {
		t.Fatalf("GetSiblings: %v", err)
	}
	if len(siblings) != 0 {
		t.Fatalf("rom with empty tag-free name has no siblings, got %v", romNames(siblings))
	}
}

func TestGetOrCreatePropsIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	platform := testsupport.SeedPlatform(t, cfg, store, "gg")
	rom := testsupport.SeedRom(t, cfg, store, platform, "Columns.gg", []byte("c"))
	ctx := context.Background()

	first, err := store.GetOrCreateProps(ctx, rom.ID, 7)
	if err != nil {
		t.Fatalf("GetOrCreateProps: %v", err)
	}
	second, err := store.GetOrCreateProps(ctx, rom.ID, 7)
	if err != nil {
		t.Fatalf("GetOrCreateProps again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected one props row, got ids %d and %d", first.ID, second.ID)
	}
	if first.IsMainSibling || first.NoteIsPublic || first.NoteRawMarkdown != "" {
		t.Fatalf("expected empty props, got %+v", first)
	}
	if _, err := store.GetOrCreateProps(ctx, 9999, 7); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePropsMainFlagResetsGroup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	platform := testsupport.SeedPlatform(t, cfg, store, "n64")
	a := testsupport.SeedRom(t, cfg, store, platform, "Mario Kart 64 (USA).z64", []byte("a"))
	b := testsupport.SeedRom(t, cfg, store, platform, "Mario Kart 64 (Europe).z64", []byte("b"))
	ctx := context.Background()

	yes := true
	note := "best version"
	props, err := store.UpdateProps(ctx, a.ID, 1, catalog.PropsUpdate{IsMainSibling: &yes, NoteRawMarkdown: &note})
	if err != nil {
		t.Fatalf("UpdateProps A: %v", err)
	}
	if !props.IsMainSibling || props.NoteRawMarkdown != note {
		t.Fatalf("unexpected props %+v", props)
	}

	if _, err := store.UpdateProps(ctx, b.ID, 1, catalog.PropsUpdate{IsMainSibling: &yes}); err != nil {
		t.Fatalf("UpdateProps B: %v", err)
	}
	detail, err := store.GetDetailed(ctx, a.ID, 1)
	if err != nil {
		t.Fatalf("GetDetailed: %v", err)
	}
	if detail.Props == nil || detail.Props.IsMainSibling {
		t.Fatalf("expected A to lose main flag, got %+v", detail.Props)
	}
	if detail.Props.NoteRawMarkdown != note {
		t.Fatalf("note should survive sibling reset, got %q", detail.Props.NoteRawMarkdown)
	}
	if len(detail.Siblings) != 1 || !detail.Siblings[0].IsMainSibling {
		t.Fatalf("expected sibling B flagged main in overlay, got %+v", detail.Siblings)
	}

	no := false
	public := true
	props, err = store.UpdateProps(ctx, b.ID, 1, catalog.PropsUpdate{IsMainSibling: &no, NoteIsPublic: &public})
	if err != nil {
		t.Fatalf("UpdateProps clear: %v", err)
	}
	if props.IsMainSibling || !props.NoteIsPublic {
		t.Fatalf("unexpected props after clear %+v", props)
	}
}

func TestUpdateFileNameIntoAnotherGroupDropsMainFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	platform := testsupport.SeedPlatform(t, cfg, store, "snes")
	zelda := testsupport.SeedRom(t, cfg, store, platform, "Zelda (USA).sfc", []byte("z"))
	mario := testsupport.SeedRom(t, cfg, store, platform, "Mario (USA).sfc", []byte("m"))
	ctx := context.Background()

	for _, id := range []int64{zelda.ID, mario.ID} {
		if err := store.SetMainSibling(ctx, id, 1); err != nil {
			t.Fatalf("SetMainSibling %d: %v", id, err)
		}
	}

	newName := "Zelda (Europe).sfc"
	if _, err := store.Update(ctx, mario.ID, catalog.RomUpdate{FileName: &newName}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	flags := mainFlags(t, store, platform.ID, 1)
	if !flags["Zelda (USA).sfc"] || flags[newName] {
		t.Fatalf("expected only Zelda (USA) to stay main, got %v", flags)
	}
}

func TestUpdateFileNameWithinGroupKeepsMainFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	platform := testsupport.SeedPlatform(t, cfg, store, "snes")
	rom := testsupport.SeedRom(t, cfg, store, platform, "Zelda (USA).sfc", []byte("z"))
	testsupport.SeedRom(t, cfg, store, platform, "Zelda (Japan).sfc", []byte("j"))
	ctx := context.Background()

	if err := store.SetMainSibling(ctx, rom.ID, 1); err != nil {
		t.Fatalf("SetMainSibling: %v", err)
	}
	newName := "Zelda (USA) (Rev 1).sfc"
	if _, err := store.Update(ctx, rom.ID, catalog.RomUpdate{FileName: &newName}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if flags := mainFlags(t, store, platform.ID, 1); !flags[newName] {
		t.Fatalf("expected renamed rom to stay main, got %v", flags)
	}
}
