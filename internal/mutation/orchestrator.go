package mutation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"romshelf/internal/artwork"
	"romshelf/internal/catalog"
	"romshelf/internal/library"
	"romshelf/internal/logging"
	"romshelf/internal/services"
	"romshelf/internal/textutil"
)

// Orchestrator applies ROM mutations across the library and the catalog.
type Orchestrator struct {
	store    *catalog.Store
	resolver *library.Resolver
	covers   *artwork.Store
	logger   *slog.Logger
}

// New builds an orchestrator.
func New(store *catalog.Store, resolver *library.Resolver, covers *artwork.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		store:    store,
		resolver: resolver,
		covers:   covers,
		logger:   logging.NewComponentLogger(logger, "mutation"),
	}
}

// Rename renames the ROM's file on disk and then records the new name. When
// the catalog update fails the disk rename is reverted.
func (o *Orchestrator) Rename(ctx context.Context, romID int64, newFileName string) (*catalog.Rom, error) {
	ctx = services.WithRomID(ctx, romID)
	rom, err := o.store.GetByID(ctx, romID)
	if err != nil {
		return nil, err
	}
	return o.rename(ctx, rom, newFileName)
}

func (o *Orchestrator) rename(ctx context.Context, rom *catalog.Rom, newFileName string) (*catalog.Rom, error) {
	logger := logging.WithContext(ctx, o.logger)
	newName := textutil.SanitizeFileName(newFileName)
	if newName == "" {
		return nil, services.Wrap(services.ErrInvalidRequest, "mutation", "rename", "file name must not be empty", nil)
	}
	if newName == rom.FileName {
		return rom, nil
	}

	if err := o.resolver.RenameFile(rom.FileName, newName, rom.FilePath); err != nil {
		return nil, err
	}

	updated, err := o.store.Update(ctx, rom.ID, catalog.RomUpdate{FileName: &newName})
	if err != nil {
		if rbErr := o.resolver.RenameFile(newName, rom.FileName, rom.FilePath); rbErr != nil {
			logger.Error("rename rollback failed; file on disk no longer matches catalog",
				logging.Error(rbErr),
				logging.String("catalog_error", err.Error()),
				logging.String("file_name", rom.FileName),
				logging.String("disk_name", newName),
				logging.String(logging.FieldEventType, "rename_rollback_failed"),
				logging.String(logging.FieldErrorHint, "rename the file back manually or rescan the platform"),
			)
		} else {
			logger.Warn("catalog update failed; disk rename reverted",
				logging.Error(err),
				logging.String("file_name", rom.FileName),
				logging.String(logging.FieldEventType, "rename_reverted"),
			)
		}
		return nil, err
	}

	logger.Info("rom renamed",
		logging.String("from", rom.FileName),
		logging.String("to", newName),
	)
	return updated, nil
}

// UpdateRequest carries an edit of ROM metadata. Nil fields are unchanged.
type UpdateRequest struct {
	Name     *string
	FileName *string
	Summary  *string
	URLCover *string
	// RenameAsSource rewrites the file name so its tag-free base matches the
	// display name, keeping tags and extension.
	RenameAsSource bool
	RemoveCover    bool
	// Artwork, when set, replaces the cover. ArtworkExt names its format.
	Artwork    io.Reader
	ArtworkExt string
}

// Update renames the file when needed, stores or removes cover art, and then
// applies the remaining fields.
func (o *Orchestrator) Update(ctx context.Context, romID int64, req UpdateRequest) (*catalog.Rom, error) {
	ctx = services.WithRomID(ctx, romID)
	rom, err := o.store.GetByID(ctx, romID)
	if err != nil {
		return nil, err
	}

	var update catalog.RomUpdate
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, services.Wrap(services.ErrInvalidRequest, "mutation", "update", "name must not be empty", nil)
		}
		update.Name = &name
	}

	targetName := rom.FileName
	if req.FileName != nil {
		targetName = textutil.SanitizeFileName(*req.FileName)
	}
	if req.RenameAsSource {
		displayName := rom.Name
		if update.Name != nil {
			displayName = *update.Name
		}
		targetName = sourceFileName(rom, displayName)
	}
	if targetName != rom.FileName {
		renamed, err := o.rename(ctx, rom, targetName)
		if err != nil {
			return nil, err
		}
		rom = renamed
	}

	switch {
	case req.RemoveCover:
		if err := o.covers.RemoveCover(ctx, rom); err != nil {
			return nil, err
		}
		empty := ""
		update.PathCoverS = &empty
		update.PathCoverL = &empty
	case req.Artwork != nil:
		paths, err := o.covers.SaveCover(ctx, rom, req.Artwork, req.ArtworkExt)
		if err != nil {
			return nil, err
		}
		update.PathCoverS = &paths.Small
		update.PathCoverL = &paths.Big
	}
	if req.URLCover != nil {
		urlCover := strings.TrimSpace(*req.URLCover)
		update.URLCover = &urlCover
	}
	if req.Summary != nil {
		update.Summary = req.Summary
	}

	if update.Empty() {
		return rom, nil
	}
	return o.store.Update(ctx, rom.ID, update)
}

// sourceFileName replaces the tag-free part of the ROM's file name with the
// sanitized display name. "Zelda (USA).z64" renamed to "The Legend of Zelda"
// becomes "The Legend of Zelda (USA).z64".
func sourceFileName(rom *catalog.Rom, displayName string) string {
	safe := textutil.SanitizeFileName(displayName)
	if safe == "" {
		return rom.FileName
	}
	base := rom.FileNameNoTags
	if base == "" {
		base = rom.FileNameNoExt
	}
	if base == "" || !strings.Contains(rom.FileName, base) {
		return rom.FileName
	}
	return strings.Replace(rom.FileName, base, safe, 1)
}

// DeleteResult is the outcome for one requested id.
type DeleteResult struct {
	ID      int64
	Deleted bool
	Err     error
}

// DeleteReport collects per-id outcomes of a delete request.
type DeleteReport struct {
	Results []DeleteResult
	// Deleted counts removed catalog records.
	Deleted int
}

// Failed returns the results that carry an error.
func (r DeleteReport) Failed() []DeleteResult {
	var failed []DeleteResult
	for _, result := range r.Results {
		if result.Err != nil {
			failed = append(failed, result)
		}
	}
	return failed
}

// Delete removes each ROM independently. The catalog record goes first, then
// the ROM's resources directory; the ROM file itself is removed only for ids
// listed in deleteFromFS.
func (o *Orchestrator) Delete(ctx context.Context, ids []int64, deleteFromFS []int64) DeleteReport {
	fromFS := make(map[int64]struct{}, len(deleteFromFS))
	for _, id := range deleteFromFS {
		fromFS[id] = struct{}{}
	}

	report := DeleteReport{Results: make([]DeleteResult, 0, len(ids))}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			report.Results = append(report.Results, DeleteResult{ID: id, Err: err})
			continue
		}
		_, removeFile := fromFS[id]
		result := o.deleteOne(services.WithRomID(ctx, id), id, removeFile)
		if result.Deleted {
			report.Deleted++
		}
		report.Results = append(report.Results, result)
	}
	return report
}

func (o *Orchestrator) deleteOne(ctx context.Context, id int64, removeFile bool) DeleteResult {
	logger := logging.WithContext(ctx, o.logger)
	result := DeleteResult{ID: id}

	rom, err := o.store.GetByID(ctx, id)
	if err != nil {
		result.Err = err
		return result
	}
	if err := o.store.Delete(ctx, id); err != nil {
		result.Err = err
		return result
	}
	result.Deleted = true

	if err := o.resolver.RemoveResources(rom.PlatformID, rom.ID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			logger.Debug("rom had no resources directory", logging.String("resources", rom.ResourcesPath()))
		} else {
			logger.Warn("failed to remove rom resources",
				logging.Error(err),
				logging.String("resources", rom.ResourcesPath()),
				logging.String(logging.FieldEventType, "resources_cleanup_failed"),
				logging.String(logging.FieldImpact, "orphaned covers and saves remain on disk"),
			)
		}
	}

	if removeFile {
		if err := o.resolver.RemoveFile(rom.FileName, rom.FilePath); err != nil {
			result.Err = fmt.Errorf("catalog record removed but file delete failed: %w", err)
			logger.Warn("failed to remove rom file",
				logging.Error(err),
				logging.String("file", rom.FullPath()),
				logging.String(logging.FieldEventType, "rom_file_delete_failed"),
			)
			return result
		}
	}

	logger.Info("rom deleted",
		logging.String("file", rom.FullPath()),
		logging.Bool("from_fs", removeFile),
	)
	return result
}
