package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"romshelf/internal/services"
	"romshelf/internal/textutil"
)

func romNotFound(operation string, id int64) error {
	return services.Wrap(services.ErrNotFound, "catalog", operation, fmt.Sprintf("rom %d does not exist", id), nil)
}

func getRom(ctx context.Context, q querier, userID, id int64) (*Rom, error) {
	row := q.QueryRowContext(ctx, romSelect+` WHERE r.id = ?`, userID, id)
	rom, err := scanRom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, romNotFound("get rom", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get rom: %w", err)
	}
	return rom, nil
}

// List returns ROMs matching opts. Unknown order values have already been
// normalized by ParseOrderBy/ParseOrderDir; zero values sort by name ascending.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Rom, error) {
	ctx = ensureContext(ctx)
	var (
		where []string
		args  = []any{opts.UserID}
	)
	if opts.PlatformID > 0 {
		where = append(where, "r.platform_id = ?")
		args = append(args, opts.PlatformID)
	}
	if term := strings.TrimSpace(opts.SearchTerm); term != "" {
		folded := textutil.Fold(term)
		where = append(where, "(instr(r.name_fold, ?) > 0 OR instr(r.file_name_fold, ?) > 0)")
		args = append(args, folded, folded)
	}

	query := romSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += orderClause(opts.OrderBy, opts.OrderDir)
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list roms: %w", err)
	}
	roms, err := scanRoms(rows)
	if err != nil {
		return nil, fmt.Errorf("scan roms: %w", err)
	}
	return roms, nil
}

func orderClause(by OrderBy, dir OrderDir) string {
	direction := "ASC"
	if ParseOrderDir(string(dir)) == OrderDesc {
		direction = "DESC"
	}
	if ParseOrderBy(string(by)) == OrderByID {
		return " ORDER BY r.id " + direction
	}
	return " ORDER BY r.name_fold " + direction + ", r.id " + direction
}

// GetByID fetches a ROM without any per-user overlay.
func (s *Store) GetByID(ctx context.Context, id int64) (*Rom, error) {
	return getRom(ensureContext(ctx), s.db, 0, id)
}

// GetByFileName returns the ROM stored under fileName on the platform, or nil
// when there is none.
func (s *Store) GetByFileName(ctx context.Context, platformID int64, fileName string) (*Rom, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		romSelect+` WHERE r.platform_id = ? AND r.file_name = ?`, 0, platformID, fileName)
	rom, err := scanRom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rom by file name: %w", err)
	}
	return rom, nil
}

// GetDetailed loads the ROM together with the user's props, assets, and the
// ROM's siblings.
func (s *Store) GetDetailed(ctx context.Context, id, userID int64) (*DetailedRom, error) {
	ctx = ensureContext(ctx)
	rom, err := getRom(ctx, s.db, userID, id)
	if err != nil {
		return nil, err
	}
	detail := &DetailedRom{Rom: rom}

	props, err := findProps(ctx, s.db, id, userID)
	if err != nil {
		return nil, err
	}
	detail.Props = props

	if detail.Siblings, err = siblings(ctx, s.db, rom, userID); err != nil {
		return nil, err
	}

	assets, err := listAssets(ctx, s.db, id, userID)
	if err != nil {
		return nil, err
	}
	for _, asset := range assets {
		switch asset.Kind {
		case AssetSave:
			detail.Saves = append(detail.Saves, asset)
		case AssetState:
			detail.States = append(detail.States, asset)
		case AssetScreenshot:
			detail.Screenshots = append(detail.Screenshots, asset)
		}
	}
	return detail, nil
}

// Add inserts rom or, when the platform already has a ROM with the same file
// name, refreshes that record's storage fields and keeps its id.
func (s *Store) Add(ctx context.Context, rom *Rom) (*Rom, error) {
	if rom == nil {
		return nil, services.Wrap(services.ErrInvalidRequest, "catalog", "add rom", "rom is nil", nil)
	}
	fileName := strings.TrimSpace(rom.FileName)
	if rom.PlatformID <= 0 || fileName == "" {
		return nil, services.Wrap(services.ErrInvalidRequest, "catalog", "add rom", "platform id and file name are required", nil)
	}

	name := strings.TrimSpace(rom.Name)
	if name == "" {
		name = textutil.FileNameNoTags(fileName)
	}
	if name == "" {
		name = fileName
	}

	ctx = ensureContext(ctx)
	var added *Rom
	err := s.WithTx(ctx, func(tx *Tx) error {
		if _, err := getPlatform(ctx, tx.tx, rom.PlatformID); err != nil {
			return err
		}
		timestamp := timestampNow()
		var id int64
		err := tx.tx.QueryRowContext(ctx,
			`INSERT INTO roms (
                platform_id, name, name_fold, slug, file_name, file_name_fold,
                file_name_no_tags, file_name_no_ext, file_extension,
                file_path, file_size_bytes, multi, files_json, summary,
                path_cover_s, path_cover_l, url_cover, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(platform_id, file_name) DO UPDATE SET
                file_path = excluded.file_path,
                file_size_bytes = excluded.file_size_bytes,
                multi = excluded.multi,
                files_json = excluded.files_json,
                updated_at = excluded.updated_at
            RETURNING id`,
			rom.PlatformID,
			name,
			textutil.Fold(name),
			textutil.Slugify(name),
			fileName,
			textutil.Fold(fileName),
			textutil.FileNameNoTags(fileName),
			textutil.FileNameNoExtension(fileName),
			textutil.FileExtension(fileName),
			rom.FilePath,
			rom.FileSizeBytes,
			boolToInt(rom.Multi),
			encodeFiles(rom.Files),
			nullableString(rom.Summary),
			nullableString(rom.PathCoverS),
			nullableString(rom.PathCoverL),
			nullableString(rom.URLCover),
			timestamp,
			timestamp,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert rom: %w", err)
		}
		added, err = getRom(ctx, tx.tx, 0, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// Update applies a partial update in its own transaction.
func (s *Store) Update(ctx context.Context, id int64, update RomUpdate) (*Rom, error) {
	ctx = ensureContext(ctx)
	var updated *Rom
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		updated, err = tx.Update(ctx, id, update)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the ROM record. Props and assets go with it through the
// foreign key cascade. Files on disk are not touched.
func (s *Store) Delete(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	return s.WithTx(ctx, func(tx *Tx) error {
		return tx.Delete(ctx, id)
	})
}

// Purge removes every ROM of the platform whose file name is not in keep and
// returns how many were removed.
func (s *Store) Purge(ctx context.Context, platformID int64, keep []string) (int64, error) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		keepSet[name] = struct{}{}
	}

	ctx = ensureContext(ctx)
	var removed int64
	err := s.WithTx(ctx, func(tx *Tx) error {
		removed = 0
		rows, err := tx.tx.QueryContext(ctx, `SELECT id, file_name FROM roms WHERE platform_id = ?`, platformID)
		if err != nil {
			return fmt.Errorf("list platform roms: %w", err)
		}
		var stale []any
		for rows.Next() {
			var (
				id   int64
				name string
			)
			if err := rows.Scan(&id, &name); err != nil {
				_ = rows.Close()
				return fmt.Errorf("scan platform rom: %w", err)
			}
			if _, ok := keepSet[name]; !ok {
				stale = append(stale, id)
			}
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return fmt.Errorf("iterate platform roms: %w", err)
		}
		_ = rows.Close()

		const batch = 500
		for start := 0; start < len(stale); start += batch {
			end := min(start+batch, len(stale))
			chunk := stale[start:end]
			res, err := tx.tx.ExecContext(ctx,
				`DELETE FROM roms WHERE id IN (`+makePlaceholders(len(chunk))+`)`, chunk...)
			if err != nil {
				return fmt.Errorf("purge roms: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("purge rows affected: %w", err)
			}
			removed += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// GetByID fetches a ROM inside the transaction.
func (t *Tx) GetByID(ctx context.Context, id int64) (*Rom, error) {
	return getRom(ctx, t.tx, 0, id)
}

// Update applies a partial update. Changing FileName re-derives the tag-free
// and extension-free names so sibling grouping follows the new name.
func (t *Tx) Update(ctx context.Context, id int64, update RomUpdate) (*Rom, error) {
	current, err := getRom(ctx, t.tx, 0, id)
	if err != nil {
		return nil, err
	}
	if update.Empty() {
		return getRom(ctx, t.tx, 0, id)
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, services.Wrap(services.ErrInvalidRequest, "catalog", "update rom", "name must not be empty", nil)
		}
		set("name", name)
		set("name_fold", textutil.Fold(name))
		set("slug", textutil.Slugify(name))
	}
	if update.FileName != nil {
		fileName := strings.TrimSpace(*update.FileName)
		if fileName == "" {
			return nil, services.Wrap(services.ErrInvalidRequest, "catalog", "update rom", "file name must not be empty", nil)
		}
		noTags := textutil.FileNameNoTags(fileName)
		if noTags != current.FileNameNoTags {
			// A main flag must not follow the ROM into another sibling group.
			if _, err := t.tx.ExecContext(ctx,
				`UPDATE rom_user_props SET is_main_sibling = 0, updated_at = ? WHERE rom_id = ? AND is_main_sibling != 0`,
				timestampNow(), id); err != nil {
				return nil, fmt.Errorf("reset main sibling: %w", err)
			}
		}
		set("file_name", fileName)
		set("file_name_fold", textutil.Fold(fileName))
		set("file_name_no_tags", noTags)
		set("file_name_no_ext", textutil.FileNameNoExtension(fileName))
		set("file_extension", textutil.FileExtension(fileName))
	}
	if update.Summary != nil {
		set("summary", nullableString(*update.Summary))
	}
	if update.PathCoverS != nil {
		set("path_cover_s", nullableString(*update.PathCoverS))
	}
	if update.PathCoverL != nil {
		set("path_cover_l", nullableString(*update.PathCoverL))
	}
	if update.URLCover != nil {
		set("url_cover", nullableString(*update.URLCover))
	}
	if update.FilePath != nil {
		set("file_path", *update.FilePath)
	}
	if update.FileSizeBytes != nil {
		set("file_size_bytes", *update.FileSizeBytes)
	}
	if update.Files != nil {
		set("files_json", encodeFiles(*update.Files))
	}
	set("updated_at", timestampNow())
	args = append(args, id)

	if _, err := t.tx.ExecContext(ctx, `UPDATE roms SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, services.Wrap(services.ErrAlreadyExists, "catalog", "update rom",
				"another rom on this platform already uses that file name", err)
		}
		return nil, fmt.Errorf("update rom: %w", err)
	}
	return getRom(ctx, t.tx, 0, id)
}

// Delete removes the ROM record inside the transaction.
func (t *Tx) Delete(ctx context.Context, id int64) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM roms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rom: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rows affected: %w", err)
	}
	if affected == 0 {
		return romNotFound("delete rom", id)
	}
	return nil
}
