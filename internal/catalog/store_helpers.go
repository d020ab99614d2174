package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

type rowScanner interface{ Scan(dest ...any) error }

// romSelect joins the platform and the per-user overlay. The first bind
// parameter is always the overlay user id (0 matches no rows).
const romSelect = `SELECT r.id, r.platform_id, p.slug, p.fs_slug, p.name,
    r.name, r.slug, r.file_name, r.file_name_no_tags, r.file_name_no_ext, r.file_extension,
    r.file_path, r.file_size_bytes, r.multi, r.files_json, r.summary,
    r.path_cover_s, r.path_cover_l, r.url_cover, r.created_at, r.updated_at,
    COALESCE(up.is_main_sibling, 0),
    (SELECT COUNT(1) FROM roms s
        WHERE s.platform_id = r.platform_id AND s.file_name_no_tags = r.file_name_no_tags
        AND r.file_name_no_tags != '' AND s.id != r.id)
FROM roms r
JOIN platforms p ON p.id = r.platform_id
LEFT JOIN rom_user_props up ON up.rom_id = r.id AND up.user_id = ?`

func scanRom(scanner rowScanner) (*Rom, error) {
	var (
		rom        Rom
		multi      int64
		filesJSON  sql.NullString
		summary    sql.NullString
		coverS     sql.NullString
		coverL     sql.NullString
		urlCover   sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
		isMain     int64
	)
	if err := scanner.Scan(
		&rom.ID,
		&rom.PlatformID,
		&rom.PlatformSlug,
		&rom.PlatformFSSlug,
		&rom.PlatformName,
		&rom.Name,
		&rom.Slug,
		&rom.FileName,
		&rom.FileNameNoTags,
		&rom.FileNameNoExt,
		&rom.FileExtension,
		&rom.FilePath,
		&rom.FileSizeBytes,
		&multi,
		&filesJSON,
		&summary,
		&coverS,
		&coverL,
		&urlCover,
		&createdRaw,
		&updatedRaw,
		&isMain,
		&rom.SiblingCount,
	); err != nil {
		return nil, err
	}
	rom.Multi = multi != 0
	rom.IsMainSibling = isMain != 0
	rom.Summary = summary.String
	rom.PathCoverS = coverS.String
	rom.PathCoverL = coverL.String
	rom.URLCover = urlCover.String
	rom.Files = decodeFiles(filesJSON.String)
	if created, err := parseTimeString(createdRaw.String); err == nil {
		rom.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		rom.UpdatedAt = updated
	}
	return &rom, nil
}

func scanRoms(rows *sql.Rows) ([]*Rom, error) {
	defer rows.Close()
	var roms []*Rom
	for rows.Next() {
		rom, err := scanRom(rows)
		if err != nil {
			return nil, err
		}
		roms = append(roms, rom)
	}
	return roms, rows.Err()
}

const propsColumns = "id, rom_id, user_id, note_raw_markdown, note_is_public, is_main_sibling, created_at, updated_at"

func scanProps(scanner rowScanner) (*UserRomProps, error) {
	var (
		props      UserRomProps
		isPublic   int64
		isMain     int64
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(
		&props.ID,
		&props.RomID,
		&props.UserID,
		&props.NoteRawMarkdown,
		&isPublic,
		&isMain,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	props.NoteIsPublic = isPublic != 0
	props.IsMainSibling = isMain != 0
	if created, err := parseTimeString(createdRaw.String); err == nil {
		props.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		props.UpdatedAt = updated
	}
	return &props, nil
}

const assetColumns = "id, rom_id, user_id, kind, file_name, file_path, file_size_bytes, created_at, updated_at"

func scanAsset(scanner rowScanner) (*Asset, error) {
	var (
		asset      Asset
		kind       string
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(
		&asset.ID,
		&asset.RomID,
		&asset.UserID,
		&kind,
		&asset.FileName,
		&asset.FilePath,
		&asset.FileSizeBytes,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	asset.Kind = AssetKind(kind)
	if created, err := parseTimeString(createdRaw.String); err == nil {
		asset.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		asset.UpdatedAt = updated
	}
	return &asset, nil
}

const platformSelect = `SELECT p.id, p.slug, p.fs_slug, p.name, p.created_at, p.updated_at,
    (SELECT COUNT(1) FROM roms r WHERE r.platform_id = p.id)
FROM platforms p`

func scanPlatform(scanner rowScanner) (*Platform, error) {
	var (
		platform   Platform
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(
		&platform.ID,
		&platform.Slug,
		&platform.FSSlug,
		&platform.Name,
		&createdRaw,
		&updatedRaw,
		&platform.RomCount,
	); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		platform.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		platform.UpdatedAt = updated
	}
	return &platform, nil
}

func encodeFiles(files []string) string {
	if len(files) == 0 {
		return "[]"
	}
	data, err := json.Marshal(files)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeFiles(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" {
		return nil
	}
	var files []string
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		return nil
	}
	return files
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func timestampNow() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
