package catalog

import (
	"path"
	"strings"
	"time"

	"romshelf/internal/library"
)

// Platform groups ROMs and namespaces their storage directory.
type Platform struct {
	ID        int64
	Slug      string
	FSSlug    string
	Name      string
	RomCount  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Rom is one catalog entry: a single file, or a directory of member files when
// Multi is set.
type Rom struct {
	ID             int64
	PlatformID     int64
	PlatformSlug   string
	PlatformFSSlug string
	PlatformName   string

	Name           string
	Slug           string
	FileName       string
	FileNameNoTags string
	FileNameNoExt  string
	FileExtension  string
	// FilePath is the storage directory relative to the library root.
	FilePath      string
	FileSizeBytes int64
	Multi         bool
	// Files lists member names in stored order. Only meaningful when Multi.
	Files      []string
	Summary    string
	PathCoverS string
	PathCoverL string
	URLCover   string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Per-user overlay filled by List and GetDetailed.
	IsMainSibling bool
	SiblingCount  int64
}

// FullPath returns file_path/file_name.
func (r *Rom) FullPath() string {
	return path.Join(r.FilePath, r.FileName)
}

// ResourcesPath returns roms/<platform_id>/<rom_id>.
func (r *Rom) ResourcesPath() string {
	return library.ResourcesPath(r.PlatformID, r.ID)
}

// HasCover reports whether cover art is stored for the ROM.
func (r *Rom) HasCover() bool {
	return r.PathCoverS != "" || r.PathCoverL != ""
}

// UserRomProps holds per-user state for a ROM.
type UserRomProps struct {
	ID              int64
	RomID           int64
	UserID          int64
	NoteRawMarkdown string
	NoteIsPublic    bool
	IsMainSibling   bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AssetKind is the kind of a user asset row.
type AssetKind string

const (
	AssetSave       AssetKind = "save"
	AssetState      AssetKind = "state"
	AssetScreenshot AssetKind = "screenshot"
)

// Valid reports whether k is a known asset kind.
func (k AssetKind) Valid() bool {
	switch k {
	case AssetSave, AssetState, AssetScreenshot:
		return true
	default:
		return false
	}
}

// Asset is a save, save state, or screenshot belonging to a user and ROM.
type Asset struct {
	ID            int64
	RomID         int64
	UserID        int64
	Kind          AssetKind
	FileName      string
	FilePath      string
	FileSizeBytes int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DetailedRom is the "with assets" view of a ROM for one user.
type DetailedRom struct {
	*Rom
	Props       *UserRomProps
	Siblings    []*Rom
	Saves       []*Asset
	States      []*Asset
	Screenshots []*Asset
}

// RomUpdate is a partial update. Nil fields are left unchanged.
type RomUpdate struct {
	Name          *string
	FileName      *string
	Summary       *string
	PathCoverS    *string
	PathCoverL    *string
	URLCover      *string
	FilePath      *string
	FileSizeBytes *int64
	Files         *[]string
}

// Empty reports whether the update changes nothing.
func (u RomUpdate) Empty() bool {
	return u.Name == nil && u.FileName == nil && u.Summary == nil && u.PathCoverS == nil &&
		u.PathCoverL == nil && u.URLCover == nil && u.FilePath == nil && u.FileSizeBytes == nil && u.Files == nil
}

// PropsUpdate is a partial update of UserRomProps.
type PropsUpdate struct {
	NoteRawMarkdown *string
	NoteIsPublic    *bool
	IsMainSibling   *bool
}

// OrderBy selects the list sort key.
type OrderBy string

const (
	OrderByName OrderBy = "name"
	OrderByID   OrderBy = "id"
)

// OrderDir selects the list sort direction.
type OrderDir string

const (
	OrderAsc  OrderDir = "asc"
	OrderDesc OrderDir = "desc"
)

// ParseOrderBy normalizes a requested sort key. Unknown values fall back to name.
func ParseOrderBy(value string) OrderBy {
	switch OrderBy(strings.ToLower(strings.TrimSpace(value))) {
	case OrderByID:
		return OrderByID
	default:
		return OrderByName
	}
}

// ParseOrderDir normalizes a requested direction. Unknown values fall back to asc.
func ParseOrderDir(value string) OrderDir {
	switch OrderDir(strings.ToLower(strings.TrimSpace(value))) {
	case OrderDesc:
		return OrderDesc
	default:
		return OrderAsc
	}
}

// ListOptions filters and orders List results.
type ListOptions struct {
	// PlatformID of zero means every platform.
	PlatformID int64
	SearchTerm string
	OrderBy    OrderBy
	OrderDir   OrderDir
	// Limit <= 0 means no limit.
	Limit int
	// UserID selects whose main-sibling flags are overlaid. Zero skips the overlay.
	UserID int64
}
