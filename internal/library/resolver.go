package library

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"romshelf/internal/services"
)

// AssetKind names a per-ROM resource subdirectory.
type AssetKind string

const (
	AssetCover       AssetKind = "cover"
	AssetScreenshots AssetKind = "screenshots"
	AssetSaves       AssetKind = "saves"
	AssetStates      AssetKind = "states"
)

// Valid reports whether k is a known asset kind.
func (k AssetKind) Valid() bool {
	switch k {
	case AssetCover, AssetScreenshots, AssetSaves, AssetStates:
		return true
	default:
		return false
	}
}

// Resolver maps catalog records onto the filesystem.
type Resolver struct {
	libraryDir   string
	resourcesDir string
}

// NewResolver returns a resolver rooted at the given library and resources
// directories. Both must be absolute.
func NewResolver(libraryDir, resourcesDir string) (*Resolver, error) {
	if !filepath.IsAbs(libraryDir) {
		return nil, services.Wrap(services.ErrConfiguration, "library", "init", fmt.Sprintf("library dir %q is not absolute", libraryDir), nil)
	}
	if !filepath.IsAbs(resourcesDir) {
		return nil, services.Wrap(services.ErrConfiguration, "library", "init", fmt.Sprintf("resources dir %q is not absolute", resourcesDir), nil)
	}
	return &Resolver{libraryDir: filepath.Clean(libraryDir), resourcesDir: filepath.Clean(resourcesDir)}, nil
}

// LibraryDir returns the library root.
func (r *Resolver) LibraryDir() string { return r.libraryDir }

// ResourcesDir returns the resources root.
func (r *Resolver) ResourcesDir() string { return r.resourcesDir }

// RomDir returns the storage directory for a platform relative to the library
// root. This is the value the catalog stores as file_path.
func RomDir(platformFSSlug string) string {
	return filepath.Join(platformFSSlug, "roms")
}

// BuildUploadPath returns the absolute directory new ROM files for the
// platform are written to.
func (r *Resolver) BuildUploadPath(platformFSSlug string) string {
	return filepath.Join(r.libraryDir, RomDir(platformFSSlug))
}

// Abs resolves a catalog file_path against the library root.
func (r *Resolver) Abs(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(r.libraryDir, dir)
}

// RomPath returns the absolute path of a ROM: the file itself, or the
// directory holding the members of a multi-file ROM.
func (r *Resolver) RomPath(filePath, fileName string) string {
	return filepath.Join(r.Abs(filePath), fileName)
}

// MemberPath returns the absolute path of one member of a multi-file ROM.
func (r *Resolver) MemberPath(filePath, fileName, member string) (string, error) {
	if err := validateMemberName(member); err != nil {
		return "", err
	}
	return filepath.Join(r.RomPath(filePath, fileName), member), nil
}

// ResourcesPath returns the per-ROM resources root relative to the resources
// directory: roms/<platform_id>/<rom_id>.
func ResourcesPath(platformID, romID int64) string {
	return filepath.Join("roms", strconv.FormatInt(platformID, 10), strconv.FormatInt(romID, 10))
}

// BuildAssetPath returns the absolute directory holding assets of the given
// kind for a ROM.
func (r *Resolver) BuildAssetPath(platformID, romID int64, kind AssetKind) (string, error) {
	if !kind.Valid() {
		return "", services.Wrap(services.ErrInvalidRequest, "library", "asset path", fmt.Sprintf("unknown asset kind %q", kind), nil)
	}
	return filepath.Join(r.resourcesDir, ResourcesPath(platformID, romID), string(kind)), nil
}

// CoverPaths describes where cover art for a ROM lives. Small and Big are
// relative to the resources root; Dir is absolute.
type CoverPaths struct {
	Small string
	Big   string
	Dir   string
}

// BuildCoverPaths returns the cover locations for a ROM and image extension.
func (r *Resolver) BuildCoverPaths(platformID, romID int64, ext string) CoverPaths {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		ext = "png"
	}
	rel := filepath.Join(ResourcesPath(platformID, romID), string(AssetCover))
	return CoverPaths{
		Small: filepath.Join(rel, "small."+ext),
		Big:   filepath.Join(rel, "big."+ext),
		Dir:   filepath.Join(r.resourcesDir, rel),
	}
}

// ResourcePath resolves a path stored relative to the resources root.
func (r *Resolver) ResourcePath(rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(r.resourcesDir, rel)
}

func validateMemberName(member string) error {
	switch {
	case strings.TrimSpace(member) == "", member == ".", member == "..":
		return services.Wrap(services.ErrInvalidRequest, "library", "member path", fmt.Sprintf("invalid member name %q", member), nil)
	case strings.ContainsAny(member, `/\`):
		return services.Wrap(services.ErrInvalidRequest, "library", "member path", fmt.Sprintf("member name %q contains a path separator", member), nil)
	}
	return nil
}
