package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"romshelf/internal/services"
)

// unavailableErrors lists syscall errors that indicate the library mount is gone
// rather than a single file.
var unavailableErrors = []error{
	syscall.ENODEV,
	syscall.ENOTCONN,
	syscall.EHOSTDOWN,
	syscall.EHOSTUNREACH,
	syscall.ETIMEDOUT,
	syscall.EIO,
	syscall.ESTALE,
}

// IsUnavailable reports whether err indicates the library filesystem itself is
// unreachable.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range unavailableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// FileExists reports whether name exists inside dir. Errors other than "does
// not exist" are treated as existing so callers never overwrite on doubt.
func (r *Resolver) FileExists(dir, name string) bool {
	_, err := os.Lstat(filepath.Join(r.Abs(dir), name))
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

// RenameFile renames oldName to newName inside dir. Equal names are a no-op.
// The rename never replaces an existing target: if newName exists the call
// fails with services.ErrAlreadyExists and oldName is left untouched.
func (r *Resolver) RenameFile(oldName, newName, dir string) error {
	if oldName == newName {
		return nil
	}
	if err := validateMemberName(newName); err != nil {
		return err
	}
	base := r.Abs(dir)
	err := renameNoReplace(filepath.Join(base, oldName), filepath.Join(base, newName))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrExist):
		return services.Wrap(services.ErrAlreadyExists, "library", "rename", fmt.Sprintf("%q already exists in %s", newName, dir), nil)
	case errors.Is(err, fs.ErrNotExist):
		return services.Wrap(services.ErrNotFound, "library", "rename", fmt.Sprintf("%q not found in %s", oldName, dir), err)
	default:
		return services.Wrap(services.ErrTransient, "library", "rename", "rename failed", err)
	}
}

// RemoveFile deletes name from dir. Multi-file ROM directories are removed
// recursively.
func (r *Resolver) RemoveFile(name, dir string) error {
	if err := validateMemberName(name); err != nil {
		return err
	}
	target := filepath.Join(r.Abs(dir), name)
	info, err := os.Lstat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "library", "remove", fmt.Sprintf("%q not found in %s", name, dir), err)
		}
		return services.Wrap(services.ErrTransient, "library", "remove", "stat failed", err)
	}
	if info.IsDir() {
		err = os.RemoveAll(target)
	} else {
		err = os.Remove(target)
	}
	if err != nil {
		return services.Wrap(services.ErrTransient, "library", "remove", fmt.Sprintf("remove %q", name), err)
	}
	return nil
}

// RemoveResources deletes the per-ROM resources directory.
func (r *Resolver) RemoveResources(platformID, romID int64) error {
	target := filepath.Join(r.resourcesDir, ResourcesPath(platformID, romID))
	if _, err := os.Lstat(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "library", "remove resources", target+" not found", err)
		}
		return services.Wrap(services.ErrTransient, "library", "remove resources", "stat failed", err)
	}
	if err := os.RemoveAll(target); err != nil {
		return services.Wrap(services.ErrTransient, "library", "remove resources", "remove failed", err)
	}
	return nil
}

// renameCheckThenMove is the portable fallback for renameNoReplace. A target
// created between the check and the rename can still be replaced.
func renameCheckThenMove(oldPath, newPath string) error {
	if _, err := os.Lstat(newPath); err == nil {
		return &os.LinkError{Op: "rename", Old: oldPath, New: newPath, Err: fs.ErrExist}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Rename(oldPath, newPath)
}
