//go:build !linux

package library

func renameNoReplace(oldPath, newPath string) error {
	return renameCheckThenMove(oldPath, newPath)
}
