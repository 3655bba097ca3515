package util

import (
	"os"
	"path/filepath"

	"github.com/pingcap/errors"
)

func FileExists(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !fi.IsDir()
}

func DirExists(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.IsDir()
}

// EnsureDir creates path and any missing parents. It fails when path exists
// and is not a directory.
func EnsureDir(path string) error {
	if DirExists(path) {
		return nil
	}
	if FileExists(path) {
		return errors.Errorf("%s exists and is not a directory", path)
	}
	return errors.WithStack(os.MkdirAll(path, 0755))
}

// EnsureParentDir creates the directory that will hold the file at path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return EnsureDir(dir)
}

// DirSize sums the sizes of the regular files under path.
func DirSize(path string) (uint64, error) {
	var size uint64
	err := filepath.Walk(path, func(_ string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.Mode().IsRegular() {
			size += uint64(fi.Size())
		}
		return nil
	})
	return size, errors.WithStack(err)
}
