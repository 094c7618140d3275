package util

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/evergreen-ci/utility"
	"github.com/mitchellh/go-homedir"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// ResolvePath expands a leading "~" and returns the absolute form of path.
func ResolvePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("path cannot be empty")
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", errors.Wrapf(err, "expanding home directory in '%s'", path)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", errors.Wrapf(err, "getting absolute path for '%s'", expanded)
	}
	return abs, nil
}

// RemoveAll is the same as os.RemoveAll, but recursively changes permissions
// for subdirectories and contents before removing. Build trees routinely
// contain read-only files, which os.RemoveAll cannot delete on its own.
func RemoveAll(dir string) error {
	// Removing long relative paths hangs on Windows, so always remove by
	// absolute path.
	abs, err := filepath.Abs(dir)
	if err != nil {
		return errors.Wrapf(err, "getting absolute path for '%s'", dir)
	}

	grip.Error(errors.Wrapf(filepath.WalkDir(abs, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		grip.Error(errors.Wrapf(os.Chmod(path, 0777), "changing permission before removal for path '%s'", path))
		return nil
	}), "recursively walking through path to change permissions"))

	return errors.Wrapf(os.RemoveAll(abs), "removing '%s'", abs)
}

// CheckRemovable returns an error if dir is a location that should never be
// deleted recursively: the filesystem root, the user's home directory or one
// of its ancestors, or a source checkout.
func CheckRemovable(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return errors.Wrapf(err, "getting absolute path for '%s'", dir)
	}
	abs = filepath.Clean(abs)

	if abs == filepath.Dir(abs) {
		return errors.Errorf("refusing to remove filesystem root '%s'", abs)
	}

	if home, err := homedir.Dir(); err == nil && home != "" {
		home = filepath.Clean(home)
		if abs == home || strings.HasPrefix(home, abs+string(filepath.Separator)) {
			return errors.Errorf("refusing to remove '%s' because it contains the home directory", abs)
		}
	}

	if utility.FileExists(filepath.Join(abs, ".git")) {
		return errors.Errorf("refusing to remove '%s' because it contains '.git'", abs)
	}

	return nil
}
