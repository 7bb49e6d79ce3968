// Package secretfile stores small secrets such as seeds on disk. Files are
// written atomically with owner only permissions, so a reader either sees
// the complete secret or no file at all.
package secretfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// FileMode is the permission of every secret file.
	FileMode os.FileMode = 0600

	// DirMode is the permission of parent directories we create.
	DirMode os.FileMode = 0700

	// tempPattern is the name pattern of the temporary file a secret is
	// staged in before it is moved into place.
	tempPattern = ".juno-keys-*.tmp"
)

var (
	// ErrTargetExists is returned when the destination already exists and
	// overwriting was not requested.
	ErrTargetExists = errors.New("target file already exists")
)

// Write stores data at path. Parent directories are created as needed. The
// data is staged in a synced temporary file in the same directory, which is
// then linked into place, or renamed over the target if overwrite is set.
// On failure no partial file is left behind.
func Write(path string, data []byte, overwrite bool) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, DirMode); err != nil {
		return fmt.Errorf("unable to create directory %s: %w", dir, err)
	}

	if !overwrite {
		if _, err := os.Lstat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrTargetExists, path)
		}
	}

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("unable to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// The temp file never outlives this call. After a successful link or
	// rename the remove is a no-op or drops the extra link.
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := writeSynced(tmp, data); err != nil {
		return err
	}

	if overwrite {
		if err := os.Rename(tmpName, path); err != nil {
			return fmt.Errorf("unable to move secret into place: %w",
				err)
		}
	} else {
		// Link fails if the target appeared after the check above, so
		// an existing file is never replaced.
		err := os.Link(tmpName, path)
		switch {
		case errors.Is(err, os.ErrExist):
			return fmt.Errorf("%w: %s", ErrTargetExists, path)

		case err != nil:
			return fmt.Errorf("unable to link secret into place: %w",
				err)
		}
	}

	if err := syncDir(dir); err != nil {
		log.Warnf("Unable to sync directory %s: %v", dir, err)
	}

	log.Debugf("Wrote %d byte secret to %s", len(data), path)

	return nil
}

// writeSynced writes data to f, flushes it to disk and closes it.
func writeSynced(f *os.File, data []byte) error {
	if err := f.Chmod(FileMode); err != nil {
		_ = f.Close()
		return fmt.Errorf("unable to set permissions: %w", err)
	}

	_, err := f.Write(data)
	if err == nil {
		err = f.Sync()
	}

	// Prioritize the error on Write but make sure to call Close regardless
	// to avoid leaking a file handle.
	if err1 := f.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err != nil {
		return fmt.Errorf("unable to write secret: %w", err)
	}

	return nil
}

// syncDir flushes the directory entry of a freshly placed file.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()

	return d.Sync()
}

// Read returns the content of the secret file at path with surrounding white
// space removed.
func Read(path string) (string, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("unable to read secret file: %w", err)
	}

	info, err := os.Stat(path)
	if err == nil && info.Mode().Perm()&0077 != 0 {
		log.Warnf("Secret file %s is accessible by other users (mode "+
			"%v)", path, info.Mode().Perm())
	}

	return strings.TrimSpace(string(content)), nil
}
