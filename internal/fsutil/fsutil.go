package fsutil

import (
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data produced by write into destPath through a temp
// file in the same directory, so readers never see a partial file.
func WriteFileAtomic(destPath string, perm os.FileMode, write func(io.Writer) error) error {
	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(destDir, ".blip-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile.Name())

	if err := tmpFile.Chmod(perm); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := write(tmpFile); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return ReplaceFile(tmpFile.Name(), destPath)
}

// ReplaceFile renames tmpPath over destPath, removing destPath first on
// platforms where rename does not overwrite.
func ReplaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}
