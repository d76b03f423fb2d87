package processor

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Discover lists the regular files directly inside dir whose extension, the
// text after the last dot, matches one of extensions exactly. Symlinks are
// followed; those resolving to anything but a regular file are skipped. Paths
// are returned sorted.
func Discover(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		ext := name[strings.LastIndex(name, ".")+1:]
		if !slices.Contains(extensions, ext) {
			continue
		}
		path := filepath.Join(dir, name)
		if !isRegular(entry, path) {
			continue
		}
		files = append(files, path)
	}

	slices.Sort(files)
	return files, nil
}

func isRegular(entry fs.DirEntry, path string) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Chunks splits files into consecutive runs of at most size entries.
func Chunks(files []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var out [][]string
	for len(files) > 0 {
		n := min(size, len(files))
		out = append(out, files[:n:n])
		files = files[n:]
	}
	return out
}
