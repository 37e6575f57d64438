package actionfile

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/insituflow/internal/ctxlog"
)

// Supported reports whether a file name has an extension the loader reads.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json", ".hcl":
		return true
	}
	return false
}

// ResolvePath returns the action files at path. A file is returned as is if
// its extension is supported; a directory is scanned recursively.
func ResolvePath(ctx context.Context, path string) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Resolving action path.", "path", path)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("action path not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}

	if !info.IsDir() {
		if !Supported(path) {
			return nil, fmt.Errorf("unsupported action file extension: %s", path)
		}
		return []string{path}, nil
	}

	logger.Debug("Path is a directory, scanning for action files.", "directory", path)
	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && Supported(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
