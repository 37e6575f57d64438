package actionfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/insituflow/internal/action"
	"github.com/vk/insituflow/internal/ctxlog"
	"github.com/vk/insituflow/internal/params"
)

// Decode parses one action file, choosing the format by extension.
func Decode(filename string, data []byte) (params.Value, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hcl":
		return DecodeHCL(filename, data)
	case ".yaml", ".yml", ".json":
		v, err := DecodeYAML(data)
		if err != nil {
			return params.Value{}, fmt.Errorf("failed to parse %s: %w", filename, err)
		}
		return v, nil
	}
	return params.Value{}, fmt.Errorf("unsupported action file extension: %s", filename)
}

// Load reads every action file at path and concatenates their directives
// into one tree. A file whose root is not a directive sequence fails the
// whole load.
func Load(ctx context.Context, path string) (*action.Tree, error) {
	logger := ctxlog.FromContext(ctx)
	files, err := ResolvePath(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		logger.Warn("No action files found at the specified path.", "path", path)
	}

	var items []params.Value
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read action file '%s': %w", file, err)
		}
		root, err := Decode(file, data)
		if err != nil {
			return nil, err
		}
		tree, err := action.FromValue(root)
		if err != nil {
			return nil, fmt.Errorf("action file '%s': %w", file, err)
		}
		logger.Debug("Loaded action file.", "path", file, "directives", len(tree.Actions))
		for _, a := range tree.Actions {
			items = append(items, a.Body)
		}
	}

	tree, err := action.FromValue(params.List(items...))
	if err != nil {
		return nil, err
	}
	logger.Debug("Finished loading action files.", "files", len(files), "directives", len(tree.Actions))
	return tree, nil
}
