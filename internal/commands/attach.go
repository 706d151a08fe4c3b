package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"wip/internal/service"
)

// localFiles resolves --attach paths to regular files.
func localFiles(paths []string) ([]service.LocalFile, error) {
	files := make([]service.LocalFile, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("file not found: %s", p)
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("not a regular file: %s", p)
		}
		files = append(files, service.LocalFile{
			Path: abs,
			Name: filepath.Base(abs),
			Size: info.Size(),
		})
	}
	return files, nil
}
