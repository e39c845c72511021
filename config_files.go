package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type configFile struct {
	Name string
	Path string
	Data []byte
}

// readConfigurationFiles returns every file in dir with the given extension, ordered by name. A missing
// directory is created and treated as empty.
func readConfigurationFiles(dir string, extension string) ([]configFile, error) {
	if err := os.MkdirAll(dir, DefaultDirectoryPermissions); err != nil {
		return nil, fmt.Errorf("failed to ensure configuration directory exists: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory listing for configurations: %w", err)
	}

	var files []configFile

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), extension) {
			continue
		}

		fullPath := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(fullPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file '%s': %w", fullPath, err)
		}

		files = append(files, configFile{
			Name: strings.TrimSuffix(entry.Name(), extension),
			Path: fullPath,
			Data: data,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// readOptionalFile returns nil data without error if the file does not exist.
func readOptionalFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}

	return data, err
}
