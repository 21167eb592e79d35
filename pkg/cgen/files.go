package cgen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Paths derives the C source and header paths from an output path by
// replacing its extension.
func Paths(out string) (cPath, hPath string) {
	base := strings.TrimSuffix(out, filepath.Ext(out))
	return base + ".c", base + ".h"
}

// WriteFiles writes the C source and header, creating their directory.
func (o *Output) WriteFiles(cPath, hPath string) error {
	if err := WriteFile(cPath, o.C); err != nil {
		return err
	}
	return WriteFile(hPath, o.H)
}

// WriteFile writes content to path, creating the directory.
func WriteFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
