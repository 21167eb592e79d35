package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/iocafe/iocomgen/pkg/jsondoc"
	"github.com/iocafe/iocomgen/pkg/schema"
)

// GenericHardware is used when a configuration has no hardware
// sub-directories.
const GenericHardware = "generic"

// MergeListFile lists the fragments merged into one document.
const MergeListFile = "merge.json"

// Source directories below a configuration directory.
const (
	DirSignals    = "signals"
	DirPins       = "pins"
	DirParameters = "parameters"
	DirNetwork    = "network"
)

var (
	ErrBadMergeList     = errors.New("merge list is erroneous")
	ErrFragmentNotFound = errors.New("merge fragment not found")
)

// HardwareList returns the hardware names of a configuration directory:
// the union of the sub-directories of its source directories, in order of
// first appearance. Without any, the list is just GenericHardware.
func HardwareList(confDir string) ([]string, error) {
	var list []string
	seen := make(map[string]bool)
	for _, dir := range []string{DirSignals, DirPins, DirParameters, DirNetwork} {
		entries, err := os.ReadDir(filepath.Join(confDir, dir))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("listing hardware: %w", err)
		}
		var names []string
		for _, e := range entries {
			if e.IsDir() && !seen[e.Name()] {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, n := range names {
			seen[n] = true
			list = append(list, n)
		}
	}
	if len(list) == 0 {
		list = []string{GenericHardware}
	}
	return list, nil
}

// Hardware is one hardware configuration of an application.
type Hardware struct {
	ConfDir string
	Imports string
	Name    string
}

// IncludeDir is where generated C files go.
func (h Hardware) IncludeDir() string {
	return filepath.Join(h.ConfDir, "include", h.Name)
}

// IntermediateDir is where merged and converted documents go.
func (h Hardware) IntermediateDir() string {
	return filepath.Join(h.ConfDir, "intermediate", h.Name)
}

// Resolve finds file in the source directory dir. The application's
// hardware specific directory is searched first, then the application's
// common directory, then the same two below the shared imports.
func (h Hardware) Resolve(dir, file string) (string, bool) {
	candidates := []string{
		filepath.Join(h.ConfDir, dir, h.Name, file),
		filepath.Join(h.ConfDir, dir, file),
	}
	if h.Imports != "" {
		candidates = append(candidates,
			filepath.Join(h.Imports, dir, h.Name, file),
			filepath.Join(h.Imports, dir, file),
		)
	}
	for _, p := range candidates {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
	}
	return "", false
}

// MergeSources returns the files to merge for defaultFile in dir. A
// merge.json names them explicitly and every listed fragment must exist.
// Without it defaultFile is used when present; a nil list means there is
// nothing to build.
func (h Hardware) MergeSources(dir, defaultFile string) ([]string, error) {
	listPath, ok := h.Resolve(dir, MergeListFile)
	if !ok {
		if p, ok := h.Resolve(dir, defaultFile); ok {
			return []string{p}, nil
		}
		return nil, nil
	}

	doc, err := schema.ReadDocument(listPath)
	if err != nil {
		return nil, err
	}
	obj, _ := doc.(*jsondoc.Object)
	var items []any
	if obj != nil {
		items, _ = obj.GetArray("merge")
	}
	if items == nil {
		return nil, fmt.Errorf("%w: %s for '%s'", ErrBadMergeList, listPath, dir)
	}

	paths := make([]string, 0, len(items))
	for _, it := range items {
		name, ok := it.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s has a non-string entry", ErrBadMergeList, listPath)
		}
		p, ok := h.Resolve(dir, name)
		if !ok {
			return nil, fmt.Errorf("%w: '%s' for '%s'", ErrFragmentNotFound, name, dir)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// MergeFiles reads the documents at paths and merges them in order.
func MergeFiles(paths []string) (any, error) {
	docs := make([]any, 0, len(paths))
	for _, p := range paths {
		d, err := schema.ReadDocument(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return jsondoc.Merge(docs...), nil
}
