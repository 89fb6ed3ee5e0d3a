package corpus

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Finder locates corpus source files under a root directory using
// doublestar include/exclude patterns.
type Finder struct {
	includes []string
	excludes []string
}

func NewFinder(includes, excludes []string) *Finder {
	if len(includes) == 0 {
		includes = []string{"**/*.csv"}
	}
	return &Finder{
		includes: includes,
		excludes: excludes,
	}
}

// Find walks root and returns matching file paths in sorted order, so
// record ids assigned by ingestion are stable across runs.
func (f *Finder) Find(root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if f.shouldExclude(relPath + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if f.shouldInclude(relPath) && !f.shouldExclude(relPath) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func (f *Finder) shouldInclude(path string) bool {
	for _, pattern := range f.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (f *Finder) shouldExclude(path string) bool {
	for _, pattern := range f.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
