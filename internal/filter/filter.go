package filter

import (
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Filter decides whether a detected file should trigger a notification:
// its extension must be in the allow-list and its path must not match any
// exclude pattern.
type Filter struct {
	extensions map[string]struct{}
	excludes   []glob.Glob
}

// New creates a Filter from an extension allow-list and optional glob
// exclude patterns. Extensions are expected lower-cased without a leading
// dot. Patterns use '/' as the path separator.
func New(extensions []string, patterns []string) (*Filter, error) {
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		exts[ext] = struct{}{}
	}

	var globs []glob.Glob
	for _, pat := range patterns {
		g, err := glob.Compile(pat, '/')
		if err != nil {
			return nil, err
		}
		globs = append(globs, g)
	}

	return &Filter{extensions: exts, excludes: globs}, nil
}

// Match returns true if the given path should produce a notification.
// A path without an extension never matches.
func (f *Filter) Match(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return false
	}
	if _, ok := f.extensions[ext]; !ok {
		return false
	}
	for _, g := range f.excludes {
		if g.Match(filepath.ToSlash(path)) {
			return false
		}
	}
	return true
}
