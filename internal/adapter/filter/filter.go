package filter

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"repolens/config"
)

// Filter decides whether a repository file is worth indexing. It allows
// everything that is not explicitly denied.
type Filter struct {
	maxSize     int64
	deniedExts  map[string]bool
	deniedParts []string
	deniedNames map[string]bool
}

func New(cfg config.FilterConfig) *Filter {
	f := &Filter{
		maxSize:     cfg.MaxFileSize,
		deniedExts:  make(map[string]bool, len(cfg.DeniedExtensions)),
		deniedParts: cfg.DeniedPathContains,
		deniedNames: make(map[string]bool, len(cfg.DeniedNames)),
	}
	for _, ext := range cfg.DeniedExtensions {
		f.deniedExts[strings.ToLower(ext)] = true
	}
	for _, name := range cfg.DeniedNames {
		f.deniedNames[strings.ToLower(name)] = true
	}
	return f
}

// Default returns the filter with the built-in deny lists.
func Default() *Filter {
	return New(config.DefaultConfig().Filter)
}

// ShouldProcessFile applies the default filter.
func ShouldProcessFile(filePath string, size int64) bool {
	return defaultFilter.ShouldProcess(filePath, size)
}

var defaultFilter = Default()

func (f *Filter) ShouldProcess(filePath string, size int64) bool {
	if f.maxSize > 0 && size > f.maxSize {
		return false
	}
	if f.deniedExts[strings.ToLower(path.Ext(filePath))] {
		return false
	}
	for _, part := range f.deniedParts {
		if strings.Contains(filePath, part) {
			return false
		}
	}
	return !f.deniedNames[strings.ToLower(path.Base(filePath))]
}

// PathExcluder drops paths at listing time, before any content is fetched.
type PathExcluder struct {
	dirs     map[string]bool
	patterns []string
}

// NewPathExcluder excludes any path with a directory segment in dirs, and
// any path matching one of the doublestar patterns.
func NewPathExcluder(dirs, patterns []string) *PathExcluder {
	e := &PathExcluder{
		dirs:     make(map[string]bool, len(dirs)),
		patterns: patterns,
	}
	for _, d := range dirs {
		e.dirs[d] = true
	}
	return e
}

// ExcludeDir reports whether a directory should not be descended into.
func (e *PathExcluder) ExcludeDir(dirPath string) bool {
	if e.dirs[path.Base(dirPath)] {
		return true
	}
	return e.matches(dirPath + "/")
}

// Exclude reports whether a file path should be dropped from the listing.
func (e *PathExcluder) Exclude(filePath string) bool {
	segments := strings.Split(filePath, "/")
	for _, seg := range segments[:len(segments)-1] {
		if e.dirs[seg] {
			return true
		}
	}
	return e.matches(filePath)
}

func (e *PathExcluder) matches(p string) bool {
	for _, pattern := range e.patterns {
		matched, err := doublestar.Match(pattern, p)
		if err == nil && matched {
			return true
		}
	}
	return false
}
