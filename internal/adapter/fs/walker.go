// Package fs serves repository content from a local checkout.
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"

	"repolens/internal/adapter/filter"
	"repolens/internal/port"
)

// Provider lists and reads files below root. Owner, repo and branch are
// ignored: the checkout is whatever is on disk.
type Provider struct {
	root     string
	excluder *filter.PathExcluder
}

func NewProvider(root string, excluder *filter.PathExcluder) (*Provider, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}
	if excluder == nil {
		excluder = filter.NewPathExcluder(nil, nil)
	}
	return &Provider{root: abs, excluder: excluder}, nil
}

func (p *Provider) Root() string {
	return p.root
}

// ListFiles returns slash separated paths relative to root, in lexical order.
func (p *Provider) ListFiles(ctx context.Context, _, _, _ string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(p.root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		relPath, err := filepath.Rel(p.root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && p.excluder.ExcludeDir(relPath) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if !p.excluder.Exclude(relPath) {
			files = append(files, relPath)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", p.root, err)
	}
	return files, nil
}

func (p *Provider) GetFileContent(_ context.Context, _, _, path, _ string) (string, error) {
	local := filepath.FromSlash(path)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%s: %w", path, port.ErrFileNotFound)
	}

	data, err := os.ReadFile(filepath.Join(p.root, local))
	if errors.Is(err, iofs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", path, port.ErrFileNotFound)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

var _ port.ContentProvider = (*Provider)(nil)
