// Package io reads source files from the local filesystem.
package io

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dslunde/Glyph-sub000/pkg/loader"
)

// maxFileSize guards against accidentally reading huge files; content is
// capped far below this anyway.
const maxFileSize = 32 << 20

// IOFileSystem reads files from the local filesystem. Reads are shared
// within one loader.Scope.
type IOFileSystem struct {
	cache    *loader.Cache[[]byte]
	decoders map[string]loader.Decoder
}

// NewIOFileSystem creates a filesystem loader. Folder scans include plain
// text files and any extension with a decoder.
func NewIOFileSystem(decoders map[string]loader.Decoder) *IOFileSystem {
	return &IOFileSystem{
		cache:    loader.NewCache[[]byte](),
		decoders: decoders,
	}
}

// Expand returns p itself when it is a file, or every supported file below
// it when it is a folder. Hidden files and folders are skipped.
func (l *IOFileSystem) Expand(ctx context.Context, p string) ([]loader.File, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []loader.File{{Path: p, Size: info.Size(), ModTime: info.ModTime()}}, nil
	}

	var files []loader.File
	err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path != p && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !loader.Supported(path, l.decoders) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, loader.File{Path: path, Size: fi.Size(), ModTime: fi.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan folder: %w", err)
	}
	slices.SortFunc(files, func(a, b loader.File) int { return strings.Compare(a.Path, b.Path) })
	return files, nil
}

// GetFileText reads the file content from the filesystem.
func (l *IOFileSystem) GetFileText(ctx context.Context, file loader.File) ([]byte, error) {
	key := fmt.Sprintf("%s:%d", file.Path, file.ModTime.UnixNano())
	return l.cache.Get(ctx, key, func(ctx context.Context) ([]byte, error) {
		if file.Size > maxFileSize {
			return nil, fmt.Errorf("file too large: %d bytes", file.Size)
		}
		return os.ReadFile(file.Path)
	})
}
