// Package loader turns manually supplied paths and URLs into source
// documents. Concrete backends live in the sub packages: io for the local
// filesystem, s3 for object storage and web for pages fetched over HTTP.
package loader

import (
	"context"
	"time"
)

// File is a single readable object found by a FileSystem.
type File struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// FileLoader reads the raw bytes of a file.
type FileLoader interface {
	GetFileText(ctx context.Context, file File) ([]byte, error)
}

// FileSystem is a FileLoader that can also expand a path. A file path
// expands to itself; a folder or prefix expands to every supported file
// below it, sorted by path.
type FileSystem interface {
	FileLoader
	Expand(ctx context.Context, path string) ([]File, error)
}

// Page is the readable content of a web page.
type Page struct {
	URL   string
	Title string
	Text  string
}

// PageFetcher fetches pages and discovers pages related to a base URL.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
	Related(ctx context.Context, baseURL, topic string, limit int) ([]string, error)
}

// Decoder converts the raw bytes of a file format into plain text.
type Decoder func(content []byte) ([]byte, error)
