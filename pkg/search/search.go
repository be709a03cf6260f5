// Package search defines the web search provider contract used by the
// collection workflow.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

var (
	// ErrProvider marks a failure reported by the search backend itself,
	// such as a non-2xx response.
	ErrProvider = errors.New("search provider error")
	// ErrInvalidResult marks a record that failed boundary validation.
	ErrInvalidResult = errors.New("invalid search result")
)

// Result is a single hit returned by a Provider.
type Result struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date,omitempty"`
}

// Provider runs a web search. Implementations do not retry.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Validate normalizes r in place and reports whether it can be used.
//
// The URL must be an absolute http(s) URL. A score outside [0,1] is
// rejected. A missing title is derived from the URL.
func (r *Result) Validate() error {
	r.URL = strings.TrimSpace(r.URL)
	if r.URL == "" {
		return fmt.Errorf("%w: empty url", ErrInvalidResult)
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: not an absolute http url: %q", ErrInvalidResult, r.URL)
	}
	if r.Score < 0 || r.Score > 1 {
		return fmt.Errorf("%w: score %v out of range", ErrInvalidResult, r.Score)
	}
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		r.Title = TitleFromURL(u)
	}
	return nil
}

// TitleFromURL derives a readable title from the last path segment of u,
// or its host when the path is empty.
func TitleFromURL(u *url.URL) string {
	seg := strings.Trim(path.Base(strings.TrimRight(u.Path, "/")), "/.")
	if seg == "" {
		return u.Hostname()
	}
	seg = strings.TrimSuffix(seg, path.Ext(seg))
	seg = strings.NewReplacer("-", " ", "_", " ", "+", " ").Replace(seg)
	seg = strings.Join(strings.Fields(seg), " ")
	if seg == "" {
		return u.Hostname()
	}
	return strings.ToUpper(seg[:1]) + seg[1:]
}
