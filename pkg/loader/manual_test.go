package loader

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dslunde/Glyph-sub000/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memFS struct {
	files map[string]string
	dirs  map[string][]string
	mtime time.Time
}

func (m *memFS) Expand(ctx context.Context, p string) ([]File, error) {
	if children, ok := m.dirs[p]; ok {
		var out []File
		for _, c := range children {
			out = append(out, File{Path: c, ModTime: m.mtime})
		}
		return out, nil
	}
	if _, ok := m.files[p]; ok {
		return []File{{Path: p, ModTime: m.mtime}}, nil
	}
	return nil, errors.New("no such file")
}

func (m *memFS) GetFileText(ctx context.Context, f File) ([]byte, error) {
	content, ok := m.files[f.Path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return []byte(content), nil
}

type fakePages struct {
	mu      sync.Mutex
	pages   map[string]Page
	related map[string][]string
	fetched []string
}

func (f *fakePages) Fetch(ctx context.Context, rawURL string) (Page, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, rawURL)
	f.mu.Unlock()
	p, ok := f.pages[rawURL]
	if !ok {
		return Page{}, errors.New("404")
	}
	return p, nil
}

func (f *fakePages) Related(ctx context.Context, baseURL, topic string, limit int) ([]string, error) {
	r := f.related[baseURL]
	return r[:min(limit, len(r))], nil
}

func upper(content []byte) ([]byte, error) {
	if len(content) == 0 {
		return nil, errors.New("empty")
	}
	return []byte(strings.ToUpper(string(content))), nil
}

func TestProcessManualSources_Files(t *testing.T) {
	mtime := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	local := &memFS{
		mtime: mtime,
		files: map[string]string{
			"notes/graph_theory-basics.md": "Graphs have nodes and edges.",
			"notes/long.txt":               strings.Repeat("x", MaxContentChars+100),
			"notes/report.docx":            "decoded body",
			"notes/image.png":              "binary",
			"notes/empty.txt":              "   ",
		},
		dirs: map[string][]string{
			"notes": {"notes/empty.txt", "notes/graph_theory-basics.md", "notes/image.png", "notes/long.txt", "notes/report.docx"},
		},
	}
	objects := &memFS{files: map[string]string{"s3://bucket/paper.md": "Object content."}}

	m := NewManual(NewManualParams{
		Files:    local,
		Objects:  objects,
		Decoders: map[string]Decoder{".docx": upper},
	})
	res, err := m.ProcessManualSources(context.Background(), ManualSourcesRequest{
		Paths: []string{"notes", "s3://bucket/paper.md", "missing.md"},
	})
	require.NoError(t, err)

	require.Len(t, res.Documents, 4)
	assert.Equal(t, 4, res.FileCount)
	assert.Zero(t, res.URLCount)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "notes/empty.txt")
	assert.Contains(t, res.Errors[1], "missing.md")

	first := res.Documents[0]
	assert.Equal(t, "Graph Theory Basics", first.Title)
	assert.Equal(t, "Graphs have nodes and edges.", first.Content)
	assert.Equal(t, common.SourceKindFile, first.SourceKind)
	assert.Equal(t, 90, first.ReliabilityScore)
	assert.Equal(t, 0.9, first.ProviderScore)
	assert.Equal(t, "2025-03-04", first.PublishedDate)
	assert.NotEmpty(t, first.ID)

	assert.Len(t, res.Documents[1].Content, MaxContentChars)
	assert.Equal(t, "DECODED BODY", res.Documents[2].Content)
	assert.Equal(t, "Object content.", res.Documents[3].Content)
	assert.Empty(t, res.Documents[3].PublishedDate)
}

func TestProcessManualSources_URLs(t *testing.T) {
	pages := &fakePages{
		pages: map[string]Page{
			"https://site.test/docs/":         {URL: "https://site.test/docs/", Title: "Docs", Text: "Base page."},
			"https://site.test/docs/pagerank": {URL: "https://site.test/docs/pagerank", Text: "PageRank page."},
			"https://other.test/":             {URL: "https://other.test/", Title: "Other", Text: "Other page."},
		},
		related: map[string][]string{
			"https://site.test/docs/": {"https://site.test/docs/pagerank", "https://site.test/docs/broken", "https://site.test/docs/extra"},
			"https://other.test/":     {"https://site.test/docs/pagerank"},
		},
	}

	m := NewManual(NewManualParams{Pages: pages})
	res, err := m.ProcessManualSources(context.Background(), ManualSourcesRequest{
		URLs:     []string{"https://site.test/docs/", "https://other.test/", "https://site.test/docs/"},
		Topic:    "pagerank",
		MaxPages: 3,
	})
	require.NoError(t, err)

	require.Len(t, res.Documents, 3)
	assert.Equal(t, 3, res.URLCount)
	assert.Equal(t, "Docs", res.Documents[0].Title)
	assert.Equal(t, "Pagerank", res.Documents[1].Title)
	assert.Equal(t, common.SourceKindURL, res.Documents[1].SourceKind)
	assert.Equal(t, 75, res.Documents[1].ReliabilityScore)
	assert.Equal(t, 0.8, res.Documents[1].ProviderScore)
	assert.Equal(t, "Other", res.Documents[2].Title)

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "https://site.test/docs/broken")
	assert.NotContains(t, pages.fetched, "https://site.test/docs/extra")
}

func TestProcessManualSources_MissingBackends(t *testing.T) {
	res, err := NewManual(NewManualParams{}).ProcessManualSources(context.Background(), ManualSourcesRequest{
		Paths: []string{"s3://bucket/a.md"},
		URLs:  []string{"https://site.test"},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Documents)
	assert.Len(t, res.Errors, 2)
}

func TestProcessManualSources_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewManual(NewManualParams{Files: &memFS{}}).ProcessManualSources(ctx, ManualSourcesRequest{Paths: []string{"a.md"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSupported(t *testing.T) {
	decoders := DefaultDecoders()
	assert.True(t, Supported("a/b/notes.MD", decoders))
	assert.True(t, Supported("report.docx", decoders))
	assert.True(t, Supported("table.csv", decoders))
	assert.False(t, Supported("image.png", decoders))
	assert.False(t, Supported("README", decoders))
}

func TestTitles(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"notes/graph_theory-basics.md", "Graph Theory Basics"},
		{"s3://bucket/dir/page.rank.txt", "Page Rank"},
		{`C:\docs\eigen_vectors.md`, "Eigen Vectors"},
		{"plain", "Plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TitleFromFilename(tt.in), tt.in)
	}

	assert.Equal(t, "Graph theory", TitleFromURL("https://site.test/wiki/graph-theory"))
	assert.Equal(t, "site.test", TitleFromURL("https://site.test/"))
	assert.Equal(t, "not a url", TitleFromURL("not a url"))
}

func TestCache(t *testing.T) {
	c := NewCache[int]()
	ctx := WithScope(context.Background(), NewScope())
	var calls atomic.Int32

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(ctx, "k", func(context.Context) (int, error) {
				calls.Add(1)
				time.Sleep(10 * time.Millisecond)
				return 42, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())

	_, err := c.Get(ctx, "bad", func(context.Context) (int, error) { return 0, errors.New("boom") })
	assert.Error(t, err)
	v, err := c.Get(ctx, "bad", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestCache_Scopes(t *testing.T) {
	c := NewCache[int]()
	other := NewCache[int]()
	var calls atomic.Int32
	load := func(context.Context) (int, error) { return int(calls.Add(1)), nil }

	first := WithScope(context.Background(), NewScope())
	v, err := c.Get(first, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, _ = c.Get(first, "k", load)
	assert.Equal(t, 1, v)

	// caches never share entries
	v, _ = other.Get(first, "k", load)
	assert.Equal(t, 2, v)

	// a new scope loads again
	v, _ = c.Get(WithScope(context.Background(), NewScope()), "k", load)
	assert.Equal(t, 3, v)

	// no scope, no memo
	v, _ = c.Get(context.Background(), "k", load)
	assert.Equal(t, 4, v)
	v, _ = c.Get(context.Background(), "k", load)
	assert.Equal(t, 5, v)
}

func TestCache_CancelledWaiter(t *testing.T) {
	c := NewCache[string]()
	scope := NewScope()
	release := make(chan struct{})
	started := make(chan struct{})

	leaderCtx, cancel := context.WithCancel(WithScope(context.Background(), scope))
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.Get(leaderCtx, "page", func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "content", ctx.Err()
		})
		leaderErr <- err
	}()
	<-started

	waiter := make(chan string, 1)
	go func() {
		v, err := c.Get(WithScope(context.Background(), scope), "page", func(context.Context) (string, error) {
			return "", errors.New("second load")
		})
		assert.NoError(t, err)
		waiter <- v
	}()

	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)
	close(release)
	assert.Equal(t, "content", <-waiter)
}
