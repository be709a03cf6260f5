package loader

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/dslunde/Glyph-sub000/internal/util"
	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxContentChars caps the content of every manual document.
	MaxContentChars = 5000
	// DefaultMaxPages is the number of pages read per URL, the base page
	// included.
	DefaultMaxPages = 10

	fileReliability = 90
	fileScore       = 0.9
	urlReliability  = 75
	urlScore        = 0.8

	fetchConcurrency = 4
)

// TextExtensions are read as plain text.
var TextExtensions = []string{
	".txt", ".md", ".markdown", ".rst", ".csv", ".json", ".html", ".htm",
	".xml", ".py", ".go", ".js", ".ts",
}

// Supported reports whether a file with this path can be turned into a
// document, either as plain text or through a decoder.
func Supported(p string, decoders map[string]Decoder) bool {
	ext := strings.ToLower(path.Ext(p))
	if _, ok := decoders[ext]; ok {
		return true
	}
	for _, e := range TextExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ManualSourcesRequest lists the paths and URLs a user supplied.
type ManualSourcesRequest struct {
	Paths    []string
	URLs     []string
	Topic    string
	MaxPages int
}

// ManualSourcesResult holds the documents that could be read. Errors has
// one entry per path or URL that failed.
type ManualSourcesResult struct {
	Documents []common.SourceDocument
	Errors    []string
	FileCount int
	URLCount  int
}

// Manual reads manually supplied sources.
//
// A Manual should be created using NewManual.
type Manual struct {
	files    FileSystem
	objects  FileSystem
	pages    PageFetcher
	decoders map[string]Decoder
}

// NewManualParams wires the backends of a Manual. Objects handles s3://
// paths and Pages handles URLs; either may be nil, in which case those
// inputs are reported as errors. Decoders are keyed by lowercase file
// extension including the dot.
type NewManualParams struct {
	Files    FileSystem
	Objects  FileSystem
	Pages    PageFetcher
	Decoders map[string]Decoder
}

func NewManual(params NewManualParams) *Manual {
	decoders := params.Decoders
	if decoders == nil {
		decoders = map[string]Decoder{}
	}
	return &Manual{
		files:    params.Files,
		objects:  params.Objects,
		pages:    params.Pages,
		decoders: decoders,
	}
}

// ProcessManualSources reads every path and URL of req. A failing input is
// logged, recorded in the result and skipped; only a cancelled context
// aborts the whole call. Loads are cached for the duration of the call.
func (m *Manual) ProcessManualSources(ctx context.Context, req ManualSourcesRequest) (ManualSourcesResult, error) {
	res := ManualSourcesResult{Documents: []common.SourceDocument{}}
	ctx = WithScope(ctx, NewScope())

	for _, p := range req.Paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		docs, errs := m.loadPath(ctx, p)
		res.Documents = append(res.Documents, docs...)
		res.Errors = append(res.Errors, errs...)
		res.FileCount += len(docs)
	}

	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	seen := make(map[string]struct{})
	for _, u := range req.URLs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		docs, errs := m.loadURL(ctx, u, req.Topic, maxPages, seen)
		res.Documents = append(res.Documents, docs...)
		res.Errors = append(res.Errors, errs...)
		res.URLCount += len(docs)
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	logger.Info("[Loader] Processed manual sources",
		"files", res.FileCount, "urls", res.URLCount, "errors", len(res.Errors))
	return res, nil
}

func (m *Manual) loadPath(ctx context.Context, p string) ([]common.SourceDocument, []string) {
	fs := m.files
	if strings.HasPrefix(p, "s3://") {
		fs = m.objects
	}
	if fs == nil {
		return nil, []string{failure(p, fmt.Errorf("no loader configured"))}
	}

	files, err := fs.Expand(ctx, p)
	if err != nil {
		return nil, []string{failure(p, err)}
	}

	var docs []common.SourceDocument
	var errs []string
	for _, f := range files {
		if !Supported(f.Path, m.decoders) {
			continue
		}
		doc, err := m.readFile(ctx, fs, f)
		if err != nil {
			errs = append(errs, failure(f.Path, err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, errs
}

func (m *Manual) readFile(ctx context.Context, fs FileLoader, f File) (common.SourceDocument, error) {
	raw, err := fs.GetFileText(ctx, f)
	if err != nil {
		return common.SourceDocument{}, err
	}
	if dec, ok := m.decoders[strings.ToLower(path.Ext(f.Path))]; ok {
		if raw, err = dec(raw); err != nil {
			return common.SourceDocument{}, err
		}
	}

	content := strings.TrimSpace(strings.ToValidUTF8(string(raw), ""))
	if content == "" {
		return common.SourceDocument{}, fmt.Errorf("file is empty")
	}

	doc := common.SourceDocument{
		ID:               newID(),
		Title:            TitleFromFilename(f.Path),
		URL:              f.Path,
		Content:          util.Truncate(content, MaxContentChars),
		ProviderScore:    fileScore,
		ReliabilityScore: fileReliability,
		SourceKind:       common.SourceKindFile,
	}
	if !f.ModTime.IsZero() {
		doc.PublishedDate = f.ModTime.UTC().Format("2006-01-02")
	}
	return doc, nil
}

func (m *Manual) loadURL(
	ctx context.Context,
	base, topic string,
	maxPages int,
	seen map[string]struct{},
) ([]common.SourceDocument, []string) {
	if m.pages == nil {
		return nil, []string{failure(base, fmt.Errorf("no page fetcher configured"))}
	}
	if _, dup := seen[base]; dup {
		return nil, nil
	}
	seen[base] = struct{}{}

	page, err := m.pages.Fetch(ctx, base)
	if err != nil {
		return nil, []string{failure(base, err)}
	}
	docs := []common.SourceDocument{pageDocument(page)}
	var errs []string

	if maxPages <= 1 {
		return docs, nil
	}
	related, err := m.pages.Related(ctx, base, topic, maxPages-1)
	if err != nil {
		logger.Debug("[Loader] No related pages", "url", base, "err", err)
		return docs, nil
	}

	var todo []string
	for _, u := range related {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		todo = append(todo, u)
	}

	pages := make([]*Page, len(todo))
	pageErrs := make([]error, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, u := range todo {
		g.Go(func() error {
			p, err := m.pages.Fetch(gctx, u)
			if err != nil {
				pageErrs[i] = err
				return nil
			}
			pages[i] = &p
			return nil
		})
	}
	_ = g.Wait()

	for i, p := range pages {
		if p == nil {
			errs = append(errs, failure(todo[i], pageErrs[i]))
			continue
		}
		docs = append(docs, pageDocument(*p))
	}
	return docs, errs
}

func pageDocument(p Page) common.SourceDocument {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = TitleFromURL(p.URL)
	}
	return common.SourceDocument{
		ID:               newID(),
		Title:            title,
		URL:              p.URL,
		Content:          util.Truncate(strings.TrimSpace(p.Text), MaxContentChars),
		ProviderScore:    urlScore,
		ReliabilityScore: urlReliability,
		SourceKind:       common.SourceKindURL,
	}
}

func failure(input string, err error) string {
	logger.Warn("[Loader] Failed to read source", "source", input, "err", err)
	return fmt.Sprintf("%s: %v", input, err)
}

func newID() string {
	id, _ := gonanoid.New()
	return id
}
