// Package web fetches web pages, extracts their readable text and finds
// related pages on the same site.
package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dslunde/Glyph-sub000/pkg/loader"

	"codeberg.org/readeck/go-readability/v2"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; Glyph/1.0)"
	defaultTimeout   = 30 * time.Second
	maxBodySize      = 5 << 20
)

// FetchError describes a failed page fetch.
type FetchError struct {
	URL        string
	StatusCode int
	Message    string
	NeedsAuth  bool
	Err        error
}

func (e *FetchError) Error() string {
	if e.NeedsAuth {
		return fmt.Sprintf("%s: %s (authentication required)", e.URL, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.URL, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

type response struct {
	body        []byte
	contentType string
	finalURL    *url.URL
}

// WebPageFetcher is a loader.PageFetcher over HTTP. Responses are shared by
// URL within one loader.Scope, so a page is downloaded once per ingestion.
type WebPageFetcher struct {
	client    *http.Client
	userAgent string
	cache     *loader.Cache[*response]
}

// NewWebPageFetcherParams configures a WebPageFetcher. A nil Client gets a
// client with a 30 second timeout.
type NewWebPageFetcherParams struct {
	Client    *http.Client
	UserAgent string
}

func NewWebPageFetcher(params NewWebPageFetcherParams) *WebPageFetcher {
	if params.Client == nil {
		params.Client = &http.Client{Timeout: defaultTimeout}
	}
	if params.UserAgent == "" {
		params.UserAgent = defaultUserAgent
	}
	return &WebPageFetcher{
		client:    params.Client,
		userAgent: params.UserAgent,
		cache:     loader.NewCache[*response](),
	}
}

func (f *WebPageFetcher) get(ctx context.Context, rawURL string) (*response, error) {
	return f.cache.Get(ctx, rawURL, func(ctx context.Context) (*response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, &FetchError{URL: rawURL, Message: "failed to fetch url", Err: err}
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized ||
			resp.StatusCode == http.StatusPaymentRequired ||
			resp.StatusCode == http.StatusForbidden:
			return nil, &FetchError{
				URL:        rawURL,
				StatusCode: resp.StatusCode,
				Message:    "authentication required",
				NeedsAuth:  true,
			}
		case resp.StatusCode != http.StatusOK:
			return nil, &FetchError{
				URL:        rawURL,
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
			}
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return nil, &FetchError{URL: rawURL, Message: "failed to read response", Err: err}
		}
		return &response{
			body:        body,
			contentType: resp.Header.Get("Content-Type"),
			finalURL:    resp.Request.URL,
		}, nil
	})
}

// Fetch downloads rawURL and returns its readable text. HTML goes through
// readability; plain text and markdown are returned as is.
func (f *WebPageFetcher) Fetch(ctx context.Context, rawURL string) (loader.Page, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return loader.Page{}, err
	}

	mediaType, _, _ := mime.ParseMediaType(resp.contentType)
	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml" || mediaType == "":
		article, err := readability.FromReader(bytes.NewReader(resp.body), resp.finalURL)
		if err != nil {
			return loader.Page{}, fmt.Errorf("failed to parse html: %w", err)
		}
		var text strings.Builder
		if err := article.RenderText(&text); err != nil {
			return loader.Page{}, fmt.Errorf("failed to render article text: %w", err)
		}
		doc := parseHTML(resp.body, resp.finalURL)
		return loader.Page{URL: rawURL, Title: doc.title, Text: text.String()}, nil

	case strings.HasPrefix(mediaType, "text/"):
		return loader.Page{URL: rawURL, Text: string(resp.body)}, nil
	}
	return loader.Page{}, &FetchError{URL: rawURL, Message: fmt.Sprintf("unsupported content type %q", mediaType)}
}
