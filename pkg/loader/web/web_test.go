package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dslunde/Glyph-sub000/pkg/loader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const article = `<!DOCTYPE html>
<html><head><title>
  Intro to Graphs
</title></head>
<body>
<nav><a href="/docs/graphs/pagerank">PageRank</a> <a href="/account/login">Login</a> <a href="#top">Top</a>
<a href="mailto:me@example.com">Mail</a> <a href="https://elsewhere.test/graphs">Elsewhere</a></nav>
<article>
<h1>Intro to Graphs</h1>
<p>A graph is a set of nodes joined by edges. Graphs model road networks, social networks and the links between web pages, which is where PageRank comes from.</p>
<p>PageRank scores each page by the chance that a random surfer lands on it. Pages linked from many important pages score higher than pages linked from obscure ones.</p>
<p>Other centrality measures such as betweenness and closeness look at shortest paths instead of random walks, and each highlights a different kind of importance.</p>
</article>
</body></html>`

func newSite(t *testing.T, withSitemap bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		if !withSitemap {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%[1]s/docs/graphs/intro</loc></url>
  <url><loc>%[1]s/docs/graphs/pagerank</loc></url>
  <url><loc>%[1]s/docs/graphs/login</loc></url>
  <url><loc>%[1]s/blog/centrality-guide</loc></url>
  <url><loc>https://elsewhere.test/graphs</loc></url>
</urlset>`, srv.URL)
	})
	mux.HandleFunc("/docs/graphs/intro", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, article)
	})
	mux.HandleFunc("/notes.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "plain notes")
	})
	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/image.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		fmt.Fprint(w, "png")
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch(t *testing.T) {
	srv := newSite(t, true)
	f := NewWebPageFetcher(NewWebPageFetcherParams{Client: srv.Client()})

	page, err := f.Fetch(context.Background(), srv.URL+"/docs/graphs/intro")
	require.NoError(t, err)
	assert.Equal(t, "Intro to Graphs", page.Title)
	assert.Contains(t, page.Text, "random surfer")

	page, err = f.Fetch(context.Background(), srv.URL+"/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "plain notes", page.Text)
	assert.Empty(t, page.Title)

	_, err = f.Fetch(context.Background(), srv.URL+"/private")
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.True(t, fe.NeedsAuth)
	assert.Equal(t, http.StatusForbidden, fe.StatusCode)

	_, err = f.Fetch(context.Background(), srv.URL+"/image.png")
	assert.ErrorContains(t, err, "unsupported content type")

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
}

func TestRelated_Sitemap(t *testing.T) {
	srv := newSite(t, true)
	f := NewWebPageFetcher(NewWebPageFetcherParams{Client: srv.Client()})

	related, err := f.Related(context.Background(), srv.URL+"/docs/graphs/intro", "graph pagerank", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		srv.URL + "/docs/graphs/pagerank",
		srv.URL + "/docs/graphs/login",
	}, related)

	all, err := f.Related(context.Background(), srv.URL+"/docs/graphs/intro", "graph pagerank", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, srv.URL+"/blog/centrality-guide", all[2])
}

func TestRelated_LinkFallback(t *testing.T) {
	srv := newSite(t, false)
	f := NewWebPageFetcher(NewWebPageFetcherParams{Client: srv.Client()})

	related, err := f.Related(context.Background(), srv.URL+"/docs/graphs/intro", "pagerank", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/docs/graphs/pagerank"}, related)
}

func TestRelevance(t *testing.T) {
	base, _ := url.Parse("https://site.test/docs/graphs/intro")
	tests := []struct {
		path  string
		topic string
		want  float64
	}{
		{"/docs/graphs/pagerank", "graph pagerank", 5.5},
		{"/docs/graphs/login", "graph", 3.5},
		{"/blog/centrality", "graph", 1.5},
		{"/privacy", "graph", -1},
		{"/about", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			u, _ := url.Parse("https://site.test" + tt.path)
			assert.InDelta(t, tt.want, Relevance(base, u, tt.topic), 1e-9)
		})
	}
}

func TestParseHTML(t *testing.T) {
	base, _ := url.Parse("https://site.test/docs/graphs/intro")
	doc := parseHTML([]byte(article), base)
	assert.Equal(t, "Intro to Graphs", doc.title)

	var links []string
	for _, l := range doc.links {
		links = append(links, l.String())
	}
	assert.Equal(t, []string{
		"https://site.test/docs/graphs/pagerank",
		"https://site.test/account/login",
		"https://elsewhere.test/graphs",
	}, links)
	assert.False(t, strings.Contains(strings.Join(links, " "), "mailto"))
}

func TestFetch_SharedWithinScopeOnly(t *testing.T) {
	var version atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "page version %d", version.Add(1)-1)
	}))
	t.Cleanup(srv.Close)
	f := NewWebPageFetcher(NewWebPageFetcherParams{Client: srv.Client()})

	run := loader.WithScope(context.Background(), loader.NewScope())
	page, err := f.Fetch(run, srv.URL+"/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "page version 0", page.Text)
	page, err = f.Fetch(run, srv.URL+"/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "page version 0", page.Text)

	next := loader.WithScope(context.Background(), loader.NewScope())
	page, err = f.Fetch(next, srv.URL+"/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "page version 1", page.Text)

	page, err = f.Fetch(context.Background(), srv.URL+"/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "page version 2", page.Text)
}
