package web

import (
	"bytes"
	"cmp"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/dslunde/Glyph-sub000/pkg/logger"
)

var (
	penaltyWords = []string{"login", "register", "admin", "cart", "privacy", "terms"}
	contentWords = []string{"blog", "article", "post", "guide", "tutorial", "docs"}
)

// Related lists up to limit pages of the base URL's site that are likely
// relevant to topic. Candidates come from /sitemap.xml, or from the links
// of the base page when the site has no usable sitemap. They are ranked by
// Relevance, ties broken by URL; pages scoring below zero are dropped.
func (f *WebPageFetcher) Related(ctx context.Context, baseURL, topic string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if base.Host == "" {
		return nil, errors.New("url has no host")
	}

	candidates, err := f.sitemap(ctx, base)
	if err != nil || len(candidates) == 0 {
		logger.Debug("[Loader] Falling back to page links", "url", baseURL, "err", err)
		resp, err := f.get(ctx, baseURL)
		if err != nil {
			return nil, err
		}
		candidates = parseHTML(resp.body, resp.finalURL).links
	}

	type scored struct {
		url   string
		score float64
	}
	seen := map[string]struct{}{canonical(base): {}}
	var ranked []scored
	for _, u := range candidates {
		if !strings.EqualFold(u.Hostname(), base.Hostname()) {
			continue
		}
		key := canonical(u)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		s := Relevance(base, u, topic)
		if s < 0 {
			continue
		}
		ranked = append(ranked, scored{url: u.String(), score: s})
	}

	slices.SortFunc(ranked, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return strings.Compare(a.url, b.url)
	})

	out := make([]string, 0, min(limit, len(ranked)))
	for _, r := range ranked[:min(limit, len(ranked))] {
		out = append(out, r.url)
	}
	return out, nil
}

// Relevance scores candidate as a page related to base for topic:
//
//   - +1 for every topic word found in the URL
//   - +2 when the candidate lies under the base page's folder
//   - -1 when the URL looks like an account or legal page
//   - +1.5 when it looks like content (blog, article, guide, docs ...)
func Relevance(base, candidate *url.URL, topic string) float64 {
	lower := strings.ToLower(candidate.Host + candidate.Path)
	score := 0.0

	for _, w := range strings.Fields(strings.ToLower(topic)) {
		if len(w) >= 3 && strings.Contains(lower, w) {
			score++
		}
	}

	prefix := path.Dir(base.Path)
	if strings.HasSuffix(base.Path, "/") {
		prefix = strings.TrimSuffix(base.Path, "/")
	}
	if prefix != "" && prefix != "/" && prefix != "." && strings.HasPrefix(candidate.Path, prefix+"/") {
		score += 2
	}

	if containsAny(lower, penaltyWords) {
		score--
	}
	if containsAny(lower, contentWords) {
		score += 1.5
	}
	return score
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func canonical(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.Host = strings.ToLower(c.Host)
	c.Path = strings.TrimSuffix(c.Path, "/")
	return c.String()
}

// sitemap reads the <loc> entries of the site's /sitemap.xml.
func (f *WebPageFetcher) sitemap(ctx context.Context, base *url.URL) ([]*url.URL, error) {
	sm := url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/sitemap.xml"}
	resp, err := f.get(ctx, sm.String())
	if err != nil {
		return nil, err
	}

	var locs []*url.URL
	dec := xml.NewDecoder(bytes.NewReader(resp.body))
	inLoc := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return locs, nil
		}
		if err != nil {
			return locs, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inLoc = t.Name.Local == "loc"
		case xml.EndElement:
			inLoc = false
		case xml.CharData:
			if !inLoc {
				continue
			}
			if u := resolve(base, string(t)); u != nil {
				locs = append(locs, u)
			}
		}
	}
}
