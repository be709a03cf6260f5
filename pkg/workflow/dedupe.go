package workflow

import (
	"net/url"
	"strings"

	"github.com/dslunde/Glyph-sub000/pkg/common"
	"github.com/dslunde/Glyph-sub000/pkg/similarity"
)

// NormalizeURL lowercases the scheme and host, drops the fragment and any
// trailing slash. Unparseable input is only trimmed and lowercased.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(raw), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// Deduplicate collapses documents with the same normalized URL, then
// documents whose titles are at least threshold similar. The survivor of a
// collision is the one with the higher provider score, the earlier one on
// a tie, and it keeps the position of the earlier one. Titles are matched
// against the first title of each group, so the result does not depend on
// which member currently survives.
func Deduplicate(docs []common.SourceDocument, threshold float64) []common.SourceDocument {
	byURL := make([]common.SourceDocument, 0, len(docs))
	index := make(map[string]int, len(docs))
	for _, d := range docs {
		key := NormalizeURL(d.URL)
		if i, ok := index[key]; ok {
			if d.ProviderScore > byURL[i].ProviderScore {
				byURL[i] = d
			}
			continue
		}
		index[key] = len(byURL)
		byURL = append(byURL, d)
	}

	// titles[i] is the first title seen in out[i]; a replaced survivor must
	// not widen what the slot matches.
	out := make([]common.SourceDocument, 0, len(byURL))
	titles := make([]string, 0, len(byURL))
	for _, d := range byURL {
		dup := -1
		for i, title := range titles {
			if similarity.TitleSimilar(title, d.Title, threshold) {
				dup = i
				break
			}
		}
		if dup < 0 {
			out = append(out, d)
			titles = append(titles, d.Title)
			continue
		}
		if d.ProviderScore > out[dup].ProviderScore {
			out[dup] = d
		}
	}
	return out
}
