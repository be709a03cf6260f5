package loader

import (
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/dslunde/Glyph-sub000/pkg/search"
)

var separators = strings.NewReplacer("-", " ", "_", " ", ".", " ", "+", " ")

// TitleFromFilename turns the base name of p into a title:
// "notes/graph_theory-basics.md" becomes "Graph Theory Basics".
func TitleFromFilename(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	words := strings.Fields(separators.Replace(base))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	if len(words) == 0 {
		return p
	}
	return strings.Join(words, " ")
}

// TitleFromURL derives a title from the path of raw, falling back to raw
// itself when it does not parse.
func TitleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return search.TitleFromURL(u)
}
