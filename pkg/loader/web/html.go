package web

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

type htmlDoc struct {
	title string
	links []*url.URL
}

// parseHTML reads the document title and every <a href> of body, resolved
// against base. Fragments are dropped.
func parseHTML(body []byte, base *url.URL) htmlDoc {
	var doc htmlDoc
	z := html.NewTokenizer(bytes.NewReader(body))
	inTitle := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			doc.title = strings.Join(strings.Fields(doc.title), " ")
			return doc

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "title":
				inTitle = doc.title == ""
			case "a":
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) != "href" {
						continue
					}
					if u := resolve(base, string(val)); u != nil {
						doc.links = append(doc.links, u)
					}
				}
			}

		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "title" {
				inTitle = false
			}

		case html.TextToken:
			if inTitle {
				doc.title += string(z.Text())
			}
		}
	}
}

func resolve(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	u.Fragment = ""
	return u
}
