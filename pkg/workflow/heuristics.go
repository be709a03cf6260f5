package workflow

import (
	"hash/fnv"
	"net/url"
	"strings"

	"github.com/dslunde/Glyph-sub000/pkg/common"
)

// Preference categories a result can belong to.
const (
	CategoryReliable   = "reliable"
	CategoryUnreliable = "unreliable"
	CategoryInsider    = "insider"
	CategoryOutsider   = "outsider"
)

var (
	authorityMarkers = []string{"wikipedia", "scholar", "nature.com", "science.org", "arxiv"}
	insiderSignals   = []string{"official", "expert", "university", "institute", "journal", "government", "ministry"}
)

// QueryTemplates returns the fallback search queries for topic.
func QueryTemplates(topic string) []string {
	return []string{
		topic + " fundamentals and basic concepts",
		topic + " latest research and developments",
		topic + " expert opinions and analysis",
		topic + " practical applications and case studies",
		topic + " controversies and different perspectives",
	}
}

// HeuristicScore estimates a reliability score from the domain of rawURL.
// The base score of the domain class is shifted by -3..+3 using a hash of
// the host, so the same URL always yields the same score.
func HeuristicScore(rawURL string) int {
	host := hostOf(rawURL)

	base := 50
	switch {
	case containsAny(host, authorityMarkers):
		base = 85
	case hasAnySuffix(host, ".edu", ".gov"):
		base = 82
	case strings.HasSuffix(host, ".org"):
		base = 70
	case hasAnySuffix(host, ".com", ".net"):
		base = 55
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(host))
	return base + int(h.Sum32()%7) - 3
}

// Categories infers the preference categories of a scored document.
func Categories(doc common.SourceDocument) []string {
	var cats []string
	switch {
	case doc.ReliabilityScore >= 60:
		cats = append(cats, CategoryReliable)
	case doc.ReliabilityScore <= 40:
		cats = append(cats, CategoryUnreliable)
	}

	host := hostOf(doc.URL)
	title := strings.ToLower(doc.Title)
	if hasAnySuffix(host, ".edu", ".gov", ".org") || containsAny(title, insiderSignals) {
		cats = append(cats, CategoryInsider)
	} else {
		cats = append(cats, CategoryOutsider)
	}
	return cats
}

func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Hostname())
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
