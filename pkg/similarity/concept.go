package similarity

import "strings"

// Scores assigned by the individual concept matching rules.
const (
	scoreIdentical    = 1.0
	scorePlural       = 0.95
	scoreVerbForm     = 0.9
	scoreAbbreviation = 0.9
)

var irregularPlurals = map[string]string{
	"analyses":   "analysis",
	"children":   "child",
	"criteria":   "criterion",
	"hypotheses": "hypothesis",
	"indices":    "index",
	"matrices":   "matrix",
	"men":        "man",
	"people":     "person",
	"phenomena":  "phenomenon",
	"theses":     "thesis",
	"vertices":   "vertex",
	"women":      "woman",
}

var abbreviations = map[string]string{
	"ai":  "artificial intelligence",
	"api": "application programming interface",
	"cnn": "convolutional neural network",
	"cv":  "computer vision",
	"dl":  "deep learning",
	"gan": "generative adversarial network",
	"gpu": "graphics processing unit",
	"llm": "large language model",
	"ml":  "machine learning",
	"nlp": "natural language processing",
	"nn":  "neural network",
	"rl":  "reinforcement learning",
	"rnn": "recurrent neural network",
	"sql": "structured query language",
	"svm": "support vector machine",
}

var acronymStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "for": {}, "in": {}, "of": {}, "on": {}, "the": {}, "to": {},
}

var verbSuffixes = []string{"ations", "ation", "ments", "ment", "ings", "ing", "ions", "ion", "ed", "es", "s"}

// Singular returns the singular form of a single lowercase word.
func Singular(word string) string {
	if s, ok := irregularPlurals[word]; ok {
		return s
	}
	switch {
	case len(word) > 4 && strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "sses"),
		strings.HasSuffix(word, "xes"),
		strings.HasSuffix(word, "ches"),
		strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "zes"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ss"),
		strings.HasSuffix(word, "us"),
		strings.HasSuffix(word, "is"):
		return word
	case len(word) > 3 && strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	}
	return word
}

func stem(word string) string {
	word = Singular(word)
	for _, suf := range verbSuffixes {
		if len(word)-len(suf) >= 3 && strings.HasSuffix(word, suf) {
			word = word[:len(word)-len(suf)]
			break
		}
	}
	return strings.TrimSuffix(word, "e")
}

func mapTokens(tokens []string, fn func(string) string) string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = fn(t)
	}
	return strings.Join(out, " ")
}

func acronym(tokens []string) string {
	if len(tokens) < 2 {
		return ""
	}
	var b strings.Builder
	for _, t := range tokens {
		if _, skip := acronymStopwords[t]; skip {
			continue
		}
		b.WriteByte(t[0])
	}
	return b.String()
}

func expandsTo(short string, longTokens []string) bool {
	if strings.Contains(short, " ") || len(longTokens) < 2 {
		return false
	}
	if acronym(longTokens) == short {
		return true
	}
	exp, ok := abbreviations[short]
	if !ok {
		return false
	}
	return mapTokens(strings.Fields(exp), Singular) == mapTokens(longTokens, Singular)
}

// ConceptSimilarity scores how likely two concept names denote the same
// concept. Rules are checked in order and the first match wins:
//
//  1. identical normalized names (1.0)
//  2. singular/plural collapse (0.95)
//  3. verb-form variants such as "optimize"/"optimizing" (0.9)
//  4. abbreviation expansion such as "NLP"/"Natural Language Processing" (0.9)
//  5. otherwise the compound token overlap ratio |A∩B| / max(|A|,|B|)
func ConceptSimilarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return scoreIdentical
	}

	ta, tb := strings.Fields(na), strings.Fields(nb)
	if mapTokens(ta, Singular) == mapTokens(tb, Singular) {
		return scorePlural
	}
	if mapTokens(ta, stem) == mapTokens(tb, stem) {
		return scoreVerbForm
	}
	if expandsTo(na, tb) || expandsTo(nb, ta) {
		return scoreAbbreviation
	}

	return tokenOverlap(ta, tb)
}

// ConceptSimilar reports whether ConceptSimilarity(a, b) reaches threshold.
func ConceptSimilar(a, b string, threshold float64) bool {
	return ConceptSimilarity(a, b) >= threshold
}

func tokenOverlap(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[Singular(t)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[Singular(t)] = struct{}{}
	}
	shared := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			shared++
		}
	}
	larger := max(len(setA), len(setB))
	if larger == 0 {
		return 0
	}
	return float64(shared) / float64(larger)
}
