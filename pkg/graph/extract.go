package graph

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/dslunde/Glyph-sub000/pkg/ai"
	"github.com/dslunde/Glyph-sub000/pkg/common"

	"github.com/pkoukk/tiktoken-go"
)

// Candidate is a term found in one document. Term is the normalized key,
// Label the surface form first seen and Sentences the sorted indices of the
// sentences that mention it.
type Candidate struct {
	Term      string
	Label     string
	Kind      common.NodeKind
	Count     int
	Sentences []int
}

// Extractor finds candidate terms in a document. Candidates are returned in
// order of first occurrence.
type Extractor interface {
	Extract(ctx context.Context, doc common.SourceDocument, topic string) ([]Candidate, error)
}

// documentText is the text a document contributes to the graph.
func documentText(doc common.SourceDocument) string {
	if strings.TrimSpace(doc.Content) != "" {
		return doc.Content
	}
	return doc.Title
}

type token struct {
	word    string
	surface string
	upper   bool
}

func tokenize(sentence string) []token {
	var tokens []token
	fields := strings.FieldsFunc(sentence, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '\''
	})
	for _, f := range fields {
		f = strings.Trim(f, "-'")
		if f == "" {
			continue
		}
		first := []rune(f)[0]
		tokens = append(tokens, token{
			word:    strings.ToLower(f),
			surface: f,
			upper:   unicode.IsUpper(first),
		})
	}
	return tokens
}

func contentWord(w string) bool {
	if len([]rune(w)) < 3 || isStopword(w) {
		return false
	}
	for _, r := range w {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// candidateSet collects candidates of one document in first-seen order.
type candidateSet struct {
	order []string
	byKey map[string]*Candidate
}

func newCandidateSet() *candidateSet {
	return &candidateSet{byKey: make(map[string]*Candidate)}
}

func (cs *candidateSet) add(term, label string, kind common.NodeKind, sentence int) *Candidate {
	c, ok := cs.byKey[term]
	if !ok {
		c = &Candidate{Term: term, Label: label, Kind: kind}
		cs.byKey[term] = c
		cs.order = append(cs.order, term)
	}
	if n := len(c.Sentences); n == 0 || c.Sentences[n-1] != sentence {
		c.Sentences = append(c.Sentences, sentence)
	}
	return c
}

func (cs *candidateSet) list(keep func(*Candidate) bool) []Candidate {
	out := make([]Candidate, 0, len(cs.order))
	for _, term := range cs.order {
		c := cs.byKey[term]
		if keep(c) {
			out = append(out, *c)
		}
	}
	return out
}

// HeuristicExtractor finds frequency weighted unigrams and bigrams of
// content words, plus named entities: runs of capitalized words that do
// not start a sentence.
type HeuristicExtractor struct {
	MinTermFrequency int
	MaxEntityWords   int
}

func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{MinTermFrequency: 2, MaxEntityWords: 4}
}

func (h *HeuristicExtractor) Extract(ctx context.Context, doc common.SourceDocument, topic string) ([]Candidate, error) {
	minFreq := max(1, h.MinTermFrequency)
	maxWords := h.MaxEntityWords
	if maxWords <= 0 {
		maxWords = 4
	}

	topicWords := make(map[string]struct{})
	for _, t := range tokenize(topic) {
		topicWords[t.word] = struct{}{}
	}
	inTopic := func(term string) bool {
		if len(topicWords) == 0 {
			return false
		}
		for _, w := range strings.Fields(term) {
			if _, ok := topicWords[w]; !ok {
				return false
			}
		}
		return true
	}

	cs := newCandidateSet()
	conceptCount := make(map[string]int)
	entityCount := make(map[string]int)

	for si, sentence := range splitIntoSentences(documentText(doc)) {
		if si%64 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		tokens := tokenize(sentence)
		for i, tok := range tokens {
			if term, label, ok := entityAt(tokens, i, maxWords); ok {
				cs.add(term, label, common.NodeKindEntity, si)
				entityCount[term]++
			}
			if !contentWord(tok.word) {
				continue
			}
			cs.add(tok.word, strings.ToLower(tok.surface), common.NodeKindConcept, si)
			conceptCount[tok.word]++
			if i+1 < len(tokens) && contentWord(tokens[i+1].word) {
				bigram := tok.word + " " + tokens[i+1].word
				cs.add(bigram, bigram, common.NodeKindConcept, si)
				conceptCount[bigram]++
			}
		}
	}

	cands := cs.list(func(c *Candidate) bool {
		c.Count = max(conceptCount[c.Term], entityCount[c.Term])
		if entityCount[c.Term] > 0 {
			return true
		}
		return c.Count >= minFreq || inTopic(c.Term)
	})
	return cands, nil
}

// entityAt reports the capitalized run starting at tokens[i]. The first
// word of a sentence never starts a run, and a run is at most maxWords long.
func entityAt(tokens []token, i, maxWords int) (term, label string, ok bool) {
	if i == 0 || !tokens[i].upper {
		return "", "", false
	}
	if i > 1 && tokens[i-1].upper {
		return "", "", false
	}
	end := i
	for end+1 < len(tokens) && tokens[end+1].upper && end+1-i < maxWords {
		end++
	}
	words := make([]string, 0, end-i+1)
	surface := make([]string, 0, end-i+1)
	for _, t := range tokens[i : end+1] {
		words = append(words, t.word)
		surface = append(surface, t.surface)
	}
	if len(words) == 1 && !contentWord(words[0]) {
		return "", "", false
	}
	return strings.Join(words, " "), strings.Join(surface, " "), true
}

// LLMExtractor extracts concepts and entities with a language model.
// Document text is cut to MaxTokens tokens before the request.
type LLMExtractor struct {
	Client    ai.GraphAIClient
	MaxTokens int
	MaxItems  int
	Encoding  string
}

func NewLLMExtractor(client ai.GraphAIClient) *LLMExtractor {
	return &LLMExtractor{Client: client, MaxTokens: 3000, MaxItems: 40, Encoding: "o200k_base"}
}

func (l *LLMExtractor) Extract(ctx context.Context, doc common.SourceDocument, topic string) ([]Candidate, error) {
	text := documentText(doc)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	text = truncateTokens(text, l.Encoding, l.MaxTokens)

	items, err := ai.ExtractConcepts(ctx, l.Client, topic, text, max(1, l.MaxItems))
	if err != nil {
		return nil, err
	}

	sentences := splitIntoSentences(text)
	lowered := make([]string, len(sentences))
	for i, s := range sentences {
		lowered[i] = strings.ToLower(s)
	}

	cs := newCandidateSet()
	for _, item := range items {
		label := strings.Join(strings.Fields(item.Name), " ")
		term := strings.ToLower(label)
		if term == "" {
			continue
		}
		kind := common.NodeKindConcept
		if item.Kind == string(common.NodeKindEntity) {
			kind = common.NodeKindEntity
		}

		var hits []int
		for i, s := range lowered {
			if strings.Contains(s, term) {
				hits = append(hits, i)
			}
		}
		if _, seen := cs.byKey[term]; !seen {
			cs.byKey[term] = &Candidate{Term: term, Label: label, Kind: kind}
			cs.order = append(cs.order, term)
		}
		c := cs.byKey[term]
		c.Count += max(1, item.Count, len(hits))
		for _, h := range hits {
			if !slices.Contains(c.Sentences, h) {
				c.Sentences = append(c.Sentences, h)
			}
		}
		slices.Sort(c.Sentences)
	}

	cands := cs.list(func(*Candidate) bool { return true })
	// order by first mention so node ordinals follow the text
	slices.SortStableFunc(cands, func(a, b Candidate) int {
		return cmp.Compare(firstSentence(a), firstSentence(b))
	})
	return cands, nil
}

func firstSentence(c Candidate) int {
	if len(c.Sentences) == 0 {
		return math.MaxInt
	}
	return c.Sentences[0]
}

// truncateTokens cuts text to maxTokens tokens of encoding. Without the
// tokenizer it assumes four runes per token.
func truncateTokens(text, encoding string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		runes := []rune(text)
		if len(runes) > maxTokens*4 {
			return string(runes[:maxTokens*4])
		}
		return text
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}
