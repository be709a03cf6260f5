package graph

var stopwords = toSet(
	"a", "about", "above", "after", "again", "against", "all", "also", "am", "an", "and", "any", "are",
	"as", "at", "be", "because", "been", "before", "being", "below", "between", "both", "but", "by",
	"can", "could", "did", "do", "does", "doing", "down", "during", "each", "either", "etc", "even",
	"every", "few", "for", "from", "further", "get", "gets", "had", "has", "have", "having", "he",
	"her", "here", "hers", "him", "his", "how", "however", "i", "if", "in", "into", "is", "it", "its",
	"itself", "just", "like", "made", "make", "makes", "many", "may", "me", "might", "more", "most",
	"much", "must", "my", "new", "no", "nor", "not", "now", "of", "off", "often", "on", "once",
	"one", "only", "or", "other", "our", "ours", "out", "over", "own", "same", "see", "she",
	"should", "since", "so", "some", "such", "than", "that", "the", "their", "theirs", "them",
	"then", "there", "these", "they", "this", "those", "through", "thus", "to", "too", "two",
	"under", "until", "up", "upon", "use", "used", "uses", "using", "very", "was", "way", "we",
	"well", "were", "what", "when", "where", "whether", "which", "while", "who", "whom", "why",
	"will", "with", "within", "without", "would", "yet", "you", "your", "yours",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func isStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}
